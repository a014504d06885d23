// Package delivery records the outcome of a fan-out per recipient, so one
// slow connection shows up as a counted failure instead of a log line.
package delivery

import (
	"fmt"

	"github.com/weiawesome/huddle-sync/internal/domain"
)

// Failure is one recipient that did not get the event.
type Failure struct {
	ConnectionID string
	UserID       string
	Err          error
}

func (f Failure) Error() string {
	return fmt.Sprintf("deliver to %s (user %s): %v", f.ConnectionID, f.UserID, f.Err)
}

func (f Failure) Unwrap() error {
	return domain.ErrDeliveryFailure
}

// Report summarises one fan-out.
type Report struct {
	Event     domain.MsgType
	Target    string
	Attempted int
	Failures  []Failure
}

// NewReport starts a report for event sent to target (a room id, user id,
// connection id, or "*" for everyone).
func NewReport(event domain.MsgType, target string) Report {
	return Report{Event: event, Target: target}
}

// Record adds the result of a single send.
func (r *Report) Record(connID, userID string, err error) {
	r.Attempted++
	if err != nil {
		r.Failures = append(r.Failures, Failure{ConnectionID: connID, UserID: userID, Err: err})
	}
}

// Delivered is the number of recipients that accepted the event.
func (r Report) Delivered() int {
	return r.Attempted - len(r.Failures)
}

// Failed is the number of recipients that did not.
func (r Report) Failed() int {
	return len(r.Failures)
}

// OK reports whether every attempted recipient accepted the event.
func (r Report) OK() bool {
	return len(r.Failures) == 0
}

// Merge folds other into r, keeping r's event and target.
func (r *Report) Merge(other Report) {
	r.Attempted += other.Attempted
	r.Failures = append(r.Failures, other.Failures...)
}
