package delivery

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/weiawesome/huddle-sync/pkg/log"
)

// Sink receives reports that contain failures.
type Sink interface {
	Record(r Report)
}

// LogSink writes one warning per partially failed fan-out.
type LogSink struct {
	logger zerolog.Logger
}

func NewLogSink(logger zerolog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Record(r Report) {
	if r.OK() {
		return
	}
	evt := s.logger.Warn().
		Str(log.FieldEvent, string(r.Event)).
		Str("target", r.Target).
		Int(log.FieldAttempted, r.Attempted).
		Int(log.FieldFailed, r.Failed())
	if len(r.Failures) > 0 {
		evt = evt.Err(r.Failures[0].Err).Str(log.FieldConnID, r.Failures[0].ConnectionID)
	}
	evt.Msgf("%d of %d recipients failed", r.Failed(), r.Attempted)
}

// MemorySink keeps reports in memory and tallies failures.
type MemorySink struct {
	mu      sync.Mutex
	reports []Report
}

func (s *MemorySink) Record(r Report) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, r)
}

// Reports returns a copy of everything recorded.
func (s *MemorySink) Reports() []Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Report(nil), s.reports...)
}

// Failed is the total number of failed recipients across all reports.
func (s *MemorySink) Failed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.reports {
		n += r.Failed()
	}
	return n
}
