// Package presence turns membership and connection changes into roster and
// online/offline broadcasts. Presence is derived from connection counts and
// never stored.
package presence

import (
	"github.com/weiawesome/huddle-sync/internal/delivery"
	"github.com/weiawesome/huddle-sync/internal/domain"
)

// Fanout is the subset of hub.Registry the broadcaster needs.
type Fanout interface {
	Broadcast(roomID string, members []string, msg domain.Outbound, excludeConnID string) delivery.Report
	BroadcastAll(msg domain.Outbound) delivery.Report
}

// Notifier is told about online/offline transitions, e.g. to publish them to
// other services.
type Notifier interface {
	PresenceChanged(userID string, online bool)
}

// Broadcaster emits edge-triggered presence and post-mutation rosters.
type Broadcaster struct {
	fanout   Fanout
	notifier Notifier
}

// NewBroadcaster creates a broadcaster. notifier may be nil.
func NewBroadcaster(fanout Fanout, notifier Notifier) *Broadcaster {
	return &Broadcaster{fanout: fanout, notifier: notifier}
}

// RosterChanged sends members, which must be the roster after the mutation,
// to every member of the room.
func (b *Broadcaster) RosterChanged(roomID string, members []string) delivery.Report {
	return b.fanout.Broadcast(roomID, members, domain.NewRosterUpdatedMessage(roomID, members), "")
}

// ConnectionOpened announces the user online when count, the user's
// connection count after registering, is 1.
func (b *Broadcaster) ConnectionOpened(userID string, count int) (delivery.Report, bool) {
	if count != 1 {
		return delivery.Report{}, false
	}
	return b.changed(userID, true), true
}

// ConnectionClosed announces the user offline when no connection remains.
func (b *Broadcaster) ConnectionClosed(userID string, remaining int) (delivery.Report, bool) {
	if remaining != 0 {
		return delivery.Report{}, false
	}
	return b.changed(userID, false), true
}

func (b *Broadcaster) changed(userID string, online bool) delivery.Report {
	report := b.fanout.BroadcastAll(domain.NewPresenceChangedMessage(userID, online))
	if b.notifier != nil {
		b.notifier.PresenceChanged(userID, online)
	}
	return report
}
