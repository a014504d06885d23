// Package unread keeps exact per-user, per-room unread counters.
package unread

import "sort"

// Change is a counter's new value.
type Change struct {
	UserID string
	RoomID string
	Count  int
}

// Tracker is owned by the sync service event loop and holds no locks.
//
// Counters persisted by an earlier process are merged in with Seed. A user is
// seeded at most once, and only before the first counter change this process
// makes for them.
type Tracker struct {
	counts map[string]map[string]int
	seeded map[string]struct{}
}

func NewTracker() *Tracker {
	return &Tracker{
		counts: make(map[string]map[string]int),
		seeded: make(map[string]struct{}),
	}
}

// Seed installs persisted counters for userID. It is a no-op returning false
// when the user was already seeded. Negative values are ignored.
func (t *Tracker) Seed(userID string, counts map[string]int) bool {
	if _, ok := t.seeded[userID]; ok {
		return false
	}
	t.seeded[userID] = struct{}{}
	if len(counts) == 0 {
		return true
	}
	rooms := t.rooms(userID)
	for roomID, n := range counts {
		if n >= 0 {
			rooms[roomID] = n
		}
	}
	return true
}

// Unseeded filters userIDs down to the distinct non-empty ids not yet seeded.
func (t *Tracker) Unseeded(userIDs []string) []string {
	var out []string
	seen := make(map[string]struct{}, len(userIDs))
	for _, userID := range userIDs {
		if userID == "" {
			continue
		}
		if _, ok := seen[userID]; ok {
			continue
		}
		seen[userID] = struct{}{}
		if _, ok := t.seeded[userID]; !ok {
			out = append(out, userID)
		}
	}
	return out
}

// OnMessageFannedOut adds one to the counter of every distinct recipient that
// is neither the author nor viewing the room. Changes are ordered by user id.
func (t *Tracker) OnMessageFannedOut(roomID, authorUserID string, recipients, viewing []string) []Change {
	skip := make(map[string]struct{}, len(viewing)+1)
	skip[authorUserID] = struct{}{}
	for _, v := range viewing {
		skip[v] = struct{}{}
	}

	var changes []Change
	for _, userID := range recipients {
		if _, ok := skip[userID]; ok || userID == "" {
			continue
		}
		// Duplicate recipient ids count once.
		skip[userID] = struct{}{}

		rooms := t.rooms(userID)
		rooms[roomID]++
		changes = append(changes, Change{UserID: userID, RoomID: roomID, Count: rooms[roomID]})
	}
	sort.Slice(changes, func(i, j int) bool { return changes[i].UserID < changes[j].UserID })
	return changes
}

// MarkRead resets the counter. The bool is false when it was already zero.
func (t *Tracker) MarkRead(userID, roomID string) (Change, bool) {
	rooms, ok := t.counts[userID]
	prev := 0
	if ok {
		if n, has := rooms[roomID]; has {
			prev = n
			rooms[roomID] = 0
		}
	}
	return Change{UserID: userID, RoomID: roomID}, prev > 0
}

// Counts returns every counter held for userID, including zeros.
func (t *Tracker) Counts(userID string) map[string]int {
	out := make(map[string]int, len(t.counts[userID]))
	for roomID, n := range t.counts[userID] {
		out[roomID] = n
	}
	return out
}

func (t *Tracker) rooms(userID string) map[string]int {
	rooms, ok := t.counts[userID]
	if !ok {
		rooms = make(map[string]int)
		t.counts[userID] = rooms
	}
	return rooms
}
