// Package room keeps the in-memory room directory: kind, roster and, for
// listening rooms, playback state.
package room

import (
	"sort"
	"time"

	"github.com/weiawesome/huddle-sync/internal/domain"
)

// Info is a read-only snapshot of a room.
type Info struct {
	ID          string          `json:"id"`
	Kind        domain.RoomKind `json:"kind"`
	Members     []string        `json:"members"`
	CreatedAt   time.Time       `json:"created_at"`
	HasPlayback bool            `json:"has_playback"`
}

// Change is the outcome of a Join or Leave.
type Change struct {
	Members []string
	// Changed is false when the call was a no-op on the member set.
	Changed bool
	Created bool
	Deleted bool
}

type room struct {
	id        string
	kind      domain.RoomKind
	members   map[string]struct{}
	createdAt time.Time
	playback  *domain.PlaybackState
}

// Directory maps room ids to rooms. Like hub.Registry it is owned by the sync
// service event loop and holds no locks.
type Directory struct {
	rooms map[string]*room
	now   func() time.Time
}

// NewDirectory creates an empty directory. now stamps creation times.
func NewDirectory(now func() time.Time) *Directory {
	if now == nil {
		now = time.Now
	}
	return &Directory{rooms: make(map[string]*room), now: now}
}

// Observe records a channel or direct room owned by the CRUD layer. Observing
// a known room is a no-op.
func (d *Directory) Observe(id string, kind domain.RoomKind) bool {
	if id == "" || !kind.Valid() || kind == domain.RoomKindListening {
		return false
	}
	if _, ok := d.rooms[id]; ok {
		return false
	}
	d.rooms[id] = newRoom(id, kind, d.now())
	return true
}

// Known reports whether id is in the directory.
func (d *Directory) Known(id string) bool {
	_, ok := d.rooms[id]
	return ok
}

// Join adds userID to the room. Listening rooms are created on first join;
// other unknown ids yield ErrUnknownRoom.
func (d *Directory) Join(roomID, userID string) (Change, error) {
	r, ok := d.rooms[roomID]
	created := false
	if !ok {
		if !domain.IsListeningRoomID(roomID) {
			return Change{}, domain.ErrUnknownRoom
		}
		r = newRoom(roomID, domain.RoomKindListening, d.now())
		r.playback = &domain.PlaybackState{}
		d.rooms[roomID] = r
		created = true
	}

	_, present := r.members[userID]
	r.members[userID] = struct{}{}
	return Change{Members: r.roster(), Changed: !present, Created: created}, nil
}

// Leave removes userID from the room. A listening room that becomes empty is
// deleted together with its playback state.
func (d *Directory) Leave(roomID, userID string) (Change, error) {
	r, ok := d.rooms[roomID]
	if !ok {
		return Change{}, domain.ErrUnknownRoom
	}

	_, present := r.members[userID]
	delete(r.members, userID)

	change := Change{Members: r.roster(), Changed: present}
	if len(r.members) == 0 && r.kind == domain.RoomKindListening {
		delete(d.rooms, roomID)
		change.Deleted = true
	}
	return change, nil
}

// Members returns the sorted roster.
func (d *Directory) Members(roomID string) ([]string, error) {
	r, ok := d.rooms[roomID]
	if !ok {
		return nil, domain.ErrUnknownRoom
	}
	return r.roster(), nil
}

// Playback returns a copy of a listening room's playback state.
func (d *Directory) Playback(roomID string) (domain.PlaybackState, error) {
	r, ok := d.rooms[roomID]
	if !ok {
		return domain.PlaybackState{}, domain.ErrUnknownRoom
	}
	if r.playback == nil {
		return domain.PlaybackState{}, domain.ErrNotListeningRoom
	}
	return copyState(*r.playback), nil
}

// SetPlayback replaces a listening room's playback state.
func (d *Directory) SetPlayback(roomID string, state domain.PlaybackState) error {
	r, ok := d.rooms[roomID]
	if !ok {
		return domain.ErrUnknownRoom
	}
	if r.playback == nil {
		return domain.ErrNotListeningRoom
	}
	st := copyState(state)
	r.playback = &st
	return nil
}

// Rooms returns snapshots of every room ordered by id.
func (d *Directory) Rooms() []Info {
	out := make([]Info, 0, len(d.rooms))
	for _, r := range d.rooms {
		out = append(out, r.info())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len is the number of rooms.
func (d *Directory) Len() int {
	return len(d.rooms)
}

func newRoom(id string, kind domain.RoomKind, now time.Time) *room {
	return &room{id: id, kind: kind, members: make(map[string]struct{}), createdAt: now}
}

func (r *room) roster() []string {
	out := make([]string, 0, len(r.members))
	for id := range r.members {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (r *room) info() Info {
	return Info{
		ID:          r.id,
		Kind:        r.kind,
		Members:     r.roster(),
		CreatedAt:   r.createdAt,
		HasPlayback: r.playback != nil,
	}
}

// copyState detaches the media pointer so callers cannot mutate stored state.
func copyState(s domain.PlaybackState) domain.PlaybackState {
	if s.Media != nil {
		m := *s.Media
		s.Media = &m
	}
	return s
}
