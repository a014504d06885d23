package domain

import (
	"strings"
	"time"
)

// RoomKind distinguishes CRUD-owned rooms from listening rooms owned here.
type RoomKind string

const (
	RoomKindChannel   RoomKind = "channel"
	RoomKindDirect    RoomKind = "direct"
	RoomKindListening RoomKind = "listening"
)

// ListeningRoomPrefix marks room ids that this service creates on demand.
const ListeningRoomPrefix = "listen:"

// IsListeningRoomID reports whether id names a listening room.
func IsListeningRoomID(id string) bool {
	return strings.HasPrefix(id, ListeningRoomPrefix) && len(id) > len(ListeningRoomPrefix)
}

// Valid reports whether k is a known kind.
func (k RoomKind) Valid() bool {
	switch k {
	case RoomKindChannel, RoomKindDirect, RoomKindListening:
		return true
	}
	return false
}

// RoomRecord is a room as the CRUD layer knows it.
type RoomRecord struct {
	ID        string
	Kind      RoomKind
	CreatedAt time.Time
}

// Identity is the authenticated caller bound to a connection.
type Identity struct {
	UserID   string
	Username string
}

// DisplayName falls back to the user id when no username is known.
func (i Identity) DisplayName() string {
	if i.Username != "" {
		return i.Username
	}
	return i.UserID
}
