package repository

import (
	"context"
	"errors"

	"github.com/weiawesome/huddle-sync/internal/domain"
)

var (
	ErrRoomNotFound = errors.New("room not found")
)

// RoomCatalog is the read side of the CRUD layer's rooms and memberships.
type RoomCatalog interface {
	GetRoom(ctx context.Context, id string) (*domain.RoomRecord, error)
	ListRooms(ctx context.Context) ([]domain.RoomRecord, error)
	FetchRoomMembership(ctx context.Context, roomID string) ([]string, error)
}

// RoleStore returns the role tags assigned to a user.
type RoleStore interface {
	ResolveRoles(ctx context.Context, userID string) ([]string, error)
}
