package store

import (
	"context"

	"github.com/weiawesome/huddle-sync/internal/domain"
)

// StateStore persists state the CRUD layer reads back: playback of live
// listening rooms and unread counters.
type StateStore interface {
	SavePlayback(ctx context.Context, roomID string, state domain.PlaybackState) error
	DeletePlayback(ctx context.Context, roomID string) error
	SetUnread(ctx context.Context, userID, roomID string, count int) error
}

var _ StateStore = (*RedisStore)(nil)
