package service

import (
	"context"
	"time"

	"github.com/weiawesome/huddle-sync/internal/domain"
	"github.com/weiawesome/huddle-sync/internal/hub"
	"github.com/weiawesome/huddle-sync/internal/kafka"
	"github.com/weiawesome/huddle-sync/internal/moderation"
)

// Service is the real-time session layer used by the transport handlers.
type Service interface {
	// Connect registers an authenticated connection and announces the user
	// online if this is their first connection.
	Connect(ctx context.Context, conn hub.Conn, identity domain.Identity) error

	// Disconnect removes a connection, leaves its rooms and announces the user
	// offline when no connection remains. Safe to call more than once.
	Disconnect(ctx context.Context, connID string) error

	// Handle dispatches one decoded client message. Failures are replied to
	// the connection as error messages and also returned.
	Handle(ctx context.Context, connID string, msg domain.Inbound) error

	// Reject replies err to a single connection as an error message.
	Reject(ctx context.Context, connID string, err error)

	// RecordMessage applies a message fan-out to unread counters. Empty
	// recipients are resolved from the room catalog. A non-empty messageID
	// is applied at most once within the dedup window.
	RecordMessage(ctx context.Context, messageID, roomID, authorID string, recipients []string) error

	// HandleMessageEvent handles a message event from Kafka.
	HandleMessageEvent(ctx context.Context, event *kafka.MessageEvent) error

	// Members returns the live roster of a room.
	Members(ctx context.Context, roomID string) ([]string, error)

	// Playback returns a listening room's anchored state and the server time.
	Playback(ctx context.Context, roomID string) (domain.PlaybackState, time.Time, error)

	// UnreadCounts returns every counter held for a user.
	UnreadCounts(ctx context.Context, userID string) (map[string]int, error)

	// Presence reports whether a user has a live connection.
	Presence(ctx context.Context, userID string) (PresenceInfo, error)

	// Stats returns process-wide counts.
	Stats(ctx context.Context) (Stats, error)

	// Start runs the event loop and seeds the room directory.
	Start(ctx context.Context) error

	// Stop closes every connection and stops the event loop.
	Stop(ctx context.Context) error
}

// Persister receives state writes. store.Writer implements it; calls must not
// block.
type Persister interface {
	SavePlayback(roomID string, state domain.PlaybackState)
	DeletePlayback(roomID string)
	PutUnread(userID, roomID string, count int)
}

// UnreadSource loads counters persisted by an earlier process.
// store.RedisStore implements it.
type UnreadSource interface {
	LoadUnread(ctx context.Context, userIDs []string) (map[string]map[string]int, error)
}

// Authorizer decides moderation directives. moderation.Gate implements it.
type Authorizer interface {
	Authorize(ctx context.Context, requesterUserID, targetUserID string, action moderation.Action) moderation.Verdict
}

// PresenceInfo is the presence of one user.
type PresenceInfo struct {
	UserID      string `json:"user_id"`
	Online      bool   `json:"online"`
	Connections int    `json:"connections"`
}

// Stats summarizes the live state.
type Stats struct {
	Connections int `json:"connections"`
	OnlineUsers int `json:"online_users"`
	Rooms       int `json:"rooms"`
}

type noopPersister struct{}

func (noopPersister) SavePlayback(string, domain.PlaybackState) {}
func (noopPersister) DeletePlayback(string)                     {}
func (noopPersister) PutUnread(string, string, int)             {}
