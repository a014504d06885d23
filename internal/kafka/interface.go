package kafka

import (
	"context"
	"errors"
	"strings"
)

// MessageEvent is published by the CRUD layer after a chat message has been
// persisted and fanned out.
type MessageEvent struct {
	Type         string   `json:"type"` // "message_created"
	MessageID    string   `json:"message_id"`
	RoomID       string   `json:"room_id"`
	AuthorID     string   `json:"user_id"`
	RecipientIDs []string `json:"recipient_ids,omitempty"`
	Timestamp    int64    `json:"timestamp"`
}

// PresenceEvent is published on every online/offline transition.
type PresenceEvent struct {
	Type      string `json:"type"` // "user_online" | "user_offline"
	UserID    string `json:"user_id"`
	Timestamp int64  `json:"timestamp"`
}

// Event types
const (
	EventMessageCreated = "message_created"
	EventUserOnline     = "user_online"
	EventUserOffline    = "user_offline"
)

var ErrInvalidEvent = errors.New("invalid message event")

// Validate checks the fields the unread tracker depends on.
func (e *MessageEvent) Validate() error {
	if e.Type != "" && e.Type != EventMessageCreated {
		return ErrInvalidEvent
	}
	if strings.TrimSpace(e.RoomID) == "" || strings.TrimSpace(e.AuthorID) == "" {
		return ErrInvalidEvent
	}
	return nil
}

// MessageEventHandler handles message fan-out notifications.
type MessageEventHandler interface {
	HandleMessageEvent(ctx context.Context, event *MessageEvent) error
}

// MessageEventConsumer defines the interface for consuming message events.
type MessageEventConsumer interface {
	Start(ctx context.Context) error
	Close() error
}

// PresencePublisher publishes presence transitions.
type PresencePublisher interface {
	PresenceChanged(userID string, online bool)
	Close() error
}

// NoOpPublisher is used when Kafka is disabled.
type NoOpPublisher struct{}

func (NoOpPublisher) PresenceChanged(string, bool) {}
func (NoOpPublisher) Close() error { return nil }

var (
	_ MessageEventConsumer = (*ConfluentConsumer)(nil)
	_ PresencePublisher    = (*ConfluentProducer)(nil)
	_ PresencePublisher    = NoOpPublisher{}
)
