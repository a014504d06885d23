package domain

import (
	"encoding/json"
	"fmt"
	"math"
)

// MsgType is the "type" discriminator of every websocket message.
type MsgType string

// Client -> server message types.
const (
	MsgTypeJoin        MsgType = "join"
	MsgTypeLeave       MsgType = "leave"
	MsgTypePlay        MsgType = "play"
	MsgTypePause       MsgType = "pause"
	MsgTypeSeek        MsgType = "seek"
	MsgTypeTyping      MsgType = "typing"
	MsgTypeStopTyping  MsgType = "stop_typing"
	MsgTypeMuteRequest MsgType = "mute_request"
	MsgTypeFocus       MsgType = "focus"
	MsgTypeMarkRead    MsgType = "mark_read"
	MsgTypePing        MsgType = "ping"
)

// Server -> client message types.
const (
	MsgTypeConnected            MsgType = "connected"
	MsgTypeRosterUpdated        MsgType = "roster_updated"
	MsgTypePresenceChanged      MsgType = "presence_changed"
	MsgTypePlaybackStateChanged MsgType = "playback_state_changed"
	MsgTypeTypingStateChanged   MsgType = "typing_state_changed"
	MsgTypeMutedBy              MsgType = "muted_by"
	MsgTypeUnreadCountChanged   MsgType = "unread_count_changed"
	MsgTypeError                MsgType = "error"
	MsgTypePong                 MsgType = "pong"
)

// Presence statuses.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// BaseMessage is decoded first to find the message type.
type BaseMessage struct {
	Type MsgType `json:"type"`
}

// Inbound is the closed set of client messages. Only types in this file
// implement it.
type Inbound interface {
	inbound()
}

type JoinMessage struct {
	RoomID string `json:"room_id"`
}

type LeaveMessage struct {
	RoomID string `json:"room_id"`
}

// PlayMessage loads Media, or resumes a paused track when Media is nil.
type PlayMessage struct {
	RoomID string `json:"room_id"`
	Media  *Media `json:"media,omitempty"`
}

type PauseMessage struct {
	RoomID string `json:"room_id"`
}

type SeekMessage struct {
	RoomID   string  `json:"room_id"`
	Position float64 `json:"position"`
}

type TypingMessage struct {
	RoomID   string `json:"room_id"`
	IsTyping bool   `json:"-"`
}

// MuteRequestMessage deliberately has no requester field: the requester is
// the connection's authenticated user.
type MuteRequestMessage struct {
	RoomID       string `json:"room_id"`
	TargetUserID string `json:"target_user_id"`
}

// FocusMessage changes the connection's active room. An empty RoomID blurs.
type FocusMessage struct {
	RoomID string `json:"room_id"`
}

type MarkReadMessage struct {
	RoomID string `json:"room_id"`
}

type PingMessage struct{}

func (JoinMessage) inbound()        {}
func (LeaveMessage) inbound()       {}
func (PlayMessage) inbound()        {}
func (PauseMessage) inbound()       {}
func (SeekMessage) inbound()        {}
func (TypingMessage) inbound()      {}
func (MuteRequestMessage) inbound() {}
func (FocusMessage) inbound()       {}
func (MarkReadMessage) inbound()    {}
func (PingMessage) inbound()        {}

// DecodeInbound parses a client frame into its typed message.
func DecodeInbound(data []byte) (Inbound, error) {
	var base BaseMessage
	if err := json.Unmarshal(data, &base); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}

	switch base.Type {
	case MsgTypeJoin:
		var m JoinMessage
		if err := decodeRoomScoped(data, &m, &m.RoomID); err != nil {
			return nil, err
		}
		return m, nil
	case MsgTypeLeave:
		var m LeaveMessage
		if err := decodeRoomScoped(data, &m, &m.RoomID); err != nil {
			return nil, err
		}
		return m, nil
	case MsgTypePlay:
		var m PlayMessage
		if err := decodeRoomScoped(data, &m, &m.RoomID); err != nil {
			return nil, err
		}
		if m.Media != nil {
			if err := m.Media.validate(); err != nil {
				return nil, err
			}
		}
		return m, nil
	case MsgTypePause:
		var m PauseMessage
		if err := decodeRoomScoped(data, &m, &m.RoomID); err != nil {
			return nil, err
		}
		return m, nil
	case MsgTypeSeek:
		var m SeekMessage
		if err := decodeRoomScoped(data, &m, &m.RoomID); err != nil {
			return nil, err
		}
		if math.IsNaN(m.Position) || math.IsInf(m.Position, 0) {
			return nil, fmt.Errorf("%w: position must be finite", ErrInvalidMessage)
		}
		return m, nil
	case MsgTypeTyping, MsgTypeStopTyping:
		m := TypingMessage{IsTyping: base.Type == MsgTypeTyping}
		if err := decodeRoomScoped(data, &m, &m.RoomID); err != nil {
			return nil, err
		}
		return m, nil
	case MsgTypeMuteRequest:
		var m MuteRequestMessage
		if err := decodeRoomScoped(data, &m, &m.RoomID); err != nil {
			return nil, err
		}
		if m.TargetUserID == "" {
			return nil, fmt.Errorf("%w: target_user_id is required", ErrInvalidMessage)
		}
		return m, nil
	case MsgTypeFocus:
		var m FocusMessage
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
		}
		return m, nil
	case MsgTypeMarkRead:
		var m MarkReadMessage
		if err := decodeRoomScoped(data, &m, &m.RoomID); err != nil {
			return nil, err
		}
		return m, nil
	case MsgTypePing:
		return PingMessage{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, base.Type)
	}
}

// decodeRoomScoped unmarshals data into v and requires a non-empty room id,
// which roomID points into.
func decodeRoomScoped(data []byte, v any, roomID *string) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if *roomID == "" {
		return fmt.Errorf("%w: room_id is required", ErrInvalidMessage)
	}
	return nil
}

func (m *Media) validate() error {
	if m.URL == "" && m.Title == "" {
		return fmt.Errorf("%w: media needs a url or title", ErrInvalidMessage)
	}
	if m.Duration < 0 || math.IsNaN(m.Duration) || math.IsInf(m.Duration, 0) {
		return fmt.Errorf("%w: media duration must be a non-negative number", ErrInvalidMessage)
	}
	return nil
}
