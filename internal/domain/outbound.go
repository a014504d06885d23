package domain

import (
	"encoding/json"
	"time"
)

// Outbound is the closed set of server messages.
type Outbound interface {
	MessageType() MsgType
}

// ConnectedMessage greets a new connection with a presence snapshot.
type ConnectedMessage struct {
	Type         MsgType  `json:"type"`
	ConnectionID string   `json:"connection_id"`
	UserID       string   `json:"user_id"`
	OnlineUsers  []string `json:"online_users"`
}

type RosterUpdatedMessage struct {
	Type    MsgType  `json:"type"`
	RoomID  string   `json:"room_id"`
	Members []string `json:"members"`
}

type PresenceChangedMessage struct {
	Type   MsgType `json:"type"`
	UserID string  `json:"user_id"`
	Status string  `json:"status"`
}

// PlaybackStateChangedMessage carries the anchored state. ServerTime lets a
// client estimate its clock offset; it is not a position.
type PlaybackStateChangedMessage struct {
	Type       MsgType       `json:"type"`
	RoomID     string        `json:"room_id"`
	State      PlaybackState `json:"state"`
	ServerTime time.Time     `json:"server_time"`
}

type TypingStateChangedMessage struct {
	Type     MsgType `json:"type"`
	RoomID   string  `json:"room_id"`
	UserID   string  `json:"user_id"`
	IsTyping bool    `json:"is_typing"`
}

type MutedByMessage struct {
	Type          MsgType `json:"type"`
	RoomID        string  `json:"room_id"`
	TargetUserID  string  `json:"target_user_id"`
	ModeratorName string  `json:"moderator_name"`
}

type UnreadCountChangedMessage struct {
	Type   MsgType `json:"type"`
	RoomID string  `json:"room_id"`
	Count  int     `json:"count"`
}

type ErrorMessage struct {
	Type    MsgType `json:"type"`
	Code    string  `json:"code"`
	Message string  `json:"message"`
}

type PongMessage struct {
	Type MsgType `json:"type"`
}

func (ConnectedMessage) MessageType() MsgType            { return MsgTypeConnected }
func (RosterUpdatedMessage) MessageType() MsgType        { return MsgTypeRosterUpdated }
func (PresenceChangedMessage) MessageType() MsgType      { return MsgTypePresenceChanged }
func (PlaybackStateChangedMessage) MessageType() MsgType { return MsgTypePlaybackStateChanged }
func (TypingStateChangedMessage) MessageType() MsgType   { return MsgTypeTypingStateChanged }
func (MutedByMessage) MessageType() MsgType              { return MsgTypeMutedBy }
func (UnreadCountChangedMessage) MessageType() MsgType   { return MsgTypeUnreadCountChanged }
func (ErrorMessage) MessageType() MsgType                { return MsgTypeError }
func (PongMessage) MessageType() MsgType                 { return MsgTypePong }

func NewConnectedMessage(connID, userID string, online []string) ConnectedMessage {
	if online == nil {
		online = []string{}
	}
	return ConnectedMessage{Type: MsgTypeConnected, ConnectionID: connID, UserID: userID, OnlineUsers: online}
}

func NewRosterUpdatedMessage(roomID string, members []string) RosterUpdatedMessage {
	if members == nil {
		members = []string{}
	}
	return RosterUpdatedMessage{Type: MsgTypeRosterUpdated, RoomID: roomID, Members: members}
}

func NewPresenceChangedMessage(userID string, online bool) PresenceChangedMessage {
	status := StatusOffline
	if online {
		status = StatusOnline
	}
	return PresenceChangedMessage{Type: MsgTypePresenceChanged, UserID: userID, Status: status}
}

func NewPlaybackStateChangedMessage(roomID string, state PlaybackState, now time.Time) PlaybackStateChangedMessage {
	return PlaybackStateChangedMessage{Type: MsgTypePlaybackStateChanged, RoomID: roomID, State: state, ServerTime: now}
}

func NewTypingStateChangedMessage(roomID, userID string, typing bool) TypingStateChangedMessage {
	return TypingStateChangedMessage{Type: MsgTypeTypingStateChanged, RoomID: roomID, UserID: userID, IsTyping: typing}
}

func NewMutedByMessage(roomID, targetUserID, moderatorName string) MutedByMessage {
	return MutedByMessage{Type: MsgTypeMutedBy, RoomID: roomID, TargetUserID: targetUserID, ModeratorName: moderatorName}
}

func NewUnreadCountChangedMessage(roomID string, count int) UnreadCountChangedMessage {
	return UnreadCountChangedMessage{Type: MsgTypeUnreadCountChanged, RoomID: roomID, Count: count}
}

func NewErrorMessage(code, message string) ErrorMessage {
	return ErrorMessage{Type: MsgTypeError, Code: code, Message: message}
}

func NewPongMessage() PongMessage {
	return PongMessage{Type: MsgTypePong}
}

// Encode marshals an outbound message for the wire.
func Encode(msg Outbound) ([]byte, error) {
	return json.Marshal(msg)
}
