package domain

import "errors"

var (
	// ErrAuthentication rejects a connection at handshake.
	ErrAuthentication = errors.New("authentication failed")
	// ErrUnknownRoom is returned for ids that are neither observed nor listening rooms.
	// Callers treat it as a no-op.
	ErrUnknownRoom = errors.New("unknown room")
	// ErrAuthorizationDenied is reported to the requester only.
	ErrAuthorizationDenied = errors.New("authorization denied")
	// ErrDeliveryFailure marks a per-recipient send failure.
	ErrDeliveryFailure = errors.New("delivery failed")

	ErrInvalidTransition = errors.New("invalid playback transition")
	ErrInvalidPosition   = errors.New("invalid playback position")
	ErrNotListeningRoom  = errors.New("room has no playback")
	ErrNotMember         = errors.New("user is not a member of the room")
	ErrUnknownConnection = errors.New("unknown connection")
	ErrInvalidMessage    = errors.New("invalid message")
	ErrUnknownType       = errors.New("unknown message type")
)

// Error codes sent to clients in error messages.
const (
	ErrCodeBadRequest        = "BAD_REQUEST"
	ErrCodeUnknownType       = "UNKNOWN_TYPE"
	ErrCodeForbidden         = "FORBIDDEN"
	ErrCodeNotInRoom         = "NOT_IN_ROOM"
	ErrCodeInvalidTransition = "INVALID_TRANSITION"
	ErrCodeInternalError     = "INTERNAL_ERROR"
)

// ErrorCode maps an error returned by the sync service to a client error code.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrUnknownType):
		return ErrCodeUnknownType
	case errors.Is(err, ErrInvalidMessage), errors.Is(err, ErrInvalidPosition):
		return ErrCodeBadRequest
	case errors.Is(err, ErrAuthorizationDenied):
		return ErrCodeForbidden
	case errors.Is(err, ErrNotMember):
		return ErrCodeNotInRoom
	case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrNotListeningRoom):
		return ErrCodeInvalidTransition
	default:
		return ErrCodeInternalError
	}
}
