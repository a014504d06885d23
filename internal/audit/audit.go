package audit

import (
	"context"

	"github.com/weiawesome/huddle-sync/pkg/log"
)

// Audit actions for the sync service.
const (
	ActionConnect      = "sync.connect"
	ActionAuthFailed   = "sync.auth_failed"
	ActionDisconnect   = "sync.disconnect"
	ActionMuteAllowed  = "sync.mute_allowed"
	ActionMuteDenied   = "sync.mute_denied"
	ActionInternalAuth = "sync.internal_auth_failed"
)

// Field constants for audit entries.
const (
	FieldAction = "action"
	FieldDetail = "detail"
)

// Log emits a structured audit log entry via the context logger.
func Log(ctx context.Context, action, userID, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldUserID, userID).
		Msg(msg)
}

// Moderation records a moderation decision against a target in a room.
func Moderation(ctx context.Context, action, userID, targetID, roomID, detail string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldUserID, userID).
		Str(log.FieldTargetID, targetID).
		Str(log.FieldRoomID, roomID).
		Str(FieldDetail, detail).
		Msg("moderation decision")
}
