package service

import (
	"context"

	"github.com/weiawesome/huddle-sync/internal/audit"
	"github.com/weiawesome/huddle-sync/internal/domain"
	"github.com/weiawesome/huddle-sync/internal/moderation"
)

// Typing relays a typing indicator to the rest of the room.
func (s *SyncService) Typing(ctx context.Context, connID, roomID string, typing bool) error {
	var err error
	if doErr := s.loop.do(ctx, func() {
		var identity domain.Identity
		if identity, err = s.requireJoined(connID, roomID); err != nil {
			return
		}
		members, _ := s.directory.Members(roomID)
		s.registry.Broadcast(roomID, members, domain.NewTypingStateChangedMessage(roomID, identity.UserID, typing), connID)
	}); doErr != nil {
		return doErr
	}
	return err
}

// Mute asks the gate whether the connection's user may mute targetUserID and
// announces the mute to the room if so. A denial only reaches the requester.
// Role resolution happens off the loop.
func (s *SyncService) Mute(ctx context.Context, connID, roomID, targetUserID string) error {
	var (
		requester domain.Identity
		err       error
	)
	if doErr := s.loop.do(ctx, func() {
		requester, err = s.requireJoined(connID, roomID)
	}); doErr != nil {
		return doErr
	}
	if err != nil {
		return err
	}

	verdict := moderation.Verdict{Decision: moderation.Deny, Reason: "no authorizer"}
	if s.authorizer != nil {
		verdict = s.authorizer.Authorize(ctx, requester.UserID, targetUserID, moderation.ActionMute)
	}
	if verdict.Decision != moderation.Allow {
		audit.Moderation(ctx, audit.ActionMuteDenied, requester.UserID, targetUserID, roomID, verdict.Reason)
		return verdict.Err()
	}
	audit.Moderation(ctx, audit.ActionMuteAllowed, requester.UserID, targetUserID, roomID, verdict.Reason)

	return s.loop.do(ctx, func() {
		members, lookupErr := s.directory.Members(roomID)
		if lookupErr != nil {
			return
		}
		s.registry.Broadcast(roomID, members, domain.NewMutedByMessage(roomID, targetUserID, requester.DisplayName()), "")
	})
}
