package service

import (
	"context"
	"fmt"

	"github.com/weiawesome/huddle-sync/internal/domain"
	"github.com/weiawesome/huddle-sync/internal/kafka"
	"github.com/weiawesome/huddle-sync/internal/unread"
	"github.com/weiawesome/huddle-sync/pkg/log"
)

// unreadSeed holds persisted counters per user, fetched outside the loop.
type unreadSeed map[string]map[string]int

// loadUnread fetches the persisted counters of the users returned by users
// that the tracker has not seen yet. users runs on the loop. The seed must be
// applied with seedUnread in the loop step that changes those counters.
func (s *SyncService) loadUnread(ctx context.Context, users func() []string) (unreadSeed, error) {
	if s.unreadSource == nil {
		return nil, nil
	}

	var missing []string
	if err := s.loop.do(ctx, func() {
		missing = s.tracker.Unseeded(users())
	}); err != nil {
		return nil, err
	}
	if len(missing) == 0 {
		return nil, nil
	}

	loaded, err := s.unreadSource.LoadUnread(ctx, missing)
	if err != nil {
		return nil, fmt.Errorf("failed to load unread counters: %w", err)
	}
	seed := make(unreadSeed, len(missing))
	for _, userID := range missing {
		seed[userID] = loaded[userID]
	}
	return seed, nil
}

// seedUnread runs on the loop. Users seeded by a concurrent step are skipped.
func (s *SyncService) seedUnread(seed unreadSeed) {
	for userID, counts := range seed {
		s.tracker.Seed(userID, counts)
	}
}

// connUser returns a users func yielding the connection's user. Loop only.
func (s *SyncService) connUser(connID string) func() []string {
	return func() []string {
		identity, ok := s.registry.Identity(connID)
		if !ok {
			return nil
		}
		return []string{identity.UserID}
	}
}

// MarkRead resets the connection user's counter for roomID.
func (s *SyncService) MarkRead(ctx context.Context, connID, roomID string) error {
	seed, err := s.loadUnread(ctx, s.connUser(connID))
	if err != nil {
		return err
	}

	if doErr := s.loop.do(ctx, func() {
		identity, ok := s.registry.Identity(connID)
		if !ok {
			err = domain.ErrUnknownConnection
			return
		}
		s.seedUnread(seed)
		s.markRead(identity.UserID, roomID)
	}); doErr != nil {
		return doErr
	}
	return err
}

// markRead runs on the loop.
func (s *SyncService) markRead(userID, roomID string) {
	if change, changed := s.tracker.MarkRead(userID, roomID); changed {
		s.pushUnread(change)
	}
}

func (s *SyncService) pushUnread(c unread.Change) {
	s.registry.SendToUser(c.UserID, domain.NewUnreadCountChangedMessage(c.RoomID, c.Count))
	s.persister.PutUnread(c.UserID, c.RoomID, c.Count)
}

// RecordMessage applies one message fan-out. A message id seen within the
// dedup window is ignored, so redelivered events count once.
func (s *SyncService) RecordMessage(ctx context.Context, messageID, roomID, authorID string, recipients []string) error {
	if roomID == "" || authorID == "" {
		return fmt.Errorf("%w: room and author are required", domain.ErrInvalidMessage)
	}

	if len(recipients) == 0 {
		if s.catalog == nil {
			return fmt.Errorf("%w: %s", domain.ErrUnknownRoom, roomID)
		}
		members, err := s.catalog.FetchRoomMembership(ctx, roomID)
		if err != nil {
			return fmt.Errorf("failed to fetch membership of room %s: %w", roomID, err)
		}
		recipients = members
	}

	seed, err := s.loadUnread(ctx, func() []string { return recipients })
	if err != nil {
		return err
	}

	var duplicate bool
	if err := s.loop.do(ctx, func() {
		if messageID != "" && !s.recent.add(messageID) {
			duplicate = true
			return
		}
		s.seedUnread(seed)
		viewing := s.registry.Viewers(roomID)
		for _, c := range s.tracker.OnMessageFannedOut(roomID, authorID, recipients, viewing) {
			s.pushUnread(c)
		}
	}); err != nil {
		return err
	}

	if duplicate {
		l := log.Ctx(ctx)
		l.Debug().Str("message_id", messageID).Str(log.FieldRoomID, roomID).Msg("ignoring duplicate message")
	}
	return nil
}

func (s *SyncService) HandleMessageEvent(ctx context.Context, event *kafka.MessageEvent) error {
	return s.RecordMessage(ctx, event.MessageID, event.RoomID, event.AuthorID, event.RecipientIDs)
}
