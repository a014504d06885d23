package service

import (
	"context"

	"github.com/weiawesome/huddle-sync/internal/domain"
)

func (s *SyncService) Play(ctx context.Context, connID, roomID string, media *domain.Media) error {
	return s.transition(ctx, connID, roomID, func() (domain.PlaybackState, error) {
		return s.synchronizer.Play(roomID, media)
	})
}

func (s *SyncService) Pause(ctx context.Context, connID, roomID string) error {
	return s.transition(ctx, connID, roomID, func() (domain.PlaybackState, error) {
		return s.synchronizer.Pause(roomID)
	})
}

func (s *SyncService) Seek(ctx context.Context, connID, roomID string, position float64) error {
	return s.transition(ctx, connID, roomID, func() (domain.PlaybackState, error) {
		return s.synchronizer.Seek(roomID, position)
	})
}

// transition applies a playback change for a member of the room, persists it
// and broadcasts the new anchored state. A rejected transition broadcasts
// nothing.
func (s *SyncService) transition(ctx context.Context, connID, roomID string, apply func() (domain.PlaybackState, error)) error {
	var err error
	if doErr := s.loop.do(ctx, func() {
		if _, err = s.requireJoined(connID, roomID); err != nil {
			return
		}

		var state domain.PlaybackState
		if state, err = apply(); err != nil {
			return
		}
		s.persister.SavePlayback(roomID, state)

		members, _ := s.directory.Members(roomID)
		s.registry.Broadcast(roomID, members, domain.NewPlaybackStateChangedMessage(roomID, state, s.synchronizer.Now()), "")
	}); doErr != nil {
		return doErr
	}
	return err
}
