package service

import (
	"context"
	"time"

	"github.com/weiawesome/huddle-sync/internal/domain"
)

func (s *SyncService) Members(ctx context.Context, roomID string) ([]string, error) {
	var (
		members []string
		err     error
	)
	if doErr := s.loop.do(ctx, func() {
		members, err = s.directory.Members(roomID)
	}); doErr != nil {
		return nil, doErr
	}
	return members, err
}

func (s *SyncService) Playback(ctx context.Context, roomID string) (domain.PlaybackState, time.Time, error) {
	var (
		state domain.PlaybackState
		now   time.Time
		err   error
	)
	if doErr := s.loop.do(ctx, func() {
		state, err = s.synchronizer.Current(roomID)
		now = s.synchronizer.Now()
	}); doErr != nil {
		return domain.PlaybackState{}, time.Time{}, doErr
	}
	return state, now, err
}

func (s *SyncService) UnreadCounts(ctx context.Context, userID string) (map[string]int, error) {
	seed, err := s.loadUnread(ctx, func() []string { return []string{userID} })
	if err != nil {
		return nil, err
	}

	var counts map[string]int
	if err := s.loop.do(ctx, func() {
		s.seedUnread(seed)
		counts = s.tracker.Counts(userID)
	}); err != nil {
		return nil, err
	}
	return counts, nil
}

func (s *SyncService) Presence(ctx context.Context, userID string) (PresenceInfo, error) {
	info := PresenceInfo{UserID: userID}
	if err := s.loop.do(ctx, func() {
		info.Connections = s.registry.ConnectionCount(userID)
		info.Online = s.registry.IsOnline(userID)
	}); err != nil {
		return PresenceInfo{}, err
	}
	return info, nil
}

func (s *SyncService) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	if err := s.loop.do(ctx, func() {
		st = Stats{
			Connections: s.registry.Len(),
			OnlineUsers: len(s.registry.OnlineUsers()),
			Rooms:       s.directory.Len(),
		}
	}); err != nil {
		return Stats{}, err
	}
	return st, nil
}
