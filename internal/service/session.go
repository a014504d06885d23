package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/weiawesome/huddle-sync/internal/audit"
	"github.com/weiawesome/huddle-sync/internal/domain"
	"github.com/weiawesome/huddle-sync/internal/hub"
	"github.com/weiawesome/huddle-sync/internal/repository"
	"github.com/weiawesome/huddle-sync/pkg/log"
)

func (s *SyncService) Connect(ctx context.Context, conn hub.Conn, identity domain.Identity) error {
	seed, err := s.loadUnread(ctx, func() []string { return []string{identity.UserID} })
	if errors.Is(err, ErrStopped) {
		return err
	}
	if err != nil {
		// Replay what the tracker holds; a later counter change retries the load.
		l := log.Ctx(ctx)
		l.Warn().Err(err).Msg("connecting without persisted unread counters")
		err = nil
	}

	var added bool
	if doErr := s.loop.do(ctx, func() {
		if s.closing {
			err = ErrStopped
			return
		}
		var count int
		count, added, err = s.registry.Register(conn, identity)
		if err != nil || !added {
			return
		}
		s.seedUnread(seed)

		s.registry.SendToConnection(conn.ID(), domain.NewConnectedMessage(conn.ID(), identity.UserID, s.registry.OnlineUsers()))
		s.broadcaster.ConnectionOpened(identity.UserID, count)
		s.replayUnread(conn.ID(), identity.UserID)
	}); doErr != nil {
		return doErr
	}
	if err != nil || !added {
		return err
	}

	audit.Log(ctx, audit.ActionConnect, identity.UserID, "connection opened")
	return nil
}

// replayUnread sends the user's non-zero counters to a fresh connection.
func (s *SyncService) replayUnread(connID, userID string) {
	counts := s.tracker.Counts(userID)
	rooms := make([]string, 0, len(counts))
	for roomID, n := range counts {
		if n > 0 {
			rooms = append(rooms, roomID)
		}
	}
	sort.Strings(rooms)
	for _, roomID := range rooms {
		s.registry.SendToConnection(connID, domain.NewUnreadCountChangedMessage(roomID, counts[roomID]))
	}
}

func (s *SyncService) Disconnect(ctx context.Context, connID string) error {
	var (
		dep hub.Departure
		ok  bool
	)
	if err := s.loop.do(ctx, func() {
		dep, ok = s.registry.Unregister(connID)
		if !ok || s.closing {
			return
		}
		for _, roomID := range dep.Rooms {
			if !s.registry.UserInRoom(dep.Identity.UserID, roomID) {
				s.leaveDirectory(roomID, dep.Identity.UserID)
			}
		}
		s.broadcaster.ConnectionClosed(dep.Identity.UserID, dep.Remaining)
	}); err != nil {
		return err
	}

	if ok {
		audit.Log(ctx, audit.ActionDisconnect, dep.Identity.UserID, "connection closed")
	}
	return nil
}

// Join adds the connection's user to a room. A room the directory has never
// seen is looked up in the catalog first, outside the loop.
func (s *SyncService) Join(ctx context.Context, connID, roomID string) error {
	var known bool
	if err := s.loop.do(ctx, func() {
		known = s.directory.Known(roomID) || domain.IsListeningRoomID(roomID)
	}); err != nil {
		return err
	}

	var kind domain.RoomKind
	if !known {
		rec, err := s.lookupRoom(ctx, roomID)
		if err != nil {
			return err
		}
		kind = rec.Kind
	}

	var err error
	if doErr := s.loop.do(ctx, func() {
		if !known {
			s.directory.Observe(roomID, kind)
		}
		err = s.join(connID, roomID)
	}); doErr != nil {
		return doErr
	}
	return err
}

func (s *SyncService) lookupRoom(ctx context.Context, roomID string) (*domain.RoomRecord, error) {
	if s.catalog == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownRoom, roomID)
	}
	rec, err := s.catalog.GetRoom(ctx, roomID)
	if errors.Is(err, repository.ErrRoomNotFound) {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownRoom, roomID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up room %s: %w", roomID, err)
	}
	return rec, nil
}

// join runs on the loop. A join that leaves the roster unchanged answers only
// the joining connection.
func (s *SyncService) join(connID, roomID string) error {
	identity, ok := s.registry.Identity(connID)
	if !ok {
		return domain.ErrUnknownConnection
	}

	change, err := s.directory.Join(roomID, identity.UserID)
	if err != nil {
		return err
	}
	s.registry.MarkJoined(connID, roomID)

	if change.Changed {
		s.broadcaster.RosterChanged(roomID, change.Members)
	} else {
		s.registry.SendToConnection(connID, domain.NewRosterUpdatedMessage(roomID, change.Members))
	}

	if state, err := s.synchronizer.Current(roomID); err == nil {
		s.registry.SendToConnection(connID, domain.NewPlaybackStateChangedMessage(roomID, state, s.synchronizer.Now()))
	}
	return nil
}

// Leave removes the connection from a room. The user stays a member while
// another of their connections is still in it.
func (s *SyncService) Leave(ctx context.Context, connID, roomID string) error {
	var err error
	if doErr := s.loop.do(ctx, func() {
		identity, ok := s.registry.Identity(connID)
		if !ok {
			err = domain.ErrUnknownConnection
			return
		}
		if !s.registry.MarkLeft(connID, roomID) {
			return
		}
		if s.registry.UserInRoom(identity.UserID, roomID) {
			return
		}
		s.leaveDirectory(roomID, identity.UserID)
	}); doErr != nil {
		return doErr
	}
	return err
}

// leaveDirectory runs on the loop.
func (s *SyncService) leaveDirectory(roomID, userID string) {
	change, err := s.directory.Leave(roomID, userID)
	if err != nil {
		return
	}
	if change.Changed && len(change.Members) > 0 {
		s.broadcaster.RosterChanged(roomID, change.Members)
	}
	if change.Deleted {
		s.persister.DeletePlayback(roomID)
		s.logger.Debug().Str(log.FieldRoomID, roomID).Msg("listening room closed")
	}
}

// Focus switches the room the connection is viewing. Switching into a room
// marks it read; an empty room id blurs.
func (s *SyncService) Focus(ctx context.Context, connID, roomID string) error {
	var (
		seed unreadSeed
		err  error
	)
	if roomID != "" {
		if seed, err = s.loadUnread(ctx, s.connUser(connID)); err != nil {
			return err
		}
	}

	if doErr := s.loop.do(ctx, func() {
		var identity domain.Identity
		if roomID == "" {
			var ok bool
			if identity, ok = s.registry.Identity(connID); !ok {
				err = domain.ErrUnknownConnection
				return
			}
		} else if identity, err = s.requireJoined(connID, roomID); err != nil {
			return
		}

		s.registry.SetActiveRoom(connID, roomID)
		if roomID != "" {
			s.seedUnread(seed)
			s.markRead(identity.UserID, roomID)
		}
	}); doErr != nil {
		return doErr
	}
	return err
}
