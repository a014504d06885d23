package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/weiawesome/huddle-sync/internal/delivery"
	"github.com/weiawesome/huddle-sync/internal/domain"
	"github.com/weiawesome/huddle-sync/internal/hub"
	"github.com/weiawesome/huddle-sync/internal/playback"
	"github.com/weiawesome/huddle-sync/internal/presence"
	"github.com/weiawesome/huddle-sync/internal/repository"
	"github.com/weiawesome/huddle-sync/internal/room"
	"github.com/weiawesome/huddle-sync/internal/unread"
	"github.com/weiawesome/huddle-sync/pkg/log"
)

// Options wires the collaborators of a SyncService. Only Authorizer is
// required; a nil Catalog means every non-listening room is unknown until
// observed, and a nil Unread means counters start from zero.
type Options struct {
	Catalog    repository.RoomCatalog
	Authorizer Authorizer
	Persister  Persister
	Unread     UnreadSource
	Notifier   presence.Notifier
	Sink       delivery.Sink
	Now        func() time.Time
	Logger     zerolog.Logger

	// DedupWindow is how many recent message ids are remembered.
	DedupWindow int
}

// SyncService is the single owner of registry, directory, synchronizer,
// broadcaster and tracker. Every mutation runs on its event loop.
type SyncService struct {
	loop      *loop
	startOnce sync.Once

	registry     *hub.Registry
	directory    *room.Directory
	synchronizer *playback.Synchronizer
	broadcaster  *presence.Broadcaster
	tracker      *unread.Tracker
	recent       *recentIDs

	catalog      repository.RoomCatalog
	authorizer   Authorizer
	persister    Persister
	unreadSource UnreadSource
	logger       zerolog.Logger

	// closing is set by Stop; loop-owned.
	closing bool
}

var _ Service = (*SyncService)(nil)

func NewSyncService(opts Options) *SyncService {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	sink := opts.Sink
	if sink == nil {
		sink = delivery.NewLogSink(opts.Logger)
	}
	persister := opts.Persister
	if persister == nil {
		persister = noopPersister{}
	}

	registry := hub.NewRegistry(sink)
	directory := room.NewDirectory(now)

	return &SyncService{
		loop:         newLoop(),
		registry:     registry,
		directory:    directory,
		synchronizer: playback.New(directory, now),
		broadcaster:  presence.NewBroadcaster(registry, opts.Notifier),
		tracker:      unread.NewTracker(),
		recent:       newRecentIDs(opts.DedupWindow),
		catalog:      opts.Catalog,
		authorizer:   opts.Authorizer,
		persister:    persister,
		unreadSource: opts.Unread,
		logger:       opts.Logger,
	}
}

func (s *SyncService) startLoop() {
	s.startOnce.Do(func() { go s.loop.run() })
}

// Start runs the event loop and observes every room the catalog lists. A seed
// failure is returned but the loop keeps running; rooms are then looked up on
// first join.
func (s *SyncService) Start(ctx context.Context) error {
	s.startLoop()
	if s.catalog == nil {
		return nil
	}

	rooms, err := s.catalog.ListRooms(ctx)
	if err != nil {
		return fmt.Errorf("failed to seed rooms: %w", err)
	}

	var observed int
	if err := s.loop.do(ctx, func() {
		for _, r := range rooms {
			if s.directory.Observe(r.ID, r.Kind) {
				observed++
			}
		}
	}); err != nil {
		return err
	}
	s.logger.Info().Int("rooms", observed).Msg("room directory seeded")
	return nil
}

// Stop closes every client and stops the loop. Disconnects triggered by the
// closes are not broadcast.
func (s *SyncService) Stop(ctx context.Context) error {
	s.startLoop()
	err := s.loop.do(ctx, func() {
		s.closing = true
		s.registry.CloseAll()
	})
	s.loop.stop()
	if errors.Is(err, ErrStopped) {
		return nil
	}
	return err
}

// Handle maps each inbound message onto its operation. An unknown room is a
// silent no-op.
func (s *SyncService) Handle(ctx context.Context, connID string, msg domain.Inbound) error {
	err := s.dispatch(ctx, connID, msg)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrStopped), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, domain.ErrUnknownRoom):
		l := log.Ctx(ctx)
		l.Debug().Err(err).Msg("ignoring message for unknown room")
		return nil
	}
	s.Reject(ctx, connID, err)
	return err
}

func (s *SyncService) dispatch(ctx context.Context, connID string, msg domain.Inbound) error {
	switch m := msg.(type) {
	case domain.JoinMessage:
		return s.Join(ctx, connID, m.RoomID)
	case domain.LeaveMessage:
		return s.Leave(ctx, connID, m.RoomID)
	case domain.PlayMessage:
		return s.Play(ctx, connID, m.RoomID, m.Media)
	case domain.PauseMessage:
		return s.Pause(ctx, connID, m.RoomID)
	case domain.SeekMessage:
		return s.Seek(ctx, connID, m.RoomID, m.Position)
	case domain.TypingMessage:
		return s.Typing(ctx, connID, m.RoomID, m.IsTyping)
	case domain.MuteRequestMessage:
		return s.Mute(ctx, connID, m.RoomID, m.TargetUserID)
	case domain.FocusMessage:
		return s.Focus(ctx, connID, m.RoomID)
	case domain.MarkReadMessage:
		return s.MarkRead(ctx, connID, m.RoomID)
	case domain.PingMessage:
		return s.loop.do(ctx, func() {
			s.registry.SendToConnection(connID, domain.NewPongMessage())
		})
	default:
		return fmt.Errorf("%w: %T", domain.ErrUnknownType, msg)
	}
}

func (s *SyncService) Reject(ctx context.Context, connID string, err error) {
	code := domain.ErrorCode(err)
	text := err.Error()
	if code == domain.ErrCodeInternalError {
		text = "internal error"
		l := log.Ctx(ctx)
		l.Error().Err(err).Str(log.FieldConnID, connID).Msg("request failed")
	}
	msg := domain.NewErrorMessage(code, text)
	_ = s.loop.do(ctx, func() {
		s.registry.SendToConnection(connID, msg)
	})
}

// requireJoined returns the connection's identity if it has joined roomID.
// Loop only.
func (s *SyncService) requireJoined(connID, roomID string) (domain.Identity, error) {
	identity, ok := s.registry.Identity(connID)
	if !ok {
		return domain.Identity{}, domain.ErrUnknownConnection
	}
	if !s.registry.Joined(connID, roomID) {
		return domain.Identity{}, fmt.Errorf("%w: %s", domain.ErrNotMember, roomID)
	}
	return identity, nil
}
