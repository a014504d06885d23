package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/weiawesome/huddle-sync/internal/delivery"
	"github.com/weiawesome/huddle-sync/internal/domain"
	"github.com/weiawesome/huddle-sync/internal/moderation"
	"github.com/weiawesome/huddle-sync/internal/repository"
)

type frame map[string]any

type fakeConn struct {
	id     string
	mu     sync.Mutex
	frames []frame
	fail   error
	closed bool
}

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("closed")
	}
	if c.fail != nil {
		return c.fail
	}
	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	c.frames = append(c.frames, f)
	return nil
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConn) ofType(typ domain.MsgType) []frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []frame
	for _, f := range c.frames {
		if f["type"] == string(typ) {
			out = append(out, f)
		}
	}
	return out
}

func (c *fakeConn) last(t *testing.T, typ domain.MsgType) frame {
	t.Helper()
	frames := c.ofType(typ)
	require.NotEmpty(t, frames, "no %s frame on %s", typ, c.id)
	return frames[len(frames)-1]
}

func (c *fakeConn) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = nil
}

func stringList(f frame, key string) []string {
	raw, _ := f[key].([]any)
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		out = append(out, v.(string))
	}
	return out
}

type fakeCatalog struct {
	mu      sync.Mutex
	rooms   map[string]domain.RoomKind
	members map[string][]string
	lookups int
	err     error
}

func (c *fakeCatalog) GetRoom(_ context.Context, id string) (*domain.RoomRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lookups++
	if c.err != nil {
		return nil, c.err
	}
	kind, ok := c.rooms[id]
	if !ok {
		return nil, repository.ErrRoomNotFound
	}
	return &domain.RoomRecord{ID: id, Kind: kind}, nil
}

func (c *fakeCatalog) ListRooms(context.Context) ([]domain.RoomRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	var out []domain.RoomRecord
	for id, kind := range c.rooms {
		out = append(out, domain.RoomRecord{ID: id, Kind: kind})
	}
	return out, nil
}

func (c *fakeCatalog) FetchRoomMembership(_ context.Context, roomID string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	return c.members[roomID], nil
}

type fakeRoles map[string][]string

func (r fakeRoles) ResolveRoles(_ context.Context, userID string) ([]string, error) {
	if userID == "broken" {
		return nil, errors.New("lookup failed")
	}
	return r[userID], nil
}

type unreadWrite struct {
	userID, roomID string
	count          int
}

type fakePersister struct {
	mu      sync.Mutex
	saved   map[string]domain.PlaybackState
	deleted []string
	unread  []unreadWrite
}

func (p *fakePersister) SavePlayback(roomID string, state domain.PlaybackState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.saved == nil {
		p.saved = make(map[string]domain.PlaybackState)
	}
	p.saved[roomID] = state
}

func (p *fakePersister) DeletePlayback(roomID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deleted = append(p.deleted, roomID)
}

func (p *fakePersister) PutUnread(userID, roomID string, count int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.unread = append(p.unread, unreadWrite{userID, roomID, count})
}

type presenceCall struct {
	userID string
	online bool
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls []presenceCall
}

func (n *fakeNotifier) PresenceChanged(userID string, online bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, presenceCall{userID, online})
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type harness struct {
	svc       *SyncService
	catalog   *fakeCatalog
	persister *fakePersister
	notifier  *fakeNotifier
	sink      *delivery.MemorySink
	clock     *fakeClock
}

var testRoles = fakeRoles{
	"owner":  {"owner"},
	"admin":  {"admin"},
	"mod":    {"moderator"},
	"member": {"member"},
	"x":      {"member"},
	"y":      {"member"},
	"z":      {"member"},
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		catalog: &fakeCatalog{
			rooms: map[string]domain.RoomKind{
				"general": domain.RoomKindChannel,
				"random":  domain.RoomKindChannel,
				"dm:x:y":  domain.RoomKindDirect,
			},
			members: map[string][]string{
				"general": {"x", "y", "z"},
			},
		},
		persister: &fakePersister{},
		notifier:  &fakeNotifier{},
		sink:      &delivery.MemorySink{},
		clock:     &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)},
	}
	h.svc = NewSyncService(Options{
		Catalog:    h.catalog,
		Authorizer: moderation.NewGate(testRoles),
		Persister:  h.persister,
		Notifier:   h.notifier,
		Sink:       h.sink,
		Now:        h.clock.Now,
		Logger:     zerolog.Nop(),
	})
	require.NoError(t, h.svc.Start(context.Background()))
	t.Cleanup(func() { _ = h.svc.Stop(context.Background()) })
	return h
}

func (h *harness) connect(t *testing.T, connID, userID string) *fakeConn {
	t.Helper()
	conn := &fakeConn{id: connID}
	require.NoError(t, h.svc.Connect(context.Background(), conn, domain.Identity{UserID: userID, Username: "name-" + userID}))
	return conn
}
