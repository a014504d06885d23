package hub

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiawesome/huddle-sync/internal/delivery"
	"github.com/weiawesome/huddle-sync/internal/domain"
)

var (
	alice = domain.Identity{UserID: "u-alice", Username: "alice"}
	bob   = domain.Identity{UserID: "u-bob", Username: "bob"}
)

func TestRegistry_RegisterRequiresIdentity(t *testing.T) {
	r := NewRegistry(nil)
	_, _, err := r.Register(newFakeConn("c-1"), domain.Identity{})
	assert.ErrorIs(t, err, domain.ErrAuthentication)
	assert.Equal(t, 0, r.Len())
}

func TestRegistry_ConnectionCounts(t *testing.T) {
	r := NewRegistry(nil)

	n, added, err := r.Register(newFakeConn("c-1"), alice)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, added)

	n, added, err = r.Register(newFakeConn("c-2"), alice)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.True(t, added)

	// Same id again is a no-op.
	n, added, err = r.Register(newFakeConn("c-2"), alice)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.False(t, added)

	assert.True(t, r.IsOnline(alice.UserID))
	assert.Equal(t, []string{alice.UserID}, r.OnlineUsers())
}

func TestRegistry_UnregisterIdempotent(t *testing.T) {
	r := NewRegistry(nil)
	conn := newFakeConn("c-1")
	_, _, _ = r.Register(conn, alice)
	r.MarkJoined("c-1", "general")
	r.MarkJoined("c-1", "random")

	dep, ok := r.Unregister("c-1")
	require.True(t, ok)
	assert.True(t, conn.closed)
	assert.Equal(t, alice, dep.Identity)
	assert.Equal(t, []string{"general", "random"}, dep.Rooms)
	assert.Equal(t, 0, dep.Remaining)
	assert.False(t, r.IsOnline(alice.UserID))

	_, ok = r.Unregister("c-1")
	assert.False(t, ok)
	_, ok = r.Unregister("never-registered")
	assert.False(t, ok)
}

func TestRegistry_BroadcastReachesEveryDevice(t *testing.T) {
	r := NewRegistry(nil)
	laptop, phone, other := newFakeConn("c-laptop"), newFakeConn("c-phone"), newFakeConn("c-bob")
	_, _, _ = r.Register(laptop, alice)
	_, _, _ = r.Register(phone, alice)
	_, _, _ = r.Register(other, bob)

	report := r.Broadcast("general", []string{alice.UserID}, domain.NewRosterUpdatedMessage("general", []string{alice.UserID}), "")
	assert.Equal(t, 2, report.Attempted)
	assert.True(t, report.OK())
	assert.Len(t, laptop.frames, 1)
	assert.Len(t, phone.frames, 1)
	assert.Empty(t, other.frames)
}

func TestRegistry_BroadcastExclude(t *testing.T) {
	r := NewRegistry(nil)
	laptop, phone := newFakeConn("c-laptop"), newFakeConn("c-phone")
	_, _, _ = r.Register(laptop, alice)
	_, _, _ = r.Register(phone, alice)

	report := r.Broadcast("general", []string{alice.UserID}, domain.NewTypingStateChangedMessage("general", alice.UserID, true), "c-laptop")
	assert.Equal(t, 1, report.Attempted)
	assert.Empty(t, laptop.frames)
	assert.Equal(t, []domain.MsgType{domain.MsgTypeTypingStateChanged}, phone.types())
}

func TestRegistry_PartialFailureReported(t *testing.T) {
	sink := &delivery.MemorySink{}
	r := NewRegistry(sink)
	ok1, slow, ok2 := newFakeConn("c-1"), newFakeConn("c-2"), newFakeConn("c-3")
	slow.fail = ErrSendBufferFull
	_, _, _ = r.Register(ok1, alice)
	_, _, _ = r.Register(slow, bob)
	_, _, _ = r.Register(ok2, domain.Identity{UserID: "u-carol"})

	report := r.BroadcastAll(domain.NewPresenceChangedMessage("u-dave", true))
	assert.Equal(t, 3, report.Attempted)
	assert.Equal(t, 1, report.Failed())
	assert.Equal(t, "c-2", report.Failures[0].ConnectionID)
	assert.ErrorIs(t, report.Failures[0].Err, ErrSendBufferFull)

	require.Len(t, sink.Reports(), 1)
	assert.Equal(t, 1, sink.Failed())
	// Remaining recipients still got it.
	assert.Len(t, ok1.frames, 1)
	assert.Len(t, ok2.frames, 1)
}

func TestRegistry_SendOrderPreserved(t *testing.T) {
	r := NewRegistry(nil)
	c := newFakeConn("c-1")
	_, _, _ = r.Register(c, alice)

	r.SendToConnection("c-1", domain.NewRosterUpdatedMessage("general", []string{"a"}))
	r.SendToUser(alice.UserID, domain.NewRosterUpdatedMessage("general", []string{"a", "b"}))
	r.SendToConnection("missing", domain.NewPongMessage())

	require.Len(t, c.frames, 2)
	assert.JSONEq(t, `{"type":"roster_updated","room_id":"general","members":["a"]}`, string(c.frames[0]))
	assert.JSONEq(t, `{"type":"roster_updated","room_id":"general","members":["a","b"]}`, string(c.frames[1]))
}

func TestRegistry_RoomsAndViewers(t *testing.T) {
	r := NewRegistry(nil)
	_, _, _ = r.Register(newFakeConn("c-1"), alice)
	_, _, _ = r.Register(newFakeConn("c-2"), alice)
	_, _, _ = r.Register(newFakeConn("c-3"), bob)

	r.MarkJoined("c-1", "general")
	assert.True(t, r.UserInRoom(alice.UserID, "general"))
	assert.True(t, r.Joined("c-1", "general"))
	assert.False(t, r.Joined("c-2", "general"))

	_, _ = r.SetActiveRoom("c-2", "general")
	_, _ = r.SetActiveRoom("c-3", "general")
	assert.Equal(t, []string{alice.UserID, bob.UserID}, r.Viewers("general"))

	prev, ok := r.SetActiveRoom("c-3", "random")
	require.True(t, ok)
	assert.Equal(t, "general", prev)
	assert.Equal(t, []string{alice.UserID}, r.Viewers("general"))
	assert.Empty(t, r.Viewers(""))

	assert.True(t, r.MarkLeft("c-1", "general"))
	assert.False(t, r.MarkLeft("c-1", "general"))
	assert.False(t, r.UserInRoom(alice.UserID, "general"))
}

func TestRegistry_CloseAll(t *testing.T) {
	r := NewRegistry(nil)
	a, b := newFakeConn("c-1"), newFakeConn("c-2")
	_, _, _ = r.Register(a, alice)
	_, _, _ = r.Register(b, bob)

	r.CloseAll()
	assert.True(t, a.closed)
	assert.True(t, b.closed)
}
