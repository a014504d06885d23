package hub

import (
	"sort"

	"github.com/weiawesome/huddle-sync/internal/delivery"
	"github.com/weiawesome/huddle-sync/internal/domain"
)

// Conn is a live transport connection.
type Conn interface {
	ID() string
	// Send enqueues an encoded frame without blocking.
	Send(data []byte) error
	Close()
}

// Departure describes a connection removed by Unregister.
type Departure struct {
	ConnectionID string
	Identity     domain.Identity
	Rooms        []string
	// Remaining is the number of live connections the user still has.
	Remaining int
}

type connection struct {
	conn       Conn
	identity   domain.Identity
	rooms      map[string]struct{}
	activeRoom string
}

// Registry tracks live connections. It has no locks: it must only be used from
// the sync service event loop.
type Registry struct {
	conns  map[string]*connection
	byUser map[string]map[string]struct{}
	sink   delivery.Sink
}

// NewRegistry creates an empty registry reporting failed fan-outs to sink.
func NewRegistry(sink delivery.Sink) *Registry {
	if sink == nil {
		sink = &delivery.MemorySink{}
	}
	return &Registry{
		conns:  make(map[string]*connection),
		byUser: make(map[string]map[string]struct{}),
		sink:   sink,
	}
}

// Register binds identity to conn and returns the user's live connection
// count. Registering an id that is already live changes nothing and reports
// added as false.
func (r *Registry) Register(conn Conn, identity domain.Identity) (count int, added bool, err error) {
	if identity.UserID == "" {
		return 0, false, domain.ErrAuthentication
	}
	if existing, ok := r.conns[conn.ID()]; ok {
		return len(r.byUser[existing.identity.UserID]), false, nil
	}

	r.conns[conn.ID()] = &connection{
		conn:     conn,
		identity: identity,
		rooms:    make(map[string]struct{}),
	}
	set, ok := r.byUser[identity.UserID]
	if !ok {
		set = make(map[string]struct{})
		r.byUser[identity.UserID] = set
	}
	set[conn.ID()] = struct{}{}
	return len(set), true, nil
}

// Unregister removes a connection and closes its transport. The second result
// is false when the id was never registered or is already gone.
func (r *Registry) Unregister(connID string) (Departure, bool) {
	c, ok := r.conns[connID]
	if !ok {
		return Departure{}, false
	}
	delete(r.conns, connID)
	c.conn.Close()

	userID := c.identity.UserID
	set := r.byUser[userID]
	delete(set, connID)
	if len(set) == 0 {
		delete(r.byUser, userID)
	}

	return Departure{
		ConnectionID: connID,
		Identity:     c.identity,
		Rooms:        sortedKeys(c.rooms),
		Remaining:    len(set),
	}, true
}

// Identity returns the identity bound to a connection.
func (r *Registry) Identity(connID string) (domain.Identity, bool) {
	c, ok := r.conns[connID]
	if !ok {
		return domain.Identity{}, false
	}
	return c.identity, true
}

// MarkJoined records that a connection joined a room.
func (r *Registry) MarkJoined(connID, roomID string) bool {
	c, ok := r.conns[connID]
	if !ok {
		return false
	}
	c.rooms[roomID] = struct{}{}
	return true
}

// MarkLeft records that a connection left a room and clears it as the active
// room. It reports whether the connection had joined it.
func (r *Registry) MarkLeft(connID, roomID string) bool {
	c, ok := r.conns[connID]
	if !ok {
		return false
	}
	_, joined := c.rooms[roomID]
	delete(c.rooms, roomID)
	if c.activeRoom == roomID {
		c.activeRoom = ""
	}
	return joined
}

// Joined reports whether the connection has joined roomID.
func (r *Registry) Joined(connID, roomID string) bool {
	c, ok := r.conns[connID]
	if !ok {
		return false
	}
	_, joined := c.rooms[roomID]
	return joined
}

// UserInRoom reports whether any of the user's connections joined roomID.
func (r *Registry) UserInRoom(userID, roomID string) bool {
	for id := range r.byUser[userID] {
		if _, ok := r.conns[id].rooms[roomID]; ok {
			return true
		}
	}
	return false
}

// SetActiveRoom changes the room a connection is viewing and returns the
// previous one. An empty roomID clears it.
func (r *Registry) SetActiveRoom(connID, roomID string) (string, bool) {
	c, ok := r.conns[connID]
	if !ok {
		return "", false
	}
	prev := c.activeRoom
	c.activeRoom = roomID
	return prev, true
}

// Viewers returns the users with at least one connection viewing roomID.
func (r *Registry) Viewers(roomID string) []string {
	seen := make(map[string]struct{})
	for _, c := range r.conns {
		if roomID != "" && c.activeRoom == roomID {
			seen[c.identity.UserID] = struct{}{}
		}
	}
	return sortedKeys(seen)
}

// ConnectionCount is the number of live connections bound to userID.
func (r *Registry) ConnectionCount(userID string) int {
	return len(r.byUser[userID])
}

// IsOnline reports whether the user has a live connection.
func (r *Registry) IsOnline(userID string) bool {
	return len(r.byUser[userID]) > 0
}

// OnlineUsers returns every user with a live connection.
func (r *Registry) OnlineUsers() []string {
	return sortedKeys(r.byUser)
}

// Len is the number of live connections.
func (r *Registry) Len() int {
	return len(r.conns)
}

// SendToConnection delivers msg to a single connection.
func (r *Registry) SendToConnection(connID string, msg domain.Outbound) delivery.Report {
	report := delivery.NewReport(msg.MessageType(), connID)
	c, ok := r.conns[connID]
	if !ok {
		return report
	}
	r.deliver(&report, msg, []*connection{c})
	return report
}

// SendToUser delivers msg to every connection of userID.
func (r *Registry) SendToUser(userID string, msg domain.Outbound) delivery.Report {
	report := delivery.NewReport(msg.MessageType(), userID)
	r.deliver(&report, msg, r.userConns(userID, ""))
	return report
}

// Broadcast delivers msg to every connection of every member, skipping
// excludeConnID.
func (r *Registry) Broadcast(roomID string, members []string, msg domain.Outbound, excludeConnID string) delivery.Report {
	report := delivery.NewReport(msg.MessageType(), roomID)
	var targets []*connection
	for _, userID := range members {
		targets = append(targets, r.userConns(userID, excludeConnID)...)
	}
	r.deliver(&report, msg, targets)
	return report
}

// BroadcastAll delivers msg to every live connection.
func (r *Registry) BroadcastAll(msg domain.Outbound) delivery.Report {
	report := delivery.NewReport(msg.MessageType(), "*")
	targets := make([]*connection, 0, len(r.conns))
	for _, c := range r.conns {
		targets = append(targets, c)
	}
	r.deliver(&report, msg, targets)
	return report
}

// CloseAll closes every live connection's transport.
func (r *Registry) CloseAll() {
	for _, c := range r.conns {
		c.conn.Close()
	}
}

func (r *Registry) userConns(userID, exclude string) []*connection {
	ids := sortedKeys(r.byUser[userID])
	out := make([]*connection, 0, len(ids))
	for _, id := range ids {
		if id != exclude {
			out = append(out, r.conns[id])
		}
	}
	return out
}

func (r *Registry) deliver(report *delivery.Report, msg domain.Outbound, targets []*connection) {
	if len(targets) == 0 {
		return
	}
	data, err := domain.Encode(msg)
	for _, c := range targets {
		sendErr := err
		if sendErr == nil {
			sendErr = c.conn.Send(data)
		}
		report.Record(c.conn.ID(), c.identity.UserID, sendErr)
	}
	if !report.OK() {
		r.sink.Record(*report)
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
