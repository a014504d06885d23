package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiawesome/huddle-sync/internal/domain"
	"github.com/weiawesome/huddle-sync/internal/hub"
	"github.com/weiawesome/huddle-sync/internal/moderation"
	"github.com/weiawesome/huddle-sync/internal/repository"
	"github.com/weiawesome/huddle-sync/internal/service"
	"github.com/weiawesome/huddle-sync/pkg/jwt"
)

const internalKey = "s3cret"

type staticCatalog map[string][]string

func (c staticCatalog) GetRoom(_ context.Context, id string) (*domain.RoomRecord, error) {
	if _, ok := c[id]; !ok {
		return nil, repository.ErrRoomNotFound
	}
	return &domain.RoomRecord{ID: id, Kind: domain.RoomKindChannel}, nil
}

func (c staticCatalog) ListRooms(context.Context) ([]domain.RoomRecord, error) {
	var out []domain.RoomRecord
	for id := range c {
		out = append(out, domain.RoomRecord{ID: id, Kind: domain.RoomKindChannel})
	}
	return out, nil
}

func (c staticCatalog) FetchRoomMembership(_ context.Context, roomID string) ([]string, error) {
	return c[roomID], nil
}

type noRoles struct{}

func (noRoles) ResolveRoles(context.Context, string) ([]string, error) { return nil, nil }

type testServer struct {
	srv *httptest.Server
	jwt *jwt.Manager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	manager, err := jwt.NewManager("test-secret", "huddle", time.Hour)
	require.NoError(t, err)

	svc := service.NewSyncService(service.Options{
		Catalog:    staticCatalog{"general": {"u1", "u2"}},
		Authorizer: moderation.NewGate(noRoles{}),
		Logger:     zerolog.Nop(),
	})
	require.NoError(t, svc.Start(context.Background()))

	ws := NewWSHandler(svc, manager, hub.DefaultConfig(), nil)
	router := NewRouter(ws, NewHandler(svc), manager, internalKey, zerolog.Nop())

	srv := httptest.NewServer(router)
	t.Cleanup(func() {
		_ = svc.Stop(context.Background())
		srv.Close()
	})
	return &testServer{srv: srv, jwt: manager}
}

func (s *testServer) token(t *testing.T, userID string) string {
	t.Helper()
	tok, err := s.jwt.GenerateAccessToken(userID, "name-"+userID, nil)
	require.NoError(t, err)
	return tok
}

func (s *testServer) dial(t *testing.T, userID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(s.srv.URL, "http") + "/ws?token=" + s.token(t, userID)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func (s *testServer) get(t *testing.T, path, userID string) (int, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, s.srv.URL+path, nil)
	require.NoError(t, err)
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+s.token(t, userID))
	}
	return do(t, req)
}

func do(t *testing.T, req *http.Request) (int, map[string]any) {
	t.Helper()
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

// readUntil reads frames until one of type typ arrives.
func readUntil(t *testing.T, conn *websocket.Conn, typ domain.MsgType) map[string]any {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		require.NoError(t, conn.SetReadDeadline(deadline))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err, "waiting for %s", typ)
		var f map[string]any
		require.NoError(t, json.Unmarshal(data, &f))
		if f["type"] == string(typ) {
			return f
		}
	}
}

func send(t *testing.T, conn *websocket.Conn, payload string) {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(payload)))
}

func TestWebSocket_RejectsWithoutValidToken(t *testing.T) {
	s := newTestServer(t)
	base := "ws" + strings.TrimPrefix(s.srv.URL, "http") + "/ws"

	_, resp, err := websocket.DefaultDialer.Dial(base, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(base+"?token=garbage", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWebSocket_HeaderToken(t *testing.T) {
	s := newTestServer(t)
	url := "ws" + strings.TrimPrefix(s.srv.URL, "http") + "/ws"
	header := http.Header{"Authorization": []string{"Bearer " + s.token(t, "u1")}}

	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	defer conn.Close()

	connected := readUntil(t, conn, domain.MsgTypeConnected)
	assert.Equal(t, "u1", connected["user_id"])
	assert.NotEmpty(t, connected["connection_id"])
}

func TestWebSocket_SessionFlow(t *testing.T) {
	s := newTestServer(t)
	conn := s.dial(t, "u1")
	readUntil(t, conn, domain.MsgTypeConnected)

	send(t, conn, `{"type":"join","room_id":"listen:party"}`)
	roster := readUntil(t, conn, domain.MsgTypeRosterUpdated)
	assert.Equal(t, []any{"u1"}, roster["members"])
	readUntil(t, conn, domain.MsgTypePlaybackStateChanged)

	send(t, conn, `{"type":"play","room_id":"listen:party","media":{"title":"Song A","duration":200}}`)
	played := readUntil(t, conn, domain.MsgTypePlaybackStateChanged)
	assert.Equal(t, true, played["state"].(map[string]any)["is_playing"])
	assert.NotEmpty(t, played["server_time"])

	send(t, conn, `not json`)
	assert.Equal(t, domain.ErrCodeBadRequest, readUntil(t, conn, domain.MsgTypeError)["code"])

	send(t, conn, `{"type":"dance"}`)
	assert.Equal(t, domain.ErrCodeUnknownType, readUntil(t, conn, domain.MsgTypeError)["code"])

	send(t, conn, `{"type":"ping"}`)
	readUntil(t, conn, domain.MsgTypePong)

	status, body := s.get(t, "/api/v1/rooms/listen:party/playback", "u1")
	assert.Equal(t, http.StatusOK, status)
	data := body["data"].(map[string]any)
	assert.Equal(t, string(domain.PlaybackPlaying), data["status"])
}

func TestWebSocket_MuteDeniedOnlyToRequester(t *testing.T) {
	s := newTestServer(t)
	a := s.dial(t, "u1")
	b := s.dial(t, "u2")
	readUntil(t, a, domain.MsgTypeConnected)
	readUntil(t, b, domain.MsgTypeConnected)

	send(t, a, `{"type":"join","room_id":"general"}`)
	readUntil(t, a, domain.MsgTypeRosterUpdated)
	send(t, b, `{"type":"join","room_id":"general"}`)
	readUntil(t, b, domain.MsgTypeRosterUpdated)

	// A requester id in the payload is ignored.
	send(t, a, `{"type":"mute_request","room_id":"general","target_user_id":"u2","requester_id":"u2"}`)
	assert.Equal(t, domain.ErrCodeForbidden, readUntil(t, a, domain.MsgTypeError)["code"])
}

func TestHTTP_RequiresAuth(t *testing.T) {
	s := newTestServer(t)

	status, body := s.get(t, "/api/v1/users/me/unread", "")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, false, body["success"])
}

func TestHTTP_MembersAndPresence(t *testing.T) {
	s := newTestServer(t)
	conn := s.dial(t, "u1")
	readUntil(t, conn, domain.MsgTypeConnected)
	send(t, conn, `{"type":"join","room_id":"general"}`)
	readUntil(t, conn, domain.MsgTypeRosterUpdated)

	status, body := s.get(t, "/api/v1/rooms/general/members", "u2")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []any{"u1"}, body["data"].(map[string]any)["members"])

	status, _ = s.get(t, "/api/v1/rooms/missing/members", "u2")
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = s.get(t, "/api/v1/rooms/general/playback", "u2")
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = s.get(t, "/api/v1/users/u1/presence", "u2")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["data"].(map[string]any)["online"])
}

func TestHTTP_RecordMessage(t *testing.T) {
	s := newTestServer(t)
	conn := s.dial(t, "u2")
	readUntil(t, conn, domain.MsgTypeConnected)

	post := func(key, payload string) int {
		req, err := http.NewRequest(http.MethodPost, s.srv.URL+"/internal/v1/messages", bytes.NewBufferString(payload))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")
		if key != "" {
			req.Header.Set("X-Internal-Key", key)
		}
		status, _ := do(t, req)
		return status
	}

	assert.Equal(t, http.StatusForbidden, post("", `{"room_id":"general","user_id":"u1"}`))
	assert.Equal(t, http.StatusForbidden, post("wrong", `{"room_id":"general","user_id":"u1"}`))
	assert.Equal(t, http.StatusBadRequest, post(internalKey, `{"room_id":"general"}`))
	assert.Equal(t, http.StatusAccepted, post(internalKey, `{"message_id":"m1","room_id":"general","user_id":"u1"}`))

	pushed := readUntil(t, conn, domain.MsgTypeUnreadCountChanged)
	assert.Equal(t, 1.0, pushed["count"])

	// A redelivered message id is accepted but not counted again.
	assert.Equal(t, http.StatusAccepted, post(internalKey, `{"message_id":"m1","room_id":"general","user_id":"u1"}`))

	status, body := s.get(t, "/api/v1/users/me/unread", "u2")
	require.Equal(t, http.StatusOK, status)
	counts := body["data"].(map[string]any)["counts"].(map[string]any)
	assert.Equal(t, 1.0, counts["general"])
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	status, body := s.get(t, "/health", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["data"].(map[string]any)["status"])
}
