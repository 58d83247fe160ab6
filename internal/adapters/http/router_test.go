package http_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	router "github.com/dkeye/Huddle/internal/adapters/http"
	"github.com/dkeye/Huddle/internal/app"
	"github.com/dkeye/Huddle/internal/app/orch"
	"github.com/dkeye/Huddle/internal/config"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/dkeye/Huddle/internal/protocol"
)

func testConfig() *config.Config {
	return &config.Config{
		Mode:               "test",
		Port:               0,
		StaticPath:         "./does-not-exist",
		ReadLimit:          1 << 20,
		PingPeriod:         54 * time.Second,
		PongWait:           60 * time.Second,
		WriteWait:          time.Second,
		SendBuffer:         16,
		Secret:             "test-secret",
		GracePeriod:        10 * time.Second,
		RoomCodeLength:     6,
		RequireMediaMeta:   true,
		BackpressurePolicy: "kick",
		RateLimit:          1000,
		RateBurst:          1000,
	}
}

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := testConfig()

	ids := app.NewIDAllocator(cfg.RoomCodeLength)
	rooms := app.NewRoomManager(ids, app.WithGracePeriod(cfg.GracePeriod))
	o := &orch.Orchestrator{
		Registry:         app.NewRegistry(),
		Rooms:            rooms,
		IDs:              ids,
		Policy:           app.PolicyByName(cfg.BackpressurePolicy),
		RequireMediaMeta: cfg.RequireMediaMeta,
	}

	ctx, cancel := context.WithCancel(context.Background())
	srv := httptest.NewServer(router.SetupRouter(ctx, cfg, o))
	t.Cleanup(func() {
		cancel()
		srv.Close()
		rooms.StopAll()
	})
	return srv
}

type client struct {
	t    *testing.T
	conn *websocket.Conn
}

func dial(t *testing.T, srv *httptest.Server) *client {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return &client{t: t, conn: conn}
}

func (c *client) send(t protocol.Type, payload any) {
	c.t.Helper()
	b, err := protocol.Encode(t, payload)
	require.NoError(c.t, err)
	require.NoError(c.t, c.conn.WriteMessage(websocket.TextMessage, b))
}

func (c *client) read() (int, []byte) {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	mt, data, err := c.conn.ReadMessage()
	require.NoError(c.t, err)
	return mt, data
}

func (c *client) expect(want protocol.Type, into any) {
	c.t.Helper()
	mt, data := c.read()
	require.Equal(c.t, websocket.TextMessage, mt)
	var env protocol.Envelope
	require.NoError(c.t, json.Unmarshal(data, &env))
	require.Equal(c.t, want, env.Type, "payload: %s", env.Payload)
	if into != nil {
		require.NoError(c.t, json.Unmarshal(env.Payload, into))
	}
}

func TestRelayOverWebsocket(t *testing.T) {
	srv := newServer(t)
	alice := dial(t, srv)
	bob := dial(t, srv)

	alice.send(protocol.TypeCreateRoom, map[string]any{"capacity": 2, "displayName": "alice"})
	var created protocol.RoomCreatedPayload
	alice.expect(protocol.TypeRoomCreated, &created)
	assert.Equal(t, domain.RoleAdmin, created.Role)

	bob.send(protocol.TypeJoinRoom, map[string]any{"roomId": strings.ToLower(string(created.RoomID)), "username": "bob"})
	var joined protocol.JoinedRoomPayload
	bob.expect(protocol.TypeJoinedRoom, &joined)
	assert.Equal(t, created.RoomID, joined.RoomID)
	assert.Equal(t, domain.RoleUser, joined.Role)

	alice.send(protocol.TypeSendMessage, map[string]any{"message": "hi bob", "replyTo": nil})
	var msg protocol.MessagePayload
	bob.expect(protocol.TypeMessage, &msg)
	assert.Equal(t, "hi bob", msg.Message)
	assert.Equal(t, created.MemberID, msg.SenderID)
	assert.Equal(t, "alice", msg.SenderName)

	alice.send(protocol.TypeMediaMeta, map[string]any{"fileName": "note.txt", "fileType": "text/plain"})
	require.NoError(t, alice.conn.WriteMessage(websocket.BinaryMessage, []byte("hello there")))
	var meta protocol.MediaMetaPayload
	bob.expect(protocol.TypeMediaMeta, &meta)
	assert.Equal(t, "note.txt", meta.FileName)
	mt, data := bob.read()
	assert.Equal(t, websocket.BinaryMessage, mt)
	assert.Equal(t, []byte("hello there"), data)

	// a binary frame with no announcement is rejected back to the sender
	require.NoError(t, bob.conn.WriteMessage(websocket.BinaryMessage, []byte("stray")))
	var perr protocol.ErrorPayload
	bob.expect(protocol.TypeError, &perr)
	assert.Equal(t, domain.KindNoPendingMetadata, perr.Kind)

	alice.send(protocol.TypePing, nil)
	alice.expect(protocol.TypePong, nil)

	bob.send(protocol.TypeWhoAmI, nil)
	var who protocol.WhoAmIPayload
	bob.expect(protocol.TypeWhoAmI, &who)
	assert.Equal(t, joined.MemberID, who.MemberID)
}

func TestErrorsGoToSenderOnly(t *testing.T) {
	srv := newServer(t)
	c := dial(t, srv)

	c.send(protocol.TypeJoinRoom, map[string]any{"roomId": "ZZZZZZ"})
	var perr protocol.ErrorPayload
	c.expect(protocol.TypeError, &perr)
	assert.Equal(t, domain.KindRoomNotFound, perr.Kind)

	require.NoError(t, c.conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"NOPE"}`)))
	c.expect(protocol.TypeError, &perr)
	assert.Equal(t, domain.KindUnknownEnvelopeType, perr.Kind)

	c.send(protocol.TypeCreateRoom, map[string]any{"capacity": 42})
	c.expect(protocol.TypeError, &perr)
	assert.Equal(t, domain.KindInvalidCapacity, perr.Kind)

	c.send(protocol.TypeSendMessage, map[string]any{"message": "anyone?"})
	c.expect(protocol.TypeError, &perr)
	assert.Equal(t, domain.KindNotInRoom, perr.Kind)
}

func TestTerminateClosesEveryone(t *testing.T) {
	srv := newServer(t)
	admin := dial(t, srv)
	guest := dial(t, srv)

	admin.send(protocol.TypeCreateRoom, map[string]any{"capacity": 3})
	var created protocol.RoomCreatedPayload
	admin.expect(protocol.TypeRoomCreated, &created)
	guest.send(protocol.TypeJoinRoom, map[string]any{"roomId": created.RoomID})
	guest.expect(protocol.TypeJoinedRoom, nil)

	guest.send(protocol.TypeTerminate, nil)
	var perr protocol.ErrorPayload
	guest.expect(protocol.TypeError, &perr)
	assert.Equal(t, domain.KindNotAdmin, perr.Kind)

	admin.send(protocol.TypeTerminate, nil)
	for _, c := range []*client{admin, guest} {
		require.NoError(t, c.conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		_, _, err := c.conn.ReadMessage()
		require.Error(t, err)
		assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
	}

	resp, err := http.Get(srv.URL + "/api/rooms/" + string(created.RoomID))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRoomInfoAndHealth(t *testing.T) {
	srv := newServer(t)
	c := dial(t, srv)
	c.send(protocol.TypeCreateRoom, map[string]any{"maxSize": 2, "username": "host"})
	var created protocol.RoomCreatedPayload
	c.expect(protocol.TypeRoomCreated, &created)

	resp, err := http.Get(srv.URL + "/api/rooms/" + strings.ToLower(string(created.RoomID)))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var info struct {
		RoomID      domain.RoomID `json:"roomId"`
		Capacity    int           `json:"capacity"`
		MemberCount int           `json:"memberCount"`
		Full        bool          `json:"full"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&info))
	assert.Equal(t, created.RoomID, info.RoomID)
	assert.Equal(t, 2, info.Capacity)
	assert.Equal(t, 1, info.MemberCount)
	assert.False(t, info.Full)

	health, err := http.Get(srv.URL + "/api/healthz")
	require.NoError(t, err)
	defer health.Body.Close()
	var stats orch.Stats
	require.NoError(t, json.NewDecoder(health.Body).Decode(&stats))
	assert.Equal(t, orch.Stats{Rooms: 1, Members: 1}, stats)
}
