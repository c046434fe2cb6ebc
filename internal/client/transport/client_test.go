package transport

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/mapsync/pkg/api"
)

var upgrader = websocket.Upgrader{}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestServer runs a websocket endpoint that feeds every inbound frame to
// handle. The handler owns the reply, if any.
func newTestServer(t *testing.T, handle func(conn *websocket.Conn, env api.Envelope)) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer func() { _ = conn.Close() }()
		for {
			var env api.Envelope
			if err := conn.ReadJSON(&env); err != nil {
				return
			}
			handle(conn, env)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func connectedClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()

	c := New(wsURL(srv), discardLogger())
	require.NoError(t, c.Connect(context.Background()))
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// echo answers every correlated frame with its own payload.
func echo(conn *websocket.Conn, env api.Envelope) {
	if env.ID != "" {
		_ = conn.WriteJSON(env)
	}
}

func TestClient_Request_Success(t *testing.T) {
	srv := newTestServer(t, func(conn *websocket.Conn, env api.Envelope) {
		reply, _ := api.NewEnvelope(env.Event, env.ID, api.SuccessResponse{Success: true})
		_ = conn.WriteJSON(reply)
	})
	c := connectedClient(t, srv)

	raw, err := c.Request(context.Background(), "join", api.JoinRequest{Username: "alice"})
	require.NoError(t, err)

	var resp api.SuccessResponse
	require.NoError(t, json.Unmarshal(raw, &resp))
	assert.True(t, resp.Success)
}

func TestClient_Request_InBandError(t *testing.T) {
	srv := newTestServer(t, func(conn *websocket.Conn, env api.Envelope) {
		reply, _ := api.NewEnvelope(env.Event, env.ID, api.ErrorResponse{Error: "Layer name is required"})
		_ = conn.WriteJSON(reply)
	})
	c := connectedClient(t, srv)

	_, err := c.Request(context.Background(), "create-layer", api.LayerInput{})
	require.Error(t, err)
	assert.Equal(t, "create-layer: Layer name is required", err.Error())
}

func TestClient_Request_ContextTimeout(t *testing.T) {
	srv := newTestServer(t, func(conn *websocket.Conn, env api.Envelope) {
		// Never reply.
	})
	c := connectedClient(t, srv)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := c.Request(ctx, "request-initial-data", struct{}{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClient_Offline(t *testing.T) {
	c := New("ws://127.0.0.1:0/ws", discardLogger())

	assert.False(t, c.Connected())

	_, err := c.Request(context.Background(), "join", nil)
	assert.ErrorIs(t, err, ErrNotConnected)

	assert.ErrorIs(t, c.Emit("join", nil), ErrNotConnected)
	assert.NoError(t, c.Close(), "closing an unconnected client is a no-op")
}

func TestClient_Connect_Twice(t *testing.T) {
	srv := newTestServer(t, echo)
	c := connectedClient(t, srv)

	err := c.Connect(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already connected")
}

func TestClient_On_DispatchesPushEvents(t *testing.T) {
	srv := newTestServer(t, func(conn *websocket.Conn, env api.Envelope) {
		// Any inbound frame triggers an uncorrelated push.
		push, _ := api.NewEnvelope("layer-deleted", "", int64(42))
		_ = conn.WriteJSON(push)
	})
	c := connectedClient(t, srv)

	got := make(chan json.RawMessage, 1)
	c.On("layer-deleted", func(data json.RawMessage) {
		got <- data
	})

	require.NoError(t, c.Emit("poke", nil))

	select {
	case data := <-got:
		var id int64
		require.NoError(t, json.Unmarshal(data, &id))
		assert.Equal(t, int64(42), id)
	case <-time.After(2 * time.Second):
		t.Fatal("push handler was not invoked")
	}
}

func TestClient_Teardown_FailsPendingRequests(t *testing.T) {
	srv := newTestServer(t, func(conn *websocket.Conn, env api.Envelope) {
		// Drop the connection instead of replying.
		_ = conn.Close()
	})
	c := connectedClient(t, srv)

	disconnected := make(chan error, 1)
	c.OnDisconnect(func(err error) { disconnected <- err })

	_, err := c.Request(context.Background(), "request-initial-data", struct{}{})
	assert.ErrorIs(t, err, ErrNotConnected)

	select {
	case cause := <-disconnected:
		assert.Error(t, cause)
	case <-time.After(2 * time.Second):
		t.Fatal("disconnect callback was not invoked")
	}

	assert.False(t, c.Connected())
}

func TestClient_Reconnect(t *testing.T) {
	srv := newTestServer(t, echo)
	c := connectedClient(t, srv)

	require.NoError(t, c.Close())

	// The read loop needs a moment to notice and mark the client offline.
	require.Eventually(t, func() bool { return !c.Connected() },
		2*time.Second, 10*time.Millisecond)

	require.NoError(t, c.Connect(context.Background()))
	assert.True(t, c.Connected())

	_, err := c.Request(context.Background(), "join", api.JoinRequest{Username: "alice"})
	assert.NoError(t, err)
}
