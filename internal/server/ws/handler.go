// Package ws adapts websocket connections to the hub. Each connection gets
// a read loop (socket -> hub inbox) and a write pump (hub outbox -> socket);
// all protocol logic lives in the hub.
package ws

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/iudanet/mapsync/internal/server/hub"
	"github.com/iudanet/mapsync/pkg/api"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1 << 20
)

// Handler upgrades HTTP requests to websocket connections and bridges them
// to the hub.
type Handler struct {
	hub      *hub.Hub
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

func NewHandler(h *hub.Hub, logger *slog.Logger) *Handler {
	return &Handler{
		hub:    h,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The map client is a browser app served from another origin.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err, "remote", r.RemoteAddr)
		return
	}

	client := hub.NewClient()
	h.hub.Register(client)

	go h.writePump(conn, client)
	h.readLoop(conn, client)
}

// readLoop decodes frames off the socket and delivers them to the hub. It
// owns the connection's registration: returning unregisters the client.
func (h *Handler) readLoop(conn *websocket.Conn, client *hub.Client) {
	defer h.hub.Unregister(client.ID)

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("websocket read error", "error", err, "client_id", client.ID)
			}
			return
		}

		var env api.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			h.logger.Warn("malformed frame", "error", err, "client_id", client.ID)
			continue
		}
		h.hub.Deliver(client.ID, env)
	}
}

// writePump drains the client outbox into the socket and keeps the
// connection alive with pings. It exits when the hub closes the client or a
// write fails; closing the socket also unblocks the read loop.
func (h *Handler) writePump(conn *websocket.Conn, client *hub.Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case <-client.Done():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return

		case env := <-client.Outbox():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(env); err != nil {
				return
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
