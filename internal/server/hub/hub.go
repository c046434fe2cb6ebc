// Package hub is the coordination gateway: a single goroutine that owns all
// realtime state (presence, edit locks, drawing snapshots) and routes every
// inbound frame to its handler. Because the loop processes one message at a
// time, the component structs need no locking; ordering guarantees come
// from the per-connection FIFO of the websocket transport.
package hub

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/iudanet/mapsync/internal/models"
	"github.com/iudanet/mapsync/internal/server/drawing"
	"github.com/iudanet/mapsync/internal/server/editlock"
	"github.com/iudanet/mapsync/internal/server/presence"
	"github.com/iudanet/mapsync/internal/server/storage"
	"github.com/iudanet/mapsync/pkg/api"
)

type message interface{ isHubMsg() }

type connectMsg struct{ client *Client }

type disconnectMsg struct{ clientID string }

type frameMsg struct {
	clientID string
	env      api.Envelope
}

type shutdownMsg struct{ done chan struct{} }

func (connectMsg) isHubMsg()    {}
func (disconnectMsg) isHubMsg() {}
func (frameMsg) isHubMsg()      {}
func (shutdownMsg) isHubMsg()   {}

// Hub wires inbound frames to the presence registry, edit lock manager,
// drawing relay and persistence, and fans resulting broadcasts out to every
// connection.
type Hub struct {
	inbox    chan message
	clients  map[string]*Client
	registry *presence.Registry
	locks    *editlock.Manager
	relay    *drawing.Relay
	store    storage.Store
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

func New(parent context.Context, store storage.Store, logger *slog.Logger) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:    make(chan message, 256),
		clients:  make(map[string]*Client),
		registry: presence.NewRegistry(),
		locks:    editlock.NewManager(),
		relay:    drawing.NewRelay(),
		store:    store,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}
	go h.loop()
	return h
}

// Register attaches a new connection to the hub.
func (h *Hub) Register(c *Client) { h.enqueue(connectMsg{client: c}) }

// Unregister detaches a connection; safe to call for already-evicted ids.
func (h *Hub) Unregister(clientID string) { h.enqueue(disconnectMsg{clientID: clientID}) }

// Deliver hands one decoded frame to the hub loop.
func (h *Hub) Deliver(clientID string, env api.Envelope) {
	h.enqueue(frameMsg{clientID: clientID, env: env})
}

// Shutdown stops the loop and closes every connection.
func (h *Hub) Shutdown() {
	done := make(chan struct{})
	select {
	case h.inbox <- shutdownMsg{done: done}:
		<-done
	case <-h.ctx.Done():
	}
}

func (h *Hub) enqueue(m message) {
	select {
	case h.inbox <- m:
	case <-h.ctx.Done():
	}
}

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case connectMsg:
				h.clients[msg.client.ID] = msg.client
				h.logger.Info("client connected", "client_id", msg.client.ID)

			case disconnectMsg:
				h.removeClient(msg.clientID)

			case frameMsg:
				if c, ok := h.clients[msg.clientID]; ok {
					h.dispatch(c, msg.env)
				}

			case shutdownMsg:
				for id, c := range h.clients {
					c.close()
					delete(h.clients, id)
				}
				h.cancel()
				close(msg.done)
				return
			}
		}
	}
}

func (h *Hub) dispatch(c *Client, env api.Envelope) {
	switch env.Event {
	case api.EventJoin:
		h.handleJoin(c, env)
	case api.EventSetActivity:
		h.handleSetActivity(c, env)
	case api.EventRequestInitialData:
		h.handleRequestInitialData(c, env)
	case api.EventDrawingUpdate:
		h.handleDrawingUpdate(c, env)
	case api.EventDrawingCompleted:
		h.handleDrawingCompleted(c, env)
	case api.EventDrawingPointChanged:
		h.handleDrawingPointChanged(c, env)
	case api.EventGetCurrentDrawings:
		h.handleGetCurrentDrawings(c, env)
	case api.EventRequestUserDrawing:
		h.handleRequestUserDrawing(c, env)
	case api.EventEditingPolygon:
		h.handleEditingPolygon(c, env)
	case api.EventPolygonCoordinatesUpdate:
		h.handlePolygonCoordinatesUpdate(c, env)
	case api.EventCalculateArea:
		h.handleCalculateArea(c, env)
	case api.EventSavePolygon:
		h.handleSavePolygon(c, env)
	case api.EventUpdatePolygon:
		h.handleUpdatePolygon(c, env)
	case api.EventDeletePolygon:
		h.handleDeletePolygon(c, env)
	case api.EventGetAllPolygons:
		h.handleGetAllPolygons(c, env)
	case api.EventGetPolygonsByLayer:
		h.handleGetPolygonsByLayer(c, env)
	case api.EventGetAllLayers:
		h.handleGetAllLayers(c, env)
	case api.EventCreateLayer:
		h.handleCreateLayer(c, env)
	case api.EventUpdateLayer:
		h.handleUpdateLayer(c, env)
	case api.EventDeleteLayer:
		h.handleDeleteLayer(c, env)
	case api.EventMapBounds:
		h.handleMapBounds(c, env)
	default:
		h.logger.Warn("unknown event", "event", env.Event, "client_id", c.ID)
		if env.ID != "" {
			h.replyError(c, env, "unknown event: "+env.Event)
		} else {
			h.sendError(c, "unknown event: "+env.Event)
		}
	}
}

// reply answers a correlated request with the same event name and id.
func (h *Hub) reply(c *Client, req api.Envelope, v any) {
	env, err := api.NewEnvelope(req.Event, req.ID, v)
	if err != nil {
		h.logger.Error("failed to encode reply", "event", req.Event, "error", err)
		return
	}
	if !c.send(env) {
		h.removeClient(c.ID)
	}
}

// replyError answers a correlated request with an error payload on the
// request's own channel; it never closes the connection.
func (h *Hub) replyError(c *Client, req api.Envelope, msg string) {
	h.reply(c, req, api.ErrorResponse{Error: msg})
}

// sendEvent pushes an uncorrelated event to a single connection.
func (h *Hub) sendEvent(c *Client, event string, v any) {
	env, err := api.NewEnvelope(event, "", v)
	if err != nil {
		h.logger.Error("failed to encode event", "event", event, "error", err)
		return
	}
	if !c.send(env) {
		h.removeClient(c.ID)
	}
}

// sendError reports a failure to the offending sender only.
func (h *Hub) sendError(c *Client, msg string) {
	h.sendEvent(c, api.EventError, api.ErrorMessage{Message: msg})
}

// broadcast fans an event out to every connection. Fire and forget: a slow
// client is dropped rather than blocking the loop.
func (h *Hub) broadcast(event string, v any) {
	h.broadcastExcept("", event, v)
}

// broadcastExcept fans out to everyone but the named connection.
func (h *Hub) broadcastExcept(exceptID, event string, v any) {
	env, err := api.NewEnvelope(event, "", v)
	if err != nil {
		h.logger.Error("failed to encode broadcast", "event", event, "error", err)
		return
	}
	for id, c := range h.clients {
		if id == exceptID {
			continue
		}
		if !c.send(env) {
			h.removeClient(id)
		}
	}
}

// broadcastPresence pushes the full deduplicated user list to everyone.
// There is no delta protocol: every join, activity change and disconnect
// resends the whole list.
func (h *Hub) broadcastPresence() {
	h.broadcast(api.EventUsersUpdated, h.registry.Snapshot())
}

// setActivity mutates a session's activity and rebroadcasts presence when
// the session exists.
func (h *Hub) setActivity(clientID string, activity *models.Activity) {
	if h.registry.SetActivity(clientID, activity) {
		h.broadcastPresence()
	}
}

// decode unmarshals a frame payload, reporting malformed input on the
// request's error channel (correlated or not).
func (h *Hub) decode(c *Client, env api.Envelope, v any) bool {
	if err := json.Unmarshal(env.Data, v); err != nil {
		h.logger.Warn("malformed payload", "event", env.Event, "client_id", c.ID, "error", err)
		if env.ID != "" {
			h.replyError(c, env, "invalid payload for "+env.Event)
		} else {
			h.sendError(c, "invalid payload for "+env.Event)
		}
		return false
	}
	return true
}
