package hub

import (
	"github.com/iudanet/mapsync/internal/models"
	"github.com/iudanet/mapsync/internal/server/presence"
	"github.com/iudanet/mapsync/pkg/api"
)

// handleJoin installs the session identity. A username already bound to a
// different live connection is taken over: the old connection is forcibly
// closed and its realtime state cleaned up (last join wins).
func (h *Hub) handleJoin(c *Client, env api.Envelope) {
	var req api.JoinRequest
	if len(env.Data) > 0 && !h.decode(c, env, &req) {
		return
	}

	username := req.Username
	if username == "" {
		username = "User-" + shortID(c.ID)
	}

	sess, evicted := h.registry.Join(c.ID, username)
	if evicted != nil {
		h.logger.Info("replacing existing connection for username",
			"username", username, "old_client_id", evicted.ID)
		h.evict(evicted)
	}

	h.logger.Info("user joined", "username", sess.Username, "client_id", sess.ID)

	if env.ID != "" {
		h.reply(c, env, api.SuccessResponse{Success: true})
	}
	h.broadcastPresence()
}

func (h *Hub) handleSetActivity(c *Client, env api.Envelope) {
	var req api.SetActivityRequest
	if !h.decode(c, env, &req) {
		return
	}

	if !h.registry.SetActivity(c.ID, req.Activity) {
		h.sendError(c, "User not found")
		return
	}
	if env.ID != "" {
		h.reply(c, env, api.SuccessResponse{Success: true})
	}
	h.broadcastPresence()
}

// removeClient runs full disconnect cleanup: presence, held locks, drawing
// snapshot, and the resulting broadcasts. Safe to call twice for one id.
func (h *Hub) removeClient(clientID string) {
	if c, ok := h.clients[clientID]; ok {
		delete(h.clients, clientID)
		c.close()
	}

	sess := h.registry.Disconnect(clientID)

	username := ""
	if sess != nil {
		username = sess.Username
	}
	h.releaseLocksOf(clientID, username)
	h.relay.Remove(clientID)

	if sess == nil {
		h.logger.Info("unknown client disconnected", "client_id", clientID)
		return
	}

	h.logger.Info("user disconnected", "username", sess.Username, "client_id", clientID)

	if sess.Activity != nil && sess.Activity.Type == models.ActivityDrawing {
		h.broadcast(api.EventDrawingEnded, api.DrawingEnded{UserID: clientID, Username: sess.Username})
	}
	h.broadcastPresence()
}

// evict cleans up a session whose username was taken over by a newer
// connection. The registry entry is already gone; the connection itself is
// closed so its transport goroutines unwind.
func (h *Hub) evict(sess *presence.Session) {
	if c, ok := h.clients[sess.ID]; ok {
		delete(h.clients, sess.ID)
		c.close()
	}

	h.releaseLocksOf(sess.ID, sess.Username)
	h.relay.Remove(sess.ID)

	if sess.Activity != nil && sess.Activity.Type == models.ActivityDrawing {
		h.broadcast(api.EventDrawingEnded, api.DrawingEnded{UserID: sess.ID, Username: sess.Username})
	}
}

// releaseLocksOf drops every edit lock held by the session and broadcasts
// an editing-ended event per affected polygon.
func (h *Hub) releaseLocksOf(clientID, username string) {
	for _, polygonID := range h.locks.ReleaseOwnedBy(clientID) {
		h.broadcast(api.EventPolygonEditing, api.PolygonEditing{
			PolygonID: polygonID,
			Action:    api.EditEnd,
			UserID:    clientID,
			Username:  username,
		})
	}
}

// shortID trims a uuid to the prefix used in generated display names.
func shortID(id string) string {
	if len(id) > 5 {
		return id[:5]
	}
	return id
}
