package hub

import (
	"github.com/iudanet/mapsync/internal/models"
	"github.com/iudanet/mapsync/pkg/api"
)

// handleDrawingUpdate replaces the sender's snapshot and rebroadcasts it to
// every connection. A non-empty point list also moves the session activity
// to drawing-at-last-point.
func (h *Hub) handleDrawingUpdate(c *Client, env api.Envelope) {
	sess := h.registry.Get(c.ID)
	if sess == nil {
		return
	}

	var req api.DrawingUpdate
	if !h.decode(c, env, &req) {
		return
	}

	if len(req.Points) > 0 {
		last := req.Points[len(req.Points)-1]
		h.setActivity(c.ID, &models.Activity{
			Type:        models.ActivityDrawing,
			Coordinates: last,
		})
	}

	snap := h.relay.Replace(c.ID, sess.Username, req.Points, req.IsCompleted)
	h.broadcast(api.EventDrawingUpdate, snap.Update())
}

// handleDrawingCompleted marks the snapshot finished, rebroadcasts it once
// more, and tells the other clients the drawing is no longer in progress.
func (h *Hub) handleDrawingCompleted(c *Client, env api.Envelope) {
	sess := h.registry.Get(c.ID)
	if sess == nil {
		return
	}

	if snap, ok := h.relay.Complete(c.ID); ok {
		h.broadcast(api.EventDrawingUpdate, snap.Update())
	}
	h.broadcastExcept(c.ID, api.EventDrawingEnded, api.DrawingEnded{UserID: c.ID})
}

// handleDrawingPointChanged applies a single add/edit/delete to the
// sender's snapshot. Without an existing snapshot the request is a no-op.
func (h *Hub) handleDrawingPointChanged(c *Client, env api.Envelope) {
	sess := h.registry.Get(c.ID)
	if sess == nil {
		return
	}

	var req api.PointChangeRequest
	if !h.decode(c, env, &req) {
		return
	}

	snap, ok := h.relay.MutatePoint(c.ID, req.Action, req.PointIndex, req.Point)
	if !ok {
		return
	}
	h.broadcast(api.EventDrawingUpdate, snap.Update())

	if len(snap.Points) > 0 {
		last := snap.Points[len(snap.Points)-1]
		h.setActivity(c.ID, &models.Activity{
			Type:        models.ActivityDrawing,
			Coordinates: last,
		})
	}
}

// handleGetCurrentDrawings replays every live snapshot to the requester.
func (h *Hub) handleGetCurrentDrawings(c *Client, env api.Envelope) {
	for _, snap := range h.relay.All() {
		h.sendEvent(c, api.EventDrawingUpdate, snap.Update())
	}
}

// handleRequestUserDrawing answers with the target's snapshot, or a
// has-no-drawing status rather than an error when there is none.
func (h *Hub) handleRequestUserDrawing(c *Client, env api.Envelope) {
	if h.registry.Get(c.ID) == nil {
		return
	}

	var req api.UserDrawingRequest
	if !h.decode(c, env, &req) {
		return
	}

	if snap, ok := h.relay.Get(req.UserID); ok {
		h.sendEvent(c, api.EventDrawingUpdate, snap.Update())
		return
	}
	h.sendEvent(c, api.EventUserDrawingStatus, api.UserDrawingStatus{
		UserID:     req.UserID,
		HasDrawing: false,
	})
}
