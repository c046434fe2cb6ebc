package hub

import (
	"github.com/iudanet/mapsync/internal/models"
	"github.com/iudanet/mapsync/pkg/api"
)

// handleRequestInitialData answers with the full dataset in one reply so a
// freshly connected client can seed its local cache.
func (h *Hub) handleRequestInitialData(c *Client, env api.Envelope) {
	layers, err := h.store.Layers(h.ctx)
	if err != nil {
		h.logger.Error("failed to load layers for initial data", "error", err)
		h.replyError(c, env, "Failed to load initial data")
		return
	}
	polygons, err := h.store.Polygons(h.ctx)
	if err != nil {
		h.logger.Error("failed to load polygons for initial data", "error", err)
		h.replyError(c, env, "Failed to load initial data")
		return
	}

	h.reply(c, env, api.InitialData{Layers: layers, Polygons: polygons})
}

// handleMapBounds answers a viewport change with the polygons intersecting
// the new bounds. The response is uncorrelated so the client can treat it
// like any other server push.
func (h *Hub) handleMapBounds(c *Client, env api.Envelope) {
	var bounds models.MapBounds
	if !h.decode(c, env, &bounds) {
		return
	}
	if !bounds.Valid() {
		h.sendError(c, "Invalid bounds format")
		return
	}

	polygons, err := h.store.PolygonsInBounds(h.ctx, bounds)
	if err != nil {
		h.logger.Error("failed to query polygons in bounds", "error", err)
		h.sendError(c, "Failed to fetch polygons for bounds")
		return
	}

	h.sendEvent(c, api.EventPolygonsInBounds, polygons)
}
