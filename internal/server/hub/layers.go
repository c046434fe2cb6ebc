package hub

import (
	"errors"

	"github.com/iudanet/mapsync/internal/server/storage"
	"github.com/iudanet/mapsync/pkg/api"
)

func (h *Hub) handleGetAllLayers(c *Client, env api.Envelope) {
	layers, err := h.store.Layers(h.ctx)
	if err != nil {
		h.logger.Error("failed to fetch layers", "error", err)
		h.replyError(c, env, "Failed to fetch layers")
		return
	}
	h.reply(c, env, api.LayersResponse{Layers: layers})
}

func (h *Hub) handleCreateLayer(c *Client, env api.Envelope) {
	var req api.LayerInput
	if !h.decode(c, env, &req) {
		return
	}
	if req.Name == "" {
		h.replyError(c, env, "Layer name is required")
		return
	}

	layer, err := h.store.SaveLayer(h.ctx, req.Name)
	if err != nil {
		h.logger.Error("failed to create layer", "error", err, "name", req.Name)
		h.replyError(c, env, "Failed to create layer")
		return
	}

	h.logger.Info("layer created", "layer_id", layer.ID, "name", layer.Name)

	h.broadcast(api.EventLayerCreated, layer)
	h.reply(c, env, api.LayerResponse{Layer: layer})
}

func (h *Hub) handleUpdateLayer(c *Client, env api.Envelope) {
	var req api.UpdateLayerRequest
	if !h.decode(c, env, &req) {
		return
	}
	if req.Updates.Name == "" {
		h.replyError(c, env, "Layer name is required")
		return
	}

	layer, err := h.store.UpdateLayer(h.ctx, req.LayerID, req.Updates.Name)
	if err != nil {
		if errors.Is(err, storage.ErrLayerNotFound) {
			h.replyError(c, env, "Layer not found or could not be updated")
			return
		}
		h.logger.Error("failed to update layer", "error", err, "layer_id", req.LayerID)
		h.replyError(c, env, "Failed to update layer")
		return
	}

	h.broadcast(api.EventLayerUpdated, layer)
	h.reply(c, env, api.LayerResponse{Layer: layer})
}

// handleDeleteLayer removes a layer and all of its polygons. Clients are
// told only about the layer; they are expected to drop the contained
// polygons themselves.
func (h *Hub) handleDeleteLayer(c *Client, env api.Envelope) {
	var req api.DeleteLayerRequest
	if !h.decode(c, env, &req) {
		return
	}

	if err := h.store.DeleteLayer(h.ctx, req.LayerID); err != nil {
		if errors.Is(err, storage.ErrLayerNotFound) {
			h.replyError(c, env, "Layer not found or could not be deleted")
			return
		}
		h.logger.Error("failed to delete layer", "error", err, "layer_id", req.LayerID)
		h.replyError(c, env, "Failed to delete layer")
		return
	}

	h.logger.Info("layer deleted", "layer_id", req.LayerID)

	h.broadcast(api.EventLayerDeleted, req.LayerID)
	h.reply(c, env, api.SuccessResponse{Success: true})
}
