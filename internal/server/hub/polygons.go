package hub

import (
	"errors"
	"fmt"

	"github.com/iudanet/mapsync/internal/geo"
	"github.com/iudanet/mapsync/internal/models"
	"github.com/iudanet/mapsync/internal/server/storage"
	"github.com/iudanet/mapsync/internal/validation"
	"github.com/iudanet/mapsync/pkg/api"
)

// handleEditingPolygon starts or ends an exclusive edit session. Start
// installs the sender as lock holder unconditionally, overwriting any prior
// holder; end releases the lock regardless of requester identity. Both
// phases are broadcast so clients can show who is editing what.
func (h *Hub) handleEditingPolygon(c *Client, env api.Envelope) {
	sess := h.registry.Get(c.ID)
	if sess == nil {
		h.sendError(c, "User not found")
		return
	}

	var req api.EditingPolygonRequest
	if !h.decode(c, env, &req) {
		return
	}

	switch req.Action {
	case api.EditStart:
		h.locks.Start(req.PolygonID, c.ID, sess.Username)
		h.setActivity(c.ID, &models.Activity{
			Type:        models.ActivityEditing,
			PolygonID:   req.PolygonID,
			Coordinates: req.Coordinates,
		})

	case api.EditEnd:
		h.locks.End(req.PolygonID)
		h.setActivity(c.ID, nil)

	default:
		h.sendError(c, fmt.Sprintf("invalid editing action %q", req.Action))
		return
	}

	h.broadcast(api.EventPolygonEditing, api.PolygonEditing{
		PolygonID:   req.PolygonID,
		Action:      req.Action,
		UserID:      c.ID,
		Username:    sess.Username,
		Coordinates: req.Coordinates,
	})
}

// handlePolygonCoordinatesUpdate relays the lock holder's coordinate stream
// to the other clients as a raw broadcast. Unauthorized senders get an
// error back and nothing is relayed; the lock is left untouched.
func (h *Hub) handlePolygonCoordinatesUpdate(c *Client, env api.Envelope) {
	sess := h.registry.Get(c.ID)
	if sess == nil {
		h.sendError(c, "User not found")
		return
	}

	var req api.PolygonCoordinatesUpdate
	if !h.decode(c, env, &req) {
		return
	}

	if !h.locks.Authorized(req.PolygonID, c.ID) {
		h.sendError(c, "You are not authorized to edit this polygon")
		return
	}

	if len(req.Coordinates) > 0 && sess.Activity != nil {
		activity := *sess.Activity
		activity.Coordinates = req.Coordinates[len(req.Coordinates)-1]
		h.setActivity(c.ID, &activity)
	}

	h.broadcastExcept(c.ID, api.EventPolygonCoordinatesUpdate, req)
}

// handleCalculateArea validates the ring and answers with the geodesic
// area. Out-of-range longitudes/latitudes are logged, not rejected.
func (h *Hub) handleCalculateArea(c *Client, env api.Envelope) {
	var req api.CalculateAreaRequest
	if !h.decode(c, env, &req) {
		return
	}

	if req.Coordinates == nil {
		h.replyError(c, env, "Invalid coordinates format")
		return
	}
	if len(req.Coordinates) < validation.MinPolygonPoints {
		h.replyError(c, env, "A polygon needs at least 3 points for area calculation")
		return
	}
	if err := validation.ValidatePoints(req.Coordinates); err != nil {
		h.replyError(c, env, capitalizeError(err))
		return
	}
	for _, i := range validation.OutOfRangeIndexes(req.Coordinates) {
		h.logger.Warn("potentially invalid coordinate",
			"index", i, "point", req.Coordinates[i])
	}

	result, err := geo.PolygonArea(req.Coordinates)
	if err != nil {
		h.replyError(c, env, "Failed to calculate area: "+err.Error())
		return
	}

	h.reply(c, env, api.AreaResponse{
		AreaValue: result.Value,
		AreaUnit:  result.Unit,
		SizeKm2:   result.SizeKm2(),
	})
}

// handleSavePolygon validates and persists a new polygon, then broadcasts
// the canonical record. Saving clears the saver's drawing snapshot and any
// edit lock on the stored id, and resets the session activity.
func (h *Hub) handleSavePolygon(c *Client, env api.Envelope) {
	sess := h.registry.Get(c.ID)
	if sess == nil {
		h.replyError(c, env, "User not found")
		return
	}

	var req api.SavePolygonRequest
	if !h.decode(c, env, &req) {
		return
	}

	if req.LayerID == 0 {
		h.replyError(c, env, "Missing or invalid layerId")
		return
	}
	if req.Name == "" {
		h.replyError(c, env, "Missing or invalid name")
		return
	}
	if req.Color == "" {
		h.replyError(c, env, "Missing or invalid color")
		return
	}

	points := req.Points
	if points == nil {
		points = req.Coordinates
	}
	if points == nil {
		h.replyError(c, env, "Missing or invalid points/coordinates data")
		return
	}
	if len(points) < validation.MinPolygonPoints {
		h.replyError(c, env, "A polygon needs at least 3 points")
		return
	}
	if err := validation.ValidatePoints(points); err != nil {
		h.replyError(c, env, capitalizeError(err))
		return
	}

	sizeKm2 := req.SizeKm2
	if sizeKm2 == nil {
		// Area failures degrade to zero instead of blocking the save.
		size := geo.SizeKm2(points)
		sizeKm2 = &size
	}

	polygon, err := h.store.SavePolygon(h.ctx, models.PolygonInput{
		LayerID:     req.LayerID,
		Name:        req.Name,
		Color:       req.Color,
		Coordinates: points,
		SizeKm2:     sizeKm2,
	})
	if err != nil {
		h.logger.Error("failed to save polygon", "error", err, "client_id", c.ID)
		h.replyError(c, env, "Failed to save polygon")
		return
	}

	h.setActivity(c.ID, nil)
	h.relay.Remove(c.ID)
	h.locks.End(polygon.ID)

	h.logger.Info("polygon saved", "polygon_id", polygon.ID, "username", sess.Username)

	h.broadcast(api.EventPolygonSaved, polygon)
	h.reply(c, env, api.PolygonResponse{Polygon: polygon})
}

// handleUpdatePolygon applies a partial update if the sender is not locked
// out by another editor. A successful update implicitly ends the edit
// session: the lock is cleared.
func (h *Hub) handleUpdatePolygon(c *Client, env api.Envelope) {
	sess := h.registry.Get(c.ID)
	if sess == nil {
		h.replyError(c, env, "User not found")
		return
	}

	var req api.UpdatePolygonRequest
	if !h.decode(c, env, &req) {
		return
	}

	if lock, ok := h.locks.Holder(req.PolygonID); ok && lock.HolderID != c.ID {
		h.replyError(c, env, fmt.Sprintf("Polygon is being edited by %s", lock.HolderUsername))
		return
	}

	polygon, err := h.store.UpdatePolygon(h.ctx, req.PolygonID, req.Updates)
	if err != nil {
		if errors.Is(err, storage.ErrPolygonNotFound) {
			h.replyError(c, env, "Polygon not found or could not be updated")
			return
		}
		h.logger.Error("failed to update polygon", "error", err, "polygon_id", req.PolygonID)
		h.replyError(c, env, "Failed to update polygon")
		return
	}

	h.locks.End(req.PolygonID)
	h.setActivity(c.ID, nil)

	h.broadcast(api.EventPolygonUpdated, polygon)
	h.reply(c, env, api.PolygonResponse{Polygon: polygon})
}

// handleDeletePolygon removes a polygon unless another session holds its
// edit lock.
func (h *Hub) handleDeletePolygon(c *Client, env api.Envelope) {
	sess := h.registry.Get(c.ID)
	if sess == nil {
		h.replyError(c, env, "User not found")
		return
	}

	var req api.DeletePolygonRequest
	if !h.decode(c, env, &req) {
		return
	}
	polygonID := int64(req.PolygonID)

	if lock, ok := h.locks.Holder(polygonID); ok && lock.HolderID != c.ID {
		h.replyError(c, env, fmt.Sprintf("Cannot delete: polygon is being edited by %s", lock.HolderUsername))
		return
	}

	if err := h.store.DeletePolygon(h.ctx, polygonID); err != nil {
		if errors.Is(err, storage.ErrPolygonNotFound) {
			h.replyError(c, env, "Polygon not found or could not be deleted")
			return
		}
		h.logger.Error("failed to delete polygon", "error", err, "polygon_id", polygonID)
		h.replyError(c, env, "Failed to delete polygon")
		return
	}

	h.locks.End(polygonID)
	if sess.Activity != nil && sess.Activity.PolygonID == polygonID {
		h.setActivity(c.ID, nil)
	}

	h.logger.Info("polygon deleted", "polygon_id", polygonID, "username", sess.Username)

	h.broadcast(api.EventPolygonDeleted, polygonID)
	h.reply(c, env, api.SuccessResponse{Success: true})
}

func (h *Hub) handleGetAllPolygons(c *Client, env api.Envelope) {
	polygons, err := h.store.Polygons(h.ctx)
	if err != nil {
		h.logger.Error("failed to fetch polygons", "error", err)
		h.replyError(c, env, "Failed to fetch polygons")
		return
	}
	h.reply(c, env, api.PolygonsResponse{Polygons: polygons})
}

func (h *Hub) handleGetPolygonsByLayer(c *Client, env api.Envelope) {
	var req api.PolygonsByLayerRequest
	if !h.decode(c, env, &req) {
		return
	}

	polygons, err := h.store.PolygonsByLayer(h.ctx, req.LayerID)
	if err != nil {
		h.logger.Error("failed to fetch layer polygons", "error", err, "layer_id", req.LayerID)
		h.replyError(c, env, "Failed to fetch polygons")
		return
	}
	h.reply(c, env, api.PolygonsResponse{Polygons: polygons})
}

// capitalizeError matches the capitalized message style of the rest of the
// reply errors without restating the text at call sites.
func capitalizeError(err error) string {
	msg := err.Error()
	if msg == "" || msg[0] < 'a' || msg[0] > 'z' {
		return msg
	}
	return string(msg[0]-'a'+'A') + msg[1:]
}
