package api

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/iudanet/mapsync/internal/models"
)

// JoinRequest announces the client's display name. An empty username gets
// a server-generated placeholder.
type JoinRequest struct {
	Username string `json:"username"`
}

// SetActivityRequest updates or clears (nil) the session activity.
type SetActivityRequest struct {
	Activity *models.Activity `json:"activity"`
}

// PresenceEntry is one element of the users-updated broadcast. Entries are
// unique by username.
type PresenceEntry struct {
	ID         string           `json:"id"`
	Username   string           `json:"username"`
	IsOnline   bool             `json:"isOnline"`
	LastActive time.Time        `json:"lastActive"`
	Activity   *models.Activity `json:"activity,omitempty"`
}

// DrawingUpdate carries one session's in-progress free-hand drawing, both
// as the inbound update and the fan-out broadcast.
type DrawingUpdate struct {
	UserID      string             `json:"userId,omitempty"`
	Username    string             `json:"username,omitempty"`
	Points      models.Coordinates `json:"points"`
	IsCompleted bool               `json:"isCompleted"`
	Timestamp   int64              `json:"timestamp,omitempty"`
}

// DrawingEnded tells observers to stop rendering a user's drawing.
type DrawingEnded struct {
	UserID   string `json:"userId"`
	Username string `json:"username,omitempty"`
}

// UserDrawingStatus answers request-user-drawing when the target has no
// active drawing.
type UserDrawingStatus struct {
	UserID     string `json:"userId"`
	HasDrawing bool   `json:"hasDrawing"`
}

// PointAction is the mutation kind of a drawing-point-changed request.
type PointAction string

const (
	PointAdd    PointAction = "add"
	PointEdit   PointAction = "edit"
	PointDelete PointAction = "delete"
)

// PointChangeRequest mutates a single point of the sender's drawing.
type PointChangeRequest struct {
	Action     PointAction `json:"action"`
	PointIndex *int        `json:"pointIndex,omitempty"`
	Point      []float64   `json:"point,omitempty"`
}

// UserDrawingRequest asks for another session's current drawing. The
// payload is either {"targetUserId": "..."} or a bare string.
type UserDrawingRequest struct {
	UserID string `json:"targetUserId"`
}

func (r *UserDrawingRequest) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		r.UserID = s
		return nil
	}
	type alias UserDrawingRequest
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	r.UserID = a.UserID
	return nil
}

// EditAction is the phase of an editing-polygon request.
type EditAction string

const (
	EditStart EditAction = "start"
	EditEnd   EditAction = "end"
)

// EditingPolygonRequest starts or ends an exclusive edit on a polygon.
type EditingPolygonRequest struct {
	PolygonID   int64      `json:"polygonId"`
	Action      EditAction `json:"action"`
	Coordinates []float64  `json:"coordinates,omitempty"`
}

// PolygonEditing is the broadcast mirror of EditingPolygonRequest with the
// acting session attached.
type PolygonEditing struct {
	PolygonID   int64      `json:"polygonId"`
	Action      EditAction `json:"action"`
	UserID      string     `json:"userId"`
	Username    string     `json:"username"`
	Coordinates []float64  `json:"coordinates,omitempty"`
}

// PolygonCoordinatesUpdate is the raw coordinate stream for a polygon
// under edit; relayed only from the current lock holder.
type PolygonCoordinatesUpdate struct {
	PolygonID   int64              `json:"polygonId"`
	Coordinates models.Coordinates `json:"coordinates"`
}

// CalculateAreaRequest asks the server for the geodesic area of a ring.
type CalculateAreaRequest struct {
	Coordinates models.Coordinates `json:"coordinates"`
}

// AreaResponse reports the computed area in its display unit plus the
// normalized km² value stored with polygons.
type AreaResponse struct {
	AreaValue float64 `json:"areaValue"`
	AreaUnit  string  `json:"areaUnit"`
	SizeKm2   float64 `json:"sizeKm2"`
}

// SavePolygonRequest creates a polygon. Points and Coordinates are
// interchangeable; Points wins when both are present.
type SavePolygonRequest struct {
	LayerID     int64              `json:"layerId"`
	Name        string             `json:"name"`
	Color       string             `json:"color"`
	Points      models.Coordinates `json:"points,omitempty"`
	Coordinates models.Coordinates `json:"coordinates,omitempty"`
	SizeKm2     *float64           `json:"sizeKm2,omitempty"`
}

// UpdatePolygonRequest applies a partial update to a polygon.
type UpdatePolygonRequest struct {
	PolygonID int64                 `json:"polygonId"`
	Updates   models.PolygonUpdates `json:"updates"`
}

// FlexID decodes from either a JSON number or a numeric string; older map
// clients send polygon ids both ways.
type FlexID int64

func (f *FlexID) UnmarshalJSON(data []byte) error {
	var n int64
	if err := json.Unmarshal(data, &n); err == nil {
		*f = FlexID(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("invalid id %s", string(data))
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid id %q", s)
	}
	*f = FlexID(n)
	return nil
}

// DeletePolygonRequest deletes a polygon by id.
type DeletePolygonRequest struct {
	PolygonID FlexID `json:"polygonId"`
}

// LayerInput creates a layer.
type LayerInput struct {
	Name string `json:"name"`
}

// UpdateLayerRequest renames a layer.
type UpdateLayerRequest struct {
	LayerID int64 `json:"layerId"`
	Updates struct {
		Name string `json:"name"`
	} `json:"updates"`
}

// DeleteLayerRequest deletes a layer and, by cascade, its polygons.
type DeleteLayerRequest struct {
	LayerID int64 `json:"layerId"`
}

// PolygonsByLayerRequest lists a single layer's polygons.
type PolygonsByLayerRequest struct {
	LayerID int64 `json:"layerId"`
}

// InitialData is the one-shot full dataset sent on request-initial-data.
type InitialData struct {
	Layers   []models.Layer   `json:"layers"`
	Polygons []models.Polygon `json:"polygons"`
}

// Response wrappers for request/reply events. Error is set instead of the
// value when the operation failed; errors never close the transport.
type LayerResponse struct {
	Layer *models.Layer `json:"layer,omitempty"`
	Error string        `json:"error,omitempty"`
}

type LayersResponse struct {
	Layers []models.Layer `json:"layers,omitempty"`
	Error  string         `json:"error,omitempty"`
}

type PolygonResponse struct {
	Polygon *models.Polygon `json:"polygon,omitempty"`
	Error   string          `json:"error,omitempty"`
}

type PolygonsResponse struct {
	Polygons []models.Polygon `json:"polygons,omitempty"`
	Error    string           `json:"error,omitempty"`
}

type SuccessResponse struct {
	Success bool   `json:"success,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ErrorMessage is the payload of uncorrelated error events sent back to
// the offending sender only.
type ErrorMessage struct {
	Message string `json:"message"`
}

// ErrorResponse is the generic correlated failure reply.
type ErrorResponse struct {
	Error string `json:"error"`
}
