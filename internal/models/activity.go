package models

// ActivityType tags what a connected user is currently doing on the map.
type ActivityType string

const (
	ActivityDrawing ActivityType = "drawing"
	ActivityEditing ActivityType = "editing"
)

// Activity is the in-progress action attached to a session. PolygonID is
// set for editing, Coordinates holds the last touched [lng, lat] point.
type Activity struct {
	Type        ActivityType `json:"type"`
	PolygonID   int64        `json:"polygonId,omitempty"`
	Coordinates []float64    `json:"coordinates,omitempty"`
}
