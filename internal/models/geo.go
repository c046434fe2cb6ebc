package models

import "time"

// Coordinates is an ordered list of [lng, lat] vertex pairs.
// Pairs are kept as raw slices so malformed input can be reported
// with the offending index instead of failing JSON decoding.
type Coordinates [][]float64

// Layer groups polygons. The server is the system of record; ids are
// assigned by the database on insert.
type Layer struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Polygon is a named, colored shape belonging to a layer.
type Polygon struct {
	ID          int64       `json:"id"`
	LayerID     int64       `json:"layerId"`
	Name        string      `json:"name"`
	Color       string      `json:"color"`
	Coordinates Coordinates `json:"coordinates"`
	SizeKm2     float64     `json:"sizeKm2"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// PolygonInput is the payload for creating a polygon. SizeKm2 is optional;
// when nil the server computes it from the coordinates.
type PolygonInput struct {
	LayerID     int64       `json:"layerId"`
	Name        string      `json:"name"`
	Color       string      `json:"color"`
	Coordinates Coordinates `json:"coordinates"`
	SizeKm2     *float64    `json:"sizeKm2,omitempty"`
}

// PolygonUpdates is a partial update; nil fields are left unchanged.
// Coordinates of zero length mean "not supplied".
type PolygonUpdates struct {
	LayerID     *int64      `json:"layerId,omitempty"`
	Name        *string     `json:"name,omitempty"`
	Color       *string     `json:"color,omitempty"`
	Coordinates Coordinates `json:"coordinates,omitempty"`
	SizeKm2     *float64    `json:"sizeKm2,omitempty"`
}

// MapBounds is a lat/lng bounding box in the same orientation the
// map client reports it.
type MapBounds struct {
	North float64 `json:"north"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	West  float64 `json:"west"`
}

// Valid reports whether the box is a usable viewport: latitudes and
// longitudes in range, north not below south.
func (b MapBounds) Valid() bool {
	if b.North < b.South {
		return false
	}
	if b.South < -90 || b.North > 90 {
		return false
	}
	return b.West >= -180 && b.West <= 180 && b.East >= -180 && b.East <= 180
}

// Contains reports whether the [lng, lat] point has its latitude within
// [south, north] and longitude within [west, east].
func (b MapBounds) Contains(point []float64) bool {
	if len(point) != 2 {
		return false
	}
	lng, lat := point[0], point[1]
	return lat >= b.South && lat <= b.North && lng >= b.West && lng <= b.East
}
