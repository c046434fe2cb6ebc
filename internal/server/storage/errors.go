package storage

import "errors"

// Common storage errors
var (
	// ErrLayerNotFound indicates that the layer does not exist
	ErrLayerNotFound = errors.New("layer not found")

	// ErrPolygonNotFound indicates that the polygon does not exist
	ErrPolygonNotFound = errors.New("polygon not found")
)
