package cache

import "errors"

var (
	ErrLayerNotFound   = errors.New("layer not found")
	ErrPolygonNotFound = errors.New("polygon not found")
)
