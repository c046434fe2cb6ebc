package storage

import (
	"context"

	"github.com/iudanet/mapsync/internal/models"
)

// LayerStore defines layer persistence operations.
type LayerStore interface {
	// SaveLayer inserts a layer and returns it with its assigned id.
	SaveLayer(ctx context.Context, name string) (*models.Layer, error)

	// Layers returns all layers, newest first.
	Layers(ctx context.Context) ([]models.Layer, error)

	// Layer returns one layer or ErrLayerNotFound.
	Layer(ctx context.Context, id int64) (*models.Layer, error)

	// UpdateLayer renames a layer or returns ErrLayerNotFound.
	UpdateLayer(ctx context.Context, id int64, name string) (*models.Layer, error)

	// DeleteLayer removes a layer and all of its polygons in one
	// transaction, or returns ErrLayerNotFound.
	DeleteLayer(ctx context.Context, id int64) error
}

// PolygonStore defines polygon persistence operations.
type PolygonStore interface {
	// SavePolygon inserts a polygon and returns it with its assigned id.
	SavePolygon(ctx context.Context, input models.PolygonInput) (*models.Polygon, error)

	// Polygons returns all polygons.
	Polygons(ctx context.Context) ([]models.Polygon, error)

	// Polygon returns one polygon or ErrPolygonNotFound.
	Polygon(ctx context.Context, id int64) (*models.Polygon, error)

	// PolygonsByLayer returns a layer's polygons.
	PolygonsByLayer(ctx context.Context, layerID int64) ([]models.Polygon, error)

	// UpdatePolygon applies a partial update or returns
	// ErrPolygonNotFound. When coordinates change and no explicit size is
	// supplied the stored area is recomputed.
	UpdatePolygon(ctx context.Context, id int64, updates models.PolygonUpdates) (*models.Polygon, error)

	// DeletePolygon removes a polygon or returns ErrPolygonNotFound.
	DeletePolygon(ctx context.Context, id int64) error

	// PolygonsInBounds returns polygons with at least one vertex inside
	// the bounding box.
	PolygonsInBounds(ctx context.Context, bounds models.MapBounds) ([]models.Polygon, error)
}

// Store is the full persistence surface consumed by the hub.
type Store interface {
	LayerStore
	PolygonStore

	Close() error
}
