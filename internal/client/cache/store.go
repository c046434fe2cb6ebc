// Package cache defines the client-side map cache. The cache is the
// offline source of truth: reads always come from here, and server pushes
// are reconciled into it by the sync manager.
package cache

import (
	"context"

	"github.com/iudanet/mapsync/internal/models"
)

//go:generate moq -out store_mock.go . Store

// Store is the local map dataset.
//
// Upserts reconcile by id: an incoming record replaces any cached record
// with the same id, so replaying a server event twice is harmless.
type Store interface {
	UpsertLayer(ctx context.Context, layer models.Layer) error
	Layers(ctx context.Context) ([]models.Layer, error)
	Layer(ctx context.Context, id int64) (*models.Layer, error)
	// DeleteLayer removes the layer and every cached polygon in it.
	DeleteLayer(ctx context.Context, id int64) error

	UpsertPolygon(ctx context.Context, polygon models.Polygon) error
	Polygons(ctx context.Context) ([]models.Polygon, error)
	Polygon(ctx context.Context, id int64) (*models.Polygon, error)
	PolygonsByLayer(ctx context.Context, layerID int64) ([]models.Polygon, error)
	DeletePolygon(ctx context.Context, id int64) error

	// ReplaceAll swaps the whole cached dataset in one transaction. Used
	// when the initial sync arrives.
	ReplaceAll(ctx context.Context, layers []models.Layer, polygons []models.Polygon) error

	// NextLocalID returns a fresh negative id for an entity created
	// offline. Server ids are positive, so the two ranges never collide.
	NextLocalID(ctx context.Context) (int64, error)

	Close() error
}
