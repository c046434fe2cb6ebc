package boltdb

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"go.etcd.io/bbolt"

	"github.com/iudanet/mapsync/internal/client/cache"
	"github.com/iudanet/mapsync/internal/models"
)

// UpsertLayer stores or replaces a layer by id.
func (s *Storage) UpsertLayer(ctx context.Context, layer models.Layer) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketLayers)
		if bucket == nil {
			return fmt.Errorf("layers bucket not found")
		}

		data, err := json.Marshal(layer)
		if err != nil {
			return fmt.Errorf("failed to marshal layer: %w", err)
		}

		if err := bucket.Put(idKey(layer.ID), data); err != nil {
			return fmt.Errorf("failed to save layer: %w", err)
		}
		return nil
	})
}

// Layers returns all cached layers, newest first.
func (s *Storage) Layers(ctx context.Context) ([]models.Layer, error) {
	var layers []models.Layer

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketLayers)
		if bucket == nil {
			return fmt.Errorf("layers bucket not found")
		}

		return bucket.ForEach(func(k, v []byte) error {
			var layer models.Layer
			if err := json.Unmarshal(v, &layer); err != nil {
				return fmt.Errorf("failed to unmarshal layer: %w", err)
			}
			layers = append(layers, layer)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(layers, func(i, j int) bool {
		if !layers[i].CreatedAt.Equal(layers[j].CreatedAt) {
			return layers[i].CreatedAt.After(layers[j].CreatedAt)
		}
		return layers[i].ID > layers[j].ID
	})
	return layers, nil
}

// Layer returns one layer by id.
func (s *Storage) Layer(ctx context.Context, id int64) (*models.Layer, error) {
	var layer *models.Layer

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketLayers)
		if bucket == nil {
			return fmt.Errorf("layers bucket not found")
		}

		data := bucket.Get(idKey(id))
		if data == nil {
			return cache.ErrLayerNotFound
		}

		layer = &models.Layer{}
		if err := json.Unmarshal(data, layer); err != nil {
			return fmt.Errorf("failed to unmarshal layer: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return layer, nil
}

// DeleteLayer removes the layer and its polygons in one transaction, so a
// crash cannot leave orphaned polygons behind.
func (s *Storage) DeleteLayer(ctx context.Context, id int64) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		layers := tx.Bucket(bucketLayers)
		polygons := tx.Bucket(bucketPolygons)
		if layers == nil || polygons == nil {
			return fmt.Errorf("cache buckets not found")
		}

		if layers.Get(idKey(id)) == nil {
			return cache.ErrLayerNotFound
		}
		if err := layers.Delete(idKey(id)); err != nil {
			return fmt.Errorf("failed to delete layer: %w", err)
		}

		var orphaned [][]byte
		err := polygons.ForEach(func(k, v []byte) error {
			var polygon models.Polygon
			if err := json.Unmarshal(v, &polygon); err != nil {
				return fmt.Errorf("failed to unmarshal polygon: %w", err)
			}
			if polygon.LayerID == id {
				key := make([]byte, len(k))
				copy(key, k)
				orphaned = append(orphaned, key)
			}
			return nil
		})
		if err != nil {
			return err
		}

		for _, key := range orphaned {
			if err := polygons.Delete(key); err != nil {
				return fmt.Errorf("failed to delete polygon: %w", err)
			}
		}
		return nil
	})
}
