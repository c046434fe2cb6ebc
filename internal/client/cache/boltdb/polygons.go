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

// UpsertPolygon stores or replaces a polygon by id.
func (s *Storage) UpsertPolygon(ctx context.Context, polygon models.Polygon) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketPolygons)
		if bucket == nil {
			return fmt.Errorf("polygons bucket not found")
		}

		data, err := json.Marshal(polygon)
		if err != nil {
			return fmt.Errorf("failed to marshal polygon: %w", err)
		}

		if err := bucket.Put(idKey(polygon.ID), data); err != nil {
			return fmt.Errorf("failed to save polygon: %w", err)
		}
		return nil
	})
}

// Polygons returns all cached polygons, newest first.
func (s *Storage) Polygons(ctx context.Context) ([]models.Polygon, error) {
	return s.listPolygons(func(models.Polygon) bool { return true })
}

// PolygonsByLayer returns the cached polygons of one layer.
func (s *Storage) PolygonsByLayer(ctx context.Context, layerID int64) ([]models.Polygon, error) {
	return s.listPolygons(func(p models.Polygon) bool { return p.LayerID == layerID })
}

func (s *Storage) listPolygons(keep func(models.Polygon) bool) ([]models.Polygon, error) {
	var polygons []models.Polygon

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketPolygons)
		if bucket == nil {
			return fmt.Errorf("polygons bucket not found")
		}

		return bucket.ForEach(func(k, v []byte) error {
			var polygon models.Polygon
			if err := json.Unmarshal(v, &polygon); err != nil {
				return fmt.Errorf("failed to unmarshal polygon: %w", err)
			}
			if keep(polygon) {
				polygons = append(polygons, polygon)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(polygons, func(i, j int) bool {
		if !polygons[i].CreatedAt.Equal(polygons[j].CreatedAt) {
			return polygons[i].CreatedAt.After(polygons[j].CreatedAt)
		}
		return polygons[i].ID > polygons[j].ID
	})
	return polygons, nil
}

// Polygon returns one polygon by id.
func (s *Storage) Polygon(ctx context.Context, id int64) (*models.Polygon, error) {
	var polygon *models.Polygon

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketPolygons)
		if bucket == nil {
			return fmt.Errorf("polygons bucket not found")
		}

		data := bucket.Get(idKey(id))
		if data == nil {
			return cache.ErrPolygonNotFound
		}

		polygon = &models.Polygon{}
		if err := json.Unmarshal(data, polygon); err != nil {
			return fmt.Errorf("failed to unmarshal polygon: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return polygon, nil
}

// DeletePolygon removes one polygon from the cache.
func (s *Storage) DeletePolygon(ctx context.Context, id int64) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketPolygons)
		if bucket == nil {
			return fmt.Errorf("polygons bucket not found")
		}

		if bucket.Get(idKey(id)) == nil {
			return cache.ErrPolygonNotFound
		}
		return bucket.Delete(idKey(id))
	})
}

// ReplaceAll swaps the whole cached dataset in one transaction.
func (s *Storage) ReplaceAll(ctx context.Context, layers []models.Layer, polygons []models.Polygon) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketLayers, bucketPolygons} {
			if err := tx.DeleteBucket(name); err != nil {
				return fmt.Errorf("failed to clear %s bucket: %w", name, err)
			}
			if _, err := tx.CreateBucket(name); err != nil {
				return fmt.Errorf("failed to recreate %s bucket: %w", name, err)
			}
		}

		layerBucket := tx.Bucket(bucketLayers)
		for _, layer := range layers {
			data, err := json.Marshal(layer)
			if err != nil {
				return fmt.Errorf("failed to marshal layer: %w", err)
			}
			if err := layerBucket.Put(idKey(layer.ID), data); err != nil {
				return fmt.Errorf("failed to save layer: %w", err)
			}
		}

		polygonBucket := tx.Bucket(bucketPolygons)
		for _, polygon := range polygons {
			data, err := json.Marshal(polygon)
			if err != nil {
				return fmt.Errorf("failed to marshal polygon: %w", err)
			}
			if err := polygonBucket.Put(idKey(polygon.ID), data); err != nil {
				return fmt.Errorf("failed to save polygon: %w", err)
			}
		}
		return nil
	})
}
