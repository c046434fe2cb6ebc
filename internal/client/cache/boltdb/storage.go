// Package boltdb implements the client map cache on BoltDB. Records are
// stored as JSON under their decimal id, one bucket per table.
package boltdb

import (
	"context"
	"fmt"
	"strconv"

	"go.etcd.io/bbolt"
)

var (
	// BoltDB bucket names
	bucketLayers   = []byte("layers")
	bucketPolygons = []byte("polygons")
	bucketMeta     = []byte("meta")
)

var keyLastLocalID = []byte("last_local_id")

// Storage is the BoltDB-backed cache.
type Storage struct {
	db *bbolt.DB
}

// New opens (or creates) the cache database at dbPath.
func New(ctx context.Context, dbPath string) (*Storage, error) {
	db, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open boltdb: %w", err)
	}

	storage := &Storage{db: db}

	if err := storage.initBuckets(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize buckets: %w", err)
	}

	return storage, nil
}

// Close closes the database connection.
func (s *Storage) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Storage) initBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketLayers, bucketPolygons, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("failed to create %s bucket: %w", name, err)
			}
		}
		return nil
	})
}

// NextLocalID hands out descending negative ids for offline creations.
// The counter survives restarts via the meta bucket.
func (s *Storage) NextLocalID(ctx context.Context) (int64, error) {
	var id int64

	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketMeta)
		if bucket == nil {
			return fmt.Errorf("meta bucket not found")
		}

		last := int64(0)
		if data := bucket.Get(keyLastLocalID); data != nil {
			parsed, err := strconv.ParseInt(string(data), 10, 64)
			if err != nil {
				return fmt.Errorf("failed to parse last local id: %w", err)
			}
			last = parsed
		}

		id = last - 1
		return bucket.Put(keyLastLocalID, []byte(strconv.FormatInt(id, 10)))
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// idKey is the bucket key for an entity id.
func idKey(id int64) []byte {
	return []byte(strconv.FormatInt(id, 10))
}
