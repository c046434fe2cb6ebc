package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iudanet/mapsync/internal/models"
	"github.com/iudanet/mapsync/internal/server/storage"
)

// SaveLayer inserts a layer and returns it with its assigned id.
func (s *Storage) SaveLayer(ctx context.Context, name string) (*models.Layer, error) {
	now := time.Now().Unix()

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO layers (name, created_at, updated_at) VALUES (?, ?, ?)`,
		name, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert layer: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get layer id: %w", err)
	}

	return s.Layer(ctx, id)
}

// Layers returns all layers, newest first.
func (s *Storage) Layers(ctx context.Context) ([]models.Layer, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, created_at, updated_at FROM layers ORDER BY created_at DESC, id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query layers: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	layers := make([]models.Layer, 0)
	for rows.Next() {
		var (
			layer                models.Layer
			createdAt, updatedAt int64
		)
		if err := rows.Scan(&layer.ID, &layer.Name, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan layer: %w", err)
		}
		layer.CreatedAt = time.Unix(createdAt, 0).UTC()
		layer.UpdatedAt = time.Unix(updatedAt, 0).UTC()
		layers = append(layers, layer)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return layers, nil
}

// Layer returns a single layer or storage.ErrLayerNotFound.
func (s *Storage) Layer(ctx context.Context, id int64) (*models.Layer, error) {
	var (
		layer                models.Layer
		createdAt, updatedAt int64
	)

	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, created_at, updated_at FROM layers WHERE id = ?`, id,
	).Scan(&layer.ID, &layer.Name, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrLayerNotFound
		}
		return nil, fmt.Errorf("failed to get layer: %w", err)
	}

	layer.CreatedAt = time.Unix(createdAt, 0).UTC()
	layer.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &layer, nil
}

// UpdateLayer renames a layer. Returns storage.ErrLayerNotFound when the id
// does not exist.
func (s *Storage) UpdateLayer(ctx context.Context, id int64, name string) (*models.Layer, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE layers SET name = ?, updated_at = ? WHERE id = ?`,
		name, time.Now().Unix(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update layer: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return nil, storage.ErrLayerNotFound
	}

	return s.Layer(ctx, id)
}

// DeleteLayer removes the layer and all of its polygons in one transaction.
func (s *Storage) DeleteLayer(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM polygons WHERE layer_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete layer polygons: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM layers WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete layer: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return storage.ErrLayerNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}
