package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/iudanet/mapsync/internal/geo"
	"github.com/iudanet/mapsync/internal/models"
	"github.com/iudanet/mapsync/internal/server/storage"
)

const polygonColumns = `id, layer_id, name, color, size_km2, geometry_json, created_at, updated_at`

// SavePolygon inserts a polygon and returns it with its assigned id. The
// ring geometry is stored as a GeoJSON Polygon document.
func (s *Storage) SavePolygon(ctx context.Context, input models.PolygonInput) (*models.Polygon, error) {
	if len(input.Coordinates) < 3 {
		return nil, fmt.Errorf("invalid polygon coordinates: a polygon needs at least 3 points")
	}

	geometryJSON, err := marshalGeometry(input.Coordinates)
	if err != nil {
		return nil, fmt.Errorf("failed to encode geometry: %w", err)
	}

	sizeKm2 := geo.SizeKm2(input.Coordinates)
	if input.SizeKm2 != nil {
		sizeKm2 = *input.SizeKm2
	}

	now := time.Now().Unix()
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO polygons (layer_id, name, color, size_km2, geometry_json, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		input.LayerID, input.Name, input.Color, sizeKm2, geometryJSON, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert polygon: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get polygon id: %w", err)
	}

	return s.Polygon(ctx, id)
}

// Polygons returns all polygons.
func (s *Storage) Polygons(ctx context.Context) ([]models.Polygon, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+polygonColumns+` FROM polygons ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query polygons: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	return scanPolygons(rows)
}

// Polygon returns a single polygon or storage.ErrPolygonNotFound.
func (s *Storage) Polygon(ctx context.Context, id int64) (*models.Polygon, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+polygonColumns+` FROM polygons WHERE id = ?`, id,
	)

	polygon, err := scanPolygon(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrPolygonNotFound
		}
		return nil, fmt.Errorf("failed to get polygon: %w", err)
	}
	return polygon, nil
}

// PolygonsByLayer returns a layer's polygons.
func (s *Storage) PolygonsByLayer(ctx context.Context, layerID int64) ([]models.Polygon, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+polygonColumns+` FROM polygons WHERE layer_id = ? ORDER BY id`, layerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query layer polygons: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	return scanPolygons(rows)
}

// UpdatePolygon applies a partial update. When coordinates change without
// an explicit size, the stored area is recomputed from the new ring.
func (s *Storage) UpdatePolygon(ctx context.Context, id int64, updates models.PolygonUpdates) (*models.Polygon, error) {
	query := `UPDATE polygons SET updated_at = ?`
	args := []any{time.Now().Unix()}

	if updates.Name != nil {
		query += `, name = ?`
		args = append(args, *updates.Name)
	}
	if updates.Color != nil {
		query += `, color = ?`
		args = append(args, *updates.Color)
	}
	if updates.LayerID != nil {
		query += `, layer_id = ?`
		args = append(args, *updates.LayerID)
	}
	if updates.SizeKm2 != nil {
		query += `, size_km2 = ?`
		args = append(args, *updates.SizeKm2)
	}
	if len(updates.Coordinates) > 0 {
		geometryJSON, err := marshalGeometry(updates.Coordinates)
		if err != nil {
			return nil, fmt.Errorf("failed to encode geometry: %w", err)
		}
		query += `, geometry_json = ?`
		args = append(args, geometryJSON)

		if updates.SizeKm2 == nil {
			query += `, size_km2 = ?`
			args = append(args, geo.SizeKm2(updates.Coordinates))
		}
	}

	query += ` WHERE id = ?`
	args = append(args, id)

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update polygon: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return nil, storage.ErrPolygonNotFound
	}

	return s.Polygon(ctx, id)
}

// DeletePolygon removes a polygon.
func (s *Storage) DeletePolygon(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM polygons WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete polygon: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return storage.ErrPolygonNotFound
	}
	return nil
}

// PolygonsInBounds returns polygons having at least one vertex inside the
// box. SQLite has no spatial index here, so filtering happens in memory.
func (s *Storage) PolygonsInBounds(ctx context.Context, bounds models.MapBounds) ([]models.Polygon, error) {
	all, err := s.Polygons(ctx)
	if err != nil {
		return nil, err
	}

	matched := make([]models.Polygon, 0)
	for _, polygon := range all {
		for _, point := range polygon.Coordinates {
			if bounds.Contains(point) {
				matched = append(matched, polygon)
				break
			}
		}
	}
	return matched, nil
}

// marshalGeometry wraps the ring in a GeoJSON Polygon document.
func marshalGeometry(coords models.Coordinates) (string, error) {
	ring := make(orb.Ring, 0, len(coords))
	for i, point := range coords {
		if len(point) != 2 {
			return "", fmt.Errorf("invalid coordinate at index %d", i)
		}
		ring = append(ring, orb.Point{point[0], point[1]})
	}

	data, err := json.Marshal(geojson.NewGeometry(orb.Polygon{ring}))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// unmarshalGeometry extracts the outer ring back out of the stored
// document.
func unmarshalGeometry(geometryJSON string) (models.Coordinates, error) {
	geometry, err := geojson.UnmarshalGeometry([]byte(geometryJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to decode geometry: %w", err)
	}

	polygon, ok := geometry.Geometry().(orb.Polygon)
	if !ok || len(polygon) == 0 {
		return nil, fmt.Errorf("geometry is not a polygon")
	}

	coords := make(models.Coordinates, 0, len(polygon[0]))
	for _, point := range polygon[0] {
		coords = append(coords, []float64{point[0], point[1]})
	}
	return coords, nil
}

func scanPolygons(rows *sql.Rows) ([]models.Polygon, error) {
	polygons := make([]models.Polygon, 0)
	for rows.Next() {
		polygon, err := scanPolygon(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan polygon: %w", err)
		}
		polygons = append(polygons, *polygon)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return polygons, nil
}

func scanPolygon(scan func(dest ...any) error) (*models.Polygon, error) {
	var (
		polygon              models.Polygon
		geometryJSON         string
		createdAt, updatedAt int64
	)

	err := scan(
		&polygon.ID,
		&polygon.LayerID,
		&polygon.Name,
		&polygon.Color,
		&polygon.SizeKm2,
		&geometryJSON,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	coords, err := unmarshalGeometry(geometryJSON)
	if err != nil {
		return nil, err
	}

	polygon.Coordinates = coords
	polygon.CreatedAt = time.Unix(createdAt, 0).UTC()
	polygon.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &polygon, nil
}
