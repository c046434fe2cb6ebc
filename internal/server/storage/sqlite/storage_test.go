package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/mapsync/internal/models"
	"github.com/iudanet/mapsync/internal/server/storage"
)

func setupStorage(t *testing.T) *Storage {
	t.Helper()

	ctx := context.Background()
	s, err := New(ctx, filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)

	t.Cleanup(func() {
		assert.NoError(t, s.Close())
	})
	return s
}

var testRing = models.Coordinates{{37.6, 55.7}, {37.7, 55.7}, {37.7, 55.8}, {37.6, 55.8}}

func TestStorage_LayerCRUD(t *testing.T) {
	ctx := context.Background()
	s := setupStorage(t)

	layer, err := s.SaveLayer(ctx, "Districts")
	require.NoError(t, err)
	assert.Positive(t, layer.ID)
	assert.Equal(t, "Districts", layer.Name)
	assert.False(t, layer.CreatedAt.IsZero())

	got, err := s.Layer(ctx, layer.ID)
	require.NoError(t, err)
	assert.Equal(t, layer, got)

	renamed, err := s.UpdateLayer(ctx, layer.ID, "Regions")
	require.NoError(t, err)
	assert.Equal(t, "Regions", renamed.Name)

	layers, err := s.Layers(ctx)
	require.NoError(t, err)
	require.Len(t, layers, 1)
	assert.Equal(t, "Regions", layers[0].Name)

	require.NoError(t, s.DeleteLayer(ctx, layer.ID))

	_, err = s.Layer(ctx, layer.ID)
	assert.ErrorIs(t, err, storage.ErrLayerNotFound)
}

func TestStorage_LayerNotFound(t *testing.T) {
	ctx := context.Background()
	s := setupStorage(t)

	_, err := s.Layer(ctx, 42)
	assert.ErrorIs(t, err, storage.ErrLayerNotFound)

	_, err = s.UpdateLayer(ctx, 42, "name")
	assert.ErrorIs(t, err, storage.ErrLayerNotFound)

	assert.ErrorIs(t, s.DeleteLayer(ctx, 42), storage.ErrLayerNotFound)
}

func TestStorage_PolygonCRUD(t *testing.T) {
	ctx := context.Background()
	s := setupStorage(t)

	layer, err := s.SaveLayer(ctx, "Districts")
	require.NoError(t, err)

	polygon, err := s.SavePolygon(ctx, models.PolygonInput{
		LayerID:     layer.ID,
		Name:        "Center",
		Color:       "#ff0000",
		Coordinates: testRing,
	})
	require.NoError(t, err)
	assert.Positive(t, polygon.ID)
	assert.Equal(t, layer.ID, polygon.LayerID)
	assert.Equal(t, testRing, polygon.Coordinates, "geometry survives the roundtrip")
	assert.Positive(t, polygon.SizeKm2, "area computed when not supplied")

	got, err := s.Polygon(ctx, polygon.ID)
	require.NoError(t, err)
	assert.Equal(t, polygon, got)

	byLayer, err := s.PolygonsByLayer(ctx, layer.ID)
	require.NoError(t, err)
	require.Len(t, byLayer, 1)

	require.NoError(t, s.DeletePolygon(ctx, polygon.ID))
	_, err = s.Polygon(ctx, polygon.ID)
	assert.ErrorIs(t, err, storage.ErrPolygonNotFound)
}

func TestStorage_SavePolygon_ExplicitSizeWins(t *testing.T) {
	ctx := context.Background()
	s := setupStorage(t)

	layer, err := s.SaveLayer(ctx, "L")
	require.NoError(t, err)

	size := 3.5
	polygon, err := s.SavePolygon(ctx, models.PolygonInput{
		LayerID:     layer.ID,
		Name:        "P",
		Color:       "#000000",
		Coordinates: testRing,
		SizeKm2:     &size,
	})
	require.NoError(t, err)
	assert.Equal(t, 3.5, polygon.SizeKm2)
}

func TestStorage_SavePolygon_TooFewPoints(t *testing.T) {
	ctx := context.Background()
	s := setupStorage(t)

	layer, err := s.SaveLayer(ctx, "L")
	require.NoError(t, err)

	_, err = s.SavePolygon(ctx, models.PolygonInput{
		LayerID:     layer.ID,
		Name:        "P",
		Color:       "#000000",
		Coordinates: models.Coordinates{{0, 0}, {1, 1}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 3 points")
}

func TestStorage_UpdatePolygon(t *testing.T) {
	ctx := context.Background()
	s := setupStorage(t)

	layer, err := s.SaveLayer(ctx, "L")
	require.NoError(t, err)
	polygon, err := s.SavePolygon(ctx, models.PolygonInput{
		LayerID: layer.ID, Name: "P", Color: "#000000", Coordinates: testRing,
	})
	require.NoError(t, err)

	t.Run("partial update keeps other fields", func(t *testing.T) {
		name := "Renamed"
		updated, err := s.UpdatePolygon(ctx, polygon.ID, models.PolygonUpdates{Name: &name})
		require.NoError(t, err)
		assert.Equal(t, "Renamed", updated.Name)
		assert.Equal(t, "#000000", updated.Color)
		assert.Equal(t, testRing, updated.Coordinates)
	})

	t.Run("coordinate change recomputes size", func(t *testing.T) {
		before, err := s.Polygon(ctx, polygon.ID)
		require.NoError(t, err)

		bigger := models.Coordinates{{37, 55}, {38, 55}, {38, 56}, {37, 56}}
		updated, err := s.UpdatePolygon(ctx, polygon.ID, models.PolygonUpdates{Coordinates: bigger})
		require.NoError(t, err)
		assert.Equal(t, bigger, updated.Coordinates)
		assert.Greater(t, updated.SizeKm2, before.SizeKm2)
	})

	t.Run("explicit size is not recomputed", func(t *testing.T) {
		size := 1.25
		updated, err := s.UpdatePolygon(ctx, polygon.ID, models.PolygonUpdates{
			Coordinates: testRing,
			SizeKm2:     &size,
		})
		require.NoError(t, err)
		assert.Equal(t, 1.25, updated.SizeKm2)
	})

	t.Run("unknown id", func(t *testing.T) {
		name := "x"
		_, err := s.UpdatePolygon(ctx, 9999, models.PolygonUpdates{Name: &name})
		assert.ErrorIs(t, err, storage.ErrPolygonNotFound)
	})
}

func TestStorage_DeleteLayer_CascadesToPolygons(t *testing.T) {
	ctx := context.Background()
	s := setupStorage(t)

	keep, err := s.SaveLayer(ctx, "keep")
	require.NoError(t, err)
	drop, err := s.SaveLayer(ctx, "drop")
	require.NoError(t, err)

	_, err = s.SavePolygon(ctx, models.PolygonInput{LayerID: keep.ID, Name: "a", Color: "#111111", Coordinates: testRing})
	require.NoError(t, err)
	_, err = s.SavePolygon(ctx, models.PolygonInput{LayerID: drop.ID, Name: "b", Color: "#222222", Coordinates: testRing})
	require.NoError(t, err)
	_, err = s.SavePolygon(ctx, models.PolygonInput{LayerID: drop.ID, Name: "c", Color: "#333333", Coordinates: testRing})
	require.NoError(t, err)

	require.NoError(t, s.DeleteLayer(ctx, drop.ID))

	all, err := s.Polygons(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, keep.ID, all[0].LayerID)
}

func TestStorage_PolygonsInBounds(t *testing.T) {
	ctx := context.Background()
	s := setupStorage(t)

	layer, err := s.SaveLayer(ctx, "L")
	require.NoError(t, err)

	inside, err := s.SavePolygon(ctx, models.PolygonInput{
		LayerID: layer.ID, Name: "moscow", Color: "#111111",
		Coordinates: models.Coordinates{{37.5, 55.7}, {37.7, 55.7}, {37.7, 55.8}},
	})
	require.NoError(t, err)

	_, err = s.SavePolygon(ctx, models.PolygonInput{
		LayerID: layer.ID, Name: "sydney", Color: "#222222",
		Coordinates: models.Coordinates{{151.1, -33.9}, {151.3, -33.9}, {151.3, -33.8}},
	})
	require.NoError(t, err)

	// One vertex inside the box is enough.
	straddling, err := s.SavePolygon(ctx, models.PolygonInput{
		LayerID: layer.ID, Name: "edge", Color: "#333333",
		Coordinates: models.Coordinates{{37.6, 55.75}, {50, 60}, {51, 61}},
	})
	require.NoError(t, err)

	matched, err := s.PolygonsInBounds(ctx, models.MapBounds{
		North: 56, South: 55, East: 38, West: 37,
	})
	require.NoError(t, err)

	ids := make([]int64, 0, len(matched))
	for _, p := range matched {
		ids = append(ids, p.ID)
	}
	assert.ElementsMatch(t, []int64{inside.ID, straddling.ID}, ids)
}
