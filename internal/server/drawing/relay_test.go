package drawing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/mapsync/internal/models"
	"github.com/iudanet/mapsync/pkg/api"
)

func intPtr(i int) *int { return &i }

func TestRelay_ReplaceAndGet(t *testing.T) {
	r := NewRelay()
	now := time.UnixMilli(1700000000000)
	r.now = func() time.Time { return now }

	points := models.Coordinates{{0, 0}, {1, 1}}
	snap := r.Replace("conn-1", "alice", points, false)

	assert.Equal(t, "conn-1", snap.OwnerID)
	assert.Equal(t, "alice", snap.Username)
	assert.Equal(t, points, snap.Points)
	assert.False(t, snap.IsCompleted)
	assert.Equal(t, now.UnixMilli(), snap.UpdatedAt)

	got, ok := r.Get("conn-1")
	require.True(t, ok)
	assert.Equal(t, snap, got)

	_, ok = r.Get("conn-2")
	assert.False(t, ok)
}

func TestRelay_MutatePoint(t *testing.T) {
	base := models.Coordinates{{0, 0}, {1, 1}, {2, 2}}

	setup := func() *Relay {
		r := NewRelay()
		r.Replace("conn-1", "alice", base, true)
		return r
	}

	t.Run("add appends", func(t *testing.T) {
		r := setup()
		snap, ok := r.MutatePoint("conn-1", api.PointAdd, nil, []float64{3, 3})
		require.True(t, ok)
		assert.Equal(t, models.Coordinates{{0, 0}, {1, 1}, {2, 2}, {3, 3}}, snap.Points)
	})

	t.Run("add without point keeps list", func(t *testing.T) {
		r := setup()
		snap, ok := r.MutatePoint("conn-1", api.PointAdd, nil, nil)
		require.True(t, ok)
		assert.Equal(t, base, snap.Points)
	})

	t.Run("edit replaces at index", func(t *testing.T) {
		r := setup()
		snap, ok := r.MutatePoint("conn-1", api.PointEdit, intPtr(1), []float64{9, 9})
		require.True(t, ok)
		assert.Equal(t, models.Coordinates{{0, 0}, {9, 9}, {2, 2}}, snap.Points)
	})

	t.Run("delete removes at index", func(t *testing.T) {
		r := setup()
		snap, ok := r.MutatePoint("conn-1", api.PointDelete, intPtr(1), nil)
		require.True(t, ok)
		assert.Equal(t, models.Coordinates{{0, 0}, {2, 2}}, snap.Points)
	})

	t.Run("out of range index is a no-op", func(t *testing.T) {
		r := setup()
		snap, ok := r.MutatePoint("conn-1", api.PointDelete, intPtr(10), nil)
		require.True(t, ok)
		assert.Equal(t, base, snap.Points)
	})

	t.Run("mutation resets completion", func(t *testing.T) {
		r := setup()
		snap, ok := r.MutatePoint("conn-1", api.PointAdd, nil, []float64{3, 3})
		require.True(t, ok)
		assert.False(t, snap.IsCompleted, "a mutated drawing is in progress again")
	})

	t.Run("missing snapshot", func(t *testing.T) {
		r := NewRelay()
		_, ok := r.MutatePoint("nobody", api.PointAdd, nil, []float64{0, 0})
		assert.False(t, ok)
		assert.Equal(t, 0, r.Len())
	})

	t.Run("original snapshot points are untouched", func(t *testing.T) {
		r := NewRelay()
		points := models.Coordinates{{0, 0}, {1, 1}}
		r.Replace("conn-1", "alice", points, false)
		_, ok := r.MutatePoint("conn-1", api.PointEdit, intPtr(0), []float64{5, 5})
		require.True(t, ok)
		assert.Equal(t, models.Coordinates{{0, 0}, {1, 1}}, points)
	})
}

func TestRelay_Complete(t *testing.T) {
	r := NewRelay()
	r.Replace("conn-1", "alice", models.Coordinates{{0, 0}}, false)

	snap, ok := r.Complete("conn-1")
	require.True(t, ok)
	assert.True(t, snap.IsCompleted)

	_, ok = r.Complete("conn-2")
	assert.False(t, ok)
}

func TestRelay_Remove(t *testing.T) {
	r := NewRelay()
	r.Replace("conn-1", "alice", models.Coordinates{{0, 0}}, false)

	assert.True(t, r.Remove("conn-1"))
	assert.False(t, r.Remove("conn-1"))
	assert.Equal(t, 0, r.Len())
}

func TestSnapshot_Update(t *testing.T) {
	s := &Snapshot{
		OwnerID:     "conn-1",
		Username:    "alice",
		Points:      models.Coordinates{{0, 0}},
		IsCompleted: true,
		UpdatedAt:   123,
	}

	update := s.Update()
	assert.Equal(t, api.DrawingUpdate{
		UserID:      "conn-1",
		Username:    "alice",
		Points:      models.Coordinates{{0, 0}},
		IsCompleted: true,
		Timestamp:   123,
	}, update)
}
