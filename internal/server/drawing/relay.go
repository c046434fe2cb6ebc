// Package drawing stores the in-progress free-hand drawing of each session
// so it can be rebroadcast to every other client. Owned by the hub loop.
package drawing

import (
	"time"

	"github.com/iudanet/mapsync/internal/models"
	"github.com/iudanet/mapsync/pkg/api"
)

// Snapshot is the current uncommitted point sequence of one session.
type Snapshot struct {
	OwnerID     string
	Username    string
	Points      models.Coordinates
	IsCompleted bool
	UpdatedAt   int64 // unix milliseconds
}

// Update converts the snapshot to its wire representation.
func (s *Snapshot) Update() api.DrawingUpdate {
	return api.DrawingUpdate{
		UserID:      s.OwnerID,
		Username:    s.Username,
		Points:      s.Points,
		IsCompleted: s.IsCompleted,
		Timestamp:   s.UpdatedAt,
	}
}

// Relay keeps one snapshot per owning session.
type Relay struct {
	snapshots map[string]*Snapshot
	now       func() time.Time
}

func NewRelay() *Relay {
	return &Relay{
		snapshots: make(map[string]*Snapshot),
		now:       time.Now,
	}
}

// All returns every live snapshot.
func (r *Relay) All() []*Snapshot {
	out := make([]*Snapshot, 0, len(r.snapshots))
	for _, s := range r.snapshots {
		out = append(out, s)
	}
	return out
}

// Get looks up the snapshot owned by a session.
func (r *Relay) Get(ownerID string) (*Snapshot, bool) {
	s, ok := r.snapshots[ownerID]
	return s, ok
}

// Replace stores a fresh snapshot for the owner, stamping it with the
// current time.
func (r *Relay) Replace(ownerID, username string, points models.Coordinates, isCompleted bool) *Snapshot {
	s := &Snapshot{
		OwnerID:     ownerID,
		Username:    username,
		Points:      points,
		IsCompleted: isCompleted,
		UpdatedAt:   r.now().UnixMilli(),
	}
	r.snapshots[ownerID] = s
	return s
}

// MutatePoint applies a single point edit to the owner's snapshot and
// stores the result as an in-progress drawing. Out-of-range indexes are a
// no-op on the point list; a missing snapshot returns ok=false and nothing
// is stored.
func (r *Relay) MutatePoint(ownerID string, action api.PointAction, index *int, point []float64) (*Snapshot, bool) {
	current, ok := r.snapshots[ownerID]
	if !ok {
		return nil, false
	}

	points := make(models.Coordinates, len(current.Points))
	copy(points, current.Points)

	switch action {
	case api.PointAdd:
		if point != nil {
			points = append(points, point)
		}
	case api.PointEdit:
		if index != nil && point != nil && *index >= 0 && *index < len(points) {
			points[*index] = point
		}
	case api.PointDelete:
		if index != nil && *index >= 0 && *index < len(points) {
			points = append(points[:*index], points[*index+1:]...)
		}
	}

	return r.Replace(ownerID, current.Username, points, false), true
}

// Complete marks the snapshot finished. Returns ok=false when the owner has
// no snapshot.
func (r *Relay) Complete(ownerID string) (*Snapshot, bool) {
	s, ok := r.snapshots[ownerID]
	if !ok {
		return nil, false
	}
	s.IsCompleted = true
	s.UpdatedAt = r.now().UnixMilli()
	return s, true
}

// Remove deletes the owner's snapshot; used on disconnect and after a
// successful polygon save.
func (r *Relay) Remove(ownerID string) bool {
	_, ok := r.snapshots[ownerID]
	delete(r.snapshots, ownerID)
	return ok
}

// Len returns the number of live snapshots.
func (r *Relay) Len() int { return len(r.snapshots) }
