// Package editlock grants exclusive editing rights over polygons. Like the
// presence registry it is mutated only by the hub's event loop and needs no
// internal locking.
package editlock

// Lock records which session currently edits a polygon.
type Lock struct {
	PolygonID      int64
	HolderID       string
	HolderUsername string
}

// Manager holds at most one lock per polygon id.
type Manager struct {
	locks map[int64]Lock
}

func NewManager() *Manager {
	return &Manager{locks: make(map[int64]Lock)}
}

// Start installs the session as the lock holder, overwriting any prior
// holder. There is no negotiated acquisition: the second writer silently
// evicts the first and later coordinate streams from the evicted session
// are rejected by Authorized.
func (m *Manager) Start(polygonID int64, holderID, holderUsername string) {
	m.locks[polygonID] = Lock{
		PolygonID:      polygonID,
		HolderID:       holderID,
		HolderUsername: holderUsername,
	}
}

// End removes the lock regardless of who asks. Save/update/delete paths do
// check holder identity; end-editing deliberately does not, matching the
// wire protocol this replaces.
func (m *Manager) End(polygonID int64) {
	delete(m.locks, polygonID)
}

// Holder returns the current lock for a polygon, if any.
func (m *Manager) Holder(polygonID int64) (Lock, bool) {
	lock, ok := m.locks[polygonID]
	return lock, ok
}

// Authorized reports whether the session may mutate the polygon: true when
// the polygon is unlocked or the session holds the lock.
func (m *Manager) Authorized(polygonID int64, sessionID string) bool {
	lock, ok := m.locks[polygonID]
	return !ok || lock.HolderID == sessionID
}

// ReleaseOwnedBy drops every lock held by the session and returns the
// affected polygon ids so the caller can broadcast editing-ended events.
// Used on disconnect.
func (m *Manager) ReleaseOwnedBy(sessionID string) []int64 {
	var released []int64
	for id, lock := range m.locks {
		if lock.HolderID == sessionID {
			delete(m.locks, id)
			released = append(released, id)
		}
	}
	return released
}

// Len returns the number of held locks.
func (m *Manager) Len() int { return len(m.locks) }
