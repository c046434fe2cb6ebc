// Package presence tracks connected sessions and the one-session-per-username
// rule. The registry is not goroutine safe: it is owned and mutated only by
// the hub's event loop.
package presence

import (
	"sort"
	"time"

	"github.com/iudanet/mapsync/internal/models"
	"github.com/iudanet/mapsync/pkg/api"
)

// Session is one live connection and its identity/activity state.
type Session struct {
	ID         string
	Username   string
	IsOnline   bool
	LastActive time.Time
	Activity   *models.Activity

	// joinSeq orders sessions so the username projection can keep the
	// most recent one when duplicates coexist transiently.
	joinSeq uint64
}

// Registry maps connection ids to sessions and usernames to their current
// connection.
type Registry struct {
	sessions map[string]*Session
	byName   map[string]string
	seq      uint64
	now      func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		byName:   make(map[string]string),
		now:      time.Now,
	}
}

// Join installs a session for connID under username. When the username is
// already bound to a different live connection that older session is removed
// and returned so the caller can force-disconnect it: last join wins.
func (r *Registry) Join(connID, username string) (sess, evicted *Session) {
	if existingID, ok := r.byName[username]; ok && existingID != connID {
		evicted = r.sessions[existingID]
		delete(r.sessions, existingID)
	}

	r.seq++
	sess = &Session{
		ID:         connID,
		Username:   username,
		IsOnline:   true,
		LastActive: r.now(),
		joinSeq:    r.seq,
	}
	r.sessions[connID] = sess
	r.byName[username] = connID
	return sess, evicted
}

// Get returns the session for a connection id, or nil.
func (r *Registry) Get(connID string) *Session {
	return r.sessions[connID]
}

// Disconnect removes the session and, when it still owns its username
// mapping, that mapping too. Returns the removed session, or nil for
// connections that never joined.
func (r *Registry) Disconnect(connID string) *Session {
	sess, ok := r.sessions[connID]
	if !ok {
		return nil
	}
	delete(r.sessions, connID)
	if r.byName[sess.Username] == connID {
		delete(r.byName, sess.Username)
	}
	return sess
}

// SetActivity mutates the session activity; nil clears it. Reports whether
// the connection had a session.
func (r *Registry) SetActivity(connID string, activity *models.Activity) bool {
	sess, ok := r.sessions[connID]
	if !ok {
		return false
	}
	sess.Activity = activity
	sess.LastActive = r.now()
	return true
}

// Snapshot projects the sessions into one presence entry per unique
// username. If duplicate usernames coexist, the most recently joined
// session wins. Entries are ordered by join time.
func (r *Registry) Snapshot() []api.PresenceEntry {
	latest := make(map[string]*Session, len(r.sessions))
	for _, sess := range r.sessions {
		if cur, ok := latest[sess.Username]; !ok || sess.joinSeq > cur.joinSeq {
			latest[sess.Username] = sess
		}
	}

	entries := make([]*Session, 0, len(latest))
	for _, sess := range latest {
		entries = append(entries, sess)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].joinSeq < entries[j].joinSeq })

	out := make([]api.PresenceEntry, 0, len(entries))
	for _, sess := range entries {
		out = append(out, api.PresenceEntry{
			ID:         sess.ID,
			Username:   sess.Username,
			IsOnline:   sess.IsOnline,
			LastActive: sess.LastActive,
			Activity:   sess.Activity,
		})
	}
	return out
}

// Len returns the number of live sessions (not unique usernames).
func (r *Registry) Len() int { return len(r.sessions) }
