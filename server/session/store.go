package session

import (
	"sync"
	"time"
)

// Store is the narrow interface between the registry and whatever holds the
// session records. The in-process map is the only implementation today; the
// interface exists so that a shared external store can be swapped in without
// touching the registry's callers.
type Store interface {
	Get(sessionID string) *Data
	Set(sessionID string, data *Data)
	// Touch bumps LastAccessedAt and returns a copy of the session, or nil
	// if it doesn't exist. The bump happens under the store's lock, so a
	// concurrent Delete or Sweep can never be undone by a touch.
	Touch(sessionID string, now time.Time) *Data
	Delete(sessionID string) bool
	// Sweep removes every session whose LastAccessedAt is older than cutoff,
	// and returns the number removed.
	Sweep(cutoff time.Time) int
	// Snapshot returns a copy of all sessions. Used for stats and bulk operations.
	Snapshot() []*Data
}

type memStore struct {
	lock     sync.Mutex
	sessions map[string]*Data
}

func NewMemStore() Store {
	return &memStore{
		sessions: map[string]*Data{},
	}
}

func (m *memStore) Get(sessionID string) *Data {
	m.lock.Lock()
	defer m.lock.Unlock()
	d := m.sessions[sessionID]
	if d == nil {
		return nil
	}
	copied := *d
	return &copied
}

func (m *memStore) Touch(sessionID string, now time.Time) *Data {
	m.lock.Lock()
	defer m.lock.Unlock()
	d := m.sessions[sessionID]
	if d == nil {
		return nil
	}
	d.LastAccessedAt = now
	copied := *d
	return &copied
}

func (m *memStore) Set(sessionID string, data *Data) {
	m.lock.Lock()
	defer m.lock.Unlock()
	copied := *data
	m.sessions[sessionID] = &copied
}

func (m *memStore) Delete(sessionID string) bool {
	m.lock.Lock()
	defer m.lock.Unlock()
	_, exists := m.sessions[sessionID]
	delete(m.sessions, sessionID)
	return exists
}

func (m *memStore) Sweep(cutoff time.Time) int {
	// One full-table scan while holding the lock, nothing more.
	m.lock.Lock()
	defer m.lock.Unlock()
	removed := 0
	for id, d := range m.sessions {
		if d.LastAccessedAt.Before(cutoff) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

func (m *memStore) Snapshot() []*Data {
	m.lock.Lock()
	defer m.lock.Unlock()
	all := make([]*Data, 0, len(m.sessions))
	for _, d := range m.sessions {
		copied := *d
		all = append(all, &copied)
	}
	return all
}
