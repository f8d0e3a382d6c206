// Package session tracks in-progress casino games in memory, keyed by a
// generated id. Sessions live until a game removes them or the process exits.
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrNotFound is returned when no session matches the id.
var ErrNotFound = errors.New("session not found")

// Store holds live sessions of one game type.
type Store[S any] interface {
	Get(id string) (S, bool)
	Put(id string, s S)
	Remove(id string) bool
	Len() int
	// WithSession runs fn while holding the session's lock. Two calls for
	// the same id never overlap.
	WithSession(id string, fn func(S) error) error
}

type entry[S any] struct {
	mu      sync.Mutex
	value   S
	touched time.Time
}

// MemoryStore is a process-local Store. The map lock only guards
// membership; each session carries its own mutex.
type MemoryStore[S any] struct {
	mu       sync.RWMutex
	sessions map[string]*entry[S]
	now      func() time.Time
}

// NewMemoryStore creates an empty store.
func NewMemoryStore[S any]() *MemoryStore[S] {
	return &MemoryStore[S]{
		sessions: make(map[string]*entry[S]),
		now:      time.Now,
	}
}

// Get returns the session for id.
func (m *MemoryStore[S]) Get(id string) (S, bool) {
	m.mu.RLock()
	e, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		var zero S
		return zero, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.value, true
}

// Put stores s under id, replacing any previous session.
func (m *MemoryStore[S]) Put(id string, s S) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[id] = &entry[S]{value: s, touched: m.now()}
}

// Remove deletes the session. Returns false if it was not present.
func (m *MemoryStore[S]) Remove(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return false
	}
	delete(m.sessions, id)
	return true
}

// Len returns the number of live sessions.
func (m *MemoryStore[S]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// WithSession implements Store.
func (m *MemoryStore[S]) WithSession(id string, fn func(S) error) error {
	m.mu.RLock()
	e, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.touched = m.now()
	return fn(e.value)
}

// Sweep removes sessions untouched for longer than maxIdle and returns how
// many were dropped. Nothing calls it unless an idle policy is configured.
func (m *MemoryStore[S]) Sweep(maxIdle time.Duration) int {
	cutoff := m.now().Add(-maxIdle)

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, e := range m.sessions {
		if !e.mu.TryLock() {
			// In use right now, so not idle
			continue
		}
		if e.touched.Before(cutoff) {
			delete(m.sessions, id)
			removed++
		}
		e.mu.Unlock()
	}
	return removed
}

// NewID builds a session id of the form "<game>_<user>_<unix-nanos>".
func NewID(gameType, userID string, now time.Time) string {
	return fmt.Sprintf("%s_%s_%d", gameType, userID, now.UnixNano())
}
