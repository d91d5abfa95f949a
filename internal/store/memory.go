// internal/store/memory.go
//
// In-memory implementation of the session Store interface.
// Live quiz sessions are ephemeral by design: they exist only for the process
// lifetime, and only finished results are persisted (to SQLite, elsewhere).
//
// Characteristics:
//   - Stores quiz.Session values keyed by ID in a map.
//   - Save replaces the whole value, so a reader always sees a session either
//     before or after a transition, never mid-update.
//   - Concurrency-safe via RWMutex (concurrent reads allowed, writes exclusive).
//   - ErrNotFound is returned for missing session IDs on Get().

package store

import (
	"context"
	"errors"
	"sync"

	"github.com/champquiz/go-server/internal/quiz"
)

// ErrNotFound is returned by Get for unknown session ids.
var ErrNotFound = errors.New("session not found")

// Store defines the keeper of live quiz sessions.
// Implementations may be backed by memory (this package), Redis, etc.
type Store interface {
	// Save persists or replaces a session value.
	Save(ctx context.Context, s quiz.Session) error

	// Get retrieves a session by ID.
	// Returns ErrNotFound if the session does not exist.
	Get(ctx context.Context, id string) (quiz.Session, error)
}

// memory is an in-memory map-based Store implementation.
type memory struct {
	mu       sync.RWMutex            // guards sessions map
	sessions map[string]quiz.Session // keyed by Session.ID
}

// NewMemoryStore constructs a new in-memory Store.
func NewMemoryStore() Store {
	return &memory{sessions: make(map[string]quiz.Session)}
}

// Save adds or replaces the session in the map.
func (m *memory) Save(ctx context.Context, s quiz.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	return nil
}

// Get looks up a session by ID.
func (m *memory) Get(ctx context.Context, id string) (quiz.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.sessions[id]; ok {
		return s, nil
	}
	return quiz.Session{}, ErrNotFound
}
