package memory

import (
	"context"
	"sync"
	"time"

	"github.com/aretw0/authtree/pkg/domain"
)

type entry struct {
	state     *domain.TreeState
	expiresAt time.Time
}

// Store implements ports.StateStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]entry
	mu   sync.RWMutex
	ttl  time.Duration
	now  func() time.Time
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithTTL makes sessions expire ttl after their last save.
func WithTTL(ttl time.Duration) StoreOption {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore creates a new in-memory store.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		data: make(map[string]entry),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save persists the state in memory.
func (s *Store) Save(_ context.Context, handle string, state *domain.TreeState) error {
	// Deep copy to ensure isolation, similar to serialization
	copied := state.Clone()
	copied.Transient = nil

	e := entry{state: copied}
	if s.ttl > 0 {
		e.expiresAt = s.now().Add(s.ttl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[handle] = e
	return nil
}

// Load retrieves the state from memory.
func (s *Store) Load(_ context.Context, handle string) (*domain.TreeState, error) {
	s.mu.RLock()
	e, ok := s.data[handle]
	s.mu.RUnlock()

	if !ok || s.expired(e) {
		return nil, domain.ErrSessionNotFound
	}

	// Copy on read so the caller can't mutate store state directly by pointer
	return e.state.Clone(), nil
}

// Delete removes the state.
func (s *Store) Delete(_ context.Context, handle string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, handle)
	return nil
}

// List returns all live session handles and drops expired ones.
func (s *Store) List(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	handles := make([]string, 0, len(s.data))
	for k, e := range s.data {
		if s.expired(e) {
			delete(s.data, k)
			continue
		}
		handles = append(handles, k)
	}
	return handles, nil
}

func (s *Store) expired(e entry) bool {
	return !e.expiresAt.IsZero() && !s.now().Before(e.expiresAt)
}
