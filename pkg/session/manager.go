package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"log/slog"

	"github.com/aretw0/authtree/internal/logging"
	"github.com/aretw0/authtree/pkg/domain"
	"github.com/aretw0/authtree/pkg/ports"
	"github.com/google/uuid"
)

// DefaultLockTTL bounds how long a crashed replica can hold a distributed lock.
const DefaultLockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager orchestrates access to the session vault, serializing work on the
// same handle. It uses reference counting to garbage collect unused locks.
type Manager struct {
	store ports.StateStore

	mu    sync.Mutex            // Global lock for the map
	locks map[string]*lockEntry // Map of active locks

	locker  ports.DistributedLocker // Optional distributed locker
	lockTTL time.Duration
	logger  *slog.Logger // Logger for internal events (like deferred errors)
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking across replicas.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the distributed lock expiry.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.lockTTL = ttl
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a new session manager over the given vault store.
func NewManager(store ports.StateStore, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		locks:   make(map[string]*lockEntry),
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(), // Default to no-op
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// NewHandle allocates an unguessable session handle.
func NewHandle() string {
	return uuid.NewString()
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(handle) after unlocking.
func (m *Manager) acquire(handle string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[handle]
	if !exists {
		entry = &lockEntry{}
		m.locks[handle] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(handle string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[handle]
	if !exists {
		return // Should not happen if paired correctly
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, handle)
	}
}

// Create stores state under a fresh handle and returns it.
func (m *Manager) Create(ctx context.Context, state *domain.TreeState) (string, error) {
	handle := NewHandle()
	if err := m.Save(ctx, handle, state); err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}
	return handle, nil
}

// Load retrieves an existing session from the store.
func (m *Manager) Load(ctx context.Context, handle string) (*domain.TreeState, error) {
	var state *domain.TreeState
	err := m.WithLock(ctx, handle, func(ctx context.Context) error {
		var err error
		state, err = m.store.Load(ctx, handle)
		return err
	})
	return state, err
}

// Save persists the session state.
func (m *Manager) Save(ctx context.Context, handle string, state *domain.TreeState) error {
	return m.WithLock(ctx, handle, func(ctx context.Context) error {
		return m.store.Save(ctx, handle, state)
	})
}

// Delete removes the session from the store.
func (m *Manager) Delete(ctx context.Context, handle string) error {
	return m.WithLock(ctx, handle, func(ctx context.Context) error {
		return m.store.Delete(ctx, handle)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying state store. Use it inside WithLock, where the
// Manager's own methods would deadlock.
func (m *Manager) Store() ports.StateStore {
	return m.store
}

// WithLock executes fn while holding the lock for the handle.
func (m *Manager) WithLock(ctx context.Context, handle string, fn func(context.Context) error) error {
	entry := m.acquire(handle)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(handle)
	}()

	// Distributed Locking
	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, handle, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			// Release even if ctx was cancelled mid-flight.
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"handle", handle,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
