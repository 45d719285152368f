// Package sql provides a database/sql backed StateStore for SQLite and MySQL.
//
// Both dialects share one table:
//
//	authtree_sessions(handle, tree, state, expires_at, updated_at)
//
// expires_at is a unix timestamp; zero means the record never expires.
// Expired rows are invisible to Load and List and are pruned lazily on List.
package sql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aretw0/authtree/pkg/domain"
)

type dialect struct {
	name   string
	schema string
	upsert string
}

// Store implements ports.StateStore on top of database/sql.
type Store struct {
	db      *sql.DB
	dialect dialect
	ttl     time.Duration
	now     func() time.Time

	mu     sync.RWMutex
	closed bool
}

// Option configures a Store.
type Option func(*Store)

// WithTTL makes saved records expire after ttl.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithClock overrides the time source used for expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

func newStore(ctx context.Context, db *sql.DB, d dialect, opts ...Option) (*Store, error) {
	s := &Store{db: db, dialect: d, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	if _, err := db.ExecContext(ctx, d.schema); err != nil {
		return nil, fmt.Errorf("failed to create %s session table: %w", d.name, err)
	}
	return s, nil
}

func (s *Store) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return errors.New("store is closed")
	}
	return nil
}

func (s *Store) expiresAt() int64 {
	if s.ttl <= 0 {
		return 0
	}
	return s.now().Add(s.ttl).Unix()
}

// Save upserts the record for handle.
func (s *Store) Save(ctx context.Context, handle string, state *domain.TreeState) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if handle == "" {
		return fmt.Errorf("session handle cannot be empty")
	}

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	_, err = s.db.ExecContext(ctx, s.dialect.upsert,
		handle, state.TreeName, string(data), s.expiresAt(), s.now().Unix())
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Load returns the live record for handle or domain.ErrSessionNotFound.
func (s *Store) Load(ctx context.Context, handle string) (*domain.TreeState, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT state FROM authtree_sessions WHERE handle = ? AND (expires_at = 0 OR expires_at > ?)`,
		handle, s.now().Unix(),
	).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var state domain.TreeState
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session state: %w", err)
	}
	return &state, nil
}

// Delete removes the record. Deleting a missing handle is not an error.
func (s *Store) Delete(ctx context.Context, handle string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM authtree_sessions WHERE handle = ?`, handle); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// List prunes expired rows and returns the remaining handles.
func (s *Store) List(ctx context.Context) ([]string, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	now := s.now().Unix()
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM authtree_sessions WHERE expires_at <> 0 AND expires_at <= ?`, now); err != nil {
		return nil, fmt.Errorf("failed to prune expired sessions: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT handle FROM authtree_sessions ORDER BY handle`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	handles := []string{}
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, fmt.Errorf("failed to scan session handle: %w", err)
		}
		handles = append(handles, h)
	}
	return handles, rows.Err()
}

// Ping verifies the database connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	return s.db.PingContext(ctx)
}

// Close closes the database. Calling it twice is a no-op.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
