package sql

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

var sqliteDialect = dialect{
	name: "sqlite",
	schema: `
		CREATE TABLE IF NOT EXISTS authtree_sessions (
			handle TEXT PRIMARY KEY,
			tree TEXT NOT NULL,
			state TEXT NOT NULL,
			expires_at INTEGER NOT NULL DEFAULT 0,
			updated_at INTEGER NOT NULL
		)`,
	upsert: `
		INSERT INTO authtree_sessions (handle, tree, state, expires_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(handle) DO UPDATE SET
			tree = excluded.tree,
			state = excluded.state,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at`,
}

// NewSQLite opens (or creates) a SQLite database at path.
// Use ":memory:" for a throwaway database.
func NewSQLite(ctx context.Context, path string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite connection: %w", err)
	}

	// SQLite supports one writer at a time; a single connection also keeps
	// ":memory:" databases alive across calls.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	store, err := newStore(ctx, db, sqliteDialect, opts...)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}
