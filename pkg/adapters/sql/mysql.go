package sql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

var mysqlDialect = dialect{
	name: "mysql",
	schema: `
		CREATE TABLE IF NOT EXISTS authtree_sessions (
			handle VARCHAR(64) NOT NULL PRIMARY KEY,
			tree VARCHAR(255) NOT NULL,
			state LONGTEXT NOT NULL,
			expires_at BIGINT NOT NULL DEFAULT 0,
			updated_at BIGINT NOT NULL,
			INDEX idx_authtree_sessions_expires (expires_at)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	upsert: `
		INSERT INTO authtree_sessions (handle, tree, state, expires_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			tree = VALUES(tree),
			state = VALUES(state),
			expires_at = VALUES(expires_at),
			updated_at = VALUES(updated_at)`,
}

// NewMySQL connects to MySQL using a go-sql-driver DSN,
// e.g. "user:pass@tcp(localhost:3306)/authtree".
func NewMySQL(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL connection: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	store, err := newStore(ctx, db, mysqlDialect, opts...)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}
