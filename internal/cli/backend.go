package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/aretw0/authtree/internal/config"
	"github.com/aretw0/authtree/pkg/adapters/file"
	"github.com/aretw0/authtree/pkg/adapters/memory"
	"github.com/aretw0/authtree/pkg/adapters/redis"
	sqlstore "github.com/aretw0/authtree/pkg/adapters/sql"
	"github.com/aretw0/authtree/pkg/persistence/middleware"
	"github.com/aretw0/authtree/pkg/ports"
)

// lockPrefix namespaces the distributed session locks in Redis.
const lockPrefix = "authtree:"

// Backend is an opened session vault with the locker that goes with it.
type Backend struct {
	// Raw is the store as configured, without middleware.
	Raw    ports.StateStore
	Store  ports.StateStore
	Locker ports.DistributedLocker

	closers []func() error
}

// Close releases connections held by the backend.
func (b *Backend) Close() error {
	var errs []error
	for _, c := range b.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// OpenBackend builds the session vault selected by cfg. When a vault key is
// configured, records are encrypted at rest.
func OpenBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Backend, error) {
	ttl := time.Duration(cfg.Store.TTL)
	b := &Backend{}

	switch cfg.Store.Backend {
	case config.BackendMemory, "":
		b.Raw = memory.NewStore(memory.WithTTL(ttl))
	case config.BackendFile:
		path := cfg.Store.Path
		if path == "" {
			path = filepath.Join(".authtree", "sessions")
		}
		b.Raw = file.New(path)
	case config.BackendRedis:
		store := redis.New(cfg.Store.RedisAddr, cfg.Store.RedisPassword, cfg.Store.RedisDB, redis.WithTTL(ttl))
		b.Raw = store
		b.Locker = redis.NewLocker(store.Client(), lockPrefix)
		b.closers = append(b.closers, store.Close)
	case config.BackendSQLite:
		store, err := sqlstore.NewSQLite(ctx, cfg.Store.Path, sqlstore.WithTTL(ttl))
		if err != nil {
			return nil, err
		}
		b.Raw = store
		b.closers = append(b.closers, store.Close)
	case config.BackendMySQL:
		store, err := sqlstore.NewMySQL(ctx, cfg.Store.DSN, sqlstore.WithTTL(ttl))
		if err != nil {
			return nil, err
		}
		b.Raw = store
		b.closers = append(b.closers, store.Close)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}

	b.Store = b.Raw
	key, err := cfg.VaultKeyBytes()
	if err != nil {
		_ = b.Close()
		return nil, err
	}
	if key != nil {
		b.Store = middleware.Chain(b.Raw, middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key}))
	}

	logger.Debug("session vault opened",
		"backend", cfg.Store.Backend,
		"encrypted", key != nil,
		"distributed_lock", b.Locker != nil)
	return b, nil
}

// Inspector returns a read view of the vault that masks credential-looking keys.
func (b *Backend) Inspector() ports.StateStore {
	return middleware.Chain(b.Store, middleware.NewRedactMiddleware(middleware.DefaultRedactPatterns))
}
