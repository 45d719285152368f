package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/authtree"
	"github.com/aretw0/authtree/internal/config"
	"github.com/aretw0/authtree/pkg/adapters/realm"
	"github.com/aretw0/authtree/pkg/continuation"
	"github.com/aretw0/authtree/pkg/observability"
)

// Runtime bundles an engine with the resources opened for it.
type Runtime struct {
	Engine  *authtree.Engine
	Realm   *realm.Loader
	Backend *Backend
}

// Close releases the backend.
func (r *Runtime) Close() error {
	return r.Backend.Close()
}

// NewRuntime wires an engine from cfg: realm trees and identities from
// cfg.TreesDir, the configured vault, continuation keys and audit logging.
func NewRuntime(ctx context.Context, cfg *config.Config, logger *slog.Logger, extra ...authtree.Option) (*Runtime, error) {
	loader := realm.New(cfg.TreesDir, realm.WithLogger(logger))
	ids, err := realm.LoadIdentities(cfg.TreesDir)
	if err != nil {
		return nil, err
	}

	codec, err := newCodec(cfg)
	if err != nil {
		return nil, err
	}

	backend, err := OpenBackend(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	opts := []authtree.Option{
		authtree.WithLogger(logger),
		authtree.WithStore(backend.Store),
		authtree.WithCredentials(ids),
		authtree.WithSecrets(ids),
		authtree.WithLifecycleHooks(observability.AuditHooks(logger)),
	}
	if backend.Locker != nil {
		opts = append(opts, authtree.WithLocker(backend.Locker))
	}
	if codec != nil {
		opts = append(opts, authtree.WithCodec(codec))
	}

	eng, err := authtree.New(loader, append(opts, extra...)...)
	if err != nil {
		_ = backend.Close()
		return nil, fmt.Errorf("error initializing engine: %w", err)
	}
	return &Runtime{Engine: eng, Realm: loader, Backend: backend}, nil
}

// newCodec returns nil when no continuation key is configured, leaving the engine
// on an ephemeral key.
func newCodec(cfg *config.Config) (*continuation.Codec, error) {
	key, err := cfg.ContinuationKey()
	if err != nil || key == nil {
		return nil, err
	}
	fallbacks, err := cfg.FallbackKeys()
	if err != nil {
		return nil, err
	}
	return continuation.NewCodec(key,
		continuation.WithFallbackKeys(fallbacks...),
		continuation.WithTTL(time.Duration(cfg.Continuation.TTL)))
}
