package authtree

import (
	"log/slog"

	"github.com/aretw0/authtree/pkg/continuation"
	"github.com/aretw0/authtree/pkg/domain"
	"github.com/aretw0/authtree/pkg/nodes"
	"github.com/aretw0/authtree/pkg/ports"
	"github.com/aretw0/authtree/pkg/registry"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"
)

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithStore sets the session vault. Defaults to an in-memory store.
func WithStore(store ports.StateStore) Option {
	return func(e *Engine) {
		e.store = store
	}
}

// WithLocker serializes work on one session across replicas.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(e *Engine) {
		e.locker = locker
	}
}

// WithCodec sets the continuation codec. Without it the engine seals tokens with a
// random key generated at startup, so tokens do not survive a restart.
func WithCodec(codec *continuation.Codec) Option {
	return func(e *Engine) {
		e.codec = codec
	}
}

// WithCredentials sets the password hash store used by DataStoreDecision.
func WithCredentials(store nodes.CredentialStore) Option {
	return func(e *Engine) {
		e.deps.Credentials = store
	}
}

// WithSecrets sets the TOTP secret store used by OneTimePassword.
func WithSecrets(store nodes.SecretStore) Option {
	return func(e *Engine) {
		e.deps.Secrets = store
	}
}

// WithNodeType registers a custom node type. It may replace a built-in.
func WithNodeType(d registry.Descriptor) Option {
	return func(e *Engine) {
		e.custom = append(e.custom, d)
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithTracer overrides the otel tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(e *Engine) {
		e.tracer = tracer
	}
}

// WithMetrics registers the executor metrics with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(e *Engine) {
		e.metricsReg = reg
	}
}

// WithStepLimit bounds how many nodes one request may chain through.
func WithStepLimit(limit int) Option {
	return func(e *Engine) {
		e.stepLimit = limit
	}
}

// WithMaxInnerDepth bounds inner tree nesting.
func WithMaxInnerDepth(depth int) Option {
	return func(e *Engine) {
		e.deps.MaxInnerDepth = depth
	}
}
