package runtime

import (
	"log/slog"

	"github.com/aretw0/authtree/pkg/domain"
	"go.opentelemetry.io/otel/trace"
)

// Option configures an Executor.
type Option func(*Executor)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability callbacks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Executor) {
		e.hooks = hooks
	}
}

// WithTracer overrides the tracer taken from the global otel provider.
func WithTracer(tracer trace.Tracer) Option {
	return func(e *Executor) {
		if tracer != nil {
			e.tracer = tracer
		}
	}
}

// WithMetrics enables prometheus instrumentation.
func WithMetrics(m *Metrics) Option {
	return func(e *Executor) {
		e.metrics = m
	}
}

// WithTrees resolves the trees that declare hooks inherited from inner trees.
func WithTrees(trees TreeProvider) Option {
	return func(e *Executor) {
		e.trees = trees
	}
}

// WithStepLimit bounds the number of nodes chained in one Process call.
func WithStepLimit(limit int) Option {
	return func(e *Executor) {
		if limit > 0 {
			e.stepLimit = limit
		}
	}
}
