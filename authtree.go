package authtree

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/authtree/internal/logging"
	"github.com/aretw0/authtree/internal/runtime"
	"github.com/aretw0/authtree/pkg/adapters/memory"
	"github.com/aretw0/authtree/pkg/continuation"
	"github.com/aretw0/authtree/pkg/domain"
	"github.com/aretw0/authtree/pkg/nodes"
	"github.com/aretw0/authtree/pkg/ports"
	"github.com/aretw0/authtree/pkg/registry"
	"github.com/aretw0/authtree/pkg/session"
	"github.com/aretw0/authtree/pkg/trees"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"
)

// Engine is the high-level entry point for the library. It starts and resumes
// authentications, keeps suspended evaluations in the session vault and hands
// clients sealed continuation tokens.
type Engine struct {
	source   ports.TreeSource
	cache    *trees.Cache
	registry *registry.Registry
	executor *runtime.Executor
	sessions *session.Manager
	codec    *continuation.Codec
	logger   *slog.Logger

	store      ports.StateStore
	locker     ports.DistributedLocker
	deps       nodes.Deps
	custom     []registry.Descriptor
	hooks      domain.LifecycleHooks
	tracer     trace.Tracer
	metricsReg prometheus.Registerer
	stepLimit  int
}

// AuthRequest is one call of the authenticate protocol.
type AuthRequest struct {
	// Tree names the tree to start. On resume it may be empty; if set it must match.
	Tree string
	// Token is the continuation returned by the previous call. Empty starts a new evaluation.
	Token string
	// Callbacks carries the answers to the previously returned callbacks.
	Callbacks []domain.Callback
	// TargetAuthLevel, when set on a new evaluation, seeds the level the choice
	// collectors filter against.
	TargetAuthLevel *int

	Parameters map[string][]string
	Headers    map[string][]string
	ClientIP   string
}

// Response is the result of one authenticate call.
type Response struct {
	Status domain.ResultKind
	Tree   string
	// Token and Callbacks are set when Status is NEED_INPUT.
	Token     string
	Callbacks []domain.Callback
	// The remaining fields are set on a terminal result.
	Identity          string
	AuthLevel         int
	SessionProperties map[string]string
	Visited           []string
}

// New initializes an Engine serving trees from source.
func New(source ports.TreeSource, opts ...Option) (*Engine, error) {
	if source == nil {
		return nil, errors.New("a tree source is required")
	}
	eng := &Engine{source: source}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}
	if eng.store == nil {
		eng.store = memory.NewStore()
	}
	if eng.codec == nil {
		key := make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("failed to generate continuation key: %w", err)
		}
		codec, err := continuation.NewCodec(key)
		if err != nil {
			return nil, err
		}
		eng.codec = codec
		eng.logger.Warn("no continuation key configured, using an ephemeral key")
	}

	eng.registry = registry.New()
	eng.cache = trees.NewCache(source, trees.WithValidator(eng.registry), trees.WithLogger(eng.logger))

	runtimeOpts := []runtime.Option{
		runtime.WithTrees(eng.cache),
		runtime.WithLogger(eng.logger),
		runtime.WithLifecycleHooks(eng.hooks),
		runtime.WithStepLimit(eng.stepLimit),
	}
	if eng.tracer != nil {
		runtimeOpts = append(runtimeOpts, runtime.WithTracer(eng.tracer))
	}
	if eng.metricsReg != nil {
		runtimeOpts = append(runtimeOpts, runtime.WithMetrics(runtime.NewMetrics(eng.metricsReg)))
	}
	eng.executor = runtime.NewExecutor(eng.registry, runtimeOpts...)

	eng.deps.Trees = eng.cache
	eng.deps.Processor = eng.executor
	eng.deps.Logger = eng.logger
	nodes.RegisterBuiltins(eng.registry, eng.deps)
	for _, d := range eng.custom {
		eng.registry.Register(d)
	}

	sessionOpts := []session.Option{session.WithLogger(eng.logger)}
	if eng.locker != nil {
		sessionOpts = append(sessionOpts, session.WithLocker(eng.locker))
	}
	eng.sessions = session.NewManager(eng.store, sessionOpts...)

	return eng, nil
}

// Authenticate starts an evaluation (no token) or resumes one (with token).
func (e *Engine) Authenticate(ctx context.Context, req AuthRequest) (*Response, error) {
	if req.Token == "" {
		return e.start(ctx, req)
	}
	return e.resume(ctx, req)
}

func (e *Engine) start(ctx context.Context, req AuthRequest) (*Response, error) {
	tree, err := e.cache.Get(ctx, req.Tree)
	if err != nil {
		return nil, err
	}

	state := domain.NewTreeState(tree.Name())
	if req.TargetAuthLevel != nil {
		state.Shared[domain.KeyTargetAuthLevel] = *req.TargetAuthLevel
	}

	result, err := e.executor.Process(ctx, tree, state, e.request(req))
	if err != nil {
		return nil, err
	}
	if result.IsTerminal() {
		return e.terminal(tree, result), nil
	}

	handle, err := e.sessions.Create(ctx, result.State)
	if err != nil {
		return nil, err
	}
	return e.suspend(tree, handle, result)
}

func (e *Engine) resume(ctx context.Context, req AuthRequest) (*Response, error) {
	tok, err := e.codec.Open(req.Token)
	if err != nil {
		return nil, err
	}
	if req.Tree != "" && req.Tree != tok.Tree {
		return nil, fmt.Errorf("%w: %s", ErrTreeMismatch, tok.Tree)
	}

	var resp *Response
	err = e.sessions.WithLock(ctx, tok.Handle, func(ctx context.Context) error {
		vault := e.sessions.Store()

		record, err := vault.Load(ctx, tok.Handle)
		if err != nil {
			return err
		}
		if record.Version != tok.Version || record.TreeName != tok.Tree {
			return ErrStaleContinuation
		}

		tree, err := e.cache.Get(ctx, tok.Tree)
		if err != nil {
			return err
		}

		result, err := e.executor.Process(ctx, tree, tok.State(record.Private), e.request(req))
		if err != nil {
			return err
		}

		if result.IsTerminal() {
			if err := vault.Delete(ctx, tok.Handle); err != nil {
				e.logger.Warn("failed to delete finished session", "handle", tok.Handle, "err", err)
			}
			resp = e.terminal(tree, result)
			return nil
		}

		if err := vault.Save(ctx, tok.Handle, result.State); err != nil {
			return fmt.Errorf("failed to save session: %w", err)
		}
		resp, err = e.suspend(tree, tok.Handle, result)
		return err
	})
	return resp, err
}

func (e *Engine) request(req AuthRequest) *domain.Request {
	return &domain.Request{
		Callbacks:  req.Callbacks,
		Parameters: req.Parameters,
		Headers:    req.Headers,
		ClientIP:   req.ClientIP,
	}
}

func (e *Engine) suspend(tree *domain.Tree, handle string, result *domain.TreeResult) (*Response, error) {
	token, err := e.codec.Seal(continuation.FromState(handle, result.State))
	if err != nil {
		return nil, err
	}
	return &Response{
		Status:    domain.ResultNeedInput,
		Tree:      tree.Name(),
		Token:     token,
		Callbacks: result.Callbacks,
	}, nil
}

func (e *Engine) terminal(tree *domain.Tree, result *domain.TreeResult) *Response {
	return &Response{
		Status:            result.Kind,
		Tree:              tree.Name(),
		Identity:          result.State.Identity,
		AuthLevel:         result.State.AuthLevel(),
		SessionProperties: result.State.SessionProperties,
		Visited:           result.State.Visited,
	}
}

// Validate loads the named tree afresh and checks it against the registered node types.
func (e *Engine) Validate(ctx context.Context, name string) error {
	tree, err := e.source.LoadTree(ctx, name)
	if err != nil {
		return err
	}
	return e.registry.Validate(tree)
}

// Inspect returns the (cached) named tree for tooling.
func (e *Engine) Inspect(ctx context.Context, name string) (*domain.Tree, error) {
	return e.cache.Get(ctx, name)
}

// Trees lists the trees the source can serve.
func (e *Engine) Trees(ctx context.Context) ([]string, error) {
	return e.source.ListTrees(ctx)
}

// Invalidate drops a cached tree so the next request reloads it.
// An empty name drops every tree.
func (e *Engine) Invalidate(name string) {
	e.cache.Invalidate(name)
}

// Watch invalidates cached trees as the source reports changes. It blocks until
// ctx is done; sources that cannot be watched return immediately.
func (e *Engine) Watch(ctx context.Context) error {
	return e.cache.Watch(ctx)
}

// Sessions exposes the session vault for administration.
func (e *Engine) Sessions() *session.Manager {
	return e.sessions
}

// Registry exposes the node type registry.
func (e *Engine) Registry() *registry.Registry {
	return e.registry
}
