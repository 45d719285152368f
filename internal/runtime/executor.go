package runtime

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/authtree/internal/logging"
	"github.com/aretw0/authtree/pkg/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultStepLimit bounds how many nodes one Process call may chain through.
const DefaultStepLimit = 1000

const tracerName = "github.com/aretw0/authtree"

// TreeProvider resolves trees by name.
type TreeProvider interface {
	Get(ctx context.Context, name string) (*domain.Tree, error)
}

// Executor is the tree state machine. It advances a TreeState through a Tree until a
// node asks for input or a terminal is reached.
// An Executor holds no per-session data and is safe for concurrent use.
type Executor struct {
	factory   domain.NodeFactory
	trees     TreeProvider
	logger    *slog.Logger
	hooks     domain.LifecycleHooks
	tracer    trace.Tracer
	metrics   *Metrics
	stepLimit int
}

// NewExecutor creates an executor that builds node instances through factory.
func NewExecutor(factory domain.NodeFactory, opts ...Option) *Executor {
	e := &Executor{
		factory:   factory,
		logger:    logging.NewNop(),
		tracer:    otel.Tracer(tracerName),
		stepLimit: DefaultStepLimit,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Process runs one evaluation pass.
//
// The callbacks carried by req are handed only to the first node of the pass; nodes
// reached by chaining see none. state is never modified: the returned TreeResult
// carries the new state. Transient state does not survive the call.
func (e *Executor) Process(ctx context.Context, tree *domain.Tree, state *domain.TreeState, req *domain.Request) (*domain.TreeResult, error) {
	if state == nil {
		state = domain.NewTreeState(tree.Name())
	}
	if req == nil {
		req = &domain.Request{}
	}

	ctx, span := e.tracer.Start(ctx, "authtree.process", trace.WithAttributes(
		attribute.String("authtree.tree", tree.Name()),
		attribute.Bool("authtree.resume", state.CurrentNodeID != ""),
	))
	defer span.End()

	result, err := e.run(ctx, tree, state, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.String("authtree.result", string(result.Kind)))
	return result, nil
}

func (e *Executor) run(ctx context.Context, tree *domain.Tree, state *domain.TreeState, req *domain.Request) (*domain.TreeResult, error) {
	current := state.Clone()
	current.TreeName = tree.Name()
	current.Transient = make(map[string]any)

	nodeID := current.CurrentNodeID
	if nodeID == "" {
		nodeID = tree.EntryNodeID()
	}
	callbacks := req.Callbacks

	for steps := 0; ; steps++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if domain.IsTerminal(nodeID) {
			return e.finish(ctx, tree, current, nodeID)
		}
		if steps >= e.stepLimit {
			return nil, domain.NewConfigError(tree.Name(), nodeID, "evaluation exceeded %d chained steps without requesting input", e.stepLimit)
		}

		decl, ok := tree.Node(nodeID)
		if !ok {
			return nil, domain.NewConfigError(tree.Name(), nodeID, "node is not declared")
		}
		node, err := e.factory.NewNode(decl)
		if err != nil {
			return nil, &domain.ConfigError{Tree: tree.Name(), NodeID: nodeID, Reason: "cannot construct node of type " + decl.Type, Err: err}
		}
		if err := checkInputs(tree, nodeID, node, current); err != nil {
			return nil, err
		}

		nodeReq := &domain.Request{
			Tree:       tree,
			NodeID:     nodeID,
			Callbacks:  callbacks,
			Parameters: req.Parameters,
			Headers:    req.Headers,
			ClientIP:   req.ClientIP,
		}
		callbacks = nil

		action, err := e.processNode(ctx, tree, decl, node, nodeReq, current)
		if err != nil {
			return nil, err
		}

		previous := current
		current = current.Apply(nodeID, action)
		e.emitNodeLeave(ctx, tree, decl, action, domain.Diff(previous, current))

		if action.IsSuspend() {
			current.Transient = make(map[string]any)
			e.logger.Debug("node requested input",
				"tree", tree.Name(),
				"node_id", nodeID,
				"node_type", decl.Type,
				"callbacks", len(action.Callbacks))
			return &domain.TreeResult{
				Kind:      domain.ResultNeedInput,
				Callbacks: action.Callbacks,
				State:     current,
			}, nil
		}

		next, err := tree.Resolve(nodeID, action.Outcome)
		if err != nil {
			return nil, err
		}
		e.logger.Debug("node completed",
			"tree", tree.Name(),
			"node_id", nodeID,
			"node_type", decl.Type,
			"outcome", action.Outcome,
			"next", next)
		nodeID = next
	}
}

func (e *Executor) processNode(ctx context.Context, tree *domain.Tree, decl domain.NodeDecl, node domain.Node, req *domain.Request, state *domain.TreeState) (domain.Action, error) {
	ctx, span := e.tracer.Start(ctx, "authtree.node", trace.WithAttributes(
		attribute.String("authtree.tree", tree.Name()),
		attribute.String("authtree.node_id", decl.ID),
		attribute.String("authtree.node_type", decl.Type),
	))
	defer span.End()

	e.emitNodeEnter(ctx, tree, decl)

	start := time.Now()
	action, err := node.Process(ctx, req, state.View(decl.ID))
	if err == nil {
		if verr := action.Validate(); verr != nil {
			err = &domain.ProcessingError{Tree: tree.Name(), NodeID: decl.ID, Err: verr}
		}
	}
	e.metrics.observeNode(decl.Type, action, err, time.Since(start))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return domain.Action{}, classify(tree, decl.ID, err)
	}

	if action.IsSuspend() {
		span.SetAttributes(attribute.Int("authtree.callbacks", len(action.Callbacks)))
	} else {
		span.SetAttributes(attribute.String("authtree.outcome", action.Outcome))
	}
	return action, nil
}

// classify keeps errors that already carry a class and wraps everything else as a
// processing error of nodeID.
func classify(tree *domain.Tree, nodeID string, err error) error {
	if domain.IsConfigError(err) || domain.IsProcessingError(err) {
		return err
	}
	return &domain.ProcessingError{Tree: tree.Name(), NodeID: nodeID, Err: err}
}

func checkInputs(tree *domain.Tree, nodeID string, node domain.Node, state *domain.TreeState) error {
	declarer, ok := node.(domain.InputDeclarer)
	if !ok {
		return nil
	}
	for _, in := range declarer.Inputs() {
		if !in.Required {
			continue
		}
		_, inShared := state.Shared[in.Key]
		_, inTransient := state.Transient[in.Key]
		if !inShared && !inTransient {
			return domain.NewConfigError(tree.Name(), nodeID, "required input '%s' was not produced by an earlier node", in.Key)
		}
	}
	return nil
}

func (e *Executor) finish(ctx context.Context, tree *domain.Tree, state *domain.TreeState, terminal string) (*domain.TreeResult, error) {
	kind := domain.ResultFalse
	if terminal == domain.SuccessNodeID {
		kind = domain.ResultTrue
	}

	final := state.Clone()
	final.CurrentNodeID = ""

	// A nested evaluation hands its hooks to the enclosing tree.
	if !domain.IsNestedEvaluation(ctx) {
		if err := e.runTreeHooks(ctx, tree, final, kind); err != nil {
			return nil, err
		}
	}
	final.Transient = make(map[string]any)

	e.metrics.observeTree(tree.Name(), kind)
	e.emitTreeComplete(ctx, tree, final, kind)
	e.logger.Info("tree completed",
		"tree", tree.Name(),
		"result", string(kind),
		"visited", len(final.Visited),
		"identity", final.Identity)

	return &domain.TreeResult{Kind: kind, State: final}, nil
}
