package nodes

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/authtree/pkg/domain"
	"github.com/aretw0/authtree/pkg/registry"
)

// frameKey is the private key under which a suspended inner evaluation keeps the
// parts of its state that must not reach the client.
const frameKey = "inner_frame"

type depthKey struct{}

// InnerTreeConfig configures an InnerTreeEvaluator.
type InnerTreeConfig struct {
	Tree string `json:"tree"`
}

// InnerTreeEvaluator runs a whole tree as one node. Outcomes are "true" and "false".
type InnerTreeEvaluator struct {
	cfg      InnerTreeConfig
	trees    TreeProvider
	exec     Processor
	maxDepth int
}

// innerFrame is what the outer node keeps privately while the inner tree is suspended.
type innerFrame struct {
	Private           map[string]map[string]any `json:"private"`
	Visited           []string                  `json:"visited"`
	Hooks             []domain.HookRef          `json:"hooks"`
	SessionProperties map[string]string         `json:"session_properties"`
	Identity          string                    `json:"identity"`
	Version           int                       `json:"version"`
}

// NewInnerTreeEvaluator decodes decl into an InnerTreeEvaluator.
func NewInnerTreeEvaluator(decl domain.NodeDecl, trees TreeProvider, exec Processor, maxDepth int) (*InnerTreeEvaluator, error) {
	cfg, err := parseInnerTreeConfig(decl)
	if err != nil {
		return nil, err
	}
	if trees == nil || exec == nil {
		return nil, errors.New("inner tree evaluation is not wired")
	}
	return &InnerTreeEvaluator{cfg: cfg, trees: trees, exec: exec, maxDepth: maxDepth}, nil
}

func parseInnerTreeConfig(decl domain.NodeDecl) (InnerTreeConfig, error) {
	var cfg InnerTreeConfig
	if err := registry.Decode(decl.Config, &cfg); err != nil {
		return cfg, err
	}
	if cfg.Tree == "" {
		return cfg, errors.New("inner tree name is required")
	}
	return cfg, nil
}

// Process implements domain.Node.
func (n *InnerTreeEvaluator) Process(ctx context.Context, req *domain.Request, state domain.NodeState) (domain.Action, error) {
	depth, _ := ctx.Value(depthKey{}).(int)
	if depth >= n.maxDepth {
		return domain.Action{}, domain.NewConfigError(req.Tree.Name(), req.NodeID, "inner tree nesting exceeds depth %d", n.maxDepth)
	}

	inner, err := n.trees.Get(ctx, n.cfg.Tree)
	if err != nil {
		if errors.Is(err, domain.ErrTreeNotFound) {
			return domain.Action{}, &domain.ConfigError{Tree: req.Tree.Name(), NodeID: req.NodeID, Reason: "inner tree '" + n.cfg.Tree + "' is not available", Err: err}
		}
		return domain.Action{}, err
	}

	innerState, err := n.restore(state, inner.Name())
	if err != nil {
		return domain.Action{}, err
	}

	innerReq := &domain.Request{
		Callbacks:  req.Callbacks,
		Parameters: req.Parameters,
		Headers:    req.Headers,
		ClientIP:   req.ClientIP,
	}
	innerCtx := domain.NestedEvaluation(context.WithValue(ctx, depthKey{}, depth+1))
	result, err := n.exec.Process(innerCtx, inner, innerState, innerReq)
	if err != nil {
		return domain.Action{}, err
	}

	final := result.State
	if result.Kind == domain.ResultNeedInput {
		env := domain.InnerTreeEnvelope{NodeID: final.CurrentNodeID, SharedState: final.Shared}
		action := env.Store(domain.Send(result.Callbacks...))
		return action.WithoutPrivate().WithPrivate(frameKey, encodeFrame(final)), nil
	}

	outcome := "false"
	if result.Kind == domain.ResultTrue {
		outcome = "true"
	}
	action := domain.ClearInnerTreeEnvelope(domain.Goto(outcome).ReplacingShared(final.Shared)).WithoutPrivate()
	for k, v := range final.SessionProperties {
		action = action.WithSessionProperty(k, v)
	}
	if final.Identity != "" {
		action = action.WithIdentity(final.Identity)
	}
	return action.WithInheritedHooks(final.Hooks...), nil
}

// restore rebuilds the inner state: fresh from a copy of the outer shared state on
// first entry, from the envelope and the private frame on re-entry.
func (n *InnerTreeEvaluator) restore(state domain.NodeState, treeName string) (*domain.TreeState, error) {
	inner := domain.NewTreeState(treeName)

	env, found, err := domain.ReadInnerTreeEnvelope(state)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if !found {
		inner.Shared = state.SharedDocument()
		return inner, nil
	}

	inner.CurrentNodeID = env.NodeID
	inner.Shared = env.SharedState
	if inner.Shared == nil {
		inner.Shared = make(map[string]any)
	}

	raw, ok := state.Private(frameKey)
	if !ok {
		return inner, nil
	}
	doc, ok := domain.AsDocument(raw)
	if !ok {
		return nil, fmt.Errorf("inner tree frame has type %T", raw)
	}
	var frame innerFrame
	if err := registry.Decode(doc, &frame); err != nil {
		return nil, fmt.Errorf("decoding inner tree frame: %w", err)
	}
	for id, ns := range frame.Private {
		inner.Private[id] = ns
	}
	inner.Visited = frame.Visited
	inner.Hooks = frame.Hooks
	inner.SessionProperties = frame.SessionProperties
	inner.Identity = frame.Identity
	inner.Version = frame.Version
	return inner, nil
}

// encodeFrame flattens the private part of the inner state into a plain document so it
// survives both deep copies and JSON round trips through the vault.
func encodeFrame(s *domain.TreeState) map[string]any {
	private := make(map[string]any, len(s.Private))
	for id, ns := range s.Private {
		private[id] = domain.CloneDocument(ns)
	}
	hooks := make([]any, len(s.Hooks))
	for i, ref := range s.Hooks {
		hooks[i] = map[string]any{"tree": ref.Tree, "node_id": ref.NodeID}
	}
	props := make(map[string]any, len(s.SessionProperties))
	for k, v := range s.SessionProperties {
		props[k] = v
	}
	return map[string]any{
		"private":            private,
		"visited":            append([]string(nil), s.Visited...),
		"hooks":              hooks,
		"session_properties": props,
		"identity":           s.Identity,
		"version":            s.Version,
	}
}
