package testutils

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/aretw0/authtree/pkg/domain"
	"github.com/aretw0/authtree/pkg/dsl"
	"github.com/aretw0/authtree/pkg/registry"
	"github.com/stretchr/testify/require"
)

// ErrBoom is returned by the "Explode" test node.
var ErrBoom = errors.New("boom")

// Recorder collects tree hook invocations.
type Recorder struct {
	mu    sync.Mutex
	calls []string
}

// Calls returns "nodeID:RESULT" entries in invocation order.
func (r *Recorder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func (r *Recorder) record(nodeID string, kind domain.ResultKind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, fmt.Sprintf("%s:%s", nodeID, kind))
}

type collectConfig struct {
	Key    string `json:"key"`
	Prompt string `json:"prompt"`
}

type gotoConfig struct {
	Outcome string `json:"outcome"`
}

type hookNode struct {
	recorder *Recorder
	nodeID   string
}

func (h *hookNode) Process(context.Context, *domain.Request, domain.NodeState) (domain.Action, error) {
	return domain.Goto("outcome").WithTreeHook(), nil
}

func (h *hookNode) OnTreeComplete(_ context.Context, hc domain.HookContext) error {
	h.recorder.record(hc.NodeID, hc.Result)
	return nil
}

type requireNode struct {
	key string
}

func (n *requireNode) Process(context.Context, *domain.Request, domain.NodeState) (domain.Action, error) {
	return domain.Goto("outcome"), nil
}

func (n *requireNode) Inputs() []domain.Input {
	return []domain.Input{{Key: n.key, Required: true}}
}

// NewRegistry returns a registry with small node types for engine tests:
//
//   - Collect{key, prompt}: asks for a NameCallback, stores the answer in shared[key].
//   - Goto{outcome}: completes with the configured outcome ("outcome" by default).
//   - Explode: fails with ErrBoom.
//   - Hook: registers a tree hook reported to rec.
//   - Require{key}: declares key as a required input.
func NewRegistry(rec *Recorder) *registry.Registry {
	r := registry.New()
	single := func(domain.NodeDecl) ([]string, error) { return []string{"outcome"}, nil }

	r.Register(registry.Descriptor{
		Type: "Collect",
		New: func(decl domain.NodeDecl) (domain.Node, error) {
			var cfg collectConfig
			if err := registry.Decode(decl.Config, &cfg); err != nil {
				return nil, err
			}
			return domain.NodeFunc(func(_ context.Context, req *domain.Request, _ domain.NodeState) (domain.Action, error) {
				if cb, ok := req.Callback(domain.CallbackName); ok {
					val, _ := cb.StringValue()
					return domain.Goto("outcome").WithShared(cfg.Key, val), nil
				}
				return domain.Send(domain.NameCallback(cfg.Prompt)), nil
			}), nil
		},
		Outcomes: single,
	})
	r.Register(registry.Descriptor{
		Type: "Goto",
		New: func(decl domain.NodeDecl) (domain.Node, error) {
			cfg := gotoConfig{Outcome: "outcome"}
			if err := registry.Decode(decl.Config, &cfg); err != nil {
				return nil, err
			}
			return domain.NodeFunc(func(context.Context, *domain.Request, domain.NodeState) (domain.Action, error) {
				return domain.Goto(cfg.Outcome), nil
			}), nil
		},
		Outcomes: func(decl domain.NodeDecl) ([]string, error) {
			cfg := gotoConfig{Outcome: "outcome"}
			if err := registry.Decode(decl.Config, &cfg); err != nil {
				return nil, err
			}
			return []string{cfg.Outcome}, nil
		},
	})
	r.Register(registry.Descriptor{
		Type: "Explode",
		New: func(domain.NodeDecl) (domain.Node, error) {
			return domain.NodeFunc(func(context.Context, *domain.Request, domain.NodeState) (domain.Action, error) {
				return domain.Action{}, ErrBoom
			}), nil
		},
	})
	r.Register(registry.Descriptor{
		Type: "Hook",
		New: func(decl domain.NodeDecl) (domain.Node, error) {
			return &hookNode{recorder: rec, nodeID: decl.ID}, nil
		},
		Outcomes: single,
	})
	r.Register(registry.Descriptor{
		Type: "Require",
		New: func(decl domain.NodeDecl) (domain.Node, error) {
			var cfg collectConfig
			if err := registry.Decode(decl.Config, &cfg); err != nil {
				return nil, err
			}
			return &requireNode{key: cfg.Key}, nil
		},
		Outcomes: single,
	})
	return r
}

// MustBuild builds the tree or fails the test immediately.
func MustBuild(t *testing.T, b *dsl.Builder) *domain.Tree {
	t.Helper()
	tree, err := b.Build()
	require.NoError(t, err, "Failed to build tree")
	return tree
}

// Answer returns a NameCallback carrying value.
func Answer(value string) domain.Callback {
	cb := domain.NameCallback("")
	cb.Value = value
	return cb
}
