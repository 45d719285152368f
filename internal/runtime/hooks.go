package runtime

import (
	"context"
	"time"

	"github.com/aretw0/authtree/pkg/domain"
)

// runTreeHooks calls OnTreeComplete on every node that registered a tree hook,
// in the order the nodes registered. Hooks inherited from inner trees receive the
// result of tree, the outermost one.
func (e *Executor) runTreeHooks(ctx context.Context, tree *domain.Tree, state *domain.TreeState, kind domain.ResultKind) error {
	for _, ref := range state.Hooks {
		owner, err := e.hookTree(ctx, tree, ref)
		if err != nil {
			return err
		}
		decl, ok := owner.Node(ref.NodeID)
		if !ok {
			return domain.NewConfigError(owner.Name(), ref.NodeID, "tree hook registered by undeclared node")
		}
		node, err := e.factory.NewNode(decl)
		if err != nil {
			return &domain.ConfigError{Tree: owner.Name(), NodeID: ref.NodeID, Reason: "cannot construct node of type " + decl.Type, Err: err}
		}
		hook, ok := node.(domain.TreeHook)
		if !ok {
			e.logger.Warn("node registered a tree hook but does not implement it",
				"tree", owner.Name(),
				"node_id", ref.NodeID,
				"node_type", decl.Type)
			continue
		}
		hc := domain.HookContext{
			Tree:   owner.Name(),
			NodeID: ref.NodeID,
			Result: kind,
			State:  state.Clone(),
		}
		if err := hook.OnTreeComplete(ctx, hc); err != nil {
			return classify(owner, ref.NodeID, err)
		}
	}
	return nil
}

func (e *Executor) hookTree(ctx context.Context, tree *domain.Tree, ref domain.HookRef) (*domain.Tree, error) {
	if ref.Tree == "" || ref.Tree == tree.Name() {
		return tree, nil
	}
	if e.trees == nil {
		return nil, domain.NewConfigError(tree.Name(), ref.NodeID, "tree hook of inner tree '%s' cannot be resolved", ref.Tree)
	}
	owner, err := e.trees.Get(ctx, ref.Tree)
	if err != nil {
		return nil, &domain.ConfigError{Tree: tree.Name(), NodeID: ref.NodeID, Reason: "inner tree '" + ref.Tree + "' is not available", Err: err}
	}
	return owner, nil
}

func (e *Executor) emitNodeEnter(ctx context.Context, tree *domain.Tree, decl domain.NodeDecl) {
	if e.hooks.OnNodeEnter == nil {
		return
	}
	e.hooks.OnNodeEnter(ctx, &domain.NodeEvent{
		EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventNodeEnter, Tree: tree.Name()},
		NodeID:    decl.ID,
		NodeType:  decl.Type,
	})
}

func (e *Executor) emitNodeLeave(ctx context.Context, tree *domain.Tree, decl domain.NodeDecl, action domain.Action, diff *domain.StateDiff) {
	if e.hooks.OnNodeLeave == nil {
		return
	}
	e.hooks.OnNodeLeave(ctx, &domain.NodeEvent{
		EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventNodeLeave, Tree: tree.Name()},
		NodeID:    decl.ID,
		NodeType:  decl.Type,
		Outcome:   action.Outcome,
		Suspended: action.IsSuspend(),
		Diff:      diff,
	})
}

func (e *Executor) emitTreeComplete(ctx context.Context, tree *domain.Tree, state *domain.TreeState, kind domain.ResultKind) {
	if e.hooks.OnTreeComplete == nil {
		return
	}
	e.hooks.OnTreeComplete(ctx, &domain.TreeEvent{
		EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventTreeComplete, Tree: tree.Name()},
		Result:    kind,
		Visited:   append([]string(nil), state.Visited...),
		Identity:  state.Identity,
	})
}
