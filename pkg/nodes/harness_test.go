package nodes_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/aretw0/authtree/internal/runtime"
	"github.com/aretw0/authtree/internal/testutils"
	"github.com/aretw0/authtree/pkg/domain"
	"github.com/aretw0/authtree/pkg/nodes"
)

type treeMap map[string]*domain.Tree

func (m treeMap) Get(_ context.Context, name string) (*domain.Tree, error) {
	tree, ok := m[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrTreeNotFound, name)
	}
	return tree, nil
}

// newExecutor wires the built-in nodes plus the test node types into one executor.
func newExecutor(t *testing.T, trees treeMap, ids *nodes.StaticIdentities) *runtime.Executor {
	t.Helper()
	return newRecordingExecutor(t, trees, ids, &testutils.Recorder{})
}

// newRecordingExecutor is newExecutor with the "Hook" test node reporting to rec.
func newRecordingExecutor(t *testing.T, trees treeMap, ids *nodes.StaticIdentities, rec *testutils.Recorder) *runtime.Executor {
	t.Helper()
	reg := testutils.NewRegistry(rec)
	exec := runtime.NewExecutor(reg, runtime.WithStepLimit(100), runtime.WithTrees(trees))
	deps := nodes.Deps{Trees: trees, Processor: exec}
	if ids != nil {
		deps.Credentials = ids
		deps.Secrets = ids
	}
	nodes.RegisterBuiltins(reg, deps)
	return exec
}

func answer(t domain.CallbackType, value any) *domain.Request {
	return &domain.Request{Callbacks: []domain.Callback{{Type: t, Value: value}}}
}

func seeded(tree *domain.Tree, shared map[string]any) *domain.TreeState {
	state := domain.NewTreeState(tree.Name())
	for k, v := range shared {
		state.Shared[k] = v
	}
	return state
}
