package runtime_test

import (
	"context"
	"testing"

	"github.com/aretw0/authtree/internal/runtime"
	"github.com/aretw0/authtree/internal/testutils"
	"github.com/aretw0/authtree/pkg/domain"
	"github.com/aretw0/authtree/pkg/dsl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecutor_TreeHooks(t *testing.T) {
	for _, tc := range []struct {
		outcome string
		want    domain.ResultKind
	}{
		{"true", domain.ResultTrue},
		{"false", domain.ResultFalse},
	} {
		t.Run(string(tc.want), func(t *testing.T) {
			rec := &testutils.Recorder{}
			b := dsl.New("hooks")
			b.Add("h1").Type("Hook").To("ask")
			b.Add("ask").Type("Collect").Config("key", "username").To("h2")
			b.Add("h2").Type("Hook").To("end")
			b.Add("end").Type("Goto").Config("outcome", tc.outcome).
				True(dsl.Success).
				False(dsl.Failure)
			tree := testutils.MustBuild(t, b)
			exec := runtime.NewExecutor(testutils.NewRegistry(rec))
			ctx := context.Background()

			res, err := exec.Process(ctx, tree, nil, nil)
			require.NoError(t, err)
			require.Equal(t, domain.ResultNeedInput, res.Kind)
			assert.Empty(t, rec.Calls(), "hooks only run once a terminal is reached")
			assert.Equal(t, []domain.HookRef{{Tree: "hooks", NodeID: "h1"}}, res.State.Hooks)

			res, err = exec.Process(ctx, tree, res.State, &domain.Request{Callbacks: []domain.Callback{testutils.Answer("bob")}})
			require.NoError(t, err)
			assert.Equal(t, tc.want, res.Kind)
			assert.Equal(t, []string{"h1:" + string(tc.want), "h2:" + string(tc.want)}, rec.Calls())
		})
	}
}

func TestExecutor_NestedEvaluationDefersTreeHooks(t *testing.T) {
	rec := &testutils.Recorder{}
	b := dsl.New("inner")
	b.Add("h").Type("Hook").To(dsl.Success)
	tree := testutils.MustBuild(t, b)
	exec := runtime.NewExecutor(testutils.NewRegistry(rec))

	res, err := exec.Process(domain.NestedEvaluation(context.Background()), tree, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.ResultTrue, res.Kind)
	assert.Empty(t, rec.Calls())
	assert.Equal(t, []domain.HookRef{{Tree: "inner", NodeID: "h"}}, res.State.Hooks, "pending hooks are handed back to the caller")
}

func TestExecutor_UnresolvableInheritedHook(t *testing.T) {
	b := dsl.New("outer")
	b.Add("a").Type("Goto").To(dsl.Success)
	tree := testutils.MustBuild(t, b)
	state := domain.NewTreeState("outer")
	state.Hooks = []domain.HookRef{{Tree: "elsewhere", NodeID: "h"}}

	_, err := runtime.NewExecutor(testutils.NewRegistry(nil)).Process(context.Background(), tree, state, nil)
	require.Error(t, err)
	assert.True(t, domain.IsConfigError(err))
}

func TestExecutor_LifecycleHooks(t *testing.T) {
	var entered, left []string
	var completed *domain.TreeEvent

	hooks := domain.LifecycleHooks{
		OnNodeEnter: func(_ context.Context, e *domain.NodeEvent) {
			entered = append(entered, e.NodeID)
		},
		OnNodeLeave: func(_ context.Context, e *domain.NodeEvent) {
			left = append(left, e.NodeID)
			if e.NodeID == "user" && !e.Suspended {
				assert.Equal(t, "bob", e.Diff.Shared["username"])
			}
		},
		OnTreeComplete: func(_ context.Context, e *domain.TreeEvent) {
			completed = e
		},
	}

	tree := loginTree(t)
	exec := runtime.NewExecutor(testutils.NewRegistry(nil), runtime.WithLifecycleHooks(hooks))
	ctx := context.Background()

	res, err := exec.Process(ctx, tree, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"start", "user"}, entered)
	assert.Equal(t, []string{"start", "user"}, left)
	assert.Nil(t, completed)

	res, err = exec.Process(ctx, tree, res.State, &domain.Request{Callbacks: []domain.Callback{testutils.Answer("bob")}})
	require.NoError(t, err)
	_, err = exec.Process(ctx, tree, res.State, &domain.Request{Callbacks: []domain.Callback{testutils.Answer("pw")}})
	require.NoError(t, err)

	require.NotNil(t, completed)
	assert.Equal(t, domain.ResultTrue, completed.Result)
	assert.Equal(t, "login", completed.Tree)
	assert.Equal(t, []string{"start", "user", "pass", "check"}, completed.Visited)
}
