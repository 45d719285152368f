package nodes_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/aretw0/authtree/internal/testutils"
	"github.com/aretw0/authtree/pkg/domain"
	"github.com/aretw0/authtree/pkg/dsl"
	"github.com/aretw0/authtree/pkg/nodes"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func innerTrees(t *testing.T) treeMap {
	inner := dsl.New("inner")
	inner.Add("inner-user").Type(nodes.TypeUsernameCollector).To("inner-raise")
	inner.Add("inner-raise").Type(nodes.TypeModifyAuthLevel).Config("value", 5).To(dsl.Success)

	outer := dsl.New("outer")
	outer.Add("raise").Type(nodes.TypeModifyAuthLevel).Config("value", 1).To("eval")
	outer.Add("eval").Type(nodes.TypeInnerTreeEvaluator).Config("tree", "inner").
		True(dsl.Success).
		False(dsl.Failure)

	return treeMap{
		"inner": testutils.MustBuild(t, inner),
		"outer": testutils.MustBuild(t, outer),
	}
}

// roundTrip simulates persisting the suspended state between two requests.
func roundTrip(t *testing.T, state *domain.TreeState) *domain.TreeState {
	data, err := json.Marshal(state)
	require.NoError(t, err)
	var out domain.TreeState
	require.NoError(t, json.Unmarshal(data, &out))
	return &out
}

func TestInnerTreeEvaluator_RoundTrip(t *testing.T) {
	trees := innerTrees(t)
	exec := newExecutor(t, trees, nil)
	ctx := context.Background()
	outer := trees["outer"]

	res, err := exec.Process(ctx, outer, nil, nil)
	require.NoError(t, err)
	require.Equal(t, domain.ResultNeedInput, res.Kind)
	require.Len(t, res.Callbacks, 1)
	assert.Equal(t, domain.CallbackName, res.Callbacks[0].Type)
	assert.Equal(t, "eval", res.State.CurrentNodeID)

	// Both reserved re-entry keys are present and describe the inner suspension.
	require.Contains(t, res.State.Shared, domain.KeyInnerTreeNodeID)
	require.Contains(t, res.State.Shared, domain.KeyInnerTreeSharedState)
	env, found, err := domain.ReadInnerTreeEnvelope(res.State.View("eval"))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "inner-user", env.NodeID)
	assert.Equal(t, 1, env.SharedState[domain.KeyAuthLevel], "outer shared state is copied into the inner tree")

	resumed := roundTrip(t, res.State)
	res, err = exec.Process(ctx, outer, resumed, answer(domain.CallbackName, "bob"))
	require.NoError(t, err)
	require.Equal(t, domain.ResultTrue, res.Kind)

	assert.Equal(t, map[string]any{
		domain.KeyAuthLevel: 6,
		domain.KeyUsername:  "bob",
	}, res.State.Shared, "inner shared state replaces the outer one and the envelope is gone")
	assert.Equal(t, []string{"raise", "eval"}, res.State.Visited)
	assert.Empty(t, res.State.Private)
}

func TestInnerTreeEvaluator_FalseAndSideChannels(t *testing.T) {
	inner := dsl.New("inner")
	inner.Add("props").Type(nodes.TypeSetSessionProperties).
		Config("properties", map[string]any{"channel": "inner"}).
		To("deny")
	inner.Add("deny").Type("Goto").Config("outcome", "false").False(dsl.Failure)

	outer := dsl.New("outer")
	outer.Add("eval").Type(nodes.TypeInnerTreeEvaluator).Config("tree", "inner").
		True(dsl.Success).
		False(dsl.Failure)

	trees := treeMap{"inner": testutils.MustBuild(t, inner), "outer": testutils.MustBuild(t, outer)}
	exec := newExecutor(t, trees, nil)

	res, err := exec.Process(context.Background(), trees["outer"], nil, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.ResultFalse, res.Kind)
	assert.Equal(t, "inner", res.State.SessionProperties["channel"])
}

func TestInnerTreeEvaluator_PrivateStateSurvivesReentry(t *testing.T) {
	key, err := totp.Generate(totp.GenerateOpts{Issuer: "authtree", AccountName: "bob"})
	require.NoError(t, err)
	ids := nodes.NewStaticIdentities(nodes.Identity{Username: "bob", TOTPSecret: key.Secret()})

	inner := dsl.New("mfa")
	inner.Add("otp").Type(nodes.TypeOneTimePassword).Config("max_attempts", 2).
		True(dsl.Success).
		False(dsl.Failure)

	outer := dsl.New("outer")
	outer.Add("user").Type(nodes.TypeUsernameCollector).To("eval")
	outer.Add("eval").Type(nodes.TypeInnerTreeEvaluator).Config("tree", "mfa").
		True(dsl.Success).
		False(dsl.Failure)

	trees := treeMap{"mfa": testutils.MustBuild(t, inner), "outer": testutils.MustBuild(t, outer)}
	exec := newExecutor(t, trees, ids)
	ctx := context.Background()

	res, err := exec.Process(ctx, trees["outer"], nil, nil)
	require.NoError(t, err)
	res, err = exec.Process(ctx, trees["outer"], res.State, answer(domain.CallbackName, "bob"))
	require.NoError(t, err)
	require.Equal(t, domain.ResultNeedInput, res.Kind)
	assert.Equal(t, "eval", res.State.CurrentNodeID)

	// First wrong code: re-prompted, the attempt is remembered in the outer node's private frame.
	res, err = exec.Process(ctx, trees["outer"], roundTrip(t, res.State), answer(domain.CallbackName, "000000"))
	require.NoError(t, err)
	require.Equal(t, domain.ResultNeedInput, res.Kind)
	assert.Len(t, res.Callbacks, 2)
	assert.Contains(t, res.State.Private, "eval")

	// Second wrong code exhausts the attempts.
	res, err = exec.Process(ctx, trees["outer"], roundTrip(t, res.State), answer(domain.CallbackName, "000001"))
	require.NoError(t, err)
	assert.Equal(t, domain.ResultFalse, res.Kind)

	// A fresh run with the right code succeeds.
	res, err = exec.Process(ctx, trees["outer"], nil, nil)
	require.NoError(t, err)
	res, err = exec.Process(ctx, trees["outer"], res.State, answer(domain.CallbackName, "bob"))
	require.NoError(t, err)
	code, err := totp.GenerateCode(key.Secret(), time.Now())
	require.NoError(t, err)
	res, err = exec.Process(ctx, trees["outer"], res.State, answer(domain.CallbackName, code))
	require.NoError(t, err)
	assert.Equal(t, domain.ResultTrue, res.Kind)
}

func TestInnerTreeEvaluator_Errors(t *testing.T) {
	boom := dsl.New("boom")
	boom.Add("x").Type("Explode").To(dsl.Success)

	self := dsl.New("self")
	self.Add("again").Type(nodes.TypeInnerTreeEvaluator).Config("tree", "self").
		True(dsl.Success).
		False(dsl.Failure)

	missing := dsl.New("missing")
	missing.Add("eval").Type(nodes.TypeInnerTreeEvaluator).Config("tree", "nowhere").
		True(dsl.Success).
		False(dsl.Failure)

	outer := dsl.New("outer")
	outer.Add("eval").Type(nodes.TypeInnerTreeEvaluator).Config("tree", "boom").
		True(dsl.Success).
		False(dsl.Failure)

	trees := treeMap{
		"boom":    testutils.MustBuild(t, boom),
		"self":    testutils.MustBuild(t, self),
		"missing": testutils.MustBuild(t, missing),
		"outer":   testutils.MustBuild(t, outer),
	}
	exec := newExecutor(t, trees, nil)
	ctx := context.Background()

	t.Run("Inner Processing Error Propagates", func(t *testing.T) {
		_, err := exec.Process(ctx, trees["outer"], nil, nil)
		require.Error(t, err)
		assert.True(t, domain.IsProcessingError(err))
		assert.ErrorIs(t, err, testutils.ErrBoom)
	})

	t.Run("Recursion Is Bounded", func(t *testing.T) {
		_, err := exec.Process(ctx, trees["self"], nil, nil)
		assert.True(t, domain.IsConfigError(err))
	})

	t.Run("Unknown Inner Tree", func(t *testing.T) {
		_, err := exec.Process(ctx, trees["missing"], nil, nil)
		assert.True(t, domain.IsConfigError(err))
		assert.ErrorIs(t, err, domain.ErrTreeNotFound)
	})

	t.Run("Corrupt Envelope", func(t *testing.T) {
		state := seeded(trees["outer"], map[string]any{domain.KeyInnerTreeNodeID: "x"})
		state.CurrentNodeID = "eval"
		_, err := exec.Process(ctx, trees["outer"], state, nil)
		assert.True(t, domain.IsProcessingError(err))
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestInnerTreeEvaluator_HooksRunWithOverallResult(t *testing.T) {
	inner := dsl.New("inner")
	inner.Add("audit").Type("Hook").To("ask")
	inner.Add("ask").Type("Collect").Config("key", domain.KeyUsername).To(dsl.Success)

	outer := dsl.New("outer")
	outer.Add("eval").Type(nodes.TypeInnerTreeEvaluator).Config("tree", "inner").
		True("deny").
		False(dsl.Failure)
	outer.Add("deny").Type("Goto").Config("outcome", "false").False(dsl.Failure)

	trees := treeMap{
		"inner": testutils.MustBuild(t, inner),
		"outer": testutils.MustBuild(t, outer),
	}
	rec := &testutils.Recorder{}
	exec := newRecordingExecutor(t, trees, nil, rec)
	ctx := context.Background()

	res, err := exec.Process(ctx, trees["outer"], nil, nil)
	require.NoError(t, err)
	require.Equal(t, domain.ResultNeedInput, res.Kind)
	assert.Empty(t, res.State.Hooks, "inner hooks stay with the suspended inner tree")

	res, err = exec.Process(ctx, trees["outer"], roundTrip(t, res.State), answer(domain.CallbackName, "bob"))
	require.NoError(t, err)
	assert.Equal(t, domain.ResultFalse, res.Kind)
	assert.Equal(t, []domain.HookRef{{Tree: "inner", NodeID: "audit"}}, res.State.Hooks)
	assert.Equal(t, []string{"audit:" + string(domain.ResultFalse)}, rec.Calls(),
		"the hook runs once, with the result of the outer tree")
}
