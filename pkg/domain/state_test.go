package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTreeState_ApplyOutcome(t *testing.T) {
	state := NewTreeState("login")
	state.Shared["keep"] = "me"

	next := state.Apply("n1", Goto("outcome").
		WithShared(KeyUsername, "bob").
		WithTransient(KeyPassword, "secret").
		WithSessionProperty("realm", "/").
		WithIdentity("bob"))

	assert.Equal(t, 1, next.Version)
	assert.Equal(t, []string{"n1"}, next.Visited)
	assert.Equal(t, "bob", next.Shared[KeyUsername])
	assert.Equal(t, "me", next.Shared["keep"])
	assert.Equal(t, "secret", next.Transient[KeyPassword])
	assert.Equal(t, "/", next.SessionProperties["realm"])
	assert.Equal(t, "bob", next.Identity)

	// The previous version is untouched.
	assert.Equal(t, 0, state.Version)
	assert.Empty(t, state.Visited)
	assert.NotContains(t, state.Shared, KeyUsername)
	assert.NotContains(t, state.Transient, KeyPassword)
}

func TestTreeState_ApplySuspend(t *testing.T) {
	state := NewTreeState("login")

	next := state.Apply("n1", Send(NameCallback("User Name")).WithPrivate("attempts", 1))

	assert.Equal(t, "n1", next.CurrentNodeID)
	assert.Empty(t, next.Visited, "suspended nodes are not part of the audit trail yet")
	assert.Equal(t, 1, next.Private["n1"]["attempts"])
	assert.Empty(t, state.Private)
}

func TestTreeState_ApplyReplaceShared(t *testing.T) {
	state := NewTreeState("outer")
	state.Shared["a"] = 1
	state.Shared[KeyInnerTreeNodeID] = "x"

	action := ClearInnerTreeEnvelope(Goto("true").ReplacingShared(map[string]any{"b": 2, KeyInnerTreeNodeID: "x"}))
	next := state.Apply("inner", action)

	assert.Equal(t, map[string]any{"b": 2}, next.Shared)
}

func TestTreeState_ClearPrivate(t *testing.T) {
	state := NewTreeState("t")
	state.Private["n1"] = map[string]any{"attempts": 2}

	next := state.Apply("n1", Goto("true").WithoutPrivate())
	assert.NotContains(t, next.Private, "n1")
	assert.Contains(t, state.Private, "n1")
}

func TestTreeState_ApplyTreeHook(t *testing.T) {
	state := NewTreeState("t")
	next := state.Apply("a", Goto("outcome").WithTreeHook())
	next = next.Apply("b", Goto("outcome"))
	next = next.Apply("c", Goto("outcome").WithTreeHook())

	assert.Equal(t, []HookRef{{Tree: "t", NodeID: "a"}, {Tree: "t", NodeID: "c"}}, next.Hooks)
	assert.Equal(t, []string{"a", "b", "c"}, next.Visited)
	assert.Equal(t, 3, next.Version)
}

func TestTreeState_JSONOmitsTransient(t *testing.T) {
	state := NewTreeState("t")
	state.Shared[KeyUsername] = "bob"
	state.Transient[KeyPassword] = "secret"

	data, err := json.Marshal(state)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "secret")

	var loaded TreeState
	require.NoError(t, json.Unmarshal(data, &loaded))
	assert.Equal(t, "bob", loaded.Shared[KeyUsername])
	assert.Nil(t, loaded.Transient)
}

func TestNodeState_Isolation(t *testing.T) {
	state := NewTreeState("t")
	state.Shared["profile"] = map[string]any{"name": "bob"}
	state.Transient["level"] = 3
	state.Shared["level"] = 1
	state.Private["a"] = map[string]any{"secret": "a-only"}

	view := state.View("b")

	_, ok := view.Private("secret")
	assert.False(t, ok, "a node must not see another node's private namespace")

	level, ok := view.Int("level")
	assert.True(t, ok)
	assert.Equal(t, 3, level, "transient shadows shared in Get")

	doc := view.SharedDocument()
	doc["profile"].(map[string]any)["name"] = "mallory"
	assert.Equal(t, "bob", state.Shared["profile"].(map[string]any)["name"])

	secret, ok := state.View("a").Private("secret")
	assert.True(t, ok)
	assert.Equal(t, "a-only", secret)
}

func TestTreeState_AuthLevel(t *testing.T) {
	state := NewTreeState("t")
	assert.Equal(t, 0, state.AuthLevel())

	state.Shared[KeyAuthLevel] = float64(7)
	assert.Equal(t, 7, state.AuthLevel())

	state.Shared[KeyAuthLevel] = json.Number("-5")
	assert.Equal(t, -5, state.AuthLevel())
}
