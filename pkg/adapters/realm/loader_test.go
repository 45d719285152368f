package realm_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/authtree/pkg/adapters/realm"
	"github.com/aretw0/authtree/pkg/domain"
	"github.com/aretw0/authtree/pkg/ports"
	"github.com/aretw0/authtree/pkg/ports/tests"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ ports.TreeSource = (*realm.Loader)(nil)
	_ ports.Watchable  = (*realm.Loader)(nil)
)

const loginYAML = `
entry: user
nodes:
  user:
    type: UsernameCollector
    connections: {outcome: pass}
  pass:
    type: PasswordCollector
    connections: {outcome: check}
  check:
    type: DataStoreDecision
    display_name: Check credentials
    connections:
      "true": success
      "false": failure
`

const levelJSON = `{
  "name": "level",
  "entry": "choose",
  "nodes": {
    "choose": {
      "type": "ChoiceCollector",
      "config": {"choices": ["weak", "strong"], "default_choice": 1},
      "connections": {"choice0": "weak", "choice1": "strong"}
    },
    "weak": {"type": "ModifyAuthLevel", "config": {"value": 1}, "connections": {"outcome": "success"}},
    "strong": {"type": "ModifyAuthLevel", "config": {"value": 10}, "connections": {"outcome": "success"}}
  }
}`

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func newRealm(t *testing.T) (string, *realm.Loader) {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, "login.yaml", loginYAML)
	writeFile(t, dir, "level.json", levelJSON)
	writeFile(t, dir, "identities.yaml", "users: []\n")
	writeFile(t, dir, "README.md", "not a tree")
	return dir, realm.New(dir)
}

func TestLoader_Contract(t *testing.T) {
	_, loader := newRealm(t)
	tests.TreeSourceContractTest(t, loader, map[string]string{
		"login": "user",
		"level": "choose",
	})
}

func TestLoader_ListSkipsNonTrees(t *testing.T) {
	_, loader := newRealm(t)
	names, err := loader.ListTrees(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"level", "login"}, names)

	_, err = loader.LoadTree(context.Background(), realm.IdentitiesFile)
	assert.ErrorIs(t, err, domain.ErrTreeNotFound)
}

func TestLoader_DecodesDefinition(t *testing.T) {
	_, loader := newRealm(t)

	tree, err := loader.LoadTree(context.Background(), "login")
	require.NoError(t, err)

	decl, ok := tree.Node("check")
	require.True(t, ok)
	assert.Equal(t, "DataStoreDecision", decl.Type)
	assert.Equal(t, "Check credentials", decl.DisplayName)
	assert.Equal(t, map[string]string{"true": domain.SuccessNodeID, "false": domain.FailureNodeID}, tree.Connections("check"))
	next, err := tree.Resolve("check", "true")
	require.NoError(t, err)
	assert.True(t, domain.IsTerminal(next))

	level, err := loader.LoadTree(context.Background(), "level")
	require.NoError(t, err)
	choose, _ := level.Node("choose")
	assert.Equal(t, []any{"weak", "strong"}, choose.Config["choices"])
}

func TestLoader_ConfigErrors(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"malformed yaml", "entry: [unterminated"},
		{"unknown field", "entry: a\ncolour: blue\nnodes: {a: {type: X, connections: {outcome: success}}}"},
		{"missing entry", "nodes: {a: {type: X, connections: {outcome: success}}}"},
		{"dangling edge", "entry: a\nnodes: {a: {type: X, connections: {outcome: nowhere}}}"},
		{"reserved node id", "entry: success\nnodes: {success: {type: X, connections: {outcome: failure}}}"},
		{"name mismatch", "name: other\nentry: a\nnodes: {a: {type: X, connections: {outcome: success}}}"},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, dir, "broken.yaml", tt.content)

			_, err := realm.New(dir).LoadTree(context.Background(), "broken")
			require.Error(t, err)
			var ce *domain.ConfigError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, "broken", ce.Tree)
		})
	}
}

func TestLoader_MissingDirectory(t *testing.T) {
	loader := realm.New(filepath.Join(t.TempDir(), "absent"))
	names, err := loader.ListTrees(context.Background())
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestLoader_Watch(t *testing.T) {
	dir, loader := newRealm(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := loader.Watch(ctx)
	require.NoError(t, err)

	writeFile(t, dir, "login.yaml", loginYAML+"\n# touched\n")

	select {
	case name := <-ch:
		assert.Equal(t, "login", name)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for watch event")
	}

	cancel()
	// Drain until the watcher closes the channel.
	for range ch {
	}
}

func TestDefinition_RoundTrip(t *testing.T) {
	_, loader := newRealm(t)
	tree, err := loader.LoadTree(context.Background(), "login")
	require.NoError(t, err)

	def := realm.Definition(tree)
	assert.Equal(t, map[string]string{"true": realm.AliasSuccess, "false": realm.AliasFailure}, def.Nodes["check"].Connections)

	rebuilt, err := def.Build()
	require.NoError(t, err)
	assert.Equal(t, tree.String(), rebuilt.String())
}

func TestDefinition_AcceptsSentinelIDs(t *testing.T) {
	def := &realm.TreeDefinition{
		Name:  "raw",
		Entry: "a",
		Nodes: map[string]realm.NodeDefinition{
			"a": {Type: "X", Connections: map[string]string{"true": domain.SuccessNodeID, "false": realm.AliasFailure}},
		},
	}
	tree, err := def.Build()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"true": domain.SuccessNodeID, "false": domain.FailureNodeID}, tree.Connections("a"))
}
