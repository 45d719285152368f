package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/authtree/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunStateStoreContract runs a suite of tests to verify that a StateStore implementation
// adheres to the defined interface contract.
func RunStateStoreContract(t *testing.T, store StateStore) {
	ctx := context.Background()
	handle := "contract-test-session-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		// 1. Create a suspended state with every persisted part populated
		state := domain.NewTreeState("login")
		state.CurrentNodeID = "otp"
		state.Shared[domain.KeyUsername] = "bob"
		state.Shared[domain.KeyAuthLevel] = 5
		state.Private["otp"] = map[string]any{"attempts": 1}
		state.Visited = []string{"user", "pass"}
		state.Hooks = []domain.HookRef{{Tree: "login", NodeID: "audit"}}
		state.SessionProperties = map[string]string{"realm": "/"}
		state.Identity = "bob"
		state.Version = 4
		state.Transient[domain.KeyPassword] = "secret"

		// 2. Save
		err := store.Save(ctx, handle, state)
		require.NoError(t, err, "Save should not return error")

		// 3. Load
		loaded, err := store.Load(ctx, handle)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, "login", loaded.TreeName)
		assert.Equal(t, "otp", loaded.CurrentNodeID)
		assert.Equal(t, "bob", loaded.Shared[domain.KeyUsername])
		assert.Equal(t, []string{"user", "pass"}, loaded.Visited)
		assert.Equal(t, []domain.HookRef{{Tree: "login", NodeID: "audit"}}, loaded.Hooks)
		assert.Equal(t, "/", loaded.SessionProperties["realm"])
		assert.Equal(t, "bob", loaded.Identity)
		assert.Equal(t, 4, loaded.Version)
		// JSON persistence may turn ints into float64; the number must survive either way.
		level, ok := domain.AsInt(loaded.Shared[domain.KeyAuthLevel])
		assert.True(t, ok)
		assert.Equal(t, 5, level)
		attempts, ok := domain.AsInt(loaded.Private["otp"]["attempts"])
		assert.True(t, ok)
		assert.Equal(t, 1, attempts)
		assert.NotContains(t, loaded.Transient, domain.KeyPassword, "transient state is never persisted")

		// 4. The stored copy is isolated from later mutation
		state.Shared[domain.KeyUsername] = "mallory"
		again, err := store.Load(ctx, handle)
		require.NoError(t, err)
		assert.Equal(t, "bob", again.Shared[domain.KeyUsername])
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+handle)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, handle, domain.NewTreeState("login"))
		require.NoError(t, err)

		err = store.Delete(ctx, handle)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, handle)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")

		assert.NoError(t, store.Delete(ctx, handle), "Delete of a missing session is not an error")
	})

	t.Run("List", func(t *testing.T) {
		id1 := handle + "-1"
		id2 := handle + "-2"
		_ = store.Save(ctx, id1, domain.NewTreeState("login"))
		_ = store.Save(ctx, id2, domain.NewTreeState("login"))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})
}
