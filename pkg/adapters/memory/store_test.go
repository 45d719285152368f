package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/authtree/pkg/adapters/memory"
	"github.com/aretw0/authtree/pkg/domain"
	"github.com/aretw0/authtree/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Contract(t *testing.T) {
	store := memory.NewStore()
	ports.RunStateStoreContract(t, store)
}

func TestMemoryStore_TTL(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store := memory.NewStore(memory.WithTTL(time.Minute), memory.WithClock(func() time.Time { return now }))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "h1", domain.NewTreeState("login")))

	_, err := store.Load(ctx, "h1")
	require.NoError(t, err)

	now = now.Add(time.Minute)
	_, err = store.Load(ctx, "h1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	handles, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, handles)
}
