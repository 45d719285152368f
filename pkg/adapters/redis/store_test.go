package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/authtree/pkg/adapters/redis"
	"github.com/aretw0/authtree/pkg/domain"
	"github.com/aretw0/authtree/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err, "Failed to start miniredis")
	t.Cleanup(mr.Close)
	return mr, backend.NewClient(&backend.Options{Addr: mr.Addr()})
}

func TestRedisStore_Contract(t *testing.T) {
	_, client := newClient(t)
	ports.RunStateStoreContract(t, redis.NewFromClient(client))
}

func TestRedisStore_TTL_Expiration(t *testing.T) {
	mr, client := newClient(t)
	store := redis.NewFromClient(client, redis.WithTTL(time.Minute), redis.WithPrefix("test:"))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "h1", domain.NewTreeState("login")))
	assert.True(t, mr.Exists("test:h1"))
	assert.Equal(t, time.Minute, mr.TTL("test:h1"))

	mr.FastForward(2 * time.Minute)

	_, err := store.Load(ctx, "h1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestRedisStore_DeleteRemovesIndex(t *testing.T) {
	_, client := newClient(t)
	store := redis.NewFromClient(client)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "h1", domain.NewTreeState("login")))
	require.NoError(t, store.Delete(ctx, "h1"))

	handles, err := store.List(ctx)
	require.NoError(t, err)
	assert.NotContains(t, handles, "h1")
}
