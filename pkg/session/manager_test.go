package session_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/authtree/pkg/adapters/memory"
	"github.com/aretw0/authtree/pkg/adapters/redis"
	"github.com/aretw0/authtree/pkg/domain"
	"github.com/aretw0/authtree/pkg/ports"
	"github.com/aretw0/authtree/pkg/session"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_Contract(t *testing.T) {
	mgr := session.NewManager(memory.NewStore())
	ports.RunStateStoreContract(t, mgr)
}

func TestManager_Create(t *testing.T) {
	mgr := session.NewManager(memory.NewStore())
	ctx := context.Background()

	h1, err := mgr.Create(ctx, domain.NewTreeState("login"))
	require.NoError(t, err)
	h2, err := mgr.Create(ctx, domain.NewTreeState("login"))
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)

	loaded, err := mgr.Load(ctx, h1)
	require.NoError(t, err)
	assert.Equal(t, "login", loaded.TreeName)
}

// TestManager_SerializesReadModifyWrite increments a counter under WithLock from many
// goroutines. Without serialization updates would be lost.
func TestManager_SerializesReadModifyWrite(t *testing.T) {
	mgr := session.NewManager(memory.NewStore())
	ctx := context.Background()
	handle := "race-test"
	require.NoError(t, mgr.Save(ctx, handle, domain.NewTreeState("login")))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := mgr.WithLock(ctx, handle, func(ctx context.Context) error {
				state, err := mgr.Store().Load(ctx, handle)
				if err != nil {
					return err
				}
				time.Sleep(time.Millisecond)
				state.Version++
				return mgr.Store().Save(ctx, handle, state)
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	final, err := mgr.Load(ctx, handle)
	require.NoError(t, err)
	assert.Equal(t, 20, final.Version)
}

type recordingLocker struct {
	locks, unlocks atomic.Int32
	fail           bool
}

func (l *recordingLocker) Lock(_ context.Context, _ string, _ time.Duration) (ports.UnlockFunc, error) {
	if l.fail {
		return nil, errors.New("cluster unavailable")
	}
	l.locks.Add(1)
	return func(context.Context) error {
		l.unlocks.Add(1)
		return nil
	}, nil
}

func TestManager_DistributedLocker(t *testing.T) {
	locker := &recordingLocker{}
	mgr := session.NewManager(memory.NewStore(), session.WithLocker(locker))
	ctx := context.Background()

	require.NoError(t, mgr.Save(ctx, "h", domain.NewTreeState("login")))
	_, err := mgr.Load(ctx, "h")
	require.NoError(t, err)

	assert.Equal(t, int32(2), locker.locks.Load())
	assert.Equal(t, int32(2), locker.unlocks.Load())

	locker.fail = true
	err = mgr.Save(ctx, "h", domain.NewTreeState("login"))
	assert.ErrorContains(t, err, "distributed lock")
}

func TestManager_RedisLocker(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	store := redis.NewFromClient(client)
	mgr := session.NewManager(store, session.WithLocker(redis.NewLocker(client, "authtree:")), session.WithLockTTL(time.Second))

	ctx := context.Background()
	handle, err := mgr.Create(ctx, domain.NewTreeState("login"))
	require.NoError(t, err)

	err = mgr.WithLock(ctx, handle, func(ctx context.Context) error {
		assert.True(t, mr.Exists("authtree:lock:"+handle))
		return nil
	})
	require.NoError(t, err)
	assert.False(t, mr.Exists("authtree:lock:"+handle))
}
