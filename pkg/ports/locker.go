package ports

import (
	"context"
	"time"
)

// UnlockFunc releases a lock taken by DistributedLocker.Lock.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker serializes work on one session handle across engine replicas
// that share a vault.
type DistributedLocker interface {
	// Lock blocks until key is held or ctx is done. The lock lapses on its own
	// after ttl so a crashed replica cannot wedge a session. The returned
	// UnlockFunc must be called once the vault record has been written.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
