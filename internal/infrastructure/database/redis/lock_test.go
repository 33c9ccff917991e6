package redis

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ForestRights-DSS/internal/intelligence/claim_dss"
	"github.com/turtacn/ForestRights-DSS/internal/infrastructure/monitoring/logging"
)

var _ claim_dss.TrainingLock = DistributedLock(nil)

func TestMutex_LockUnlock(t *testing.T) {
	client, mr := newTestClient(t)
	factory := NewLockFactory(client, logging.NewNopLogger())
	ctx := context.Background()

	lock := factory.NewMutex("train", WithLockTTL(time.Second))
	require.NoError(t, lock.Lock(ctx))
	assert.True(t, mr.Exists("test:lock:mutex:train"))

	ttl, err := lock.TTL(ctx)
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, lock.Unlock(ctx))
	assert.False(t, mr.Exists("test:lock:mutex:train"))
}

func TestMutex_Contention(t *testing.T) {
	client, _ := newTestClient(t)
	factory := NewLockFactory(client, nil)
	ctx := context.Background()

	lock1 := factory.NewMutex("train", WithRetryCount(1), WithRetryDelay(10*time.Millisecond))
	lock2 := factory.NewMutex("train", WithRetryCount(1), WithRetryDelay(10*time.Millisecond))

	require.NoError(t, lock1.Lock(ctx))
	assert.Equal(t, ErrLockNotAcquired, lock2.Lock(ctx))

	ok, err := lock2.TryLock(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, lock1.Unlock(ctx))
	require.NoError(t, lock2.Lock(ctx))
	require.NoError(t, lock2.Unlock(ctx))
}

func TestMutex_UnlockByNonOwner(t *testing.T) {
	client, _ := newTestClient(t)
	factory := NewLockFactory(client, nil)
	ctx := context.Background()

	owner := factory.NewMutex("train")
	other := factory.NewMutex("train")
	require.NoError(t, owner.Lock(ctx))

	err := other.Unlock(ctx)
	assert.ErrorIs(t, err, ErrLockNotHeld)
	require.NoError(t, owner.Unlock(ctx))
}

func TestMutex_ExpiredLeaseCanBeTaken(t *testing.T) {
	client, mr := newTestClient(t)
	factory := NewLockFactory(client, nil)
	ctx := context.Background()

	lock1 := factory.NewMutex("train", WithLockTTL(time.Second))
	lock2 := factory.NewMutex("train", WithRetryCount(1))
	require.NoError(t, lock1.Lock(ctx))

	mr.FastForward(2 * time.Second)
	require.NoError(t, lock2.Lock(ctx))
	assert.ErrorIs(t, lock1.Unlock(ctx), ErrLockNotHeld)
}

func TestMutex_Extend(t *testing.T) {
	client, mr := newTestClient(t)
	factory := NewLockFactory(client, nil)
	ctx := context.Background()

	lock := factory.NewMutex("train", WithLockTTL(time.Second))
	require.NoError(t, lock.Lock(ctx))

	ok, err := lock.Extend(ctx, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Greater(t, mr.TTL("test:lock:mutex:train"), 30*time.Second)

	require.NoError(t, lock.Unlock(ctx))
	ok, err = lock.Extend(ctx, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMutex_WatchdogStopsOnUnlock(t *testing.T) {
	client, mr := newTestClient(t)
	factory := NewLockFactory(client, nil)
	ctx := context.Background()

	lock := factory.NewMutex("train", WithLockTTL(300*time.Millisecond), WithWatchdog(true))
	require.NoError(t, lock.Lock(ctx))
	time.Sleep(250 * time.Millisecond)
	assert.True(t, mr.Exists("test:lock:mutex:train"))

	require.NoError(t, lock.Unlock(ctx))
	assert.False(t, mr.Exists("test:lock:mutex:train"))
}

func TestMutex_SerializesCriticalSection(t *testing.T) {
	client, _ := newTestClient(t)
	factory := NewLockFactory(client, nil)
	ctx := context.Background()

	var inside, maxInside atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lock := factory.NewMutex("train", WithRetryDelay(5*time.Millisecond), WithRetryCount(500))
			if !assert.NoError(t, lock.Lock(ctx)) {
				return
			}
			n := inside.Add(1)
			for {
				m := maxInside.Load()
				if n <= m || maxInside.CompareAndSwap(m, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			inside.Add(-1)
			assert.NoError(t, lock.Unlock(ctx))
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxInside.Load())
}

func TestMutex_ClosedClient(t *testing.T) {
	client, _ := newTestClient(t)
	lock := NewLockFactory(client, nil).NewMutex("train")
	require.NoError(t, client.Close())

	_, err := lock.TryLock(context.Background())
	assert.Equal(t, ErrClientClosed, err)
}
