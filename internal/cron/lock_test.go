package cron

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type memoryRedis struct {
	mu   sync.Mutex
	vals map[string]string
	ttls map[string]time.Duration
}

func newMemoryRedis() *memoryRedis {
	return &memoryRedis{vals: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memoryRedis) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.vals[key]; ok {
		return false, nil
	}
	m.vals[key] = value.(string)
	m.ttls[key] = ttl
	return true, nil
}

func (m *memoryRedis) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.vals[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *memoryRedis) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.vals, k)
	}
	return nil
}

func TestRedisLockExcludesSecondWorker(t *testing.T) {
	store := newMemoryRedis()
	ctx := context.Background()
	first, err := NewRedisLock(store, "mm:cron-worker:lock:test", 0)
	require.NoError(t, err)
	second, err := NewRedisLock(store, "mm:cron-worker:lock:test", 0)
	require.NoError(t, err)

	ok, err := first.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, defaultLockTTL, store.ttls["mm:cron-worker:lock:test"])

	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, second.Release(ctx))
	_, err = store.Get(ctx, "mm:cron-worker:lock:test")
	require.NoError(t, err, "non-owner release must not drop the lock")

	require.NoError(t, first.Release(ctx))
	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestRedisLockHolderNamesInstance(t *testing.T) {
	t.Setenv("WORKER_ID", "cron.1")
	store := newMemoryRedis()
	ctx := context.Background()
	lock, err := NewRedisLock(store, "mm:cron-worker:lock:test", time.Minute)
	require.NoError(t, err)

	holder, err := lock.Holder(ctx)
	require.NoError(t, err)
	require.Empty(t, holder)

	ok, err := lock.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	holder, err = lock.Holder(ctx)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(holder, "cron.1/"), holder)
	require.Equal(t, time.Minute, store.ttls["mm:cron-worker:lock:test"])
}

func TestRedisLockReleaseKeepsSuccessorLock(t *testing.T) {
	store := newMemoryRedis()
	ctx := context.Background()
	lock, err := NewRedisLock(store, "mm:cron-worker:lock:test", time.Minute)
	require.NoError(t, err)
	ok, err := lock.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	// the ttl lapsed and another worker took over
	store.vals["mm:cron-worker:lock:test"] = "cron.2/other-run"

	require.NoError(t, lock.Release(ctx))
	holder, err := lock.Holder(ctx)
	require.NoError(t, err)
	require.Equal(t, "cron.2/other-run", holder)
}
