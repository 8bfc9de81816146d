package cron

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryRedis struct {
	values map[string]string
	ttls   map[string]time.Duration
}

func newMemoryRedis() *memoryRedis {
	return &memoryRedis{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memoryRedis) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = value.(string)
	m.ttls[key] = ttl
	return true, nil
}

func (m *memoryRedis) Get(_ context.Context, key string) (string, error) {
	v, ok := m.values[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *memoryRedis) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}

func TestRedisLockIsExclusive(t *testing.T) {
	store := newMemoryRedis()
	first, err := NewRedisLock(store, "cron:lock", time.Hour)
	require.NoError(t, err)
	second, err := NewRedisLock(store, "cron:lock", time.Hour)
	require.NoError(t, err)

	ok, err := first.Acquire(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, time.Hour, store.ttls["cron:lock"])

	ok, err = second.Acquire(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	// A non-owner release leaves the lock alone.
	require.NoError(t, second.Release(context.Background()))
	assert.Contains(t, store.values, "cron:lock")

	require.NoError(t, first.Release(context.Background()))
	assert.NotContains(t, store.values, "cron:lock")
}

func TestRedisLockReleaseAfterExpiry(t *testing.T) {
	store := newMemoryRedis()
	lock, err := NewRedisLock(store, "cron:lock", 0)
	require.NoError(t, err)
	_, err = lock.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, defaultLockTTL, store.ttls["cron:lock"])

	delete(store.values, "cron:lock")
	assert.NoError(t, lock.Release(context.Background()))
}
