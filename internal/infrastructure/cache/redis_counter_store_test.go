package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisStore(t *testing.T) (*RedisCounterStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisCounterStoreWithClient(client, "test:"), mr
}

func TestRedisCounterStore_IncrementAndExpire(t *testing.T) {
	store, mr := newTestRedisStore(t)
	ctx := context.Background()

	n, err := store.IncrementAndExpire(ctx, "shop:7:request:100", 61*time.Second)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = store.IncrementAndExpire(ctx, "shop:7:request:100", 61*time.Second)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	assert.Equal(t, 61*time.Second, mr.TTL("test:shop:7:request:100"))

	mr.FastForward(62 * time.Second)
	n, err = store.IncrementAndExpire(ctx, "shop:7:request:100", 61*time.Second)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "counter should restart once the window expired")
}

func TestRedisCounterStore_GetSet(t *testing.T) {
	store, _ := newTestRedisStore(t)
	ctx := context.Background()

	_, found, err := store.Get(ctx, "shop:1:CAT1")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.Set(ctx, "shop:1:CAT1", "Shirts", time.Hour))
	v, found, err := store.Get(ctx, "shop:1:CAT1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "Shirts", v)
}

func TestRedisCounterStore_SetNX(t *testing.T) {
	store, _ := newTestRedisStore(t)
	ctx := context.Background()

	ok, err := store.SetNX(ctx, "lock", "1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.SetNX(ctx, "lock", "2", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Delete(ctx, "lock"))
	ok, err = store.SetNX(ctx, "lock", "3", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}
