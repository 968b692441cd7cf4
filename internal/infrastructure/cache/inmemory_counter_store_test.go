package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"commerce-import-layer/internal/infrastructure/clock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryCounterStore_IncrementAndExpire(t *testing.T) {
	clk := clock.NewFake(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC))
	store := NewInMemoryCounterStoreWithClock(clk.Now)
	ctx := context.Background()

	t.Run("counts up within ttl", func(t *testing.T) {
		for i := int64(1); i <= 3; i++ {
			n, err := store.IncrementAndExpire(ctx, "shop:1:request:1", time.Minute)
			require.NoError(t, err)
			assert.Equal(t, i, n)
		}
	})

	t.Run("restarts after expiry", func(t *testing.T) {
		clk.Advance(61 * time.Second)
		n, err := store.IncrementAndExpire(ctx, "shop:1:request:1", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})
}

func TestInMemoryCounterStore_ConcurrentIncrements(t *testing.T) {
	store := NewInMemoryCounterStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = store.IncrementAndExpire(ctx, "k", time.Minute)
		}()
	}
	wg.Wait()

	v, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "50", v)
}

func TestInMemoryCounterStore_SetNX(t *testing.T) {
	clk := clock.NewFake(time.Now())
	store := NewInMemoryCounterStoreWithClock(clk.Now)
	ctx := context.Background()

	ok, err := store.SetNX(ctx, "lock", "a", 30*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.SetNX(ctx, "lock", "b", 30*time.Second)
	require.NoError(t, err)
	assert.False(t, ok, "held lock should not be acquired twice")

	clk.Advance(31 * time.Second)
	ok, err = store.SetNX(ctx, "lock", "b", 30*time.Second)
	require.NoError(t, err)
	assert.True(t, ok, "expired lock should be acquirable")

	require.NoError(t, store.Delete(ctx, "lock"))
	_, found, err := store.Get(ctx, "lock")
	require.NoError(t, err)
	assert.False(t, found)
}
