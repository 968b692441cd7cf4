package ratelimit

import (
	"context"
	"testing"
	"time"

	"commerce-import-layer/internal/infrastructure/cache"
	"commerce-import-layer/internal/infrastructure/clock"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounterLimiter_BlocksAfterLimitUntilWindowBoundary(t *testing.T) {
	clk := clock.NewFake(time.Date(2024, 6, 3, 12, 0, 30, 0, time.UTC))
	store := cache.NewInMemoryCounterStoreWithClock(clk.Now)
	limiter := NewCounterLimiter(store, 20, clk, zerolog.Nop())
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		require.NoError(t, limiter.Wait(ctx, "42"))
	}
	assert.Empty(t, clk.Sleeps(), "the first 20 requests should pass without waiting")

	require.NoError(t, limiter.Wait(ctx, "42"))
	assert.Equal(t, []time.Duration{30 * time.Second}, clk.Sleeps())
	assert.Equal(t, time.Date(2024, 6, 3, 12, 1, 0, 0, time.UTC), clk.Now())

	v, ok, err := store.Get(ctx, Key("42", clk.Now()))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "1", v, "the blocked request is counted in the new window")
}

func TestCounterLimiter_FreshWindowNeverBlocks(t *testing.T) {
	clk := clock.NewFake(time.Date(2024, 6, 3, 12, 0, 59, 0, time.UTC))
	store := cache.NewInMemoryCounterStoreWithClock(clk.Now)
	limiter := NewCounterLimiter(store, 20, clk, zerolog.Nop())
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		require.NoError(t, limiter.Wait(ctx, "42"))
	}
	clk.Advance(2 * time.Second)

	require.NoError(t, limiter.Wait(ctx, "42"))
	assert.Empty(t, clk.Sleeps())
}

func TestCounterLimiter_ShopsAreIndependent(t *testing.T) {
	clk := clock.NewFake(time.Date(2024, 6, 3, 12, 0, 10, 0, time.UTC))
	store := cache.NewInMemoryCounterStoreWithClock(clk.Now)
	limiter := NewCounterLimiter(store, 2, clk, zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, limiter.Wait(ctx, "a"))
	require.NoError(t, limiter.Wait(ctx, "a"))
	require.NoError(t, limiter.Wait(ctx, "b"))
	require.NoError(t, limiter.Wait(ctx, "b"))
	assert.Empty(t, clk.Sleeps())
}

func TestCounterLimiter_OnWaitHook(t *testing.T) {
	clk := clock.NewFake(time.Date(2024, 6, 3, 12, 0, 45, 0, time.UTC))
	store := cache.NewInMemoryCounterStoreWithClock(clk.Now)
	limiter := NewCounterLimiter(store, 1, clk, zerolog.Nop())

	var waited time.Duration
	limiter.OnWait(func(_ string, d time.Duration) { waited = d })

	require.NoError(t, limiter.Wait(context.Background(), "x"))
	require.NoError(t, limiter.Wait(context.Background(), "x"))
	assert.Equal(t, 15*time.Second, waited)
}

func TestKey(t *testing.T) {
	at := time.Date(2024, 6, 3, 12, 0, 45, 0, time.UTC)
	assert.Equal(t, "shop:9:request:1717416000", Key("9", at))
	assert.Equal(t, Key("9", at), Key("9", at.Add(10*time.Second)))
	assert.NotEqual(t, Key("9", at), Key("9", at.Add(20*time.Second)))
}
