package ratelimit

import (
	"context"
	"testing"
	"time"

	"commerce-import-layer/internal/infrastructure/clock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPacer_SpacesCalls(t *testing.T) {
	clk := clock.NewFake(time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC))
	p := NewPacer(5*time.Second, clk)
	ctx := context.Background()

	require.NoError(t, p.Wait(ctx))
	require.NoError(t, p.Wait(ctx))

	assert.Equal(t, []time.Duration{5 * time.Second, 5 * time.Second}, clk.Sleeps())
}

func TestPacer_ElapsedTimeCounts(t *testing.T) {
	clk := clock.NewFake(time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC))
	p := NewPacer(5*time.Second, clk)

	clk.Advance(3 * time.Second)
	require.NoError(t, p.Wait(context.Background()))
	assert.Equal(t, []time.Duration{2 * time.Second}, clk.Sleeps())

	clk.Advance(time.Minute)
	require.NoError(t, p.Wait(context.Background()))
	assert.Len(t, clk.Sleeps(), 1)
}

func TestPacer_HonoursCancellation(t *testing.T) {
	clk := clock.NewFake(time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC))
	p := NewPacer(time.Hour, clk)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.Wait(ctx), context.Canceled)
}
