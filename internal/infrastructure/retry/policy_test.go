package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"commerce-import-layer/internal/domain"
	"commerce-import-layer/internal/infrastructure/clock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func transient() error {
	return domain.NewImportError(domain.KindTransientUpstream, domain.ProviderAmazon, "get_orders", domain.WithStatus(503))
}

func TestFixedRetriesUntilSuccess(t *testing.T) {
	clk := clock.NewFake(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	p := Fixed(3, 60*time.Second).WithClock(clk)

	calls := 0
	got, err := Do(context.Background(), p, func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", transient()
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{60 * time.Second, 60 * time.Second}, clk.Sleeps())
}

func TestFixedReturnsLastErrorWhenExhausted(t *testing.T) {
	clk := clock.NewFake(time.Now())
	p := Fixed(3, time.Second).WithClock(clk)

	calls := 0
	err := p.Run(context.Background(), func(context.Context) error {
		calls++
		return transient()
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, domain.KindTransientUpstream, domain.KindOf(err))
	assert.Len(t, clk.Sleeps(), 2)
}

func TestFatalErrorIsNotRetried(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"invalid request", domain.NewImportError(domain.KindInvalidRequest, domain.ProviderEtsy, "receipts")},
		{"not found", domain.NewImportError(domain.KindNotFound, domain.ProviderEtsy, "listing")},
		{"auth expired", domain.NewImportError(domain.KindAuthExpired, domain.ProviderEtsy, "shop")},
		{"unclassified", errors.New("boom")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clk := clock.NewFake(time.Now())
			calls := 0
			err := Default().WithClock(clk).Run(context.Background(), func(context.Context) error {
				calls++
				return tt.err
			})
			assert.ErrorIs(t, err, tt.err)
			assert.Equal(t, 1, calls)
			assert.Empty(t, clk.Sleeps())
		})
	}
}

func TestExponentialWaitsPowersOfBase(t *testing.T) {
	clk := clock.NewFake(time.Now())
	p := Exponential(5, 3).WithClock(clk)

	calls := 0
	_ = p.Run(context.Background(), func(context.Context) error {
		calls++
		return transient()
	})

	assert.Equal(t, 5, calls)
	assert.Equal(t, []time.Duration{
		3 * time.Second,
		9 * time.Second,
		27 * time.Second,
		81 * time.Second,
	}, clk.Sleeps())
}

func TestRateLimitedHonoursRetryAfter(t *testing.T) {
	clk := clock.NewFake(time.Now())
	p := Fixed(2, time.Second).WithClock(clk)

	calls := 0
	err := p.Run(context.Background(), func(context.Context) error {
		calls++
		if calls == 1 {
			return domain.NewImportError(domain.KindRateLimited, domain.ProviderWooCommerce, "orders",
				domain.WithStatus(429), domain.WithRetryAfter(30*time.Second))
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []time.Duration{30 * time.Second}, clk.Sleeps())
}

func TestCancelledContextStopsWaiting(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	clk := clock.NewFake(time.Now())
	calls := 0
	err := Fixed(3, time.Second).WithClock(clk).Run(ctx, func(context.Context) error {
		calls++
		return transient()
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, domain.KindTransientUpstream, domain.KindOf(err))
	assert.Equal(t, 1, calls)
}
