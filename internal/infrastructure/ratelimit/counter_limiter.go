package ratelimit

import (
	"context"
	"fmt"
	"time"

	"commerce-import-layer/internal/infrastructure/clock"
	"commerce-import-layer/internal/ports"

	"github.com/rs/zerolog"
)

const (
	// DefaultRequestsPerMinute is the per-shop budget before callers block
	DefaultRequestsPerMinute = 20
	// counterTTL outlives the minute window so late increments still expire
	counterTTL = 61 * time.Second
)

// CounterLimiter enforces a per-shop, per-minute request budget through a shared counter store
type CounterLimiter struct {
	store  ports.CounterStore
	limit  int64
	clock  clock.Clock
	logger zerolog.Logger
	onWait func(shopID string, wait time.Duration)
}

// NewCounterLimiter creates a limiter allowing limit requests per shop per minute
func NewCounterLimiter(store ports.CounterStore, limit int, clk clock.Clock, logger zerolog.Logger) *CounterLimiter {
	if limit <= 0 {
		limit = DefaultRequestsPerMinute
	}
	if clk == nil {
		clk = clock.Real{}
	}
	return &CounterLimiter{
		store:  store,
		limit:  int64(limit),
		clock:  clk,
		logger: logger,
	}
}

// OnWait registers a hook observing every blocking wait
func (l *CounterLimiter) OnWait(fn func(shopID string, wait time.Duration)) {
	l.onWait = fn
}

// Key returns the counter key for a shop in the minute containing t
func Key(shopID string, t time.Time) string {
	return fmt.Sprintf("shop:%s:request:%d", shopID, t.UTC().Truncate(time.Minute).Unix())
}

// Wait counts one request for the shop. Once the minute's count exceeds the limit the
// caller sleeps until the window rolls over and is counted in the new window.
func (l *CounterLimiter) Wait(ctx context.Context, shopID string) error {
	for {
		now := l.clock.Now()
		count, err := l.store.IncrementAndExpire(ctx, Key(shopID, now), counterTTL)
		if err != nil {
			return fmt.Errorf("failed to increment request counter: %w", err)
		}
		if count <= l.limit {
			return nil
		}

		wait := now.Truncate(time.Minute).Add(time.Minute).Sub(now)
		l.logger.Info().
			Str("shop", shopID).
			Int64("count", count).
			Int64("limit", l.limit).
			Dur("wait", wait).
			Msg("Request budget exhausted, waiting for next window")
		if l.onWait != nil {
			l.onWait(shopID, wait)
		}
		if err := l.clock.Sleep(ctx, wait); err != nil {
			return err
		}
	}
}
