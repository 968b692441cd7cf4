package ratelimit

import (
	"context"
	"fmt"
	"time"

	"commerce-import-layer/internal/infrastructure/clock"

	"golang.org/x/time/rate"
)

// Pacer spaces consecutive calls at least interval apart. The interval starts when the
// pacer is created, so the first Wait pauses too.
type Pacer struct {
	limiter *rate.Limiter
	clock   clock.Clock
}

func NewPacer(interval time.Duration, clk clock.Clock) *Pacer {
	if clk == nil {
		clk = clock.Real{}
	}
	limiter := rate.NewLimiter(rate.Every(interval), 1)
	limiter.AllowN(clk.Now(), 1)
	return &Pacer{limiter: limiter, clock: clk}
}

// Wait blocks until the next call is allowed or ctx is done
func (p *Pacer) Wait(ctx context.Context) error {
	now := p.clock.Now()
	r := p.limiter.ReserveN(now, 1)
	if !r.OK() {
		return fmt.Errorf("failed to reserve pacer slot")
	}
	if d := r.DelayFrom(now); d > 0 {
		if err := p.clock.Sleep(ctx, d); err != nil {
			r.CancelAt(p.clock.Now())
			return err
		}
	}
	return nil
}
