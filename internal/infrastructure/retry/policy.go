package retry

import (
	"context"
	"errors"
	"math"
	"time"

	"commerce-import-layer/internal/domain"
	"commerce-import-layer/internal/infrastructure/clock"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"
)

const (
	DefaultMaxAttempts = 3
	DefaultInterval    = 60 * time.Second
	DefaultBase        = 3.0
)

// Policy is a bounded retry executor. Only errors accepted by Retryable are retried;
// everything else is returned on the first failure.
type Policy struct {
	MaxAttempts int
	NewBackOff  func() backoff.BackOff
	Retryable   func(error) bool
	Clock       clock.Clock
	Logger      zerolog.Logger
	// OnRetry is called before each wait
	OnRetry func(attempt int, err error, wait time.Duration)
}

// Fixed retries with a constant wait between attempts
func Fixed(maxAttempts int, interval time.Duration) Policy {
	return Policy{
		MaxAttempts: maxAttempts,
		NewBackOff: func() backoff.BackOff {
			return backoff.NewConstantBackOff(interval)
		},
		Logger: zerolog.Nop(),
	}
}

// Exponential waits base^n seconds before retry n
func Exponential(maxAttempts int, base float64) Policy {
	return Policy{
		MaxAttempts: maxAttempts,
		NewBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = time.Duration(base * float64(time.Second))
			b.Multiplier = base
			b.RandomizationFactor = 0
			b.MaxInterval = time.Duration(math.Pow(base, float64(maxAttempts)) * float64(time.Second))
			b.Reset()
			return b
		},
		Logger: zerolog.Nop(),
	}
}

// Default is three attempts sixty seconds apart
func Default() Policy {
	return Fixed(DefaultMaxAttempts, DefaultInterval)
}

// WithClock returns a copy using c for waits
func (p Policy) WithClock(c clock.Clock) Policy {
	p.Clock = c
	return p
}

// WithLogger returns a copy logging retries to logger
func (p Policy) WithLogger(logger zerolog.Logger) Policy {
	p.Logger = logger
	return p
}

// WithRetryable returns a copy using a custom classifier
func (p Policy) WithRetryable(fn func(error) bool) Policy {
	p.Retryable = fn
	return p
}

// Run executes op under the policy
func (p Policy) Run(ctx context.Context, op func(context.Context) error) error {
	_, err := Do(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// Do executes op under p and returns its value. The last error is returned once
// attempts are exhausted; a cancelled wait returns the context error joined with it.
func Do[T any](ctx context.Context, p Policy, op func(context.Context) (T, error)) (T, error) {
	var zero T

	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	retryable := p.Retryable
	if retryable == nil {
		retryable = domain.IsRetryable
	}
	clk := p.Clock
	if clk == nil {
		clk = clock.Real{}
	}
	var b backoff.BackOff = &backoff.ZeroBackOff{}
	if p.NewBackOff != nil {
		b = p.NewBackOff()
	}

	for attempt := 1; ; attempt++ {
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		if attempt >= attempts || !retryable(err) {
			return zero, err
		}

		wait := b.NextBackOff()
		if wait == backoff.Stop {
			return zero, err
		}
		if hint := retryAfter(err); hint > wait {
			wait = hint
		}

		p.Logger.Warn().
			Err(err).
			Int("attempt", attempt).
			Int("max_attempts", attempts).
			Dur("wait", wait).
			Msg("Retrying after retryable failure")
		if p.OnRetry != nil {
			p.OnRetry(attempt, err, wait)
		}

		if serr := clk.Sleep(ctx, wait); serr != nil {
			return zero, errors.Join(serr, err)
		}
	}
}

func retryAfter(err error) time.Duration {
	var ie *domain.ImportError
	if errors.As(err, &ie) && ie.Kind == domain.KindRateLimited {
		return ie.RetryAfter
	}
	return 0
}
