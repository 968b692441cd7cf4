package ports

import (
	"context"
	"time"
)

// CounterStore is the shared key-value store used for rate-limit counters,
// refresh locks and cached lookups. It must be reachable by all workers.
type CounterStore interface {
	// IncrementAndExpire atomically increments key and (re)sets its TTL, returning the new count
	IncrementAndExpire(ctx context.Context, key string, ttl time.Duration) (int64, error)

	// Get returns the value and whether the key exists
	Get(ctx context.Context, key string) (string, bool, error)

	Set(ctx context.Context, key string, value string, ttl time.Duration) error

	// SetNX sets key only when absent and reports whether it did
	SetNX(ctx context.Context, key string, value string, ttl time.Duration) (bool, error)

	Delete(ctx context.Context, key string) error
}
