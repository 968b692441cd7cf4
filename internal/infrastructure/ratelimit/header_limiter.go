package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"commerce-import-layer/internal/infrastructure/clock"

	"github.com/rs/zerolog"
)

// SafetyMargin is the headroom kept below a header-reported limit
const SafetyMargin = 1.3

// Quota is a used/limit pair observed in a response header
type Quota struct {
	Used  int
	Limit int
}

// Throttled reports whether used, padded by the safety margin, exceeds the limit
func (q Quota) Throttled() bool {
	if q.Limit <= 0 {
		return false
	}
	return float64(q.Used)*SafetyMargin > float64(q.Limit)
}

// ParseCallLimit parses a "used/limit" header value such as "32/40"
func ParseCallLimit(value string) (Quota, error) {
	used, limit, ok := strings.Cut(strings.TrimSpace(value), "/")
	if !ok {
		return Quota{}, fmt.Errorf("invalid call limit header %q", value)
	}
	u, err := strconv.Atoi(strings.TrimSpace(used))
	if err != nil {
		return Quota{}, fmt.Errorf("invalid call limit header %q: %w", value, err)
	}
	l, err := strconv.Atoi(strings.TrimSpace(limit))
	if err != nil {
		return Quota{}, fmt.Errorf("invalid call limit header %q: %w", value, err)
	}
	return Quota{Used: u, Limit: l}, nil
}

// ProbeFunc performs a cheap call and returns the quota it observed
type ProbeFunc func(ctx context.Context) (Quota, error)

// HeaderLimiter tracks the last observed quota per shop and drains throttling
// with linearly increasing sleeps
type HeaderLimiter struct {
	mu     sync.Mutex
	quotas map[string]Quota
	clock  clock.Clock
	logger zerolog.Logger
	onWait func(shopID string, wait time.Duration)
}

// NewHeaderLimiter creates an empty header-based limiter
func NewHeaderLimiter(clk clock.Clock, logger zerolog.Logger) *HeaderLimiter {
	if clk == nil {
		clk = clock.Real{}
	}
	return &HeaderLimiter{
		quotas: make(map[string]Quota),
		clock:  clk,
		logger: logger,
	}
}

// OnWait registers a hook observing every throttle sleep
func (h *HeaderLimiter) OnWait(fn func(shopID string, wait time.Duration)) {
	h.onWait = fn
}

// Observe records the quota from the latest response
func (h *HeaderLimiter) Observe(shopID string, q Quota) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.quotas[shopID] = q
}

// Last returns the last observed quota for a shop
func (h *HeaderLimiter) Last(shopID string) (Quota, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	q, ok := h.quotas[shopID]
	return q, ok
}

// Drain blocks while the shop is throttled. Iteration n sleeps n*2+1 seconds and then
// re-probes to refresh the quota.
func (h *HeaderLimiter) Drain(ctx context.Context, shopID string, probe ProbeFunc) error {
	q, ok := h.Last(shopID)
	if !ok {
		return nil
	}
	for n := 0; q.Throttled(); n++ {
		wait := time.Duration(n*2+1) * time.Second
		h.logger.Info().
			Str("shop", shopID).
			Int("used", q.Used).
			Int("limit", q.Limit).
			Dur("wait", wait).
			Msg("Rate limit reached, throttling")
		if h.onWait != nil {
			h.onWait(shopID, wait)
		}
		if err := h.clock.Sleep(ctx, wait); err != nil {
			return err
		}

		next, err := probe(ctx)
		if err != nil {
			return fmt.Errorf("failed to probe rate limit: %w", err)
		}
		h.Observe(shopID, next)
		q = next
	}
	return nil
}
