package cache

import (
	"context"
	"strconv"
	"sync"
	"time"

	"commerce-import-layer/internal/ports"
)

type entry struct {
	value     string
	expiresAt time.Time // zero means no expiry
}

// InMemoryCounterStore implements CounterStore in process memory.
// Suitable for tests and single-worker deployments.
type InMemoryCounterStore struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

// NewInMemoryCounterStore creates an empty store using the wall clock
func NewInMemoryCounterStore() *InMemoryCounterStore {
	return NewInMemoryCounterStoreWithClock(time.Now)
}

// NewInMemoryCounterStoreWithClock creates a store whose expiry follows now
func NewInMemoryCounterStoreWithClock(now func() time.Time) *InMemoryCounterStore {
	return &InMemoryCounterStore{
		entries: make(map[string]entry),
		now:     now,
	}
}

// lookup returns a live entry; callers hold the lock
func (s *InMemoryCounterStore) lookup(key string) (entry, bool) {
	e, ok := s.entries[key]
	if !ok {
		return entry{}, false
	}
	if !e.expiresAt.IsZero() && !s.now().Before(e.expiresAt) {
		delete(s.entries, key)
		return entry{}, false
	}
	return e, true
}

func (s *InMemoryCounterStore) expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return s.now().Add(ttl)
}

func (s *InMemoryCounterStore) IncrementAndExpire(_ context.Context, key string, ttl time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	if e, ok := s.lookup(key); ok {
		n, err := strconv.ParseInt(e.value, 10, 64)
		if err != nil {
			return 0, err
		}
		count = n
	}
	count++
	s.entries[key] = entry{value: strconv.FormatInt(count, 10), expiresAt: s.expiry(ttl)}
	return count, nil
}

func (s *InMemoryCounterStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.lookup(key)
	return e.value, ok, nil
}

func (s *InMemoryCounterStore) Set(_ context.Context, key string, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = entry{value: value, expiresAt: s.expiry(ttl)}
	return nil
}

func (s *InMemoryCounterStore) SetNX(_ context.Context, key string, value string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.lookup(key); ok {
		return false, nil
	}
	s.entries[key] = entry{value: value, expiresAt: s.expiry(ttl)}
	return true, nil
}

func (s *InMemoryCounterStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

var _ ports.CounterStore = (*InMemoryCounterStore)(nil)
