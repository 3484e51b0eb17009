package ratelimit

import (
	"context"
	"sync"
	"time"
)

type memoryCounter struct {
	count     int64
	expiresAt time.Time
}

// MemoryStore is an in-process CounterStore for single-instance deployments
// and tests.
type MemoryStore struct {
	mu       sync.Mutex
	counters map[string]memoryCounter
	clock    func() time.Time
}

// NewMemoryStore constructs an empty in-memory counter store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{counters: make(map[string]memoryCounter), clock: time.Now}
}

// Incr implements CounterStore.
func (s *MemoryStore) Incr(_ context.Context, key string, window time.Duration) (int64, error) {
	now := s.clock().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	counter, ok := s.counters[key]
	if !ok || !now.Before(counter.expiresAt) {
		counter = memoryCounter{count: 0, expiresAt: now.Add(window)}
	}
	counter.count++
	s.counters[key] = counter

	// Opportunistic cleanup to keep the map bounded.
	if len(s.counters) > 10000 {
		for k, c := range s.counters {
			if !now.Before(c.expiresAt) {
				delete(s.counters, k)
			}
		}
	}

	return counter.count, nil
}
