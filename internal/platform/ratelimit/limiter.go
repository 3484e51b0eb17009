package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// CounterStore increments request counters scoped to a fixed window. The
// returned count includes the current request.
type CounterStore interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

// Limiter enforces a fixed-window request quota against a CounterStore.
type Limiter struct {
	store  CounterStore
	limit  int
	window time.Duration
	clock  func() time.Time
}

// Result describes a limiter decision.
type Result struct {
	Allowed   bool
	Remaining int
	RetryIn   time.Duration
}

// NewLimiter constructs a Limiter. The window defaults to one minute.
func NewLimiter(store CounterStore, limit int, window time.Duration) (*Limiter, error) {
	if store == nil {
		return nil, errors.New("ratelimit: counter store is required")
	}
	if limit <= 0 {
		return nil, errors.New("ratelimit: limit must be positive")
	}
	if window <= 0 {
		window = time.Minute
	}
	return &Limiter{store: store, limit: limit, window: window, clock: time.Now}, nil
}

// WithClock overrides the time source, primarily for testing.
func (l *Limiter) WithClock(clock func() time.Time) *Limiter {
	if clock != nil {
		l.clock = clock
	}
	return l
}

// Allow records one request for the key and reports whether it fits the quota.
// Store failures fail open so that a counter outage cannot block traffic.
func (l *Limiter) Allow(ctx context.Context, key string) (Result, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		key = "anonymous"
	}

	now := l.clock().UTC()
	windowKey := fmt.Sprintf("ratelimit:%s:%d", key, now.Unix()/int64(l.window.Seconds()))

	count, err := l.store.Incr(ctx, windowKey, l.window)
	if err != nil {
		return Result{Allowed: true, Remaining: l.limit}, err
	}

	remaining := l.limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	if count > int64(l.limit) {
		elapsed := now.Unix() % int64(l.window.Seconds())
		return Result{
			Allowed:   false,
			Remaining: 0,
			RetryIn:   l.window - time.Duration(elapsed)*time.Second,
		}, nil
	}
	return Result{Allowed: true, Remaining: remaining}, nil
}

// Limit returns the configured quota.
func (l *Limiter) Limit() int {
	return l.limit
}

// Window returns the configured window length.
func (l *Limiter) Window() time.Duration {
	return l.window
}
