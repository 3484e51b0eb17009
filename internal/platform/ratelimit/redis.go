package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisStore is a CounterStore backed by a shared Redis, letting multiple API
// instances enforce a single quota.
type RedisStore struct {
	client redis.UniversalClient
}

// NewRedisStore constructs a Redis-backed counter store.
func NewRedisStore(client redis.UniversalClient) (*RedisStore, error) {
	if client == nil {
		return nil, errors.New("ratelimit: redis client is required")
	}
	return &RedisStore{client: client}, nil
}

// Incr implements CounterStore using INCR with a window-scoped expiry.
func (s *RedisStore) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}
