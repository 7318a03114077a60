package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// IdempotencyKeyStore is a Redis implementation of the IdempotencyKeyStore
// port. Unlike the in-memory store, keys survive gateway restarts and are
// shared between instances; the TTL bounds how long a key blocks retries.
type IdempotencyKeyStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewIdempotencyKeyStore(rdb *redis.Client, ttl time.Duration) *IdempotencyKeyStore {
	return &IdempotencyKeyStore{rdb: rdb, ttl: ttl}
}

func (s *IdempotencyKeyStore) Contains(ctx context.Context, key string) (bool, error) {
	n, err := s.rdb.Exists(ctx, "idempotency_key:"+key).Result()
	if err != nil {
		return false, fmt.Errorf("redis EXISTS failed: %w", err)
	}
	return n > 0, nil
}

func (s *IdempotencyKeyStore) Add(ctx context.Context, key string) error {
	if err := s.rdb.Set(ctx, "idempotency_key:"+key, 1, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis SET failed: %w", err)
	}
	return nil
}
