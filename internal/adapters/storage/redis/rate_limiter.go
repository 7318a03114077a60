package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiterAdapter is a Redis implementation of the RateLimiterRepository
// port, shared across gateway instances.
type RateLimiterAdapter struct {
	rdb *redis.Client
}

func NewRateLimiterAdapter(rdb *redis.Client) *RateLimiterAdapter {
	return &RateLimiterAdapter{rdb: rdb}
}

// IsAllowed implements a fixed-window counter per key.
func (a *RateLimiterAdapter) IsAllowed(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	count, err := a.rdb.Incr(ctx, "rate_limit:"+key).Result()
	if err != nil {
		return false, fmt.Errorf("redis INCR failed: %w", err)
	}

	// First request in the window starts the clock.
	if count == 1 {
		if err := a.rdb.Expire(ctx, "rate_limit:"+key, window).Err(); err != nil {
			return false, fmt.Errorf("redis EXPIRE failed: %w", err)
		}
	}

	return count <= int64(limit), nil
}
