package redis

import (
	"context"
	"fmt"
	"time"
)

// RateLimiter is a fixed-window counter keyed per client. Counters live for
// one window and reset on process-independent expiry; good enough for abuse
// deterrence, not strict correctness.
type RateLimiter struct {
	client RedisClient
}

func NewRateLimiter(client RedisClient) *RateLimiter {
	return &RateLimiter{client: client}
}

// Allow increments the window counter and reports whether the caller is
// still under limit.
func (r *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	count, err := r.client.Incr(ctx, key)
	if err != nil {
		return false, err
	}

	if count == 1 {
		if err := r.client.Expire(ctx, key, window); err != nil {
			return false, err
		}
	}

	return count <= int64(limit), nil
}

// RouteIPKey namespaces counters per route and client IP.
func RouteIPKey(route, ip string) string {
	return fmt.Sprintf("ratelimit:%s:%s", route, ip)
}
