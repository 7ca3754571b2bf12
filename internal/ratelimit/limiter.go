// Package ratelimit enforces fixed-window request budgets keyed by client
// identity and endpoint class.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Result reports the outcome of a window check.
type Result struct {
	Allowed bool
	// Limit is the window budget.
	Limit int
	// Remaining is the budget left in the current window, zero when denied.
	Remaining int
	// RetryAfter is how long until the window resets; meaningful on deny.
	RetryAfter time.Duration
}

// Limiter answers whether a request fits its key's current window.
type Limiter interface {
	// Check atomically counts a request against the key's window. Either
	// no window exists (one starts with count 1) or the count increments;
	// the increment-and-compare is atomic per key, so across concurrent
	// callers at most max requests are allowed per window.
	Check(ctx context.Context, key string, window time.Duration, max int) (Result, error)
}

// RedisLimiter implements Limiter on Redis counters. INCR provides the
// atomic increment; the first hit in a window sets the expiry.
type RedisLimiter struct {
	client *redis.Client
	prefix string
}

// NewRedisLimiter constructs a RedisLimiter. Keys are stored under prefix.
func NewRedisLimiter(client *redis.Client, prefix string) *RedisLimiter {
	return &RedisLimiter{client: client, prefix: prefix}
}

// Check counts one request against the key's window.
func (l *RedisLimiter) Check(ctx context.Context, key string, window time.Duration, max int) (Result, error) {
	counter := l.prefix + ":" + key

	count, err := l.client.Incr(ctx, counter).Result()
	if err != nil {
		return Result{}, fmt.Errorf("ratelimit: incr %s: %w", key, err)
	}
	if count == 1 {
		if err := l.client.Expire(ctx, counter, window).Err(); err != nil {
			return Result{}, fmt.Errorf("ratelimit: expire %s: %w", key, err)
		}
	}

	ttl, err := l.client.PTTL(ctx, counter).Result()
	if err != nil {
		return Result{}, fmt.Errorf("ratelimit: pttl %s: %w", key, err)
	}
	if ttl < 0 {
		// Counter left without expiry by an earlier failure; restart the window.
		ttl = window
		if err := l.client.Expire(ctx, counter, window).Err(); err != nil {
			return Result{}, fmt.Errorf("ratelimit: expire %s: %w", key, err)
		}
	}

	result := Result{Limit: max, RetryAfter: ttl}
	if count > int64(max) {
		return result, nil
	}
	result.Allowed = true
	result.Remaining = max - int(count)
	return result, nil
}

var _ Limiter = (*RedisLimiter)(nil)
