package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// RateLimiter defines an interface for rate limiting functionality
type RateLimiter interface {
	// Allow checks if the request should be allowed based on the key
	Allow(ctx context.Context, key string) (bool, int, time.Time, error)
	// Reset resets the counter for a specific key
	Reset(ctx context.Context, key string) error
	// WithLimit creates a new rate limiter with the specified limit
	WithLimit(maxAttempts int64, window time.Duration) RateLimiter
}

// RedisRateLimiter implements fixed-window rate limiting backed by Redis, so
// limits hold across multiple API instances.
type RedisRateLimiter struct {
	client      *redis.Client
	prefix      string
	window      time.Duration
	maxAttempts int64
}

// NewRedisRateLimiter creates a new rate limiter using Redis
func NewRedisRateLimiter(client *redis.Client, window time.Duration, maxAttempts int64) *RedisRateLimiter {
	return &RedisRateLimiter{
		client:      client,
		prefix:      "ratelimit:",
		window:      window,
		maxAttempts: maxAttempts,
	}
}

// WithLimit creates a new rate limiter with the specified limit
func (rl *RedisRateLimiter) WithLimit(maxAttempts int64, window time.Duration) RateLimiter {
	return &RedisRateLimiter{
		client:      rl.client,
		prefix:      rl.prefix,
		window:      window,
		maxAttempts: maxAttempts,
	}
}

// Allow checks if the request should be allowed based on the key
func (rl *RedisRateLimiter) Allow(ctx context.Context, key string) (bool, int, time.Time, error) {
	redisKey := fmt.Sprintf("%s%s", rl.prefix, key)
	now := time.Now()
	windowStart := now.Truncate(rl.window)

	pipe := rl.client.Pipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.ExpireAt(ctx, redisKey, windowStart.Add(rl.window))

	_, err := pipe.Exec(ctx)
	if err != nil {
		return false, 0, time.Time{}, fmt.Errorf("rate limiter error: %w", err)
	}

	count := incr.Val()
	remaining := rl.maxAttempts - count
	if remaining < 0 {
		remaining = 0
	}

	resetTime := windowStart.Add(rl.window)
	allowed := count <= rl.maxAttempts

	return allowed, int(remaining), resetTime, nil
}

// Reset resets the counter for a specific key
func (rl *RedisRateLimiter) Reset(ctx context.Context, key string) error {
	redisKey := fmt.Sprintf("%s%s", rl.prefix, key)
	return rl.client.Del(ctx, redisKey).Err()
}

// MemoryRateLimiter is the in-process fallback used when no Redis host is
// configured (local development, tests). Same fixed-window semantics as the
// Redis implementation, but limits are per instance.
type MemoryRateLimiter struct {
	mu          sync.Mutex
	counts      map[string]*windowCount
	window      time.Duration
	maxAttempts int64
}

type windowCount struct {
	start time.Time
	count int64
}

// NewMemoryRateLimiter creates an in-memory fixed-window rate limiter.
func NewMemoryRateLimiter(window time.Duration, maxAttempts int64) *MemoryRateLimiter {
	return &MemoryRateLimiter{
		counts:      make(map[string]*windowCount),
		window:      window,
		maxAttempts: maxAttempts,
	}
}

// WithLimit creates a new rate limiter with the specified limit
func (rl *MemoryRateLimiter) WithLimit(maxAttempts int64, window time.Duration) RateLimiter {
	return NewMemoryRateLimiter(window, maxAttempts)
}

// Allow checks if the request should be allowed based on the key
func (rl *MemoryRateLimiter) Allow(ctx context.Context, key string) (bool, int, time.Time, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	windowStart := now.Truncate(rl.window)

	wc, ok := rl.counts[key]
	if !ok || wc.start.Before(windowStart) {
		wc = &windowCount{start: windowStart}
		rl.counts[key] = wc
	}
	wc.count++

	remaining := rl.maxAttempts - wc.count
	if remaining < 0 {
		remaining = 0
	}

	return wc.count <= rl.maxAttempts, int(remaining), windowStart.Add(rl.window), nil
}

// Reset resets the counter for a specific key
func (rl *MemoryRateLimiter) Reset(ctx context.Context, key string) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.counts, key)
	return nil
}
