package cache

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "pcg:"

// RedisClient shares API request counters between replicas
type RedisClient struct {
	client *redis.Client
	ready  atomic.Bool
}

// RateLimitResult is the outcome of one counted request
type RateLimitResult struct {
	Limit      int64
	Remaining  int64
	ResetAt    time.Time
	Allowed    bool
	RetryAfter time.Duration
}

// NewRedisClient connects to url. An empty url disables the cache and returns an error
// the caller is expected to log and ignore.
func NewRedisClient(url string) (*RedisClient, error) {
	if url == "" {
		return nil, fmt.Errorf("redis url not configured")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	opts.DialTimeout = 3 * time.Second
	opts.ReadTimeout = 2 * time.Second
	opts.WriteTimeout = 2 * time.Second

	c := &RedisClient{client: redis.NewClient(opts)}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := c.Ping(ctx); err != nil {
		log.Printf("[Cache] Redis not reachable yet: %v", err)
	}
	return c, nil
}

// Ping checks the connection and updates readiness
func (c *RedisClient) Ping(ctx context.Context) error {
	err := c.client.Ping(ctx).Err()
	c.ready.Store(err == nil)
	return err
}

// IsReady reports whether the last round trip succeeded
func (c *RedisClient) IsReady() bool {
	return c != nil && c.ready.Load()
}

func (c *RedisClient) Close() error {
	return c.client.Close()
}

// CheckAPIRateLimit counts one request for key in a fixed window
func (c *RedisClient) CheckAPIRateLimit(ctx context.Context, key string, limit int64, window time.Duration) (*RateLimitResult, error) {
	rk := keyPrefix + "ratelimit:" + key

	pipe := c.client.TxPipeline()
	incr := pipe.Incr(ctx, rk)
	pipe.Do(ctx, "pexpire", rk, window.Milliseconds(), "nx")
	ttl := pipe.PTTL(ctx, rk)
	if _, err := pipe.Exec(ctx); err != nil {
		c.ready.Store(false)
		return nil, fmt.Errorf("rate limit check failed: %w", err)
	}
	c.ready.Store(true)

	count := incr.Val()
	remaining := ttl.Val()
	if remaining <= 0 {
		remaining = window
	}
	result := &RateLimitResult{
		Limit:     limit,
		Remaining: limit - count,
		ResetAt:   time.Now().Add(remaining),
		Allowed:   count <= limit,
	}
	if result.Remaining < 0 {
		result.Remaining = 0
	}
	if !result.Allowed {
		result.RetryAfter = remaining
	}
	return result, nil
}
