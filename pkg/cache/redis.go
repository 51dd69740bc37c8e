package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig configures a RedisCache.
type RedisConfig struct {
	Addr        string
	Password    string
	DB          int
	DialTimeout time.Duration
}

// RedisCache stores entries in Redis with native key expiry.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache connects to Redis and pings it, retrying transient failures.
func NewRedisCache(ctx context.Context, cfg RedisConfig) (*RedisCache, error) {
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.DialTimeout,
		MaxRetries:  -1, // retries are ours, see connectBackoff
	})
	c := &RedisCache{client: client}

	err := connectBackoff.Retry(ctx, func() error {
		if err := client.Ping(ctx).Err(); err != nil {
			return Transient(fmt.Errorf("%w: ping %s: %v", ErrNetwork, cfg.Addr, err))
		}
		return nil
	})
	if err != nil {
		client.Close()
		return nil, err
	}
	return c, nil
}

// NewRedisCacheFromClient wraps an existing client without pinging it.
func NewRedisCacheFromClient(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// Get returns the value for key.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: get: %v", ErrNetwork, err)
	}
	return data, true, nil
}

// Set stores data with the given ttl (zero never expires).
func (c *RedisCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("%w: set: %v", ErrNetwork, err)
	}
	return nil
}

// Delete removes key.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("%w: delete: %v", ErrNetwork, err)
	}
	return nil
}

// Clear deletes every key matching pattern, for example "caption:*".
func (c *RedisCache) Clear(ctx context.Context, pattern string) (int, error) {
	removed := 0
	iter := c.client.Scan(ctx, 0, pattern, 500).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return removed, fmt.Errorf("%w: delete: %v", ErrNetwork, err)
		}
		removed++
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("%w: scan: %v", ErrNetwork, err)
	}
	return removed, nil
}

// Close closes the client.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

var _ Cache = (*RedisCache)(nil)
