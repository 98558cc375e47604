// internal/common/cache/cache.go
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is the process-scoped cache injected into services. Implementations
// must treat a miss as (value "", ok false, err nil) so callers can fall
// through to the source of truth without error handling noise.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// RedisCache implements Cache on a shared Redis connection.
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

func (c *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

// NopCache satisfies Cache without storing anything (useful for tests).
type NopCache struct{}

func (NopCache) Get(ctx context.Context, key string) (string, bool, error) { return "", false, nil }
func (NopCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return nil
}
func (NopCache) Delete(ctx context.Context, keys ...string) error { return nil }
