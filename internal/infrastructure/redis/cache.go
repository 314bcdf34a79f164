package redis

import (
	"context"
	"errors"
	"time"

	"github.com/astroask/backend/internal/core/ports"
	"github.com/go-redis/redis/v8"
	"github.com/goccy/go-json"
)

// RedisCache implements ports.Cache using a Redis client. Expiry is left to
// Redis key TTLs, so instances behind a load balancer share one cache.
type RedisCache struct {
	r redis.Cmdable
	// optional key prefix to namespace entries
	prefix     string
	defaultTTL time.Duration
}

// NewRedisCache creates a new Redis-backed cache. defaultTTL applies when Set
// is called without a positive ttl.
func NewRedisCache(r redis.Cmdable, prefix string, defaultTTL time.Duration) *RedisCache {
	return &RedisCache{r: r, prefix: prefix, defaultTTL: defaultTTL}
}

func (c *RedisCache) namespaced(key string) string {
	if c.prefix == "" {
		return key
	}
	return c.prefix + ":" + key
}

// Get implements Cache.Get. Values that are not JSON are deleted and reported absent.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	ns := c.namespaced(key)
	val, err := c.r.Get(ctx, ns).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if !json.Valid(val) {
		if err := c.r.Del(ctx, ns).Err(); err != nil {
			return nil, false, err
		}
		return nil, false, nil
	}
	return val, true, nil
}

// Set implements Cache.Set.
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	ns := c.namespaced(key)
	return c.r.Set(ctx, ns, value, ttl).Err()
}

// Delete implements Cache.Delete.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	ns := c.namespaced(key)
	return c.r.Del(ctx, ns).Err()
}

var _ ports.Cache = (*RedisCache)(nil)
