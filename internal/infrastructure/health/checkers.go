package health

import (
	"context"
	"errors"
	"os"

	"github.com/astroask/backend/internal/core/ports"
	"github.com/dgraph-io/badger/v4"
	"github.com/go-redis/redis/v8"
)

// redisHealthChecker wraps the redis client for health checks.
type redisHealthChecker struct{ client redis.Cmdable }

func (r *redisHealthChecker) Name() string                    { return "redis" }
func (r *redisHealthChecker) Check(ctx context.Context) error { return r.client.Ping(ctx).Err() }

// cacheDirHealthChecker verifies the file cache directory accepts writes.
type cacheDirHealthChecker struct{ dir string }

func (c *cacheDirHealthChecker) Name() string { return "cache_dir" }
func (c *cacheDirHealthChecker) Check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f, err := os.CreateTemp(c.dir, ".health-*")
	if err != nil {
		return err
	}
	name := f.Name()
	return errors.Join(f.Close(), os.Remove(name))
}

// badgerHealthChecker reports whether the embedded store is still open.
type badgerHealthChecker struct{ db *badger.DB }

func (b *badgerHealthChecker) Name() string { return "badger" }
func (b *badgerHealthChecker) Check(_ context.Context) error {
	if b.db == nil || b.db.IsClosed() {
		return errors.New("badger database is closed")
	}
	return nil
}

// NewRedisHealthChecker creates a health checker for Redis.
func NewRedisHealthChecker(client redis.Cmdable) ports.HealthChecker {
	return &redisHealthChecker{client: client}
}

// NewCacheDirHealthChecker creates a health checker for the file cache directory.
func NewCacheDirHealthChecker(dir string) ports.HealthChecker {
	return &cacheDirHealthChecker{dir: dir}
}

// NewBadgerHealthChecker creates a health checker for the embedded cache.
func NewBadgerHealthChecker(db *badger.DB) ports.HealthChecker {
	return &badgerHealthChecker{db: db}
}
