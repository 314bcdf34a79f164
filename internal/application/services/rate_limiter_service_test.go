package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"

	"github.com/astroask/backend/internal/application/services"
	"github.com/astroask/backend/internal/infrastructure/repositories"
)

type failingRepo struct{}

func (failingRepo) IncrementWindow(ctx context.Context, clientKey string, window time.Duration, keyPrefix string, ttl time.Duration) (int, time.Time, error) {
	return 0, time.Now().Truncate(window), errors.New("connection refused")
}

func TestRateLimiterService_RedisFixedWindow(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	svc := services.NewRateLimiterService(repositories.NewRateLimitRedisRepository(rdb), &services.RateLimiterConfig{
		DefaultRequestsPerMinute: 2,
		BurstMultiplier:          1.5,
		Window:                   time.Hour,
	}, quietLogger())

	ctx := context.Background()
	allowed, remaining, limit, reset, err := svc.Allow(ctx, "203.0.113.7")
	require.NoError(t, err)
	require.True(t, allowed)
	require.Equal(t, 2, remaining)
	require.Equal(t, 3, limit, "limit reports the burst ceiling")
	require.True(t, reset.After(time.Now()))

	for i := 0; i < 2; i++ {
		allowed, _, _, _, err = svc.Allow(ctx, "203.0.113.7")
		require.NoError(t, err)
		require.True(t, allowed)
	}
	allowed, remaining, _, _, err = svc.Allow(ctx, "203.0.113.7")
	require.NoError(t, err)
	require.False(t, allowed)
	require.Zero(t, remaining)

	allowed, _, _, _, err = svc.Allow(ctx, "198.51.100.1")
	require.NoError(t, err)
	require.True(t, allowed, "clients are limited independently")
}

func TestRateLimiterService_FailsOpen(t *testing.T) {
	svc := services.NewRateLimiterService(failingRepo{}, nil, quietLogger())
	allowed, remaining, limit, _, err := svc.Allow(context.Background(), "c")
	require.Error(t, err)
	require.True(t, allowed)
	require.Equal(t, 60, limit)
	require.Equal(t, 60, remaining)
}

func TestLocalRateLimiterService_BurstThenDeny(t *testing.T) {
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	svc := services.NewLocalRateLimiterService(&services.RateLimiterConfig{DefaultRequestsPerMinute: 60, BurstMultiplier: 2, Window: time.Minute}, services.WithLocalClock(clock))
	ctx := context.Background()

	for i := 0; i < 120; i++ {
		allowed, _, _, _, err := svc.Allow(ctx, "a")
		require.NoError(t, err)
		require.True(t, allowed, "request %d", i)
	}
	allowed, remaining, limit, reset, err := svc.Allow(ctx, "a")
	require.NoError(t, err)
	require.False(t, allowed)
	require.Zero(t, remaining)
	require.Equal(t, 120, limit)
	require.Equal(t, now.Add(time.Minute), reset)

	allowed, _, _, _, _ = svc.Allow(ctx, "b")
	require.True(t, allowed)

	mu.Lock()
	now = now.Add(time.Second)
	mu.Unlock()
	allowed, _, _, _, _ = svc.Allow(ctx, "a")
	require.True(t, allowed, "one token refills per second")
}

func TestLocalRateLimiterService_SweepForgetsIdleClients(t *testing.T) {
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	svc := services.NewLocalRateLimiterService(nil, services.WithLocalClock(func() time.Time { return now }))

	_, _, _, _, _ = svc.Allow(context.Background(), "a")
	require.Zero(t, svc.Sweep())

	now = now.Add(3 * time.Minute)
	_, _, _, _, _ = svc.Allow(context.Background(), "b")
	require.Equal(t, 1, svc.Sweep())
}
