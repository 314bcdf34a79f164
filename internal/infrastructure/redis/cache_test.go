package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"

	"github.com/astroask/backend/internal/infrastructure/redis"
)

func newCache(t *testing.T) (*redis.RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return redis.NewRedisCache(client, "astrocache", time.Hour), mr
}

func TestRedisCache_RoundTripAndExpiry(t *testing.T) {
	c, mr := newCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "chart-abc", []byte(`{"sign":"Leo"}`), 0))
	require.True(t, mr.Exists("astrocache:chart-abc"))
	require.Equal(t, time.Hour, mr.TTL("astrocache:chart-abc"))

	b, ok, err := c.Get(ctx, "chart-abc")
	require.NoError(t, err)
	require.True(t, ok)
	require.JSONEq(t, `{"sign":"Leo"}`, string(b))

	mr.FastForward(time.Hour + time.Millisecond)
	_, ok, err = c.Get(ctx, "chart-abc")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRedisCache_CorruptValueIsEvicted(t *testing.T) {
	c, mr := newCache(t)
	require.NoError(t, mr.Set("astrocache:dasha-1", "{not json"))

	_, ok, err := c.Get(context.Background(), "dasha-1")
	require.NoError(t, err)
	require.False(t, ok)
	require.False(t, mr.Exists("astrocache:dasha-1"))
}

func TestRedisCache_Delete(t *testing.T) {
	c, mr := newCache(t)
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "yearly-1", []byte(`[]`), time.Minute))
	require.NoError(t, c.Delete(ctx, "yearly-1"))
	require.NoError(t, c.Delete(ctx, "yearly-1"))
	require.False(t, mr.Exists("astrocache:yearly-1"))
}

func TestRedisCache_ServerDownReturnsError(t *testing.T) {
	c, mr := newCache(t)
	mr.Close()
	_, _, err := c.Get(context.Background(), "chart-abc")
	require.Error(t, err)
}
