package repositories_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"

	"github.com/astroask/backend/internal/core/domain/astrology"
	"github.com/astroask/backend/internal/infrastructure/repositories"
)

func newTokenRepo(t *testing.T) (*repositories.TokenRedisRepository, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return repositories.NewTokenRedisRepository(rdb, "client-1", nil), mr
}

func TestTokenRedisRepository_RoundTrip(t *testing.T) {
	repo, mr := newTokenRepo(t)
	ctx := context.Background()

	_, ok, err := repo.LoadToken(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	tok := astrology.AccessToken{Value: "bearer-1", ObtainedAt: time.Now().UTC().Truncate(time.Second), Expiry: time.Now().Add(time.Hour).UTC().Truncate(time.Second)}
	require.NoError(t, repo.SaveToken(ctx, tok))

	got, ok, err := repo.LoadToken(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, tok.Value, got.Value)
	require.True(t, tok.Expiry.Equal(got.Expiry))

	key := "astro_tokens:prokerala:client-1"
	require.True(t, mr.Exists(key))
	require.InDelta(t, time.Hour.Seconds(), mr.TTL(key).Seconds(), 5)

	require.NoError(t, repo.DeleteToken(ctx))
	_, ok, err = repo.LoadToken(ctx)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestTokenRedisRepository_SkipsTokensWithoutExpiry(t *testing.T) {
	repo, mr := newTokenRepo(t)
	require.NoError(t, repo.SaveToken(context.Background(), astrology.AccessToken{Value: "x"}))
	require.Empty(t, mr.Keys())

	err := repo.SaveToken(context.Background(), astrology.AccessToken{Value: "x", Expiry: time.Now().Add(-time.Minute)})
	require.Error(t, err)
}

func TestTokenRedisRepository_UnreadableEntryIsDropped(t *testing.T) {
	repo, mr := newTokenRepo(t)
	require.NoError(t, mr.Set("astro_tokens:prokerala:client-1", "not-json"))

	_, ok, err := repo.LoadToken(context.Background())
	require.NoError(t, err)
	require.False(t, ok)
	require.False(t, mr.Exists("astro_tokens:prokerala:client-1"))
}
