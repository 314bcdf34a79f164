package configs_test

import (
	"testing"
	"time"

	"github.com/astroask/backend/configs"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("PROKERALA_CLIENT_ID", "id")
	t.Setenv("PROKERALA_CLIENT_SECRET", "secret")
	t.Setenv("OPENAI_API_KEY", "sk-test")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)
	t.Setenv("PORT", "")
	t.Setenv("SERVER_PORT", "")

	cfg, err := configs.Load()
	require.NoError(t, err)
	require.Equal(t, "5000", cfg.Server.Port)
	require.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	require.Equal(t, "file", cfg.Cache.Driver)
	require.Equal(t, "./cache", cfg.Cache.Dir)
	require.Equal(t, 24*time.Hour, cfg.Cache.TTL)
	require.Equal(t, 1, cfg.Prokerala.Ayanamsa)
	require.Equal(t, "gpt-3.5-turbo", cfg.OpenAI.Model)
	require.Equal(t, "No explanation received.", cfg.OpenAI.Placeholder)
	require.True(t, cfg.Prokerala.CacheToken)
	require.False(t, cfg.UsesRedis())
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("PORT", "7000")
	t.Setenv("SERVER_PORT", "")
	t.Setenv("CACHE_DRIVER", "REDIS")
	t.Setenv("CACHE_TTL", "2h")
	t.Setenv("CACHE_COALESCE", "false")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("PROKERALA_CACHE_TOKEN", "false")

	cfg, err := configs.Load()
	require.NoError(t, err)
	require.Equal(t, "7000", cfg.Server.Port)
	require.Equal(t, "redis", cfg.Cache.Driver)
	require.Equal(t, 2*time.Hour, cfg.Cache.TTL)
	require.False(t, cfg.Cache.Coalesce)
	require.False(t, cfg.Prokerala.CacheToken)
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	require.True(t, cfg.UsesRedis())
}

func TestLoad_UnknownCacheDriver(t *testing.T) {
	setRequired(t)
	t.Setenv("CACHE_DRIVER", "memcached")
	_, err := configs.Load()
	require.Error(t, err)
}

func TestLoad_MissingCredentialsPanics(t *testing.T) {
	setRequired(t)
	t.Setenv("OPENAI_API_KEY", "")
	require.Panics(t, func() { _, _ = configs.Load() })
}
