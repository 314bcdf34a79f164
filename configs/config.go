package configs

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Prokerala ProkeralaConfig
	OpenAI    OpenAIConfig
	Cache     CacheConfig
	Redis     RedisConfig
	Log       LogConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Host           string
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	TLSCertFile    string
	TLSKeyFile     string
	AllowedOrigins []string
	Environment    string
	BodyLimit      string
}

type ProkeralaConfig struct {
	ClientID     string
	ClientSecret string
	BaseURL      string
	TokenURL     string
	ChartPath    string
	DashaPath    string
	YearlyPath   string
	Ayanamsa     int
	// Token caching: when disabled a fresh token is exchanged for every call.
	CacheToken         bool
	TokenExpiryMargin  time.Duration
	Timeout            time.Duration
	MaxRetries         int
	RetryInitialWait   time.Duration
	BreakerMaxFailures int
	BreakerOpenTimeout time.Duration
}

type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Timeout     time.Duration
	MaxRetries  int
	Placeholder string
}

type CacheConfig struct {
	Driver          string // file, redis, badger or none
	Dir             string
	TTL             time.Duration
	Coalesce        bool
	Prefix          string
	PurgeInterval   time.Duration
	UpstreamTimeout time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	// Pool and timeout settings
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolTimeout  time.Duration
	IdleTimeout  time.Duration
}

type LogConfig struct {
	Level  string
	Format string // json or text
}

type RateLimitConfig struct {
	Enabled                  bool
	Backend                  string // redis or memory
	DefaultRequestsPerMinute int
	BurstMultiplier          float64
	Window                   time.Duration
	KeyPrefix                string
}

// UsesRedis reports whether any component needs a Redis connection.
func (c *Config) UsesRedis() bool {
	return c.Cache.Driver == "redis" || (c.RateLimit.Enabled && c.RateLimit.Backend == "redis")
}

func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           getEnv("SERVER_PORT", getEnv("PORT", "5000")),
			ReadTimeout:    getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:   getDurationEnv("SERVER_WRITE_TIMEOUT", 90*time.Second),
			IdleTimeout:    getDurationEnv("SERVER_IDLE_TIMEOUT", 120*time.Second),
			TLSCertFile:    getEnv("TLS_CERT_FILE", ""),
			TLSKeyFile:     getEnv("TLS_KEY_FILE", ""),
			AllowedOrigins: getListEnv("ALLOWED_ORIGINS", []string{"*"}),
			Environment:    getEnv("ENVIRONMENT", "development"),
			BodyLimit:      getEnv("SERVER_BODY_LIMIT", "1M"),
		},
		Prokerala: ProkeralaConfig{
			ClientID:           getEnvRequired("PROKERALA_CLIENT_ID"),
			ClientSecret:       getEnvRequired("PROKERALA_CLIENT_SECRET"),
			BaseURL:            getEnv("PROKERALA_BASE_URL", "https://api.prokerala.com"),
			TokenURL:           getEnv("PROKERALA_TOKEN_URL", "https://api.prokerala.com/token"),
			ChartPath:          getEnv("PROKERALA_CHART_PATH", "/v2/astrology/kundli"),
			DashaPath:          getEnv("PROKERALA_DASHA_PATH", "/v2/astrology/dasha-periods"),
			YearlyPath:         getEnv("PROKERALA_YEARLY_PATH", "/v2/astrology/yearly-prediction"),
			Ayanamsa:           getIntEnv("PROKERALA_AYANAMSA", 1),
			CacheToken:         getBoolEnv("PROKERALA_CACHE_TOKEN", true),
			TokenExpiryMargin:  getDurationEnv("PROKERALA_TOKEN_EXPIRY_MARGIN", time.Minute),
			Timeout:            getDurationEnv("PROKERALA_TIMEOUT", 15*time.Second),
			MaxRetries:         getIntEnv("PROKERALA_MAX_RETRIES", 2),
			RetryInitialWait:   getDurationEnv("PROKERALA_RETRY_INITIAL_WAIT", 250*time.Millisecond),
			BreakerMaxFailures: getIntEnv("PROKERALA_BREAKER_MAX_FAILURES", 5),
			BreakerOpenTimeout: getDurationEnv("PROKERALA_BREAKER_OPEN_TIMEOUT", 30*time.Second),
		},
		OpenAI: OpenAIConfig{
			APIKey:      getEnvRequired("OPENAI_API_KEY"),
			BaseURL:     getEnv("OPENAI_BASE_URL", ""),
			Model:       getEnv("OPENAI_MODEL", "gpt-3.5-turbo"),
			Timeout:     getDurationEnv("OPENAI_TIMEOUT", 60*time.Second),
			MaxRetries:  getIntEnv("OPENAI_MAX_RETRIES", 1),
			Placeholder: getEnv("OPENAI_PLACEHOLDER", "No explanation received."),
		},
		Cache: CacheConfig{
			Driver:          strings.ToLower(getEnv("CACHE_DRIVER", "file")),
			Dir:             getEnv("CACHE_DIR", "./cache"),
			TTL:             getDurationEnv("CACHE_TTL", 24*time.Hour),
			Coalesce:        getBoolEnv("CACHE_COALESCE", true),
			Prefix:          getEnv("CACHE_PREFIX", "astrocache"),
			PurgeInterval:   getDurationEnv("CACHE_PURGE_INTERVAL", time.Hour),
			UpstreamTimeout: getDurationEnv("UPSTREAM_TIMEOUT", 75*time.Second),
		},
		Redis: RedisConfig{
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnv("REDIS_PORT", "6379"),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getIntEnv("REDIS_DB", 0),
			PoolSize:     getIntEnv("REDIS_POOL_SIZE", 10),
			MinIdleConns: getIntEnv("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDurationEnv("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDurationEnv("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDurationEnv("REDIS_WRITE_TIMEOUT", 3*time.Second),
			PoolTimeout:  getDurationEnv("REDIS_POOL_TIMEOUT", 4*time.Second),
			IdleTimeout:  getDurationEnv("REDIS_IDLE_TIMEOUT", 5*time.Minute),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		RateLimit: RateLimitConfig{
			Enabled:                  getBoolEnv("RATE_LIMIT_ENABLED", true),
			Backend:                  strings.ToLower(getEnv("RATE_LIMIT_BACKEND", "memory")),
			DefaultRequestsPerMinute: getIntEnv("RATE_LIMIT_RPM", 30),
			BurstMultiplier:          getFloatEnv("RATE_LIMIT_BURST", 2.0),
			Window:                   getDurationEnv("RATE_LIMIT_WINDOW", time.Minute),
			KeyPrefix:                getEnv("RATE_LIMIT_KEY_PREFIX", "ratelimit:client"),
		},
	}

	switch cfg.Cache.Driver {
	case "file", "redis", "badger", "none":
	default:
		return nil, fmt.Errorf("unsupported CACHE_DRIVER %q", cfg.Cache.Driver)
	}
	switch cfg.RateLimit.Backend {
	case "redis", "memory":
	default:
		return nil, fmt.Errorf("unsupported RATE_LIMIT_BACKEND %q", cfg.RateLimit.Backend)
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvRequired(key string) string {
	value := os.Getenv(key)
	if value == "" {
		panic(fmt.Sprintf("Required environment variable %s is not set", key))
	}
	return value
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
