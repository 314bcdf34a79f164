package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	config "github.com/astroask/backend/configs"
	"github.com/astroask/backend/internal/application/services"
	"github.com/astroask/backend/internal/core/ports"
	"github.com/astroask/backend/internal/infrastructure/cachestore"
	"github.com/astroask/backend/internal/infrastructure/health"
	"github.com/astroask/backend/internal/infrastructure/httpserver"
	"github.com/astroask/backend/internal/infrastructure/llm"
	"github.com/astroask/backend/internal/infrastructure/prokerala"
	"github.com/astroask/backend/internal/infrastructure/redis"
	"github.com/astroask/backend/internal/infrastructure/repositories"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	// Setup logger
	logger := logrus.New()
	if cfg.Log.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(level)
	}

	logger.Info("Starting astroask backend...")

	// Redis is only dialed when the cache or the rate limiter needs it
	var redisClient *goredis.Client
	if cfg.UsesRedis() {
		redisClient, err = redis.NewRedisClient(&cfg.Redis)
		if err != nil {
			logger.Fatal("Failed to connect to Redis:", err)
		}
		defer redisClient.Close()
		logger.Info("Connected to Redis successfully")
	}

	var (
		cache    ports.Cache
		purger   ports.CachePurger
		checkers []ports.HealthChecker
	)
	switch cfg.Cache.Driver {
	case "file":
		store, err := cachestore.NewFileStore(cfg.Cache.Dir, cfg.Cache.TTL, logger)
		if err != nil {
			logger.Fatal("Failed to initialize cache directory:", err)
		}
		cache, purger = store, store
		checkers = append(checkers, health.NewCacheDirHealthChecker(store.Dir()))
	case "badger":
		store, err := cachestore.OpenBadgerStore(cfg.Cache.Dir, cfg.Cache.TTL, logger)
		if err != nil {
			logger.Fatal("Failed to open badger cache:", err)
		}
		defer store.Close()
		cache, purger = store, store
		checkers = append(checkers, health.NewBadgerHealthChecker(store.DB()))
	case "redis":
		cache = redis.NewRedisCache(redisClient, cfg.Cache.Prefix, cfg.Cache.TTL)
	default:
		cache = cachestore.NoopStore{}
	}
	if redisClient != nil {
		checkers = append(checkers, health.NewRedisHealthChecker(redisClient))
	}
	logger.WithFields(logrus.Fields{"driver": cfg.Cache.Driver, "ttl": cfg.Cache.TTL}).Info("Cache initialized")

	// Upstream gateways; replicas sharing Redis also share the provider token
	var brokerOpts []prokerala.BrokerOption
	if redisClient != nil && cfg.Prokerala.CacheToken {
		brokerOpts = append(brokerOpts, prokerala.WithTokenStore(repositories.NewTokenRedisRepository(redisClient, cfg.Prokerala.ClientID, logger)))
	}
	tokens := prokerala.NewTokenBroker(prokerala.TokenBrokerConfig{
		ClientID:     cfg.Prokerala.ClientID,
		ClientSecret: cfg.Prokerala.ClientSecret,
		TokenURL:     cfg.Prokerala.TokenURL,
		CacheToken:   cfg.Prokerala.CacheToken,
		ExpiryMargin: cfg.Prokerala.TokenExpiryMargin,
	}, &http.Client{Timeout: cfg.Prokerala.Timeout}, logger, brokerOpts...)

	astro := prokerala.NewClient(prokerala.Config{
		BaseURL:            cfg.Prokerala.BaseURL,
		ChartPath:          cfg.Prokerala.ChartPath,
		DashaPath:          cfg.Prokerala.DashaPath,
		YearlyPath:         cfg.Prokerala.YearlyPath,
		Ayanamsa:           cfg.Prokerala.Ayanamsa,
		Timeout:            cfg.Prokerala.Timeout,
		MaxRetries:         cfg.Prokerala.MaxRetries,
		RetryInitialWait:   cfg.Prokerala.RetryInitialWait,
		BreakerMaxFailures: uint32(max(cfg.Prokerala.BreakerMaxFailures, 0)),
		BreakerOpenTimeout: cfg.Prokerala.BreakerOpenTimeout,
	}, tokens, logger, prokerala.WithMetrics(httpserver.GetUpstreamCalls(), httpserver.GetBreakerState()))

	explainer := llm.NewExplainer(llm.Config{
		APIKey:      cfg.OpenAI.APIKey,
		BaseURL:     cfg.OpenAI.BaseURL,
		Model:       cfg.OpenAI.Model,
		Timeout:     cfg.OpenAI.Timeout,
		MaxRetries:  cfg.OpenAI.MaxRetries,
		Placeholder: cfg.OpenAI.Placeholder,
	}, nil, logger, llm.WithCallCounter(httpserver.GetUpstreamCalls()))

	readingService := services.NewReadingService(astro, explainer, cache, &services.ReadingServiceConfig{
		TTL:             cfg.Cache.TTL,
		UpstreamTimeout: cfg.Cache.UpstreamTimeout,
		Ayanamsa:        cfg.Prokerala.Ayanamsa,
		Coalesce:        cfg.Cache.Coalesce,
		Lookups:         httpserver.GetCacheLookups(),
	}, logger)

	rateLimiterConfig := &services.RateLimiterConfig{
		DefaultRequestsPerMinute: cfg.RateLimit.DefaultRequestsPerMinute,
		BurstMultiplier:          cfg.RateLimit.BurstMultiplier,
		Window:                   cfg.RateLimit.Window,
		KeyPrefix:                cfg.RateLimit.KeyPrefix,
	}
	var (
		rateLimiterService ports.RateLimiterService
		sweeper            services.Sweeper
	)
	switch {
	case !cfg.RateLimit.Enabled:
		logger.Warn("Rate limiting disabled")
	case cfg.RateLimit.Backend == "redis":
		rateLimiterService = services.NewRateLimiterService(repositories.NewRateLimitRedisRepository(redisClient), rateLimiterConfig, logger)
	default:
		local := services.NewLocalRateLimiterService(rateLimiterConfig)
		rateLimiterService, sweeper = local, local
	}

	// Background housekeeping for expired cache files and idle limiters
	janitorCtx, stopJanitor := context.WithCancel(context.Background())
	defer stopJanitor()
	if purger != nil || sweeper != nil {
		go services.NewCacheJanitor(purger, sweeper, cfg.Cache.PurgeInterval, logger).Run(janitorCtx)
	}

	// Create server configuration
	serverConfig := &httpserver.ServerConfig{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		TLSCertFile:    cfg.Server.TLSCertFile,
		TLSKeyFile:     cfg.Server.TLSKeyFile,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Environment:    cfg.Server.Environment,
		BodyLimit:      cfg.Server.BodyLimit,
		CacheDriver:    cfg.Cache.Driver,
	}

	deps := httpserver.ServerDeps{
		ReadingService:     readingService,
		RateLimiterService: rateLimiterService,
		HealthCheckers:     checkers,
	}

	server := httpserver.NewServer(serverConfig, logger, deps)

	// Start server in a goroutine
	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal("Failed to start server:", err)
		}
	}()

	logger.Infof("Server started on %s:%s", cfg.Server.Host, cfg.Server.Port)

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	stopJanitor()

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown:", err)
	}

	logger.Info("Server exited")
}
