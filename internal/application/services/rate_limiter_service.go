package services

import (
	"context"
	"sync"
	"time"

	"github.com/astroask/backend/internal/core/ports"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// RateLimiterService implements RateLimiter using a single static policy over a
// shared fixed-window counter store.
type RateLimiterService struct {
	repo            ports.RateLimitRepository
	defaultLimit    int
	burstMultiplier float64
	window          time.Duration
	keyPrefix       string
	logger          *logrus.Logger
}

// RateLimiterConfig groups configuration parameters for the rate limiter.
type RateLimiterConfig struct {
	DefaultRequestsPerMinute int
	BurstMultiplier          float64
	Window                   time.Duration
	KeyPrefix                string
}

func (cfg *RateLimiterConfig) withDefaults() RateLimiterConfig {
	out := RateLimiterConfig{DefaultRequestsPerMinute: 30, BurstMultiplier: 2.0, Window: time.Minute, KeyPrefix: "ratelimit:client"}
	if cfg == nil {
		return out
	}
	if cfg.DefaultRequestsPerMinute > 0 {
		out.DefaultRequestsPerMinute = cfg.DefaultRequestsPerMinute
	}
	if cfg.BurstMultiplier > 0 {
		out.BurstMultiplier = cfg.BurstMultiplier
	}
	if cfg.Window > 0 {
		out.Window = cfg.Window
	}
	if cfg.KeyPrefix != "" {
		out.KeyPrefix = cfg.KeyPrefix
	}
	return out
}

func NewRateLimiterService(repo ports.RateLimitRepository, cfg *RateLimiterConfig, logger *logrus.Logger) *RateLimiterService {
	c := cfg.withDefaults()
	return &RateLimiterService{repo: repo, defaultLimit: c.DefaultRequestsPerMinute, burstMultiplier: c.BurstMultiplier, window: c.Window, keyPrefix: c.KeyPrefix, logger: logger}
}

// Allow admits up to burst requests per window and reports burst as the limit.
func (s *RateLimiterService) Allow(ctx context.Context, clientKey string) (bool, int, int, time.Time, error) {
	ttl := s.window * 2 // retain overlap window
	count, windowStart, err := s.repo.IncrementWindow(ctx, clientKey, s.window, s.keyPrefix, ttl)
	reset := windowStart.Add(s.window)
	burst := int(float64(s.defaultLimit) * s.burstMultiplier)
	if err != nil {
		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{"client": clientKey}).WithError(err).Error("rate limiter: failed to increment window")
		}
		// fail open
		return true, burst, burst, reset, err
	}
	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"client": clientKey, "count": count, "burst": burst, "rpm": s.defaultLimit}).Debug("rate limiter window state")
	}
	if count > burst {
		return false, 0, burst, reset, nil
	}
	return true, burst - count, burst, reset, nil
}

// LocalRateLimiterService keeps one token bucket per client in process memory.
// It is used when no Redis is configured; limits are then per replica.
type LocalRateLimiterService struct {
	mu       sync.Mutex
	limiters map[string]*localLimiter
	burst    int
	every    rate.Limit
	window   time.Duration
	now      func() time.Time
}

type localLimiter struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// LocalOption customizes a LocalRateLimiterService.
type LocalOption func(*LocalRateLimiterService)

// WithLocalClock replaces time.Now.
func WithLocalClock(now func() time.Time) LocalOption {
	return func(s *LocalRateLimiterService) { s.now = now }
}

func NewLocalRateLimiterService(cfg *RateLimiterConfig, opts ...LocalOption) *LocalRateLimiterService {
	c := cfg.withDefaults()
	burst := int(float64(c.DefaultRequestsPerMinute) * c.BurstMultiplier)
	if burst < 1 {
		burst = 1
	}
	s := &LocalRateLimiterService{
		limiters: make(map[string]*localLimiter),
		burst:    burst,
		every:    rate.Limit(float64(c.DefaultRequestsPerMinute) / c.Window.Seconds()),
		window:   c.Window,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *LocalRateLimiterService) Allow(_ context.Context, clientKey string) (bool, int, int, time.Time, error) {
	now := s.now()
	s.mu.Lock()
	l, ok := s.limiters[clientKey]
	if !ok {
		l = &localLimiter{lim: rate.NewLimiter(s.every, s.burst)}
		s.limiters[clientKey] = l
	}
	l.lastSeen = now
	allowed := l.lim.AllowN(now, 1)
	remaining := int(l.lim.TokensAt(now))
	s.mu.Unlock()

	if remaining < 0 {
		remaining = 0
	}
	reset := now.Truncate(s.window).Add(s.window)
	return allowed, remaining, s.burst, reset, nil
}

// Sweep forgets clients idle for longer than two windows and returns how many
// were removed.
func (s *LocalRateLimiterService) Sweep() int {
	cutoff := s.now().Add(-2 * s.window)
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k, l := range s.limiters {
		if l.lastSeen.Before(cutoff) {
			delete(s.limiters, k)
			n++
		}
	}
	return n
}

var (
	_ ports.RateLimiterService = (*RateLimiterService)(nil)
	_ ports.RateLimiterService = (*LocalRateLimiterService)(nil)
)
