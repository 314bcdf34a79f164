package services

import (
	"context"
	"time"

	"github.com/astroask/backend/internal/core/ports"
	"github.com/sirupsen/logrus"
)

// Sweeper drops idle per-client state, such as in-process rate limiters.
type Sweeper interface {
	Sweep() int
}

// CacheJanitor periodically purges expired cache entries and sweeps idle
// in-process state. Either target may be nil.
type CacheJanitor struct {
	purger   ports.CachePurger
	sweeper  Sweeper
	interval time.Duration
	timeout  time.Duration
	logger   *logrus.Logger
}

func NewCacheJanitor(purger ports.CachePurger, sweeper Sweeper, interval time.Duration, logger *logrus.Logger) *CacheJanitor {
	if interval <= 0 {
		interval = time.Hour
	}
	return &CacheJanitor{purger: purger, sweeper: sweeper, interval: interval, timeout: 30 * time.Second, logger: logger}
}

// Run ticks until ctx is done.
func (j *CacheJanitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single purge and sweep.
func (j *CacheJanitor) RunOnce(ctx context.Context) {
	if j.purger != nil {
		pctx, cancel := context.WithTimeout(ctx, j.timeout)
		n, err := j.purger.Purge(pctx)
		cancel()
		if err != nil {
			if j.logger != nil {
				j.logger.WithError(err).Error("failed to purge expired cache entries")
			}
		} else if j.logger != nil && n > 0 {
			j.logger.WithField("removed", n).Info("purged expired cache entries")
		}
	}
	if j.sweeper != nil {
		if n := j.sweeper.Sweep(); n > 0 && j.logger != nil {
			j.logger.WithField("removed", n).Debug("swept idle rate limiters")
		}
	}
}
