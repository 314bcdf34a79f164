package httpserver

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	serviceName    = "astroask-backend"
	serviceVersion = "1.0.0"
)

type healthResponse struct {
	Status       string            `json:"status"`
	Timestamp    string            `json:"timestamp"`
	Version      string            `json:"version"`
	Service      string            `json:"service"`
	CacheDriver  string            `json:"cache_driver"`
	Dependencies map[string]string `json:"dependencies"`
}

// healthCheck checks the cache backends and Redis concurrently. Any failing
// dependency marks the service degraded; a disabled cache is still healthy.
func (s *Server) healthCheck(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	var (
		mu   sync.Mutex
		deps = make(map[string]string, len(s.healthCheckers))
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, hc := range s.healthCheckers {
		if hc == nil {
			continue
		}
		g.Go(func() error {
			state := "healthy"
			if err := hc.Check(gctx); err != nil {
				state = "unhealthy"
				s.logger.WithFields(logrus.Fields{"dependency": hc.Name(), "error": err}).Warn("health check failed")
			}
			mu.Lock()
			deps[hc.Name()] = state
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	resp := healthResponse{
		Status:       "healthy",
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
		Version:      serviceVersion,
		Service:      serviceName,
		CacheDriver:  s.cacheDriver(),
		Dependencies: deps,
	}
	for _, state := range deps {
		if state != "healthy" {
			resp.Status = "degraded"
			return c.JSON(http.StatusServiceUnavailable, resp)
		}
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) cacheDriver() string {
	if s.config == nil || s.config.CacheDriver == "" {
		return "none"
	}
	return s.config.CacheDriver
}
