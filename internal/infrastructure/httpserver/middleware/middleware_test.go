package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/astroask/backend/internal/infrastructure/httpserver/middleware"
	"github.com/astroask/backend/internal/mocks"
)

func okHandler(c echo.Context) error { return c.NoContent(http.StatusOK) }

func TestRateLimit_Returns429WhenDenied(t *testing.T) {
	e := echo.New()
	reset := time.Unix(1_800_000_000, 0)
	var seenKey string
	rl := &mocks.RateLimiterServiceMock{AllowFn: func(ctx context.Context, clientKey string) (bool, int, int, time.Time, error) {
		seenKey = clientKey
		return false, 0, 30, reset, nil
	}}
	h := middleware.NewRateLimitMiddleware(rl, logrus.New()).Handler()(okHandler)

	req := httptest.NewRequest(http.MethodPost, "/api/kundli", nil)
	req.Header.Set(echo.HeaderXRealIP, "203.0.113.7")
	rec := httptest.NewRecorder()
	err := h(e.NewContext(req, rec))
	require.Error(t, err)
	htErr, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	require.Equal(t, http.StatusTooManyRequests, htErr.Code)
	require.Equal(t, "203.0.113.7", seenKey)
	require.Equal(t, "30", rec.Header().Get("X-RateLimit-Limit"))
	require.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	require.Equal(t, "1800000000", rec.Header().Get("X-RateLimit-Reset"))
}

func TestRateLimit_FailsOpen(t *testing.T) {
	e := echo.New()
	rl := &mocks.RateLimiterServiceMock{AllowFn: func(ctx context.Context, clientKey string) (bool, int, int, time.Time, error) {
		return true, 60, 30, time.Now(), errors.New("redis down")
	}}
	h := middleware.NewRateLimitMiddleware(rl, logrus.New()).Handler()(okHandler)
	rec := httptest.NewRecorder()
	require.NoError(t, h(e.NewContext(httptest.NewRequest(http.MethodPost, "/api/dasha", nil), rec)))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimit_NilLimiterPassesThrough(t *testing.T) {
	e := echo.New()
	h := middleware.NewRateLimitMiddleware(nil, nil).Handler()(okHandler)
	rec := httptest.NewRecorder()
	require.NoError(t, h(e.NewContext(httptest.NewRequest(http.MethodPost, "/api/yearly", nil), rec)))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
}

func TestMetrics_CountsUnmatchedRoutesUnderOneLabel(t *testing.T) {
	total := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_requests_total"}, []string{"method", "endpoint", "status"})
	dur := prometheus.NewHistogramVec(prometheus.HistogramOpts{Name: "test_request_duration_seconds"}, []string{"method", "endpoint"})

	e := echo.New()
	e.Use(middleware.NewMetricsMiddleware(total, dur).CollectHTTPMetrics())
	e.GET("/health", okHandler)
	e.RouteNotFound("/*", func(c echo.Context) error { return echo.ErrNotFound })

	for _, p := range []string{"/health", "/nope", "/wp-admin"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, p, nil))
	}
	require.Equal(t, 1.0, testutil.ToFloat64(total.WithLabelValues(http.MethodGet, "/health", "200")))
	require.Equal(t, 2.0, testutil.ToFloat64(total.WithLabelValues(http.MethodGet, "unmatched", "404")))
}
