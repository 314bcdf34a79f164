package middleware

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
)

// MetricsMiddleware holds the Prometheus metrics
type MetricsMiddleware struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewMetricsMiddleware creates a new metrics middleware instance
func NewMetricsMiddleware(requestsTotal *prometheus.CounterVec, requestDuration *prometheus.HistogramVec) *MetricsMiddleware {
	return &MetricsMiddleware{
		requestsTotal:   requestsTotal,
		requestDuration: requestDuration,
	}
}

// CollectHTTPMetrics creates middleware that collects HTTP request metrics.
// Requests that match no route share one label so scanners cannot inflate
// series cardinality.
func (m *MetricsMiddleware) CollectHTTPMetrics() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				// let the error handler write the response so the status is final
				c.Error(err)
			}

			duration := time.Since(start).Seconds()
			method := c.Request().Method
			path := c.Path()
			if path == "" || path == "/*" || path == "/api/*" {
				path = "unmatched"
			}
			status := strconv.Itoa(c.Response().Status)

			if m.requestsTotal != nil {
				m.requestsTotal.WithLabelValues(method, path, status).Inc()
			}
			if m.requestDuration != nil {
				m.requestDuration.WithLabelValues(method, path).Observe(duration)
			}

			return nil
		}
	}
}
