package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "The total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "The HTTP request latencies in seconds",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"method", "endpoint"},
	)

	cacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "astro_cache_lookups_total",
			Help: "Cache lookups by operation and result (hit, miss, error, corrupt)",
		},
		[]string{"operation", "result"},
	)

	upstreamCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "astro_upstream_calls_total",
			Help: "Upstream calls by provider, reading kind and result",
		},
		[]string{"upstream", "kind", "result"},
	)

	breakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "astro_upstream_breaker_state",
			Help: "Circuit breaker state: 0 closed, 1 half-open, 2 open",
		},
		[]string{"breaker"},
	)
)

func init() {
	prometheus.MustRegister(requestsTotal)
	prometheus.MustRegister(requestDuration)
	prometheus.MustRegister(cacheLookups)
	prometheus.MustRegister(upstreamCalls)
	prometheus.MustRegister(breakerState)
}

// GetRequestsTotal returns the requests total metric for middleware use
func GetRequestsTotal() *prometheus.CounterVec {
	return requestsTotal
}

// GetRequestDuration returns the request duration metric for middleware use
func GetRequestDuration() *prometheus.HistogramVec {
	return requestDuration
}

// GetCacheLookups returns the cache lookup counter for the reading service
func GetCacheLookups() *prometheus.CounterVec {
	return cacheLookups
}

// GetUpstreamCalls returns the upstream call counter for gateway use
func GetUpstreamCalls() *prometheus.CounterVec {
	return upstreamCalls
}

// GetBreakerState returns the circuit breaker gauge for gateway use
func GetBreakerState() *prometheus.GaugeVec {
	return breakerState
}

// LogMetricsInitialization logs that metrics have been initialized
func (s *Server) LogMetricsInitialization() {
	if s.logger != nil {
		s.logger.Info("Prometheus metrics initialized and registered")
		s.logger.WithFields(map[string]interface{}{
			"http_requests_total":          "Counter for HTTP requests by method, endpoint, status",
			"http_request_duration":        "Histogram for HTTP request duration by method, endpoint",
			"astro_cache_lookups_total":    "Counter for cache lookups by operation, result",
			"astro_upstream_calls_total":   "Counter for upstream calls by upstream, kind, result",
			"astro_upstream_breaker_state": "Gauge for circuit breaker state",
			"metrics_endpoint":             "/metrics",
		}).Debug("Available Prometheus metrics")
	}
}

// Metrics handler
func (s *Server) metricsHandler() http.Handler {
	return promhttp.Handler()
}

// metricsEndpoint wraps the metrics handler with logging
func (s *Server) metricsEndpoint(c echo.Context) error {
	if s.logger != nil {
		s.logger.Debug("Serving Prometheus metrics")
	}
	handler := s.metricsHandler()
	handler.ServeHTTP(c.Response(), c.Request())
	return nil
}
