package httpserver

import (
	"github.com/labstack/echo/v4"
)

func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/metrics", s.metricsEndpoint)

	api := s.echo.Group("/api", s.middleware.RateLimit.Handler())
	api.POST("/kundli", s.chart)
	api.POST("/dasha", s.dasha)
	api.POST("/yearly", s.yearly)

	explain := api.Group("/explain")
	explain.POST("/chart", s.explainChart)
	explain.POST("/dasha", s.explainDasha)
	explain.POST("/yearly", s.explainYearly)

	s.echo.RouteNotFound("/*", func(c echo.Context) error { return echo.ErrNotFound })
}
