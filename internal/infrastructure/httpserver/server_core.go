package httpserver

import (
	"time"

	"github.com/astroask/backend/internal/core/ports"
	customMiddleware "github.com/astroask/backend/internal/infrastructure/httpserver/middleware"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

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
	// BodyLimit caps request bodies, e.g. "1M"; empty disables the cap.
	BodyLimit string
	// CacheDriver names the response cache backend reported by /health.
	CacheDriver string
}

type ServerDeps struct {
	ReadingService ports.ReadingService
	// RateLimiterService is optional; nil disables limiting.
	RateLimiterService ports.RateLimiterService
	HealthCheckers     []ports.HealthChecker
}

type Server struct {
	echo           *echo.Echo
	config         *ServerConfig
	logger         *logrus.Logger
	readings       ports.ReadingService
	middleware     *customMiddleware.MiddlewareCollection
	healthCheckers []ports.HealthChecker
}

func NewServer(serverConfig *ServerConfig, logger *logrus.Logger, deps ServerDeps) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	server := &Server{
		echo:           e,
		config:         serverConfig,
		logger:         logger,
		readings:       deps.ReadingService,
		healthCheckers: deps.HealthCheckers,
		middleware: customMiddleware.NewMiddlewareCollection(
			deps.RateLimiterService,
			logger,
			GetRequestsTotal(),
			GetRequestDuration(),
		),
	}

	e.Validator = newRequestValidator()
	e.HTTPErrorHandler = server.httpErrorHandler

	server.setupMiddleware()
	server.setupRoutes()

	return server
}
