package api

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"query-evolver/internal/logging"
	"query-evolver/internal/repository"
)

// Server holds the dependencies for the API server.
type Server struct {
	Store   repository.GenerationStore
	logger  *logging.Logger
	storage string
}

// NewServer creates a new Server. storage names the configured driver and is
// reported by the health endpoint.
func NewServer(store repository.GenerationStore, storage string, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Server{Store: store, logger: logger, storage: storage}
}

// NewRouter builds the echo instance with middleware and every route
// registered.
func (s *Server) NewRouter() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = ErrorHandler

	e.Use(middleware.Recover())
	e.Use(otelecho.Middleware("query-evolver"))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			args := []any{"method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency.Round(time.Microsecond).String()}
			if v.Error != nil {
				s.logger.Warn("request failed", append(args, "error", v.Error)...)
				return nil
			}
			s.logger.Debug("request", args...)
			return nil
		},
	}))

	e.GET("/health", s.Health)
	s.RegisterHandlers(e.Group("/api/v1"))
	return e
}

// RegisterHandlers mounts the REST API on g.
func (s *Server) RegisterHandlers(g *echo.Group) {
	g.GET("/generations", s.ListGenerations)
	g.GET("/generations/latest", s.LatestGeneration)
	g.GET("/generations/:generation", s.GetGeneration)
	g.DELETE("/generations", s.ResetGenerations)
	g.POST("/similarity/datasets", s.CompareDatasets)
	g.POST("/similarity/strings", s.CompareStrings)
}
