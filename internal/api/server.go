package api

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/rs/zerolog/log"

	"github.com/fluxbase-eu/fluxfilter/internal/config"
	"github.com/fluxbase-eu/fluxfilter/internal/database"
	"github.com/fluxbase-eu/fluxfilter/internal/middleware"
	"github.com/fluxbase-eu/fluxfilter/internal/observability"
	"github.com/fluxbase-eu/fluxfilter/internal/query"
	"github.com/fluxbase-eu/fluxfilter/internal/schema"
	"github.com/fluxbase-eu/fluxfilter/internal/validation"
)

// Catalog is the entity schema served by the API
type Catalog interface {
	schema.Provider
	EntityNames() []string
}

// Server represents the HTTP server
type Server struct {
	app       *fiber.App
	config    *config.Config
	catalog   Catalog
	db        *database.Connection
	parser    *query.Parser
	rules     *validation.Cache
	metrics   *observability.Metrics
	tracer    *observability.Tracer
	version   string
	startTime time.Time
}

// NewServer creates a new HTTP server. db may be nil when the schema does not
// come from Postgres.
func NewServer(cfg *config.Config, catalog Catalog, db *database.Connection, version string) (*Server, error) {
	app := fiber.New(fiber.Config{
		ServerHeader:          "fluxfilter",
		AppName:               "fluxfilter " + version,
		BodyLimit:             cfg.Server.BodyLimit,
		ReadTimeout:           cfg.Server.ReadTimeout,
		WriteTimeout:          cfg.Server.WriteTimeout,
		IdleTimeout:           cfg.Server.IdleTimeout,
		DisableStartupMessage: !cfg.Debug,
		ErrorHandler:          customErrorHandler,
	})

	tracer, err := observability.NewTracer(context.Background(), cfg.Tracing, version)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize OpenTelemetry tracer, tracing will be disabled")
		tracer = nil
	}

	metrics := observability.NewMetrics()
	if db != nil {
		db.SetMetrics(metrics)
	}

	parser, err := query.NewParser(&cfg.Query, catalog, metrics)
	if err != nil {
		return nil, err
	}

	server := &Server{
		app:       app,
		config:    cfg,
		catalog:   catalog,
		db:        db,
		parser:    parser,
		rules:     validation.NewCache(catalog, cfg.Validation.DevMode),
		metrics:   metrics,
		tracer:    tracer,
		version:   version,
		startTime: time.Now(),
	}

	log.Debug().Msg("Setting up middlewares")
	server.setupMiddlewares()

	log.Debug().Msg("Setting up routes")
	server.setupRoutes()

	return server, nil
}

// setupMiddlewares sets up global middlewares
func (s *Server) setupMiddlewares() {
	// Request ID first so every later middleware can log it
	s.app.Use(requestid.New())

	if s.tracer != nil && s.tracer.IsEnabled() {
		log.Debug().Msg("Adding OpenTelemetry tracing middleware")
		s.app.Use(middleware.TracingMiddleware(middleware.DefaultTracingConfig()))
	}

	s.app.Use(middleware.StructuredLogger())

	s.app.Use(recover.New(recover.Config{
		EnableStackTrace: s.config.Debug,
	}))

	if s.config.Metrics.Enabled {
		s.app.Use(s.metrics.MetricsMiddleware())
	}

	s.app.Use(compress.New(compress.Config{
		Level: compress.LevelDefault,
	}))
}

// setupRoutes sets up all routes
func (s *Server) setupRoutes() {
	s.app.Get("/health", s.handleHealth)

	if s.config.Metrics.Enabled {
		s.app.Get("/metrics", func(c *fiber.Ctx) error {
			s.metrics.UpdateUptime(s.startTime)
			return s.metrics.Handler()(c)
		})
	}

	v1 := s.app.Group("/api/v1")

	if s.config.RateLimit.Enabled {
		log.Info().
			Int("max", s.config.RateLimit.Max).
			Dur("expiration", s.config.RateLimit.Expiration).
			Msg("Enabling API rate limiter")
		v1.Use(middleware.QueryAPILimiter(s.config.RateLimit.Max, s.config.RateLimit.Expiration, func(*fiber.Ctx) {
			s.metrics.RecordRateLimitHit()
		}))
	}

	v1.Get("/entities", s.handleListEntities)
	v1.Get("/entities/:entity", s.handleGetEntity)
	v1.Get("/query/:entity", s.handleQuery)

	// Registered before /rules/:id so that an entity named "rules" keeps its id route
	v1.Get("/validation/:entity/id", s.handleValidationID)
	v1.Get("/validation/rules/:id", s.handleValidationRules)
}

// handleHealth handles health check requests
func (s *Server) handleHealth(c *fiber.Ctx) error {
	services := fiber.Map{
		"schema": s.config.Schema.Source,
	}

	status := "ok"
	httpStatus := fiber.StatusOK

	if s.db != nil {
		ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
		defer cancel()

		dbHealthy := true
		if err := s.db.Health(ctx); err != nil {
			dbHealthy = false
			log.Error().Err(err).Msg("Database health check failed")
		}
		services["database"] = dbHealthy

		if !dbHealthy {
			status = "degraded"
			httpStatus = fiber.StatusServiceUnavailable
		}
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":    status,
		"version":   s.version,
		"services":  services,
		"entities":  len(s.catalog.EntityNames()),
		"timestamp": time.Now().UTC(),
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	return s.app.Listen(s.config.Server.Address)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.tracer != nil {
		if err := s.tracer.Shutdown(ctx); err != nil {
			log.Warn().Err(err).Msg("Failed to shutdown OpenTelemetry tracer")
		}
	}

	log.Info().Msg("Shutting down HTTP server")
	return s.app.ShutdownWithContext(ctx)
}

// App returns the underlying Fiber app instance for testing
func (s *Server) App() *fiber.App {
	return s.app
}

// Metrics returns the server's metrics
func (s *Server) Metrics() *observability.Metrics {
	return s.metrics
}
