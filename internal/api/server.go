package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"example.com/ujenzipro/config"
	"example.com/ujenzipro/internal/api/handlers"
	"example.com/ujenzipro/internal/metrics"
	"example.com/ujenzipro/internal/repository"
	"example.com/ujenzipro/internal/services"
	"example.com/ujenzipro/internal/tracing"
)

// Server represents the HTTP server
type Server struct {
	config          config.Config
	router          *gin.Engine
	httpServer      *http.Server
	deliveryService *services.DeliveryService
	projectService  *services.ProjectService
	documentService *services.DocumentService
	providerService *services.ProviderService
	userRepo        repository.UserRepository
	metrics         *metrics.Metrics
	tracer          tracing.Tracer
}

// NewServer creates a new HTTP server
func NewServer(
	cfg config.Config,
	deliveryService *services.DeliveryService,
	projectService *services.ProjectService,
	documentService *services.DocumentService,
	providerService *services.ProviderService,
	userRepo repository.UserRepository,
	collector *metrics.Metrics,
	tracer tracing.Tracer,
) *Server {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	server := &Server{
		config:          cfg,
		deliveryService: deliveryService,
		projectService:  projectService,
		documentService: documentService,
		providerService: providerService,
		userRepo:        userRepo,
		metrics:         collector,
		tracer:          tracer,
	}

	server.router = server.setupRouter()
	server.httpServer = &http.Server{
		Addr:         cfg.ServerAddress,
		Handler:      server.router,
		ReadTimeout:  cfg.ServerTimeout,
		WriteTimeout: 0, // SSE streams stay open indefinitely
	}

	return server
}

// setupRouter configures the HTTP router
func (s *Server) setupRouter() *gin.Engine {
	router := gin.New()

	router.Use(RequestIDMiddleware())
	if s.config.CorsEnabled {
		router.Use(CORSMiddleware(s.config.CorsOrigins))
	}
	router.Use(gin.Recovery())
	router.Use(LoggingMiddleware(s.metrics))
	router.Use(TracingMiddleware(s.tracer.Application()))

	deliveryHandler := handlers.NewDeliveryHandler(s.deliveryService, s.tracer)
	trackingHandler := handlers.NewTrackingHandler(s.deliveryService, s.tracer)
	projectHandler := handlers.NewProjectHandler(s.projectService)
	documentHandler := handlers.NewDocumentHandler(s.documentService)
	providerHandler := handlers.NewProviderHandler(s.providerService)
	metricsHandler := handlers.NewMetricsHandler(s.metrics)

	metricsHandler.RegisterRoutes(router)

	v1 := router.Group("/api/v1")

	// Public routes: tracking numbers and access codes are the only
	// credentials here.
	trackingHandler.RegisterRoutes(v1)
	projectHandler.RegisterPublicRoutes(v1)

	// Authenticated routes
	authed := v1.Group("")
	authed.Use(AuthMiddleware(s.userRepo))
	deliveryHandler.RegisterRoutes(authed)
	projectHandler.RegisterRoutes(authed)
	documentHandler.RegisterRoutes(authed)
	providerHandler.RegisterRoutes(authed)

	return router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	log.Info().Str("address", s.config.ServerAddress).Msg("Starting HTTP server")

	if err := s.httpServer.ListenAndServe(); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "HTTP server error")
	}

	return nil
}

// Shutdown gracefully stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "HTTP server shutdown error")
	}

	log.Info().Msg("HTTP server shut down successfully")
	return nil
}
