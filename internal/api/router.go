package api

import (
	"github.com/gin-gonic/gin"

	"github.com/Conceptual-Machines/beatcanvas-api/internal/api/handlers"
	apimiddleware "github.com/Conceptual-Machines/beatcanvas-api/internal/api/middleware"
	"github.com/Conceptual-Machines/beatcanvas-api/internal/config"
)

// Recorder receives request metrics and serves the pipeline counters
type Recorder interface {
	apimiddleware.APIRecorder
	handlers.StatsSource
}

func SetupRouter(
	cfg *config.Config,
	composer handlers.Composer,
	renderer handlers.Renderer,
	recorder Recorder,
	version string,
) *gin.Engine {
	router := gin.New()

	// Recovery middleware (must be first)
	router.Use(apimiddleware.RecoverWithSentry())

	// Sentry middleware for error tracking
	router.Use(apimiddleware.SentryMiddleware())

	// Request tracking and structured logging
	router.Use(apimiddleware.RequestTracking(recorder))

	// CORS middleware
	router.Use(apimiddleware.CORS(cfg.CORSAllowedOrigins))

	healthHandler := handlers.NewHealthHandler(version, composer.Provider(), composer.Model(), renderer)
	router.GET("/", healthHandler.Root)

	api := router.Group("/api")
	{
		api.GET("/health", healthHandler.HealthCheck)

		metricsHandler := handlers.NewMetricsHandler(version, recorder)
		api.GET("/metrics", metricsHandler.GetMetrics)

		generationHandler := handlers.NewGenerationHandler(composer, renderer, cfg.GenerationTimeout)
		api.POST("/generate", generationHandler.Generate)
	}

	return router
}
