package api

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/Conceptual-Machines/bachgen/internal/api/handlers"
	apimiddleware "github.com/Conceptual-Machines/bachgen/internal/api/middleware"
	"github.com/Conceptual-Machines/bachgen/internal/config"
	"github.com/Conceptual-Machines/bachgen/internal/metrics"
	"github.com/Conceptual-Machines/bachgen/internal/middleware"
	"github.com/Conceptual-Machines/bachgen/internal/services"
)

// Deps are the collaborators of the router. DB, Prometheus and CloudWatch
// may be nil.
type Deps struct {
	Config     *config.Config
	DB         *gorm.DB
	Composer   *services.ComposerService
	Prometheus *metrics.Prometheus
	CloudWatch *metrics.Client
	CacheOn    bool
	Version    string
}

func SetupRouter(d Deps) *gin.Engine {
	router := gin.New()

	// Recovery middleware (must be first)
	router.Use(apimiddleware.RecoverWithSentry())

	// Sentry middleware for error tracking
	router.Use(apimiddleware.SentryMiddleware())

	// Request tracking and structured logging
	router.Use(apimiddleware.RequestTracking(d.Prometheus, d.CloudWatch))

	// Health check
	healthHandler := handlers.NewHealthHandler(d.DB, d.CacheOn)
	router.GET("/health", healthHandler.HealthCheck)

	// Metrics endpoints
	metricsHandler := handlers.NewMetricsHandler(d.Version, d.Composer.Store() != nil, d.CacheOn)
	router.GET("/api/metrics", metricsHandler.GetMetrics)
	if d.Prometheus != nil {
		router.GET("/metrics", gin.WrapH(d.Prometheus.Handler()))
	}

	v1 := router.Group("/api/v1")
	v1.Use(authMiddleware(d.Config))
	{
		generationHandler := handlers.NewGenerationHandler(d.Composer)
		v1.POST("/goldberg", generationHandler.Goldberg)
		v1.POST("/toccata", generationHandler.Toccata)
		v1.GET("/plan", handlers.Plan)

		if store := d.Composer.Store(); store != nil {
			compositionHandler := handlers.NewCompositionHandler(store)
			v1.GET("/compositions", compositionHandler.List)
			v1.GET("/compositions/:id", compositionHandler.Get)
			v1.DELETE("/compositions/:id", middleware.AdminRequired(), compositionHandler.Delete)
		}
	}

	return router
}

func authMiddleware(cfg *config.Config) gin.HandlerFunc {
	switch {
	case cfg.IsGatewayMode():
		return apimiddleware.GatewayAuth()
	case cfg.IsJWTMode():
		return middleware.JWTAuth(cfg)
	}
	return apimiddleware.NoAuth()
}
