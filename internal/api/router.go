package api

import (
	"github.com/gin-gonic/gin"
	"github.com/inkmuse/inkmuse-api/internal/api/handlers"
	apimiddleware "github.com/inkmuse/inkmuse-api/internal/api/middleware"
	"github.com/inkmuse/inkmuse-api/internal/config"
	"github.com/inkmuse/inkmuse-api/internal/metrics"
)

func SetupRouter(cfg *config.Config, metricsClient *metrics.Client) *gin.Engine {
	router := gin.New()

	// Recovery middleware (must be first)
	router.Use(apimiddleware.RecoverWithSentry())

	// Sentry middleware for error tracking
	router.Use(apimiddleware.SentryMiddleware())

	// Request tracking and structured logging
	router.Use(apimiddleware.RequestTracking(metricsClient))

	// CORS middleware
	router.Use(apimiddleware.CORS())

	// Health check
	router.GET("/health", handlers.HealthCheck(cfg))

	// Auth: behind the gateway the caller identity arrives as a trusted
	// header; standalone deployments run open with an anonymous identity.
	authMiddleware := apimiddleware.NoAuth()
	if cfg.IsGatewayMode() {
		authMiddleware = apimiddleware.GatewayAuth()
	}

	v1 := router.Group("/api/v1")
	v1.Use(authMiddleware)
	{
		// Questionnaire stages (SSE streaming)
		designHandler := handlers.NewDesignHandler(cfg, metricsClient)
		v1.POST("/designs/followup", designHandler.FollowUpQuestion)
		v1.POST("/designs/prompts", designHandler.FinalPrompts)

		// Image generation
		imageHandler := handlers.NewImageHandler(cfg, metricsClient)
		v1.POST("/designs/image", imageHandler.GenerateImage)
		v1.POST("/designs/pair", imageHandler.GeneratePair)
	}

	return router
}
