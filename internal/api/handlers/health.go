package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/inkmuse/inkmuse-api/internal/config"
)

// HealthCheck returns the health status of the API
func HealthCheck(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		providerStatus := func(key string) string {
			if key != "" {
				return "configured"
			}
			return "missing"
		}

		c.JSON(http.StatusOK, gin.H{
			"status":      "healthy",
			"environment": cfg.Environment,
			"providers": gin.H{
				"openai":    providerStatus(cfg.OpenAIAPIKey),
				"gemini":    providerStatus(cfg.GeminiAPIKey),
				"stability": providerStatus(cfg.StabilityAPIKey),
			},
		})
	}
}
