package http

import (
	"log/slog"

	"github.com/allergenscan/backend/config"
	"github.com/gin-gonic/gin"
)

// SetupRouter creates and configures the Gin router
func SetupRouter(cfg *config.Config, handler *Handler, logger *slog.Logger) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(RecoveryMiddleware(logger))
	router.Use(RequestIDMiddleware())
	router.Use(LoggerMiddleware(logger))
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	// Health check endpoint
	router.GET("/health", handler.HealthCheck)

	api := router.Group("/api")
	api.Use(RateLimitMiddleware(NewIPRateLimiter(cfg.RateLimit.PerIP)))
	{
		api.GET("/barcode", handler.LookupBarcode)
		api.POST("/analyze", handler.Analyze)
		api.GET("/scan", handler.Scan)
		api.GET("/allergens", handler.ListAllergens)

		profile := api.Group("/profile")
		{
			profile.GET("", handler.GetProfile)
			profile.PUT("/:id", handler.AddToProfile)
			profile.DELETE("/:id", handler.RemoveFromProfile)
		}

		api.POST("/report/highlight", handler.Highlight)
	}

	return router
}
