package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"walletlens/internal/config"
	"walletlens/internal/handlers"
	"walletlens/internal/middleware"
	"walletlens/internal/validator"
)

// newRouter wires middleware and routes. Premium routes require a token
// whose tier claim is premium; pipeline routes require the X-API-Key.
func newRouter(cfg *config.Config, taxHandler *handlers.TaxHandler) *gin.Engine {
	validator.Register()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.RequestTimeout(cfg.RequestTimeout))

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Disposition, X-Request-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check endpoint
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")

	// Public routes
	v1.GET("/tax/supported-years", taxHandler.SupportedYears)

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware(cfg.JWTSecret))

	tax := protected.Group("/tax")
	tax.GET("/reports", taxHandler.ListReports)
	tax.GET("/reports/:id", taxHandler.GetReport)

	premium := tax.Group("")
	premium.Use(middleware.RequireTier(middleware.TierPremium))
	premium.POST("/calculate", taxHandler.CalculateTax)
	premium.POST("/export-summary", taxHandler.ExportSummary)
	premium.POST("/export-form-8949", taxHandler.ExportForm8949)
	premium.POST("/export-schedule-d", taxHandler.ExportScheduleD)

	// Pipeline routes (API key)
	pipeline := v1.Group("/pipeline")
	pipeline.Use(middleware.PipelineAuthMiddleware(cfg.PipelineAPIKey))
	pipeline.POST("/tax/calculate", taxHandler.PipelineCalculate)

	return router
}
