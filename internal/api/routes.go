package api

import (
	"github.com/gin-gonic/gin"

	"github.com/VarunKoduru/CyberThreat-Guardian/internal/api/handlers"
)

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, PATCH, PUT, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(200)
			return
		}
		c.Next()
	}
}

func RegisterRoutes(r *gin.Engine, h *handlers.Handler) {
	// Enable CORS for preflight requests
	r.Use(corsMiddleware())

	api := r.Group("/api")
	{
		api.GET("/health", h.HealthCheck)

		// Account endpoints
		api.POST("/signup", h.Signup)
		api.POST("/login", h.Login)
		api.POST("/forgot-password", h.ForgotPassword)
		api.POST("/reset-password", h.ResetPassword)

		// Scan endpoints
		api.POST("/scan/url", h.ScanURL)   // scan a URL
		api.POST("/scan/file", h.ScanFile) // scan an uploaded file
		api.GET("/scan/:id", h.GetScan)    // fetch a scan by id
		api.GET("/stats", h.GetStats)      // dashboard statistics
	}
}
