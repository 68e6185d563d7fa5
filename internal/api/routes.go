package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// SetupRoutes configures all API routes. Health routes are registered by
// the HTTP server wrapper; metricsHandler serves /metrics when non-nil.
func SetupRoutes(router *gin.Engine, handler *Handler, metricsHandler http.Handler) {
	if metricsHandler != nil {
		router.GET("/metrics", gin.WrapH(metricsHandler))
	}

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Feed endpoints
		v1.GET("/feed/:user_id", handler.GetFeed) // GET /api/v1/feed/:user_id

		// Interaction endpoints
		v1.POST("/interactions", handler.RecordInteraction) // POST /api/v1/interactions

		// Cache management endpoints
		v1.DELETE("/cache/:user_id", handler.InvalidateCache) // DELETE /api/v1/cache/:user_id

		// Index management endpoints
		index := v1.Group("/index")
		{
			index.POST("/rebuild", handler.RebuildIndex) // POST /api/v1/index/rebuild
			index.GET("/stats", handler.GetIndexStats)   // GET /api/v1/index/stats
		}

		// Profile status endpoints
		v1.GET("/profiles/:user_id/status", handler.GetProfileStatus) // GET /api/v1/profiles/:user_id/status
	}
}
