package server

import (
	"github.com/gin-gonic/gin"

	"github.com/clipforge/clipforge/internal/apiroutes"
	"github.com/clipforge/clipforge/internal/config"
	"github.com/clipforge/clipforge/internal/server/handlers"
)

// setupRoutes configures the routes the server owns itself. Module routes
// are mounted separately by the module manager.
func setupRoutes(r *gin.Engine, cfg *config.Config) {
	api := r.Group("/api")
	{
		api.GET("/health", handlers.HealthCheck)
		api.GET("/", handlers.APIIndex)
		api.GET("/events/stream", handlers.EventStream)
	}

	apiroutes.Register("/api/health", "GET", "Service liveness and host pressure.")
	apiroutes.Register("/api/", "GET", "This endpoint index.")
	apiroutes.Register("/api/events/stream", "GET", "Websocket stream of system events.")

	// Finished artifacts are served straight off disk.
	r.Static("/uploads", cfg.Media.UploadDir)
	r.Static("/clips", cfg.Media.ClipDir)
	r.Static("/thumbnails", cfg.Media.ThumbnailDir)
}
