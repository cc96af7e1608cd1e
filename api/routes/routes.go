package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/propos4l/proposal-engine/api/handlers"
	"github.com/propos4l/proposal-engine/api/middleware"
)

// SetupRoutes wires every HTTP surface: the v1 API, the websocket progress
// feed and the prometheus scrape endpoint.
func SetupRoutes(r *gin.Engine, h *handlers.Handlers) {
	r.Use(middleware.CORS())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")

	v1.GET("/health", h.Proposal.Health)

	docs := v1.Group("/proposals")
	{
		docs.POST("/upload", h.Proposal.Upload)
		docs.GET("", h.Proposal.ListDocuments)
		docs.GET("/:documentId", h.Proposal.GetDocument)
		docs.DELETE("/:documentId", h.Proposal.DeleteDocument)
	}

	v1.GET("/search", h.Proposal.Search)
	v1.POST("/generate", h.Proposal.Generate)

	jobs := v1.Group("/jobs")
	{
		jobs.GET("", h.Progress.ActiveJobs)
		jobs.GET("/:trackingId", h.Progress.GetStatus)
		jobs.DELETE("/:trackingId", h.Progress.Cancel)
		jobs.GET("/:trackingId/ws", h.Progress.Watch)
	}
}
