package handler

import (
	"github.com/gin-gonic/gin"
)

// Handlers groups every HTTP handler mounted by RegisterRoutes.
type Handlers struct {
	Catalog   *CatalogHandler
	Session   *SessionHandler
	Progress  *ProgressHandler
	Ingestion *IngestionHandler
	Metrics   *MetricsHandler
}

// RegisterRoutes mounts the public API under prefix. sessionAuth guards every
// /session route.
func RegisterRoutes(r *gin.Engine, prefix string, h Handlers, sessionAuth gin.HandlerFunc) {
	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)

	api := r.Group(prefix)

	catalog := api.Group("/catalog")
	catalog.GET("", h.Catalog.Get)
	catalog.GET("/courses/:code", h.Catalog.Course)
	catalog.GET("/courses/:code/successors", h.Catalog.Successors)
	catalog.GET("/courses/:code/description", h.Catalog.Description)

	api.POST("/sessions", h.Session.Create)

	session := api.Group("/session", sessionAuth)
	session.GET("", h.Session.Get)
	session.PATCH("", h.Session.Update)
	session.GET("/progress", h.Session.Progress)
	session.PUT("/progress", h.Session.ReplaceProgress)
	session.DELETE("/progress", h.Session.Reset)
	session.GET("/processing", h.Session.Processing)

	session.POST("/transcript", h.Ingestion.Upload)
	session.GET("/ingestions", h.Ingestion.Runs)

	session.GET("/summary", h.Progress.Summary)
	session.GET("/levels/language", h.Progress.LanguageLevel)
	session.GET("/levels/practice", h.Progress.PracticeStages)
	session.GET("/recommendations", h.Progress.Recommendations)
	session.GET("/recommendations/export", h.Progress.ExportRecommendations)
	session.GET("/report", h.Progress.Report)
	session.GET("/courses/:code", h.Progress.CourseDetail)
}
