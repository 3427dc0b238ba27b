package api

import (
	"github.com/gin-gonic/gin"

	infragin "github.com/jonesrussell/civic-triage/infrastructure/gin"
	"github.com/jonesrussell/civic-triage/infrastructure/jwt"
	"github.com/jonesrussell/civic-triage/internal/domain"
)

// RegisterRoutes mounts the API under /api/v1. A nil limiter leaves
// submissions unthrottled.
func RegisterRoutes(router *gin.Engine, h *Handler, tokens *jwt.Manager, limiter *RateLimiter) {
	v1 := router.Group("/api/v1")

	submit := []gin.HandlerFunc{h.CreateSubmission}
	if limiter != nil {
		submit = append([]gin.HandlerFunc{limiter.Middleware()}, submit...)
	}
	v1.POST("/submissions", submit...)
	v1.GET("/submissions/:ticketId", h.TrackSubmission)
	v1.GET("/categories", h.ListCategories)
	v1.GET("/agencies", h.ListAgencies)
	v1.GET("/stats/summary", h.StatsSummary)
	v1.POST("/admin/login", h.Login)

	admin := infragin.ProtectedGroup(v1, "/admin/submissions", tokens, domain.RoleAdmin)
	admin.GET("", h.ListSubmissions)
	admin.GET("/search", h.SearchSubmissions)
	admin.GET("/export", h.ExportSubmissions)
	admin.GET("/:id", h.GetSubmission)
	admin.PUT("/:id", h.UpdateSubmission)
}
