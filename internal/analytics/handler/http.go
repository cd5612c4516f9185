// Package handler exposes the read-only query endpoints: per-user security
// analysis, the admin overview, and the file-access feed.
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"zero-trust-access-platform/internal/analytics/service"
)

// adminFeedLimit caps the admin file-access feed.
const adminFeedLimit = 100

// Handler provides the analytics HTTP endpoints.
type Handler struct {
	analytics *service.AnalyticsService
}

// NewHandler creates a new analytics handler.
func NewHandler(analytics *service.AnalyticsService) *Handler {
	return &Handler{analytics: analytics}
}

// RegisterRoutes sets up the analytics routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/security/analyze/user/:username", h.AnalyzeUser)
	r.GET("/security/analyze/admin", h.AdminOverview)
	r.GET("/files/list/:username", h.ListFiles)
	r.GET("/admin/file-access", h.FileAccessFeed)
}

// AnalyzeUser handles GET /security/analyze/user/:username.
func (h *Handler) AnalyzeUser(c *gin.Context) {
	analysis, err := h.analytics.AnalyzeUser(c.Request.Context(), c.Param("username"))
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "user_not_found"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		return
	}
	c.JSON(http.StatusOK, analysis)
}

// AdminOverview handles GET /security/analyze/admin.
func (h *Handler) AdminOverview(c *gin.Context) {
	overview, err := h.analytics.AdminOverview(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": overview})
}

// ListFiles handles GET /files/list/:username.
func (h *Handler) ListFiles(c *gin.Context) {
	resources, u, err := h.analytics.ListAccessibleResources(c.Request.Context(), c.Param("username"))
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "user_not_found"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"username":             u.Username,
		"role":                 string(u.Role),
		"accessible_resources": resources,
	})
}

// FileAccessFeed handles GET /admin/file-access.
func (h *Handler) FileAccessFeed(c *gin.Context) {
	feed, err := h.analytics.RecentFileAccess(c.Request.Context(), adminFeedLimit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"file_access": feed})
}
