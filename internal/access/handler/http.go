// Package handler exposes the write-path HTTP endpoints: registration,
// login, device sightings, trust grants, and file-access recording.
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"zero-trust-access-platform/internal/access/service"
	eventrepo "zero-trust-access-platform/internal/event/repository"
	identityservice "zero-trust-access-platform/internal/identity/service"
	"zero-trust-access-platform/internal/metrics"
	userdomain "zero-trust-access-platform/internal/user/domain"
)

// Handler provides HTTP endpoints for the access flow.
type Handler struct {
	access *service.AccessService
}

// NewHandler creates a new access handler.
func NewHandler(access *service.AccessService) *Handler {
	return &Handler{access: access}
}

// RegisterRoutes sets up the access routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/auth/register", h.RegisterUser)
	r.POST("/auth/login", h.Login)
	r.POST("/device/register", h.RegisterDevice)
	r.POST("/device/trust", h.TrustDevice)
	r.POST("/files/access", h.AccessFile)
}

// RegisterUser handles POST /auth/register.
func (h *Handler) RegisterUser(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
		Role     string `json:"role"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "username and password required"})
		return
	}
	role := userdomain.Role(req.Role)
	if role == "" {
		role = userdomain.RoleUser
	}

	u, err := h.access.Register(c.Request.Context(), req.Username, req.Password, role)
	switch {
	case errors.Is(err, identityservice.ErrUsernameTaken):
		c.JSON(http.StatusConflict, gin.H{"error": "username_taken"})
		return
	case errors.Is(err, identityservice.ErrInvalidUsername),
		errors.Is(err, identityservice.ErrWeakPassword):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"username": u.Username,
		"role":     string(u.Role),
	})
}

// Login handles POST /auth/login. Credentials arrive as form fields; the
// client IP feeds geolocation and the risk signals.
func (h *Handler) Login(c *gin.Context) {
	username := c.PostForm("username")
	password := c.PostForm("password")
	if username == "" || password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "username and password required"})
		return
	}

	res, err := h.access.RecordLogin(c.Request.Context(), username, password, c.ClientIP())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		return
	}

	if res.Authenticated {
		metrics.LoginAttemptsTotal.WithLabelValues("success").Inc()
	} else {
		metrics.LoginAttemptsTotal.WithLabelValues("failure").Inc()
	}
	metrics.EventsRecordedTotal.WithLabelValues("login").Inc()
	metrics.RiskAssessmentsTotal.WithLabelValues(string(res.Assessment.Level)).Inc()
	metrics.AccessDecisionsTotal.WithLabelValues(string(res.Assessment.Decision)).Inc()
	metrics.AuditEntriesTotal.Inc()

	if !res.Authenticated {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":      "invalid_credentials",
			"risk_score": res.Assessment.Score,
			"risk_level": res.Assessment.Level,
		})
		return
	}

	body := gin.H{
		"username":   res.User.Username,
		"role":       string(res.User.Role),
		"risk_score": res.Assessment.Score,
		"risk_level": res.Assessment.Level,
		"decision":   res.Assessment.Decision,
		"signals":    res.Assessment.Signals,
	}
	if res.Allowed() {
		body["access_token"] = res.Token
		body["token_type"] = "bearer"
		body["expires_at"] = res.TokenExpires
		c.JSON(http.StatusOK, body)
		return
	}
	// Authenticated but not allowed: the caller must step up or is denied.
	c.JSON(http.StatusForbidden, body)
}

// RegisterDevice handles POST /device/register.
func (h *Handler) RegisterDevice(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		DeviceID string `json:"device_id" binding:"required"`
		MAC      string `json:"mac_address"`
		OS       string `json:"os"`
		WifiSSID string `json:"wifi_ssid"`
		Hostname string `json:"hostname"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "username and device_id required"})
		return
	}

	ev, err := h.access.RecordDeviceSighting(c.Request.Context(), service.DeviceSighting{
		UserID:   req.Username,
		DeviceID: req.DeviceID,
		MAC:      req.MAC,
		OS:       req.OS,
		WifiSSID: req.WifiSSID,
		Hostname: req.Hostname,
		IP:       c.ClientIP(),
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		return
	}
	metrics.EventsRecordedTotal.WithLabelValues("device").Inc()
	metrics.AuditEntriesTotal.Inc()

	c.JSON(http.StatusCreated, gin.H{
		"event_id":  ev.ID,
		"device_id": ev.DeviceID,
		"trusted":   ev.Trusted,
	})
}

// TrustDevice handles POST /device/trust.
func (h *Handler) TrustDevice(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		DeviceID string `json:"device_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "username and device_id required"})
		return
	}

	err := h.access.GrantDeviceTrust(c.Request.Context(), req.Username, req.DeviceID)
	switch {
	case errors.Is(err, eventrepo.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "device_not_found"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		return
	}
	metrics.AuditEntriesTotal.Inc()

	c.JSON(http.StatusOK, gin.H{
		"username":  req.Username,
		"device_id": req.DeviceID,
		"trusted":   true,
	})
}

// AccessFile handles POST /files/access.
func (h *Handler) AccessFile(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		FileName string `json:"file_name" binding:"required"`
		Action   string `json:"action" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "username, file_name, and action required"})
		return
	}

	ev, err := h.access.RecordFileAccess(c.Request.Context(), req.Username, req.FileName, req.Action, c.ClientIP())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		return
	}
	metrics.EventsRecordedTotal.WithLabelValues("file_access").Inc()
	metrics.AuditEntriesTotal.Inc()

	c.JSON(http.StatusCreated, gin.H{
		"event_id":  ev.ID,
		"file_name": ev.FileName,
		"action":    ev.Action,
	})
}
