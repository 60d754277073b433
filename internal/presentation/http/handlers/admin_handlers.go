package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zurichjs/conference-go/internal/application/services"
	"github.com/zurichjs/conference-go/internal/domain/discount"
	"github.com/zurichjs/conference-go/internal/infrastructure/observability/logging"
	"github.com/zurichjs/conference-go/internal/infrastructure/observability/performance"
)

// AdminHandlers contains the admin login and discount reporting handlers
type AdminHandlers struct {
	authService      *services.AuthService
	discountService  *services.DiscountService
	analyticsService *services.AnalyticsService
	logger           *logging.ChanneledLogger
	perfTracker      *performance.Tracker
}

// NewAdminHandlers creates admin handlers with injected dependencies
func NewAdminHandlers(
	authService *services.AuthService,
	discountService *services.DiscountService,
	analyticsService *services.AnalyticsService,
	logger *logging.ChanneledLogger,
	perfTracker *performance.Tracker,
) *AdminHandlers {
	return &AdminHandlers{
		authService:      authService,
		discountService:  discountService,
		analyticsService: analyticsService,
		logger:           logger,
		perfTracker:      perfTracker,
	}
}

// PostLogin handles POST /api/v1/admin/login - admin authentication
func (h *AdminHandlers) PostLogin(c *gin.Context) {
	start := time.Now()
	marker := h.perfTracker.StartOperation("admin:login", "")
	defer marker.Complete()
	h.logger.Auth().Debug("Received login request", "method", c.Request.Method, "path", c.Request.URL.Path)

	var loginReq struct {
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&loginReq); err != nil {
		h.logger.Auth().Error("Login request JSON binding failed", "error", err.Error())
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	result := h.authService.AuthenticateAdmin(loginReq.Password)
	if !result.Success {
		h.logger.Auth().Warn("Login attempt failed", "error", result.Error, "duration", time.Since(start))
		marker.SetSuccess(false)
		c.JSON(http.StatusUnauthorized, gin.H{"error": result.Error})
		return
	}

	h.logger.Auth().Info("Login successful", "role", result.Role, "duration", time.Since(start))
	c.JSON(http.StatusOK, result)
}

// AuthMiddleware requires a valid admin bearer token
func (h *AdminHandlers) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		token, found := strings.CutPrefix(authHeader, "Bearer ")
		if !found || !h.authService.ValidateAdminToken(token) {
			h.logger.Auth().Debug("Admin request without valid token", "path", c.Request.URL.Path)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// GetSummary handles GET /api/v1/admin/discounts/summary - event and issuance counts
func (h *AdminHandlers) GetSummary(c *gin.Context) {
	marker := h.perfTracker.StartOperation("admin:summary", "")
	defer marker.Complete()

	events, err := h.analyticsService.Summary(c.Request.Context())
	if err != nil {
		h.logger.Analytics().Error("Event summary failed", "error", err.Error())
		marker.SetError(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load event counts"})
		return
	}

	counts, err := h.discountService.Counts(c.Request.Context())
	if err != nil {
		h.logger.Database().Error("Issued discount counts failed", "error", err.Error())
		marker.SetError(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load discount counts"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"events":        events,
		"discounts":     counts,
		"droppedEvents": h.analyticsService.Dropped(),
		"performance":   h.perfTracker.Stats(),
	})
}

// PostRedeem handles POST /api/v1/admin/discounts/:code/redeem
func (h *AdminHandlers) PostRedeem(c *gin.Context) {
	code := strings.ToUpper(strings.TrimSpace(c.Param("code")))
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "code is required"})
		return
	}

	err := h.discountService.MarkRedeemed(c.Request.Context(), code)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"code": code, "redeemed": true})
	case errors.Is(err, discount.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Unknown discount code"})
	default:
		h.logger.Database().Error("Redeem failed", "code", code, "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to redeem code"})
	}
}
