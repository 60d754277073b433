package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zurichjs/conference-go/internal/application/services"
	"github.com/zurichjs/conference-go/internal/infrastructure/observability/logging"
	"github.com/zurichjs/conference-go/internal/infrastructure/observability/performance"
)

// DatabaseHandlers contains all database-related HTTP handlers
type DatabaseHandlers struct {
	dbService   *services.DBService
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker
}

// NewDBHandlers creates database handlers with injected dependencies
func NewDBHandlers(dbService *services.DBService, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *DatabaseHandlers {
	return &DatabaseHandlers{
		dbService:   dbService,
		logger:      logger,
		perfTracker: perfTracker,
	}
}

// GetDatabaseStatus handles GET /api/v1/db/status - checks database status
func (h *DatabaseHandlers) GetDatabaseStatus(c *gin.Context) {
	start := time.Now()
	marker := h.perfTracker.StartOperation("get_database_status_request", "")
	defer marker.Complete()
	h.logger.Database().Debug("Received get database status request", "method", c.Request.Method, "path", c.Request.URL.Path)

	status := h.dbService.CheckStatus(c.Request.Context())

	if status["status"] == "error" {
		h.logger.Database().Error("Database status check failed", "error", status["error"], "duration", time.Since(start))
		marker.SetSuccess(false)
		// Return error status but still return 200 OK with error details
		c.JSON(http.StatusOK, status)
		return
	}

	h.logger.Database().Info("Database status check completed", "status", status["status"], "allTablesExist", status["allTablesExist"], "duration", time.Since(start))
	c.JSON(http.StatusOK, status)
}
