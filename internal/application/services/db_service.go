package services

import (
	"context"
	"time"

	schema "github.com/zurichjs/conference-go/internal/infrastructure/database"
	"github.com/zurichjs/conference-go/internal/infrastructure/observability/logging"
	"github.com/zurichjs/conference-go/internal/infrastructure/persistence/database"
)

// DBService handles database connectivity and health checking
type DBService struct {
	db     *database.DB
	logger *logging.ChanneledLogger
}

// NewDBService creates a new database service
func NewDBService(db *database.DB, logger *logging.ChanneledLogger) *DBService {
	return &DBService{db: db, logger: logger}
}

// CheckStatus performs basic database health check
func (d *DBService) CheckStatus(ctx context.Context) map[string]any {
	result := map[string]any{
		"status":    "checking",
		"timestamp": time.Now().UTC(),
	}

	if d.db == nil {
		result["status"] = "error"
		result["error"] = "no database connection"
		return result
	}

	st := d.db.Status(ctx)
	result["driver"] = st.Driver
	result["latencyMs"] = st.Latency.Milliseconds()
	if !st.Connected {
		d.logger.Database().Error("Database status check failed", "error", st.Error)
		result["status"] = "error"
		result["error"] = st.Error
		return result
	}

	exists, err := schema.NewTableCreator().TablesExist(d.db.DB)
	result["allTablesExist"] = exists
	switch {
	case err != nil:
		result["status"] = "degraded"
		result["warning"] = err.Error()
	case !exists:
		result["status"] = "degraded"
		result["warning"] = "discount tables missing"
	default:
		result["status"] = "healthy"
	}
	return result
}
