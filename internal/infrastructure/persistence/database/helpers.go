// Package database provides database helper functions
package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/zurichjs/conference-go/internal/infrastructure/observability/logging"
	"github.com/zurichjs/conference-go/pkg/config"
)

// TestTursoConnectionWithLogger tests the Turso database connection with logging
func TestTursoConnectionWithLogger(databaseURL, authToken string, logger *logging.ChanneledLogger) error {
	start := time.Now()
	logger.Database().Debug("Testing Turso database connection", "databaseURL", databaseURL)

	connStr := fmt.Sprintf("%s?authToken=%s", databaseURL, authToken)

	db, err := sql.Open(DriverLibSQL, connStr)
	if err != nil {
		logger.Database().Error("Failed to open Turso connection", "error", err.Error(), "databaseURL", databaseURL)
		return fmt.Errorf("failed to open connection: %w", err)
	}
	defer db.Close()

	var result int
	if err = db.QueryRow("SELECT 1").Scan(&result); err != nil {
		logger.Database().Error("Turso connection test query failed", "error", err.Error(), "databaseURL", databaseURL)
		return fmt.Errorf("connection test query failed: %w", err)
	}

	if result != 1 {
		logger.Database().Error("Unexpected Turso query result", "result", result, "expected", 1, "databaseURL", databaseURL)
		return fmt.Errorf("unexpected query result: %d", result)
	}

	logger.Database().Info("Turso connection test successful", "databaseURL", databaseURL, "duration", time.Since(start))
	return nil
}

// GetSlowQueryThreshold returns the configured slow query threshold
func GetSlowQueryThreshold() time.Duration {
	return config.SlowQueryThreshold
}

// CheckAndLogSlowQuery logs query on the slow query channel when it ran past the threshold
func CheckAndLogSlowQuery(logger *logging.ChanneledLogger, query string, duration time.Duration) {
	if duration > GetSlowQueryThreshold() {
		logger.LogSlowQuery(query, duration)
	}
}
