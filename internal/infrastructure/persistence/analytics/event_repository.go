// Package analytics provides the concrete SQL-based implementation
// for popup analytics event persistence.
package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/zurichjs/conference-go/internal/domain/discount"
	"github.com/zurichjs/conference-go/internal/infrastructure/observability/logging"
	"github.com/zurichjs/conference-go/internal/infrastructure/persistence/database"
	"github.com/zurichjs/conference-go/internal/infrastructure/security"
)

// SQLEventRepository handles event persistence to the discount_events table.
type SQLEventRepository struct {
	db     *database.DB
	logger *logging.ChanneledLogger
}

// NewSQLEventRepository creates a new instance of the repository.
func NewSQLEventRepository(db *database.DB, logger *logging.ChanneledLogger) *SQLEventRepository {
	return &SQLEventRepository{
		db:     db,
		logger: logger,
	}
}

// Store saves one event. A missing ID is filled with a ULID.
func (r *SQLEventRepository) Store(ctx context.Context, e *discount.Event) error {
	if e.ID == "" {
		e.ID = security.GenerateULID()
	}

	const query = `
		INSERT INTO discount_events (id, name, code, session_id, remaining_seconds, copied, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	start := time.Now()
	r.logger.Database().Debug("Executing discount event insert",
		"eventId", e.ID,
		"name", e.Name,
		"code", e.Code)

	var remaining sql.NullInt64
	if e.RemainingSeconds != nil {
		remaining = sql.NullInt64{Int64: int64(*e.RemainingSeconds), Valid: true}
	}
	var copied sql.NullBool
	if e.Copied != nil {
		copied = sql.NullBool{Bool: *e.Copied, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, query,
		e.ID,
		string(e.Name),
		e.Code,
		e.SessionID,
		remaining, // NULL unless the event carries it
		copied,    // only discount_expired carries it
		database.FormatTimestamp(e.OccurredAt),
	)
	if err != nil {
		r.logger.Database().Error("Discount event insert failed",
			"error", err.Error(),
			"eventId", e.ID,
			"name", e.Name)
		return fmt.Errorf("failed to store discount event: %w", err)
	}

	duration := time.Since(start)
	r.logger.Database().Info("Discount event insert completed",
		"eventId", e.ID,
		"name", e.Name,
		"duration", duration)
	database.CheckAndLogSlowQuery(r.logger, query, duration)
	return nil
}

// CountByName returns how often each event was recorded. Names never seen are absent.
func (r *SQLEventRepository) CountByName(ctx context.Context) (map[discount.EventName]int, error) {
	const query = `SELECT name, COUNT(*) FROM discount_events GROUP BY name`

	start := time.Now()
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		r.logger.Database().Error("Discount event counts failed", "error", err.Error())
		return nil, fmt.Errorf("failed to count discount events: %w", err)
	}
	defer rows.Close()

	counts := make(map[discount.EventName]int)
	for rows.Next() {
		var (
			name  string
			count int
		)
		if err := rows.Scan(&name, &count); err != nil {
			return nil, fmt.Errorf("failed to scan discount event count: %w", err)
		}
		counts[discount.EventName(name)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate discount event counts: %w", err)
	}

	database.CheckAndLogSlowQuery(r.logger, query, time.Since(start))
	return counts, nil
}
