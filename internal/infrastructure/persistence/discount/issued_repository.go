// Package discount provides the SQL implementation of the issued discount repository.
package discount

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/zurichjs/conference-go/internal/domain/discount"
	"github.com/zurichjs/conference-go/internal/infrastructure/observability/logging"
	"github.com/zurichjs/conference-go/internal/infrastructure/persistence/database"
)

// SQLIssuedRepository stores issued discounts in the issued_discounts table.
type SQLIssuedRepository struct {
	db     *database.DB
	logger *logging.ChanneledLogger
}

// NewSQLIssuedRepository creates a new instance of the repository.
func NewSQLIssuedRepository(db *database.DB, logger *logging.ChanneledLogger) *SQLIssuedRepository {
	return &SQLIssuedRepository{db: db, logger: logger}
}

// Store inserts a freshly issued discount.
func (r *SQLIssuedRepository) Store(ctx context.Context, d *discount.IssuedDiscount) error {
	const query = `
		INSERT INTO issued_discounts (code, session_id, fingerprint, percent_off, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	start := time.Now()
	r.logger.Database().Debug("Executing issued discount insert",
		"code", d.Code,
		"sessionId", logging.MaskSessionID(d.SessionID),
		"percentOff", d.PercentOff)

	_, err := r.db.ExecContext(ctx, query,
		d.Code,
		d.SessionID,
		int64(d.Fingerprint),
		d.PercentOff,
		database.FormatTimestamp(d.ExpiresAt),
		database.FormatTimestamp(d.CreatedAt),
	)
	if err != nil {
		r.logger.Database().Error("Issued discount insert failed", "error", err.Error(), "code", d.Code)
		return fmt.Errorf("failed to store issued discount: %w", err)
	}

	duration := time.Since(start)
	r.logger.Database().Info("Issued discount insert completed", "code", d.Code, "duration", duration)
	database.CheckAndLogSlowQuery(r.logger, query, duration)
	return nil
}

// FindByCode returns discount.ErrNotFound when the code was never issued.
func (r *SQLIssuedRepository) FindByCode(ctx context.Context, code string) (*discount.IssuedDiscount, error) {
	const query = `
		SELECT code, session_id, fingerprint, percent_off, expires_at, created_at, redeemed_at
		FROM issued_discounts WHERE code = ?`

	start := time.Now()
	r.logger.Database().Debug("Executing issued discount lookup", "code", code)

	var (
		d                    discount.IssuedDiscount
		fingerprint          int64
		expiresAt, createdAt any
		redeemedAt           any
	)
	err := r.db.QueryRowContext(ctx, query, code).Scan(
		&d.Code, &d.SessionID, &fingerprint, &d.PercentOff, &expiresAt, &createdAt, &redeemedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, discount.ErrNotFound
	}
	if err != nil {
		r.logger.Database().Error("Issued discount lookup failed", "error", err.Error(), "code", code)
		return nil, fmt.Errorf("failed to load issued discount: %w", err)
	}

	d.Fingerprint = uint32(fingerprint)
	if d.ExpiresAt, err = database.ParseTimestamp(expiresAt); err != nil {
		return nil, fmt.Errorf("issued discount %s: expires_at: %w", code, err)
	}
	if d.CreatedAt, err = database.ParseTimestamp(createdAt); err != nil {
		return nil, fmt.Errorf("issued discount %s: created_at: %w", code, err)
	}
	if redeemedAt != nil {
		at, err := database.ParseTimestamp(redeemedAt)
		if err != nil {
			return nil, fmt.Errorf("issued discount %s: redeemed_at: %w", code, err)
		}
		d.RedeemedAt = &at
	}

	duration := time.Since(start)
	r.logger.Database().Info("Issued discount lookup completed", "code", code, "duration", duration)
	database.CheckAndLogSlowQuery(r.logger, query, duration)
	return &d, nil
}

// MarkRedeemed stamps the redemption time. Redeeming twice keeps the first stamp.
func (r *SQLIssuedRepository) MarkRedeemed(ctx context.Context, code string, at time.Time) error {
	const query = `UPDATE issued_discounts SET redeemed_at = ? WHERE code = ? AND redeemed_at IS NULL`

	start := time.Now()
	res, err := r.db.ExecContext(ctx, query, database.FormatTimestamp(at), code)
	if err != nil {
		r.logger.Database().Error("Issued discount redeem failed", "error", err.Error(), "code", code)
		return fmt.Errorf("failed to redeem discount: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		if _, err := r.FindByCode(ctx, code); err != nil {
			return err
		}
	}

	duration := time.Since(start)
	r.logger.Database().Info("Issued discount redeem completed", "code", code, "duration", duration)
	database.CheckAndLogSlowQuery(r.logger, query, duration)
	return nil
}

// Counts summarizes issued, still-active and redeemed codes as of now.
func (r *SQLIssuedRepository) Counts(ctx context.Context, now time.Time) (discount.IssuedCounts, error) {
	const query = `
		SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN redeemed_at IS NULL AND expires_at > ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN redeemed_at IS NOT NULL THEN 1 ELSE 0 END), 0)
		FROM issued_discounts`

	start := time.Now()
	var c discount.IssuedCounts
	if err := r.db.QueryRowContext(ctx, query, database.FormatTimestamp(now)).Scan(&c.Issued, &c.Active, &c.Redeemed); err != nil {
		r.logger.Database().Error("Issued discount counts failed", "error", err.Error())
		return c, fmt.Errorf("failed to count issued discounts: %w", err)
	}

	database.CheckAndLogSlowQuery(r.logger, query, time.Since(start))
	return c, nil
}
