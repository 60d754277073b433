package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zurichjs/conference-go/internal/domain/discount"
	"github.com/zurichjs/conference-go/internal/infrastructure/cookies"
	"github.com/zurichjs/conference-go/internal/infrastructure/observability/logging"
	"github.com/zurichjs/conference-go/internal/infrastructure/observability/performance"
	"github.com/zurichjs/conference-go/internal/infrastructure/security"
	"github.com/zurichjs/conference-go/pkg/config"
)

// GenerateRequest asks for a new discount for one popup session.
type GenerateRequest struct {
	Fingerprint       uint32
	SessionID         string
	LotteryPercentOff int // zero means the configured percent
}

// DiscountIssuer is what the popup engine needs from the issuing side.
type DiscountIssuer interface {
	Generate(ctx context.Context, req GenerateRequest) (*discount.Discount, error)
	Seal(d discount.Discount, sessionID string) (string, error)
}

// DiscountService issues discount codes, seals them for the secure cookies and
// answers the status-restoration lookup. Coupon creation at the payment
// provider would plug in behind Generate.
type DiscountService struct {
	config      *config.DiscountConfig
	repo        discount.IssuedRepository
	jwtSecret   string
	clock       Clock
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker
}

// NewDiscountService creates a new discount service
func NewDiscountService(
	cfg *config.DiscountConfig,
	repo discount.IssuedRepository,
	jwtSecret string,
	clock Clock,
	logger *logging.ChanneledLogger,
	perfTracker *performance.Tracker,
) *DiscountService {
	return &DiscountService{
		config:      cfg,
		repo:        repo,
		jwtSecret:   jwtSecret,
		clock:       clock,
		logger:      logger,
		perfTracker: perfTracker,
	}
}

// Generate mints and stores a new discount.
func (s *DiscountService) Generate(ctx context.Context, req GenerateRequest) (*discount.Discount, error) {
	marker := s.perfTracker.StartOperation("generate_discount", req.SessionID)
	defer marker.Complete()

	percentOff := s.config.PercentOff
	if req.LotteryPercentOff > 0 {
		percentOff = req.LotteryPercentOff
	}

	now := s.clock.Now().UTC()
	d := discount.Discount{
		Code:       security.GenerateDiscountCode(),
		PercentOff: percentOff,
		ExpiresAt:  now.Add(s.config.Duration).Truncate(time.Second),
	}
	if err := d.Validate(); err != nil {
		marker.SetError(err)
		return nil, fmt.Errorf("refusing to issue discount: %w", err)
	}

	err := s.repo.Store(ctx, &discount.IssuedDiscount{
		Discount:    d,
		SessionID:   req.SessionID,
		Fingerprint: req.Fingerprint,
		CreatedAt:   now,
	})
	if err != nil {
		marker.SetError(err)
		s.logger.Popup().Error("Discount generation failed",
			"sessionId", logging.MaskSessionID(req.SessionID), "error", err.Error())
		return nil, fmt.Errorf("failed to issue discount: %w", err)
	}

	marker.SetSuccess(true)
	s.logger.Popup().Info("Discount issued",
		"sessionId", logging.MaskSessionID(req.SessionID),
		"code", d.Code,
		"percentOff", d.PercentOff,
		"lottery", req.LotteryPercentOff > 0,
		"expiresAt", d.ExpiresAt)
	return &d, nil
}

// Seal produces the signed token stored in the discount_code cookie.
func (s *DiscountService) Seal(d discount.Discount, sessionID string) (string, error) {
	return security.SignDiscountToken(d, sessionID, s.jwtSecret, s.clock.Now())
}

// ActiveStatus reads the secure cookies and reports the live discount, if any.
// The signed token is authoritative for code, percent and expiry; the
// repository only vetoes codes that were redeemed or never issued.
func (s *DiscountService) ActiveStatus(ctx context.Context, flags *cookies.Flags) discount.Status {
	if flags == nil {
		return discount.InactiveStatus
	}
	token, _, ok := flags.ActiveDiscount()
	if !ok {
		return discount.InactiveStatus
	}

	claims, err := security.ParseDiscountToken(token, s.jwtSecret)
	if err != nil {
		s.logger.Popup().Warn("Discarding discount cookie with bad signature", "error", err.Error())
		return discount.InactiveStatus
	}

	d := claims.Discount()
	if d.Validate() != nil || d.Expired(s.clock.Now()) {
		return discount.InactiveStatus
	}

	issued, err := s.repo.FindByCode(ctx, d.Code)
	switch {
	case errors.Is(err, discount.ErrNotFound):
		return discount.InactiveStatus
	case err != nil:
		s.logger.Popup().Warn("Redemption check unavailable, trusting signed discount",
			"code", d.Code, "error", err.Error())
	case issued.Redeemed():
		return discount.InactiveStatus
	}

	return discount.NewStatus(d)
}

// MarkRedeemed stops a code from being restored again.
func (s *DiscountService) MarkRedeemed(ctx context.Context, code string) error {
	if err := s.repo.MarkRedeemed(ctx, code, s.clock.Now()); err != nil {
		return err
	}
	s.logger.Popup().Info("Discount redeemed", "code", code)
	return nil
}

// Counts summarizes issued discounts for the admin dashboard.
func (s *DiscountService) Counts(ctx context.Context) (discount.IssuedCounts, error) {
	return s.repo.Counts(ctx, s.clock.Now())
}
