package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/zurichjs/conference-go/internal/domain/discount"
	"github.com/zurichjs/conference-go/internal/infrastructure/cookies"
	"github.com/zurichjs/conference-go/internal/infrastructure/email"
	"github.com/zurichjs/conference-go/internal/infrastructure/email/templates"
	"github.com/zurichjs/conference-go/internal/infrastructure/observability/logging"
)

var (
	ErrEmailDisabled = errors.New("email delivery is not configured")
	ErrInvalidEmail  = errors.New("invalid email address")
)

// StatusSource answers which discount a session may email to itself.
type StatusSource interface {
	ActiveStatus(ctx context.Context, flags *cookies.Flags) discount.Status
}

// EmailService sends a session its own active discount code.
type EmailService struct {
	sender      email.Service
	status      StatusSource
	clock       Clock
	ticketsURL  string
	ticketPrice *decimal.Decimal
	logger      *logging.ChanneledLogger
}

// NewEmailService creates a new email service. sender may be nil, which
// disables delivery. An unparseable ticket price drops the price preview.
func NewEmailService(sender email.Service, status StatusSource, clock Clock, ticketsURL, ticketPrice string, logger *logging.ChanneledLogger) *EmailService {
	s := &EmailService{
		sender:     sender,
		status:     status,
		clock:      clock,
		ticketsURL: ticketsURL,
		logger:     logger,
	}
	if ticketPrice != "" {
		if price, err := decimal.NewFromString(ticketPrice); err == nil && price.IsPositive() {
			s.ticketPrice = &price
		} else {
			logger.Email().Warn("Ignoring malformed TICKET_PRICE", "value", ticketPrice)
		}
	}
	return s
}

// Enabled reports whether a sender is configured.
func (s *EmailService) Enabled() bool { return s.sender != nil }

// PricePreview returns the discounted ticket price, when a price is configured.
func (s *EmailService) PricePreview(d discount.Discount) (before, after decimal.Decimal, ok bool) {
	if s.ticketPrice == nil {
		return decimal.Zero, decimal.Zero, false
	}
	return *s.ticketPrice, d.Apply(*s.ticketPrice), true
}

// SendDiscountCode emails the active discount stored in the session cookies.
func (s *EmailService) SendDiscountCode(ctx context.Context, to string, flags *cookies.Flags) (discount.Discount, error) {
	if s.sender == nil {
		return discount.Discount{}, ErrEmailDisabled
	}
	addr, err := mail.ParseAddress(strings.TrimSpace(to))
	if err != nil {
		return discount.Discount{}, fmt.Errorf("%w: %v", ErrInvalidEmail, err)
	}

	d, ok := s.status.ActiveStatus(ctx, flags).Discount(s.clock.Now())
	if !ok {
		return discount.Discount{}, discount.ErrNoDiscount
	}

	props := templates.DiscountCodeEmailProps{
		Code:       d.Code,
		PercentOff: d.PercentOff,
		ExpiresAt:  d.ExpiresAt,
		TicketsURL: s.ticketsURL,
	}
	if before, after, ok := s.PricePreview(d); ok {
		props.DiscountedFrom = fmt.Sprintf("Your ticket: CHF %s instead of CHF %s.", after.StringFixed(2), before.StringFixed(2))
	}

	if err := s.sender.Send(email.DiscountCodeMessage(addr.Address, props)); err != nil {
		s.logger.Email().Error("Discount code email failed", "to", logging.MaskEmail(addr.Address), "error", err.Error())
		return discount.Discount{}, err
	}

	s.logger.Email().Info("Discount code emailed", "to", logging.MaskEmail(addr.Address), "code", d.Code)
	return d, nil
}
