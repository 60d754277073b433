// Package discount defines the discount popup domain: issued discounts, the
// popup lifecycle, UTM lottery inputs and analytics events. Persistence details
// live behind the repository interfaces declared here.
package discount

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned by repositories when no row matches.
	ErrNotFound = errors.New("discount not found")
	// ErrNoDiscount is returned when an operation needs a live discount and the session has none.
	ErrNoDiscount = errors.New("no active discount")
)

// Discount is an issued popup discount. It is immutable once issued.
type Discount struct {
	Code       string    `json:"code"`
	ExpiresAt  time.Time `json:"expiresAt"`
	PercentOff int       `json:"percentOff"`
}

// Expired reports whether the discount is no longer valid at now.
func (d Discount) Expired(now time.Time) bool {
	return !now.Before(d.ExpiresAt)
}

// Remaining returns the time left until expiry, never negative.
func (d Discount) Remaining(now time.Time) time.Duration {
	if left := d.ExpiresAt.Sub(now); left > 0 {
		return left
	}
	return 0
}

// RemainingSeconds returns whole seconds left until expiry.
func (d Discount) RemainingSeconds(now time.Time) int {
	return int(d.Remaining(now) / time.Second)
}

// Apply returns price reduced by the discount, rounded to cents.
func (d Discount) Apply(price decimal.Decimal) decimal.Decimal {
	factor := decimal.NewFromInt(int64(100 - d.PercentOff)).Div(decimal.NewFromInt(100))
	return price.Mul(factor).Round(2)
}

// Validate checks the invariants of an issued discount.
func (d Discount) Validate() error {
	if strings.TrimSpace(d.Code) == "" {
		return errors.New("discount code is empty")
	}
	if d.PercentOff < 1 || d.PercentOff > 100 {
		return fmt.Errorf("percent off %d outside [1,100]", d.PercentOff)
	}
	if d.ExpiresAt.IsZero() {
		return errors.New("discount expiry is missing")
	}
	return nil
}

// IssuedDiscount is the stored record of a discount handed to a session.
type IssuedDiscount struct {
	Discount
	SessionID   string     `json:"sessionId"`
	Fingerprint uint32     `json:"fingerprint"`
	CreatedAt   time.Time  `json:"createdAt"`
	RedeemedAt  *time.Time `json:"redeemedAt,omitempty"`
}

// Redeemed reports whether checkout already consumed the code.
func (d IssuedDiscount) Redeemed() bool {
	return d.RedeemedAt != nil
}

// Status is the answer of the status-restoration lookup.
type Status struct {
	Active     bool       `json:"active"`
	Code       string     `json:"code,omitempty"`
	ExpiresAt  *time.Time `json:"expiresAt,omitempty"`
	PercentOff int        `json:"percentOff,omitempty"`
}

// InactiveStatus is the zero answer.
var InactiveStatus = Status{}

// NewStatus builds an active status from a discount.
func NewStatus(d Discount) Status {
	expiresAt := d.ExpiresAt
	return Status{Active: true, Code: d.Code, ExpiresAt: &expiresAt, PercentOff: d.PercentOff}
}

// Discount returns the discount described by an active, unexpired status.
func (s Status) Discount(now time.Time) (Discount, bool) {
	if !s.Active || s.Code == "" || s.ExpiresAt == nil || s.PercentOff < 1 || s.PercentOff > 100 {
		return Discount{}, false
	}
	d := Discount{Code: s.Code, ExpiresAt: *s.ExpiresAt, PercentOff: s.PercentOff}
	if d.Expired(now) {
		return Discount{}, false
	}
	return d, true
}

// UTMParams are the campaign parameters read from the page query string.
type UTMParams struct {
	Source   string `json:"utmSource,omitempty"`
	Medium   string `json:"utmMedium,omitempty"`
	Campaign string `json:"utmCampaign,omitempty"`
}

// UTMFromQuery extracts utm_source, utm_medium and utm_campaign.
func UTMFromQuery(q url.Values) UTMParams {
	return UTMParams{
		Source:   strings.TrimSpace(q.Get("utm_source")),
		Medium:   strings.TrimSpace(q.Get("utm_medium")),
		Campaign: strings.TrimSpace(q.Get("utm_campaign")),
	}
}

// UTMFromRawQuery parses a raw query string, tolerating a leading "?".
// Malformed input yields empty params.
func UTMFromRawQuery(raw string) UTMParams {
	q, err := url.ParseQuery(strings.TrimPrefix(raw, "?"))
	if err != nil {
		return UTMParams{}
	}
	return UTMFromQuery(q)
}

// Complete reports whether all three parameters are present.
func (u UTMParams) Complete() bool {
	return u.Source != "" && u.Medium != "" && u.Campaign != ""
}

// Tag encodes the three values for the lottery source field.
func (u UTMParams) Tag() string {
	return fmt.Sprintf("utm:%s/%s/%s", u.Source, u.Medium, u.Campaign)
}

// LotteryResult is the outcome of matching UTM parameters against the lottery rules.
type LotteryResult struct {
	Eligible   bool   `json:"eligible"`
	PercentOff int    `json:"percentOff"`
	Source     string `json:"source,omitempty"`
}
