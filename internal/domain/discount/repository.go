package discount

import (
	"context"
	"time"
)

// IssuedCounts summarizes the issued discounts table.
type IssuedCounts struct {
	Issued   int `json:"issued"`
	Active   int `json:"active"`
	Redeemed int `json:"redeemed"`
}

// IssuedRepository persists discounts handed to popup sessions.
type IssuedRepository interface {
	Store(ctx context.Context, d *IssuedDiscount) error
	FindByCode(ctx context.Context, code string) (*IssuedDiscount, error)
	MarkRedeemed(ctx context.Context, code string, at time.Time) error
	Counts(ctx context.Context, now time.Time) (IssuedCounts, error)
}

// EventRepository persists analytics events.
type EventRepository interface {
	Store(ctx context.Context, e *Event) error
	CountByName(ctx context.Context) (map[EventName]int, error)
}
