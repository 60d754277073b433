package discount

import "time"

// EventName identifies an analytics event.
type EventName string

const (
	EventPopupShown     EventName = "discount_popup_shown"
	EventPopupDismissed EventName = "discount_popup_dismissed"
	EventWidgetClicked  EventName = "discount_widget_clicked"
	EventCodeCopied     EventName = "discount_code_copied"
	EventExpired        EventName = "discount_expired"
)

// EventNames lists every event in a stable order.
var EventNames = []EventName{
	EventPopupShown, EventPopupDismissed, EventWidgetClicked, EventCodeCopied, EventExpired,
}

// Event is one analytics emission. RemainingSeconds and Copied are set only
// for the events that carry them.
type Event struct {
	ID               string    `json:"id"`
	Name             EventName `json:"name"`
	Code             string    `json:"code"`
	SessionID        string    `json:"sessionId"`
	RemainingSeconds *int      `json:"remainingSeconds,omitempty"`
	Copied           *bool     `json:"copied,omitempty"`
	OccurredAt       time.Time `json:"occurredAt"`
}

// AnalyticsSink receives events fire-and-forget. Implementations must not block
// and must not report failures back to the caller.
type AnalyticsSink interface {
	Track(event Event)
}
