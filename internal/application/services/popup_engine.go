package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/zurichjs/conference-go/internal/domain/countdown"
	"github.com/zurichjs/conference-go/internal/domain/discount"
	"github.com/zurichjs/conference-go/internal/infrastructure/cookies"
	"github.com/zurichjs/conference-go/internal/infrastructure/observability/logging"
	"github.com/zurichjs/conference-go/pkg/config"
)

// showEarlyAllowance absorbs skew between the browser's display timer and ours.
const showEarlyAllowance = time.Second

// StartInput is what a session start knows about the visitor.
type StartInput struct {
	Fingerprint uint32
	UTM         discount.UTMParams
	Status      discount.Status
	// CookiesDisabled is the browser reporting it will not keep cookies.
	// The session then persists nothing and is never eligible.
	CookiesDisabled bool
}

// Snapshot is the engine state handed to the HTTP layer.
type Snapshot struct {
	SessionID   string               `json:"-"`
	State       discount.State       `json:"state"`
	Eligible    bool                 `json:"eligible"`
	Reason      Reason               `json:"reason,omitempty"`
	DisplayInMs int64                `json:"displayInMs"`
	Discount    *discount.Discount   `json:"discount,omitempty"`
	Remaining   *countdown.Remaining `json:"remaining,omitempty"`
	Copied      bool                 `json:"copied"`
}

// PopupEngineDeps are the collaborators shared by every session engine.
type PopupEngineDeps struct {
	Config      *config.DiscountConfig
	Eligibility *EligibilityService
	Issuer      DiscountIssuer
	Sink        discount.AnalyticsSink
	Clock       Clock
	Logger      *logging.ChanneledLogger
}

// PopupEngine runs the popup lifecycle for one browser session. State only
// changes through discount.Next; the shown event fires on the transitions into
// a displayed discount and nowhere else.
type PopupEngine struct {
	mu        sync.Mutex
	sessionID string
	flags     *cookies.Flags
	deps      PopupEngineDeps

	started     bool
	attempted   bool
	closed      bool
	state       discount.State
	decision    *Decision
	fingerprint uint32
	discount    *discount.Discount
	copied      bool

	displayAt    time.Time
	displayTimer Timer
	expiryTimer  Timer
}

// NewPopupEngine creates an idle engine for sessionID persisting through flags.
func NewPopupEngine(sessionID string, flags *cookies.Flags, deps PopupEngineDeps) *PopupEngine {
	if deps.Clock == nil {
		deps.Clock = SystemClock()
	}
	if deps.Sink == nil {
		deps.Sink = nopSink{}
	}
	if deps.Logger == nil {
		deps.Logger = logging.NewNopLogger()
	}
	return &PopupEngine{
		sessionID: sessionID,
		flags:     flags,
		deps:      deps,
		state:     discount.StateIdle,
	}
}

type nopSink struct{}

func (nopSink) Track(discount.Event) {}

// Start runs once per session. Later calls only return the snapshot.
func (e *PopupEngine) Start(ctx context.Context, in StartInput) Snapshot {
	e.mu.Lock()
	if e.started || e.closed {
		snap := e.snapshotLocked()
		e.mu.Unlock()
		return snap
	}
	e.started = true
	e.fingerprint = in.Fingerprint
	if in.CookiesDisabled {
		e.flags = cookies.NewFlags(cookies.UnavailableStore{})
	}
	now := e.deps.Clock.Now()

	if d, ok := in.Status.Discount(now); ok {
		e.restoreLocked(d)
		snap := e.snapshotLocked()
		e.mu.Unlock()
		return snap
	}

	decision := e.deps.Eligibility.Evaluate(EligibilityInput{
		Fingerprint: in.Fingerprint,
		UTM:         in.UTM,
		Flags:       e.flags,
	})
	e.decision = &decision

	if !decision.Eligible {
		snap := e.snapshotLocked()
		e.mu.Unlock()
		return snap
	}

	if decision.Delay > 0 {
		e.displayAt = now.Add(decision.Delay)
		e.displayTimer = e.deps.Clock.AfterFunc(decision.Delay, func() {
			e.Show(context.Background())
		})
		e.log().Info("Popup display scheduled", "delay", decision.Delay, "reason", decision.Reason)
		snap := e.snapshotLocked()
		e.mu.Unlock()
		return snap
	}
	e.mu.Unlock()

	return e.Show(ctx)
}

func (e *PopupEngine) restoreLocked(d discount.Discount) {
	next, err := discount.Next(e.state, discount.TriggerRestore)
	if err != nil {
		e.log().Warn("Restore rejected", "state", e.state, "error", err.Error())
		return
	}
	e.state = next
	e.discount = &d
	e.decision = &Decision{Eligible: true, Reason: ReasonRestored}
	e.trackLocked(discount.EventPopupShown, nil, nil)
	e.scheduleExpiryLocked()
	e.log().Info("Popup restored", "code", d.Code, "expiresAt", d.ExpiresAt)
}

// Show handles a due display. Only the first call after an eligible decision
// generates; a failed generation is not retried within the session. Calls
// arriving before the scheduled display time are ignored.
func (e *PopupEngine) Show(ctx context.Context) Snapshot {
	e.mu.Lock()
	if e.closed || e.attempted || e.decision == nil || !e.decision.Eligible || e.state != discount.StateIdle {
		snap := e.snapshotLocked()
		e.mu.Unlock()
		return snap
	}
	if !e.displayAt.IsZero() && e.deps.Clock.Now().Before(e.displayAt.Add(-showEarlyAllowance)) {
		e.log().Debug("Early display request ignored", "displayAt", e.displayAt)
		snap := e.snapshotLocked()
		e.mu.Unlock()
		return snap
	}
	next, err := discount.Next(e.state, discount.TriggerDisplayDue)
	if err != nil {
		snap := e.snapshotLocked()
		e.mu.Unlock()
		return snap
	}
	e.attempted = true
	e.stopTimer(&e.displayTimer)
	e.state = next
	req := GenerateRequest{
		Fingerprint:       e.fingerprint,
		SessionID:         e.sessionID,
		LotteryPercentOff: e.decision.LotteryPercentOff,
	}
	e.mu.Unlock()

	// no lock is held across the collaborator call; a stuck call leaves the
	// engine in loading
	d, genErr := e.deps.Issuer.Generate(ctx, req)

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return e.snapshotLocked()
	}
	if genErr != nil || d == nil {
		e.state, _ = discount.Next(e.state, discount.TriggerGenerationFailed)
		if genErr != nil {
			e.log().Warn("Discount generation failed, popup stays hidden", "error", genErr.Error())
		}
		return e.snapshotLocked()
	}

	next, err = discount.Next(e.state, discount.TriggerGenerated)
	if err != nil {
		e.log().Error("Generated discount arrived in unexpected state", "state", e.state)
		return e.snapshotLocked()
	}
	e.state = next
	e.discount = d
	e.persistDiscountLocked()
	e.trackLocked(discount.EventPopupShown, nil, nil)
	e.scheduleExpiryLocked()
	e.log().Info("Popup shown", "code", d.Code, "percentOff", d.PercentOff)
	return e.snapshotLocked()
}

func (e *PopupEngine) persistDiscountLocked() {
	token, err := e.deps.Issuer.Seal(*e.discount, e.sessionID)
	if err != nil {
		e.log().Warn("Could not seal discount cookie, restoration disabled for this code", "error", err.Error())
		return
	}
	e.flags.SetActiveDiscount(token, e.discount.ExpiresAt, e.discount.Remaining(e.deps.Clock.Now()))
}

func (e *PopupEngine) scheduleExpiryLocked() {
	e.stopTimer(&e.expiryTimer)
	remaining := e.discount.Remaining(e.deps.Clock.Now())
	e.expiryTimer = e.deps.Clock.AfterFunc(remaining, func() {
		e.Tick(e.deps.Clock.Now())
	})
}

// Dismiss minimizes the open modal and remembers the dismissal.
func (e *PopupEngine) Dismiss() (Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	next, err := discount.Next(e.state, discount.TriggerDismiss)
	if err != nil {
		return e.snapshotLocked(), err
	}
	e.state = next

	remaining := e.discount.Remaining(e.deps.Clock.Now())
	e.flags.SetDismissed(remaining)
	secs := int(remaining / time.Second)
	e.trackLocked(discount.EventPopupDismissed, &secs, nil)
	e.log().Info("Popup dismissed", "remainingSeconds", secs)
	return e.snapshotLocked(), nil
}

// Reopen brings the minimized widget back to the modal.
func (e *PopupEngine) Reopen() (Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	next, err := discount.Next(e.state, discount.TriggerReopen)
	if err != nil {
		return e.snapshotLocked(), err
	}
	e.state = next
	e.trackLocked(discount.EventWidgetClicked, nil, nil)
	return e.snapshotLocked(), nil
}

// Copy tries write with the code. A failed write is swallowed and changes
// nothing; the state never changes.
func (e *PopupEngine) Copy(write func(code string) error) (Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.discount == nil || !e.state.ShowsDiscount() {
		return e.snapshotLocked(), discount.ErrNoDiscount
	}
	if write != nil {
		if err := write(e.discount.Code); err != nil {
			e.log().Debug("Clipboard write failed", "error", err.Error())
			return e.snapshotLocked(), nil
		}
	}
	e.copied = true
	secs := e.discount.RemainingSeconds(e.deps.Clock.Now())
	e.trackLocked(discount.EventCodeCopied, &secs, nil)
	return e.snapshotLocked(), nil
}

// Tick expires the discount once now reaches its expiry. It reports whether
// this call performed the expiry.
func (e *PopupEngine) Tick(now time.Time) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed || e.discount == nil || e.state.Terminal() || !e.discount.Expired(now) {
		return false
	}
	next, err := discount.Next(e.state, discount.TriggerExpire)
	if err != nil {
		return false
	}
	e.state = next
	e.stopTimer(&e.expiryTimer)
	e.flags.ClearPopupFlags()
	copied := e.copied
	e.trackLocked(discount.EventExpired, nil, &copied)
	e.log().Info("Discount expired", "code", e.discount.Code, "copied", copied)
	return true
}

// Busy reports whether the engine still has work pending: a generation in
// flight or a discount that has not expired yet. Such sessions must outlive
// idle eviction or the expiry never happens.
func (e *PopupEngine) Busy() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return false
	}
	if e.state == discount.StateLoading {
		return true
	}
	return e.discount != nil && !e.state.Terminal()
}

// Close tears down pending timers. The engine ignores all later input.
func (e *PopupEngine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.closed = true
	e.stopTimer(&e.displayTimer)
	e.stopTimer(&e.expiryTimer)
}

// Snapshot returns the current view. It never mutates state.
func (e *PopupEngine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// SessionID returns the session the engine belongs to.
func (e *PopupEngine) SessionID() string { return e.sessionID }

// Flags exposes the cookie flags the engine persists through.
func (e *PopupEngine) Flags() *cookies.Flags { return e.flags }

func (e *PopupEngine) snapshotLocked() Snapshot {
	now := e.deps.Clock.Now()
	snap := Snapshot{
		SessionID: e.sessionID,
		State:     e.state,
		Copied:    e.copied,
	}
	if e.decision != nil {
		snap.Eligible = e.decision.Eligible
		snap.Reason = e.decision.Reason
	}
	if e.displayTimer != nil && e.state == discount.StateIdle && !e.attempted {
		if wait := e.displayAt.Sub(now); wait > 0 {
			snap.DisplayInMs = wait.Milliseconds()
		}
	}
	if e.discount != nil {
		d := *e.discount
		snap.Discount = &d
		r := countdown.Until(d.ExpiresAt, now)
		snap.Remaining = &r
	}
	return snap
}

func (e *PopupEngine) trackLocked(name discount.EventName, remaining *int, copied *bool) {
	if e.discount == nil {
		return
	}
	e.deps.Sink.Track(discount.Event{
		Name:             name,
		Code:             e.discount.Code,
		SessionID:        e.sessionID,
		RemainingSeconds: remaining,
		Copied:           copied,
		OccurredAt:       e.deps.Clock.Now().UTC(),
	})
}

func (e *PopupEngine) stopTimer(t *Timer) {
	if *t != nil {
		(*t).Stop()
		*t = nil
	}
}

func (e *PopupEngine) log() *slog.Logger {
	return e.deps.Logger.WithSession(logging.ChannelPopup, e.sessionID)
}
