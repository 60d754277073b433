package services

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/zurichjs/conference-go/internal/domain/discount"
	"github.com/zurichjs/conference-go/internal/infrastructure/caching/stores"
	"github.com/zurichjs/conference-go/internal/infrastructure/cookies"
	"github.com/zurichjs/conference-go/pkg/config"
)

func (h *engineHarness) openModal(t *testing.T) {
	t.Helper()
	h.engine.Start(context.Background(), StartInput{Fingerprint: luckyFingerprint})
	h.clock.Advance(h.cfg.DisplayDelay)
	require.Equal(t, discount.StateModalOpen, h.engine.Snapshot().State)
}

func TestEngineShowsOnceAfterDelay(t *testing.T) {
	require := require.New(t)
	h := newHarness(nil)
	ctx := context.Background()

	snap := h.engine.Start(ctx, StartInput{Fingerprint: luckyFingerprint})
	require.Equal(discount.StateIdle, snap.State)
	require.True(snap.Eligible)
	require.Equal(ReasonProbability, snap.Reason)
	require.Equal(int64(15000), snap.DisplayInMs)

	h.clock.Advance(14 * time.Second)
	require.Equal(discount.StateIdle, h.engine.Snapshot().State)
	require.Zero(h.issuer.Calls())

	h.clock.Advance(time.Second)
	snap = h.engine.Snapshot()
	require.Equal(discount.StateModalOpen, snap.State)
	require.NotNil(snap.Discount)
	require.Equal("JSC-TEST0001", snap.Discount.Code)
	require.Equal(1, snap.Remaining.Days)

	// re-rendering never re-fires the shown event or regenerates
	h.engine.Start(ctx, StartInput{Fingerprint: luckyFingerprint})
	h.engine.Show(ctx)
	h.engine.Snapshot()
	require.Equal(1, h.issuer.Calls())
	require.Len(h.sink.Named(discount.EventPopupShown), 1)

	token, expiresAt, ok := h.flags.ActiveDiscount()
	require.True(ok)
	require.Equal("sealed:JSC-TEST0001", token)
	require.True(snap.Discount.ExpiresAt.Truncate(time.Second).Equal(expiresAt))
}

func TestEngineIneligibleSetsCooldownOnly(t *testing.T) {
	require := require.New(t)
	h := newHarness(nil)

	snap := h.engine.Start(context.Background(), StartInput{Fingerprint: unluckyFingerprint})
	require.False(snap.Eligible)
	require.Equal(ReasonProbabilityMiss, snap.Reason)
	require.True(h.flags.Cooldown())
	require.Zero(h.clock.Pending())

	h.clock.Advance(time.Hour)
	require.Equal(discount.StateIdle, h.engine.Snapshot().State)
	require.Zero(h.issuer.Calls())
	require.Empty(h.sink.events)
}

func TestEngineLotteryShowsImmediately(t *testing.T) {
	require := require.New(t)
	h := newHarness(nil)
	h.flags.SetCooldown(h.cfg.CooldownDuration)

	snap := h.engine.Start(context.Background(), StartInput{
		Fingerprint: unluckyFingerprint,
		UTM:         discount.UTMParams{Source: "print", Medium: "flyer", Campaign: "meetup_march"},
	})
	require.Equal(discount.StateModalOpen, snap.State)
	require.Equal(ReasonLottery, snap.Reason)
	require.Equal(5, snap.Discount.PercentOff)
	require.Equal(5, h.issuer.calls[0].LotteryPercentOff)
	require.Len(h.sink.Named(discount.EventPopupShown), 1)
}

func TestEngineDismiss(t *testing.T) {
	require := require.New(t)
	h := newHarness(nil)
	h.openModal(t)

	h.clock.Advance(time.Hour)
	snap, err := h.engine.Dismiss()
	require.NoError(err)
	require.Equal(discount.StateMinimized, snap.State)
	require.True(h.flags.Dismissed())

	dismissed := h.sink.Named(discount.EventPopupDismissed)
	require.Len(dismissed, 1)
	require.Equal(23*3600, *dismissed[0].RemainingSeconds)
	require.Equal("JSC-TEST0001", dismissed[0].Code)

	_, err = h.engine.Dismiss()
	require.ErrorIs(err, discount.ErrInvalidTransition)
	require.Len(h.sink.Named(discount.EventPopupDismissed), 1)
}

func TestEngineReopen(t *testing.T) {
	require := require.New(t)
	h := newHarness(nil)
	h.openModal(t)

	_, err := h.engine.Reopen()
	require.ErrorIs(err, discount.ErrInvalidTransition)

	_, err = h.engine.Dismiss()
	require.NoError(err)
	snap, err := h.engine.Reopen()
	require.NoError(err)
	require.Equal(discount.StateModalOpen, snap.State)
	require.Len(h.sink.Named(discount.EventWidgetClicked), 1)
}

func TestEngineExpiresWhileMinimized(t *testing.T) {
	require := require.New(t)
	h := newHarness(nil)
	h.openModal(t)

	_, err := h.engine.Dismiss()
	require.NoError(err)
	h.flags.SetCooldown(h.cfg.CooldownDuration)
	h.jar.Flush(httptest.NewRecorder())

	h.clock.Advance(h.cfg.Duration)

	snap := h.engine.Snapshot()
	require.Equal(discount.StateExpired, snap.State)
	require.True(snap.Remaining.IsComplete)
	require.False(h.flags.Cooldown())
	require.False(h.flags.Dismissed())

	rec := httptest.NewRecorder()
	h.jar.Flush(rec)
	headers := strings.Join(rec.Header().Values("Set-Cookie"), "\n")
	require.Contains(headers, cookies.CooldownName+"=; Path=/; Max-Age=0")
	require.Contains(headers, cookies.DismissedName+"=; Path=/; Max-Age=0")

	expired := h.sink.Named(discount.EventExpired)
	require.Len(expired, 1)
	require.False(*expired[0].Copied)

	require.False(h.engine.Tick(h.clock.Now().Add(time.Hour)), "expired is terminal")
	_, err = h.engine.Reopen()
	require.ErrorIs(err, discount.ErrInvalidTransition)
}

func TestEngineCopy(t *testing.T) {
	require := require.New(t)
	h := newHarness(nil)

	_, err := h.engine.Copy(func(string) error { return nil })
	require.ErrorIs(err, discount.ErrNoDiscount)

	h.openModal(t)

	snap, err := h.engine.Copy(func(string) error { return errClipboard })
	require.NoError(err)
	require.False(snap.Copied)
	require.Empty(h.sink.Named(discount.EventCodeCopied))

	var written string
	snap, err = h.engine.Copy(func(code string) error { written = code; return nil })
	require.NoError(err)
	require.True(snap.Copied)
	require.Equal(discount.StateModalOpen, snap.State)
	require.Equal("JSC-TEST0001", written)

	copied := h.sink.Named(discount.EventCodeCopied)
	require.Len(copied, 1)
	require.Equal(24*3600, *copied[0].RemainingSeconds)

	h.clock.Advance(h.cfg.Duration)
	require.True(*h.sink.Named(discount.EventExpired)[0].Copied)
}

func TestEngineGenerationFailureDoesNotRetry(t *testing.T) {
	require := require.New(t)
	h := newHarness(nil)
	h.issuer.fail = errors.New("coupon service down")

	h.engine.Start(context.Background(), StartInput{Fingerprint: luckyFingerprint})
	h.clock.Advance(h.cfg.DisplayDelay)

	snap := h.engine.Snapshot()
	require.Equal(discount.StateIdle, snap.State)
	require.Nil(snap.Discount)

	h.engine.Show(context.Background())
	h.clock.Advance(time.Hour)
	require.Equal(1, h.issuer.Calls())
	require.Empty(h.sink.events)
	_, _, ok := h.flags.ActiveDiscount()
	require.False(ok)
}

func TestEngineRestoresActiveDiscount(t *testing.T) {
	require := require.New(t)
	h := newHarness(nil)

	active := discount.NewStatus(discount.Discount{
		Code: "JSC-RESTORED", PercentOff: 12, ExpiresAt: testStart.Add(2 * time.Hour),
	})
	snap := h.engine.Start(context.Background(), StartInput{Fingerprint: unluckyFingerprint, Status: active})

	require.Equal(discount.StateMinimized, snap.State)
	require.Equal(ReasonRestored, snap.Reason)
	require.Equal("JSC-RESTORED", snap.Discount.Code)
	require.Zero(h.issuer.Calls())
	require.False(h.flags.Cooldown(), "restoration skips the gate")
	require.Len(h.sink.Named(discount.EventPopupShown), 1)

	h.engine.Start(context.Background(), StartInput{Fingerprint: unluckyFingerprint, Status: active})
	require.Len(h.sink.Named(discount.EventPopupShown), 1)

	h.clock.Advance(2 * time.Hour)
	require.Equal(discount.StateExpired, h.engine.Snapshot().State)
}

func TestEngineIgnoresExpiredStatus(t *testing.T) {
	require := require.New(t)
	h := newHarness(nil)

	stale := discount.NewStatus(discount.Discount{
		Code: "JSC-STALE001", PercentOff: 10, ExpiresAt: testStart.Add(-time.Minute),
	})
	snap := h.engine.Start(context.Background(), StartInput{Fingerprint: luckyFingerprint, Status: stale})
	require.Equal(discount.StateIdle, snap.State)
	require.Equal(ReasonProbability, snap.Reason)
}

func TestEngineCloseStopsTimers(t *testing.T) {
	require := require.New(t)
	h := newHarness(nil)

	h.engine.Start(context.Background(), StartInput{Fingerprint: luckyFingerprint})
	require.Equal(1, h.clock.Pending())

	h.engine.Close()
	require.Zero(h.clock.Pending())

	h.clock.Advance(time.Minute)
	require.Zero(h.issuer.Calls())
	require.Equal(discount.StateIdle, h.engine.Snapshot().State)
}

func TestEngineForceShowWithZeroDelay(t *testing.T) {
	require := require.New(t)
	h := newHarness(func(cfg *config.DiscountConfig) {
		cfg.ForceShow = true
		cfg.DisplayDelay = 0
	})

	snap := h.engine.Start(context.Background(), StartInput{Fingerprint: unluckyFingerprint})
	require.Equal(discount.StateModalOpen, snap.State)
	require.Equal(ReasonForced, snap.Reason)
	require.Equal(10, snap.Discount.PercentOff)
}

func TestEngineDisabledConfig(t *testing.T) {
	require := require.New(t)
	h := newHarness(func(cfg *config.DiscountConfig) {
		cfg.ShowProbability = 2
		cfg.Validate()
	})

	snap := h.engine.Start(context.Background(), StartInput{Fingerprint: luckyFingerprint})
	require.Equal(ReasonDisabled, snap.Reason)
	require.Equal(discount.StateIdle, snap.State)
	require.Zero(h.clock.Pending())
}

func TestEngineCookiesDisabledNeverEligible(t *testing.T) {
	require := require.New(t)
	h := newHarness(func(cfg *config.DiscountConfig) { cfg.ForceShow = true })

	snap := h.engine.Start(context.Background(), StartInput{Fingerprint: luckyFingerprint, CookiesDisabled: true})
	require.False(snap.Eligible)
	require.Equal(ReasonStorageUnavailable, snap.Reason)
	require.Zero(h.clock.Pending())
	require.Zero(h.jar.Pending())
}

func TestEngineIgnoresEarlyShow(t *testing.T) {
	require := require.New(t)
	h := newHarness(nil)
	ctx := context.Background()

	h.engine.Start(ctx, StartInput{Fingerprint: luckyFingerprint})
	h.clock.Advance(5 * time.Second)

	snap := h.engine.Show(ctx)
	require.Equal(discount.StateIdle, snap.State)
	require.Equal(int64(10000), snap.DisplayInMs)
	require.Zero(h.issuer.Calls())

	// a browser timer running slightly ahead is still honoured
	h.clock.Advance(9500 * time.Millisecond)
	snap = h.engine.Show(ctx)
	require.Equal(discount.StateModalOpen, snap.State)

	h.clock.Advance(time.Second)
	require.Equal(1, h.issuer.Calls())
	require.Len(h.sink.Named(discount.EventPopupShown), 1)
}

func TestEngineStuckGenerationStaysLoading(t *testing.T) {
	require := require.New(t)
	h := newHarness(func(cfg *config.DiscountConfig) {
		cfg.ForceShow = true
		cfg.DisplayDelay = 0
	})
	issuer := &blockingIssuer{fakeIssuer: h.issuer, entered: make(chan struct{}, 4)}
	h.useIssuer(issuer)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan Snapshot, 1)
	go func() {
		done <- h.engine.Start(ctx, StartInput{Fingerprint: luckyFingerprint})
	}()
	<-issuer.entered

	// nothing times the call out; the engine waits in loading
	h.clock.Advance(time.Hour)
	h.engine.Show(context.Background())
	snap := h.engine.Snapshot()
	require.Equal(discount.StateLoading, snap.State)
	require.Nil(snap.Discount)
	require.True(h.engine.Busy())
	require.Equal(1, issuer.Calls())

	cancel()
	snap = <-done
	require.Equal(discount.StateIdle, snap.State)
	require.False(h.engine.Busy())

	h.engine.Show(context.Background())
	require.Equal(1, issuer.Calls(), "a failed generation is not retried")
	require.Empty(h.sink.Named(discount.EventPopupShown))
}

func TestIdleEvictionWaitsForDiscountExpiry(t *testing.T) {
	require := require.New(t)
	h := newHarness(nil)
	h.openModal(t)

	_, err := h.engine.Dismiss()
	require.NoError(err)
	h.flags.SetCooldown(h.cfg.CooldownDuration)

	store := stores.NewSessionsStore[*PopupEngine](nil, h.clock.Now)
	store.GetOrCreate(h.engine.SessionID(), func() (*PopupEngine, *cookies.Jar) {
		return h.engine, h.jar
	})

	h.clock.Advance(2*time.Hour + time.Minute)
	require.True(h.engine.Busy())
	require.Zero(store.EvictIdle(2 * time.Hour))
	require.Equal(1, store.Len())

	h.clock.Advance(h.cfg.Duration)
	require.Equal(discount.StateExpired, h.engine.Snapshot().State)
	require.Len(h.sink.Named(discount.EventExpired), 1)
	require.False(h.flags.Cooldown())
	require.False(h.flags.Dismissed())

	require.False(h.engine.Busy())
	require.Equal(1, store.EvictIdle(2*time.Hour))
	require.Zero(store.Len())
}
