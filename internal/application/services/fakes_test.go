package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/zurichjs/conference-go/internal/domain/discount"
	"github.com/zurichjs/conference-go/internal/infrastructure/cookies"
	"github.com/zurichjs/conference-go/internal/infrastructure/observability/logging"
	"github.com/zurichjs/conference-go/pkg/config"
)

var testStart = time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)

type fakeIssuer struct {
	mu    sync.Mutex
	clock Clock
	ttl   time.Duration
	fail  error
	calls []GenerateRequest
}

func (f *fakeIssuer) Generate(_ context.Context, req GenerateRequest) (*discount.Discount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	if f.fail != nil {
		return nil, f.fail
	}
	pct := 10
	if req.LotteryPercentOff > 0 {
		pct = req.LotteryPercentOff
	}
	return &discount.Discount{Code: "JSC-TEST0001", PercentOff: pct, ExpiresAt: f.clock.Now().Add(f.ttl)}, nil
}

func (f *fakeIssuer) Seal(d discount.Discount, _ string) (string, error) {
	return "sealed:" + d.Code, nil
}

func (f *fakeIssuer) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// blockingIssuer never answers on its own; Generate returns once ctx ends.
type blockingIssuer struct {
	*fakeIssuer
	entered chan struct{}
}

func (b *blockingIssuer) Generate(ctx context.Context, req GenerateRequest) (*discount.Discount, error) {
	b.mu.Lock()
	b.calls = append(b.calls, req)
	b.mu.Unlock()
	b.entered <- struct{}{}
	<-ctx.Done()
	return nil, ctx.Err()
}

type recordingSink struct {
	mu     sync.Mutex
	events []discount.Event
}

func (r *recordingSink) Track(e discount.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingSink) Named(name discount.EventName) []discount.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []discount.Event
	for _, e := range r.events {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}

type engineHarness struct {
	cfg    *config.DiscountConfig
	clock  *ManualClock
	issuer *fakeIssuer
	sink   *recordingSink
	jar    *cookies.Jar
	flags  *cookies.Flags
	engine *PopupEngine
}

func newHarness(mutate func(cfg *config.DiscountConfig)) *engineHarness {
	cfg := config.DefaultDiscountConfig()
	if mutate != nil {
		mutate(cfg)
	}
	clock := NewManualClock(testStart)
	h := &engineHarness{
		cfg:    cfg,
		clock:  clock,
		issuer: &fakeIssuer{clock: clock, ttl: cfg.Duration},
		sink:   &recordingSink{},
		jar:    cookies.NewJar(false, clock.Now),
	}
	h.flags = cookies.NewFlags(h.jar)
	h.useIssuer(h.issuer)
	return h
}

// useIssuer rebuilds the engine around issuer.
func (h *engineHarness) useIssuer(issuer DiscountIssuer) {
	logger := logging.NewNopLogger()
	h.engine = NewPopupEngine("01JSESSIONTESTID", h.flags, PopupEngineDeps{
		Config:      h.cfg,
		Eligibility: NewEligibilityService(h.cfg, logger).WithLotteryDraw(func() float64 { return 0 }),
		Issuer:      issuer,
		Sink:        h.sink,
		Clock:       h.clock,
		Logger:      logger,
	})
}

var errClipboard = errors.New("clipboard denied")

// Fingerprints whose first mulberry32 draw lands on either side of 0.25.
const (
	luckyFingerprint   uint32 = 7 // 0.0117
	unluckyFingerprint uint32 = 2 // 0.7343
)
