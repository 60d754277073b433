package services

import (
	"math"
	"math/rand"
	"slices"
	"strings"
	"time"

	"github.com/zurichjs/conference-go/internal/domain/discount"
	"github.com/zurichjs/conference-go/internal/infrastructure/cookies"
	"github.com/zurichjs/conference-go/internal/infrastructure/observability/logging"
	"github.com/zurichjs/conference-go/internal/infrastructure/prng"
	"github.com/zurichjs/conference-go/pkg/config"
)

// Reason explains an eligibility decision.
type Reason string

const (
	ReasonDisabled           Reason = "disabled"
	ReasonStorageUnavailable Reason = "storage_unavailable"
	ReasonLottery            Reason = "lottery"
	ReasonForced             Reason = "forced"
	ReasonCooldown           Reason = "cooldown"
	ReasonDismissed          Reason = "dismissed"
	ReasonProbability        Reason = "probability"
	ReasonProbabilityMiss    Reason = "probability_miss"
	ReasonRestored           Reason = "restored"
)

// EligibilityInput carries everything one decision looks at.
type EligibilityInput struct {
	Fingerprint uint32
	UTM         discount.UTMParams
	Flags       *cookies.Flags
}

// Decision is the outcome of one eligibility evaluation.
type Decision struct {
	Eligible          bool          `json:"eligible"`
	Reason            Reason        `json:"reason"`
	Delay             time.Duration `json:"-"`
	LotteryPercentOff int           `json:"lotteryPercentOff,omitempty"`
	LotterySource     string        `json:"lotterySource,omitempty"`
	Drew              bool          `json:"-"`
	Draw              float64       `json:"-"`
}

// EligibilityService decides whether a visitor gets the popup.
type EligibilityService struct {
	config      *config.DiscountConfig
	logger      *logging.ChanneledLogger
	lotteryDraw func() float64
}

// NewEligibilityService creates a new eligibility service. The lottery
// percentage draw uses math/rand; use WithLotteryDraw to pin it.
func NewEligibilityService(cfg *config.DiscountConfig, logger *logging.ChanneledLogger) *EligibilityService {
	return &EligibilityService{
		config:      cfg,
		logger:      logger,
		lotteryDraw: rand.Float64,
	}
}

// WithLotteryDraw replaces the source of the lottery percentage draw.
func (s *EligibilityService) WithLotteryDraw(draw func() float64) *EligibilityService {
	s.lotteryDraw = draw
	return s
}

// EvaluateLottery matches the UTM parameters against the configured allow-lists.
// Source and medium match case-insensitively; the campaign must contain one of
// the keywords.
func (s *EligibilityService) EvaluateLottery(utm discount.UTMParams) discount.LotteryResult {
	if !utm.Complete() {
		return discount.LotteryResult{}
	}

	source := strings.ToLower(utm.Source)
	medium := strings.ToLower(utm.Medium)
	campaign := strings.ToLower(utm.Campaign)

	if !containsFold(s.config.LotterySources, source) || !containsFold(s.config.LotteryMediums, medium) {
		return discount.LotteryResult{}
	}
	matched := slices.ContainsFunc(s.config.LotteryKeywords, func(k string) bool {
		return k != "" && strings.Contains(campaign, strings.ToLower(k))
	})
	if !matched {
		return discount.LotteryResult{}
	}

	return discount.LotteryResult{
		Eligible:   true,
		PercentOff: s.lotteryPercent(s.lotteryDraw()),
		Source:     utm.Tag(),
	}
}

// lotteryPercent maps r in [0,1) uniformly onto the inclusive percent range.
func (s *EligibilityService) lotteryPercent(r float64) int {
	lo, hi := s.config.LotteryMinPercent, s.config.LotteryMaxPercent
	pct := lo + int(math.Floor(r*float64(hi-lo+1)))
	return min(max(pct, lo), hi)
}

func containsFold(list []string, v string) bool {
	return slices.ContainsFunc(list, func(item string) bool {
		return strings.EqualFold(strings.TrimSpace(item), v)
	})
}

// Evaluate runs the fixed-priority decision. A probability miss sets the
// cooldown flag; nothing else writes.
func (s *EligibilityService) Evaluate(in EligibilityInput) Decision {
	d := s.evaluate(in)
	s.logger.Eligibility().Info("Eligibility decided",
		"fingerprint", in.Fingerprint,
		"eligible", d.Eligible,
		"reason", d.Reason,
		"delay", d.Delay,
		"lotteryPercentOff", d.LotteryPercentOff)
	return d
}

func (s *EligibilityService) evaluate(in EligibilityInput) Decision {
	if s.config == nil || !s.config.Enabled {
		return Decision{Reason: ReasonDisabled}
	}
	flags := in.Flags
	if flags == nil || !flags.Available() {
		return Decision{Reason: ReasonStorageUnavailable}
	}

	if lottery := s.EvaluateLottery(in.UTM); lottery.Eligible {
		return Decision{
			Eligible:          true,
			Reason:            ReasonLottery,
			LotteryPercentOff: lottery.PercentOff,
			LotterySource:     lottery.Source,
		}
	}

	if s.config.ForceShow {
		return Decision{Eligible: true, Reason: ReasonForced, Delay: s.config.DisplayDelay}
	}
	if flags.Cooldown() {
		return Decision{Reason: ReasonCooldown}
	}
	if flags.Dismissed() {
		return Decision{Reason: ReasonDismissed}
	}

	draw := prng.FirstDraw(in.Fingerprint)
	if draw < s.config.ShowProbability {
		return Decision{Eligible: true, Reason: ReasonProbability, Delay: s.config.DisplayDelay, Drew: true, Draw: draw}
	}

	flags.SetCooldown(s.config.CooldownDuration)
	return Decision{Reason: ReasonProbabilityMiss, Drew: true, Draw: draw}
}
