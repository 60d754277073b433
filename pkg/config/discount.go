package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// DiscountConfig holds every tunable of the discount popup. It is built once at
// startup and injected; nothing reads the environment at decision time.
type DiscountConfig struct {
	// Enabled is false when any value failed validation. A disabled config
	// makes every eligibility decision come back ineligible.
	Enabled  bool
	Problems []string

	ShowProbability  float64       // probability gate threshold, draw < p is eligible
	PercentOff       int           // percent off for non-lottery discounts
	Duration         time.Duration // lifetime of an issued discount code
	CooldownDuration time.Duration // suppression window after a probability miss
	DisplayDelay     time.Duration // wait before the first display
	ForceShow        bool          // bypass the probability gate

	LotteryMinPercent int
	LotteryMaxPercent int
	LotterySources    []string
	LotteryMediums    []string
	LotteryKeywords   []string
}

// DefaultDiscountConfig returns the documented defaults.
func DefaultDiscountConfig() *DiscountConfig {
	return &DiscountConfig{
		Enabled:           true,
		ShowProbability:   0.25,
		PercentOff:        10,
		Duration:          24 * time.Hour,
		CooldownDuration:  24 * time.Hour,
		DisplayDelay:      15 * time.Second,
		ForceShow:         false,
		LotteryMinPercent: 5,
		LotteryMaxPercent: 15,
		LotterySources:    []string{"offline", "print"},
		LotteryMediums:    []string{"qr_code", "qr", "flyer", "poster"},
		LotteryKeywords:   []string{"business", "card", "conference", "meetup"},
	}
}

// LoadDiscountConfig reads DISCOUNT_* variables through lookup (os.Getenv when nil).
// Malformed or out-of-range values disable the feature instead of failing startup.
func LoadDiscountConfig(lookup func(string) string) *DiscountConfig {
	if lookup == nil {
		loadEnvFile()
		lookup = os.Getenv
	}

	cfg := DefaultDiscountConfig()
	p := &discountParser{lookup: lookup, cfg: cfg}

	cfg.ShowProbability = p.float("DISCOUNT_SHOW_PROBABILITY", cfg.ShowProbability)
	cfg.PercentOff = p.int("DISCOUNT_PERCENT_OFF", cfg.PercentOff)
	cfg.Duration = time.Duration(p.int("DISCOUNT_DURATION_HOURS", int(cfg.Duration/time.Hour))) * time.Hour
	cfg.CooldownDuration = time.Duration(p.int("DISCOUNT_COOLDOWN_HOURS", int(cfg.CooldownDuration/time.Hour))) * time.Hour
	cfg.DisplayDelay = time.Duration(p.int("DISCOUNT_DISPLAY_DELAY_SECONDS", int(cfg.DisplayDelay/time.Second))) * time.Second
	cfg.ForceShow = p.bool("DISCOUNT_FORCE_SHOW", cfg.ForceShow)
	cfg.LotteryMinPercent = p.int("DISCOUNT_LOTTERY_MIN_PERCENT", cfg.LotteryMinPercent)
	cfg.LotteryMaxPercent = p.int("DISCOUNT_LOTTERY_MAX_PERCENT", cfg.LotteryMaxPercent)
	cfg.LotterySources = p.list("DISCOUNT_LOTTERY_SOURCES", cfg.LotterySources)
	cfg.LotteryMediums = p.list("DISCOUNT_LOTTERY_MEDIUMS", cfg.LotteryMediums)
	cfg.LotteryKeywords = p.list("DISCOUNT_LOTTERY_KEYWORDS", cfg.LotteryKeywords)

	cfg.Validate()
	return cfg
}

// Validate checks ranges and flips Enabled off when anything is wrong.
// It is safe to call more than once.
func (c *DiscountConfig) Validate() {
	check := func(ok bool, format string, args ...any) {
		if !ok {
			c.Problems = append(c.Problems, fmt.Sprintf(format, args...))
		}
	}

	check(c.ShowProbability >= 0 && c.ShowProbability <= 1, "show probability %v outside [0,1]", c.ShowProbability)
	check(c.PercentOff >= 1 && c.PercentOff <= 100, "percent off %d outside [1,100]", c.PercentOff)
	check(c.Duration > 0, "discount duration must be positive")
	check(c.CooldownDuration > 0, "cooldown duration must be positive")
	check(c.DisplayDelay >= 0, "display delay must not be negative")
	check(c.LotteryMinPercent >= 1 && c.LotteryMinPercent <= 100, "lottery min percent %d outside [1,100]", c.LotteryMinPercent)
	check(c.LotteryMaxPercent >= 1 && c.LotteryMaxPercent <= 100, "lottery max percent %d outside [1,100]", c.LotteryMaxPercent)
	check(c.LotteryMinPercent <= c.LotteryMaxPercent, "lottery min percent %d above max %d", c.LotteryMinPercent, c.LotteryMaxPercent)

	if len(c.Problems) > 0 {
		c.Enabled = false
	}
}

type discountParser struct {
	lookup func(string) string
	cfg    *DiscountConfig
}

func (p *discountParser) fail(key, raw string) {
	p.cfg.Problems = append(p.cfg.Problems, fmt.Sprintf("%s=%q is malformed", key, raw))
}

func (p *discountParser) int(key string, def int) int {
	raw := strings.TrimSpace(p.lookup(key))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		p.fail(key, raw)
		return def
	}
	return v
}

func (p *discountParser) float(key string, def float64) float64 {
	raw := strings.TrimSpace(p.lookup(key))
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		p.fail(key, raw)
		return def
	}
	return v
}

func (p *discountParser) bool(key string, def bool) bool {
	raw := strings.TrimSpace(p.lookup(key))
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		p.fail(key, raw)
		return def
	}
	return v
}

func (p *discountParser) list(key string, def []string) []string {
	raw := p.lookup(key)
	if strings.TrimSpace(raw) == "" {
		return def
	}
	return splitList(raw)
}
