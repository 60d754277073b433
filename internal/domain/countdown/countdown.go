// Package countdown decomposes the time left until a discount expires and
// drives a one-second watcher over it.
package countdown

import (
	"context"
	"time"
)

// Remaining is the decomposed time left until a target instant.
type Remaining struct {
	Days       int   `json:"days"`
	Hours      int   `json:"hours"`
	Minutes    int   `json:"minutes"`
	Seconds    int   `json:"seconds"`
	TotalMs    int64 `json:"totalMs"`
	IsComplete bool  `json:"isComplete"`
}

// Complete is the zeroed result for a target that has passed.
var Complete = Remaining{IsComplete: true}

// Until decomposes target-now with floor division.
func Until(target, now time.Time) Remaining {
	totalMs := target.Sub(now).Milliseconds()
	if totalMs <= 0 {
		return Complete
	}
	totalSeconds := totalMs / 1000
	return Remaining{
		Days:    int(totalSeconds / 86400),
		Hours:   int(totalSeconds / 3600 % 24),
		Minutes: int(totalSeconds / 60 % 60),
		Seconds: int(totalSeconds % 60),
		TotalMs: totalMs,
	}
}

// TimeRemaining parses an ISO-8601 target. An unparseable target counts as complete.
func TimeRemaining(targetISO string, now time.Time) Remaining {
	target, err := time.Parse(time.RFC3339Nano, targetISO)
	if err != nil {
		return Complete
	}
	return Until(target, now)
}

// Watch recomputes the remaining time on every tick and hands it to onTick.
// It returns the last value once the countdown completes, the ticks channel
// closes or ctx ends. No tick is consumed after completion.
func Watch(ctx context.Context, target time.Time, ticks <-chan time.Time, onTick func(Remaining)) Remaining {
	var last Remaining
	for {
		select {
		case <-ctx.Done():
			return last
		case now, ok := <-ticks:
			if !ok {
				return last
			}
			last = Until(target, now)
			if onTick != nil {
				onTick(last)
			}
			if last.IsComplete {
				return last
			}
		}
	}
}
