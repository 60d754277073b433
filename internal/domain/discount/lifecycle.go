package discount

import (
	"errors"
	"fmt"
)

// State is the visible state of the popup widget.
type State string

const (
	StateIdle      State = "idle"
	StateLoading   State = "loading"
	StateModalOpen State = "modal_open"
	StateMinimized State = "minimized"
	StateExpired   State = "expired"
)

// Trigger drives a lifecycle transition.
type Trigger string

const (
	TriggerDisplayDue       Trigger = "display_due"
	TriggerGenerated        Trigger = "generated"
	TriggerGenerationFailed Trigger = "generation_failed"
	TriggerDismiss          Trigger = "dismiss"
	TriggerReopen           Trigger = "reopen"
	TriggerExpire           Trigger = "expire"
	TriggerRestore          Trigger = "restore"
)

// ErrInvalidTransition is returned for any move outside the transition table.
var ErrInvalidTransition = errors.New("invalid popup transition")

var transitions = map[State]map[Trigger]State{
	StateIdle: {
		TriggerDisplayDue: StateLoading,
		TriggerGenerated:  StateModalOpen,
		TriggerRestore:    StateMinimized,
		TriggerExpire:     StateExpired,
	},
	StateLoading: {
		TriggerGenerated:        StateModalOpen,
		TriggerGenerationFailed: StateIdle,
		TriggerExpire:           StateExpired,
	},
	StateModalOpen: {
		TriggerDismiss: StateMinimized,
		TriggerExpire:  StateExpired,
	},
	StateMinimized: {
		TriggerReopen: StateModalOpen,
		TriggerExpire: StateExpired,
	},
}

// Next returns the state reached from s on trigger t.
func Next(s State, t Trigger) (State, error) {
	if next, ok := transitions[s][t]; ok {
		return next, nil
	}
	return s, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, s, t)
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return len(transitions[s]) == 0
}

// ShowsDiscount reports whether the widget displays the code in s.
func (s State) ShowsDiscount() bool {
	return s == StateModalOpen || s == StateMinimized
}
