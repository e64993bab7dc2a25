package service

import (
	"errors"
	"fmt"
)

// Phase is where a workflow stands between setup and submission.
type Phase string

const (
	PhaseSetup      Phase = "setup"
	PhaseScanning   Phase = "scanning"
	PhaseValidating Phase = "validating"
	PhaseSelecting  Phase = "selecting"
	PhaseConfirming Phase = "confirming"
	PhaseSubmitting Phase = "submitting"
	PhaseDone       Phase = "done"
)

// ErrInvalidTransition is returned when an action does not fit the current phase.
var ErrInvalidTransition = errors.New("invalid phase transition")

var transitions = map[Phase][]Phase{
	PhaseSetup:      {PhaseValidating, PhaseConfirming, PhaseScanning},
	PhaseValidating: {PhaseSetup, PhaseScanning, PhaseSelecting, PhaseConfirming},
	PhaseScanning:   {PhaseValidating, PhaseConfirming, PhaseSubmitting, PhaseSetup},
	PhaseSelecting:  {PhaseValidating, PhaseScanning, PhaseConfirming},
	PhaseConfirming: {PhaseSetup, PhaseScanning, PhaseSelecting, PhaseSubmitting, PhaseValidating, PhaseDone},
	PhaseSubmitting: {PhaseScanning, PhaseConfirming, PhaseDone},
	PhaseDone:       {PhaseSetup},
}

// CanTransition reports whether from may move to to. Staying put is always allowed.
func CanTransition(from, to Phase) bool {
	if from == to {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type phaseMachine struct {
	current Phase
}

func (m *phaseMachine) to(next Phase) error {
	if !CanTransition(m.current, next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, m.current, next)
	}
	m.current = next
	return nil
}
