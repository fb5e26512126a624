package model

import (
	"time"
)

// Outcome classifies what happened to a single unit during a run.
type Outcome string

const (
	// OutcomeSatisfied indicates the guard found the unit's effect already
	// present, so apply was skipped.
	OutcomeSatisfied Outcome = "satisfied"
	// OutcomeApplied indicates the unit's apply action ran successfully.
	OutcomeApplied Outcome = "applied"
	// OutcomeDeclined indicates the user answered no at the confirmation
	// prompt. Not an error.
	OutcomeDeclined Outcome = "declined"
	// OutcomeFailed indicates the apply action raised an error.
	OutcomeFailed Outcome = "failed"
	// OutcomeWouldApply indicates a dry run determined the unit needs
	// applying but nothing was changed.
	OutcomeWouldApply Outcome = "would_apply"
)

// Evaluation is the result of running a unit's guard against the live
// system. Guards are strictly read-only; Internal carries opaque data from
// the guard to the apply step to avoid recomputation.
type Evaluation struct {
	UnitID    string
	Satisfied bool
	Message   string
	Diff      string
	Internal  any
}

// UnitResult captures the outcome of executing a single unit.
type UnitResult struct {
	UnitID    string
	Outcome   Outcome
	Message   string
	Output    string
	Error     error
	Duration  time.Duration
	Timestamp time.Time
}

// Failed reports whether the unit ended in failure.
func (r UnitResult) Failed() bool {
	return r.Outcome == OutcomeFailed
}
