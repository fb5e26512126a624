package model

import (
	"time"
)

// RunStatus describes how a whole run ended.
type RunStatus string

const (
	// RunComplete means every unit was evaluated.
	RunComplete RunStatus = "complete"
	// RunPartial means the run aborted early, either on a failed precheck
	// or on a unit failure with continue-on-error disabled.
	RunPartial RunStatus = "partial"
	// RunUserLimited means every unit was evaluated but at least one was
	// declined at its confirmation prompt.
	RunUserLimited RunStatus = "user_limited"
)

// RunSummary aggregates unit results for one orchestrator invocation.
// Results preserve declaration order regardless of individual outcomes.
type RunSummary struct {
	PlanName  string
	Results   []UnitResult
	Status    RunStatus
	Satisfied int
	Applied   int
	Declined  int
	Failed    int
	Planned   int
	Duration  time.Duration
}

// Record appends a result and updates the outcome counters.
func (s *RunSummary) Record(res UnitResult) {
	s.Results = append(s.Results, res)

	switch res.Outcome {
	case OutcomeSatisfied:
		s.Satisfied++
	case OutcomeApplied:
		s.Applied++
	case OutcomeDeclined:
		s.Declined++
	case OutcomeFailed:
		s.Failed++
	case OutcomeWouldApply:
		s.Planned++
	}
}

// Finalize computes the overall status from the recorded results. Aborted
// runs keep the status set by the orchestrator.
func (s *RunSummary) Finalize(start time.Time) {
	s.Duration = time.Since(start)
	if s.Status == RunPartial {
		return
	}
	if s.Declined > 0 {
		s.Status = RunUserLimited
		return
	}
	s.Status = RunComplete
}
