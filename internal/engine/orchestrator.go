package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/provd/provd/internal/config"
	"github.com/provd/provd/internal/logger"
	"github.com/provd/provd/internal/model"
	"github.com/provd/provd/internal/prompt"
	"github.com/provd/provd/internal/system"
	"github.com/provd/provd/internal/unit"
	provderrors "github.com/provd/provd/pkg/errors"
)

// Options control one orchestrator run.
type Options struct {
	// AssumeYes applies every unit without confirmation prompts.
	AssumeYes bool
	// DryRun evaluates guards and reports planned actions without applying.
	DryRun bool
	// ContinueOnError proceeds to the next unit after a failure instead of
	// aborting the run.
	ContinueOnError bool
}

// Orchestrator runs a plan's units in declaration order, one at a time.
// Each unit's guard re-queries the live system; nothing is cached between
// units because later guards may depend on earlier side effects.
type Orchestrator struct {
	sys       system.System
	registry  *unit.Registry
	confirmer prompt.Confirmer
	log       *logger.Logger

	// OnResult, when set, observes each unit result as it is recorded.
	OnResult func(model.UnitResult)
}

// New creates an orchestrator.
func New(sys system.System, registry *unit.Registry, confirmer prompt.Confirmer, log *logger.Logger) *Orchestrator {
	return &Orchestrator{
		sys:       sys,
		registry:  registry,
		confirmer: confirmer,
		log:       log,
	}
}

// Run executes the plan and returns the run summary. The returned error is
// non-nil only when the run aborted: a failed precheck, a cancelled
// context, or a unit failure with ContinueOnError disabled. Unit failures
// that the run continued past are reported through the summary alone.
func (o *Orchestrator) Run(ctx context.Context, plan *config.Plan, opts Options) (*model.RunSummary, error) {
	start := time.Now()
	summary := &model.RunSummary{PlanName: plan.Name}

	if err := o.precheck(); err != nil {
		summary.Status = model.RunPartial
		summary.Finalize(start)
		return summary, err
	}

	for i := range plan.Units {
		if err := ctx.Err(); err != nil {
			summary.Status = model.RunPartial
			summary.Finalize(start)
			return summary, err
		}

		u := &plan.Units[i]
		res := o.runUnit(ctx, u, opts)
		summary.Record(res)
		if o.OnResult != nil {
			o.OnResult(res)
		}

		if res.Failed() && !opts.ContinueOnError {
			summary.Status = model.RunPartial
			summary.Finalize(start)
			return summary, res.Error
		}
	}

	summary.Finalize(start)
	return summary, nil
}

// precheck verifies the irrecoverable preconditions once, before any unit
// runs. Units mutate system files and invoke the package manager, so an
// unprivileged run could only fail halfway through.
func (o *Orchestrator) precheck() error {
	if uid := o.sys.EffectiveUID(); uid != 0 {
		return provderrors.NewPrecheckError("privilege", fmt.Sprintf("must run as root, current uid is %d", uid))
	}
	return nil
}

func (o *Orchestrator) runUnit(ctx context.Context, u *config.Unit, opts Options) model.UnitResult {
	log := o.log.WithUnit(u.ID)
	started := time.Now()

	finish := func(res model.UnitResult) model.UnitResult {
		res.UnitID = u.ID
		res.Duration = time.Since(started)
		res.Timestamp = time.Now()
		return res
	}

	handler, err := o.registry.Get(u.Type)
	if err != nil {
		log.Error(err, "no handler for unit type")
		return finish(model.UnitResult{Outcome: model.OutcomeFailed, Message: err.Error(), Error: err})
	}

	log.Debug("evaluating guard")
	eval, err := handler.Evaluate(ctx, u)
	if err != nil {
		// Guards fail open: an unreadable state means the unit is treated
		// as needing apply, never silently skipped.
		log.Error(err, "guard evaluation failed, treating unit as unapplied")
		eval = &model.Evaluation{
			UnitID:    u.ID,
			Satisfied: false,
			Message:   fmt.Sprintf("guard failed: %v", err),
		}
	}

	if eval.Satisfied {
		log.Debug("already satisfied")
		return finish(model.UnitResult{Outcome: model.OutcomeSatisfied, Message: eval.Message})
	}

	if opts.DryRun {
		return finish(model.UnitResult{Outcome: model.OutcomeWouldApply, Message: eval.Message, Output: eval.Diff})
	}

	if u.Interactive && !opts.AssumeYes {
		confirmed, err := o.confirmer.Confirm(ctx, u.Title(), eval.Message)
		if err != nil {
			log.Error(err, "confirmation prompt failed")
			return finish(model.UnitResult{Outcome: model.OutcomeFailed, Message: err.Error(), Error: err})
		}
		if !confirmed {
			log.Info("declined by user")
			return finish(model.UnitResult{Outcome: model.OutcomeDeclined, Message: "declined by user"})
		}
	}

	log.Info("applying")
	res, err := handler.Apply(ctx, eval, u)
	if err != nil {
		log.Error(err, "apply failed")
		if res == nil {
			res = &model.UnitResult{Outcome: model.OutcomeFailed, Message: err.Error()}
		}
		if res.Error == nil {
			res.Error = err
		}
		return finish(*res)
	}

	if res == nil {
		res = &model.UnitResult{Outcome: model.OutcomeApplied, Message: "applied"}
	}
	return finish(*res)
}
