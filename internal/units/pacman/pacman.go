package pacmanunit

import (
	"context"
	"fmt"
	"strings"

	"github.com/provd/provd/internal/config"
	"github.com/provd/provd/internal/model"
	"github.com/provd/provd/internal/system"
	"github.com/provd/provd/internal/unit"
	provderrors "github.com/provd/provd/pkg/errors"
)

type pacmanUnit struct {
	sys system.System
}

// New creates the handler for package units.
func New(sys system.System) unit.Handler {
	return &pacmanUnit{sys: sys}
}

var _ unit.Handler = (*pacmanUnit)(nil)

func (p *pacmanUnit) Metadata() unit.Metadata {
	return unit.Metadata{
		Type:        "package",
		Description: "Installs native packages with pacman, or runs a full system upgrade.",
	}
}

type packageEvalData struct {
	Missing []string
}

func (p *pacmanUnit) Evaluate(ctx context.Context, u *config.Unit) (*model.Evaluation, error) {
	cfg := u.Package
	if cfg == nil {
		return nil, provderrors.NewValidationError(u.ID, "package configuration missing", nil)
	}

	if cfg.Update {
		return p.evaluateUpdate(ctx, u)
	}

	var missing []string
	for _, name := range cfg.Packages {
		res, err := p.sys.Run(ctx, system.Cmd{Name: "pacman", Args: []string{"-Qq", name}})
		if err != nil {
			return nil, provderrors.NewGuardError(u.ID, fmt.Errorf("query package %s: %w", name, err))
		}
		if !res.Succeeded() {
			missing = append(missing, name)
		}
	}

	if len(missing) == 0 {
		return &model.Evaluation{
			UnitID:    u.ID,
			Satisfied: true,
			Message:   fmt.Sprintf("all packages installed: %s", strings.Join(cfg.Packages, ", ")),
		}, nil
	}

	return &model.Evaluation{
		UnitID:    u.ID,
		Satisfied: false,
		Message:   fmt.Sprintf("packages not installed: %s", strings.Join(missing, ", ")),
		Diff:      fmt.Sprintf("would install: %s", strings.Join(missing, ", ")),
		Internal:  &packageEvalData{Missing: missing},
	}, nil
}

func (p *pacmanUnit) evaluateUpdate(ctx context.Context, u *config.Unit) (*model.Evaluation, error) {
	// pacman -Qu exits 1 with no output when everything is current.
	res, err := p.sys.Run(ctx, system.Cmd{Name: "pacman", Args: []string{"-Qu"}})
	if err != nil {
		return nil, provderrors.NewGuardError(u.ID, fmt.Errorf("query updates: %w", err))
	}

	pending := 0
	if res.Stdout != "" {
		pending = len(strings.Split(res.Stdout, "\n"))
	}

	if pending == 0 {
		return &model.Evaluation{
			UnitID:    u.ID,
			Satisfied: true,
			Message:   "system is up to date",
		}, nil
	}

	return &model.Evaluation{
		UnitID:    u.ID,
		Satisfied: false,
		Message:   fmt.Sprintf("%d packages have pending updates", pending),
		Diff:      res.Stdout,
	}, nil
}

func (p *pacmanUnit) Apply(ctx context.Context, eval *model.Evaluation, u *config.Unit) (*model.UnitResult, error) {
	cfg := u.Package
	if cfg == nil {
		return nil, provderrors.NewValidationError(u.ID, "package configuration missing", nil)
	}

	if cfg.Update {
		return p.applyUpdate(ctx, u)
	}

	// Installing only the missing set keeps the transaction minimal, but
	// --needed makes the full list safe if the evaluation data is stale.
	targets := cfg.Packages
	if data, ok := eval.Internal.(*packageEvalData); ok && len(data.Missing) > 0 {
		targets = data.Missing
	}

	args := append([]string{"-S", "--needed", "--noconfirm"}, targets...)
	res, err := p.sys.RunStreaming(ctx, system.Cmd{Name: "pacman", Args: args})
	if err != nil {
		return failedResult(u.ID, res.Output(), err), provderrors.NewApplyError(u.ID, res.Output(), err)
	}
	if !res.Succeeded() {
		err := fmt.Errorf("pacman -S exited %d", res.ExitCode)
		return failedResult(u.ID, res.Output(), err), provderrors.NewApplyError(u.ID, res.Output(), err)
	}

	return &model.UnitResult{
		UnitID:  u.ID,
		Outcome: model.OutcomeApplied,
		Message: fmt.Sprintf("installed: %s", strings.Join(targets, ", ")),
	}, nil
}

func (p *pacmanUnit) applyUpdate(ctx context.Context, u *config.Unit) (*model.UnitResult, error) {
	res, err := p.sys.RunStreaming(ctx, system.Cmd{Name: "pacman", Args: []string{"-Syu", "--noconfirm"}})
	if err != nil {
		return failedResult(u.ID, res.Output(), err), provderrors.NewApplyError(u.ID, res.Output(), err)
	}
	if !res.Succeeded() {
		err := fmt.Errorf("pacman -Syu exited %d", res.ExitCode)
		return failedResult(u.ID, res.Output(), err), provderrors.NewApplyError(u.ID, res.Output(), err)
	}

	return &model.UnitResult{
		UnitID:  u.ID,
		Outcome: model.OutcomeApplied,
		Message: "system updated",
	}, nil
}

func failedResult(unitID, output string, err error) *model.UnitResult {
	return &model.UnitResult{
		UnitID:  unitID,
		Outcome: model.OutcomeFailed,
		Message: err.Error(),
		Output:  output,
		Error:   err,
	}
}
