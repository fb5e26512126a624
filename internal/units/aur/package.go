package aurunit

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

type packageUnit struct {
	sys system.System
}

// NewPackage creates the handler for aur_package units.
func NewPackage(sys system.System) unit.Handler {
	return &packageUnit{sys: sys}
}

var _ unit.Handler = (*packageUnit)(nil)

func (p *packageUnit) Metadata() unit.Metadata {
	return unit.Metadata{
		Type:        "aur_package",
		Description: "Installs packages through the AUR helper.",
	}
}

type aurEvalData struct {
	Missing []string
}

// Evaluate checks the pacman database directly: AUR builds register there
// like any native package, so no helper invocation is needed for the guard.
func (p *packageUnit) Evaluate(ctx context.Context, u *config.Unit) (*model.Evaluation, error) {
	cfg := u.AURPackage
	if cfg == nil {
		return nil, provderrors.NewValidationError(u.ID, "aur_package configuration missing", nil)
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
			Message:   fmt.Sprintf("all AUR packages installed: %s", strings.Join(cfg.Packages, ", ")),
		}, nil
	}

	return &model.Evaluation{
		UnitID:    u.ID,
		Satisfied: false,
		Message:   fmt.Sprintf("AUR packages not installed: %s", strings.Join(missing, ", ")),
		Diff:      fmt.Sprintf("would build and install: %s", strings.Join(missing, ", ")),
		Internal:  &aurEvalData{Missing: missing},
	}, nil
}

func (p *packageUnit) Apply(ctx context.Context, eval *model.Evaluation, u *config.Unit) (*model.UnitResult, error) {
	cfg := u.AURPackage
	if cfg == nil {
		return nil, provderrors.NewValidationError(u.ID, "aur_package configuration missing", nil)
	}

	helper := cfg.Helper
	if helper == "" {
		helper = defaultHelper
	}

	targets := cfg.Packages
	if data, ok := eval.Internal.(*aurEvalData); ok && len(data.Missing) > 0 {
		targets = data.Missing
	}

	helperArgs := append([]string{"-S", "--needed", "--noconfirm"}, targets...)

	// AUR helpers refuse to build as root; drop to the configured user and
	// let it sudo back for the install phase.
	cmd := system.Cmd{Name: helper, Args: helperArgs}
	if cfg.User != "" {
		cmd = system.Cmd{Name: "sudo", Args: append([]string{"-u", cfg.User, helper}, helperArgs...)}
	}

	res, err := p.sys.RunStreaming(ctx, cmd)
	if err != nil {
		return failedResult(u.ID, res.Output(), err), provderrors.NewApplyError(u.ID, res.Output(), err)
	}
	if !res.Succeeded() {
		err := fmt.Errorf("%s exited %d", helper, res.ExitCode)
		return failedResult(u.ID, res.Output(), err), provderrors.NewApplyError(u.ID, res.Output(), err)
	}

	return &model.UnitResult{
		UnitID:  u.ID,
		Outcome: model.OutcomeApplied,
		Message: fmt.Sprintf("installed from AUR: %s", strings.Join(targets, ", ")),
	}, nil
}
