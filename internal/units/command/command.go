package commandunit

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

const defaultShell = "sh"

type commandUnit struct {
	sys system.System
}

// New creates the handler for command units, the generic escape hatch for
// steps no dedicated unit type covers. The check command is the guard:
// exit zero means the effect is already present.
func New(sys system.System) unit.Handler {
	return &commandUnit{sys: sys}
}

var _ unit.Handler = (*commandUnit)(nil)

func (c *commandUnit) Metadata() unit.Metadata {
	return unit.Metadata{
		Type:        "command",
		Description: "Runs a shell command gated by an optional check command.",
	}
}

func (c *commandUnit) Evaluate(ctx context.Context, u *config.Unit) (*model.Evaluation, error) {
	cfg := u.Command
	if cfg == nil {
		return nil, provderrors.NewValidationError(u.ID, "command configuration missing", nil)
	}

	// Without a check the unit cannot prove idempotence, so it always
	// reports needs-apply. Plans should prefer a check.
	if strings.TrimSpace(cfg.Check) == "" {
		return &model.Evaluation{
			UnitID:    u.ID,
			Satisfied: false,
			Message:   "no check command, always applies",
			Diff:      fmt.Sprintf("would run: %s", cfg.Command),
		}, nil
	}

	res, err := c.sys.Run(ctx, c.shellCmd(cfg, cfg.Check))
	if err != nil {
		return nil, provderrors.NewGuardError(u.ID, fmt.Errorf("check command: %w", err))
	}

	if res.Succeeded() {
		return &model.Evaluation{
			UnitID:    u.ID,
			Satisfied: true,
			Message:   "check command succeeded",
		}, nil
	}

	return &model.Evaluation{
		UnitID:    u.ID,
		Satisfied: false,
		Message:   fmt.Sprintf("check command exited %d", res.ExitCode),
		Diff:      fmt.Sprintf("would run: %s", cfg.Command),
	}, nil
}

func (c *commandUnit) Apply(ctx context.Context, eval *model.Evaluation, u *config.Unit) (*model.UnitResult, error) {
	cfg := u.Command
	if cfg == nil {
		return nil, provderrors.NewValidationError(u.ID, "command configuration missing", nil)
	}

	res, err := c.sys.RunStreaming(ctx, c.shellCmd(cfg, cfg.Command))
	if err != nil {
		return failedResult(u.ID, res.Output(), err), provderrors.NewApplyError(u.ID, res.Output(), err)
	}
	if !res.Succeeded() {
		err := fmt.Errorf("command exited %d", res.ExitCode)
		return failedResult(u.ID, res.Output(), err), provderrors.NewApplyError(u.ID, res.Output(), err)
	}

	return &model.UnitResult{
		UnitID:  u.ID,
		Outcome: model.OutcomeApplied,
		Message: "command executed",
		Output:  res.Stdout,
	}, nil
}

func (c *commandUnit) shellCmd(cfg *config.CommandUnit, script string) system.Cmd {
	shell := cfg.Shell
	if shell == "" {
		shell = defaultShell
	}
	return system.Cmd{
		Name: shell,
		Args: []string{"-c", script},
		Dir:  cfg.WorkDir,
		Env:  cfg.Env,
	}
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
