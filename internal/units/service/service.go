package serviceunit

import (
	"context"
	"fmt"

	"github.com/provd/provd/internal/config"
	"github.com/provd/provd/internal/model"
	"github.com/provd/provd/internal/system"
	"github.com/provd/provd/internal/unit"
	provderrors "github.com/provd/provd/pkg/errors"
)

type serviceUnit struct {
	sys system.System
}

// New creates the handler for service units.
func New(sys system.System) unit.Handler {
	return &serviceUnit{sys: sys}
}

var _ unit.Handler = (*serviceUnit)(nil)

func (s *serviceUnit) Metadata() unit.Metadata {
	return unit.Metadata{
		Type:        "service",
		Description: "Enables systemd units.",
	}
}

func (s *serviceUnit) Evaluate(ctx context.Context, u *config.Unit) (*model.Evaluation, error) {
	cfg := u.Service
	if cfg == nil {
		return nil, provderrors.NewValidationError(u.ID, "service configuration missing", nil)
	}

	res, err := s.sys.Run(ctx, system.Cmd{Name: "systemctl", Args: []string{"is-enabled", cfg.Service}})
	if err != nil {
		return nil, provderrors.NewGuardError(u.ID, fmt.Errorf("query service %s: %w", cfg.Service, err))
	}

	if res.Succeeded() {
		return &model.Evaluation{
			UnitID:    u.ID,
			Satisfied: true,
			Message:   fmt.Sprintf("%s is %s", cfg.Service, res.Stdout),
		}, nil
	}

	state := res.Stdout
	if state == "" {
		state = "not enabled"
	}
	return &model.Evaluation{
		UnitID:    u.ID,
		Satisfied: false,
		Message:   fmt.Sprintf("%s is %s", cfg.Service, state),
		Diff:      fmt.Sprintf("would enable %s", cfg.Service),
	}, nil
}

func (s *serviceUnit) Apply(ctx context.Context, eval *model.Evaluation, u *config.Unit) (*model.UnitResult, error) {
	cfg := u.Service
	if cfg == nil {
		return nil, provderrors.NewValidationError(u.ID, "service configuration missing", nil)
	}

	args := []string{"enable"}
	if cfg.StartNow() {
		args = append(args, "--now")
	}
	args = append(args, cfg.Service)

	res, err := s.sys.Run(ctx, system.Cmd{Name: "systemctl", Args: args})
	if err != nil {
		return failedResult(u.ID, res.Output(), err), provderrors.NewApplyError(u.ID, res.Output(), err)
	}
	if !res.Succeeded() {
		err := fmt.Errorf("systemctl enable exited %d", res.ExitCode)
		return failedResult(u.ID, res.Output(), err), provderrors.NewApplyError(u.ID, res.Output(), err)
	}

	return &model.UnitResult{
		UnitID:  u.ID,
		Outcome: model.OutcomeApplied,
		Message: fmt.Sprintf("%s enabled", cfg.Service),
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
