package flatpakunit

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

type flatpakUnit struct {
	sys system.System
}

// New creates the handler for flatpak units.
func New(sys system.System) unit.Handler {
	return &flatpakUnit{sys: sys}
}

var _ unit.Handler = (*flatpakUnit)(nil)

func (f *flatpakUnit) Metadata() unit.Metadata {
	return unit.Metadata{
		Type:        "flatpak",
		Description: "Installs sandboxed applications via flatpak.",
	}
}

type flatpakEvalData struct {
	Missing []string
}

func (f *flatpakUnit) Evaluate(ctx context.Context, u *config.Unit) (*model.Evaluation, error) {
	cfg := u.Flatpak
	if cfg == nil {
		return nil, provderrors.NewValidationError(u.ID, "flatpak configuration missing", nil)
	}

	var missing []string
	for _, app := range cfg.Apps {
		res, err := f.sys.Run(ctx, system.Cmd{Name: "flatpak", Args: []string{"info", app}})
		if err != nil {
			return nil, provderrors.NewGuardError(u.ID, fmt.Errorf("query app %s: %w", app, err))
		}
		if !res.Succeeded() {
			missing = append(missing, app)
		}
	}

	if len(missing) == 0 {
		return &model.Evaluation{
			UnitID:    u.ID,
			Satisfied: true,
			Message:   fmt.Sprintf("all apps installed: %s", strings.Join(cfg.Apps, ", ")),
		}, nil
	}

	return &model.Evaluation{
		UnitID:    u.ID,
		Satisfied: false,
		Message:   fmt.Sprintf("apps not installed: %s", strings.Join(missing, ", ")),
		Diff:      fmt.Sprintf("would install: %s", strings.Join(missing, ", ")),
		Internal:  &flatpakEvalData{Missing: missing},
	}, nil
}

func (f *flatpakUnit) Apply(ctx context.Context, eval *model.Evaluation, u *config.Unit) (*model.UnitResult, error) {
	cfg := u.Flatpak
	if cfg == nil {
		return nil, provderrors.NewValidationError(u.ID, "flatpak configuration missing", nil)
	}

	// remote-add --if-not-exists is idempotent on its own.
	if cfg.Remote != "" {
		args := []string{"remote-add", "--if-not-exists", cfg.Remote, cfg.RemoteURL}
		res, err := f.sys.Run(ctx, system.Cmd{Name: "flatpak", Args: args})
		if err != nil {
			return failedResult(u.ID, res.Output(), err), provderrors.NewApplyError(u.ID, res.Output(), err)
		}
		if !res.Succeeded() {
			err := fmt.Errorf("flatpak remote-add exited %d", res.ExitCode)
			return failedResult(u.ID, res.Output(), err), provderrors.NewApplyError(u.ID, res.Output(), err)
		}
	}

	targets := cfg.Apps
	if data, ok := eval.Internal.(*flatpakEvalData); ok && len(data.Missing) > 0 {
		targets = data.Missing
	}

	args := []string{"install", "--noninteractive", "-y"}
	if cfg.Remote != "" {
		args = append(args, cfg.Remote)
	}
	args = append(args, targets...)

	res, err := f.sys.RunStreaming(ctx, system.Cmd{Name: "flatpak", Args: args})
	if err != nil {
		return failedResult(u.ID, res.Output(), err), provderrors.NewApplyError(u.ID, res.Output(), err)
	}
	if !res.Succeeded() {
		err := fmt.Errorf("flatpak install exited %d", res.ExitCode)
		return failedResult(u.ID, res.Output(), err), provderrors.NewApplyError(u.ID, res.Output(), err)
	}

	return &model.UnitResult{
		UnitID:  u.ID,
		Outcome: model.OutcomeApplied,
		Message: fmt.Sprintf("installed: %s", strings.Join(targets, ", ")),
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
