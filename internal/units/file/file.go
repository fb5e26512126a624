package fileunit

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strconv"

	"github.com/provd/provd/internal/config"
	"github.com/provd/provd/internal/model"
	"github.com/provd/provd/internal/system"
	"github.com/provd/provd/internal/unit"
	provderrors "github.com/provd/provd/pkg/errors"
)

const defaultMode fs.FileMode = 0o644

type fileUnit struct {
	sys system.System
}

// New creates the handler for file units: whole-file drop-ins such as
// pacman hooks, sysctl tuning and udev rules.
func New(sys system.System) unit.Handler {
	return &fileUnit{sys: sys}
}

var _ unit.Handler = (*fileUnit)(nil)

func (f *fileUnit) Metadata() unit.Metadata {
	return unit.Metadata{
		Type:        "file",
		Description: "Writes a configuration file with the desired content and mode.",
	}
}

func (f *fileUnit) Evaluate(ctx context.Context, u *config.Unit) (*model.Evaluation, error) {
	cfg := u.File
	if cfg == nil {
		return nil, provderrors.NewValidationError(u.ID, "file configuration missing", nil)
	}

	mode, err := parseMode(cfg.Mode)
	if err != nil {
		return nil, provderrors.NewValidationError(u.ID, fmt.Sprintf("invalid mode %q", cfg.Mode), err)
	}

	raw, err := f.sys.ReadFile(cfg.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &model.Evaluation{
				UnitID:    u.ID,
				Satisfied: false,
				Message:   fmt.Sprintf("%s does not exist", cfg.Path),
				Diff:      cfg.Content,
			}, nil
		}
		return nil, provderrors.NewGuardError(u.ID, fmt.Errorf("read %s: %w", cfg.Path, err))
	}

	if string(raw) != cfg.Content {
		return &model.Evaluation{
			UnitID:    u.ID,
			Satisfied: false,
			Message:   fmt.Sprintf("%s content differs", cfg.Path),
			Diff:      cfg.Content,
		}, nil
	}

	if info, err := f.sys.Stat(cfg.Path); err == nil && info.Mode().Perm() != mode {
		return &model.Evaluation{
			UnitID:    u.ID,
			Satisfied: false,
			Message:   fmt.Sprintf("%s mode is %04o, want %04o", cfg.Path, info.Mode().Perm(), mode),
		}, nil
	}

	return &model.Evaluation{
		UnitID:    u.ID,
		Satisfied: true,
		Message:   fmt.Sprintf("%s is up to date", cfg.Path),
	}, nil
}

func (f *fileUnit) Apply(ctx context.Context, eval *model.Evaluation, u *config.Unit) (*model.UnitResult, error) {
	cfg := u.File
	if cfg == nil {
		return nil, provderrors.NewValidationError(u.ID, "file configuration missing", nil)
	}

	mode, err := parseMode(cfg.Mode)
	if err != nil {
		return nil, provderrors.NewValidationError(u.ID, fmt.Sprintf("invalid mode %q", cfg.Mode), err)
	}

	if err := f.sys.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return failedResult(u.ID, err), provderrors.NewApplyError(u.ID, "", err)
	}
	if err := f.sys.WriteFile(cfg.Path, []byte(cfg.Content), mode); err != nil {
		return failedResult(u.ID, err), provderrors.NewApplyError(u.ID, "", err)
	}

	return &model.UnitResult{
		UnitID:  u.ID,
		Outcome: model.OutcomeApplied,
		Message: fmt.Sprintf("wrote %s", cfg.Path),
	}, nil
}

func parseMode(mode string) (fs.FileMode, error) {
	if mode == "" {
		return defaultMode, nil
	}
	parsed, err := strconv.ParseUint(mode, 8, 32)
	if err != nil {
		return 0, err
	}
	return fs.FileMode(parsed), nil
}

func failedResult(unitID string, err error) *model.UnitResult {
	return &model.UnitResult{
		UnitID:  unitID,
		Outcome: model.OutcomeFailed,
		Message: err.Error(),
		Error:   err,
	}
}
