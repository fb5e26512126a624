package mountunit

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/provd/provd/internal/config"
	"github.com/provd/provd/internal/model"
	"github.com/provd/provd/internal/system"
	"github.com/provd/provd/internal/unit"
	provderrors "github.com/provd/provd/pkg/errors"
)

const (
	defaultFstab   = "/etc/fstab"
	defaultFSType  = "auto"
	defaultOptions = "defaults"
)

type mountUnit struct {
	sys system.System
}

// New creates the handler for mount units. The fstab entry is the guard:
// once the device is listed for its mountpoint, the unit is satisfied.
func New(sys system.System) unit.Handler {
	return &mountUnit{sys: sys}
}

var _ unit.Handler = (*mountUnit)(nil)

func (m *mountUnit) Metadata() unit.Metadata {
	return unit.Metadata{
		Type:        "mount",
		Description: "Manages fstab entries and mounts them.",
	}
}

func (m *mountUnit) Evaluate(ctx context.Context, u *config.Unit) (*model.Evaluation, error) {
	cfg := u.Mount
	if cfg == nil {
		return nil, provderrors.NewValidationError(u.ID, "mount configuration missing", nil)
	}

	fstab := cfg.Fstab
	if fstab == "" {
		fstab = defaultFstab
	}

	raw, err := m.sys.ReadFile(fstab)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, provderrors.NewGuardError(u.ID, fmt.Errorf("read %s: %w", fstab, err))
	}

	for _, line := range strings.Split(string(raw), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		if fields[0] == cfg.Device && fields[1] == cfg.Mountpoint {
			return &model.Evaluation{
				UnitID:    u.ID,
				Satisfied: true,
				Message:   fmt.Sprintf("%s already listed for %s", cfg.Device, cfg.Mountpoint),
			}, nil
		}
		if fields[0] == cfg.Device {
			return &model.Evaluation{
				UnitID:    u.ID,
				Satisfied: false,
				Message:   fmt.Sprintf("%s listed with mountpoint %s, want %s", cfg.Device, fields[1], cfg.Mountpoint),
				Diff:      fmt.Sprintf("+%s", fstabEntry(cfg)),
			}, nil
		}
	}

	return &model.Evaluation{
		UnitID:    u.ID,
		Satisfied: false,
		Message:   fmt.Sprintf("%s has no entry for %s", fstab, cfg.Device),
		Diff:      fmt.Sprintf("+%s", fstabEntry(cfg)),
	}, nil
}

func (m *mountUnit) Apply(ctx context.Context, eval *model.Evaluation, u *config.Unit) (*model.UnitResult, error) {
	cfg := u.Mount
	if cfg == nil {
		return nil, provderrors.NewValidationError(u.ID, "mount configuration missing", nil)
	}

	fstab := cfg.Fstab
	if fstab == "" {
		fstab = defaultFstab
	}

	raw, err := m.sys.ReadFile(fstab)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return failedResult(u.ID, "", err), provderrors.NewApplyError(u.ID, "", err)
	}

	// An existing entry for the device is rewritten in place so a drifted
	// mountpoint converges instead of accumulating duplicate lines.
	var lines []string
	if len(raw) > 0 {
		lines = strings.Split(strings.TrimRight(string(raw), "\n"), "\n")
	}
	replaced := false
	for i, line := range lines {
		fields := strings.Fields(line)
		if len(fields) < 2 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		if fields[0] == cfg.Device {
			lines[i] = fstabEntry(cfg)
			replaced = true
			break
		}
	}
	if !replaced {
		lines = append(lines, fstabEntry(cfg))
	}
	content := strings.Join(lines, "\n") + "\n"

	mode := fs.FileMode(0o644)
	if info, statErr := m.sys.Stat(fstab); statErr == nil {
		mode = info.Mode().Perm()
	}

	if err := m.sys.WriteFile(fstab, []byte(content), mode); err != nil {
		return failedResult(u.ID, "", err), provderrors.NewApplyError(u.ID, "", err)
	}
	if err := m.sys.MkdirAll(cfg.Mountpoint, 0o755); err != nil {
		return failedResult(u.ID, "", err), provderrors.NewApplyError(u.ID, "", err)
	}

	res, err := m.sys.Run(ctx, system.Cmd{Name: "mount", Args: []string{cfg.Mountpoint}})
	if err != nil {
		return failedResult(u.ID, res.Output(), err), provderrors.NewApplyError(u.ID, res.Output(), err)
	}
	if !res.Succeeded() {
		err := fmt.Errorf("mount exited %d", res.ExitCode)
		return failedResult(u.ID, res.Output(), err), provderrors.NewApplyError(u.ID, res.Output(), err)
	}

	return &model.UnitResult{
		UnitID:  u.ID,
		Outcome: model.OutcomeApplied,
		Message: fmt.Sprintf("%s mounted at %s", cfg.Device, cfg.Mountpoint),
	}, nil
}

func fstabEntry(cfg *config.MountUnit) string {
	fstype := cfg.FSType
	if fstype == "" {
		fstype = defaultFSType
	}
	options := cfg.Options
	if options == "" {
		options = defaultOptions
	}
	return fmt.Sprintf("%s\t%s\t%s\t%s\t%d\t%d", cfg.Device, cfg.Mountpoint, fstype, options, cfg.Dump, cfg.Pass)
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
