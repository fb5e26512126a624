package aurunit

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	git "github.com/go-git/go-git/v5"

	"github.com/provd/provd/internal/config"
	"github.com/provd/provd/internal/model"
	"github.com/provd/provd/internal/system"
	"github.com/provd/provd/internal/unit"
	provderrors "github.com/provd/provd/pkg/errors"
)

const (
	defaultHelper   = "yay"
	defaultBuildDir = "/var/tmp/provd-aur"
	aurBaseURL      = "https://aur.archlinux.org"
)

type helperUnit struct {
	sys system.System
}

// NewHelper creates the handler for aur_helper units. It bootstraps the
// helper by cloning its AUR repository and building it with makepkg as the
// configured unprivileged user; makepkg refuses to run as root.
func NewHelper(sys system.System) unit.Handler {
	return &helperUnit{sys: sys}
}

var _ unit.Handler = (*helperUnit)(nil)

func (h *helperUnit) Metadata() unit.Metadata {
	return unit.Metadata{
		Type:        "aur_helper",
		Description: "Bootstraps the AUR helper from its upstream repository.",
	}
}

func (h *helperUnit) Evaluate(ctx context.Context, u *config.Unit) (*model.Evaluation, error) {
	cfg := u.AURHelper
	if cfg == nil {
		return nil, provderrors.NewValidationError(u.ID, "aur_helper configuration missing", nil)
	}

	helper := cfg.Helper
	if helper == "" {
		helper = defaultHelper
	}

	if path, err := h.sys.LookPath(helper); err == nil {
		return &model.Evaluation{
			UnitID:    u.ID,
			Satisfied: true,
			Message:   fmt.Sprintf("%s already installed at %s", helper, path),
		}, nil
	}

	return &model.Evaluation{
		UnitID:    u.ID,
		Satisfied: false,
		Message:   fmt.Sprintf("%s not found on PATH", helper),
		Diff:      fmt.Sprintf("would clone %s/%s.git and build with makepkg", aurBaseURL, helper),
	}, nil
}

func (h *helperUnit) Apply(ctx context.Context, eval *model.Evaluation, u *config.Unit) (*model.UnitResult, error) {
	cfg := u.AURHelper
	if cfg == nil {
		return nil, provderrors.NewValidationError(u.ID, "aur_helper configuration missing", nil)
	}

	helper := cfg.Helper
	if helper == "" {
		helper = defaultHelper
	}
	buildDir := cfg.BuildDir
	if buildDir == "" {
		buildDir = defaultBuildDir
	}
	checkout := filepath.Join(buildDir, helper)

	if err := h.sys.MkdirAll(buildDir, 0o777); err != nil {
		return failedResult(u.ID, "", err), provderrors.NewApplyError(u.ID, "", err)
	}

	cloneURL := fmt.Sprintf("%s/%s.git", aurBaseURL, helper)
	_, err := git.PlainCloneContext(ctx, checkout, false, &git.CloneOptions{URL: cloneURL, Depth: 1})
	if err != nil && !errors.Is(err, git.ErrRepositoryAlreadyExists) {
		return failedResult(u.ID, "", err), provderrors.NewApplyError(u.ID, "", fmt.Errorf("clone %s: %w", cloneURL, err))
	}

	// The checkout must be writable by the build user before makepkg runs.
	if res, err := h.sys.Run(ctx, system.Cmd{Name: "chown", Args: []string{"-R", cfg.BuildUser, checkout}}); err != nil || !res.Succeeded() {
		if err == nil {
			err = fmt.Errorf("chown exited %d", res.ExitCode)
		}
		return failedResult(u.ID, res.Output(), err), provderrors.NewApplyError(u.ID, res.Output(), err)
	}

	build := system.Cmd{
		Name: "sudo",
		Args: []string{"-u", cfg.BuildUser, "makepkg", "-si", "--noconfirm"},
		Dir:  checkout,
	}
	res, err := h.sys.RunStreaming(ctx, build)
	if err != nil {
		return failedResult(u.ID, res.Output(), err), provderrors.NewApplyError(u.ID, res.Output(), err)
	}
	if !res.Succeeded() {
		err := fmt.Errorf("makepkg exited %d", res.ExitCode)
		return failedResult(u.ID, res.Output(), err), provderrors.NewApplyError(u.ID, res.Output(), err)
	}

	return &model.UnitResult{
		UnitID:  u.ID,
		Outcome: model.OutcomeApplied,
		Message: fmt.Sprintf("%s built and installed", helper),
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
