package repounit

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/provd/provd/internal/config"
	"github.com/provd/provd/internal/model"
	"github.com/provd/provd/internal/system"
	"github.com/provd/provd/internal/unit"
	provderrors "github.com/provd/provd/pkg/errors"
)

type repoUnit struct {
	sys system.System
}

// New creates the handler for repo units: shell frameworks, zsh plugins,
// tmux plugin managers and similar git-fetched trees.
func New(sys system.System) unit.Handler {
	return &repoUnit{sys: sys}
}

var _ unit.Handler = (*repoUnit)(nil)

func (r *repoUnit) Metadata() unit.Metadata {
	return unit.Metadata{
		Type:        "repo",
		Description: "Clones git repositories.",
	}
}

func (r *repoUnit) Evaluate(ctx context.Context, u *config.Unit) (*model.Evaluation, error) {
	cfg := u.Repo
	if cfg == nil {
		return nil, provderrors.NewValidationError(u.ID, "repo configuration missing", nil)
	}

	if _, err := r.sys.Stat(cfg.Destination); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &model.Evaluation{
				UnitID:    u.ID,
				Satisfied: false,
				Message:   fmt.Sprintf("%s does not exist", cfg.Destination),
				Diff:      fmt.Sprintf("would clone %s", cfg.URL),
			}, nil
		}
		return nil, provderrors.NewGuardError(u.ID, fmt.Errorf("stat %s: %w", cfg.Destination, err))
	}

	repo, err := git.PlainOpen(cfg.Destination)
	if err != nil {
		// Destination exists but is not a usable repository. Fail open and
		// let apply report the conflict rather than clobbering the path.
		return &model.Evaluation{
			UnitID:    u.ID,
			Satisfied: false,
			Message:   fmt.Sprintf("%s exists but is not a git repository", cfg.Destination),
		}, nil
	}

	remote, err := repo.Remote("origin")
	if err != nil || len(remote.Config().URLs) == 0 {
		return &model.Evaluation{
			UnitID:    u.ID,
			Satisfied: false,
			Message:   fmt.Sprintf("%s has no origin remote", cfg.Destination),
		}, nil
	}

	if actual := remote.Config().URLs[0]; actual != cfg.URL {
		return &model.Evaluation{
			UnitID:    u.ID,
			Satisfied: false,
			Message:   fmt.Sprintf("%s tracks %s, want %s", cfg.Destination, actual, cfg.URL),
		}, nil
	}

	return &model.Evaluation{
		UnitID:    u.ID,
		Satisfied: true,
		Message:   fmt.Sprintf("%s already cloned at %s", cfg.URL, cfg.Destination),
	}, nil
}

func (r *repoUnit) Apply(ctx context.Context, eval *model.Evaluation, u *config.Unit) (*model.UnitResult, error) {
	cfg := u.Repo
	if cfg == nil {
		return nil, provderrors.NewValidationError(u.ID, "repo configuration missing", nil)
	}

	// Never overwrite a conflicting checkout; the operator has to resolve
	// that by hand. Cloning only happens into a fresh destination.
	if _, err := r.sys.Stat(cfg.Destination); err == nil {
		if _, openErr := git.PlainOpen(cfg.Destination); openErr != nil {
			conflictErr := fmt.Errorf("%s exists and is not a git repository, remove it first", cfg.Destination)
			return failedResult(u.ID, conflictErr), provderrors.NewApplyError(u.ID, "", conflictErr)
		}
		driftErr := fmt.Errorf("%s is a different repository, remove it first", cfg.Destination)
		return failedResult(u.ID, driftErr), provderrors.NewApplyError(u.ID, "", driftErr)
	}

	opts := &git.CloneOptions{URL: cfg.URL}
	if cfg.Depth > 0 {
		opts.Depth = cfg.Depth
	}
	if cfg.Branch != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(cfg.Branch)
		opts.SingleBranch = true
	}

	if _, err := git.PlainCloneContext(ctx, cfg.Destination, false, opts); err != nil {
		return failedResult(u.ID, err), provderrors.NewApplyError(u.ID, "", fmt.Errorf("clone %s: %w", cfg.URL, err))
	}

	return &model.UnitResult{
		UnitID:  u.ID,
		Outcome: model.OutcomeApplied,
		Message: fmt.Sprintf("cloned %s to %s", cfg.URL, cfg.Destination),
	}, nil
}

func failedResult(unitID string, err error) *model.UnitResult {
	return &model.UnitResult{
		UnitID:  unitID,
		Outcome: model.OutcomeFailed,
		Message: err.Error(),
		Error:   err,
	}
}
