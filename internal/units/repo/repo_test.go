package repounit

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	git "github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/provd/provd/internal/config"
	"github.com/provd/provd/internal/model"
	"github.com/provd/provd/internal/system"
)

func repoUnitCfg(url, dest string) *config.Unit {
	return &config.Unit{
		ID:   "shell_framework",
		Type: "repo",
		Repo: &config.RepoUnit{URL: url, Destination: dest},
	}
}

// initUpstream creates a local repository with one commit to clone from.
func initUpstream(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "README"), []byte("upstream\n"), 0o644))

	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add("README")
	require.NoError(t, err)
	_, err = wt.Commit("initial", &git.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@example.com", When: time.Now()},
	})
	require.NoError(t, err)

	return dir
}

func TestEvaluateMissingDestination(t *testing.T) {
	sys := system.NewLocal()
	dest := filepath.Join(t.TempDir(), "checkout")

	eval, err := New(sys).Evaluate(context.Background(), repoUnitCfg("https://github.com/ohmyzsh/ohmyzsh.git", dest))
	require.NoError(t, err)
	assert.False(t, eval.Satisfied)
	assert.Contains(t, eval.Diff, "would clone")
}

func TestApplyClonesAndEvaluateSatisfied(t *testing.T) {
	upstream := initUpstream(t)
	sys := system.NewLocal()
	dest := filepath.Join(t.TempDir(), "checkout")
	u := repoUnitCfg(upstream, dest)

	h := New(sys)
	res, err := h.Apply(context.Background(), &model.Evaluation{UnitID: u.ID}, u)
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeApplied, res.Outcome)

	eval, err := h.Evaluate(context.Background(), u)
	require.NoError(t, err)
	assert.True(t, eval.Satisfied)
}

func TestEvaluateNonRepoDestination(t *testing.T) {
	sys := system.NewLocal()
	dest := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dest, "stray"), []byte("x"), 0o644))

	eval, err := New(sys).Evaluate(context.Background(), repoUnitCfg("https://github.com/ohmyzsh/ohmyzsh.git", dest))
	require.NoError(t, err)
	assert.False(t, eval.Satisfied)
	assert.Contains(t, eval.Message, "not a git repository")
}

func TestApplyRefusesConflictingDestination(t *testing.T) {
	sys := system.NewLocal()
	dest := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dest, "stray"), []byte("x"), 0o644))

	u := repoUnitCfg("https://github.com/ohmyzsh/ohmyzsh.git", dest)
	res, err := New(sys).Apply(context.Background(), &model.Evaluation{UnitID: u.ID}, u)
	require.Error(t, err)
	assert.Equal(t, model.OutcomeFailed, res.Outcome)
	assert.Contains(t, res.Message, "remove it first")
}

func TestEvaluateWrongOrigin(t *testing.T) {
	sys := system.NewLocal()
	dest := t.TempDir()

	repo, err := git.PlainInit(dest, false)
	require.NoError(t, err)
	_, err = repo.CreateRemote(&gitconfig.RemoteConfig{
		Name: "origin",
		URLs: []string{"https://github.com/zsh-users/zsh-autosuggestions.git"},
	})
	require.NoError(t, err)

	eval, err := New(sys).Evaluate(context.Background(), repoUnitCfg("https://github.com/ohmyzsh/ohmyzsh.git", dest))
	require.NoError(t, err)
	assert.False(t, eval.Satisfied)
	assert.Contains(t, eval.Message, "tracks")
}
