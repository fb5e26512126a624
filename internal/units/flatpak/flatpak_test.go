package flatpakunit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/provd/provd/internal/config"
	"github.com/provd/provd/internal/model"
	"github.com/provd/provd/internal/system"
)

func flatpakUnitCfg() *config.Unit {
	return &config.Unit{
		ID:   "flatpak_apps",
		Type: "flatpak",
		Flatpak: &config.FlatpakUnit{
			Apps:      []string{"org.signal.Signal"},
			Remote:    "flathub",
			RemoteURL: "https://dl.flathub.org/repo/flathub.flatpakrepo",
		},
	}
}

func TestEvaluateInstalled(t *testing.T) {
	fake := system.NewFake()
	fake.Script("flatpak info org.signal.Signal", system.CmdResult{Stdout: "Signal Desktop"})

	eval, err := New(fake).Evaluate(context.Background(), flatpakUnitCfg())
	require.NoError(t, err)
	assert.True(t, eval.Satisfied)
}

func TestEvaluateMissing(t *testing.T) {
	fake := system.NewFake()
	fake.Script("flatpak info org.signal.Signal", system.CmdResult{ExitCode: 1, Stderr: "error: org.signal.Signal not installed"})

	eval, err := New(fake).Evaluate(context.Background(), flatpakUnitCfg())
	require.NoError(t, err)
	assert.False(t, eval.Satisfied)
}

func TestApplyAddsRemoteThenInstalls(t *testing.T) {
	fake := system.NewFake()
	u := flatpakUnitCfg()
	eval := &model.Evaluation{UnitID: u.ID, Internal: &flatpakEvalData{Missing: []string{"org.signal.Signal"}}}

	res, err := New(fake).Apply(context.Background(), eval, u)
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeApplied, res.Outcome)
	assert.True(t, fake.Ran("flatpak remote-add --if-not-exists flathub"))
	assert.True(t, fake.Ran("flatpak install --noninteractive -y flathub org.signal.Signal"))
}

func TestApplyWithoutRemote(t *testing.T) {
	fake := system.NewFake()
	u := flatpakUnitCfg()
	u.Flatpak.Remote = ""
	u.Flatpak.RemoteURL = ""

	_, err := New(fake).Apply(context.Background(), &model.Evaluation{UnitID: u.ID}, u)
	require.NoError(t, err)
	assert.False(t, fake.Ran("flatpak remote-add"))
	assert.True(t, fake.Ran("flatpak install --noninteractive -y org.signal.Signal"))
}

func TestApplyInstallFailure(t *testing.T) {
	fake := system.NewFake()
	fake.Script("flatpak install --noninteractive -y flathub org.signal.Signal", system.CmdResult{ExitCode: 1, Stderr: "error: no remote refs found"})

	u := flatpakUnitCfg()
	res, err := New(fake).Apply(context.Background(), &model.Evaluation{UnitID: u.ID}, u)
	require.Error(t, err)
	assert.Equal(t, model.OutcomeFailed, res.Outcome)
	assert.Contains(t, res.Output, "no remote refs")
}
