package serviceunit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/provd/provd/internal/config"
	"github.com/provd/provd/internal/model"
	"github.com/provd/provd/internal/system"
)

func serviceUnitCfg(name string) *config.Unit {
	return &config.Unit{
		ID:      "enable_" + name,
		Type:    "service",
		Service: &config.ServiceUnit{Service: name},
	}
}

func TestEvaluateEnabled(t *testing.T) {
	fake := system.NewFake()
	fake.Script("systemctl is-enabled sshd", system.CmdResult{Stdout: "enabled"})

	eval, err := New(fake).Evaluate(context.Background(), serviceUnitCfg("sshd"))
	require.NoError(t, err)
	assert.True(t, eval.Satisfied)
	assert.Contains(t, eval.Message, "enabled")
}

func TestEvaluateDisabled(t *testing.T) {
	fake := system.NewFake()
	fake.Script("systemctl is-enabled sshd", system.CmdResult{ExitCode: 1, Stdout: "disabled"})

	eval, err := New(fake).Evaluate(context.Background(), serviceUnitCfg("sshd"))
	require.NoError(t, err)
	assert.False(t, eval.Satisfied)
	assert.Contains(t, eval.Message, "disabled")
}

func TestApplyEnableNow(t *testing.T) {
	fake := system.NewFake()
	u := serviceUnitCfg("sshd")

	res, err := New(fake).Apply(context.Background(), &model.Evaluation{UnitID: u.ID}, u)
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeApplied, res.Outcome)
	assert.True(t, fake.Ran("systemctl enable --now sshd"))
}

func TestApplyWithoutStart(t *testing.T) {
	fake := system.NewFake()
	u := serviceUnitCfg("fstrim.timer")
	no := false
	u.Service.Now = &no

	_, err := New(fake).Apply(context.Background(), &model.Evaluation{UnitID: u.ID}, u)
	require.NoError(t, err)
	assert.True(t, fake.Ran("systemctl enable fstrim.timer"))
	assert.False(t, fake.Ran("systemctl enable --now"))
}

func TestApplyFailure(t *testing.T) {
	fake := system.NewFake()
	fake.Script("systemctl enable --now sshd", system.CmdResult{ExitCode: 1, Stderr: "Failed to enable unit: Unit file sshd.service does not exist."})

	u := serviceUnitCfg("sshd")
	res, err := New(fake).Apply(context.Background(), &model.Evaluation{UnitID: u.ID}, u)
	require.Error(t, err)
	assert.Equal(t, model.OutcomeFailed, res.Outcome)
	assert.Contains(t, res.Output, "does not exist")
}
