package commandunit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/provd/provd/internal/config"
	"github.com/provd/provd/internal/model"
	"github.com/provd/provd/internal/system"
)

func commandUnitCfg(check, command string) *config.Unit {
	return &config.Unit{
		ID:      "default_shell",
		Type:    "command",
		Command: &config.CommandUnit{Check: check, Command: command},
	}
}

func TestEvaluateCheckSatisfied(t *testing.T) {
	fake := system.NewFake()
	fake.Script("sh -c getent passwd builder | grep -q zsh", system.CmdResult{})

	eval, err := New(fake).Evaluate(context.Background(), commandUnitCfg("getent passwd builder | grep -q zsh", "chsh -s /usr/bin/zsh builder"))
	require.NoError(t, err)
	assert.True(t, eval.Satisfied)
}

func TestEvaluateCheckFails(t *testing.T) {
	fake := system.NewFake()
	fake.Script("sh -c getent passwd builder | grep -q zsh", system.CmdResult{ExitCode: 1})

	eval, err := New(fake).Evaluate(context.Background(), commandUnitCfg("getent passwd builder | grep -q zsh", "chsh -s /usr/bin/zsh builder"))
	require.NoError(t, err)
	assert.False(t, eval.Satisfied)
	assert.Contains(t, eval.Diff, "chsh")
}

func TestEvaluateWithoutCheckAlwaysApplies(t *testing.T) {
	fake := system.NewFake()

	eval, err := New(fake).Evaluate(context.Background(), commandUnitCfg("", "grub-mkconfig -o /boot/grub/grub.cfg"))
	require.NoError(t, err)
	assert.False(t, eval.Satisfied)
	assert.Contains(t, eval.Message, "no check command")
}

func TestApplyRunsCommand(t *testing.T) {
	fake := system.NewFake()
	u := commandUnitCfg("false", "chsh -s /usr/bin/zsh builder")

	res, err := New(fake).Apply(context.Background(), &model.Evaluation{UnitID: u.ID}, u)
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeApplied, res.Outcome)
	assert.True(t, fake.Ran("sh -c chsh -s /usr/bin/zsh builder"))
}

func TestApplyUsesConfiguredShell(t *testing.T) {
	fake := system.NewFake()
	u := commandUnitCfg("", "echo done")
	u.Command.Shell = "bash"

	_, err := New(fake).Apply(context.Background(), &model.Evaluation{UnitID: u.ID}, u)
	require.NoError(t, err)
	assert.True(t, fake.Ran("bash -c echo done"))
}

func TestApplyFailureCapturesOutput(t *testing.T) {
	fake := system.NewFake()
	fake.Script("sh -c ufw --force enable", system.CmdResult{ExitCode: 1, Stderr: "ERROR: problem running ufw"})

	u := commandUnitCfg("", "ufw --force enable")
	res, err := New(fake).Apply(context.Background(), &model.Evaluation{UnitID: u.ID}, u)
	require.Error(t, err)
	assert.Equal(t, model.OutcomeFailed, res.Outcome)
	assert.Contains(t, res.Output, "problem running ufw")
}
