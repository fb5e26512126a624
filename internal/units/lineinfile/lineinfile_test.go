package lineinfileunit

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/provd/provd/internal/config"
	"github.com/provd/provd/internal/model"
	"github.com/provd/provd/internal/system"
)

func lineUnit(file, line, pattern string) *config.Unit {
	return &config.Unit{
		ID:         "bootloader_options",
		Type:       "line_in_file",
		LineInFile: &config.LineInFileUnit{File: file, Line: line, Pattern: pattern},
	}
}

func TestEvaluateSatisfiedWhenLinePresent(t *testing.T) {
	fake := system.NewFake()
	fake.Files["/etc/default/grub"] = &system.FakeFile{Data: []byte("GRUB_TIMEOUT=5\nGRUB_CMDLINE_LINUX_DEFAULT=\"quiet\"\n"), Mode: 0o644}

	eval, err := New(fake).Evaluate(context.Background(), lineUnit("/etc/default/grub", `GRUB_CMDLINE_LINUX_DEFAULT="quiet"`, ""))
	require.NoError(t, err)
	assert.True(t, eval.Satisfied)
}

func TestAppendWhenLineAbsent(t *testing.T) {
	fake := system.NewFake()
	fake.Files["/etc/sysctl.conf"] = &system.FakeFile{Data: []byte("vm.swappiness = 60\n"), Mode: 0o644}

	h := New(fake)
	u := lineUnit("/etc/sysctl.conf", "vm.swappiness = 10", "")

	eval, err := h.Evaluate(context.Background(), u)
	require.NoError(t, err)
	require.False(t, eval.Satisfied)

	res, err := h.Apply(context.Background(), eval, u)
	require.NoError(t, err)
	assert.Contains(t, res.Message, "appended")

	content := string(fake.Files["/etc/sysctl.conf"].Data)
	assert.Equal(t, "vm.swappiness = 60\nvm.swappiness = 10\n", content)
}

func TestReplaceViaPattern(t *testing.T) {
	fake := system.NewFake()
	fake.Files["/etc/ssh/sshd_config"] = &system.FakeFile{Data: []byte("Port 22\n#PasswordAuthentication yes\n"), Mode: 0o644}

	h := New(fake)
	u := lineUnit("/etc/ssh/sshd_config", "PasswordAuthentication no", `^#?PasswordAuthentication\s`)

	eval, err := h.Evaluate(context.Background(), u)
	require.NoError(t, err)
	require.False(t, eval.Satisfied)
	assert.Contains(t, eval.Diff, "-#PasswordAuthentication yes")

	_, err = h.Apply(context.Background(), eval, u)
	require.NoError(t, err)

	content := string(fake.Files["/etc/ssh/sshd_config"].Data)
	assert.Equal(t, "Port 22\nPasswordAuthentication no\n", content)
}

func TestCreatesMissingFile(t *testing.T) {
	fake := system.NewFake()

	h := New(fake)
	u := lineUnit("/etc/vconsole.conf", "KEYMAP=us", "")

	eval, err := h.Evaluate(context.Background(), u)
	require.NoError(t, err)
	require.False(t, eval.Satisfied)

	_, err = h.Apply(context.Background(), eval, u)
	require.NoError(t, err)
	assert.Equal(t, "KEYMAP=us\n", string(fake.Files["/etc/vconsole.conf"].Data))
}

func TestApplyIsIdempotent(t *testing.T) {
	// The guard contract: after one apply the line is present exactly once,
	// and a second evaluate-then-apply cycle changes nothing.
	fake := system.NewFake()
	fake.Files["/etc/sysctl.conf"] = &system.FakeFile{Data: []byte("fs.inotify.max_user_watches = 8192\n"), Mode: 0o644}

	h := New(fake)
	u := lineUnit("/etc/sysctl.conf", "vm.swappiness = 10", "")

	for i := 0; i < 2; i++ {
		eval, err := h.Evaluate(context.Background(), u)
		require.NoError(t, err)
		if !eval.Satisfied {
			_, err = h.Apply(context.Background(), eval, u)
			require.NoError(t, err)
		}
	}

	content := string(fake.Files["/etc/sysctl.conf"].Data)
	assert.Equal(t, 1, strings.Count(content, "vm.swappiness = 10"))
}

func TestApplyWithoutEvalDataReEvaluates(t *testing.T) {
	fake := system.NewFake()
	fake.Files["/etc/sysctl.conf"] = &system.FakeFile{Data: []byte("vm.swappiness = 10\n"), Mode: 0o644}

	h := New(fake)
	u := lineUnit("/etc/sysctl.conf", "vm.swappiness = 10", "")

	res, err := h.Apply(context.Background(), &model.Evaluation{UnitID: u.ID}, u)
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeSatisfied, res.Outcome)
	assert.Equal(t, "vm.swappiness = 10\n", string(fake.Files["/etc/sysctl.conf"].Data))
}
