package prompt

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssumeYes(t *testing.T) {
	ok, err := AssumeYes().Confirm(context.Background(), "Mount data drive", "")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestReaderAffirmativeTokens(t *testing.T) {
	cases := map[string]bool{
		"y\n":     true,
		"Y\n":     true,
		"yes\n":   true,
		"YES\n":   true,
		"n\n":     false,
		"no\n":    false,
		"\n":      false,
		"maybe\n": false,
		"yep\n":   false,
	}

	for input, want := range cases {
		var out bytes.Buffer
		c := NewReader(strings.NewReader(input), &out)

		ok, err := c.Confirm(context.Background(), "Enable sshd", "systemctl enable --now sshd")
		require.NoError(t, err, "input %q", input)
		assert.Equal(t, want, ok, "input %q", input)
	}
}

func TestReaderPromptsWithTitle(t *testing.T) {
	var out bytes.Buffer
	c := NewReader(strings.NewReader("y\n"), &out)

	_, err := c.Confirm(context.Background(), "Enable sshd", "enables the OpenSSH daemon")
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Enable sshd")
	assert.Contains(t, out.String(), "enables the OpenSSH daemon")
	assert.Contains(t, out.String(), "[y/N]")
}

func TestReaderEOFDeclines(t *testing.T) {
	var out bytes.Buffer
	c := NewReader(strings.NewReader(""), &out)

	ok, err := c.Confirm(context.Background(), "Enable sshd", "")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReaderSequentialAnswers(t *testing.T) {
	var out bytes.Buffer
	c := NewReader(strings.NewReader("y\nn\ny\n"), &out)

	answers := make([]bool, 0, 3)
	for i := 0; i < 3; i++ {
		ok, err := c.Confirm(context.Background(), "unit", "")
		require.NoError(t, err)
		answers = append(answers, ok)
	}
	assert.Equal(t, []bool{true, false, true}, answers)
}

func TestReaderCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	c := NewReader(strings.NewReader("y\n"), &out)

	_, err := c.Confirm(ctx, "unit", "")
	require.Error(t, err)
}
