package system

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Local is the real System implementation backed by os/exec and the host
// filesystem.
type Local struct {
	// Stdout and Stderr receive streamed command output. They default to
	// the process's own streams.
	Stdout io.Writer
	Stderr io.Writer
}

var _ System = (*Local)(nil)

// NewLocal creates a System that operates on the live machine.
func NewLocal() *Local {
	return &Local{Stdout: os.Stdout, Stderr: os.Stderr}
}

func (l *Local) Run(ctx context.Context, cmd Cmd) (CmdResult, error) {
	c := buildCmd(ctx, cmd)

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	err := c.Run()
	return finishRun(ctx, stdout.String(), stderr.String(), err)
}

func (l *Local) RunStreaming(ctx context.Context, cmd Cmd) (CmdResult, error) {
	c := buildCmd(ctx, cmd)

	outSink := l.Stdout
	if outSink == nil {
		outSink = os.Stdout
	}
	errSink := l.Stderr
	if errSink == nil {
		errSink = os.Stderr
	}

	var stdout, stderr bytes.Buffer
	c.Stdout = io.MultiWriter(outSink, &stdout)
	c.Stderr = io.MultiWriter(errSink, &stderr)

	err := c.Run()
	return finishRun(ctx, stdout.String(), stderr.String(), err)
}

func (l *Local) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

func (l *Local) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// WriteFile writes via a temp file in the target directory followed by a
// rename, so a crash mid-write never leaves a truncated config file behind.
func (l *Local) WriteFile(path string, data []byte, perm fs.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

func (l *Local) Stat(path string) (fs.FileInfo, error) {
	return os.Stat(path)
}

func (l *Local) MkdirAll(path string, perm fs.FileMode) error {
	return os.MkdirAll(path, perm)
}

func (l *Local) EffectiveUID() int {
	return os.Geteuid()
}

func buildCmd(ctx context.Context, cmd Cmd) *exec.Cmd {
	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	if cmd.Dir != "" {
		c.Dir = cmd.Dir
	}
	if len(cmd.Env) > 0 {
		env := os.Environ()
		for k, v := range cmd.Env {
			env = append(env, fmt.Sprintf("%s=%s", k, v))
		}
		c.Env = env
	}
	return c
}

func finishRun(ctx context.Context, stdout, stderr string, err error) (CmdResult, error) {
	res := CmdResult{
		Stdout: strings.TrimSpace(stdout),
		Stderr: strings.TrimSpace(stderr),
	}

	if err == nil {
		return res, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}

	return res, err
}
