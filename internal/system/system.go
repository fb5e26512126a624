package system

import (
	"context"
	"io/fs"
)

// Cmd describes one external command invocation.
type Cmd struct {
	Name string
	Args []string
	Dir  string
	Env  map[string]string
}

// CmdResult captures the output of a finished command. ExitCode is zero on
// success; Run only returns an error when the command could not be started
// or was cancelled, never for a plain non-zero exit.
type CmdResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Output returns stderr when present, otherwise stdout. Failed package
// managers tend to put the interesting part on stderr.
func (r CmdResult) Output() string {
	if r.Stderr != "" {
		return r.Stderr
	}
	return r.Stdout
}

// Succeeded reports whether the command exited zero.
func (r CmdResult) Succeeded() bool {
	return r.ExitCode == 0
}

// System is the capability every unit uses to inspect and mutate the live
// machine. Guards must only call the read-only subset. Injecting it keeps
// units testable against an in-memory fake.
type System interface {
	// Run executes a command and captures its output.
	Run(ctx context.Context, cmd Cmd) (CmdResult, error)

	// RunStreaming executes a command, mirroring its output to the
	// operator's terminal while still capturing it for error reporting.
	RunStreaming(ctx context.Context, cmd Cmd) (CmdResult, error)

	// LookPath reports the absolute path of an executable on PATH.
	LookPath(name string) (string, error)

	ReadFile(path string) ([]byte, error)
	WriteFile(path string, data []byte, perm fs.FileMode) error
	Stat(path string) (fs.FileInfo, error)
	MkdirAll(path string, perm fs.FileMode) error

	// EffectiveUID returns the effective user id of the current process.
	EffectiveUID() int
}
