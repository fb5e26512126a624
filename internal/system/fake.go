package system

import (
	"context"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
	"time"
)

// Fake is an in-memory System used by tests. Commands are scripted by their
// rendered command line; unscripted commands succeed with empty output.
type Fake struct {
	UID      int
	Files    map[string]*FakeFile
	Binaries map[string]string

	results map[string]CmdResult
	errs    map[string]error
	Calls   []string
}

// FakeFile is one entry in the fake filesystem.
type FakeFile struct {
	Data []byte
	Mode fs.FileMode
}

var _ System = (*Fake)(nil)

// NewFake creates an empty fake running as root.
func NewFake() *Fake {
	return &Fake{
		Files:    make(map[string]*FakeFile),
		Binaries: make(map[string]string),
		results:  make(map[string]CmdResult),
		errs:     make(map[string]error),
	}
}

// Script registers the result returned when the given command line runs.
func (f *Fake) Script(cmdline string, res CmdResult) {
	f.results[cmdline] = res
}

// ScriptErr registers an error returned when the given command line runs.
func (f *Fake) ScriptErr(cmdline string, err error) {
	f.errs[cmdline] = err
}

// Ran reports whether a command line matching the prefix was executed.
func (f *Fake) Ran(prefix string) bool {
	for _, call := range f.Calls {
		if strings.HasPrefix(call, prefix) {
			return true
		}
	}
	return false
}

func (f *Fake) Run(ctx context.Context, cmd Cmd) (CmdResult, error) {
	if err := ctx.Err(); err != nil {
		return CmdResult{}, err
	}

	line := Cmdline(cmd)
	f.Calls = append(f.Calls, line)

	if err, ok := f.errs[line]; ok {
		return CmdResult{}, err
	}
	if res, ok := f.results[line]; ok {
		return res, nil
	}
	return CmdResult{}, nil
}

func (f *Fake) RunStreaming(ctx context.Context, cmd Cmd) (CmdResult, error) {
	return f.Run(ctx, cmd)
}

func (f *Fake) LookPath(name string) (string, error) {
	if p, ok := f.Binaries[name]; ok {
		return p, nil
	}
	return "", &fs.PathError{Op: "lookpath", Path: name, Err: fs.ErrNotExist}
}

func (f *Fake) ReadFile(p string) ([]byte, error) {
	file, ok := f.Files[p]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: p, Err: fs.ErrNotExist}
	}
	return append([]byte(nil), file.Data...), nil
}

func (f *Fake) WriteFile(p string, data []byte, perm fs.FileMode) error {
	f.Files[p] = &FakeFile{Data: append([]byte(nil), data...), Mode: perm}
	return nil
}

func (f *Fake) Stat(p string) (fs.FileInfo, error) {
	if file, ok := f.Files[p]; ok {
		return &fakeInfo{name: path.Base(p), size: int64(len(file.Data)), mode: file.Mode}, nil
	}

	// A directory exists when any file lives under it.
	prefix := strings.TrimSuffix(p, "/") + "/"
	for name := range f.Files {
		if strings.HasPrefix(name, prefix) {
			return &fakeInfo{name: path.Base(p), mode: fs.ModeDir | 0o755, dir: true}, nil
		}
	}
	return nil, &fs.PathError{Op: "stat", Path: p, Err: fs.ErrNotExist}
}

func (f *Fake) MkdirAll(p string, perm fs.FileMode) error {
	return nil
}

func (f *Fake) EffectiveUID() int {
	return f.UID
}

// SortedPaths returns the fake filesystem's paths in stable order, useful
// for asserting on written files.
func (f *Fake) SortedPaths() []string {
	paths := make([]string, 0, len(f.Files))
	for p := range f.Files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Cmdline renders a Cmd the way Script expects it.
func Cmdline(cmd Cmd) string {
	parts := append([]string{cmd.Name}, cmd.Args...)
	return strings.Join(parts, " ")
}

type fakeInfo struct {
	name string
	size int64
	mode fs.FileMode
	dir  bool
}

func (i *fakeInfo) Name() string       { return i.name }
func (i *fakeInfo) Size() int64        { return i.size }
func (i *fakeInfo) Mode() fs.FileMode  { return i.mode }
func (i *fakeInfo) ModTime() time.Time { return time.Time{} }
func (i *fakeInfo) IsDir() bool        { return i.dir }
func (i *fakeInfo) Sys() any           { return nil }

var _ os.FileInfo = (*fakeInfo)(nil)
