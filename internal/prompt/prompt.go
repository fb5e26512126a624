package prompt

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"
)

// Confirmer asks the operator to approve applying a unit. Implementations
// must treat anything other than an affirmative answer as a decline.
type Confirmer interface {
	Confirm(ctx context.Context, title, description string) (bool, error)
}

// Func adapts a function to the Confirmer interface, mostly for tests.
type Func func(ctx context.Context, title, description string) (bool, error)

// Confirm calls the wrapped function.
func (f Func) Confirm(ctx context.Context, title, description string) (bool, error) {
	return f(ctx, title, description)
}

// AssumeYes returns a Confirmer that approves everything, used for the
// --yes flag and non-interactive runs.
func AssumeYes() Confirmer {
	return Func(func(context.Context, string, string) (bool, error) {
		return true, nil
	})
}

// New picks the right interactive Confirmer for the given input stream: a
// form when it is a terminal, a plain y/n line reader otherwise.
func New(in *os.File, out io.Writer) Confirmer {
	if term.IsTerminal(int(in.Fd())) {
		return &formConfirmer{}
	}
	return NewReader(in, out)
}

type formConfirmer struct{}

func (f *formConfirmer) Confirm(ctx context.Context, title, description string) (bool, error) {
	var confirmed bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Description(description).
				Affirmative("Apply").
				Negative("Skip").
				Value(&confirmed),
		),
	)

	if err := form.RunWithContext(ctx); err != nil {
		return false, err
	}
	return confirmed, nil
}

// NewReader returns a Confirmer reading y/n answers line by line. Only "y"
// and "yes" count as approval; anything else, including EOF, declines.
func NewReader(in io.Reader, out io.Writer) Confirmer {
	return &readerConfirmer{scanner: bufio.NewScanner(in), out: out}
}

type readerConfirmer struct {
	scanner *bufio.Scanner
	out     io.Writer
}

func (r *readerConfirmer) Confirm(ctx context.Context, title, description string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	if description != "" {
		fmt.Fprintf(r.out, "%s\n  %s\n", title, description)
	} else {
		fmt.Fprintln(r.out, title)
	}
	fmt.Fprint(r.out, "Apply? [y/N] ")

	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return false, err
		}
		return false, nil
	}

	answer := strings.ToLower(strings.TrimSpace(r.scanner.Text()))
	return answer == "y" || answer == "yes", nil
}
