package lineinfileunit

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"strings"

	"github.com/provd/provd/internal/config"
	"github.com/provd/provd/internal/model"
	"github.com/provd/provd/internal/system"
	"github.com/provd/provd/internal/unit"
	provderrors "github.com/provd/provd/pkg/errors"
)

const defaultFileMode fs.FileMode = 0o644

type lineInFileUnit struct {
	sys system.System
}

// New creates the handler for line_in_file units.
func New(sys system.System) unit.Handler {
	return &lineInFileUnit{sys: sys}
}

var _ unit.Handler = (*lineInFileUnit)(nil)

func (l *lineInFileUnit) Metadata() unit.Metadata {
	return unit.Metadata{
		Type:        "line_in_file",
		Description: "Ensures a specific line exists within a file.",
	}
}

type lineAction string

const (
	actionAppend  lineAction = "append"
	actionReplace lineAction = "replace"
)

type lineEvalData struct {
	Lines    []string
	Trailing bool
	Exists   bool
	Mode     fs.FileMode
	Action   lineAction
	Index    int
}

func (l *lineInFileUnit) Evaluate(ctx context.Context, u *config.Unit) (*model.Evaluation, error) {
	cfg := u.LineInFile
	if cfg == nil {
		return nil, provderrors.NewValidationError(u.ID, "line_in_file configuration missing", nil)
	}

	data := &lineEvalData{Mode: defaultFileMode, Index: -1}

	raw, err := l.sys.ReadFile(cfg.File)
	switch {
	case err == nil:
		data.Exists = true
		data.Lines, data.Trailing = splitLines(string(raw))
		if info, statErr := l.sys.Stat(cfg.File); statErr == nil {
			data.Mode = info.Mode().Perm()
		}
	case errors.Is(err, fs.ErrNotExist):
		// Missing file: the line will be appended to a fresh one.
	default:
		return nil, provderrors.NewGuardError(u.ID, fmt.Errorf("read %s: %w", cfg.File, err))
	}

	var pattern *regexp.Regexp
	if cfg.Pattern != "" {
		pattern, err = regexp.Compile(cfg.Pattern)
		if err != nil {
			return nil, provderrors.NewValidationError(u.ID, fmt.Sprintf("invalid pattern: %v", err), err)
		}
	}

	for i, line := range data.Lines {
		if line == cfg.Line {
			return &model.Evaluation{
				UnitID:    u.ID,
				Satisfied: true,
				Message:   fmt.Sprintf("%s already contains the line", cfg.File),
			}, nil
		}
		if pattern != nil && data.Index < 0 && pattern.MatchString(line) {
			data.Index = i
		}
	}

	if data.Index >= 0 {
		data.Action = actionReplace
		return &model.Evaluation{
			UnitID:    u.ID,
			Satisfied: false,
			Message:   fmt.Sprintf("%s has a line matching the pattern that needs replacing", cfg.File),
			Diff:      fmt.Sprintf("-%s\n+%s", data.Lines[data.Index], cfg.Line),
			Internal:  data,
		}, nil
	}

	data.Action = actionAppend
	return &model.Evaluation{
		UnitID:    u.ID,
		Satisfied: false,
		Message:   fmt.Sprintf("%s is missing the line", cfg.File),
		Diff:      fmt.Sprintf("+%s", cfg.Line),
		Internal:  data,
	}, nil
}

func (l *lineInFileUnit) Apply(ctx context.Context, eval *model.Evaluation, u *config.Unit) (*model.UnitResult, error) {
	cfg := u.LineInFile
	if cfg == nil {
		return nil, provderrors.NewValidationError(u.ID, "line_in_file configuration missing", nil)
	}

	data, ok := eval.Internal.(*lineEvalData)
	if !ok {
		// Stale or missing evaluation data: re-evaluate to stay idempotent.
		fresh, err := l.Evaluate(ctx, u)
		if err != nil {
			return nil, err
		}
		if fresh.Satisfied {
			return &model.UnitResult{
				UnitID:  u.ID,
				Outcome: model.OutcomeSatisfied,
				Message: fresh.Message,
			}, nil
		}
		data = fresh.Internal.(*lineEvalData)
	}

	lines := append([]string(nil), data.Lines...)
	action := "appended"
	switch data.Action {
	case actionReplace:
		lines[data.Index] = cfg.Line
		action = "replaced"
	default:
		lines = append(lines, cfg.Line)
	}

	trailing := data.Trailing || !data.Exists
	content := joinLines(lines, trailing)

	if err := l.sys.WriteFile(cfg.File, []byte(content), data.Mode); err != nil {
		return failedResult(u.ID, err), provderrors.NewApplyError(u.ID, "", err)
	}

	return &model.UnitResult{
		UnitID:  u.ID,
		Outcome: model.OutcomeApplied,
		Message: fmt.Sprintf("%s line in %s", action, cfg.File),
	}, nil
}

func splitLines(content string) ([]string, bool) {
	if content == "" {
		return []string{}, false
	}
	trailing := strings.HasSuffix(content, "\n")
	trimmed := strings.TrimSuffix(content, "\n")
	if trimmed == "" {
		return []string{}, trailing
	}
	return strings.Split(trimmed, "\n"), trailing
}

func joinLines(lines []string, trailing bool) string {
	if len(lines) == 0 {
		if trailing {
			return "\n"
		}
		return ""
	}
	joined := strings.Join(lines, "\n")
	if trailing {
		return joined + "\n"
	}
	return joined
}

func failedResult(unitID string, err error) *model.UnitResult {
	return &model.UnitResult{
		UnitID:  unitID,
		Outcome: model.OutcomeFailed,
		Message: err.Error(),
		Error:   err,
	}
}
