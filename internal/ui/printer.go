package ui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/provd/provd/internal/model"
)

// Printer renders per-unit progress lines and the final run summary.
// Styling is resolved against the output writer, so piping the output
// strips the colors automatically.
type Printer struct {
	out    io.Writer
	styles styles
}

type styles struct {
	satisfied  lipgloss.Style
	applied    lipgloss.Style
	declined   lipgloss.Style
	failed     lipgloss.Style
	wouldApply lipgloss.Style
	unitID     lipgloss.Style
	muted      lipgloss.Style
	heading    lipgloss.Style
}

// NewPrinter creates a printer writing to out.
func NewPrinter(out io.Writer) *Printer {
	r := lipgloss.NewRenderer(out)
	return &Printer{
		out: out,
		styles: styles{
			satisfied:  r.NewStyle().Foreground(lipgloss.Color("10")),
			applied:    r.NewStyle().Foreground(lipgloss.Color("10")).Bold(true),
			declined:   r.NewStyle().Foreground(lipgloss.Color("11")),
			failed:     r.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
			wouldApply: r.NewStyle().Foreground(lipgloss.Color("12")),
			unitID:     r.NewStyle().Bold(true),
			muted:      r.NewStyle().Foreground(lipgloss.Color("8")),
			heading:    r.NewStyle().Bold(true).Underline(true),
		},
	}
}

func (p *Printer) mark(outcome model.Outcome) string {
	switch outcome {
	case model.OutcomeSatisfied:
		return p.styles.satisfied.Render("✓")
	case model.OutcomeApplied:
		return p.styles.applied.Render("+")
	case model.OutcomeDeclined:
		return p.styles.declined.Render("-")
	case model.OutcomeFailed:
		return p.styles.failed.Render("✗")
	case model.OutcomeWouldApply:
		return p.styles.wouldApply.Render("~")
	default:
		return "?"
	}
}

// Result prints one line for a finished unit.
func (p *Printer) Result(res model.UnitResult) {
	line := fmt.Sprintf("%s %s", p.mark(res.Outcome), p.styles.unitID.Render(res.UnitID))
	if res.Message != "" {
		line += "  " + p.styles.muted.Render(res.Message)
	}
	fmt.Fprintln(p.out, line)

	if res.Outcome == model.OutcomeFailed && res.Output != "" {
		fmt.Fprintln(p.out, indent(res.Output))
	}
}

// Summary prints the final run summary block.
func (p *Printer) Summary(summary *model.RunSummary) {
	fmt.Fprintln(p.out)
	fmt.Fprintln(p.out, p.styles.heading.Render(fmt.Sprintf("%s: %s", summary.PlanName, statusLabel(summary.Status))))

	counts := make([]string, 0, 5)
	add := func(n int, label string, style lipgloss.Style) {
		if n > 0 {
			counts = append(counts, style.Render(fmt.Sprintf("%d %s", n, label)))
		}
	}
	add(summary.Satisfied, "satisfied", p.styles.satisfied)
	add(summary.Applied, "applied", p.styles.applied)
	add(summary.Planned, "would apply", p.styles.wouldApply)
	add(summary.Declined, "declined", p.styles.declined)
	add(summary.Failed, "failed", p.styles.failed)
	if len(counts) == 0 {
		counts = append(counts, p.styles.muted.Render("no units run"))
	}

	line := counts[0]
	for _, c := range counts[1:] {
		line += ", " + c
	}
	fmt.Fprintf(p.out, "%s  %s\n", line, p.styles.muted.Render("in "+summary.Duration.Round(time.Millisecond).String()))
}

func statusLabel(status model.RunStatus) string {
	switch status {
	case model.RunComplete:
		return "complete"
	case model.RunUserLimited:
		return "complete (some units declined)"
	case model.RunPartial:
		return "aborted"
	default:
		return string(status)
	}
}

func indent(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, line := range lines {
		lines[i] = "    " + line
	}
	return strings.Join(lines, "\n")
}
