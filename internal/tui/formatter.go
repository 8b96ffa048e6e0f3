package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/mrz1836/crucible/internal/domain"
)

// Formatter renders build and run results as status cells. It holds no
// state, so one Formatter can serve concurrent jobs.
type Formatter struct {
	color bool
}

// NewFormatter returns a Formatter. With color false every method returns
// plain text.
func NewFormatter(color bool) Formatter {
	return Formatter{color: color}
}

// BuildStatus renders "<icon> <status>" and its unstyled twin.
func (f Formatter) BuildStatus(status domain.BuildStatus) (styled, plain string) {
	plain = BuildStatusIcon(status) + " " + string(status)
	return f.paint(plain, BuildStatusColor(status)), plain
}

// RunOutcome renders "<icon> <outcome>" and its unstyled twin.
func (f Formatter) RunOutcome(outcome domain.RunOutcome) (styled, plain string) {
	plain = RunOutcomeIcon(outcome) + " " + string(outcome)
	return f.paint(plain, RunOutcomeColor(outcome)), plain
}

// BuildDetail is the trailing column for a compile: the artifact on success,
// the first line of the diagnostic otherwise.
func (f Formatter) BuildDetail(o domain.BuildOutcome) string {
	if o.Success {
		return o.Output
	}
	return firstLine(o.Diagnostic)
}

// RunDetail is the trailing column for a run.
func (f Formatter) RunDetail(r domain.RunResult) string {
	switch r.Outcome {
	case domain.RunPassed:
		return ""
	case domain.RunNotFound:
		return r.ArtifactPath
	case domain.RunFailed:
		detail := firstLine(r.Stderr)
		if detail == "" {
			detail = firstLine(r.Stdout)
		}
		return fmt.Sprintf("exit %d %s", r.ExitCode, detail)
	default:
		return firstLine(r.Stderr)
	}
}

// Duration renders d rounded for humans; zero renders as "-".
func Duration(d time.Duration) string {
	switch {
	case d <= 0:
		return "-"
	case d < time.Millisecond:
		return d.Round(time.Microsecond).String()
	case d < time.Second:
		return d.Round(time.Millisecond).String()
	default:
		return d.Round(10 * time.Millisecond).String()
	}
}

func (f Formatter) paint(s string, c lipgloss.AdaptiveColor) string {
	if !f.color {
		return s
	}
	return lipgloss.NewStyle().Foreground(c).Render(s)
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}
