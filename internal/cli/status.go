package cli

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mrz1836/crucible/internal/compiler"
	"github.com/mrz1836/crucible/internal/domain"
	"github.com/mrz1836/crucible/internal/errors"
	"github.com/mrz1836/crucible/internal/orchestrator"
	"github.com/mrz1836/crucible/internal/tui"
)

// statusColumns are the live status line columns.
//
//nolint:gochecknoglobals // fixed layout
var statusColumns = []tui.TableColumn{
	{Name: "STEP", Width: 5},
	{Name: "STATUS", Width: 23},
	{Name: "JOB", Width: 38},
	{Name: "TIME", Width: 9, Align: tui.AlignRight},
	{Name: "DETAIL", Width: 60},
}

// statusPrinter writes one line per finished compile or run. Jobs finish
// concurrently under --jobs, so writes are serialized.
type statusPrinter struct {
	mu        sync.Mutex
	table     *tui.Table
	formatter tui.Formatter
	started   bool
}

func newStatusPrinter(w io.Writer) *statusPrinter {
	return &statusPrinter{
		table:     tui.NewTable(w, statusColumns),
		formatter: tui.NewFormatter(colorEnabled(w)),
	}
}

// BuildFinished implements orchestrator.Observer.
func (p *statusPrinter) BuildFinished(o domain.BuildOutcome) {
	styled, plain := p.formatter.BuildStatus(o.Status)
	p.write([]string{"build", plain, o.Job.Label(), tui.Duration(o.Duration), p.formatter.BuildDetail(o)}, styled, plain)
}

// RunFinished implements orchestrator.Observer.
func (p *statusPrinter) RunFinished(r domain.RunResult) {
	var d time.Duration
	if r.Duration != nil {
		d = *r.Duration
	}
	styled, plain := p.formatter.RunOutcome(r.Outcome)
	p.write([]string{runStep(r.Job.Kind), plain, r.Job.Label(), tui.Duration(d), p.formatter.RunDetail(r)}, styled, plain)
}

func (p *statusPrinter) write(values []string, styled, plain string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started {
		p.table.WriteHeader()
		p.started = true
	}
	p.table.WriteStyledRow(values, 1, styled, plain)
}

func runStep(kind domain.Kind) string {
	switch kind {
	case domain.KindTests:
		return "test"
	case domain.KindBenchs:
		return "bench"
	default:
		return "run"
	}
}

// colorEnabled reports whether w is a terminal that accepts colors.
func colorEnabled(w io.Writer) bool {
	return tui.HasColorSupport() && isTerminalWriter(w)
}

// isTerminalWriter reports whether w writes to a terminal.
func isTerminalWriter(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd())) //nolint:gosec // fd fits in int
}

// summaryJSON is the machine-readable result of a matrix pass.
type summaryJSON struct {
	Command string `json:"command"`
	OK      bool   `json:"ok"`
	RunID   string `json:"run_id"`
	orchestrator.Summary
}

// renderSummary prints the final table, the counts and the diagnostics of
// failed jobs, and returns the pass's error. The error is already on screen,
// so cobra is told not to print it again.
func (a *app) renderSummary(cmd *cobra.Command, s orchestrator.Summary) error {
	err := s.Err()
	if err != nil {
		cmd.SilenceErrors = true
	}

	if a.flags.Output == OutputJSON {
		if jerr := a.out.JSON(summaryJSON{Command: cmd.Name(), OK: s.OK(), RunID: a.collector.RunID(), Summary: s}); jerr != nil {
			return jerr
		}
		return err
	}

	if len(s.Entries) == 0 {
		a.out.Error(err)
		return err
	}

	if !a.flags.Quiet {
		_, _ = fmt.Fprintln(a.w)
		a.out.Section("summary")
		a.out.Table([]string{"JOB", "BUILD", "RUN", "BUILD TIME", "RUN TIME"}, summaryRows(s))
		_, _ = fmt.Fprintln(a.w)
	}

	counts := fmt.Sprintf("%d built, %d failed to build, %d runs passed, %d runs failed",
		s.Built, s.BuildFailed, s.Passed, s.Failed)
	if err == nil {
		a.out.Success(counts)
		return nil
	}
	a.out.Error(fmt.Errorf("%s: %w", counts, errors.ErrJobsFailed))
	a.writeDiagnostics(s)
	return err
}

func summaryRows(s orchestrator.Summary) [][]string {
	f := tui.NewFormatter(false)
	rows := make([][]string, 0, len(s.Entries))
	for _, e := range s.Entries {
		_, build := f.BuildStatus(e.Build.Status)
		rows = append(rows, []string{e.Job.Label(), build, runCell(f, e.Runs), tui.Duration(e.Build.Duration), tui.Duration(meanDuration(e.Runs))})
	}
	return rows
}

// runCell collapses repeated runs into "✓ 3/3 passed".
func runCell(f tui.Formatter, runs []domain.RunResult) string {
	switch len(runs) {
	case 0:
		return "-"
	case 1:
		_, plain := f.RunOutcome(runs[0].Outcome)
		return plain
	}
	passed := 0
	for _, r := range runs {
		if r.Passed() {
			passed++
		}
	}
	outcome := domain.RunPassed
	if passed != len(runs) {
		outcome = domain.RunFailed
	}
	return fmt.Sprintf("%s %d/%d passed", tui.RunOutcomeIcon(outcome), passed, len(runs))
}

func meanDuration(runs []domain.RunResult) time.Duration {
	var total time.Duration
	n := 0
	for _, r := range runs {
		if r.Duration != nil && r.Passed() {
			total += *r.Duration
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return total / time.Duration(n)
}

// writeDiagnostics prints the truncated compiler or program output of every
// failed job.
func (a *app) writeDiagnostics(s orchestrator.Summary) {
	limit := a.cfg.Build.DiagnosticLimit
	for _, e := range s.Entries {
		if e.OK() {
			continue
		}
		if !e.Build.Success {
			a.out.Warning(fmt.Sprintf("%s: %s", e.Job.Label(), e.Build.Status))
			if d := strings.TrimSpace(e.Build.Diagnostic); d != "" {
				_, _ = fmt.Fprintln(a.w, indent(compiler.TruncateDiagnostic(d, limit)))
			}
			continue
		}
		for _, r := range e.Runs {
			if r.Passed() {
				continue
			}
			a.out.Warning(fmt.Sprintf("%s: %s", e.Job.Label(), r.Outcome))
			output := strings.TrimSpace(r.Stderr + "\n" + r.Stdout)
			if r.Outcome == domain.RunNotFound {
				output = "expected " + r.ArtifactPath
			}
			if output != "" {
				_, _ = fmt.Fprintln(a.w, indent(compiler.TruncateDiagnostic(output, limit)))
			}
		}
	}
}

func indent(s string) string {
	return "    " + strings.ReplaceAll(s, "\n", "\n    ")
}

// reportError renders err as JSON in JSON mode, so scripts always get a
// parseable document, and keeps the chain intact for exit code mapping.
func reportError(cmd *cobra.Command, flags *GlobalFlags, err error) error {
	if err == nil || flags.Output != OutputJSON || stderrors.Is(err, errors.ErrJSONErrorOutput) {
		return err
	}
	if cmd.SilenceErrors {
		return err
	}
	tui.NewOutput(cmd.OutOrStdout(), OutputJSON).Error(err)
	cmd.SilenceErrors = true
	return fmt.Errorf("%w: %w", errors.ErrJSONErrorOutput, err)
}
