// Package compiler turns a BuildJob into a compiler invocation and decides
// whether it succeeded.
//
// Vendor compilers are noisy: some print warnings to stderr and return a
// non-zero code while still producing a usable binary. A compile therefore
// counts as successful when the compiler exits 0 or the expected artifact
// exists afterwards. The artifact is deleted before each attempt, so an old
// binary never turns a failed compile into a success.
package compiler

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/mrz1836/crucible/internal/clock"
	"github.com/mrz1836/crucible/internal/constants"
	"github.com/mrz1836/crucible/internal/domain"
	"github.com/mrz1836/crucible/internal/envsnap"
	"github.com/mrz1836/crucible/internal/errors"
	"github.com/mrz1836/crucible/internal/process"
	"github.com/mrz1836/crucible/internal/toolchain"
)

// Toolchains is the registry view the invoker needs.
type Toolchains interface {
	Get(name domain.Toolchain) toolchain.Identity
	Probe(id toolchain.Identity) bool
}

// Snapshots is the isolator view the invoker needs.
type Snapshots interface {
	Resolve(ctx context.Context, id toolchain.Identity) (*envsnap.Snapshot, error)
	Activation(name domain.Toolchain) (envsnap.Activation, bool)
}

// Options tunes compile behavior.
type Options struct {
	IncludeDir         string
	ExtraFlags         []string
	CompileTimeout     time.Duration
	DemoCompileTimeout time.Duration
	DiagnosticLimit    int
	CleanOutput        bool
	// WorkDir is the compiler's working directory. Empty means the current one.
	WorkDir string
}

// Invoker compiles jobs in their toolchain's isolated environment.
type Invoker struct {
	toolchains Toolchains
	snapshots  Snapshots
	runner     process.Runner
	opts       Options
	clock      clock.Clock
}

// NewInvoker returns an Invoker.
func NewInvoker(toolchains Toolchains, snapshots Snapshots, runner process.Runner, opts Options) *Invoker {
	if opts.DiagnosticLimit <= 0 {
		opts.DiagnosticLimit = constants.DefaultDiagnosticLimit
	}
	if opts.CompileTimeout <= 0 {
		opts.CompileTimeout = constants.DefaultCompileTimeout
	}
	if opts.DemoCompileTimeout <= 0 {
		opts.DemoCompileTimeout = constants.DefaultDemoCompileTimeout
	}
	return &Invoker{
		toolchains: toolchains,
		snapshots:  snapshots,
		runner:     runner,
		opts:       opts,
		clock:      clock.RealClock{},
	}
}

// WithClock replaces the clock used for durations.
func (i *Invoker) WithClock(c clock.Clock) *Invoker {
	i.clock = c
	return i
}

// Command returns the full argv, compiler first, that Build would run for job.
func (i *Invoker) Command(job domain.BuildJob) ([]string, error) {
	id := i.toolchains.Get(job.Toolchain)
	args, err := i.args(job, id)
	if err != nil {
		return nil, err
	}
	return append([]string{id.Command}, args...), nil
}

func (i *Invoker) args(job domain.BuildJob, id toolchain.Identity) ([]string, error) {
	vocab := VocabularyFor(id.Family)
	modeFlags, err := vocab.ModeFlags(job.Mode)
	if err != nil {
		return nil, err
	}

	args := make([]string, 0, 16)
	args = append(args, vocab.Standard...)
	if i.opts.IncludeDir != "" {
		args = append(args, vocab.Include(i.opts.IncludeDir)...)
	}
	args = append(args, modeFlags...)
	if job.Kind == domain.KindDemos {
		args = append(args, vocab.Warnings...)
	}
	args = append(args, i.opts.ExtraFlags...)
	args = append(args, job.Source)
	args = append(args, vocab.Output(job.Output)...)

	// Sources that cannot be read are caught by Build before the compiler runs.
	if threaded, _ := NeedsThreading(job.Source); threaded {
		args = append(args, vocab.Threading(job.Toolchain)...)
	}
	return args, nil
}

// Build compiles job. Every failure is reported in the outcome; Build never
// returns an error and never panics on a missing toolchain.
func (i *Invoker) Build(ctx context.Context, job domain.BuildJob) domain.BuildOutcome {
	start := i.clock.Now()
	log := zerolog.Ctx(ctx).With().Str("job", job.Label()).Logger()

	outcome := i.build(ctx, job, &log)
	outcome.Job = job
	outcome.Duration = clock.Since(i.clock, start)
	outcome.Success = outcome.Status == domain.BuildSucceeded
	if outcome.Success {
		outcome.Output = job.Output
	}

	log.Debug().
		Str("status", string(outcome.Status)).
		Int("exit_code", outcome.ExitCode).
		Dur("duration", outcome.Duration).
		Msg("compile finished")
	return outcome
}

func (i *Invoker) build(ctx context.Context, job domain.BuildJob, log *zerolog.Logger) domain.BuildOutcome {
	if ctx.Err() != nil {
		return domain.BuildOutcome{Status: domain.BuildCanceled, ExitCode: -1, Diagnostic: ctx.Err().Error()}
	}

	if _, err := os.Stat(job.Source); err != nil {
		return domain.BuildOutcome{
			Status:     domain.BuildSourceNotFound,
			ExitCode:   -1,
			Diagnostic: fmt.Sprintf("%s: %s", errors.ErrSourceNotFound, job.Source),
		}
	}

	id := i.toolchains.Get(job.Toolchain)
	if !i.available(id) {
		return domain.BuildOutcome{
			Status:     domain.BuildToolchainUnavailable,
			ExitCode:   -1,
			Diagnostic: fmt.Sprintf("%s not found", id.Name),
		}
	}

	snap, err := i.snapshots.Resolve(ctx, id)
	if err == nil {
		err = snap.Check(id.Name)
	}
	if err != nil {
		status := domain.BuildDetectionFailed
		switch {
		case ctx.Err() != nil:
			status = domain.BuildCanceled
		case stderrors.Is(err, errors.ErrToolchainUnavailable):
			status = domain.BuildToolchainUnavailable
		}
		return domain.BuildOutcome{Status: status, ExitCode: -1, Diagnostic: i.truncate(err.Error())}
	}

	args, err := i.args(job, id)
	if err != nil {
		return domain.BuildOutcome{Status: domain.BuildCompileFailed, ExitCode: -1, Diagnostic: err.Error()}
	}
	command := append([]string{id.Command}, args...)

	if err := i.prepareOutput(job.Output); err != nil {
		return domain.BuildOutcome{Status: domain.BuildCompileFailed, ExitCode: -1, Diagnostic: err.Error(), Command: command}
	}

	timeout := i.opts.CompileTimeout
	if job.Kind == domain.KindDemos {
		timeout = i.opts.DemoCompileTimeout
	}

	res, err := i.runner.Run(ctx, process.Spec{
		Path:    id.Command,
		Args:    args,
		Dir:     i.opts.WorkDir,
		Env:     snap.Environ(),
		Timeout: timeout,
	})
	outcome := domain.BuildOutcome{ExitCode: res.ExitCode, Command: command}

	switch {
	case stderrors.Is(err, errors.ErrTimeout):
		outcome.Status = domain.BuildTimedOut
		outcome.Diagnostic = fmt.Sprintf("compile exceeded %s", timeout)
		return outcome
	case err != nil && ctx.Err() != nil:
		outcome.Status = domain.BuildCanceled
		outcome.Diagnostic = ctx.Err().Error()
		return outcome
	case err != nil:
		outcome.Status = domain.BuildCompileFailed
		outcome.Diagnostic = i.truncate(err.Error())
		return outcome
	}

	if res.ExitCode == 0 || fileExists(job.Output) {
		if res.ExitCode != 0 {
			log.Warn().Int("exit_code", res.ExitCode).Msg("compiler reported failure but produced the artifact")
		}
		outcome.Status = domain.BuildSucceeded
		return outcome
	}

	outcome.Status = domain.BuildCompileFailed
	diag := res.Stderr
	if strings.TrimSpace(diag) == "" {
		diag = res.Stdout
	}
	outcome.Diagnostic = i.truncate(diag)
	return outcome
}

// available reports whether id can be used. The native toolchain is trusted;
// others must be on PATH or have an activation script that will put them there.
func (i *Invoker) available(id toolchain.Identity) bool {
	if id.Native || i.toolchains.Probe(id) {
		return true
	}
	_, ok := i.snapshots.Activation(id.Name)
	return ok
}

func (i *Invoker) prepareOutput(output string) error {
	if err := os.MkdirAll(filepath.Dir(output), constants.DirPerm); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if !i.opts.CleanOutput {
		return nil
	}
	if err := os.Remove(output); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove stale artifact: %w", err)
	}
	return nil
}

func (i *Invoker) truncate(s string) string {
	return TruncateDiagnostic(s, i.opts.DiagnosticLimit)
}

// TruncateDiagnostic keeps the first limit characters of s, marking a cut with "…".
func TruncateDiagnostic(s string, limit int) string {
	s = strings.TrimSpace(s)
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit]) + "…"
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
