// Package runner executes built artifacts in their toolchain's environment
// and classifies the result.
package runner

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/mrz1836/crucible/internal/clock"
	"github.com/mrz1836/crucible/internal/constants"
	"github.com/mrz1836/crucible/internal/domain"
	"github.com/mrz1836/crucible/internal/envsnap"
	"github.com/mrz1836/crucible/internal/errors"
	"github.com/mrz1836/crucible/internal/process"
	"github.com/mrz1836/crucible/internal/report"
	"github.com/mrz1836/crucible/internal/toolchain"
)

// Toolchains is the registry view the runner needs.
type Toolchains interface {
	Get(name domain.Toolchain) toolchain.Identity
}

// Snapshots is the isolator view the runner needs.
type Snapshots interface {
	Resolve(ctx context.Context, id toolchain.Identity) (*envsnap.Snapshot, error)
}

// Options holds per-kind time budgets.
type Options struct {
	TestTimeout  time.Duration
	BenchTimeout time.Duration
	DemoTimeout  time.Duration
	// WorkDir is the working directory of executed artifacts.
	WorkDir string
}

// Runner executes tests, benchmarks and demos.
type Runner struct {
	toolchains Toolchains
	snapshots  Snapshots
	proc       process.Runner
	sink       report.Sink
	opts       Options
	clock      clock.Clock
}

// New returns a Runner.
func New(toolchains Toolchains, snapshots Snapshots, proc process.Runner, opts Options) *Runner {
	if opts.TestTimeout <= 0 {
		opts.TestTimeout = constants.DefaultTestTimeout
	}
	if opts.BenchTimeout <= 0 {
		opts.BenchTimeout = constants.DefaultBenchTimeout
	}
	if opts.DemoTimeout <= 0 {
		opts.DemoTimeout = constants.DefaultDemoTimeout
	}
	return &Runner{
		toolchains: toolchains,
		snapshots:  snapshots,
		proc:       proc,
		opts:       opts,
		clock:      clock.RealClock{},
	}
}

// WithSink sets where benchmark records go.
func (r *Runner) WithSink(sink report.Sink) *Runner {
	r.sink = sink
	return r
}

// WithClock replaces the clock used for record timestamps.
func (r *Runner) WithClock(c clock.Clock) *Runner {
	r.clock = c
	return r
}

// RunTest executes a test suite. Output is kept only when it fails; the
// wall-clock time is kept either way.
func (r *Runner) RunTest(ctx context.Context, job domain.BuildJob) domain.RunResult {
	res, _ := r.run(ctx, job, r.opts.TestTimeout, nil, nil, nil)
	return res
}

// RunBenchmark executes a benchmark, times it and emits one record when it passes.
func (r *Runner) RunBenchmark(ctx context.Context, job domain.BuildJob) domain.RunResult {
	res, elapsed := r.run(ctx, job, r.opts.BenchTimeout, nil, nil, nil)
	if res.Passed() && r.sink != nil {
		r.sink.Add(report.NewRecord(job, elapsed, r.clock.Now()))
	}
	return res
}

// RunBenchmarkRepeated runs a benchmark up to n times, stopping at the first
// run that does not pass.
func (r *Runner) RunBenchmarkRepeated(ctx context.Context, job domain.BuildJob, n int) []domain.RunResult {
	if n < 1 {
		n = 1
	}
	results := make([]domain.RunResult, 0, n)
	for range n {
		res := r.RunBenchmark(ctx, job)
		results = append(results, res)
		if !res.Passed() {
			break
		}
	}
	return results
}

// RunDemo executes a demo with args forwarded verbatim and its output
// streamed to stdout and stderr. Nothing is captured.
func (r *Runner) RunDemo(ctx context.Context, job domain.BuildJob, args []string, stdout, stderr io.Writer) domain.RunResult {
	res, _ := r.run(ctx, job, r.opts.DemoTimeout, args, stdout, stderr)
	return res
}

func (r *Runner) run(ctx context.Context, job domain.BuildJob, timeout time.Duration, args []string, stdout, stderr io.Writer) (domain.RunResult, time.Duration) {
	log := zerolog.Ctx(ctx).With().Str("job", job.Label()).Logger()
	result := domain.RunResult{Job: job, ArtifactPath: job.Output}

	path, err := filepath.Abs(job.Output)
	if err != nil {
		path = job.Output
	}
	if info, statErr := os.Stat(path); statErr != nil || info.IsDir() {
		result.Outcome = domain.RunNotFound
		result.ExitCode = -1
		result.Stderr = fmt.Sprintf("%s: %s", errors.ErrArtifactNotFound, job.Output)
		log.Debug().Str("path", job.Output).Msg("artifact not found")
		return result, 0
	}

	id := r.toolchains.Get(job.Toolchain)
	snap, err := r.snapshots.Resolve(ctx, id)
	if err == nil {
		err = snap.Check(id.Name)
	}
	if err != nil {
		result.Outcome = domain.RunFailed
		result.ExitCode = -1
		result.Stderr = err.Error()
		return result, 0
	}

	streaming := stdout != nil || stderr != nil
	res, err := r.proc.Run(ctx, process.Spec{
		Path:    path,
		Args:    args,
		Dir:     r.opts.WorkDir,
		Env:     snap.Environ(),
		Timeout: timeout,
		Stdout:  stdout,
		Stderr:  stderr,
		Discard: streaming,
	})
	elapsed := res.Duration()
	result.ExitCode = res.ExitCode
	result.Duration = &elapsed

	switch {
	case stderrors.Is(err, errors.ErrTimeout):
		result.Outcome = domain.RunTimedOut
		result.Stderr = fmt.Sprintf("killed after %s", timeout)
	case err != nil:
		result.Outcome = domain.RunFailed
		result.Stderr = err.Error()
	case res.ExitCode == 0:
		result.Outcome = domain.RunPassed
	default:
		result.Outcome = domain.RunFailed
		result.Stdout = res.Stdout
		result.Stderr = res.Stderr
	}

	log.Debug().
		Str("outcome", string(result.Outcome)).
		Int("exit_code", result.ExitCode).
		Dur("elapsed", elapsed).
		Msg("run finished")
	return result, elapsed
}
