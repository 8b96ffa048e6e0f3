// Package orchestrator drives expanded build jobs through compile and run,
// reporting each job as it completes and aggregating a summary.
//
// Per-job failures never stop the matrix. Only cancellation of the context
// ends a pass early; jobs that had not started are reported as canceled.
package orchestrator

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/mrz1836/crucible/internal/domain"
	"github.com/mrz1836/crucible/internal/envsnap"
	"github.com/mrz1836/crucible/internal/metrics"
	"github.com/mrz1836/crucible/internal/toolchain"
)

// Builder compiles one job.
type Builder interface {
	Build(ctx context.Context, job domain.BuildJob) domain.BuildOutcome
	Command(job domain.BuildJob) ([]string, error)
}

// Executor runs built artifacts.
type Executor interface {
	RunTest(ctx context.Context, job domain.BuildJob) domain.RunResult
	RunBenchmarkRepeated(ctx context.Context, job domain.BuildJob, n int) []domain.RunResult
	RunDemo(ctx context.Context, job domain.BuildJob, args []string, stdout, stderr io.Writer) domain.RunResult
}

// Detector captures toolchain environments.
type Detector interface {
	Detect(ctx context.Context, id toolchain.Identity) (*envsnap.Snapshot, error)
	Resolve(ctx context.Context, id toolchain.Identity) (*envsnap.Snapshot, error)
	Invalidate(ctx context.Context, name domain.Toolchain) error
}

// Observer is told about every finished step. Calls may arrive concurrently.
type Observer interface {
	BuildFinished(outcome domain.BuildOutcome)
	RunFinished(result domain.RunResult)
}

// Options tunes a pass.
type Options struct {
	// Jobs is the number of matrix jobs processed concurrently. Values below 1 mean 1.
	Jobs int
	// Repeat is how many times each benchmark artifact runs.
	Repeat int
}

// Orchestrator wires the invoker and runner together.
type Orchestrator struct {
	builder  Builder
	executor Executor
	detector Detector
	observer Observer
	recorder metrics.Recorder
	opts     Options
}

// New returns an Orchestrator. A nil observer or recorder disables that output.
func New(builder Builder, executor Executor, detector Detector, observer Observer, recorder metrics.Recorder, opts Options) *Orchestrator {
	if observer == nil {
		observer = nopObserver{}
	}
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	if opts.Jobs < 1 {
		opts.Jobs = 1
	}
	if opts.Repeat < 1 {
		opts.Repeat = 1
	}
	return &Orchestrator{
		builder:  builder,
		executor: executor,
		detector: detector,
		observer: observer,
		recorder: recorder,
		opts:     opts,
	}
}

// Build compiles every job.
func (o *Orchestrator) Build(ctx context.Context, jobs []domain.BuildJob) Summary {
	return o.each(ctx, jobs, func(ctx context.Context, job domain.BuildJob) Entry {
		return Entry{Job: job, Build: o.compile(ctx, job)}
	})
}

// Check compiles every job and runs each test suite that built.
func (o *Orchestrator) Check(ctx context.Context, jobs []domain.BuildJob) Summary {
	return o.each(ctx, jobs, func(ctx context.Context, job domain.BuildJob) Entry {
		entry := Entry{Job: job, Build: o.compile(ctx, job)}
		if entry.Build.Success {
			entry.Runs = []domain.RunResult{o.observeRun(o.executor.RunTest(ctx, job))}
		}
		return entry
	})
}

// Bench compiles every job and runs each benchmark that built Options.Repeat times.
func (o *Orchestrator) Bench(ctx context.Context, jobs []domain.BuildJob) Summary {
	return o.each(ctx, jobs, func(ctx context.Context, job domain.BuildJob) Entry {
		entry := Entry{Job: job, Build: o.compile(ctx, job)}
		if entry.Build.Success {
			for _, res := range o.executor.RunBenchmarkRepeated(ctx, job, o.opts.Repeat) {
				entry.Runs = append(entry.Runs, o.observeRun(res))
			}
		}
		return entry
	})
}

// Demo compiles a single demo and, when it built, runs it with args while
// streaming its output.
func (o *Orchestrator) Demo(ctx context.Context, job domain.BuildJob, args []string, stdout, stderr io.Writer) Summary {
	entry := Entry{Job: job, Build: o.compile(ctx, job)}
	if entry.Build.Success {
		entry.Runs = []domain.RunResult{o.observeRun(o.executor.RunDemo(ctx, job, args, stdout, stderr))}
	}
	return newSummary([]Entry{entry})
}

// Commands returns the compiler argv for each job without running anything.
func (o *Orchestrator) Commands(jobs []domain.BuildJob) ([][]string, error) {
	out := make([][]string, 0, len(jobs))
	for _, job := range jobs {
		argv, err := o.builder.Command(job)
		if err != nil {
			return nil, err
		}
		out = append(out, argv)
	}
	return out, nil
}

// Detect makes sure every identity has a snapshot, concurrently. Cached
// snapshots are reused unless force is set, in which case they are discarded
// and captured again.
func (o *Orchestrator) Detect(ctx context.Context, ids []toolchain.Identity, force bool) ([]envsnap.DetectResult, error) {
	results := make([]envsnap.DetectResult, len(ids))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(o.opts.Jobs)
	for i, id := range ids {
		g.Go(func() error {
			detect := o.detector.Resolve
			if force {
				if err := o.detector.Invalidate(gCtx, id.Name); err != nil {
					results[i] = envsnap.DetectResult{Identity: id, Err: err}
					return nil
				}
				detect = o.detector.Detect
			}
			snap, err := detect(gCtx, id)
			if gCtx.Err() != nil {
				return gCtx.Err()
			}
			o.recorder.IncDetection(id.Name, err == nil)
			results[i] = envsnap.DetectResult{Identity: id, Snapshot: snap, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (o *Orchestrator) compile(ctx context.Context, job domain.BuildJob) domain.BuildOutcome {
	outcome := o.builder.Build(ctx, job)
	o.recorder.ObserveCompile(job, outcome.Status, outcome.Duration)
	o.observer.BuildFinished(outcome)
	return outcome
}

func (o *Orchestrator) observeRun(res domain.RunResult) domain.RunResult {
	var d time.Duration
	if res.Duration != nil {
		d = *res.Duration
	}
	o.recorder.ObserveRun(res.Job, res.Outcome, d)
	o.observer.RunFinished(res)
	return res
}

// each processes jobs with at most Options.Jobs in flight and returns the
// entries in job order.
func (o *Orchestrator) each(ctx context.Context, jobs []domain.BuildJob, fn func(context.Context, domain.BuildJob) Entry) Summary {
	log := zerolog.Ctx(ctx)
	entries := make([]Entry, len(jobs))

	var g errgroup.Group
	g.SetLimit(o.opts.Jobs)
	var canceled sync.Once
	for i, job := range jobs {
		if ctx.Err() != nil {
			canceled.Do(func() { log.Warn().Msg("canceled, skipping remaining jobs") })
			entries[i] = Entry{Job: job, Build: domain.BuildOutcome{
				Job:        job,
				Status:     domain.BuildCanceled,
				ExitCode:   -1,
				Diagnostic: ctx.Err().Error(),
			}}
			continue
		}
		g.Go(func() error {
			entries[i] = fn(ctx, job)
			return nil
		})
	}
	_ = g.Wait()

	log.Debug().Int("jobs", len(jobs)).Int("parallel", o.opts.Jobs).Msg("matrix pass complete")
	return newSummary(entries)
}

type nopObserver struct{}

func (nopObserver) BuildFinished(domain.BuildOutcome) {}
func (nopObserver) RunFinished(domain.RunResult)      {}
