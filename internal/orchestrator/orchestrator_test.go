package orchestrator

import (
	"context"
	stderrors "errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/crucible/internal/domain"
	"github.com/mrz1836/crucible/internal/envsnap"
	"github.com/mrz1836/crucible/internal/errors"
	"github.com/mrz1836/crucible/internal/toolchain"
)

type fakeBuilder struct {
	fail     map[domain.Toolchain]domain.BuildStatus
	inFlight atomic.Int32
	peak     atomic.Int32
	delay    time.Duration
}

func (b *fakeBuilder) Build(_ context.Context, job domain.BuildJob) domain.BuildOutcome {
	n := b.inFlight.Add(1)
	defer b.inFlight.Add(-1)
	for {
		p := b.peak.Load()
		if n <= p || b.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(b.delay)

	if status, ok := b.fail[job.Toolchain]; ok {
		return domain.BuildOutcome{Job: job, Status: status, Diagnostic: string(job.Toolchain) + " not found"}
	}
	return domain.BuildOutcome{Job: job, Status: domain.BuildSucceeded, Success: true, Output: job.Output}
}

func (b *fakeBuilder) Command(job domain.BuildJob) ([]string, error) {
	if job.Mode == domain.ModeUBSan {
		return nil, errors.ErrUnsupportedMode
	}
	return []string{string(job.Toolchain), job.Source}, nil
}

type fakeExecutor struct {
	outcome  domain.RunOutcome
	demoArgs []string
}

func (e *fakeExecutor) RunTest(_ context.Context, job domain.BuildJob) domain.RunResult {
	return domain.RunResult{Job: job, Outcome: e.outcome}
}

func (e *fakeExecutor) RunBenchmarkRepeated(_ context.Context, job domain.BuildJob, n int) []domain.RunResult {
	out := make([]domain.RunResult, n)
	for i := range out {
		d := time.Millisecond
		out[i] = domain.RunResult{Job: job, Outcome: e.outcome, Duration: &d}
	}
	return out
}

func (e *fakeExecutor) RunDemo(_ context.Context, job domain.BuildJob, args []string, _, _ io.Writer) domain.RunResult {
	e.demoArgs = args
	return domain.RunResult{Job: job, Outcome: e.outcome}
}

type fakeDetector struct {
	mu          sync.Mutex
	invalidated []domain.Toolchain
	resolved    []domain.Toolchain
}

func (d *fakeDetector) Resolve(ctx context.Context, id toolchain.Identity) (*envsnap.Snapshot, error) {
	d.mu.Lock()
	d.resolved = append(d.resolved, id.Name)
	d.mu.Unlock()
	return d.Detect(ctx, id)
}

func (d *fakeDetector) Detect(_ context.Context, id toolchain.Identity) (*envsnap.Snapshot, error) {
	if id.Name == domain.MSVC {
		return nil, &envsnap.DetectionError{Toolchain: id.Name, Reason: "cl.exe not found", Err: errors.ErrToolchainUnavailable}
	}
	return &envsnap.Snapshot{Toolchain: id.Name}, nil
}

func (d *fakeDetector) Invalidate(_ context.Context, name domain.Toolchain) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.invalidated = append(d.invalidated, name)
	return nil
}

type recordingObserver struct {
	mu     sync.Mutex
	builds int
	runs   int
}

func (r *recordingObserver) BuildFinished(domain.BuildOutcome) {
	r.mu.Lock()
	r.builds++
	r.mu.Unlock()
}

func (r *recordingObserver) RunFinished(domain.RunResult) {
	r.mu.Lock()
	r.runs++
	r.mu.Unlock()
}

func jobsFor(tcs ...domain.Toolchain) []domain.BuildJob {
	jobs := make([]domain.BuildJob, 0, len(tcs))
	for _, tc := range tcs {
		jobs = append(jobs, domain.BuildJob{
			Kind: domain.KindTests, Type: domain.Uint128, Feature: "bits",
			Toolchain: tc, Mode: domain.ModeRelease, Output: "build/" + string(tc),
		})
	}
	return jobs
}

func TestCheck_UnavailableToolchainDoesNotStopMatrix(t *testing.T) {
	t.Parallel()
	builder := &fakeBuilder{fail: map[domain.Toolchain]domain.BuildStatus{domain.MSVC: domain.BuildToolchainUnavailable}}
	obs := &recordingObserver{}
	o := New(builder, &fakeExecutor{outcome: domain.RunPassed}, &fakeDetector{}, obs, nil, Options{})

	s := o.Check(context.Background(), jobsFor(domain.GCC, domain.MSVC, domain.Clang))

	require.Len(t, s.Entries, 3)
	assert.Equal(t, domain.MSVC, s.Entries[1].Job.Toolchain, "entries keep job order")
	assert.Equal(t, 2, s.Built)
	assert.Equal(t, 1, s.BuildFailed)
	assert.Equal(t, 2, s.Passed)
	assert.Empty(t, s.Entries[1].Runs, "failed builds are not run")
	assert.False(t, s.OK())
	require.ErrorIs(t, s.Err(), errors.ErrJobsFailed)
	assert.Equal(t, 3, obs.builds)
	assert.Equal(t, 2, obs.runs)
}

func TestCheck_AllPass(t *testing.T) {
	t.Parallel()
	o := New(&fakeBuilder{}, &fakeExecutor{outcome: domain.RunPassed}, &fakeDetector{}, nil, nil, Options{})
	s := o.Check(context.Background(), jobsFor(domain.GCC, domain.Clang))
	assert.True(t, s.OK())
	require.NoError(t, s.Err())
}

func TestCheck_FailingRunFailsSummary(t *testing.T) {
	t.Parallel()
	o := New(&fakeBuilder{}, &fakeExecutor{outcome: domain.RunNotFound}, &fakeDetector{}, nil, nil, Options{})
	s := o.Check(context.Background(), jobsFor(domain.GCC))
	assert.Equal(t, 1, s.Failed)
	require.ErrorIs(t, s.Err(), errors.ErrJobsFailed)
}

func TestBuild_RespectsJobLimit(t *testing.T) {
	t.Parallel()
	builder := &fakeBuilder{delay: 20 * time.Millisecond}
	o := New(builder, &fakeExecutor{}, &fakeDetector{}, nil, nil, Options{Jobs: 2})

	s := o.Build(context.Background(), jobsFor(domain.GCC, domain.Clang, domain.Intel, domain.MSVC, domain.GCC, domain.Clang))
	assert.Equal(t, 6, s.Built)
	assert.LessOrEqual(t, builder.peak.Load(), int32(2))
}

func TestBuild_SequentialByDefault(t *testing.T) {
	t.Parallel()
	builder := &fakeBuilder{delay: 5 * time.Millisecond}
	o := New(builder, &fakeExecutor{}, &fakeDetector{}, nil, nil, Options{})

	o.Build(context.Background(), jobsFor(domain.GCC, domain.Clang, domain.Intel))
	assert.Equal(t, int32(1), builder.peak.Load())
}

func TestBuild_CanceledContextSkipsJobs(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	o := New(&fakeBuilder{}, &fakeExecutor{}, &fakeDetector{}, nil, nil, Options{})

	s := o.Build(ctx, jobsFor(domain.GCC, domain.Clang))
	require.Len(t, s.Entries, 2)
	for _, e := range s.Entries {
		assert.Equal(t, domain.BuildCanceled, e.Build.Status)
	}
}

func TestBench_Repeat(t *testing.T) {
	t.Parallel()
	o := New(&fakeBuilder{}, &fakeExecutor{outcome: domain.RunPassed}, &fakeDetector{}, nil, nil, Options{Repeat: 3})

	s := o.Bench(context.Background(), jobsFor(domain.GCC))
	require.Len(t, s.Entries, 1)
	assert.Len(t, s.Entries[0].Runs, 3)
	assert.Equal(t, 3, s.Passed)
}

func TestDemo_ForwardsArgs(t *testing.T) {
	t.Parallel()
	exec := &fakeExecutor{outcome: domain.RunPassed}
	o := New(&fakeBuilder{}, exec, &fakeDetector{}, nil, nil, Options{})

	job := domain.BuildJob{Kind: domain.KindDemos, Category: domain.CategoryShowcase, Name: "primes", Toolchain: domain.GCC, Mode: domain.ModeRelease}
	s := o.Demo(context.Background(), job, []string{"100"}, io.Discard, io.Discard)
	assert.True(t, s.OK())
	assert.Equal(t, []string{"100"}, exec.demoArgs)
}

func TestCommands(t *testing.T) {
	t.Parallel()
	o := New(&fakeBuilder{}, &fakeExecutor{}, &fakeDetector{}, nil, nil, Options{})

	argv, err := o.Commands(jobsFor(domain.GCC))
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"gcc", ""}}, argv)

	bad := jobsFor(domain.MSVC)
	bad[0].Mode = domain.ModeUBSan
	_, err = o.Commands(bad)
	require.ErrorIs(t, err, errors.ErrUnsupportedMode)
}

func TestDetect_ForceInvalidatesAndReportsPerToolchain(t *testing.T) {
	t.Parallel()
	det := &fakeDetector{}
	o := New(&fakeBuilder{}, &fakeExecutor{}, det, nil, nil, Options{Jobs: 4})

	ids := []toolchain.Identity{{Name: domain.GCC}, {Name: domain.MSVC}}
	results, err := o.Detect(context.Background(), ids, true)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.NoError(t, results[0].Err)
	require.ErrorIs(t, results[1].Err, errors.ErrDetection)
	assert.True(t, stderrors.Is(results[1].Err, errors.ErrToolchainUnavailable))
	assert.ElementsMatch(t, []domain.Toolchain{domain.GCC, domain.MSVC}, det.invalidated)
	assert.Empty(t, det.resolved, "forced detection bypasses the cache")
}

func TestDetect_ReusesCacheWithoutForce(t *testing.T) {
	t.Parallel()
	det := &fakeDetector{}
	o := New(&fakeBuilder{}, &fakeExecutor{}, det, nil, nil, Options{})

	results, err := o.Detect(context.Background(), []toolchain.Identity{{Name: domain.Clang}}, false)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)
	assert.Equal(t, []domain.Toolchain{domain.Clang}, det.resolved)
	assert.Empty(t, det.invalidated)
}

func TestDetect_CanceledContext(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	o := New(&fakeBuilder{}, &fakeExecutor{}, &fakeDetector{}, nil, nil, Options{})

	_, err := o.Detect(ctx, []toolchain.Identity{{Name: domain.GCC}}, false)
	require.ErrorIs(t, err, context.Canceled)
}

func TestSummary_EmptyIsNotOK(t *testing.T) {
	t.Parallel()
	s := newSummary(nil)
	assert.False(t, s.OK())
	require.ErrorIs(t, s.Err(), errors.ErrNoCombinations)

	merged := newSummary([]Entry{{Build: domain.BuildOutcome{Success: true}}}).Merge(newSummary([]Entry{{Build: domain.BuildOutcome{}}}))
	assert.Equal(t, 1, merged.Built)
	assert.Equal(t, 1, merged.BuildFailed)
}
