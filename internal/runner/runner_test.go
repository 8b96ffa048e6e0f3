package runner

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/crucible/internal/clock"
	"github.com/mrz1836/crucible/internal/domain"
	"github.com/mrz1836/crucible/internal/envsnap"
	"github.com/mrz1836/crucible/internal/errors"
	"github.com/mrz1836/crucible/internal/process"
	"github.com/mrz1836/crucible/internal/report"
	"github.com/mrz1836/crucible/internal/toolchain"
)

type stubToolchains struct{}

func (stubToolchains) Get(name domain.Toolchain) toolchain.Identity {
	return toolchain.Identity{Name: name, Command: string(name)}
}

type stubSnapshots struct{ err error }

func (s stubSnapshots) Resolve(_ context.Context, id toolchain.Identity) (*envsnap.Snapshot, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &envsnap.Snapshot{Toolchain: id.Name, Vars: map[string]string{"PATH": "/usr/bin:/bin", "TOOLCHAIN": string(id.Name)}}, nil
}

type scriptedProc struct {
	result process.Result
	err    error
	specs  []process.Spec
}

func (p *scriptedProc) Run(_ context.Context, spec process.Spec) (process.Result, error) {
	p.specs = append(p.specs, spec)
	return p.result, p.err
}

func artifact(t *testing.T, body string) domain.BuildJob {
	t.Helper()
	path := filepath.Join(t.TempDir(), "uint128_bits_benchs_gcc")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o700)) //nolint:gosec // test executable
	return domain.BuildJob{
		Kind:      domain.KindBenchs,
		Type:      domain.Uint128,
		Feature:   "bits",
		Toolchain: domain.GCC,
		Mode:      domain.ModeRelease,
		Output:    path,
	}
}

func started(d time.Duration) process.Result {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return process.Result{StartedAt: start, CompletedAt: start.Add(d)}
}

func TestRun_MissingArtifactIsNotFound(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		kind domain.Kind
		run  func(r *Runner, job domain.BuildJob) domain.RunResult
	}{
		{
			name: "test",
			kind: domain.KindTests,
			run: func(r *Runner, job domain.BuildJob) domain.RunResult {
				return r.RunTest(context.Background(), job)
			},
		},
		{
			name: "benchmark",
			kind: domain.KindBenchs,
			run: func(r *Runner, job domain.BuildJob) domain.RunResult {
				return r.RunBenchmark(context.Background(), job)
			},
		},
		{
			name: "demo",
			kind: domain.KindDemos,
			run: func(r *Runner, job domain.BuildJob) domain.RunResult {
				var out, errOut bytes.Buffer
				return r.RunDemo(context.Background(), job, []string{"--n", "1"}, &out, &errOut)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			proc := &scriptedProc{result: started(time.Second)}
			sink := report.NewCollector()
			r := New(stubToolchains{}, stubSnapshots{}, proc, Options{}).WithSink(sink)
			job := domain.BuildJob{Kind: tt.kind, Toolchain: domain.GCC, Mode: domain.ModeRelease, Output: filepath.Join(t.TempDir(), "missing")}

			res := tt.run(r, job)
			assert.Equal(t, domain.RunNotFound, res.Outcome)
			assert.Equal(t, job.Output, res.ArtifactPath)
			assert.Contains(t, res.Stderr, errors.ErrArtifactNotFound.Error())
			assert.Nil(t, res.Duration)
			assert.Empty(t, proc.specs, "nothing is spawned")
			assert.Equal(t, 0, sink.Len())
		})
	}
}

func TestRunTest_PassAndFail(t *testing.T) {
	t.Parallel()
	job := artifact(t, "bin")
	job.Kind = domain.KindTests

	passResult := started(250 * time.Millisecond)
	passResult.Stdout = "all good"
	pass := &scriptedProc{result: passResult}
	res := New(stubToolchains{}, stubSnapshots{}, pass, Options{}).RunTest(context.Background(), job)
	assert.Equal(t, domain.RunPassed, res.Outcome)
	require.NotNil(t, res.Duration)
	assert.Equal(t, 250*time.Millisecond, *res.Duration)
	assert.Empty(t, res.Stdout, "output of passing runs is dropped")
	assert.Equal(t, 30*time.Second, pass.specs[0].Timeout)
	assert.Equal(t, []string{"PATH=/usr/bin:/bin", "TOOLCHAIN=gcc"}, pass.specs[0].Env)
	assert.True(t, filepath.IsAbs(pass.specs[0].Path))

	fail := &scriptedProc{result: process.Result{ExitCode: 1, Stdout: "3 of 40 checks failed", Stderr: "assert"}}
	res = New(stubToolchains{}, stubSnapshots{}, fail, Options{}).RunTest(context.Background(), job)
	assert.Equal(t, domain.RunFailed, res.Outcome)
	assert.Equal(t, 1, res.ExitCode)
	assert.Equal(t, "3 of 40 checks failed", res.Stdout)
}

func TestRunBenchmark_EmitsRecord(t *testing.T) {
	t.Parallel()
	job := artifact(t, "bin")
	proc := &scriptedProc{result: started(1500 * time.Millisecond)}
	sink := report.NewCollector()
	now := time.Date(2026, 2, 2, 9, 0, 0, 0, time.UTC)

	r := New(stubToolchains{}, stubSnapshots{}, proc, Options{}).WithSink(sink).WithClock(clock.Fixed(now))
	res := r.RunBenchmark(context.Background(), job)

	require.Equal(t, domain.RunPassed, res.Outcome)
	require.NotNil(t, res.Duration)
	assert.Equal(t, 1500*time.Millisecond, *res.Duration)
	assert.Equal(t, 5*time.Minute, proc.specs[0].Timeout)

	records := sink.Records()
	require.Len(t, records, 1)
	assert.Equal(t, int64(1_500_000_000), records[0].TimeNs)
	assert.Equal(t, now, records[0].Timestamp)
}

func TestRunBenchmark_TimeoutRecordsNothing(t *testing.T) {
	t.Parallel()
	job := artifact(t, "bin")
	proc := &scriptedProc{
		result: process.Result{ExitCode: -1, TimedOut: true},
		err:    fmt.Errorf("exceeded: %w", errors.ErrTimeout),
	}
	sink := report.NewCollector()

	res := New(stubToolchains{}, stubSnapshots{}, proc, Options{BenchTimeout: time.Second}).WithSink(sink).RunBenchmark(context.Background(), job)
	assert.Equal(t, domain.RunTimedOut, res.Outcome)
	assert.Equal(t, 0, sink.Len())
}

func TestRunBenchmarkRepeated(t *testing.T) {
	t.Parallel()
	job := artifact(t, "bin")
	sink := report.NewCollector()
	r := New(stubToolchains{}, stubSnapshots{}, &scriptedProc{result: started(time.Millisecond)}, Options{}).WithSink(sink)

	results := r.RunBenchmarkRepeated(context.Background(), job, 3)
	assert.Len(t, results, 3)
	assert.Equal(t, 3, sink.Len())

	failing := New(stubToolchains{}, stubSnapshots{}, &scriptedProc{result: process.Result{ExitCode: 2}}, Options{})
	assert.Len(t, failing.RunBenchmarkRepeated(context.Background(), job, 3), 1)
}

func TestRunDemo_ForwardsArgsAndStreams(t *testing.T) {
	t.Parallel()
	job := artifact(t, "bin")
	job.Kind = domain.KindDemos
	proc := &scriptedProc{result: started(time.Second)}
	var out, errOut bytes.Buffer

	res := New(stubToolchains{}, stubSnapshots{}, proc, Options{}).RunDemo(context.Background(), job, []string{"--n", "42"}, &out, &errOut)
	assert.Equal(t, domain.RunPassed, res.Outcome)
	require.Len(t, proc.specs, 1)
	assert.Equal(t, []string{"--n", "42"}, proc.specs[0].Args)
	assert.True(t, proc.specs[0].Discard)
	assert.Equal(t, &out, proc.specs[0].Stdout)
	assert.Equal(t, 5*time.Minute, proc.specs[0].Timeout)
}

func TestRun_SnapshotFailure(t *testing.T) {
	t.Parallel()
	job := artifact(t, "bin")
	proc := &scriptedProc{}

	res := New(stubToolchains{}, stubSnapshots{err: errors.ErrDetection}, proc, Options{}).RunTest(context.Background(), job)
	assert.Equal(t, domain.RunFailed, res.Outcome)
	assert.Nil(t, res.Duration)
	assert.Empty(t, proc.specs)
}

func TestRunTest_TimeoutKillsRealProcess(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a shell script artifact")
	}
	t.Parallel()
	job := artifact(t, "#!/bin/sh\nsleep 30\n")
	job.Kind = domain.KindTests

	r := New(stubToolchains{}, stubSnapshots{}, process.NewExecRunner(), Options{TestTimeout: 300 * time.Millisecond})
	start := time.Now()
	res := r.RunTest(context.Background(), job)

	assert.Equal(t, domain.RunTimedOut, res.Outcome)
	assert.Less(t, time.Since(start), 10*time.Second)
}
