package cli

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/crucible/internal/config"
	"github.com/mrz1836/crucible/internal/domain"
	"github.com/mrz1836/crucible/internal/errors"
	"github.com/mrz1836/crucible/internal/orchestrator"
	"github.com/mrz1836/crucible/internal/report"
	"github.com/mrz1836/crucible/internal/tui"
)

func durationPtr(d time.Duration) *time.Duration { return &d }

func TestRunCell(t *testing.T) {
	f := tui.NewFormatter(false)

	assert.Equal(t, "-", runCell(f, nil))
	assert.Equal(t, "✓ passed", runCell(f, []domain.RunResult{{Outcome: domain.RunPassed}}))
	assert.Equal(t, "○ not-found", runCell(f, []domain.RunResult{{Outcome: domain.RunNotFound}}))
	assert.Equal(t, "✓ 3/3 passed", runCell(f, []domain.RunResult{
		{Outcome: domain.RunPassed}, {Outcome: domain.RunPassed}, {Outcome: domain.RunPassed},
	}))
	assert.Equal(t, "✗ 1/2 passed", runCell(f, []domain.RunResult{
		{Outcome: domain.RunPassed}, {Outcome: domain.RunTimedOut},
	}))
}

func TestMeanDuration(t *testing.T) {
	assert.Zero(t, meanDuration(nil))
	assert.Zero(t, meanDuration([]domain.RunResult{{Outcome: domain.RunPassed}}), "untimed runs are ignored")

	runs := []domain.RunResult{
		{Outcome: domain.RunPassed, Duration: durationPtr(100 * time.Millisecond)},
		{Outcome: domain.RunPassed, Duration: durationPtr(300 * time.Millisecond)},
		{Outcome: domain.RunFailed, Duration: durationPtr(time.Hour)},
	}
	assert.Equal(t, 200*time.Millisecond, meanDuration(runs))
}

func TestRunStep(t *testing.T) {
	assert.Equal(t, "test", runStep(domain.KindTests))
	assert.Equal(t, "bench", runStep(domain.KindBenchs))
	assert.Equal(t, "run", runStep(domain.KindDemos))
}

func TestShellJoin(t *testing.T) {
	assert.Equal(t, "g++ -O3 -o out", shellJoin([]string{"g++", "-O3", "-o", "out"}))
	assert.Equal(t, `cl.exe '/Fe:C:\My Build\x.exe'`, shellJoin([]string{"cl.exe", `/Fe:C:\My Build\x.exe`}))
	assert.Equal(t, `echo '' 'it'\''s'`, shellJoin([]string{"echo", "", "it's"}))
}

func TestParseDemoName(t *testing.T) {
	tests := []struct {
		raw      string
		category domain.Category
		name     string
		wantErr  bool
	}{
		{raw: "showcase/primes", category: domain.CategoryShowcase, name: "primes"},
		{raw: "tutorials/hello.cpp", category: domain.CategoryTutorials, name: "hello"},
		{raw: "primes", wantErr: true},
		{raw: "showcase/", wantErr: true},
		{raw: "showcase/a/b", wantErr: true},
		{raw: "unknown/primes", wantErr: true},
		{raw: "all/primes", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			cat, name, err := parseDemoName(tt.raw)
			if tt.wantErr {
				require.ErrorIs(t, err, errors.ErrInvalidSelector)
				assert.Equal(t, ExitError, ExitCodeForError(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.category, cat)
			assert.Equal(t, tt.name, name)
		})
	}
}

func TestStatusPrinter_WritesHeaderOnce(t *testing.T) {
	var buf bytes.Buffer
	p := newStatusPrinter(&buf)
	job := domain.BuildJob{Kind: domain.KindTests, Type: domain.Uint128, Feature: "bits", Toolchain: domain.GCC, Mode: domain.ModeRelease}

	p.BuildFinished(domain.BuildOutcome{Job: job, Status: domain.BuildSucceeded, Success: true, Output: "build_tests/gcc/release/bits"})
	p.RunFinished(domain.RunResult{Job: job, Outcome: domain.RunPassed})

	out := buf.String()
	assert.Equal(t, 1, bytes.Count(buf.Bytes(), []byte("STEP")))
	assert.Contains(t, out, "uint128_bits tests gcc/release")
	assert.Contains(t, out, "succeeded")
	assert.Contains(t, out, "test")
}

// summaryApp builds an app writing to buf without loading configuration.
func summaryApp(buf *bytes.Buffer, output string) (*app, *cobra.Command) {
	cmd := &cobra.Command{Use: "check"}
	cmd.SetOut(buf)
	flags := &GlobalFlags{Output: output}
	cfg := config.DefaultConfig()
	return &app{
		cfg:       cfg,
		flags:     flags,
		w:         buf,
		out:       tui.NewOutput(buf, output),
		collector: report.NewCollector(),
	}, cmd
}

func failingSummary() orchestrator.Summary {
	ok := domain.BuildJob{Kind: domain.KindTests, Type: domain.Uint128, Feature: "bits", Toolchain: domain.GCC, Mode: domain.ModeDebug}
	bad := ok
	bad.Mode = domain.ModeRelease
	missing := ok
	missing.Toolchain = domain.Clang

	s := orchestrator.Summary{
		Entries: []orchestrator.Entry{
			{Job: ok, Build: domain.BuildOutcome{Status: domain.BuildSucceeded, Success: true}, Runs: []domain.RunResult{{Outcome: domain.RunPassed}}},
			{Job: bad, Build: domain.BuildOutcome{Status: domain.BuildSucceeded, Success: true}, Runs: []domain.RunResult{{Outcome: domain.RunFailed, Stderr: "bits(1) != 1"}}},
			{Job: missing, Build: domain.BuildOutcome{Status: domain.BuildToolchainUnavailable, Diagnostic: "clang not found"}},
		},
		Built: 2, BuildFailed: 1, Passed: 1, Failed: 1,
	}
	return s
}

func TestRenderSummary_Text(t *testing.T) {
	var buf bytes.Buffer
	a, cmd := summaryApp(&buf, OutputText)

	err := a.renderSummary(cmd, failingSummary())
	require.ErrorIs(t, err, errors.ErrJobsFailed)
	assert.True(t, cmd.SilenceErrors, "the summary already shows the failure")

	out := buf.String()
	assert.Contains(t, out, "2 built, 1 failed to build, 1 runs passed, 1 runs failed")
	assert.Contains(t, out, "bits(1) != 1")
	assert.Contains(t, out, "clang not found")
	assert.Contains(t, out, "JOB")
}

func TestRenderSummary_JSON(t *testing.T) {
	var buf bytes.Buffer
	a, cmd := summaryApp(&buf, OutputJSON)

	err := a.renderSummary(cmd, failingSummary())
	require.ErrorIs(t, err, errors.ErrJobsFailed)

	var doc struct {
		Command string `json:"command"`
		OK      bool   `json:"ok"`
		RunID   string `json:"run_id"`
		Entries []any  `json:"entries"`
		Failed  int    `json:"runs_failed"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "check", doc.Command)
	assert.False(t, doc.OK)
	assert.NotEmpty(t, doc.RunID)
	assert.Len(t, doc.Entries, 3)
	assert.Equal(t, 1, doc.Failed)
}

func TestRenderSummary_Success(t *testing.T) {
	var buf bytes.Buffer
	a, cmd := summaryApp(&buf, OutputText)
	s := failingSummary()
	s.Entries = s.Entries[:1]
	s.Built, s.BuildFailed, s.Passed, s.Failed = 1, 0, 1, 0

	require.NoError(t, a.renderSummary(cmd, s))
	assert.False(t, cmd.SilenceErrors)
	assert.Contains(t, buf.String(), "1 built, 0 failed to build")
}

func TestReportError(t *testing.T) {
	t.Run("text passes through", func(t *testing.T) {
		var buf bytes.Buffer
		cmd := &cobra.Command{}
		cmd.SetOut(&buf)

		err := reportError(cmd, &GlobalFlags{Output: OutputText}, errors.ErrInvalidSelector)
		require.ErrorIs(t, err, errors.ErrInvalidSelector)
		assert.Empty(t, buf.String())
	})

	t.Run("json renders once and keeps the chain", func(t *testing.T) {
		var buf bytes.Buffer
		cmd := &cobra.Command{}
		cmd.SetOut(&buf)

		err := reportError(cmd, &GlobalFlags{Output: OutputJSON}, errors.ErrInvalidSelector)
		require.ErrorIs(t, err, errors.ErrJSONErrorOutput)
		require.ErrorIs(t, err, errors.ErrInvalidSelector)
		assert.True(t, cmd.SilenceErrors)
		assert.True(t, json.Valid(buf.Bytes()))
		assert.Equal(t, ExitError, ExitCodeForError(err))
	})
}
