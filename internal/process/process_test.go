//go:build unix

package process_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/crucible/internal/errors"
	"github.com/mrz1836/crucible/internal/process"
)

func testContext() context.Context {
	logger := zerolog.Nop()
	return logger.WithContext(context.Background())
}

func shell(script string) process.Spec {
	return process.Spec{
		Path: "/bin/sh",
		Args: []string{"-c", script},
		Env:  []string{"PATH=/usr/bin:/bin"},
	}
}

func TestExecRunner_CapturesOutputAndExitCode(t *testing.T) {
	t.Parallel()
	r := process.NewExecRunner()

	res, err := r.Run(testContext(), shell("echo out; echo err >&2; exit 3"))
	require.NoError(t, err, "a non-zero exit is not an error")
	assert.Equal(t, 3, res.ExitCode)
	assert.Equal(t, "out\n", res.Stdout)
	assert.Equal(t, "err\n", res.Stderr)
	assert.False(t, res.TimedOut)
	assert.GreaterOrEqual(t, res.Duration(), time.Duration(0))
}

func TestExecRunner_UsesOnlyTheGivenEnvironment(t *testing.T) {
	t.Setenv("CRUCIBLE_LEAK_CHECK", "leaked")
	r := process.NewExecRunner()

	spec := shell("env")
	spec.Env = append(spec.Env, "CXX=g++")

	res, err := r.Run(testContext(), spec)
	require.NoError(t, err)
	assert.Contains(t, res.Stdout, "CXX=g++")
	assert.NotContains(t, res.Stdout, "CRUCIBLE_LEAK_CHECK")
}

func TestExecRunner_NilEnvIsEmpty(t *testing.T) {
	t.Setenv("CRUCIBLE_LEAK_CHECK", "leaked")
	r := process.NewExecRunner()

	res, err := r.Run(testContext(), process.Spec{Path: "/usr/bin/env"})
	require.NoError(t, err)
	assert.NotContains(t, res.Stdout, "CRUCIBLE_LEAK_CHECK")
}

func TestExecRunner_TimeoutKillsProcessGroup(t *testing.T) {
	t.Parallel()
	r := process.NewExecRunner()

	spec := shell("sleep 30 & echo $!; wait")
	spec.Timeout = 300 * time.Millisecond

	start := time.Now()
	res, err := r.Run(testContext(), spec)
	elapsed := time.Since(start)

	require.ErrorIs(t, err, errors.ErrTimeout)
	assert.True(t, res.TimedOut)
	assert.Less(t, elapsed, 10*time.Second, "must not wait for the sleeping grandchild")

	if runtime.GOOS != "linux" {
		return
	}
	pid, convErr := strconv.Atoi(strings.TrimSpace(res.Stdout))
	require.NoError(t, convErr)
	assert.Eventually(t, func() bool { return processGone(pid) }, 5*time.Second, 50*time.Millisecond,
		"grandchild %d should have been killed with its group", pid)
}

func TestExecRunner_ParentCancellation(t *testing.T) {
	t.Parallel()
	r := process.NewExecRunner()

	ctx, cancel := context.WithCancel(testContext())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	res, err := r.Run(ctx, shell("sleep 30"))
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, res.TimedOut, "cancellation is not a timeout")
}

func TestExecRunner_StartFailure(t *testing.T) {
	t.Parallel()
	r := process.NewExecRunner()

	_, err := r.Run(testContext(), process.Spec{Path: filepath.Join(t.TempDir(), "missing")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to start")
}

func TestExecRunner_LiveOutput(t *testing.T) {
	t.Parallel()
	r := process.NewExecRunner()

	var live bytes.Buffer
	spec := shell("echo streamed")
	spec.Stdout = &live

	res, err := r.Run(testContext(), spec)
	require.NoError(t, err)
	assert.Equal(t, "streamed\n", live.String())
	assert.Equal(t, "streamed\n", res.Stdout)

	live.Reset()
	spec.Discard = true
	res, err = r.Run(testContext(), spec)
	require.NoError(t, err)
	assert.Equal(t, "streamed\n", live.String())
	assert.Empty(t, res.Stdout, "discarded output is not captured")
}

func TestLookPathIn(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	tool := filepath.Join(dir, "fakecc")
	require.NoError(t, os.WriteFile(tool, []byte("#!/bin/sh\n"), 0o700)) //nolint:gosec // test executable

	env := []string{"PATH=" + dir}
	assert.Equal(t, tool, process.LookPathIn("fakecc", env))
	assert.Equal(t, "nothere", process.LookPathIn("nothere", env))
	assert.Equal(t, "./rel/cc", process.LookPathIn("./rel/cc", env), "paths are not searched")
	assert.Equal(t, "fakecc", process.LookPathIn("fakecc", nil), "no PATH in env")
}

func TestGetenv_LastValueWins(t *testing.T) {
	t.Parallel()
	v, ok := process.Getenv([]string{"A=1", "B=2", "A=3"}, "A")
	assert.True(t, ok)
	assert.Equal(t, "3", v)

	_, ok = process.Getenv([]string{"A=1"}, "Z")
	assert.False(t, ok)
}

// processGone reports whether pid no longer exists or is a zombie awaiting reaping.
func processGone(pid int) bool {
	data, err := os.ReadFile(filepath.Join("/proc", strconv.Itoa(pid), "stat"))
	if err != nil {
		return true
	}
	fields := strings.Fields(string(data))
	return len(fields) > 2 && fields[2] == "Z"
}
