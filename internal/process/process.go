// Package process spawns bounded child processes with an explicit environment.
//
// Every child runs in its own process group. When its time budget expires the
// whole group is killed, so no grandchild outlives the call.
package process

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os/exec"
	"time"

	"github.com/rs/zerolog"

	"github.com/mrz1836/crucible/internal/constants"
	"github.com/mrz1836/crucible/internal/errors"
)

// Spec describes one child process.
type Spec struct {
	// Path is the executable. Bare names are resolved against the PATH found in Env.
	Path string
	// Args excludes the executable itself.
	Args []string
	// Dir is the working directory; empty means the current one.
	Dir string
	// Env is the complete environment of the child. A nil Env gives the child
	// an empty environment; the orchestrator's own environment is never inherited.
	Env []string
	// Timeout bounds the run. Zero means no bound beyond ctx.
	Timeout time.Duration
	// Stdout and Stderr, when set, receive output live in addition to capture.
	Stdout io.Writer
	Stderr io.Writer
	// Discard skips capturing output, for long-running streamed programs.
	Discard bool
}

// Result describes how a child ended.
type Result struct {
	Stdout      string
	Stderr      string
	ExitCode    int
	TimedOut    bool
	StartedAt   time.Time
	CompletedAt time.Time
}

// Duration is the wall-clock time between start and exit.
func (r Result) Duration() time.Duration {
	return r.CompletedAt.Sub(r.StartedAt)
}

// Runner runs child processes.
type Runner interface {
	// Run executes spec. A non-zero exit is reported through Result.ExitCode
	// with a nil error. The error is non-nil only when the child could not be
	// started, exceeded its timeout (errors.ErrTimeout), or ctx was canceled.
	Run(ctx context.Context, spec Spec) (Result, error)
}

// ExecRunner implements Runner with os/exec.
type ExecRunner struct{}

// NewExecRunner returns the default Runner.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run implements Runner.
func (r *ExecRunner) Run(ctx context.Context, spec Spec) (Result, error) {
	log := zerolog.Ctx(ctx)

	runCtx := ctx
	if spec.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, spec.Timeout)
		defer cancel()
	}

	env := spec.Env
	if env == nil {
		env = []string{}
	}

	cmd := exec.CommandContext(runCtx, LookPathIn(spec.Path, env), spec.Args...) //#nosec G204 -- compiler and artifact paths come from the registry and matrix
	cmd.Dir = spec.Dir
	cmd.Env = env
	setProcessGroup(cmd)
	cmd.Cancel = func() error { return killProcessGroup(cmd) }
	cmd.WaitDelay = constants.ProcessKillGrace

	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = outputWriter(&outBuf, spec.Stdout, spec.Discard)
	cmd.Stderr = outputWriter(&errBuf, spec.Stderr, spec.Discard)

	log.Debug().
		Str("path", spec.Path).
		Strs("args", spec.Args).
		Str("dir", spec.Dir).
		Dur("timeout", spec.Timeout).
		Msg("starting child process")

	result := Result{StartedAt: time.Now()}
	runErr := cmd.Run()
	result.CompletedAt = time.Now()
	result.Stdout = outBuf.String()
	result.Stderr = errBuf.String()

	return classify(ctx, runCtx, spec, result, runErr, log)
}

func outputWriter(buf *bytes.Buffer, live io.Writer, discard bool) io.Writer {
	switch {
	case discard && live != nil:
		return live
	case discard:
		return io.Discard
	case live != nil:
		return io.MultiWriter(buf, live)
	default:
		return buf
	}
}

func classify(ctx, runCtx context.Context, spec Spec, result Result, runErr error, log *zerolog.Logger) (Result, error) {
	if stderrors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		result.TimedOut = true
		result.ExitCode = -1
		log.Warn().
			Str("path", spec.Path).
			Dur("timeout", spec.Timeout).
			Msg("child process timed out, process group killed")
		return result, fmt.Errorf("%s exceeded %s: %w", spec.Path, spec.Timeout, errors.ErrTimeout)
	}

	if ctx.Err() != nil {
		result.ExitCode = -1
		return result, ctx.Err()
	}

	if runErr == nil {
		return result, nil
	}

	var exitErr *exec.ExitError
	if stderrors.As(runErr, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
		return result, nil
	}

	// WaitDelay expiry after a clean exit still leaves a valid exit code.
	if stderrors.Is(runErr, exec.ErrWaitDelay) {
		return result, nil
	}

	result.ExitCode = -1
	return result, fmt.Errorf("failed to start %s: %w", spec.Path, runErr)
}

var _ Runner = (*ExecRunner)(nil)
