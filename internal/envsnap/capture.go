package envsnap

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mrz1836/crucible/internal/process"
)

// Activation is a vendor script whose resulting environment is captured.
type Activation struct {
	Script string   `json:"script"`
	Args   []string `json:"args,omitempty"`
}

// Capturer runs an activation script in a child shell and returns the full
// environment table the script leaves behind.
type Capturer interface {
	CaptureFullEnvironment(ctx context.Context, act Activation) (map[string]string, error)
}

// ShellCapturer implements Capturer with bash on unix and cmd on Windows.
type ShellCapturer struct {
	runner  process.Runner
	timeout time.Duration
	goos    string
	environ func() []string
}

// NewShellCapturer returns a Capturer bounded by timeout.
func NewShellCapturer(runner process.Runner, timeout time.Duration) *ShellCapturer {
	return &ShellCapturer{
		runner:  runner,
		timeout: timeout,
		environ: hostEnviron,
	}
}

// CaptureFullEnvironment sources act.Script in a child shell and parses the
// environment printed after it. The orchestrator's environment is only read.
func (c *ShellCapturer) CaptureFullEnvironment(ctx context.Context, act Activation) (map[string]string, error) {
	if _, err := os.Stat(act.Script); err != nil {
		return nil, fmt.Errorf("activation script %s: %w", act.Script, err)
	}

	spec := c.spec(act)
	res, err := c.runner.Run(ctx, spec)
	if err != nil {
		return nil, err
	}
	if res.ExitCode != 0 {
		return nil, fmt.Errorf("activation script %s exited with code %d: %s",
			act.Script, res.ExitCode, firstLine(res.Stderr))
	}

	vars := ParseEnvironment(res.Stdout, isWindows(c.goos))
	if len(vars) == 0 {
		return nil, fmt.Errorf("activation script %s produced no environment", act.Script)
	}
	return vars, nil
}

func (c *ShellCapturer) spec(act Activation) process.Spec {
	spec := process.Spec{
		Env:     c.environ(),
		Timeout: c.timeout,
	}
	if isWindows(c.goos) {
		// cmd keeps the quoted script path intact because /c is not followed by a quote.
		args := []string{"/d", "/c", "call", act.Script}
		args = append(args, act.Args...)
		spec.Path = "cmd.exe"
		spec.Args = append(args, ">nul", "2>&1", "&&", "set")
		return spec
	}
	// The script path and its arguments arrive as $0 and $@, so no quoting is needed.
	spec.Path = "bash"
	spec.Args = append([]string{"-c", `source "$0" "$@" >/dev/null 2>&1 && env -0`, act.Script}, act.Args...)
	return spec
}

// ParseEnvironment parses `env -0` output (NUL separated) or, for Windows,
// `set` output (one variable per line).
func ParseEnvironment(output string, windows bool) map[string]string {
	var entries []string
	if windows {
		entries = strings.Split(strings.ReplaceAll(output, "\r\n", "\n"), "\n")
	} else {
		entries = strings.Split(output, "\x00")
	}

	vars := make(map[string]string, len(entries))
	for _, entry := range entries {
		k, v, ok := strings.Cut(entry, "=")
		// cmd reports per-drive working directories as "=C:=C:\"; they are not variables.
		if !ok || k == "" {
			continue
		}
		vars[k] = v
	}
	return vars
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}

var _ Capturer = (*ShellCapturer)(nil)
