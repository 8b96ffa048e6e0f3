package domain

import "time"

// BuildStatus classifies how a compile attempt ended.
type BuildStatus string

const (
	BuildSucceeded            BuildStatus = "succeeded"
	BuildCompileFailed        BuildStatus = "compile-failed"
	BuildSourceNotFound       BuildStatus = "source-not-found"
	BuildToolchainUnavailable BuildStatus = "toolchain-unavailable"
	BuildDetectionFailed      BuildStatus = "detection-failed"
	BuildTimedOut             BuildStatus = "timed-out"
	BuildCanceled             BuildStatus = "canceled"
)

// BuildOutcome is the result of one compile attempt.
type BuildOutcome struct {
	Job        BuildJob      `json:"job"`
	Status     BuildStatus   `json:"status"`
	Success    bool          `json:"success"`
	ExitCode   int           `json:"exit_code"`
	Diagnostic string        `json:"diagnostic,omitempty"`
	Output     string        `json:"output,omitempty"`
	Duration   time.Duration `json:"duration_ns"`
	Command    []string      `json:"command,omitempty"`
}

// RunOutcome classifies how an execution ended.
type RunOutcome string

const (
	RunPassed   RunOutcome = "passed"
	RunFailed   RunOutcome = "failed"
	RunNotFound RunOutcome = "not-found"
	RunTimedOut RunOutcome = "timed-out"
)

// RunResult is the result of executing one built artifact.
// Duration is set for every run that was spawned; it stays nil when the
// artifact was missing or its environment could not be resolved.
type RunResult struct {
	Job          BuildJob       `json:"job"`
	Outcome      RunOutcome     `json:"outcome"`
	ExitCode     int            `json:"exit_code"`
	Duration     *time.Duration `json:"duration_ns,omitempty"`
	ArtifactPath string         `json:"artifact_path"`
	Stdout       string         `json:"stdout,omitempty"`
	Stderr       string         `json:"stderr,omitempty"`
}

// Passed reports whether the run succeeded.
func (r RunResult) Passed() bool {
	return r.Outcome == RunPassed
}
