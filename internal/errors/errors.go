// Package errors provides centralized error handling for crucible.
//
// This package defines sentinel errors used for programmatic error categorization
// throughout the application. All error types can be checked using errors.Is().
//
// IMPORTANT: This package MUST NOT import any other internal packages.
// Only standard library imports are allowed.
package errors

import "errors"

// Sentinel errors for error categorization.
// All errors use lowercase descriptions per Go conventions.
var (
	// ErrUnsupportedToolchain indicates a toolchain name outside the known set.
	ErrUnsupportedToolchain = errors.New("unsupported toolchain")

	// ErrToolchainUnavailable indicates a known toolchain whose command is not
	// installed or not resolvable on this host.
	ErrToolchainUnavailable = errors.New("toolchain unavailable")

	// ErrDetection indicates that capturing a toolchain's environment failed:
	// a missing activation script, a non-zero exit, or a timeout.
	ErrDetection = errors.New("environment detection failed")

	// ErrSnapshotMissing indicates that no cached environment snapshot exists.
	ErrSnapshotMissing = errors.New("environment snapshot missing")

	// ErrSnapshotMismatch indicates a snapshot was paired with the wrong toolchain.
	ErrSnapshotMismatch = errors.New("environment snapshot belongs to another toolchain")

	// ErrInvalidSelector indicates a matrix selector value outside its enumeration.
	ErrInvalidSelector = errors.New("invalid selector")

	// ErrSourceNotFound indicates the source file for a matrix request does not exist.
	ErrSourceNotFound = errors.New("source not found")

	// ErrCompileFailure indicates the compiler ran and produced no artifact.
	ErrCompileFailure = errors.New("compile failed")

	// ErrTimeout indicates a child process exceeded its time budget and was killed.
	ErrTimeout = errors.New("process timed out")

	// ErrArtifactNotFound indicates the binary to execute does not exist.
	ErrArtifactNotFound = errors.New("artifact not found")

	// ErrJobsFailed indicates at least one job in a request did not succeed.
	ErrJobsFailed = errors.New("one or more jobs failed")

	// ErrNoCombinations indicates that no source combinations were discovered.
	ErrNoCombinations = errors.New("no build combinations found")

	// ErrUnsupportedMode indicates the toolchain family has no flags for a mode.
	ErrUnsupportedMode = errors.New("mode not supported by toolchain")

	// ErrConfigNil indicates that a nil config was passed to validation.
	ErrConfigNil = errors.New("config is nil")

	// ErrConfigInvalidTimeouts indicates an invalid timeouts configuration value.
	ErrConfigInvalidTimeouts = errors.New("invalid timeouts configuration")

	// ErrConfigInvalidMatrix indicates an invalid matrix configuration value.
	ErrConfigInvalidMatrix = errors.New("invalid matrix configuration")

	// ErrConfigInvalidToolchains indicates an invalid toolchains configuration value.
	ErrConfigInvalidToolchains = errors.New("invalid toolchains configuration")

	// ErrConfigInvalidBuild indicates an invalid build configuration value.
	ErrConfigInvalidBuild = errors.New("invalid build configuration")

	// ErrInvalidOutputFormat indicates an invalid output format was specified.
	ErrInvalidOutputFormat = errors.New("invalid output format")

	// ErrInvalidArgument indicates a malformed positional argument.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrLockTimeout indicates a file lock could not be acquired in time.
	ErrLockTimeout = errors.New("lock acquisition timeout")

	// ErrNonInteractiveMode indicates that a confirmation prompt is required but
	// the terminal is not interactive.
	ErrNonInteractiveMode = errors.New("use --force in non-interactive mode")

	// ErrJSONErrorOutput indicates that an error was already written as JSON.
	// Callers use it to silence cobra's own error printing.
	ErrJSONErrorOutput = errors.New("error already output as JSON")
)
