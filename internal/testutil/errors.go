// Package testutil holds fixtures shared by crucible's tests. It must only be
// imported from *_test.go files.
package testutil

import "errors"

// Errors standing in for host failures.
var (
	// ErrMockActivationFailed is an activation script exiting non-zero.
	ErrMockActivationFailed = errors.New("activation script exited with code 1")

	// ErrMockSpawnFailed is a child process that could not be started.
	ErrMockSpawnFailed = errors.New("fork/exec: no such file or directory")

	// ErrMockDiskFull is a write failing for lack of space.
	ErrMockDiskFull = errors.New("no space left on device")
)
