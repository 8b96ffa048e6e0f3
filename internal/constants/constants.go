// Package constants provides centralized constant values used throughout crucible.
// This package is the single source of truth for all shared constants and MUST NOT
// import any other internal packages.
package constants

import "time"

// Directory names and paths used by crucible.
const (
	// CrucibleHome is the hidden directory name where crucible stores user-level data.
	// It is created in the user's home directory and also used for project config.
	CrucibleHome = ".crucible"

	// LogsDir is the directory name under CrucibleHome where log files are stored.
	LogsDir = "logs"

	// CLILogFileName is the name of the rotating CLI log file.
	CLILogFileName = "crucible.log"

	// ConfigFileName is the name of both the global and the project config file.
	ConfigFileName = "config.yaml"

	// DefaultSourceRoot is the project-relative directory holding tests/, benchs/ and demos/.
	DefaultSourceRoot = "."

	// DefaultBuildRoot is the project-relative directory that receives every artifact.
	DefaultBuildRoot = "build"

	// DefaultIncludeDir is the header directory passed to every compile.
	DefaultIncludeDir = "include"

	// EnvCacheDirName is the directory under the build root holding snapshot files.
	EnvCacheDirName = "compiler_envs"

	// EnvCacheFileSuffix is appended to the toolchain name to form a snapshot file name.
	EnvCacheFileSuffix = "_env.json"

	// DefaultResultsFile is the benchmark record file written under the build root.
	DefaultResultsFile = "benchmark_results.csv"
)

// Timeouts applied to child processes.
const (
	// DefaultCompileTimeout bounds a single compiler invocation.
	DefaultCompileTimeout = 120 * time.Second

	// DefaultDemoCompileTimeout bounds a single demo compile.
	DefaultDemoCompileTimeout = 60 * time.Second

	// DefaultTestTimeout bounds a single test-suite run.
	DefaultTestTimeout = 30 * time.Second

	// DefaultBenchTimeout bounds a single benchmark run.
	DefaultBenchTimeout = 300 * time.Second

	// DefaultDemoTimeout bounds a single demo run.
	DefaultDemoTimeout = 300 * time.Second

	// DefaultDetectTimeout bounds a vendor activation script capture.
	DefaultDetectTimeout = 30 * time.Second

	// VersionProbeTimeout bounds a `<compiler> --version` call.
	VersionProbeTimeout = 10 * time.Second

	// ProcessKillGrace is how long a killed child may take to release its pipes.
	ProcessKillGrace = 2 * time.Second
)

// File locking.
const (
	// LockTimeout is the maximum time to wait for a snapshot file lock.
	LockTimeout = 5 * time.Second

	// LockRetryInterval is the pause between lock attempts.
	LockRetryInterval = 50 * time.Millisecond
)

// Output shaping.
const (
	// DefaultDiagnosticLimit is the number of characters kept from a failing compile's output.
	DefaultDiagnosticLimit = 200

	// ThreadingScanBytes is how much of a source file is scanned for threading markers.
	ThreadingScanBytes = 4096
)

// Log rotation settings for the CLI log file.
const (
	// LogMaxSizeMB is the size at which the log file rotates.
	LogMaxSizeMB = 10

	// LogMaxBackups is the number of rotated files kept.
	LogMaxBackups = 3

	// LogMaxAgeDays is the number of days rotated files are kept.
	LogMaxAgeDays = 14

	// LogCompress enables gzip for rotated files.
	LogCompress = true
)

// File permissions used for crucible-owned state.
const (
	// DirPerm is used for every directory crucible creates.
	DirPerm = 0o750

	// FilePerm is used for snapshot and record files.
	FilePerm = 0o600
)
