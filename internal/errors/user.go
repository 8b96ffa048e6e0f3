package errors

import "errors"

// ErrorInfo holds user-facing message and suggested action for an error.
type ErrorInfo struct {
	// Message is the user-friendly error description.
	Message string
	// Action is a suggested action to resolve the issue (empty if none).
	Action string
}

type errorEntry struct {
	err  error
	info ErrorInfo
}

// errorInfoEntries maps sentinels to their user-facing text. It is a slice
// because wrapped errors need errors.Is traversal in declaration order.
//
//nolint:gochecknoglobals // Pre-built mapping
var errorInfoEntries = []errorEntry{
	// ===================
	// Toolchains
	// ===================
	{
		err: ErrUnsupportedToolchain,
		info: ErrorInfo{
			Message: "Unknown toolchain. Supported toolchains are gcc, clang, intel and msvc.",
			Action:  "Pick one of the supported toolchain names, or 'all'.",
		},
	},
	{
		err: ErrToolchainUnavailable,
		info: ErrorInfo{
			Message: "The requested toolchain is not installed on this host.",
			Action:  "Install the compiler or point toolchains.<name>.command at it.",
		},
	},
	{
		err: ErrDetection,
		info: ErrorInfo{
			Message: "Could not capture the toolchain environment.",
			Action:  "Check toolchains.<name>.activation and run 'crucible detect <name> --force'.",
		},
	},
	{
		err: ErrSnapshotMissing,
		info: ErrorInfo{
			Message: "No cached environment for this toolchain.",
			Action:  "Run 'crucible detect <name>' to capture one.",
		},
	},
	{
		err: ErrSnapshotMismatch,
		info: ErrorInfo{
			Message: "A cached environment was recorded for a different toolchain.",
			Action:  "Run 'crucible clean --all' and detect again.",
		},
	},

	// ===================
	// Matrix & sources
	// ===================
	{
		err: ErrInvalidSelector,
		info: ErrorInfo{
			Message: "A type, target, toolchain or mode argument is not recognized.",
			Action:  "Run 'crucible --help' to see the accepted values.",
		},
	},
	{
		err: ErrSourceNotFound,
		info: ErrorInfo{
			Message: "The source file for this request does not exist.",
			Action:  "Run 'crucible list' to see the available type and feature pairs.",
		},
	},
	{
		err: ErrNoCombinations,
		info: ErrorInfo{
			Message: "No test or benchmark sources were found.",
			Action:  "Check paths.source_root in your configuration.",
		},
	},

	// ===================
	// Execution
	// ===================
	{
		err: ErrCompileFailure,
		info: ErrorInfo{
			Message: "Compilation failed. See the diagnostic above.",
			Action:  "Re-run with --verbose for the full compiler output.",
		},
	},
	{
		err: ErrUnsupportedMode,
		info: ErrorInfo{
			Message: "This toolchain cannot build in the requested mode.",
			Action:  "Choose another mode for this toolchain.",
		},
	},
	{
		err: ErrTimeout,
		info: ErrorInfo{
			Message: "A process exceeded its time limit and was stopped.",
			Action:  "Raise the matching timeouts.* value if the workload is expected to be slow.",
		},
	},
	{
		err: ErrArtifactNotFound,
		info: ErrorInfo{
			Message: "The binary to run was not found.",
			Action:  "Build it first with 'crucible build'.",
		},
	},
	{
		err: ErrJobsFailed,
		info: ErrorInfo{
			Message: "One or more jobs failed.",
			Action:  "Review the summary table above.",
		},
	},

	// ===================
	// Configuration & input
	// ===================
	{
		err: ErrConfigNil,
		info: ErrorInfo{
			Message: "Configuration could not be loaded.",
		},
	},
	{
		err: ErrConfigInvalidTimeouts,
		info: ErrorInfo{
			Message: "A timeout in the configuration is not valid.",
			Action:  "All timeouts.* values must be positive durations like '30s' or '5m'.",
		},
	},
	{
		err: ErrConfigInvalidMatrix,
		info: ErrorInfo{
			Message: "The matrix configuration is not valid.",
			Action:  "matrix.default_modes may only list known modes.",
		},
	},
	{
		err: ErrConfigInvalidToolchains,
		info: ErrorInfo{
			Message: "The toolchains configuration is not valid.",
			Action:  "Check toolchains.native and the per-toolchain sections.",
		},
	},
	{
		err: ErrConfigInvalidBuild,
		info: ErrorInfo{
			Message: "The build configuration is not valid.",
			Action:  "build.diagnostic_limit and build.jobs must be positive.",
		},
	},
	{
		err: ErrInvalidOutputFormat,
		info: ErrorInfo{
			Message: "Invalid output format.",
			Action:  "Use --output text or --output json.",
		},
	},
	{
		err: ErrInvalidArgument,
		info: ErrorInfo{
			Message: "An invalid argument was provided.",
			Action:  "Check the command help for valid arguments.",
		},
	},
	{
		err: ErrLockTimeout,
		info: ErrorInfo{
			Message: "Another crucible process is writing the environment cache.",
			Action:  "Wait for it to finish and retry.",
		},
	},
	{
		err: ErrNonInteractiveMode,
		info: ErrorInfo{
			Message: "Confirmation is required but the terminal is not interactive.",
			Action:  "Pass --force to skip the prompt.",
		},
	},
}

//nolint:gochecknoglobals // Pre-built mapping for O(1) lookup
var errorInfoMap = buildErrorInfoMap()

func buildErrorInfoMap() map[error]ErrorInfo {
	m := make(map[error]ErrorInfo, len(errorInfoEntries))
	for _, entry := range errorInfoEntries {
		m[entry.err] = entry.info
	}
	return m
}

// getErrorInfo tries a direct map hit first and falls back to errors.Is for
// wrapped errors. Unknown errors keep their own message.
func getErrorInfo(err error) ErrorInfo {
	if info, ok := errorInfoMap[err]; ok {
		return info
	}
	for _, entry := range errorInfoEntries {
		if errors.Is(err, entry.err) {
			return entry.info
		}
	}
	return ErrorInfo{Message: err.Error()}
}

// UserMessage returns a user-friendly message for common errors.
// For unrecognized errors, it returns the error's original message.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	return getErrorInfo(err).Message
}

// Actionable returns a user-friendly error message along with a suggested
// action. The action is empty when there is nothing useful to suggest.
func Actionable(err error) (message, action string) {
	if err == nil {
		return "", ""
	}
	info := getErrorInfo(err)
	return info.Message, info.Action
}
