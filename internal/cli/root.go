package cli

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mrz1836/crucible/internal/errors"
	"github.com/mrz1836/crucible/internal/signal"
)

// BuildInfo contains version information set at build time via ldflags.
type BuildInfo struct {
	// Version is the semantic version (e.g., "1.0.0").
	Version string
	// Commit is the git commit hash.
	Commit string
	// Date is the build date.
	Date string
}

// globalLogger is set in PersistentPreRunE and read through GetLogger.
var (
	globalLogger   zerolog.Logger //nolint:gochecknoglobals // CLI logger requires global access
	globalLoggerMu sync.RWMutex   //nolint:gochecknoglobals // Protects globalLogger
)

// GetLogger returns the logger initialized by the root command.
//
// It MUST only be called after the root command's PersistentPreRunE has run;
// before that it returns a zero-value logger that discards everything.
// It is safe for concurrent use.
func GetLogger() zerolog.Logger {
	globalLoggerMu.RLock()
	defer globalLoggerMu.RUnlock()
	return globalLogger
}

// newRootCmd creates the root command with the host's real process and
// toolchain dependencies.
func newRootCmd(flags *GlobalFlags, info BuildInfo) *cobra.Command {
	return newRootCmdWithDeps(flags, info, DefaultDeps())
}

// newRootCmdWithDeps creates the root command. Tests inject fake process
// runners and command lookups through deps.
func newRootCmdWithDeps(flags *GlobalFlags, info BuildInfo, deps Deps) *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "crucible",
		Short: "crucible - toolchain-isolated build and verification",
		Long: `crucible builds and verifies a C++ project across several compiler toolchains.

It discovers gcc, clang, Intel oneAPI and MSVC on the host, captures an isolated
environment for each, expands a build matrix (kind × type × feature × toolchain
× mode) into compile jobs, and runs the resulting test suites, benchmarks and
demos under timeouts.

Exit codes:
  0  every requested job succeeded
  1  at least one job failed, or the request was invalid (nothing was run)`,
		Version: formatVersion(info),
		// Showing help from RunE makes sure PersistentPreRunE validates flags.
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := BindGlobalFlags(v, cmd); err != nil {
				return fmt.Errorf("failed to bind flags: %w", err)
			}
			applyBoundFlags(v, cmd, flags)

			if !IsValidOutputFormat(flags.Output) {
				return fmt.Errorf("%w: %q must be one of %v", errors.ErrInvalidOutputFormat, flags.Output, ValidOutputFormats())
			}
			if flags.Jobs < 0 {
				return fmt.Errorf("%w: --jobs must not be negative", errors.ErrInvalidArgument)
			}

			globalLoggerMu.Lock()
			globalLogger = InitLogger(flags.Verbose, flags.Quiet)
			globalLoggerMu.Unlock()

			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			CloseLogFile()
		},
		SilenceUsage: true,
	}

	AddGlobalFlags(cmd, flags)

	AddDetectCommand(cmd, flags, deps)
	AddBuildCommand(cmd, flags, deps)
	AddCheckCommand(cmd, flags, deps)
	AddBenchCommand(cmd, flags, deps)
	AddDemoCommand(cmd, flags, deps)
	AddAllCommand(cmd, flags, deps)
	AddListCommand(cmd, flags, deps)
	AddEnvCommand(cmd, flags, deps)
	AddCleanCommand(cmd, flags)
	AddConfigCommand(cmd, flags)

	return cmd
}

// formatVersion creates the version string from build info.
func formatVersion(info BuildInfo) string {
	if info.Version == "" {
		info.Version = "dev"
	}
	if info.Commit == "" {
		info.Commit = "none"
	}
	if info.Date == "" {
		info.Date = "unknown"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", info.Version, info.Commit, info.Date)
}

// Execute runs the root command. SIGINT and SIGTERM cancel the context, which
// stops the matrix and kills running children; the summary is still printed.
func Execute(ctx context.Context, info BuildInfo) error {
	h := signal.NewHandler(ctx)
	defer h.Stop()

	flags := &GlobalFlags{}
	//nolint:contextcheck // Cobra command pattern uses cmd.Context() internally
	cmd := newRootCmd(flags, info)
	return cmd.ExecuteContext(h.Context())
}
