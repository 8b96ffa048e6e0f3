// Package cli provides the command-line interface for crucible.
package cli

import (
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Exit codes for the CLI.
const (
	// ExitSuccess means every requested job succeeded.
	ExitSuccess = 0
	// ExitError means at least one job failed, the request was rejected,
	// or crucible itself failed.
	ExitError = 1
)

// Output format constants.
const (
	// OutputText is the default human-readable output format.
	OutputText = "text"
	// OutputJSON is the machine-readable JSON output format.
	OutputJSON = "json"
)

// GlobalFlags holds flags available to all commands.
type GlobalFlags struct {
	// Output specifies the output format (text or json).
	Output string
	// Verbose enables debug-level logging.
	Verbose bool
	// Quiet suppresses non-essential output (warn level only).
	Quiet bool
	// Jobs is the number of matrix jobs run concurrently. Zero keeps the configured value.
	Jobs int
	// MetricsFile receives a Prometheus textfile after the command. Empty keeps the configured value.
	MetricsFile string
	// SourceRoot and BuildRoot override paths.source_root and paths.build_root.
	SourceRoot string
	BuildRoot  string
}

// AddGlobalFlags adds global flags to a command.
func AddGlobalFlags(cmd *cobra.Command, flags *GlobalFlags) {
	cmd.PersistentFlags().StringVarP(&flags.Output, "output", "o", OutputText, "output format (text|json)")
	cmd.PersistentFlags().BoolVarP(&flags.Verbose, "verbose", "v", false, "enable verbose output")
	cmd.PersistentFlags().BoolVarP(&flags.Quiet, "quiet", "q", false, "suppress non-essential output")
	cmd.PersistentFlags().IntVarP(&flags.Jobs, "jobs", "j", 0, "matrix jobs to run concurrently (default from config, 1)")
	cmd.PersistentFlags().StringVar(&flags.MetricsFile, "metrics-file", "", "write Prometheus metrics to this textfile")
	cmd.PersistentFlags().StringVar(&flags.SourceRoot, "source-root", "", "directory holding tests/, benchs/ and demos/")
	cmd.PersistentFlags().StringVar(&flags.BuildRoot, "build-root", "", "directory receiving artifacts and the environment cache")
	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")
}

// BindGlobalFlags binds global flags to Viper so CRUCIBLE_OUTPUT,
// CRUCIBLE_VERBOSE and friends work as well.
func BindGlobalFlags(v *viper.Viper, cmd *cobra.Command) error {
	// Root().PersistentFlags() finds the flags even from a subcommand's hook.
	rootFlags := cmd.Root().PersistentFlags()

	for _, name := range []string{"output", "verbose", "quiet", "jobs", "metrics-file", "source-root", "build-root"} {
		if err := v.BindPFlag(name, rootFlags.Lookup(name)); err != nil {
			return err
		}
	}

	v.SetEnvPrefix("CRUCIBLE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	return nil
}

// applyBoundFlags copies environment-provided values into flags that were
// not set on the command line.
func applyBoundFlags(v *viper.Viper, cmd *cobra.Command, flags *GlobalFlags) {
	rootFlags := cmd.Root().PersistentFlags()
	if !rootFlags.Changed("output") {
		flags.Output = v.GetString("output")
	}
	if !rootFlags.Changed("verbose") && !rootFlags.Changed("quiet") {
		flags.Verbose = v.GetBool("verbose")
		flags.Quiet = v.GetBool("quiet") && !flags.Verbose
	}
	if !rootFlags.Changed("jobs") {
		flags.Jobs = v.GetInt("jobs")
	}
	if !rootFlags.Changed("metrics-file") {
		flags.MetricsFile = v.GetString("metrics-file")
	}
	if !rootFlags.Changed("source-root") {
		flags.SourceRoot = v.GetString("source-root")
	}
	if !rootFlags.Changed("build-root") {
		flags.BuildRoot = v.GetString("build-root")
	}
}

// ValidOutputFormats returns the list of valid output format values.
func ValidOutputFormats() []string {
	return []string{OutputText, OutputJSON}
}

// IsValidOutputFormat checks if the given format is a valid output format.
func IsValidOutputFormat(format string) bool {
	return slices.Contains(ValidOutputFormats(), format)
}

// ExitCodeForError maps an error to the process exit code. A rejected
// selector fails the request the same way a failed job does.
func ExitCodeForError(err error) int {
	if err == nil {
		return ExitSuccess
	}
	return ExitError
}
