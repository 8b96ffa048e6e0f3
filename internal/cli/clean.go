package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mrz1836/crucible/internal/config"
	"github.com/mrz1836/crucible/internal/errors"
	"github.com/mrz1836/crucible/internal/tui"
)

// cleanFlags holds flags specific to the clean command.
type cleanFlags struct {
	All   bool
	Force bool
}

// cleanResult is the output of `clean --output json`.
type cleanResult struct {
	Removed []string `json:"removed"`
	Missing []string `json:"missing,omitempty"`
}

// AddCleanCommand adds the clean command to the root command.
func AddCleanCommand(root *cobra.Command, flags *GlobalFlags) {
	cf := &cleanFlags{}

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove build output",
		Long: `Remove build_tests, build_benchs and build_demos from the build root.

With --all the cached toolchain environments are removed as well, so the next
build detects every toolchain again. --all asks for confirmation on a terminal
and requires --force otherwise.

Examples:
  crucible clean
  crucible clean --all --force`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return reportError(cmd, flags, runClean(cmd.Context(), cmd.OutOrStdout(), flags, cf))
		},
	}

	cmd.Flags().BoolVar(&cf.All, "all", false, "also remove cached toolchain environments")
	cmd.Flags().BoolVarP(&cf.Force, "force", "f", false, "skip the confirmation prompt")

	root.AddCommand(cmd)
}

func runClean(ctx context.Context, w io.Writer, flags *GlobalFlags, cf *cleanFlags) error {
	overrides := &config.Config{}
	overrides.Paths.SourceRoot = flags.SourceRoot
	overrides.Paths.BuildRoot = flags.BuildRoot
	cfg, err := config.LoadWithOverrides(ctx, overrides)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	root := filepath.Clean(cfg.Paths.BuildRoot)
	if root == "." || root == string(filepath.Separator) || root == "" {
		return fmt.Errorf("%w: refusing to clean build root %q", errors.ErrInvalidArgument, cfg.Paths.BuildRoot)
	}

	targets := []string{
		filepath.Join(root, "build_tests"),
		filepath.Join(root, "build_benchs"),
		filepath.Join(root, "build_demos"),
	}
	if cf.All {
		targets = append(targets, cfg.Paths.CacheDir())
	}

	out := tui.NewOutput(w, flags.Output)
	if cf.All && !cf.Force {
		if !terminalCheck() {
			return fmt.Errorf("cannot remove cached environments: %w", errors.ErrNonInteractiveMode)
		}
		confirmed, err := confirmClean(targets)
		if err != nil {
			return fmt.Errorf("failed to get confirmation: %w", err)
		}
		if !confirmed {
			out.Info("Clean canceled")
			return nil
		}
	}

	log := GetLogger()
	result := cleanResult{Removed: []string{}}
	for _, path := range targets {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			result.Missing = append(result.Missing, path)
			continue
		}
		if err := os.RemoveAll(path); err != nil {
			return fmt.Errorf("failed to remove %s: %w", path, err)
		}
		log.Debug().Str("path", path).Msg("removed")
		result.Removed = append(result.Removed, path)
	}

	if flags.Output == OutputJSON {
		return out.JSON(result)
	}
	for _, path := range result.Removed {
		out.Success("Removed " + path)
	}
	if len(result.Removed) == 0 {
		out.Info("Nothing to clean")
	}
	return nil
}

// createCleanConfirmForm builds the confirmation form. Tests replace it.
//
//nolint:gochecknoglobals // Test injection point
var createCleanConfirmForm = defaultCreateCleanConfirmForm

// formRunner matches huh.Form's Run method.
type formRunner interface {
	Run() error
}

func defaultCreateCleanConfirmForm(targets []string, confirm *bool) formRunner {
	description := "The following will be deleted:\n"
	for _, t := range targets {
		description += "  " + t + "\n"
	}
	return huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Remove build output and cached toolchain environments?").
				Description(description).
				Affirmative("Yes, remove").
				Negative("No, cancel").
				Value(confirm),
		),
	)
}

func confirmClean(targets []string) (bool, error) {
	var confirm bool
	if err := createCleanConfirmForm(targets, &confirm).Run(); err != nil {
		return false, err
	}
	return confirm, nil
}

// terminalCheck reports whether stdin is interactive. Tests replace it.
//
//nolint:gochecknoglobals // Test injection point
var terminalCheck = isTerminal

func isTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) //nolint:gosec // fd fits in int
}
