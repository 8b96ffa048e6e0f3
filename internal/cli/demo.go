package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mrz1836/crucible/internal/domain"
	"github.com/mrz1836/crucible/internal/errors"
	"github.com/mrz1836/crucible/internal/matrix"
)

// AddDemoCommand adds the demo command and its build subcommand.
func AddDemoCommand(root *cobra.Command, flags *GlobalFlags, deps Deps) {
	cmd := &cobra.Command{
		Use:   "demo <category>/<name> [toolchain] [mode] [-- args...]",
		Short: "Build a demo and run it",
		Long: `Build one demo program and run it with its output streamed live.

Arguments after "--" are passed to the demo unchanged. Toolchain defaults to
the native toolchain and mode to release.

Categories: tutorials, examples, showcase, general.

Examples:
  crucible demo showcase/primes
  crucible demo examples/big_integer_calculator clang debug -- --demo`,
		Args: func(cmd *cobra.Command, args []string) error {
			positional, _ := splitAtDash(cmd, args)
			return cobra.RangeArgs(1, 3)(cmd, positional)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			positional, passthrough := splitAtDash(cmd, args)
			return reportError(cmd, flags, runDemo(cmd, flags, deps, positional, passthrough))
		},
	}

	build := &cobra.Command{
		Use:   "build <category|all> [toolchain] [mode]",
		Short: "Build every demo in a category",
		Long: `Build all demos of one category, or of every category with "all".
Toolchain and mode default to all.

Examples:
  crucible demo build tutorials
  crucible demo build all gcc release`,
		Args: cobra.RangeArgs(1, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return reportError(cmd, flags, runDemoBuild(cmd, flags, deps, args))
		},
	}

	cmd.AddCommand(build)
	root.AddCommand(cmd)
}

// splitAtDash separates selectors from the arguments meant for the demo.
func splitAtDash(cmd *cobra.Command, args []string) (positional, passthrough []string) {
	n := cmd.ArgsLenAtDash()
	if n < 0 {
		return args, nil
	}
	return args[:n], args[n:]
}

// parseDemoName splits "category/name".
func parseDemoName(raw string) (domain.Category, string, error) {
	catRaw, name, ok := strings.Cut(raw, "/")
	if !ok || name == "" || strings.ContainsAny(name, `/\`) {
		return "", "", fmt.Errorf("demo %q must be <category>/<name>: %w", raw, errors.ErrInvalidSelector)
	}
	cat, err := matrix.ParseCategory(catRaw)
	if err != nil {
		return "", "", err
	}
	c, ok := cat.Value()
	if !ok {
		return "", "", fmt.Errorf("demo %q needs a single category: %w", raw, errors.ErrInvalidSelector)
	}
	return c, strings.TrimSuffix(name, ".cpp"), nil
}

func runDemo(cmd *cobra.Command, flags *GlobalFlags, deps Deps, positional, passthrough []string) error {
	cat, name, err := parseDemoName(positional[0])
	if err != nil {
		return err
	}

	return runWithApp(cmd, flags, deps, func(ctx context.Context, a *app) error {
		tcSel := a.nativeToolchain()
		if raw := arg(positional, 1); raw != "" {
			if tcSel, err = matrix.ParseToolchain(raw); err != nil {
				return err
			}
		}
		tc, ok := tcSel.Value()
		if !ok {
			return fmt.Errorf("a demo runs on one toolchain, not %s: %w", matrix.Wildcard, errors.ErrInvalidSelector)
		}
		modeSel, err := matrix.ParseMode(arg(positional, 2), matrix.Specific(domain.ModeRelease))
		if err != nil {
			return err
		}
		mode, ok := modeSel.Value()
		if !ok {
			return fmt.Errorf("a demo runs in one mode, not %s: %w", matrix.Wildcard, errors.ErrInvalidSelector)
		}

		job := a.expander.DemoJob(cat, name, tc, mode)
		a.logger.Info().Str("demo", job.Subject()).Strs("args", passthrough).Msg("running demo")

		summary := a.orchestrator(1).Demo(ctx, job, passthrough, cmd.OutOrStdout(), cmd.ErrOrStderr())
		if summary.OK() && flags.Output != OutputJSON {
			return nil
		}
		return a.renderSummary(cmd, summary)
	})
}

func runDemoBuild(cmd *cobra.Command, flags *GlobalFlags, deps Deps, args []string) error {
	cat, err := matrix.ParseCategory(args[0])
	if err != nil {
		return err
	}
	tc, err := matrix.ParseToolchain(arg(args, 1))
	if err != nil {
		return err
	}
	mode, err := matrix.ParseMode(arg(args, 2), matrix.All[domain.Mode]())
	if err != nil {
		return err
	}

	return runWithApp(cmd, flags, deps, func(ctx context.Context, a *app) error {
		jobs, err := a.expander.ExpandDemos(matrix.DemoRequest{Category: cat, Toolchain: tc, Mode: mode})
		if err != nil {
			return err
		}
		a.logger.Info().Int("jobs", len(jobs)).Msg("building demos")
		return a.renderSummary(cmd, a.orchestrator(1).Build(ctx, jobs))
	})
}
