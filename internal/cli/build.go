package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/mrz1836/crucible/internal/domain"
	"github.com/mrz1836/crucible/internal/matrix"
)

// AddBuildCommand adds the build command to the root command.
func AddBuildCommand(root *cobra.Command, flags *GlobalFlags, deps Deps) {
	var printOnly bool

	cmd := &cobra.Command{
		Use:   "build <type> <feature> <target> [toolchain] [mode]",
		Short: "Compile tests, benchmarks or both",
		Long: `Compile every combination selected by the arguments.

  type       uint128, int128 or all
  feature    a feature name such as bits, or all (every feature with a source)
  target     tests, benchs or all
  toolchain  gcc, clang, intel, msvc or all (default all)
  mode       debug, release, o1, o2, asan, ubsan or all (default all)

A toolchain that is not installed is reported as unavailable and counts as a
failed job; the rest of the matrix still builds.

Examples:
  crucible build uint128 bits tests
  crucible build int128 all benchs gcc release
  crucible build all all all --print-commands`,
		Args: cobra.RangeArgs(3, 5),
		RunE: func(cmd *cobra.Command, args []string) error {
			m := matrixArgs{Type: args[0], Feature: args[1], Target: args[2], Toolchain: arg(args, 3), Mode: arg(args, 4)}
			return reportError(cmd, flags, runBuild(cmd, flags, deps, m, printOnly))
		},
	}

	cmd.Flags().BoolVar(&printOnly, "print-commands", false, "print the compiler command lines without compiling")

	root.AddCommand(cmd)
}

func runBuild(cmd *cobra.Command, flags *GlobalFlags, deps Deps, m matrixArgs, printOnly bool) error {
	req, err := m.request(matrix.All[domain.Mode]())
	if err != nil {
		return err
	}

	return runWithApp(cmd, flags, deps, func(ctx context.Context, a *app) error {
		jobs, err := a.expander.Expand(req)
		if err != nil {
			return err
		}

		orch := a.orchestrator(1)
		if printOnly {
			argv, err := orch.Commands(jobs)
			if err != nil {
				return err
			}
			if flags.Output == OutputJSON {
				return a.out.JSON(commandsJSON(jobs, argv))
			}
			printCommands(a.w, jobs, argv)
			return nil
		}

		a.logger.Info().Int("jobs", len(jobs)).Msg("building")
		return a.renderSummary(cmd, orch.Build(ctx, jobs))
	})
}
