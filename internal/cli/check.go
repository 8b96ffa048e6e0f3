package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/mrz1836/crucible/internal/domain"
	"github.com/mrz1836/crucible/internal/matrix"
)

// AddCheckCommand adds the check command, also reachable as "test".
func AddCheckCommand(root *cobra.Command, flags *GlobalFlags, deps Deps) {
	cmd := &cobra.Command{
		Use:     "check <type> <feature> [toolchain] [mode]",
		Aliases: []string{"test"},
		Short:   "Build test suites and run them",
		Long: `Build the selected test suites and run each one that compiled.

Test output is captured and shown only for failures. A suite passes when it
exits with status zero.

Examples:
  crucible check uint128 bits
  crucible test int128 all clang debug`,
		Args: cobra.RangeArgs(2, 4),
		RunE: func(cmd *cobra.Command, args []string) error {
			m := matrixArgs{Type: args[0], Feature: args[1], Target: string(domain.KindTests), Toolchain: arg(args, 2), Mode: arg(args, 3)}
			return reportError(cmd, flags, runCheck(cmd, flags, deps, m))
		},
	}

	root.AddCommand(cmd)
}

func runCheck(cmd *cobra.Command, flags *GlobalFlags, deps Deps, m matrixArgs) error {
	req, err := m.request(matrix.All[domain.Mode]())
	if err != nil {
		return err
	}

	return runWithApp(cmd, flags, deps, func(ctx context.Context, a *app) error {
		jobs, err := a.expander.Expand(req)
		if err != nil {
			return err
		}
		a.logger.Info().Int("jobs", len(jobs)).Msg("checking")
		return a.renderSummary(cmd, a.orchestrator(1).Check(ctx, jobs))
	})
}
