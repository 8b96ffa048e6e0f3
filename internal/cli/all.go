package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/mrz1836/crucible/internal/domain"
	"github.com/mrz1836/crucible/internal/matrix"
)

// AddAllCommand adds the all command to the root command.
func AddAllCommand(root *cobra.Command, flags *GlobalFlags, deps Deps) {
	var check bool

	cmd := &cobra.Command{
		Use:   "all [toolchain] [mode]",
		Short: "Build every discovered test and benchmark",
		Long: `Build tests and benchmarks for every type and feature found in the source tree.

With --check, each test suite that compiled is also run.

Examples:
  crucible all
  crucible all gcc release
  crucible all --check -j 4`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m := matrixArgs{Type: matrix.Wildcard, Feature: matrix.Wildcard, Target: matrix.Wildcard, Toolchain: arg(args, 0), Mode: arg(args, 1)}
			return reportError(cmd, flags, runAll(cmd, flags, deps, m, check))
		},
	}

	cmd.Flags().BoolVar(&check, "check", false, "run test suites after building them")

	root.AddCommand(cmd)
}

func runAll(cmd *cobra.Command, flags *GlobalFlags, deps Deps, m matrixArgs, check bool) error {
	req, err := m.request(matrix.All[domain.Mode]())
	if err != nil {
		return err
	}

	return runWithApp(cmd, flags, deps, func(ctx context.Context, a *app) error {
		jobs, err := a.expander.Expand(req)
		if err != nil {
			return err
		}
		a.logger.Info().Int("jobs", len(jobs)).Bool("check", check).Msg("building everything")

		orch := a.orchestrator(1)
		if !check {
			return a.renderSummary(cmd, orch.Build(ctx, jobs))
		}

		var tests, benchs []domain.BuildJob
		for _, job := range jobs {
			if job.Kind == domain.KindTests {
				tests = append(tests, job)
			} else {
				benchs = append(benchs, job)
			}
		}
		summary := orch.Check(ctx, tests).Merge(orch.Build(ctx, benchs))
		return a.renderSummary(cmd, summary)
	})
}
