package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mrz1836/crucible/internal/domain"
	"github.com/mrz1836/crucible/internal/errors"
	"github.com/mrz1836/crucible/internal/matrix"
	"github.com/mrz1836/crucible/internal/report"
)

// benchFlags holds flags specific to the run command.
type benchFlags struct {
	Repeat  int
	Results string
	Format  string
}

// AddBenchCommand adds the run command, also reachable as "bench".
func AddBenchCommand(root *cobra.Command, flags *GlobalFlags, deps Deps) {
	bf := &benchFlags{}

	cmd := &cobra.Command{
		Use:     "run <type> <feature> [toolchain] [mode]",
		Aliases: []string{"bench"},
		Short:   "Build benchmarks and time them",
		Long: `Build the selected benchmarks and time each one that compiled.

Every timed run appends one record to the results file, which is read by the
aggregation and plotting scripts. Mode defaults to matrix.bench_mode (release).

Examples:
  crucible run uint128 bits
  crucible bench int128 all all all --repeat 5
  crucible run uint128 algorithm gcc --results /tmp/bench.json --format json`,
		Args: cobra.RangeArgs(2, 4),
		RunE: func(cmd *cobra.Command, args []string) error {
			m := matrixArgs{Type: args[0], Feature: args[1], Target: string(domain.KindBenchs), Toolchain: arg(args, 2), Mode: arg(args, 3)}
			return reportError(cmd, flags, runBench(cmd, flags, deps, m, bf))
		},
	}

	cmd.Flags().IntVar(&bf.Repeat, "repeat", 1, "times each benchmark runs")
	cmd.Flags().StringVar(&bf.Results, "results", "", "results file (default from report.results_file)")
	cmd.Flags().StringVar(&bf.Format, "format", "", "results format, csv or json (default from report.format)")

	root.AddCommand(cmd)
}

func runBench(cmd *cobra.Command, flags *GlobalFlags, deps Deps, m matrixArgs, bf *benchFlags) error {
	if bf.Repeat < 1 {
		return fmt.Errorf("%w: --repeat must be at least 1", errors.ErrInvalidArgument)
	}
	if bf.Format != "" && bf.Format != report.FormatCSV && bf.Format != report.FormatJSON {
		return fmt.Errorf("%w: --format must be csv or json", errors.ErrInvalidArgument)
	}

	return runWithApp(cmd, flags, deps, func(ctx context.Context, a *app) error {
		benchMode, err := matrix.ParseMode(a.cfg.Matrix.BenchMode, matrix.Specific(domain.ModeRelease))
		if err != nil {
			return err
		}
		req, err := m.request(benchMode)
		if err != nil {
			return err
		}
		jobs, err := a.expander.Expand(req)
		if err != nil {
			return err
		}

		a.logger.Info().Int("jobs", len(jobs)).Int("repeat", bf.Repeat).Msg("benchmarking")
		summary := a.orchestrator(bf.Repeat).Bench(ctx, jobs)

		if err := a.writeResults(bf.Results, bf.Format); err != nil {
			return err
		}
		return a.renderSummary(cmd, summary)
	})
}

// writeResults appends the collected benchmark records to the results file.
func (a *app) writeResults(override, format string) error {
	records := a.collector.Records()
	if len(records) == 0 {
		return nil
	}
	if format == "" {
		format = a.cfg.Report.Format
	}
	path := a.resultsPath(override)
	meta := report.Metadata{GeneratedAt: time.Now().UTC(), TotalResults: len(records), RunID: a.collector.RunID()}
	if err := report.AppendFile(path, format, records, meta); err != nil {
		return fmt.Errorf("failed to write benchmark results: %w", err)
	}
	a.logger.Info().Str("path", path).Int("records", len(records)).Msg("benchmark results written")
	return nil
}
