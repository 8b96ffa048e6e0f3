package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mrz1836/crucible/internal/domain"
	"github.com/mrz1836/crucible/internal/matrix"
	"github.com/mrz1836/crucible/internal/toolchain"
	"github.com/mrz1836/crucible/internal/tui"
)

// snapshotInfo describes one cached snapshot without its variables.
type snapshotInfo struct {
	Toolchain  domain.Toolchain `json:"toolchain"`
	Method     string           `json:"method"`
	Command    string           `json:"command"`
	CapturedAt time.Time        `json:"captured_at"`
	Vars       int              `json:"vars"`
	Path       string           `json:"path"`
}

// listJSON is the output of `list --output json`.
type listJSON struct {
	Tests      []matrix.Combination `json:"tests"`
	Benchs     []matrix.Combination `json:"benchs"`
	Demos      []matrix.Demo        `json:"demos"`
	Snapshots  []snapshotInfo       `json:"snapshots"`
	Toolchains []toolchain.Status   `json:"toolchains,omitempty"`
}

// AddListCommand adds the list command to the root command.
func AddListCommand(root *cobra.Command, flags *GlobalFlags, deps Deps) {
	var probe bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List buildable combinations and cached environments",
		Long: `List every type and feature pair with a test or benchmark source, every
demo, and every cached toolchain environment.

With --toolchains, each toolchain is also looked up on PATH and asked for its
version.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return reportError(cmd, flags, runList(cmd, flags, deps, probe))
		},
	}

	cmd.Flags().BoolVar(&probe, "toolchains", false, "probe toolchains and show their versions")

	root.AddCommand(cmd)
}

func runList(cmd *cobra.Command, flags *GlobalFlags, deps Deps, probe bool) error {
	return runWithApp(cmd, flags, deps, func(ctx context.Context, a *app) error {
		result := listJSON{Snapshots: []snapshotInfo{}}
		var err error

		if result.Tests, err = a.expander.Combinations(domain.KindTests); err != nil {
			return err
		}
		if result.Benchs, err = a.expander.Combinations(domain.KindBenchs); err != nil {
			return err
		}
		if result.Demos, err = a.expander.Demos(matrix.All[domain.Category]()); err != nil {
			return err
		}

		snaps, err := a.store.List(ctx)
		if err != nil {
			return err
		}
		for _, s := range snaps {
			result.Snapshots = append(result.Snapshots, snapshotInfo{
				Toolchain:  s.Toolchain,
				Method:     string(s.Method),
				Command:    s.Command,
				CapturedAt: s.CapturedAt,
				Vars:       len(s.Vars),
				Path:       a.store.Path(s.Toolchain),
			})
		}

		if probe {
			if result.Toolchains, err = a.registry.Detect(ctx, a.registry.All()); err != nil {
				return err
			}
		}

		if flags.Output == OutputJSON {
			return a.out.JSON(result)
		}
		a.renderList(result)
		return nil
	})
}

func (a *app) renderList(l listJSON) {
	for _, section := range []struct {
		title  string
		combos []matrix.Combination
	}{{"tests", l.Tests}, {"benchmarks", l.Benchs}} {
		a.out.Section(section.title)
		if len(section.combos) == 0 {
			a.out.Info("none found under " + a.cfg.Paths.SourceRoot)
			continue
		}
		a.out.Table([]string{"TYPE", "FEATURES"}, groupByType(section.combos))
	}

	a.out.Section("demos")
	if len(l.Demos) == 0 {
		a.out.Info("none found under " + a.cfg.Paths.SourceRoot)
	} else {
		a.out.Table([]string{"CATEGORY", "DEMOS"}, groupDemos(l.Demos))
	}

	a.out.Section("cached snapshots")
	if len(l.Snapshots) == 0 {
		a.out.Info("none; run 'crucible detect' to capture toolchain environments")
	} else {
		rows := make([][]string, 0, len(l.Snapshots))
		for _, s := range l.Snapshots {
			rows = append(rows, []string{s.Toolchain.String(), s.Method, s.Command, tui.Age(s.CapturedAt), fmt.Sprint(s.Vars)})
		}
		a.out.Table([]string{"TOOLCHAIN", "METHOD", "COMMAND", "CAPTURED", "VARS"}, rows)
	}

	if len(l.Toolchains) > 0 {
		a.out.Section("toolchains")
		rows := make([][]string, 0, len(l.Toolchains))
		for _, st := range l.Toolchains {
			status, version := "○ not found", "-"
			if st.Available {
				status, version = "✓ available", st.Version
			}
			if st.Native {
				status += " (native)"
			}
			rows = append(rows, []string{st.Name.String(), status, st.Command, version, st.Path})
		}
		a.out.Table([]string{"TOOLCHAIN", "STATUS", "COMMAND", "VERSION", "PATH"}, rows)
	}
}

// groupByType collapses combinations into one row per type.
func groupByType(combos []matrix.Combination) [][]string {
	var rows [][]string
	var features []string
	for i, c := range combos {
		features = append(features, c.Feature)
		if i == len(combos)-1 || combos[i+1].Type != c.Type {
			rows = append(rows, []string{string(c.Type), strings.Join(features, ", ")})
			features = nil
		}
	}
	return rows
}

// groupDemos collapses demos into one row per category.
func groupDemos(demos []matrix.Demo) [][]string {
	var rows [][]string
	var names []string
	for i, d := range demos {
		names = append(names, d.Name)
		if i == len(demos)-1 || demos[i+1].Category != d.Category {
			rows = append(rows, []string{string(d.Category), strings.Join(names, ", ")})
			names = nil
		}
	}
	return rows
}
