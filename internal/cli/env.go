package cli

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/mrz1836/crucible/internal/domain"
	"github.com/mrz1836/crucible/internal/envsnap"
	"github.com/mrz1836/crucible/internal/errors"
	"github.com/mrz1836/crucible/internal/logging"
	"github.com/mrz1836/crucible/internal/matrix"
)

// envShowJSON is the output of `env show --output json`.
type envShowJSON struct {
	Toolchain  domain.Toolchain  `json:"toolchain"`
	Command    string            `json:"command"`
	Method     envsnap.Method    `json:"method"`
	CapturedAt time.Time         `json:"captured_at"`
	Path       string            `json:"path"`
	Vars       map[string]string `json:"vars"`
}

// AddEnvCommand adds the env command group to the root command.
func AddEnvCommand(root *cobra.Command, flags *GlobalFlags, deps Deps) {
	cmd := &cobra.Command{
		Use:   "env",
		Short: "Inspect cached toolchain environments",
	}

	var only []string
	show := &cobra.Command{
		Use:   "show <toolchain>",
		Short: "Print a cached environment snapshot",
		Long: `Print the environment a toolchain compiles and runs in, as captured by
'crucible detect'. Values of variables that look like secrets are redacted.

Examples:
  crucible env show msvc
  crucible env show intel --var PATH --var LD_LIBRARY_PATH`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return reportError(cmd, flags, runEnvShow(cmd, flags, deps, args[0], only))
		},
	}
	show.Flags().StringSliceVar(&only, "var", nil, "show only these variables")

	cmd.AddCommand(show)
	root.AddCommand(cmd)
}

func runEnvShow(cmd *cobra.Command, flags *GlobalFlags, deps Deps, raw string, only []string) error {
	sel, err := matrix.ParseToolchain(raw)
	if err != nil {
		return err
	}
	tc, ok := sel.Value()
	if !ok {
		return fmt.Errorf("env show needs one toolchain, not %s: %w", matrix.Wildcard, errors.ErrInvalidSelector)
	}

	return runWithApp(cmd, flags, deps, func(ctx context.Context, a *app) error {
		snap, err := a.store.Load(ctx, tc)
		if err != nil {
			return err
		}

		vars := logging.RedactEnv(snap.Vars)
		if len(only) > 0 {
			vars = make(map[string]string, len(only))
			for _, key := range only {
				if v, ok := snap.Get(key); ok {
					vars[key] = logging.RedactIfSensitive(key, v)
				}
			}
		}

		if flags.Output == OutputJSON {
			return a.out.JSON(envShowJSON{
				Toolchain:  snap.Toolchain,
				Command:    snap.Command,
				Method:     snap.Method,
				CapturedAt: snap.CapturedAt,
				Path:       a.store.Path(tc),
				Vars:       vars,
			})
		}

		if !flags.Quiet {
			a.out.Info(fmt.Sprintf("%s environment (%s, %s) captured %s",
				snap.Toolchain, snap.Method, snap.Command, snap.CapturedAt.Format(time.RFC3339)))
		}
		for _, key := range slices.Sorted(maps.Keys(vars)) {
			_, _ = fmt.Fprintf(a.w, "%s=%s\n", key, vars[key])
		}
		return nil
	})
}
