package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mrz1836/crucible/internal/domain"
	"github.com/mrz1836/crucible/internal/envsnap"
	"github.com/mrz1836/crucible/internal/errors"
	"github.com/mrz1836/crucible/internal/matrix"
	"github.com/mrz1836/crucible/internal/orchestrator"
	"github.com/mrz1836/crucible/internal/tui"
)

// detectResultJSON is one toolchain in `detect --output json`.
type detectResultJSON struct {
	Toolchain  domain.Toolchain `json:"toolchain"`
	Command    string           `json:"command"`
	Detected   bool             `json:"detected"`
	Method     envsnap.Method   `json:"method,omitempty"`
	Version    string           `json:"version,omitempty"`
	CapturedAt *time.Time       `json:"captured_at,omitempty"`
	Cache      string           `json:"cache,omitempty"`
	Error      string           `json:"error,omitempty"`
}

// AddDetectCommand adds the detect command to the root command.
func AddDetectCommand(root *cobra.Command, flags *GlobalFlags, deps Deps) {
	var force bool

	cmd := &cobra.Command{
		Use:   "detect [toolchain|all]",
		Short: "Capture and cache toolchain environments",
		Long: `Find each toolchain on this host and capture the environment it compiles in.

Toolchains with a vendor activation script (MSVC's vcvarsall.bat, Intel's
setvars) get the environment that script leaves behind; the others inherit
crucible's environment with CC/CXX pointed at the compiler. Snapshots are
cached under <build_root>/compiler_envs and reused until --force.

Detecting all toolchains succeeds when at least one is found. Detecting a
single toolchain fails when that toolchain is not found.

Examples:
  crucible detect
  crucible detect msvc --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return reportError(cmd, flags, runDetect(cmd, flags, deps, arg(args, 0), force))
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "discard cached snapshots and detect again")

	root.AddCommand(cmd)
}

func runDetect(cmd *cobra.Command, flags *GlobalFlags, deps Deps, raw string, force bool) error {
	sel, err := matrix.ParseToolchain(raw)
	if err != nil {
		return err
	}

	return runWithApp(cmd, flags, deps, func(ctx context.Context, a *app) error {
		// Detection is I/O bound and per toolchain, so every toolchain runs at once.
		ids := a.identities(sel)
		orch := orchestrator.New(a.invoker, a.runner, a.isolator, nil, a.recorder(), orchestrator.Options{Jobs: len(ids)})
		spin := startDetectSpinner(ctx, cmd, flags, len(ids))
		results, err := orch.Detect(ctx, ids, force)
		if spin != nil {
			spin.Stop()
		}
		if err != nil {
			return err
		}

		detected := 0
		var lastErr error
		for _, r := range results {
			if r.Err == nil {
				detected++
				continue
			}
			lastErr = r.Err
			a.logger.Debug().Err(r.Err).Str("toolchain", r.Identity.Name.String()).Msg("toolchain not detected")
		}

		if flags.Output == OutputJSON {
			if jerr := a.out.JSON(detectJSON(a, results)); jerr != nil {
				return jerr
			}
		} else {
			a.renderDetect(results)
		}

		switch {
		case detected == 0:
			cmd.SilenceErrors = flags.Output == OutputJSON
			return fmt.Errorf("no toolchain detected: %w", lastErr)
		case !sel.IsAll() && lastErr != nil:
			cmd.SilenceErrors = flags.Output == OutputJSON
			return lastErr
		}
		return nil
	})
}

// startDetectSpinner animates stderr while activation scripts run. It
// returns nil unless stderr is a terminal and output is text.
func startDetectSpinner(ctx context.Context, cmd *cobra.Command, flags *GlobalFlags, n int) *tui.Spinner {
	w := cmd.ErrOrStderr()
	if flags.Output != OutputText || flags.Quiet || !isTerminalWriter(w) {
		return nil
	}
	spin := tui.NewSpinner(w)
	msg := "detecting 1 toolchain"
	if n != 1 {
		msg = fmt.Sprintf("detecting %d toolchains", n)
	}
	spin.Start(ctx, msg)
	return spin
}

func detectJSON(a *app, results []envsnap.DetectResult) []detectResultJSON {
	out := make([]detectResultJSON, 0, len(results))
	for _, r := range results {
		item := detectResultJSON{Toolchain: r.Identity.Name, Command: r.Identity.Command, Detected: r.Err == nil}
		if r.Err != nil {
			item.Error = r.Err.Error()
		}
		if r.Snapshot != nil {
			at := r.Snapshot.CapturedAt
			item.Method = r.Snapshot.Method
			item.Version = snapshotVersion(r.Snapshot)
			item.CapturedAt = &at
			item.Cache = a.store.Path(r.Identity.Name)
		}
		out = append(out, item)
	}
	return out
}

func (a *app) renderDetect(results []envsnap.DetectResult) {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		status, method, version, detail := "✓ detected", "", "", ""
		switch {
		case r.Err == nil && r.Snapshot != nil:
			method = string(r.Snapshot.Method)
			version = snapshotVersion(r.Snapshot)
			detail = a.store.Path(r.Identity.Name)
		case stderrors.Is(r.Err, errors.ErrToolchainUnavailable):
			status, detail = "○ unavailable", detectionReason(r.Err)
		default:
			status, detail = "✗ failed", detectionReason(r.Err)
		}
		rows = append(rows, []string{r.Identity.Name.String(), status, method, version, detail})
	}
	a.out.Table([]string{"TOOLCHAIN", "STATUS", "METHOD", "VERSION", "DETAIL"}, rows)
}

// snapshotVersion reads the version recorded in a snapshot, if any.
func snapshotVersion(s *envsnap.Snapshot) string {
	for _, key := range []string{strings.ToUpper(s.Toolchain.String()) + "_VERSION", "VCToolsVersion"} {
		if v, ok := s.Get(key); ok && v != "" {
			return v
		}
	}
	return ""
}

func detectionReason(err error) string {
	var de *envsnap.DetectionError
	if stderrors.As(err, &de) {
		return de.Reason
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
