package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mrz1836/crucible/internal/config"
	"github.com/mrz1836/crucible/internal/tui"
)

// configFile reports one configuration layer.
type configFile struct {
	Path   string `json:"path" yaml:"path"`
	Exists bool   `json:"exists" yaml:"exists"`
}

// configShowJSON is the output of `config show --output json`.
type configShowJSON struct {
	Global  configFile     `json:"global"`
	Project configFile     `json:"project"`
	Config  *config.Config `json:"config"`
}

// AddConfigCommand adds the config command group to the root command.
func AddConfigCommand(root *cobra.Command, flags *GlobalFlags) {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect crucible configuration",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Display the effective configuration",
		Long: `Display the configuration crucible would use, after merging every layer:

  1. CLI flags
  2. CRUCIBLE_* environment variables (CRUCIBLE_BUILD_JOBS, ...)
  3. project config (.crucible/config.yaml)
  4. global config (~/.crucible/config.yaml, or $CRUCIBLE_HOME/config.yaml)
  5. built-in defaults

Examples:
  crucible config show
  crucible config show --output json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return reportError(cmd, flags, runConfigShow(cmd.Context(), cmd.OutOrStdout(), flags))
		},
	}

	cmd.AddCommand(show)
	root.AddCommand(cmd)
}

func runConfigShow(ctx context.Context, w io.Writer, flags *GlobalFlags) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	overrides := &config.Config{}
	overrides.Paths.SourceRoot = flags.SourceRoot
	overrides.Paths.BuildRoot = flags.BuildRoot
	overrides.Build.Jobs = flags.Jobs
	overrides.Metrics.TextfilePath = flags.MetricsFile
	cfg, err := config.LoadWithOverrides(ctx, overrides)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	layers := configShowJSON{Project: fileLayer(config.ProjectConfigPath()), Config: cfg}
	if path, err := config.GlobalConfigPath(); err == nil {
		layers.Global = fileLayer(path)
	}

	if flags.Output == OutputJSON {
		return tui.NewOutput(w, flags.Output).JSON(layers)
	}

	tui.CheckNoColor()
	header := lipgloss.NewStyle().Bold(true).Foreground(tui.ColorPrimary)
	dim := lipgloss.NewStyle().Foreground(tui.ColorMuted)

	_, _ = fmt.Fprintln(w, header.Render("Effective crucible configuration"))
	for _, l := range []struct {
		name string
		file configFile
	}{{"global ", layers.Global}, {"project", layers.Project}} {
		state := "not found"
		if l.file.Exists {
			state = "loaded"
		}
		_, _ = fmt.Fprintln(w, dim.Render(fmt.Sprintf("%s  %s (%s)", l.name, l.file.Path, state)))
	}
	_, _ = fmt.Fprintln(w)

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}
	return enc.Close()
}

func fileLayer(path string) configFile {
	info, err := os.Stat(path)
	return configFile{Path: path, Exists: err == nil && !info.IsDir()}
}
