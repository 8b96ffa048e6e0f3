package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/mrz1836/crucible/internal/compiler"
	"github.com/mrz1836/crucible/internal/config"
	"github.com/mrz1836/crucible/internal/domain"
	"github.com/mrz1836/crucible/internal/envsnap"
	"github.com/mrz1836/crucible/internal/matrix"
	"github.com/mrz1836/crucible/internal/metrics"
	"github.com/mrz1836/crucible/internal/orchestrator"
	"github.com/mrz1836/crucible/internal/process"
	"github.com/mrz1836/crucible/internal/report"
	"github.com/mrz1836/crucible/internal/runner"
	"github.com/mrz1836/crucible/internal/toolchain"
	"github.com/mrz1836/crucible/internal/tui"
)

// Deps are the host-facing dependencies of every command.
type Deps struct {
	// Process spawns compilers, activation scripts and artifacts.
	Process process.Runner
	// Executor looks up compiler commands and runs version probes.
	Executor toolchain.CommandExecutor
	// Environ is the orchestrator environment inherited snapshots start from.
	// Nil means os.Environ.
	Environ func() []string
	// Getenv reads GCC_CXX style command overrides. Nil means os.Getenv.
	Getenv func(string) string
	// Discovery finds vendor activation scripts. Nil means the host's
	// standard install locations.
	Discovery *envsnap.Discovery
}

// DefaultDeps returns dependencies backed by the real host.
func DefaultDeps() Deps {
	return Deps{
		Process:  process.NewExecRunner(),
		Executor: toolchain.DefaultCommandExecutor{},
	}
}

// app is everything one command invocation needs, wired from configuration.
type app struct {
	cfg    *config.Config
	flags  *GlobalFlags
	w      io.Writer
	out    tui.Output
	logger zerolog.Logger

	registry  *toolchain.Registry
	store     *envsnap.FileStore
	isolator  *envsnap.Isolator
	expander  *matrix.Expander
	invoker   *compiler.Invoker
	runner    *runner.Runner
	collector *report.Collector
	metrics   *metrics.PrometheusRecorder
}

// newApp loads configuration and wires the pipeline. Nothing is spawned here.
func newApp(ctx context.Context, cmd *cobra.Command, flags *GlobalFlags, deps Deps) (*app, error) {
	overrides := &config.Config{}
	overrides.Paths.SourceRoot = flags.SourceRoot
	overrides.Paths.BuildRoot = flags.BuildRoot
	overrides.Build.Jobs = flags.Jobs
	overrides.Metrics.TextfilePath = flags.MetricsFile

	cfg, err := config.LoadWithOverrides(ctx, overrides)
	if err != nil {
		return nil, err
	}
	return wireApp(cmd, flags, cfg, deps)
}

func wireApp(cmd *cobra.Command, flags *GlobalFlags, cfg *config.Config, deps Deps) (*app, error) {
	if deps.Process == nil {
		deps.Process = process.NewExecRunner()
	}
	if deps.Executor == nil {
		deps.Executor = toolchain.DefaultCommandExecutor{}
	}

	commands := make(map[domain.Toolchain]string, len(domain.Toolchains()))
	activations := make(map[domain.Toolchain]envsnap.Activation)
	for _, tc := range domain.Toolchains() {
		tcfg := cfg.Toolchains.For(string(tc))
		commands[tc] = tcfg.Command
		if tcfg.Activation != "" {
			activations[tc] = envsnap.Activation{Script: tcfg.Activation, Args: tcfg.ActivationArgs}
		}
	}

	registry, err := toolchain.NewRegistry(toolchain.Options{
		Commands: commands,
		EnvFile:  cfg.Toolchains.EnvFile,
		Native:   domain.Toolchain(cfg.Toolchains.Native),
		Getenv:   deps.Getenv,
		Executor: deps.Executor,
	})
	if err != nil {
		return nil, err
	}

	discovery := envsnap.NewDiscovery()
	if deps.Discovery != nil {
		discovery = *deps.Discovery
	}

	store := envsnap.NewFileStore(cfg.Paths.CacheDir())
	isolator := envsnap.NewIsolator(envsnap.Options{
		Store:       store,
		Capturer:    envsnap.NewShellCapturer(deps.Process, cfg.Timeouts.Detect),
		Activations: activations,
		Discovery:   discovery,
		LookPath:    deps.Executor.LookPath,
		Version:     registry.Version,
		Environ:     deps.Environ,
	})

	modes, err := matrix.ModesFromConfig(cfg.Matrix.DefaultModes)
	if err != nil {
		return nil, err
	}
	expander := matrix.NewExpander(cfg.Paths.SourceRoot, cfg.Paths.BuildRoot, modes)

	invoker := compiler.NewInvoker(registry, isolator, deps.Process, compiler.Options{
		IncludeDir:         cfg.Paths.IncludeDir,
		ExtraFlags:         cfg.Build.ExtraFlags,
		CompileTimeout:     cfg.Timeouts.Compile,
		DemoCompileTimeout: cfg.Timeouts.DemoCompile,
		DiagnosticLimit:    cfg.Build.DiagnosticLimit,
		CleanOutput:        cfg.Build.CleanOutput,
	})

	collector := report.NewCollector()
	run := runner.New(registry, isolator, deps.Process, runner.Options{
		TestTimeout:  cfg.Timeouts.Test,
		BenchTimeout: cfg.Timeouts.Bench,
		DemoTimeout:  cfg.Timeouts.Demo,
	}).WithSink(collector)

	var recorder *metrics.PrometheusRecorder
	if cfg.Metrics.TextfilePath != "" {
		recorder = metrics.NewPrometheusRecorder(nil)
	}

	w := cmd.OutOrStdout()
	return &app{
		cfg:       cfg,
		flags:     flags,
		w:         w,
		out:       tui.NewOutput(w, flags.Output),
		logger:    GetLogger().With().Str("run_id", collector.RunID()).Logger(),
		registry:  registry,
		store:     store,
		isolator:  isolator,
		expander:  expander,
		invoker:   invoker,
		runner:    run,
		collector: collector,
		metrics:   recorder,
	}, nil
}

// context attaches the run-scoped logger so components reach it through
// zerolog.Ctx.
func (a *app) context(ctx context.Context) context.Context {
	return a.logger.WithContext(ctx)
}

// orchestrator returns an orchestrator printing live status lines in text mode.
func (a *app) orchestrator(repeat int) *orchestrator.Orchestrator {
	var observer orchestrator.Observer
	if a.flags.Output != OutputJSON && !a.flags.Quiet {
		observer = newStatusPrinter(a.w)
	}
	return orchestrator.New(a.invoker, a.runner, a.isolator, observer, a.recorder(), orchestrator.Options{
		Jobs:   a.cfg.Build.Jobs,
		Repeat: repeat,
	})
}

// recorder returns the Prometheus recorder when metrics are exported.
func (a *app) recorder() metrics.Recorder {
	if a.metrics == nil {
		return metrics.NoopRecorder{}
	}
	return a.metrics
}

// finish writes the metrics textfile when one is configured. A failure is
// logged and does not change the command's result.
func (a *app) finish() {
	if a.metrics == nil {
		return
	}
	if err := a.metrics.WriteTextfile(a.cfg.Metrics.TextfilePath); err != nil {
		a.logger.Warn().Err(err).Str("path", a.cfg.Metrics.TextfilePath).Msg("failed to write metrics")
		return
	}
	a.logger.Debug().Str("path", a.cfg.Metrics.TextfilePath).Msg("metrics written")
}

// resultsPath resolves a results file against the build root.
func (a *app) resultsPath(override string) string {
	path := a.cfg.Report.ResultsFile
	if override != "" {
		path = override
	}
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(a.cfg.Paths.BuildRoot, path)
}

// identities returns the registry identities selected by sel, in canonical order.
func (a *app) identities(sel matrix.Selector[domain.Toolchain]) []toolchain.Identity {
	names := sel.Expand(domain.Toolchains())
	ids := make([]toolchain.Identity, 0, len(names))
	for _, name := range names {
		ids = append(ids, a.registry.Get(name))
	}
	return ids
}

// nativeToolchain is the default toolchain for single-artifact commands.
func (a *app) nativeToolchain() matrix.Selector[domain.Toolchain] {
	return matrix.Specific(domain.Toolchain(a.cfg.Toolchains.Native))
}

// runWithApp loads the app, runs fn and always writes metrics afterwards.
func runWithApp(cmd *cobra.Command, flags *GlobalFlags, deps Deps, fn func(ctx context.Context, a *app) error) error {
	a, err := newApp(cmd.Context(), cmd, flags, deps)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	defer a.finish()
	return fn(a.context(cmd.Context()), a)
}
