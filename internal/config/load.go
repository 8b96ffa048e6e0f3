package config

import (
	"context"
	stderrors "errors"
	"os"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/mrz1836/crucible/internal/constants"
	"github.com/mrz1836/crucible/internal/errors"
)

// newViperInstance creates a Viper instance with defaults and CRUCIBLE_ env binding.
func newViperInstance() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("CRUCIBLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func isConfigNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	var configNotFoundErr viper.ConfigFileNotFoundError
	return stderrors.As(err, &configNotFoundErr)
}

func unmarshalAndValidate(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg, viperDecoderOption()); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	if err := Validate(&cfg); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return &cfg, nil
}

// Load reads configuration from every available source with proper precedence.
// Missing config files are not an error.
func Load(ctx context.Context) (*Config, error) {
	v := newViperInstance()

	if err := loadGlobalConfig(v); err != nil {
		return nil, err
	}
	if err := loadProjectConfig(v); err != nil {
		return nil, err
	}

	cfg, err := unmarshalAndValidate(v)
	if err != nil {
		return nil, err
	}

	zerolog.Ctx(ctx).Debug().
		Str("component", "config").
		Str("source_root", cfg.Paths.SourceRoot).
		Str("build_root", cfg.Paths.BuildRoot).
		Strs("default_modes", cfg.Matrix.DefaultModes).
		Dur("compile_timeout", cfg.Timeouts.Compile).
		Msg("configuration loaded")

	return cfg, nil
}

func loadGlobalConfig(v *viper.Viper) error {
	path, err := GlobalConfigPath()
	if err != nil || !fileExists(path) {
		return nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil && !isConfigNotFoundError(err) {
		return errors.Wrap(err, "failed to read global config file")
	}
	return nil
}

func loadProjectConfig(v *viper.Viper) error {
	path := ProjectConfigPath()
	if !fileExists(path) {
		return nil
	}
	v.SetConfigFile(path)
	if err := v.MergeInConfig(); err != nil && !isConfigNotFoundError(err) {
		return errors.Wrap(err, "failed to read project config file")
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// LoadWithOverrides loads configuration and applies CLI flag overrides.
// Only non-zero override values are applied.
func LoadWithOverrides(ctx context.Context, overrides *Config) (*Config, error) {
	cfg, err := Load(ctx)
	if err != nil {
		return nil, err
	}
	if overrides != nil {
		applyOverrides(cfg, overrides)
	}
	if err := Validate(cfg); err != nil {
		return nil, errors.Wrap(err, "invalid configuration after overrides")
	}
	return cfg, nil
}

// LoadFromPaths loads configuration from specific files, for tests.
// Either path may be empty to skip that layer.
func LoadFromPaths(_ context.Context, projectConfigPath, globalConfigPath string) (*Config, error) {
	v := newViperInstance()

	if globalConfigPath != "" {
		v.SetConfigFile(globalConfigPath)
		if err := v.ReadInConfig(); err != nil && !isConfigNotFoundError(err) && !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "failed to read global config: %s", globalConfigPath)
		}
	}

	if projectConfigPath != "" {
		v.SetConfigFile(projectConfigPath)
		if err := v.MergeInConfig(); err != nil && !isConfigNotFoundError(err) && !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "failed to read project config: %s", projectConfigPath)
		}
	}

	return unmarshalAndValidate(v)
}

// setDefaults registers every default on v.
// Keys must match the mapstructure tags exactly.
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("paths.source_root", d.Paths.SourceRoot)
	v.SetDefault("paths.build_root", d.Paths.BuildRoot)
	v.SetDefault("paths.include_dir", d.Paths.IncludeDir)
	v.SetDefault("paths.env_cache_dir", "")

	v.SetDefault("timeouts.compile", constants.DefaultCompileTimeout.String())
	v.SetDefault("timeouts.demo_compile", constants.DefaultDemoCompileTimeout.String())
	v.SetDefault("timeouts.test", constants.DefaultTestTimeout.String())
	v.SetDefault("timeouts.bench", constants.DefaultBenchTimeout.String())
	v.SetDefault("timeouts.demo", constants.DefaultDemoTimeout.String())
	v.SetDefault("timeouts.detect", constants.DefaultDetectTimeout.String())

	v.SetDefault("toolchains.native", d.Toolchains.Native)
	v.SetDefault("toolchains.env_file", "")
	for _, name := range []string{"gcc", "clang", "intel", "msvc"} {
		v.SetDefault("toolchains."+name+".command", "")
		v.SetDefault("toolchains."+name+".activation", "")
		v.SetDefault("toolchains."+name+".activation_args", []string{})
	}

	v.SetDefault("matrix.default_modes", d.Matrix.DefaultModes)
	v.SetDefault("matrix.bench_mode", d.Matrix.BenchMode)

	v.SetDefault("build.clean_output", d.Build.CleanOutput)
	v.SetDefault("build.diagnostic_limit", d.Build.DiagnosticLimit)
	v.SetDefault("build.extra_flags", []string{})
	v.SetDefault("build.jobs", d.Build.Jobs)

	v.SetDefault("report.results_file", d.Report.ResultsFile)
	v.SetDefault("report.format", d.Report.Format)

	v.SetDefault("metrics.textfile_path", "")
}

// applyOverrides merges non-zero override values into cfg.
// Booleans are not overridable here; the CLI checks Flags().Changed for those.
func applyOverrides(cfg, overrides *Config) {
	if overrides.Paths.SourceRoot != "" {
		cfg.Paths.SourceRoot = overrides.Paths.SourceRoot
	}
	if overrides.Paths.BuildRoot != "" {
		cfg.Paths.BuildRoot = overrides.Paths.BuildRoot
	}
	if overrides.Paths.IncludeDir != "" {
		cfg.Paths.IncludeDir = overrides.Paths.IncludeDir
	}
	if overrides.Build.Jobs != 0 {
		cfg.Build.Jobs = overrides.Build.Jobs
	}
	if len(overrides.Build.ExtraFlags) > 0 {
		cfg.Build.ExtraFlags = append(cfg.Build.ExtraFlags, overrides.Build.ExtraFlags...)
	}
	if overrides.Report.ResultsFile != "" {
		cfg.Report.ResultsFile = overrides.Report.ResultsFile
	}
	if overrides.Report.Format != "" {
		cfg.Report.Format = overrides.Report.Format
	}
	if overrides.Metrics.TextfilePath != "" {
		cfg.Metrics.TextfilePath = overrides.Metrics.TextfilePath
	}
}

// viperDecoderOption decodes duration strings and comma separated lists.
func viperDecoderOption() viper.DecoderConfigOption {
	return viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	)
}
