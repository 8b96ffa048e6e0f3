// Package config provides configuration management for crucible with layered precedence.
//
// Configuration sources are loaded in the following order (highest precedence first):
//  1. CLI flags (passed via LoadWithOverrides)
//  2. Environment variables (CRUCIBLE_* prefix, dots become underscores)
//  3. Project config (.crucible/config.yaml)
//  4. Global config (~/.crucible/config.yaml)
//  5. Built-in defaults
//
// IMPORTANT: This package may import internal/constants, internal/domain and
// internal/errors, but no other internal packages.
package config

import (
	"path/filepath"
	"time"

	"github.com/mrz1836/crucible/internal/constants"
)

// Config is the root configuration structure for crucible.
type Config struct {
	// Paths locates sources, headers and build output.
	Paths PathsConfig `yaml:"paths" mapstructure:"paths"`

	// Timeouts bounds every child process crucible spawns.
	Timeouts TimeoutsConfig `yaml:"timeouts" mapstructure:"timeouts"`

	// Toolchains overrides compiler commands and activation scripts.
	Toolchains ToolchainsConfig `yaml:"toolchains" mapstructure:"toolchains"`

	// Matrix controls how "all" selectors expand.
	Matrix MatrixConfig `yaml:"matrix" mapstructure:"matrix"`

	// Build controls compile behavior and parallelism.
	Build BuildConfig `yaml:"build" mapstructure:"build"`

	// Report controls benchmark record emission.
	Report ReportConfig `yaml:"report" mapstructure:"report"`

	// Metrics controls Prometheus textfile export.
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`
}

// PathsConfig locates the project tree. Relative paths resolve against the
// working directory crucible is started from.
type PathsConfig struct {
	// SourceRoot contains tests/, benchs/ and demos/.
	// Default: "."
	SourceRoot string `yaml:"source_root" mapstructure:"source_root"`

	// BuildRoot receives build_tests/, build_benchs/, build_demos/ and the snapshot cache.
	// Default: "build"
	BuildRoot string `yaml:"build_root" mapstructure:"build_root"`

	// IncludeDir is passed to every compile as an include path.
	// Default: "include"
	IncludeDir string `yaml:"include_dir" mapstructure:"include_dir"`

	// EnvCacheDir overrides where snapshots are stored.
	// Default: "" (meaning <build_root>/compiler_envs)
	EnvCacheDir string `yaml:"env_cache_dir" mapstructure:"env_cache_dir"`
}

// CacheDir returns the effective snapshot cache directory.
func (p PathsConfig) CacheDir() string {
	if p.EnvCacheDir != "" {
		return p.EnvCacheDir
	}
	return filepath.Join(p.BuildRoot, constants.EnvCacheDirName)
}

// TimeoutsConfig holds per-activity process budgets.
type TimeoutsConfig struct {
	Compile     time.Duration `yaml:"compile" mapstructure:"compile"`
	DemoCompile time.Duration `yaml:"demo_compile" mapstructure:"demo_compile"`
	Test        time.Duration `yaml:"test" mapstructure:"test"`
	Bench       time.Duration `yaml:"bench" mapstructure:"bench"`
	Demo        time.Duration `yaml:"demo" mapstructure:"demo"`
	Detect      time.Duration `yaml:"detect" mapstructure:"detect"`
}

// MarshalYAML renders durations as "30s" rather than nanoseconds, matching
// how they are written in config files.
func (t TimeoutsConfig) MarshalYAML() (any, error) {
	return map[string]string{
		"compile":      t.Compile.String(),
		"demo_compile": t.DemoCompile.String(),
		"test":         t.Test.String(),
		"bench":        t.Bench.String(),
		"demo":         t.Demo.String(),
		"detect":       t.Detect.String(),
	}, nil
}

// ToolchainConfig customizes a single toolchain.
type ToolchainConfig struct {
	// Command replaces the default compiler executable (e.g. "g++-14").
	Command string `yaml:"command,omitempty" mapstructure:"command"`

	// Activation is a vendor script whose resulting environment is captured
	// (vcvarsall.bat, setvars.sh). Empty means "auto-discover" for msvc and intel.
	Activation string `yaml:"activation,omitempty" mapstructure:"activation"`

	// ActivationArgs are passed to the activation script (e.g. ["x64"]).
	ActivationArgs []string `yaml:"activation_args,omitempty" mapstructure:"activation_args"`
}

// ToolchainsConfig holds per-toolchain overrides.
type ToolchainsConfig struct {
	// Native is the toolchain trusted to exist without probing.
	// Default: "gcc" on unix, "msvc" on windows.
	Native string `yaml:"native" mapstructure:"native"`

	// EnvFile is an optional dotenv file with GCC_CXX style command overrides.
	EnvFile string `yaml:"env_file,omitempty" mapstructure:"env_file"`

	GCC   ToolchainConfig `yaml:"gcc" mapstructure:"gcc"`
	Clang ToolchainConfig `yaml:"clang" mapstructure:"clang"`
	Intel ToolchainConfig `yaml:"intel" mapstructure:"intel"`
	MSVC  ToolchainConfig `yaml:"msvc" mapstructure:"msvc"`
}

// For returns the per-toolchain section for name, or a zero value.
func (t ToolchainsConfig) For(name string) ToolchainConfig {
	switch name {
	case "gcc":
		return t.GCC
	case "clang":
		return t.Clang
	case "intel":
		return t.Intel
	case "msvc":
		return t.MSVC
	default:
		return ToolchainConfig{}
	}
}

// MatrixConfig controls selector expansion.
type MatrixConfig struct {
	// DefaultModes is what the "all" mode selector expands to.
	// Default: ["debug", "release"]
	DefaultModes []string `yaml:"default_modes" mapstructure:"default_modes"`

	// BenchMode is the mode used by run/bench when none is given.
	// Default: "release"
	BenchMode string `yaml:"bench_mode" mapstructure:"bench_mode"`
}

// BuildConfig controls compile behavior.
type BuildConfig struct {
	// CleanOutput deletes the expected artifact before each compile so a stale
	// binary can never be mistaken for a fresh one.
	// Default: true
	CleanOutput bool `yaml:"clean_output" mapstructure:"clean_output"`

	// DiagnosticLimit is how many characters of compiler output are kept on failure.
	// Default: 200
	DiagnosticLimit int `yaml:"diagnostic_limit" mapstructure:"diagnostic_limit"`

	// ExtraFlags are appended verbatim to every compile.
	ExtraFlags []string `yaml:"extra_flags,omitempty" mapstructure:"extra_flags"`

	// Jobs is the number of matrix jobs run concurrently.
	// Default: 1
	Jobs int `yaml:"jobs" mapstructure:"jobs"`
}

// ReportConfig controls benchmark record emission.
type ReportConfig struct {
	// ResultsFile receives benchmark records. Relative paths resolve against the build root.
	// Default: "benchmark_results.csv"
	ResultsFile string `yaml:"results_file" mapstructure:"results_file"`

	// Format is "csv" or "json".
	// Default: "csv"
	Format string `yaml:"format" mapstructure:"format"`
}

// MetricsConfig controls Prometheus export.
type MetricsConfig struct {
	// TextfilePath, when set, receives a node-exporter textfile after each command.
	TextfilePath string `yaml:"textfile_path,omitempty" mapstructure:"textfile_path"`
}
