package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/mrz1836/crucible/internal/constants"
	"github.com/mrz1836/crucible/internal/errors"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_ReturnsDefaultsWhenNoConfigFile(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv(HomeEnvVar, t.TempDir())

	cfg, err := Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, constants.DefaultBuildRoot, cfg.Paths.BuildRoot)
	assert.Equal(t, constants.DefaultTestTimeout, cfg.Timeouts.Test)
	assert.Equal(t, constants.DefaultBenchTimeout, cfg.Timeouts.Bench)
	assert.Equal(t, []string{"debug", "release"}, cfg.Matrix.DefaultModes)
	assert.True(t, cfg.Build.CleanOutput)
	assert.Equal(t, 1, cfg.Build.Jobs)
}

func TestLoad_ReadsProjectConfigFromWorkingDirectory(t *testing.T) {
	project := t.TempDir()
	t.Chdir(project)
	t.Setenv(HomeEnvVar, t.TempDir())

	require.NoError(t, os.MkdirAll(filepath.Join(project, ".crucible"), 0o750))
	writeConfig(t, filepath.Join(project, ".crucible"), `
paths:
  build_root: out
timeouts:
  test: 45s
`)

	cfg, err := Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "out", cfg.Paths.BuildRoot)
	assert.Equal(t, 45*time.Second, cfg.Timeouts.Test)
	assert.Equal(t, filepath.Join("out", "compiler_envs"), cfg.Paths.CacheDir())
}

func TestLoadFromPaths_ProjectConfigOverridesGlobal(t *testing.T) {
	global := writeConfig(t, t.TempDir(), `
timeouts:
  bench: 10m
  test: 20s
toolchains:
  clang:
    command: clang++-18
`)
	project := writeConfig(t, t.TempDir(), `
timeouts:
  test: 1m
`)

	cfg, err := LoadFromPaths(context.Background(), project, global)
	require.NoError(t, err)

	assert.Equal(t, time.Minute, cfg.Timeouts.Test, "project wins")
	assert.Equal(t, 10*time.Minute, cfg.Timeouts.Bench, "global value survives the merge")
	assert.Equal(t, "clang++-18", cfg.Toolchains.For("clang").Command)
}

func TestLoadFromPaths_ToolchainActivation(t *testing.T) {
	project := writeConfig(t, t.TempDir(), `
toolchains:
  msvc:
    activation: C:/VS/VC/Auxiliary/Build/vcvarsall.bat
    activation_args: [x64]
`)

	cfg, err := LoadFromPaths(context.Background(), project, "")
	require.NoError(t, err)

	msvc := cfg.Toolchains.For("msvc")
	assert.Equal(t, "C:/VS/VC/Auxiliary/Build/vcvarsall.bat", msvc.Activation)
	assert.Equal(t, []string{"x64"}, msvc.ActivationArgs)
	assert.Equal(t, ToolchainConfig{}, cfg.Toolchains.For("unknown"))
}

func TestLoadFromPaths_EnvVarOverridesFiles(t *testing.T) {
	project := writeConfig(t, t.TempDir(), `
build:
  jobs: 2
`)
	t.Setenv("CRUCIBLE_BUILD_JOBS", "6")
	t.Setenv("CRUCIBLE_TIMEOUTS_COMPILE", "90s")

	cfg, err := LoadFromPaths(context.Background(), project, "")
	require.NoError(t, err)
	assert.Equal(t, 6, cfg.Build.Jobs)
	assert.Equal(t, 90*time.Second, cfg.Timeouts.Compile)
}

func TestLoadFromPaths_MissingFilesAreIgnored(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadFromPaths(context.Background(), filepath.Join(dir, "nope.yaml"), filepath.Join(dir, "also-nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, constants.DefaultDiagnosticLimit, cfg.Build.DiagnosticLimit)
}

func TestLoadFromPaths_InvalidYAML(t *testing.T) {
	project := writeConfig(t, t.TempDir(), "paths: [unterminated")

	_, err := LoadFromPaths(context.Background(), project, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read project config")
}

func TestLoadFromPaths_ValidationFailure(t *testing.T) {
	project := writeConfig(t, t.TempDir(), `
matrix:
  default_modes: [debug, turbo]
`)

	_, err := LoadFromPaths(context.Background(), project, "")
	require.ErrorIs(t, err, errors.ErrConfigInvalidMatrix)
}

func TestApplyOverrides(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Build.ExtraFlags = []string{"-Werror"}

	applyOverrides(cfg, &Config{
		Paths:   PathsConfig{BuildRoot: "/tmp/out"},
		Build:   BuildConfig{Jobs: 4, ExtraFlags: []string{"-march=native"}},
		Metrics: MetricsConfig{TextfilePath: "/tmp/crucible.prom"},
	})

	assert.Equal(t, "/tmp/out", cfg.Paths.BuildRoot)
	assert.Equal(t, constants.DefaultSourceRoot, cfg.Paths.SourceRoot, "zero values do not override")
	assert.Equal(t, 4, cfg.Build.Jobs)
	assert.Equal(t, []string{"-Werror", "-march=native"}, cfg.Build.ExtraFlags)
	assert.Equal(t, "/tmp/crucible.prom", cfg.Metrics.TextfilePath)
}

func TestGlobalConfigDir_HonorsHomeOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(HomeEnvVar, dir)

	got, err := GlobalConfigDir()
	require.NoError(t, err)
	assert.Equal(t, dir, got)

	path, err := GlobalConfigPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "config.yaml"), path)

	logs, err := LogDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "logs"), logs)
}

func TestProjectConfigPath(t *testing.T) {
	assert.Equal(t, filepath.Join(".crucible", "config.yaml"), ProjectConfigPath())
}

func TestTimeoutsConfig_MarshalYAML(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timeouts.Test = 45 * time.Second

	data, err := yaml.Marshal(cfg)
	require.NoError(t, err)
	assert.Contains(t, string(data), "test: 45s")
	assert.Contains(t, string(data), "bench: "+constants.DefaultBenchTimeout.String())
}
