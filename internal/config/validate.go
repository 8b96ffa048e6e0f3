package config

import (
	"slices"
	"time"

	"github.com/mrz1836/crucible/internal/domain"
	"github.com/mrz1836/crucible/internal/errors"
)

// Validate checks the configuration for invalid or inconsistent values.
// It returns the first failure found.
//
// Validation rules:
//   - every timeout must be positive
//   - matrix.default_modes must be non-empty and contain only known modes
//   - matrix.bench_mode must be a known mode
//   - toolchains.native must be a known toolchain
//   - build.diagnostic_limit and build.jobs must be positive
//   - report.format must be csv or json
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.ErrConfigNil
	}
	if err := validateTimeouts(&cfg.Timeouts); err != nil {
		return err
	}
	if err := validateMatrix(&cfg.Matrix); err != nil {
		return err
	}
	if err := validateToolchains(&cfg.Toolchains); err != nil {
		return err
	}
	return validateBuild(cfg)
}

func validateTimeouts(t *TimeoutsConfig) error {
	checks := []struct {
		key   string
		value time.Duration
	}{
		{"timeouts.compile", t.Compile},
		{"timeouts.demo_compile", t.DemoCompile},
		{"timeouts.test", t.Test},
		{"timeouts.bench", t.Bench},
		{"timeouts.demo", t.Demo},
		{"timeouts.detect", t.Detect},
	}
	for _, c := range checks {
		if c.value <= 0 {
			return errors.Wrapf(errors.ErrConfigInvalidTimeouts, "%s must be positive, got %s", c.key, c.value)
		}
	}
	return nil
}

func validateMatrix(m *MatrixConfig) error {
	if len(m.DefaultModes) == 0 {
		return errors.Wrap(errors.ErrConfigInvalidMatrix, "matrix.default_modes must not be empty")
	}
	for _, mode := range m.DefaultModes {
		if !isKnownMode(mode) {
			return errors.Wrapf(errors.ErrConfigInvalidMatrix, "matrix.default_modes contains unknown mode %q", mode)
		}
	}
	if !isKnownMode(m.BenchMode) {
		return errors.Wrapf(errors.ErrConfigInvalidMatrix, "matrix.bench_mode %q is not a known mode", m.BenchMode)
	}
	return nil
}

func validateToolchains(t *ToolchainsConfig) error {
	if !domain.Toolchain(t.Native).Valid() {
		return errors.Wrapf(errors.ErrConfigInvalidToolchains, "toolchains.native %q is not a known toolchain", t.Native)
	}
	return nil
}

func validateBuild(cfg *Config) error {
	if cfg.Build.DiagnosticLimit <= 0 {
		return errors.Wrapf(errors.ErrConfigInvalidBuild, "build.diagnostic_limit must be positive, got %d", cfg.Build.DiagnosticLimit)
	}
	if cfg.Build.Jobs <= 0 {
		return errors.Wrapf(errors.ErrConfigInvalidBuild, "build.jobs must be positive, got %d", cfg.Build.Jobs)
	}
	if cfg.Report.Format != "csv" && cfg.Report.Format != "json" {
		return errors.Wrapf(errors.ErrConfigInvalidBuild, "report.format must be csv or json, got %q", cfg.Report.Format)
	}
	return nil
}

func isKnownMode(mode string) bool {
	return slices.Contains(domain.Modes(), domain.Mode(mode))
}
