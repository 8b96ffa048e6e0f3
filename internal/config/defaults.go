package config

import (
	"runtime"

	"github.com/mrz1836/crucible/internal/constants"
)

// DefaultConfig returns a Config populated with built-in defaults.
// It mirrors setDefaults so that code paths not going through viper agree.
func DefaultConfig() *Config {
	return &Config{
		Paths: PathsConfig{
			SourceRoot: constants.DefaultSourceRoot,
			BuildRoot:  constants.DefaultBuildRoot,
			IncludeDir: constants.DefaultIncludeDir,
		},
		Timeouts: TimeoutsConfig{
			Compile:     constants.DefaultCompileTimeout,
			DemoCompile: constants.DefaultDemoCompileTimeout,
			Test:        constants.DefaultTestTimeout,
			Bench:       constants.DefaultBenchTimeout,
			Demo:        constants.DefaultDemoTimeout,
			Detect:      constants.DefaultDetectTimeout,
		},
		Toolchains: ToolchainsConfig{
			Native: defaultNativeToolchain(),
		},
		Matrix: MatrixConfig{
			DefaultModes: []string{"debug", "release"},
			BenchMode:    "release",
		},
		Build: BuildConfig{
			CleanOutput:     true,
			DiagnosticLimit: constants.DefaultDiagnosticLimit,
			Jobs:            1,
		},
		Report: ReportConfig{
			ResultsFile: constants.DefaultResultsFile,
			Format:      "csv",
		},
	}
}

// defaultNativeToolchain is the compiler assumed present on the host platform.
func defaultNativeToolchain() string {
	if runtime.GOOS == "windows" {
		return "msvc"
	}
	return "gcc"
}
