package cli

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/crucible/internal/errors"
	"github.com/mrz1836/crucible/internal/testutil"
)

func TestExitCodeForError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: ExitSuccess},
		{name: "jobs failed", err: fmt.Errorf("1 of 2 builds failed: %w", errors.ErrJobsFailed), want: ExitError},
		{name: "no combinations", err: errors.ErrNoCombinations, want: ExitError},
		{name: "toolchain unavailable", err: errors.ErrToolchainUnavailable, want: ExitError},
		{name: "invalid selector", err: fmt.Errorf("mode %q: %w", "fast", errors.ErrInvalidSelector), want: ExitError},
		{name: "unsupported toolchain", err: errors.ErrUnsupportedToolchain, want: ExitError},
		{name: "invalid output format", err: errors.ErrInvalidOutputFormat, want: ExitError},
		{name: "invalid argument", err: errors.ErrInvalidArgument, want: ExitError},
		{name: "json wrapped selector", err: fmt.Errorf("%w: %w", errors.ErrJSONErrorOutput, errors.ErrInvalidSelector), want: ExitError},
		{name: "cobra unknown flag", err: stderrors.New("unknown flag: --fast"), want: ExitError},
		{name: "cobra arg count", err: stderrors.New("accepts between 3 and 5 arg(s), received 1"), want: ExitError},
		{name: "cobra unknown command", err: stderrors.New(`unknown command "bild" for "crucible"`), want: ExitError},
		{name: "generic", err: testutil.ErrMockDiskFull, want: ExitError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCodeForError(tt.err))
		})
	}
}

func TestIsValidOutputFormat(t *testing.T) {
	assert.True(t, IsValidOutputFormat(OutputText))
	assert.True(t, IsValidOutputFormat(OutputJSON))
	assert.False(t, IsValidOutputFormat("yaml"))
	assert.False(t, IsValidOutputFormat(""))
	assert.Equal(t, []string{"text", "json"}, ValidOutputFormats())
}

func TestAddGlobalFlags_Defaults(t *testing.T) {
	flags := &GlobalFlags{}
	cmd := &cobra.Command{Use: "test"}
	AddGlobalFlags(cmd, flags)

	assert.Equal(t, OutputText, flags.Output)
	assert.False(t, flags.Verbose)
	assert.False(t, flags.Quiet)
	assert.Zero(t, flags.Jobs)

	for _, short := range []string{"o", "v", "q", "j"} {
		assert.NotNil(t, cmd.PersistentFlags().ShorthandLookup(short), short)
	}
}

func TestApplyBoundFlags_EnvironmentFillsUnsetFlags(t *testing.T) {
	t.Setenv("CRUCIBLE_JOBS", "6")
	t.Setenv("CRUCIBLE_BUILD_ROOT", "/tmp/from-env")
	t.Setenv("CRUCIBLE_OUTPUT", "json")

	flags := &GlobalFlags{}
	cmd := &cobra.Command{Use: "test", RunE: func(*cobra.Command, []string) error { return nil }}
	AddGlobalFlags(cmd, flags)
	require.NoError(t, cmd.ParseFlags([]string{"--output", "text"}))

	v := viper.New()
	require.NoError(t, BindGlobalFlags(v, cmd))
	applyBoundFlags(v, cmd, flags)

	assert.Equal(t, 6, flags.Jobs)
	assert.Equal(t, "/tmp/from-env", flags.BuildRoot)
	assert.Equal(t, OutputText, flags.Output, "explicit flags win over the environment")
}
