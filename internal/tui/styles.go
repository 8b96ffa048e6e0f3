// Package tui provides terminal output components for crucible.
//
// Colors use lipgloss AdaptiveColor so they read on light and dark
// terminals. Every status is rendered with an icon, a color and its text, so
// output stays legible when colors are stripped.
//
// Call CheckNoColor before writing styled text to honor NO_COLOR and TERM=dumb.
package tui

import (
	"os"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/mrz1836/crucible/internal/domain"
)

//nolint:gochecknoglobals // Package-level style palette
var (
	// ColorPrimary is blue, used for headings and informational lines.
	ColorPrimary = lipgloss.AdaptiveColor{Light: "#0087AF", Dark: "#00D7FF"}

	// ColorSuccess is green, used for passed runs and successful builds.
	ColorSuccess = lipgloss.AdaptiveColor{Light: "#008700", Dark: "#00FF87"}

	// ColorWarning is yellow, used for skipped or unavailable toolchains.
	ColorWarning = lipgloss.AdaptiveColor{Light: "#AF8700", Dark: "#FFD700"}

	// ColorError is red, used for failures.
	ColorError = lipgloss.AdaptiveColor{Light: "#AF0000", Dark: "#FF5F5F"}

	// ColorMuted is gray, used for secondary text such as durations and paths.
	ColorMuted = lipgloss.AdaptiveColor{Light: "#585858", Dark: "#6C6C6C"}

	// StyleBold applies bold formatting.
	StyleBold = lipgloss.NewStyle().Bold(true)

	// StyleDim applies faint formatting.
	StyleDim = lipgloss.NewStyle().Faint(true)
)

// OutputStyles holds the styles used by TTYOutput.
type OutputStyles struct {
	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Info    lipgloss.Style
	Dim     lipgloss.Style
	Section lipgloss.Style
}

// NewOutputStyles creates the message styles.
func NewOutputStyles() *OutputStyles {
	return &OutputStyles{
		Success: lipgloss.NewStyle().Foreground(ColorSuccess).Bold(true),
		Error:   lipgloss.NewStyle().Foreground(ColorError).Bold(true),
		Warning: lipgloss.NewStyle().Foreground(ColorWarning),
		Info:    lipgloss.NewStyle().Foreground(ColorPrimary),
		Dim:     lipgloss.NewStyle().Foreground(ColorMuted),
		Section: lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true),
	}
}

// TableStyles holds lipgloss styles for table rendering.
type TableStyles struct {
	Header lipgloss.Style
	Cell   lipgloss.Style
	Dim    lipgloss.Style
}

// NewTableStyles creates styles for table rendering.
func NewTableStyles() *TableStyles {
	return &TableStyles{
		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#333333", Dark: "#DDDDDD"}),
		Cell: lipgloss.NewStyle(),
		Dim:  lipgloss.NewStyle().Foreground(ColorMuted),
	}
}

// CheckNoColor drops to the ASCII profile when colors are not wanted.
func CheckNoColor() {
	if !HasColorSupport() {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
}

// HasColorSupport returns false if NO_COLOR is present (any value, including
// empty) or TERM=dumb. See https://no-color.org/.
func HasColorSupport() bool {
	if _, exists := os.LookupEnv("NO_COLOR"); exists {
		return false
	}
	return os.Getenv("TERM") != "dumb"
}

// BuildStatusColor returns the color for a compile status.
func BuildStatusColor(status domain.BuildStatus) lipgloss.AdaptiveColor {
	switch status {
	case domain.BuildSucceeded:
		return ColorSuccess
	case domain.BuildToolchainUnavailable, domain.BuildCanceled:
		return ColorWarning
	case domain.BuildCompileFailed, domain.BuildSourceNotFound, domain.BuildDetectionFailed, domain.BuildTimedOut:
		return ColorError
	default:
		return ColorMuted
	}
}

// BuildStatusIcon returns the icon for a compile status.
func BuildStatusIcon(status domain.BuildStatus) string {
	switch status {
	case domain.BuildSucceeded:
		return "✓"
	case domain.BuildToolchainUnavailable:
		return "○"
	case domain.BuildCanceled:
		return "⊘"
	case domain.BuildTimedOut:
		return "⏱"
	case domain.BuildCompileFailed, domain.BuildSourceNotFound, domain.BuildDetectionFailed:
		return "✗"
	default:
		return "?"
	}
}

// RunOutcomeColor returns the color for a run outcome.
func RunOutcomeColor(outcome domain.RunOutcome) lipgloss.AdaptiveColor {
	switch outcome {
	case domain.RunPassed:
		return ColorSuccess
	case domain.RunNotFound:
		return ColorWarning
	case domain.RunFailed, domain.RunTimedOut:
		return ColorError
	default:
		return ColorMuted
	}
}

// RunOutcomeIcon returns the icon for a run outcome.
func RunOutcomeIcon(outcome domain.RunOutcome) string {
	switch outcome {
	case domain.RunPassed:
		return "✓"
	case domain.RunNotFound:
		return "○"
	case domain.RunTimedOut:
		return "⏱"
	case domain.RunFailed:
		return "✗"
	default:
		return "?"
	}
}

// Title converts a section name such as "cached snapshots" to "Cached Snapshots".
func Title(s string) string {
	return cases.Title(language.English).String(s)
}

// padRight pads s with spaces to width runes, truncating when longer.
func padRight(s string, width int) string {
	n := utf8.RuneCountInString(s)
	if n >= width {
		runes := []rune(s)
		return string(runes[:width])
	}
	return s + strings.Repeat(" ", width-n)
}
