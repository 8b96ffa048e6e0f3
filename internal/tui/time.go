package tui

import (
	"fmt"
	"time"

	"github.com/mrz1836/crucible/internal/clock"
)

// DefaultClock is the clock Age reads. Tests replace it.
//
//nolint:gochecknoglobals // Package-level default for dependency injection
var DefaultClock clock.Clock = clock.RealClock{}

// Age formats how long ago t was, e.g. "just now", "5 minutes ago", "3 days ago".
func Age(t time.Time) string {
	return AgeWith(t, DefaultClock)
}

// AgeWith is Age against an explicit clock.
func AgeWith(t time.Time, c clock.Clock) string {
	diff := c.Now().Sub(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return plural(int(diff.Minutes()), "minute")
	case diff < 24*time.Hour:
		return plural(int(diff.Hours()), "hour")
	case diff < 7*24*time.Hour:
		return plural(int(diff.Hours()/24), "day")
	default:
		return plural(int(diff.Hours()/24/7), "week")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}
