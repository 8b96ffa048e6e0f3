package toolchain

import (
	"context"
	"fmt"
	"regexp"

	"golang.org/x/sync/errgroup"

	"github.com/mrz1836/crucible/internal/constants"
	"github.com/mrz1836/crucible/internal/domain"
)

// Pre-compiled version patterns, most specific first.
//
//nolint:gochecknoglobals // compiled once
var (
	msvcVersionRe    = regexp.MustCompile(`(?i)compiler version (\d+\.\d+(?:\.\d+)?)`)
	gnuVersionRe     = regexp.MustCompile(`(?i)(?:g\+\+|gcc|clang|icpx|icx|intel)[^\n]*?(\d+\.\d+(?:\.\d+)?)`)
	genericVersionRe = regexp.MustCompile(`v?(\d+\.\d+(?:\.\d+)?)`)
)

// Status is the availability of one toolchain on this host.
type Status struct {
	Identity
	Available bool   `json:"available"`
	Path      string `json:"path,omitempty"`
	Version   string `json:"version,omitempty"`
}

// Version runs the compiler's version query and returns the parsed version,
// or "unknown" when the output has no recognizable version.
func (r *Registry) Version(ctx context.Context, id Identity) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.VersionProbeTimeout)
	defer cancel()

	var args []string
	if id.Family == domain.FamilyGNU {
		args = []string{"--version"}
	}
	// cl.exe prints its banner and a usage error when run without inputs.
	output, err := r.executor.Run(ctx, id.Command, args...)
	if v := ParseVersion(output); v != "" {
		return v, nil
	}
	if err != nil {
		return "", fmt.Errorf("%s version query failed: %w", id.Name, err)
	}
	return "unknown", nil
}

// ParseVersion extracts a dotted version number from compiler banner output.
func ParseVersion(output string) string {
	for _, re := range []*regexp.Regexp{msvcVersionRe, gnuVersionRe, genericVersionRe} {
		if m := re.FindStringSubmatch(output); len(m) >= 2 {
			return m[1]
		}
	}
	return ""
}

// Detect probes every toolchain concurrently and returns their status in
// canonical order. A failing version query leaves Version as "unknown".
func (r *Registry) Detect(ctx context.Context, ids []Identity) ([]Status, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	statuses := make([]Status, len(ids))

	g, gCtx := errgroup.WithContext(ctx)
	for i, id := range ids {
		g.Go(func() error {
			statuses[i] = r.detectOne(gCtx, id)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to detect toolchains: %w", err)
	}
	return statuses, nil
}

func (r *Registry) detectOne(ctx context.Context, id Identity) Status {
	st := Status{Identity: id}

	path, err := r.executor.LookPath(id.Command)
	if err != nil {
		return st
	}
	st.Available = true
	st.Path = path

	version, err := r.Version(ctx, id)
	if err != nil || version == "" {
		version = "unknown"
	}
	st.Version = version
	return st
}
