package matrix

import (
	"fmt"
	"path/filepath"
	"runtime"

	"github.com/mrz1836/crucible/internal/domain"
	"github.com/mrz1836/crucible/internal/errors"
)

// Request selects tests and/or benchmarks to build.
type Request struct {
	Type      Selector[domain.NumericType]
	Feature   Selector[string]
	Kind      Selector[domain.Kind]
	Toolchain Selector[domain.Toolchain]
	Mode      Selector[domain.Mode]
}

// DemoRequest selects demos to build. An empty Name selects every demo in
// the chosen categories.
type DemoRequest struct {
	Category  Selector[domain.Category]
	Name      string
	Toolchain Selector[domain.Toolchain]
	Mode      Selector[domain.Mode]
}

// Expander maps requests onto the source and build trees.
type Expander struct {
	SourceRoot string
	BuildRoot  string
	// DefaultModes is what the mode wildcard expands to.
	DefaultModes []domain.Mode
	// GOOS decides the executable suffix. Empty means runtime.GOOS.
	GOOS string
}

// NewExpander returns an Expander.
func NewExpander(sourceRoot, buildRoot string, defaultModes []domain.Mode) *Expander {
	return &Expander{SourceRoot: sourceRoot, BuildRoot: buildRoot, DefaultModes: defaultModes}
}

// Expand produces one job per (toolchain, mode, kind, type, feature), toolchain-major.
// A feature wildcard is resolved against the sources on disk; every other
// dimension is a pure Cartesian product. Source existence is not checked here:
// compiler.Invoker.Build reports a missing source as a source-not-found
// outcome for that job alone, and the rest of the matrix still runs.
func (e *Expander) Expand(req Request) ([]domain.BuildJob, error) {
	subjects, err := e.subjects(req)
	if err != nil {
		return nil, err
	}

	var jobs []domain.BuildJob
	for _, tc := range req.Toolchain.Expand(domain.Toolchains()) {
		for _, mode := range req.Mode.Expand(e.modes()) {
			for _, s := range subjects {
				jobs = append(jobs, e.Job(s.Kind, s.Type, s.Feature, tc, mode))
			}
		}
	}
	return jobs, nil
}

type subject struct {
	Kind    domain.Kind
	Type    domain.NumericType
	Feature string
}

func (e *Expander) subjects(req Request) ([]subject, error) {
	var out []subject
	for _, kind := range req.Kind.Expand([]domain.Kind{domain.KindTests, domain.KindBenchs}) {
		types := req.Type.Expand(domain.NumericTypes())

		if feature, ok := req.Feature.Value(); ok {
			for _, typ := range types {
				out = append(out, subject{Kind: kind, Type: typ, Feature: feature})
			}
			continue
		}

		combos, err := e.Combinations(kind)
		if err != nil {
			return nil, err
		}
		for _, c := range combos {
			for _, typ := range types {
				if c.Type == typ {
					out = append(out, subject{Kind: kind, Type: c.Type, Feature: c.Feature})
				}
			}
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("type=%s feature=%s target=%s: %w", req.Type, req.Feature, req.Kind, errors.ErrNoCombinations)
	}
	return out, nil
}

// ExpandDemos produces one job per (toolchain, mode, demo), toolchain-major.
func (e *Expander) ExpandDemos(req DemoRequest) ([]domain.BuildJob, error) {
	var demos []Demo
	if req.Name != "" {
		cat, ok := req.Category.Value()
		if !ok {
			return nil, fmt.Errorf("demo %q needs a category: %w", req.Name, errors.ErrInvalidSelector)
		}
		demos = []Demo{{Category: cat, Name: req.Name}}
	} else {
		found, err := e.Demos(req.Category)
		if err != nil {
			return nil, err
		}
		demos = found
	}
	if len(demos) == 0 {
		return nil, fmt.Errorf("demos in %s: %w", req.Category, errors.ErrNoCombinations)
	}

	var jobs []domain.BuildJob
	for _, tc := range req.Toolchain.Expand(domain.Toolchains()) {
		for _, mode := range req.Mode.Expand(e.modes()) {
			for _, d := range demos {
				jobs = append(jobs, e.DemoJob(d.Category, d.Name, tc, mode))
			}
		}
	}
	return jobs, nil
}

// Job builds the test or benchmark job for one concrete combination.
func (e *Expander) Job(kind domain.Kind, typ domain.NumericType, feature string, tc domain.Toolchain, mode domain.Mode) domain.BuildJob {
	return domain.BuildJob{
		Kind:      kind,
		Type:      typ,
		Feature:   feature,
		Toolchain: tc,
		Mode:      mode,
		Source:    e.SourcePath(kind, typ, feature),
		Output: filepath.Join(e.BuildRoot, "build_"+string(kind), string(tc), string(mode),
			fmt.Sprintf("%s_%s_%s_%s%s", typ, feature, kind, tc, e.exeSuffix())),
	}
}

// DemoJob builds the job for one demo.
func (e *Expander) DemoJob(cat domain.Category, name string, tc domain.Toolchain, mode domain.Mode) domain.BuildJob {
	return domain.BuildJob{
		Kind:      domain.KindDemos,
		Category:  cat,
		Name:      name,
		Toolchain: tc,
		Mode:      mode,
		Source:    filepath.Join(e.SourceRoot, string(domain.KindDemos), string(cat), name+".cpp"),
		Output: filepath.Join(e.BuildRoot, "build_demos", string(tc), string(mode), string(cat),
			name+e.exeSuffix()),
	}
}

// SourcePath is the conventional location of a test or benchmark source.
func (e *Expander) SourcePath(kind domain.Kind, typ domain.NumericType, feature string) string {
	return filepath.Join(e.SourceRoot, string(kind), fmt.Sprintf("%s_%s_extracted_%s.cpp", typ, feature, kind))
}

func (e *Expander) modes() []domain.Mode {
	if len(e.DefaultModes) == 0 {
		return []domain.Mode{domain.ModeDebug, domain.ModeRelease}
	}
	return e.DefaultModes
}

func (e *Expander) exeSuffix() string {
	goos := e.GOOS
	if goos == "" {
		goos = runtime.GOOS
	}
	if goos == "windows" {
		return ".exe"
	}
	return ""
}
