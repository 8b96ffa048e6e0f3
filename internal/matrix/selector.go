// Package matrix turns user selections into concrete build jobs.
//
// Selections are parsed once at the boundary into typed Selectors; the
// expander itself never sees raw strings.
package matrix

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/mrz1836/crucible/internal/domain"
	"github.com/mrz1836/crucible/internal/errors"
)

// Wildcard is the selector value meaning "every supported value".
const Wildcard = "all"

//nolint:gochecknoglobals // compiled once
var featureRe = regexp.MustCompile(`^[a-z0-9][a-z0-9_]*$`)

// Selector is either one concrete value or the wildcard.
type Selector[T comparable] struct {
	value T
	all   bool
}

// Specific selects exactly v.
func Specific[T comparable](v T) Selector[T] {
	return Selector[T]{value: v}
}

// All selects every value of the universe it is expanded against.
func All[T comparable]() Selector[T] {
	return Selector[T]{all: true}
}

// IsAll reports whether s is the wildcard.
func (s Selector[T]) IsAll() bool {
	return s.all
}

// Value returns the concrete value and true, or the zero value and false for the wildcard.
func (s Selector[T]) Value() (T, bool) {
	return s.value, !s.all
}

// Expand returns universe for the wildcard, or the single selected value.
func (s Selector[T]) Expand(universe []T) []T {
	if s.all {
		out := make([]T, len(universe))
		copy(out, universe)
		return out
	}
	return []T{s.value}
}

func (s Selector[T]) String() string {
	if s.all {
		return Wildcard
	}
	return fmt.Sprint(s.value)
}

// parseEnum validates raw against a closed enumeration. Empty input selects def.
func parseEnum[T ~string](what, raw string, universe []T, def Selector[T]) (Selector[T], error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	switch raw {
	case "":
		return def, nil
	case Wildcard:
		return All[T](), nil
	}
	for _, v := range universe {
		if string(v) == raw {
			return Specific(v), nil
		}
	}
	valid := make([]string, 0, len(universe))
	for _, v := range universe {
		valid = append(valid, string(v))
	}
	return Selector[T]{}, fmt.Errorf("%s %q (valid: %s, %s): %w",
		what, raw, strings.Join(valid, ", "), Wildcard, errors.ErrInvalidSelector)
}

// ParseToolchain parses a toolchain selector. Empty means all.
func ParseToolchain(raw string) (Selector[domain.Toolchain], error) {
	return parseEnum("toolchain", raw, domain.Toolchains(), All[domain.Toolchain]())
}

// ParseMode parses a mode selector. Empty selects def.
func ParseMode(raw string, def Selector[domain.Mode]) (Selector[domain.Mode], error) {
	return parseEnum("mode", raw, domain.Modes(), def)
}

// ParseKind parses a build target: tests, benchs or all (both). Demos are
// selected through ExpandDemos instead.
func ParseKind(raw string) (Selector[domain.Kind], error) {
	return parseEnum("target", raw, []domain.Kind{domain.KindTests, domain.KindBenchs}, All[domain.Kind]())
}

// ParseType parses a numeric type selector. Empty is invalid.
func ParseType(raw string) (Selector[domain.NumericType], error) {
	if strings.TrimSpace(raw) == "" {
		return Selector[domain.NumericType]{}, fmt.Errorf("type is required: %w", errors.ErrInvalidSelector)
	}
	return parseEnum("type", raw, domain.NumericTypes(), All[domain.NumericType]())
}

// ParseCategory parses a demo category selector. Empty means all.
func ParseCategory(raw string) (Selector[domain.Category], error) {
	return parseEnum("category", raw, domain.Categories(), All[domain.Category]())
}

// ParseFeature parses a feature selector. Features are an open set, so only
// their shape is validated here.
func ParseFeature(raw string) (Selector[string], error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	switch {
	case raw == Wildcard:
		return All[string](), nil
	case featureRe.MatchString(raw):
		return Specific(raw), nil
	default:
		return Selector[string]{}, fmt.Errorf("feature %q: %w", raw, errors.ErrInvalidSelector)
	}
}

// ModesFromConfig converts configured mode names, validating each.
func ModesFromConfig(names []string) ([]domain.Mode, error) {
	modes := make([]domain.Mode, 0, len(names))
	for _, n := range names {
		sel, err := parseEnum("mode", n, domain.Modes(), Selector[domain.Mode]{})
		if err != nil {
			return nil, err
		}
		m, ok := sel.Value()
		if !ok || m == "" {
			return nil, fmt.Errorf("mode %q: %w", n, errors.ErrInvalidSelector)
		}
		modes = append(modes, m)
	}
	return modes, nil
}
