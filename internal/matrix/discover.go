package matrix

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mrz1836/crucible/internal/domain"
)

// Combination is one (type, feature) pair with a source on disk.
type Combination struct {
	Type    domain.NumericType `json:"type"`
	Feature string             `json:"feature"`
}

// Demo is one demo source on disk.
type Demo struct {
	Category domain.Category `json:"category"`
	Name     string          `json:"name"`
}

// Combinations lists every (type, feature) pair that has a source for kind,
// sorted by type then feature. A missing kind directory yields no pairs.
func (e *Expander) Combinations(kind domain.Kind) ([]Combination, error) {
	suffix := "_extracted_" + string(kind) + ".cpp"
	entries, err := os.ReadDir(filepath.Join(e.SourceRoot, string(kind)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan %s sources: %w", kind, err)
	}

	var combos []Combination
	for _, entry := range entries {
		stem, ok := strings.CutSuffix(entry.Name(), suffix)
		if entry.IsDir() || !ok {
			continue
		}
		for _, typ := range domain.NumericTypes() {
			feature, found := strings.CutPrefix(stem, string(typ)+"_")
			if found && feature != "" {
				combos = append(combos, Combination{Type: typ, Feature: feature})
				break
			}
		}
	}

	sort.Slice(combos, func(i, j int) bool {
		if combos[i].Type != combos[j].Type {
			return combos[i].Type < combos[j].Type
		}
		return combos[i].Feature < combos[j].Feature
	})
	return combos, nil
}

// Demos lists demo sources in the selected categories, in category order
// then by name.
func (e *Expander) Demos(category Selector[domain.Category]) ([]Demo, error) {
	var demos []Demo
	for _, cat := range category.Expand(domain.Categories()) {
		dir := filepath.Join(e.SourceRoot, string(domain.KindDemos), string(cat))
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("failed to scan demos in %s: %w", dir, err)
		}
		for _, entry := range entries {
			name, ok := strings.CutSuffix(entry.Name(), ".cpp")
			if entry.IsDir() || !ok {
				continue
			}
			demos = append(demos, Demo{Category: cat, Name: name})
		}
	}
	return demos, nil
}
