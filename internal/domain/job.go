package domain

import "fmt"

// Kind is the class of artifact a job produces.
type Kind string

const (
	// KindTests builds self-checking test suites.
	KindTests Kind = "tests"
	// KindBenchs builds timed benchmarks.
	KindBenchs Kind = "benchs"
	// KindDemos builds standalone demo programs.
	KindDemos Kind = "demos"
)

// Kinds returns every artifact kind.
func Kinds() []Kind {
	return []Kind{KindTests, KindBenchs, KindDemos}
}

// NumericType is the payload type a test or benchmark exercises.
type NumericType string

const (
	Uint128 NumericType = "uint128"
	Int128  NumericType = "int128"
)

// NumericTypes returns every supported payload type.
func NumericTypes() []NumericType {
	return []NumericType{Uint128, Int128}
}

// Mode is an optimization/instrumentation profile.
type Mode string

const (
	ModeDebug   Mode = "debug"
	ModeRelease Mode = "release"
	ModeO1      Mode = "o1"
	ModeO2      Mode = "o2"
	ModeASan    Mode = "asan"
	ModeUBSan   Mode = "ubsan"
)

// Modes returns every known mode. The "all" selector expands to a configured
// subset of these, not necessarily to every entry.
func Modes() []Mode {
	return []Mode{ModeDebug, ModeRelease, ModeO1, ModeO2, ModeASan, ModeUBSan}
}

// Category groups demo programs.
type Category string

const (
	CategoryTutorials Category = "tutorials"
	CategoryExamples  Category = "examples"
	CategoryShowcase  Category = "showcase"
	CategoryGeneral   Category = "general"
)

// Categories returns every demo category.
func Categories() []Category {
	return []Category{CategoryTutorials, CategoryExamples, CategoryShowcase, CategoryGeneral}
}

// BuildJob is one fully resolved compile request.
// Tests and benchmarks are identified by Type and Feature; demos by Category and Name.
type BuildJob struct {
	Kind      Kind        `json:"kind"`
	Type      NumericType `json:"type,omitempty"`
	Feature   string      `json:"feature,omitempty"`
	Category  Category    `json:"category,omitempty"`
	Name      string      `json:"name,omitempty"`
	Toolchain Toolchain   `json:"toolchain"`
	Mode      Mode        `json:"mode"`
	Source    string      `json:"source"`
	Output    string      `json:"output"`
}

// Subject is the human identifier of what is being built, without toolchain or mode.
func (j BuildJob) Subject() string {
	if j.Kind == KindDemos {
		return fmt.Sprintf("%s/%s", j.Category, j.Name)
	}
	return fmt.Sprintf("%s_%s", j.Type, j.Feature)
}

// Label identifies the job in status lines, e.g. "uint128_bits tests gcc/release".
func (j BuildJob) Label() string {
	return fmt.Sprintf("%s %s %s/%s", j.Subject(), j.Kind, j.Toolchain, j.Mode)
}
