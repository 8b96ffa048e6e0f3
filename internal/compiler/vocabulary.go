package compiler

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mrz1836/crucible/internal/constants"
	"github.com/mrz1836/crucible/internal/domain"
	"github.com/mrz1836/crucible/internal/errors"
)

// Vocabulary is the flag dialect of one compiler family.
type Vocabulary struct {
	Family   domain.Family
	Standard []string
	Include  func(dir string) []string
	Modes    map[domain.Mode][]string
	Warnings []string
	Output   func(path string) []string
	// Threading returns link flags for sources that use threads.
	Threading func(tc domain.Toolchain) []string
}

// VocabularyFor returns the flag dialect for family.
func VocabularyFor(family domain.Family) Vocabulary {
	if family == domain.FamilyMSVC {
		return msvcVocabulary()
	}
	return gnuVocabulary()
}

func gnuVocabulary() Vocabulary {
	return Vocabulary{
		Family:   domain.FamilyGNU,
		Standard: []string{"-std=c++20"},
		Include:  func(dir string) []string { return []string{"-I", dir} },
		Modes: map[domain.Mode][]string{
			domain.ModeDebug:   {"-O0", "-g", "-DDEBUG"},
			domain.ModeRelease: {"-O3", "-DNDEBUG"},
			domain.ModeO1:      {"-O1", "-DNDEBUG"},
			domain.ModeO2:      {"-O2", "-DNDEBUG"},
			domain.ModeASan:    {"-O1", "-g", "-fsanitize=address", "-fno-omit-frame-pointer"},
			domain.ModeUBSan:   {"-O1", "-g", "-fsanitize=undefined"},
		},
		Warnings: []string{"-Wall", "-Wextra", "-Wpedantic"},
		Output:   func(path string) []string { return []string{"-o", path} },
		Threading: func(tc domain.Toolchain) []string {
			if tc == domain.GCC {
				return []string{"-pthread", "-latomic"}
			}
			return []string{"-pthread"}
		},
	}
}

func msvcVocabulary() Vocabulary {
	return Vocabulary{
		Family:   domain.FamilyMSVC,
		Standard: []string{"/std:c++20", "/EHsc", "/nologo"},
		Include:  func(dir string) []string { return []string{"/I", dir} },
		Modes: map[domain.Mode][]string{
			domain.ModeDebug:   {"/Od", "/Zi", "/DDEBUG"},
			domain.ModeRelease: {"/O2", "/DNDEBUG"},
			domain.ModeO1:      {"/O1", "/DNDEBUG"},
			domain.ModeO2:      {"/O2", "/DNDEBUG"},
			domain.ModeASan:    {"/fsanitize=address", "/Zi"},
		},
		Warnings: []string{"/W4"},
		Output:   func(path string) []string { return []string{"/Fe:" + path} },
		// The MSVC runtime is always thread-aware.
		Threading: func(domain.Toolchain) []string { return nil },
	}
}

// ModeFlags returns the flags for mode, or ErrUnsupportedMode.
func (v Vocabulary) ModeFlags(mode domain.Mode) ([]string, error) {
	flags, ok := v.Modes[mode]
	if !ok {
		return nil, fmt.Errorf("%s with %s flags: %w", mode, v.Family, errors.ErrUnsupportedMode)
	}
	return flags, nil
}

// threadingMarkers are the substrings that mark a source as multithreaded.
//
//nolint:gochecknoglobals // fixed lookup table
var threadingMarkers = []string{
	"<thread>", "<atomic>", "<mutex>", "<condition_variable>", "<future>",
	"std::thread", "std::atomic", "thread_safety",
}

// NeedsThreading reports whether the head of the source at path mentions a
// threading facility. Only the first few KiB are read, so a source that
// pulls threads in through a wrapper header is not detected.
func NeedsThreading(path string) (bool, error) {
	f, err := os.Open(path) //#nosec G304 -- source path comes from the matrix
	if err != nil {
		return false, err
	}
	defer func() { _ = f.Close() }()

	buf := make([]byte, constants.ThreadingScanBytes)
	n, err := io.ReadFull(f, buf)
	if err != nil && !stderrors.Is(err, io.EOF) && !stderrors.Is(err, io.ErrUnexpectedEOF) {
		return false, err
	}

	head := string(buf[:n])
	for _, marker := range threadingMarkers {
		if strings.Contains(head, marker) {
			return true, nil
		}
	}
	return false, nil
}
