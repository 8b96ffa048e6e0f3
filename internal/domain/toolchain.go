// Package domain provides the shared value types that flow between the
// registry, isolator, matrix expander, invoker and runner.
//
// IMPORTANT: This package MUST NOT import other internal packages.
package domain

// Toolchain names one member of the closed set of supported compilers.
type Toolchain string

// Supported toolchains, in canonical order.
const (
	GCC   Toolchain = "gcc"
	Clang Toolchain = "clang"
	Intel Toolchain = "intel"
	MSVC  Toolchain = "msvc"
)

// Toolchains returns every supported toolchain in canonical order.
func Toolchains() []Toolchain {
	return []Toolchain{GCC, Clang, Intel, MSVC}
}

// Valid reports whether t is one of the supported toolchains.
func (t Toolchain) Valid() bool {
	switch t {
	case GCC, Clang, Intel, MSVC:
		return true
	default:
		return false
	}
}

// String returns the toolchain name.
func (t Toolchain) String() string {
	return string(t)
}

// Family selects the flag vocabulary a compiler understands.
type Family string

const (
	// FamilyGNU compilers take dash-prefixed flags (g++, clang++, icpx).
	FamilyGNU Family = "gnu"
	// FamilyMSVC compilers take slash-prefixed flags (cl.exe, icx on Windows).
	FamilyMSVC Family = "msvc"
)
