// Package envsnap captures, caches and serves per-toolchain environment
// snapshots. Every compile and run uses the snapshot of its toolchain as the
// child's complete environment; the orchestrator's own environment is never
// modified.
package envsnap

import (
	"fmt"
	"maps"
	"os"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/mrz1836/crucible/internal/domain"
	"github.com/mrz1836/crucible/internal/errors"
)

// Method records how a snapshot was produced.
type Method string

const (
	// MethodActivation snapshots are the environment left behind by a vendor
	// activation script.
	MethodActivation Method = "activation"
	// MethodInherited snapshots copy the orchestrator environment and overlay
	// compiler selector variables.
	MethodInherited Method = "inherited"
)

// Snapshot is the complete environment table for one toolchain.
type Snapshot struct {
	Toolchain  domain.Toolchain  `json:"toolchain"`
	Command    string            `json:"command"`
	Method     Method            `json:"method"`
	CapturedAt time.Time         `json:"captured_at"`
	Vars       map[string]string `json:"vars"`
}

// Environ renders the snapshot as KEY=VALUE pairs sorted by key.
func (s *Snapshot) Environ() []string {
	keys := slices.Sorted(maps.Keys(s.Vars))
	env := make([]string, 0, len(keys))
	for _, k := range keys {
		env = append(env, k+"="+s.Vars[k])
	}
	return env
}

// Get returns a variable from the snapshot.
func (s *Snapshot) Get(key string) (string, bool) {
	v, ok := s.Vars[key]
	return v, ok
}

// Check rejects a snapshot that was captured for a different toolchain.
func (s *Snapshot) Check(name domain.Toolchain) error {
	if s == nil {
		return fmt.Errorf("%s: %w", name, errors.ErrSnapshotMissing)
	}
	if s.Toolchain != name {
		return fmt.Errorf("snapshot for %s used with %s: %w", s.Toolchain, name, errors.ErrSnapshotMismatch)
	}
	return nil
}

// environMap turns a KEY=VALUE list into a map. Later entries win.
func environMap(env []string) map[string]string {
	vars := make(map[string]string, len(env))
	for _, kv := range env {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		vars[k] = v
	}
	return vars
}

// hostEnviron returns a copy of the orchestrator environment.
func hostEnviron() []string {
	return slices.Clone(os.Environ())
}

func isWindows(goos string) bool {
	if goos == "" {
		goos = runtime.GOOS
	}
	return goos == "windows"
}
