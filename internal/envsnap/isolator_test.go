package envsnap

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/crucible/internal/clock"
	"github.com/mrz1836/crucible/internal/domain"
	"github.com/mrz1836/crucible/internal/errors"
	"github.com/mrz1836/crucible/internal/testutil"
	"github.com/mrz1836/crucible/internal/toolchain"
)

type fakeCapturer struct {
	mu    sync.Mutex
	vars  map[string]string
	err   error
	calls []Activation
}

func (f *fakeCapturer) CaptureFullEnvironment(_ context.Context, act Activation) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, act)
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[string]string, len(f.vars))
	for k, v := range f.vars {
		out[k] = v
	}
	return out, nil
}

func (f *fakeCapturer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

var (
	gccID  = toolchain.Identity{Name: domain.GCC, Command: "g++", Family: domain.FamilyGNU, Native: true}
	msvcID = toolchain.Identity{Name: domain.MSVC, Command: "cl.exe", Family: domain.FamilyMSVC}
)

func noDiscovery() Discovery {
	return Discovery{Exists: func(string) bool { return false }}
}

func fixedClock() clock.Clock {
	return clock.Fixed(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
}

// activatedPath returns a directory holding an executable named name.
func activatedPath(t *testing.T, name string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("#!/bin/sh\n"), 0o700)) //nolint:gosec // test executable
	return dir
}

func TestIsolator_DetectInherited(t *testing.T) {
	t.Parallel()
	store := NewFileStore(t.TempDir())

	iso := NewIsolator(Options{
		Store:     store,
		Discovery: noDiscovery(),
		LookPath: func(file string) (string, error) {
			if file == "g++" {
				return "/usr/bin/g++", nil
			}
			return "", exec.ErrNotFound
		},
		Version: func(context.Context, toolchain.Identity) (string, error) { return "13.2.0", nil },
		Environ: func() []string { return []string{"PATH=/usr/bin", "HOME=/home/dev", "CXX=old"} },
		Clock:   fixedClock(),
	})

	snap, err := iso.Detect(context.Background(), gccID)
	require.NoError(t, err)

	assert.Equal(t, domain.GCC, snap.Toolchain)
	assert.Equal(t, MethodInherited, snap.Method)
	assert.Equal(t, "/usr/bin/g++", snap.Vars["CXX"])
	assert.Equal(t, "/usr/bin/gcc", snap.Vars["CC"])
	assert.Equal(t, "/usr/bin/g++", snap.Vars["GCC_PATH"])
	assert.Equal(t, "13.2.0", snap.Vars["GCC_VERSION"])
	assert.Equal(t, "/home/dev", snap.Vars["HOME"])
	assert.Equal(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), snap.CapturedAt)
	assert.FileExists(t, store.Path(domain.GCC))
}

func TestIsolator_DetectLeavesHostEnvironmentUntouched(t *testing.T) {
	t.Setenv("CRUCIBLE_ISOLATION_PROBE", "before")
	before := slices.Clone(os.Environ())

	capt := &fakeCapturer{vars: map[string]string{
		"PATH":                     activatedPath(t, "cl.exe"),
		"INCLUDE":                  `C:\VC\include`,
		"CRUCIBLE_ISOLATION_PROBE": "after",
	}}
	iso := NewIsolator(Options{
		Store:       NewFileStore(t.TempDir()),
		Capturer:    capt,
		Activations: map[domain.Toolchain]Activation{domain.MSVC: {Script: "vcvarsall.bat", Args: []string{"x64"}}},
		Discovery:   noDiscovery(),
	})

	snap, err := iso.Detect(context.Background(), msvcID)
	require.NoError(t, err)
	assert.Equal(t, "after", snap.Vars["CRUCIBLE_ISOLATION_PROBE"])
	assert.Equal(t, before, os.Environ())
}

func TestIsolator_DetectActivation(t *testing.T) {
	t.Parallel()
	capt := &fakeCapturer{vars: map[string]string{"PATH": activatedPath(t, "cl.exe"), "LIB": `C:\VC\lib`}}
	iso := NewIsolator(Options{
		Capturer:    capt,
		Activations: map[domain.Toolchain]Activation{domain.MSVC: {Script: "vcvarsall.bat", Args: []string{"x64"}}},
		Discovery:   noDiscovery(),
	})

	snap, err := iso.Detect(context.Background(), msvcID)
	require.NoError(t, err)
	assert.Equal(t, MethodActivation, snap.Method)
	assert.Equal(t, `C:\VC\lib`, snap.Vars["LIB"])
	require.Len(t, capt.calls, 1)
	assert.Equal(t, []string{"x64"}, capt.calls[0].Args)
}

func TestIsolator_DetectFailures(t *testing.T) {
	t.Parallel()

	t.Run("activation script fails", func(t *testing.T) {
		t.Parallel()
		iso := NewIsolator(Options{
			Capturer:    &fakeCapturer{err: testutil.ErrMockActivationFailed},
			Activations: map[domain.Toolchain]Activation{domain.MSVC: {Script: "vcvarsall.bat"}},
			Discovery:   noDiscovery(),
		})

		_, err := iso.Detect(context.Background(), msvcID)
		require.ErrorIs(t, err, errors.ErrDetection)

		var detErr *DetectionError
		require.ErrorAs(t, err, &detErr)
		assert.Equal(t, domain.MSVC, detErr.Toolchain)
	})

	t.Run("compiler missing from the activated PATH", func(t *testing.T) {
		t.Parallel()
		iso := NewIsolator(Options{
			Capturer:    &fakeCapturer{vars: map[string]string{"PATH": t.TempDir()}},
			Activations: map[domain.Toolchain]Activation{domain.MSVC: {Script: "vcvarsall.bat"}},
			Discovery:   noDiscovery(),
		})

		_, err := iso.Detect(context.Background(), msvcID)
		require.ErrorIs(t, err, errors.ErrDetection)
		require.ErrorIs(t, err, errors.ErrToolchainUnavailable)
	})

	t.Run("inherited command not found", func(t *testing.T) {
		t.Parallel()
		iso := NewIsolator(Options{
			Discovery: noDiscovery(),
			LookPath:  func(string) (string, error) { return "", exec.ErrNotFound },
		})

		_, err := iso.Detect(context.Background(), gccID)
		require.ErrorIs(t, err, errors.ErrToolchainUnavailable)
		assert.Contains(t, err.Error(), "g++ not found")
	})
}

func TestIsolator_ResolveCachesAcrossInstances(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	capt := &fakeCapturer{vars: map[string]string{"PATH": activatedPath(t, "cl.exe")}}
	opts := Options{
		Store:       NewFileStore(dir),
		Capturer:    capt,
		Activations: map[domain.Toolchain]Activation{domain.MSVC: {Script: "vcvarsall.bat"}},
		Discovery:   noDiscovery(),
	}

	first, err := NewIsolator(opts).Resolve(context.Background(), msvcID)
	require.NoError(t, err)
	assert.Equal(t, 1, capt.callCount())

	second, err := NewIsolator(opts).Resolve(context.Background(), msvcID)
	require.NoError(t, err)
	assert.Equal(t, 1, capt.callCount(), "second process reads the cache file")
	assert.Equal(t, first.Vars, second.Vars)
}

func TestIsolator_ResolveDetectsOncePerToolchain(t *testing.T) {
	t.Parallel()
	capt := &fakeCapturer{err: testutil.ErrMockActivationFailed}
	iso := NewIsolator(Options{
		Capturer:    capt,
		Activations: map[domain.Toolchain]Activation{domain.MSVC: {Script: "vcvarsall.bat"}},
		Discovery:   noDiscovery(),
	})

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := iso.Resolve(context.Background(), msvcID)
			assert.ErrorIs(t, err, errors.ErrDetection)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, capt.callCount())
}

func TestIsolator_LoadMissing(t *testing.T) {
	t.Parallel()
	iso := NewIsolator(Options{Store: NewFileStore(t.TempDir()), Discovery: noDiscovery()})

	_, err := iso.Load(context.Background(), gccID)
	require.ErrorIs(t, err, errors.ErrSnapshotMissing)
}

func TestIsolator_Invalidate(t *testing.T) {
	t.Parallel()
	store := NewFileStore(t.TempDir())
	capt := &fakeCapturer{vars: map[string]string{"PATH": activatedPath(t, "cl.exe")}}
	iso := NewIsolator(Options{
		Store:       store,
		Capturer:    capt,
		Activations: map[domain.Toolchain]Activation{domain.MSVC: {Script: "vcvarsall.bat"}},
		Discovery:   noDiscovery(),
	})
	ctx := context.Background()

	_, err := iso.Resolve(ctx, msvcID)
	require.NoError(t, err)
	require.FileExists(t, store.Path(domain.MSVC))

	require.NoError(t, iso.Invalidate(ctx, domain.MSVC))
	assert.NoFileExists(t, store.Path(domain.MSVC))

	_, err = iso.Resolve(ctx, msvcID)
	require.NoError(t, err)
	assert.Equal(t, 2, capt.callCount())
}

func TestSnapshot_EnvironSortedAndCheck(t *testing.T) {
	t.Parallel()
	snap := &Snapshot{Toolchain: domain.Clang, Vars: map[string]string{"PATH": "/bin", "CXX": "clang++", "A": "1"}}

	assert.Equal(t, []string{"A=1", "CXX=clang++", "PATH=/bin"}, snap.Environ())
	require.NoError(t, snap.Check(domain.Clang))
	require.ErrorIs(t, snap.Check(domain.GCC), errors.ErrSnapshotMismatch)

	var missing *Snapshot
	require.ErrorIs(t, missing.Check(domain.GCC), errors.ErrSnapshotMissing)
}

func TestCDriverFor(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "/usr/bin/gcc-13", cDriverFor("/usr/bin/g++-13"))
	assert.Equal(t, "/usr/bin/clang", cDriverFor("/usr/bin/clang++"))
	assert.Equal(t, "/opt/intel/bin/icx", cDriverFor("/opt/intel/bin/icpx"))
	assert.Equal(t, "cl.exe", cDriverFor("cl.exe"))
}
