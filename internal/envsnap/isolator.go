package envsnap

import (
	"context"
	stderrors "errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/mrz1836/crucible/internal/clock"
	"github.com/mrz1836/crucible/internal/domain"
	"github.com/mrz1836/crucible/internal/errors"
	"github.com/mrz1836/crucible/internal/process"
	"github.com/mrz1836/crucible/internal/toolchain"
)

// DetectionError describes why a toolchain's environment could not be built.
// It matches errors.ErrDetection as well as its underlying cause.
type DetectionError struct {
	Toolchain domain.Toolchain
	Reason    string
	Err       error
}

func (e *DetectionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("detection failed for %s: %s", e.Toolchain, e.Reason)
	}
	return fmt.Sprintf("detection failed for %s: %s: %v", e.Toolchain, e.Reason, e.Err)
}

// Unwrap exposes both the detection sentinel and the cause.
func (e *DetectionError) Unwrap() []error {
	if e.Err == nil {
		return []error{errors.ErrDetection}
	}
	return []error{errors.ErrDetection, e.Err}
}

// VersionFunc returns a toolchain's version. Registry.Version satisfies it.
type VersionFunc func(ctx context.Context, id toolchain.Identity) (string, error)

// Options configures an Isolator.
type Options struct {
	Store    Store
	Capturer Capturer
	// Activations are explicit activation scripts, typically from config.
	// They take precedence over Discovery.
	Activations map[domain.Toolchain]Activation
	Discovery   Discovery
	// LookPath resolves commands for inherited snapshots. Nil means exec.LookPath.
	LookPath func(string) (string, error)
	// Version fills <NAME>_VERSION on inherited snapshots. Optional.
	Version VersionFunc
	// Environ supplies the orchestrator environment. Nil means a copy of os.Environ.
	Environ func() []string
	Clock   clock.Clock
}

// Isolator builds, caches and serves one Snapshot per toolchain.
// It is safe for concurrent use; each toolchain is detected at most once per
// process unless Invalidate is called.
type Isolator struct {
	opts Options

	mu     sync.Mutex
	memo   map[domain.Toolchain]*Snapshot
	failed map[domain.Toolchain]error
	locks  map[domain.Toolchain]*sync.Mutex
}

// NewIsolator returns an Isolator.
func NewIsolator(opts Options) *Isolator {
	if opts.LookPath == nil {
		opts.LookPath = exec.LookPath
	}
	if opts.Environ == nil {
		opts.Environ = hostEnviron
	}
	if opts.Clock == nil {
		opts.Clock = clock.RealClock{}
	}
	if opts.Discovery.Exists == nil {
		opts.Discovery.Exists = fileExists
	}
	return &Isolator{
		opts:   opts,
		memo:   make(map[domain.Toolchain]*Snapshot),
		failed: make(map[domain.Toolchain]error),
		locks:  make(map[domain.Toolchain]*sync.Mutex),
	}
}

// Activation returns the activation script used for name, if any.
func (i *Isolator) Activation(name domain.Toolchain) (Activation, bool) {
	if act, ok := i.opts.Activations[name]; ok && act.Script != "" {
		return act, true
	}
	return i.opts.Discovery.Find(name)
}

// Detect builds a fresh snapshot for id, persists it and memoizes it.
func (i *Isolator) Detect(ctx context.Context, id toolchain.Identity) (*Snapshot, error) {
	log := zerolog.Ctx(ctx).With().Str("toolchain", id.Name.String()).Logger()

	snap, err := i.capture(ctx, id)
	if err != nil {
		log.Debug().Err(err).Msg("environment detection failed")
		if ctx.Err() == nil {
			i.mu.Lock()
			i.failed[id.Name] = err
			delete(i.memo, id.Name)
			i.mu.Unlock()
		}
		return nil, err
	}

	if i.opts.Store != nil {
		if err := i.opts.Store.Save(ctx, snap); err != nil {
			return nil, &DetectionError{Toolchain: id.Name, Reason: "could not persist snapshot", Err: err}
		}
	}

	i.mu.Lock()
	i.memo[id.Name] = snap
	delete(i.failed, id.Name)
	i.mu.Unlock()

	log.Debug().
		Str("method", string(snap.Method)).
		Int("vars", len(snap.Vars)).
		Msg("environment snapshot captured")
	return snap, nil
}

func (i *Isolator) capture(ctx context.Context, id toolchain.Identity) (*Snapshot, error) {
	if act, ok := i.Activation(id.Name); ok {
		return i.captureActivation(ctx, id, act)
	}
	return i.captureInherited(ctx, id)
}

func (i *Isolator) captureActivation(ctx context.Context, id toolchain.Identity, act Activation) (*Snapshot, error) {
	if i.opts.Capturer == nil {
		return nil, &DetectionError{Toolchain: id.Name, Reason: "no capturer configured for " + act.Script}
	}

	vars, err := i.opts.Capturer.CaptureFullEnvironment(ctx, act)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &DetectionError{Toolchain: id.Name, Reason: "activation script failed", Err: err}
	}

	snap := &Snapshot{
		Toolchain:  id.Name,
		Command:    id.Command,
		Method:     MethodActivation,
		CapturedAt: i.opts.Clock.Now(),
		Vars:       vars,
	}
	if !resolvable(id.Command, snap.Environ()) {
		return nil, &DetectionError{
			Toolchain: id.Name,
			Reason:    id.Command + " not on the activated PATH",
			Err:       errors.ErrToolchainUnavailable,
		}
	}
	return snap, nil
}

func (i *Isolator) captureInherited(ctx context.Context, id toolchain.Identity) (*Snapshot, error) {
	path, err := i.opts.LookPath(id.Command)
	if err != nil {
		return nil, &DetectionError{
			Toolchain: id.Name,
			Reason:    id.Command + " not found",
			Err:       errors.ErrToolchainUnavailable,
		}
	}

	vars := environMap(i.opts.Environ())
	prefix := strings.ToUpper(id.Name.String())
	vars["CXX"] = path
	vars["CC"] = cDriverFor(path)
	vars[prefix+"_PATH"] = path

	if i.opts.Version != nil {
		if version, err := i.opts.Version(ctx, id); err == nil && version != "" {
			vars[prefix+"_VERSION"] = version
		}
	}

	return &Snapshot{
		Toolchain:  id.Name,
		Command:    id.Command,
		Method:     MethodInherited,
		CapturedAt: i.opts.Clock.Now(),
		Vars:       vars,
	}, nil
}

// Load returns the memoized or cached snapshot for id.
// Returns ErrSnapshotMissing when neither exists.
func (i *Isolator) Load(ctx context.Context, id toolchain.Identity) (*Snapshot, error) {
	i.mu.Lock()
	snap, ok := i.memo[id.Name]
	i.mu.Unlock()
	if ok {
		return snap, nil
	}

	if i.opts.Store == nil {
		return nil, fmt.Errorf("%s: %w", id.Name, errors.ErrSnapshotMissing)
	}
	snap, err := i.opts.Store.Load(ctx, id.Name)
	if err != nil {
		return nil, err
	}

	i.mu.Lock()
	i.memo[id.Name] = snap
	i.mu.Unlock()
	return snap, nil
}

// Resolve loads the snapshot for id and detects it when missing. A failed
// detection is remembered, so later calls for the same toolchain return the
// same error without spawning another activation.
func (i *Isolator) Resolve(ctx context.Context, id toolchain.Identity) (*Snapshot, error) {
	lock := i.toolchainLock(id.Name)
	lock.Lock()
	defer lock.Unlock()

	i.mu.Lock()
	prevErr, failed := i.failed[id.Name]
	i.mu.Unlock()
	if failed {
		return nil, prevErr
	}

	snap, err := i.Load(ctx, id)
	if err == nil {
		return snap, nil
	}
	if !stderrors.Is(err, errors.ErrSnapshotMissing) {
		return nil, err
	}

	zerolog.Ctx(ctx).Debug().Str("toolchain", id.Name.String()).Msg("no cached snapshot, detecting")
	return i.Detect(ctx, id)
}

// Invalidate forgets the memoized snapshot or failure for name and removes
// its cache file, forcing the next Resolve to detect again.
func (i *Isolator) Invalidate(ctx context.Context, name domain.Toolchain) error {
	i.mu.Lock()
	delete(i.memo, name)
	delete(i.failed, name)
	i.mu.Unlock()

	if i.opts.Store == nil {
		return nil
	}
	return i.opts.Store.Delete(ctx, name)
}

// DetectResult is the outcome of detecting one toolchain, as reported by
// a detect pass over several identities.
type DetectResult struct {
	Identity toolchain.Identity
	Snapshot *Snapshot
	Err      error
}

func (i *Isolator) toolchainLock(name domain.Toolchain) *sync.Mutex {
	i.mu.Lock()
	defer i.mu.Unlock()
	l, ok := i.locks[name]
	if !ok {
		l = &sync.Mutex{}
		i.locks[name] = l
	}
	return l
}

// resolvable reports whether command can be found in env's PATH.
func resolvable(command string, env []string) bool {
	if strings.ContainsAny(command, `/\`) {
		return fileExists(command)
	}
	return process.LookPathIn(command, env) != command
}

// cDriverFor maps a C++ driver path to its C sibling (g++ to gcc, clang++ to clang).
func cDriverFor(cxx string) string {
	dir, base := filepath.Split(cxx)
	// clang++ must be tried before g++, which it contains.
	for _, pair := range [][2]string{{"clang++", "clang"}, {"g++", "gcc"}, {"icpx", "icx"}, {"c++", "cc"}} {
		if strings.Contains(base, pair[0]) {
			return dir + strings.Replace(base, pair[0], pair[1], 1)
		}
	}
	return cxx
}
