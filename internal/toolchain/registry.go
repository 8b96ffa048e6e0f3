// Package toolchain is the registry of supported compilers: which command each
// one runs, which flag family it speaks, and whether it is present on the host.
package toolchain

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/joho/godotenv"

	"github.com/mrz1836/crucible/internal/domain"
	"github.com/mrz1836/crucible/internal/errors"
)

// Identity is the immutable description of one toolchain.
type Identity struct {
	Name    domain.Toolchain `json:"name"`
	Command string           `json:"command"`
	Family  domain.Family    `json:"family"`
	// Native toolchains are assumed present and are never probed.
	Native bool `json:"native"`
}

// CommandExecutor abstracts PATH lookup and command execution for testability.
type CommandExecutor interface {
	// LookPath searches for an executable named file in the PATH.
	LookPath(file string) (string, error)

	// Run executes a command and returns its combined output.
	Run(ctx context.Context, name string, args ...string) (string, error)
}

// DefaultCommandExecutor implements CommandExecutor using os/exec.
type DefaultCommandExecutor struct{}

// LookPath searches for an executable in the PATH.
func (DefaultCommandExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

// Run executes a command and returns its combined output.
func (DefaultCommandExecutor) Run(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...) //#nosec G204 -- name comes from the registry
	cmd.Stdin = nil
	output, err := cmd.CombinedOutput()
	return string(output), err
}

// overrideEnvVars names the variables that replace a toolchain's default command.
//
//nolint:gochecknoglobals // fixed lookup table
var overrideEnvVars = map[domain.Toolchain]string{
	domain.GCC:   "GCC_CXX",
	domain.Clang: "CLANG_CXX",
	domain.Intel: "INTEL_CXX",
	domain.MSVC:  "MSVC_CXX",
}

// OverrideEnvVar returns the environment variable that overrides name's command.
func OverrideEnvVar(name domain.Toolchain) string {
	return overrideEnvVars[name]
}

// Options configures a Registry.
type Options struct {
	// Commands holds explicit per-toolchain commands, typically from config.
	Commands map[domain.Toolchain]string
	// EnvFile is an optional dotenv file holding GCC_CXX style overrides.
	EnvFile string
	// Native is the toolchain that skips probing.
	Native domain.Toolchain
	// GOOS selects platform defaults. Empty means runtime.GOOS.
	GOOS string
	// Getenv reads the orchestrator environment. Nil means os.Getenv.
	Getenv func(string) string
	// Executor performs lookups and version calls. Nil means DefaultCommandExecutor.
	Executor CommandExecutor
}

// Registry holds one Identity per supported toolchain.
type Registry struct {
	identities map[domain.Toolchain]Identity
	executor   CommandExecutor
}

// NewRegistry builds the identity table. Command precedence, highest first:
// Options.Commands, the process environment, the dotenv file, built-in defaults.
// The dotenv file is read without modifying the process environment.
func NewRegistry(opts Options) (*Registry, error) {
	goos := opts.GOOS
	if goos == "" {
		goos = runtime.GOOS
	}
	getenv := opts.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	executor := opts.Executor
	if executor == nil {
		executor = DefaultCommandExecutor{}
	}

	fileVars := map[string]string{}
	if opts.EnvFile != "" {
		vars, err := godotenv.Read(opts.EnvFile)
		if err != nil && !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "failed to read toolchain env file %s", opts.EnvFile)
		}
		if vars != nil {
			fileVars = vars
		}
	}

	r := &Registry{
		identities: make(map[domain.Toolchain]Identity, len(domain.Toolchains())),
		executor:   executor,
	}
	for _, name := range domain.Toolchains() {
		command := defaultCommand(name, goos)
		if v := fileVars[overrideEnvVars[name]]; v != "" {
			command = v
		}
		if v := getenv(overrideEnvVars[name]); v != "" {
			command = v
		}
		if v := opts.Commands[name]; v != "" {
			command = v
		}
		r.identities[name] = Identity{
			Name:    name,
			Command: command,
			Family:  familyFor(name, command, goos),
			Native:  name == opts.Native,
		}
	}
	return r, nil
}

func defaultCommand(name domain.Toolchain, goos string) string {
	switch name {
	case domain.GCC:
		return "g++"
	case domain.Clang:
		return "clang++"
	case domain.Intel:
		if goos == "windows" {
			return "icx"
		}
		return "icpx"
	case domain.MSVC:
		return "cl.exe"
	default:
		return ""
	}
}

// familyFor picks the flag vocabulary from the toolchain and its command.
// Driver names that mimic cl.exe take slash flags regardless of vendor.
func familyFor(name domain.Toolchain, command, goos string) domain.Family {
	base := strings.ToLower(strings.TrimSuffix(filepath.Base(command), filepath.Ext(command)))
	switch {
	case name == domain.MSVC:
		return domain.FamilyMSVC
	case base == "clang-cl" || base == "icx-cl":
		return domain.FamilyMSVC
	case name == domain.Intel && goos == "windows" && base == "icx":
		return domain.FamilyMSVC
	default:
		return domain.FamilyGNU
	}
}

// Resolve returns the identity for a toolchain name.
func (r *Registry) Resolve(name string) (Identity, error) {
	id, ok := r.identities[domain.Toolchain(strings.ToLower(strings.TrimSpace(name)))]
	if !ok {
		return Identity{}, fmt.Errorf("%q: %w", name, errors.ErrUnsupportedToolchain)
	}
	return id, nil
}

// Get returns the identity for a known toolchain.
func (r *Registry) Get(name domain.Toolchain) Identity {
	return r.identities[name]
}

// All returns every identity in canonical order.
func (r *Registry) All() []Identity {
	out := make([]Identity, 0, len(r.identities))
	for _, name := range domain.Toolchains() {
		out = append(out, r.identities[name])
	}
	return out
}

// Probe reports whether the toolchain's command resolves on PATH.
// No process is spawned.
func (r *Registry) Probe(id Identity) bool {
	_, err := r.executor.LookPath(id.Command)
	return err == nil
}

// Names returns the supported toolchain names in canonical order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.identities))
	for _, name := range domain.Toolchains() {
		names = append(names, name.String())
	}
	return names
}

// Executor returns the executor used for lookups and version queries.
func (r *Registry) Executor() CommandExecutor {
	return r.executor
}
