package process

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// LookPathIn resolves a bare executable name against the PATH in env rather
// than the orchestrator's own PATH. Names containing a separator, and names
// that cannot be found, are returned unchanged.
func LookPathIn(name string, env []string) string {
	if name == "" || strings.ContainsAny(name, `/\`) {
		return name
	}

	pathVar, ok := Getenv(env, "PATH")
	if !ok {
		return name
	}

	exts := []string{""}
	if runtime.GOOS == "windows" {
		exts = windowsExtensions(env, name)
	}

	for _, dir := range filepath.SplitList(pathVar) {
		if dir == "" {
			continue
		}
		for _, ext := range exts {
			candidate := filepath.Join(dir, name+ext)
			if isExecutable(candidate) {
				return candidate
			}
		}
	}
	return name
}

// Getenv reads key from a KEY=VALUE list. Lookup is case-insensitive on Windows.
func Getenv(env []string, key string) (string, bool) {
	for i := len(env) - 1; i >= 0; i-- {
		k, v, found := strings.Cut(env[i], "=")
		if !found {
			continue
		}
		if k == key || (runtime.GOOS == "windows" && strings.EqualFold(k, key)) {
			return v, true
		}
	}
	return "", false
}

func windowsExtensions(env []string, name string) []string {
	if filepath.Ext(name) != "" {
		return []string{""}
	}
	pathExt, ok := Getenv(env, "PATHEXT")
	if !ok || pathExt == "" {
		pathExt = ".COM;.EXE;.BAT;.CMD"
	}
	exts := []string{""}
	for _, e := range strings.Split(pathExt, ";") {
		if e != "" {
			exts = append(exts, strings.ToLower(e))
		}
	}
	return exts
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode()&0o111 != 0
}
