package envsnap

import (
	"os"
	"path/filepath"

	"github.com/mrz1836/crucible/internal/domain"
)

// Visual Studio installs probed for vcvarsall.bat, newest first.
//
//nolint:gochecknoglobals // fixed lookup table
var vsInstallRoots = []string{
	`C:\Program Files\Microsoft Visual Studio\2022\Enterprise`,
	`C:\Program Files\Microsoft Visual Studio\2022\Professional`,
	`C:\Program Files\Microsoft Visual Studio\2022\Community`,
	`C:\Program Files (x86)\Microsoft Visual Studio\2022\BuildTools`,
	`C:\Program Files (x86)\Microsoft Visual Studio\2019\Enterprise`,
	`C:\Program Files (x86)\Microsoft Visual Studio\2019\Professional`,
	`C:\Program Files (x86)\Microsoft Visual Studio\2019\Community`,
	`C:\Program Files (x86)\Microsoft Visual Studio\2019\BuildTools`,
}

// oneAPI roots probed on Windows.
//
//nolint:gochecknoglobals // fixed lookup table
var oneAPIWindowsRoots = []string{
	`C:\Program Files (x86)\Intel\oneAPI`,
	`C:\Program Files\Intel\oneAPI`,
	`D:\Program Files (x86)\Intel\oneAPI`,
	`D:\Program Files\Intel\oneAPI`,
}

// Discovery locates vendor activation scripts on the host.
type Discovery struct {
	GOOS   string
	Home   string
	Exists func(path string) bool
}

// NewDiscovery returns a Discovery for the running host.
func NewDiscovery() Discovery {
	home, _ := os.UserHomeDir()
	return Discovery{Home: home, Exists: fileExists}
}

// Find returns the default activation for name, if the toolchain uses one
// and its script is installed.
func (d Discovery) Find(name domain.Toolchain) (Activation, bool) {
	exists := d.Exists
	if exists == nil {
		exists = fileExists
	}

	var candidates []Activation
	switch {
	case name == domain.MSVC && isWindows(d.GOOS):
		for _, root := range vsInstallRoots {
			candidates = append(candidates, Activation{
				Script: root + `\VC\Auxiliary\Build\vcvarsall.bat`,
				Args:   []string{"x64"},
			})
		}
	case name == domain.Intel && isWindows(d.GOOS):
		for _, root := range oneAPIWindowsRoots {
			candidates = append(candidates, Activation{Script: root + `\setvars.bat`})
		}
	case name == domain.Intel:
		candidates = append(candidates, Activation{Script: "/opt/intel/oneapi/setvars.sh", Args: []string{"--force"}})
		if d.Home != "" {
			candidates = append(candidates, Activation{
				Script: filepath.Join(d.Home, "intel", "oneapi", "setvars.sh"),
				Args:   []string{"--force"},
			})
		}
	}

	for _, c := range candidates {
		if exists(c.Script) {
			return c, true
		}
	}
	return Activation{}, false
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
