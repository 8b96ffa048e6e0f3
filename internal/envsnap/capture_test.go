package envsnap

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/crucible/internal/domain"
	"github.com/mrz1836/crucible/internal/process"
)

func TestParseEnvironment(t *testing.T) {
	t.Parallel()

	t.Run("nul separated", func(t *testing.T) {
		t.Parallel()
		vars := ParseEnvironment("PATH=/bin:/usr/bin\x00MULTI=line one\nline two\x00EMPTY=\x00", false)
		assert.Equal(t, map[string]string{
			"PATH":  "/bin:/usr/bin",
			"MULTI": "line one\nline two",
			"EMPTY": "",
		}, vars)
	})

	t.Run("windows set output", func(t *testing.T) {
		t.Parallel()
		vars := ParseEnvironment("=C:=C:\\src\r\nINCLUDE=C:\\VC\\include\r\nPath=C:\\VC\\bin;C:\\Windows\r\n", true)
		assert.Equal(t, map[string]string{
			"INCLUDE": `C:\VC\include`,
			"Path":    `C:\VC\bin;C:\Windows`,
		}, vars)
	})
}

func TestShellCapturer_Spec(t *testing.T) {
	t.Parallel()
	act := Activation{Script: `C:\Program Files\VS\vcvarsall.bat`, Args: []string{"x64"}}

	win := &ShellCapturer{goos: "windows", environ: func() []string { return []string{"A=1"} }, timeout: time.Second}
	spec := win.spec(act)
	assert.Equal(t, "cmd.exe", spec.Path)
	assert.Equal(t, []string{"/d", "/c", "call", act.Script, "x64", ">nul", "2>&1", "&&", "set"}, spec.Args)
	assert.Equal(t, []string{"A=1"}, spec.Env)
	assert.Equal(t, time.Second, spec.Timeout)

	unix := &ShellCapturer{goos: "linux", environ: func() []string { return nil }}
	spec = unix.spec(Activation{Script: "/opt/intel/oneapi/setvars.sh", Args: []string{"--force"}})
	assert.Equal(t, "bash", spec.Path)
	assert.Equal(t, "/opt/intel/oneapi/setvars.sh", spec.Args[2])
	assert.Equal(t, "--force", spec.Args[3])
}

func TestShellCapturer_CapturesScriptEnvironment(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses bash")
	}
	if _, err := exec.LookPath("bash"); err != nil {
		t.Skip("bash not available")
	}
	t.Parallel()

	script := filepath.Join(t.TempDir(), "activate.sh")
	require.NoError(t, os.WriteFile(script, []byte("echo noisy banner\nexport VENDOR_ROOT=\"/opt/vendor/$1\"\n"), 0o600))

	c := NewShellCapturer(process.NewExecRunner(), 10*time.Second)
	vars, err := c.CaptureFullEnvironment(context.Background(), Activation{Script: script, Args: []string{"2025"}})
	require.NoError(t, err)
	assert.Equal(t, "/opt/vendor/2025", vars["VENDOR_ROOT"])
	assert.NotContains(t, vars, "noisy banner")

	_, present := os.LookupEnv("VENDOR_ROOT")
	assert.False(t, present)
}

func TestShellCapturer_FailingScript(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses bash")
	}
	if _, err := exec.LookPath("bash"); err != nil {
		t.Skip("bash not available")
	}
	t.Parallel()

	script := filepath.Join(t.TempDir(), "broken.sh")
	require.NoError(t, os.WriteFile(script, []byte("echo boom >&2\nreturn 3\n"), 0o600))

	c := NewShellCapturer(process.NewExecRunner(), 10*time.Second)
	_, err := c.CaptureFullEnvironment(context.Background(), Activation{Script: script})
	require.Error(t, err)

	_, err = c.CaptureFullEnvironment(context.Background(), Activation{Script: filepath.Join(t.TempDir(), "missing.sh")})
	require.Error(t, err)
}

func TestDiscovery_Find(t *testing.T) {
	t.Parallel()
	present := map[string]bool{
		`C:\Program Files\Microsoft Visual Studio\2022\Community\VC\Auxiliary\Build\vcvarsall.bat`: true,
		"/opt/intel/oneapi/setvars.sh": true,
	}
	exists := func(p string) bool { return present[p] }

	act, ok := Discovery{GOOS: "windows", Exists: exists}.Find(domain.MSVC)
	require.True(t, ok)
	assert.Contains(t, act.Script, `2022\Community`)
	assert.Equal(t, []string{"x64"}, act.Args)

	act, ok = Discovery{GOOS: "linux", Exists: exists}.Find(domain.Intel)
	require.True(t, ok)
	assert.Equal(t, "/opt/intel/oneapi/setvars.sh", act.Script)

	_, ok = Discovery{GOOS: "linux", Exists: exists}.Find(domain.MSVC)
	assert.False(t, ok, "msvc has no activation off windows")

	_, ok = Discovery{GOOS: "linux", Exists: exists}.Find(domain.GCC)
	assert.False(t, ok)
}
