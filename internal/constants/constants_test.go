package constants

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimeoutConstants(t *testing.T) {
	t.Run("test suites get a short budget", func(t *testing.T) {
		assert.Equal(t, 30*time.Second, DefaultTestTimeout)
	})

	t.Run("benchmarks get a long budget", func(t *testing.T) {
		assert.Equal(t, 5*time.Minute, DefaultBenchTimeout)
		assert.Greater(t, DefaultBenchTimeout, DefaultTestTimeout)
	})

	t.Run("detection is bounded", func(t *testing.T) {
		assert.Equal(t, 30*time.Second, DefaultDetectTimeout)
	})

	t.Run("demo compiles are tighter than regular compiles", func(t *testing.T) {
		assert.Less(t, DefaultDemoCompileTimeout, DefaultCompileTimeout)
	})
}

func TestLockConstants(t *testing.T) {
	assert.Equal(t, 50*time.Millisecond, LockRetryInterval)
	assert.Greater(t, LockTimeout, LockRetryInterval, "must allow more than one attempt")
}

func TestPathConstants(t *testing.T) {
	assert.Equal(t, ".crucible", CrucibleHome)
	assert.Equal(t, "compiler_envs", EnvCacheDirName)
	assert.Equal(t, "_env.json", EnvCacheFileSuffix)
	assert.Equal(t, 200, DefaultDiagnosticLimit)
}
