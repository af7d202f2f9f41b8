package contextfactory

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultUserDataDirHonorsEnvOverride(t *testing.T) {
	t.Setenv("PROMPTHUB_DATA_DIR", "/tmp/prompthub-test")

	dir, err := defaultUserDataDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/tmp/prompthub-test", "browser-profile"), dir)
}

func TestFindChromeExecutableRejectsMissingCustomPath(t *testing.T) {
	_, err := findChromeExecutable("/nonexistent/path/to/chrome")
	assert.Error(t, err)
}

func TestIsProfileLockedError(t *testing.T) {
	assert.True(t, isProfileLockedError(errString("SingletonLock exists")))
	assert.True(t, isProfileLockedError(errString("profile is locked by another process")))
	assert.False(t, isProfileLockedError(errString("connection refused")))
	assert.False(t, isProfileLockedError(nil))
}

func TestNewPersistentFactoryFillsDefaults(t *testing.T) {
	f, err := NewPersistentFactory(PersistentConfig{})
	require.NoError(t, err)
	assert.Equal(t, 9222, f.cfg.CDPPort)
	assert.NotEmpty(t, f.cfg.UserDataDir)
}

type errString string

func (e errString) Error() string { return string(e) }
