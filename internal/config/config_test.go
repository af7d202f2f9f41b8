package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaultsWithNoFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, defaultRelayAddr, cfg.RelayAddr)
	assert.Equal(t, defaultLogLevel, cfg.LogLevel)
	assert.NotEmpty(t, cfg.ProfilesDir)
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bridge.yaml")
	require.NoError(t, os.WriteFile(path, []byte("relayAddr: 0.0.0.0:9000\nlogLevel: debug\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9000", cfg.RelayAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadMissingFileIsNotAnError(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, defaultRelayAddr, cfg.RelayAddr)
}

func TestEnvOverridesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bridge.yaml")
	require.NoError(t, os.WriteFile(path, []byte("relayAddr: 0.0.0.0:9000\n"), 0o644))

	t.Setenv("PROMPTHUB_RELAY_ADDR", "127.0.0.1:1234")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:1234", cfg.RelayAddr)
}

func TestProfileStoreLoadsAndReloads(t *testing.T) {
	dir := t.TempDir()
	chatgptYAML := "inputArea: [\"#prompt\"]\nsendButton: [\"#send\"]\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "chatgpt.yaml"), []byte(chatgptYAML), 0o644))

	store, err := NewProfileStore(dir)
	require.NoError(t, err)

	profile, ok := store.Get("chatgpt")
	require.True(t, ok)
	assert.Equal(t, []string{"#prompt"}, profile.InputArea)

	stop := make(chan struct{})
	defer close(stop)
	require.NoError(t, store.Watch(stop))

	updated := "inputArea: [\"#new-prompt\"]\nsendButton: [\"#send\"]\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "chatgpt.yaml"), []byte(updated), 0o644))

	require.Eventually(t, func() bool {
		p, ok := store.Get("chatgpt")
		return ok && len(p.InputArea) == 1 && p.InputArea[0] == "#new-prompt"
	}, 2*time.Second, 20*time.Millisecond)
}

func TestProfileStoreMissingDirIsEmptyNotError(t *testing.T) {
	store, err := NewProfileStore(filepath.Join(t.TempDir(), "does-not-exist"))
	require.NoError(t, err)
	assert.Empty(t, store.All())
}
