package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.Equal(t, 10_000, cfg.RequestTimeoutMS)
	require.Equal(t, 1000, cfg.ConsoleLogCapacity)
	require.Equal(t, 500, cfg.HookLogCapacity)
	require.Equal(t, 10, cfg.ScanProgressCadence)
	require.Equal(t, 10_000, int(cfg.RequestTimeout().Milliseconds()))
}

func TestLoadMergesProjectOverGlobal(t *testing.T) {
	dir := t.TempDir()
	projectDir := filepath.Join(dir, "project")
	require.NoError(t, os.MkdirAll(filepath.Join(projectDir, ".carf"), 0755))

	t.Setenv("XDG_CONFIG_HOME", dir)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "carf"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "carf", "carf.json"),
		[]byte(`{"requestTimeoutMs": 5000, "consoleLogCapacity": 200}`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(projectDir, ".carf", "carf.json"),
		[]byte(`{"requestTimeoutMs": 2000}`), 0644))

	cfg, err := Load(projectDir)
	require.NoError(t, err)
	require.Equal(t, 2000, cfg.RequestTimeoutMS, "project config should win over global")
	require.Equal(t, 200, cfg.ConsoleLogCapacity, "global-only field should survive merge")
}

func TestLoadSkipsMissingFiles(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	cfg, err := Load(filepath.Join(dir, "nonexistent-project"))
	require.NoError(t, err)
	require.Equal(t, DefaultConfig(), cfg)
}

func TestEnvOverrideWinsOverFiles(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("CARF_REQUEST_TIMEOUT_MS", "42")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 42, cfg.RequestTimeoutMS)
}
