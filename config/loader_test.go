package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFallsBackThroughDefaultNames(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "default.yaml"), []byte("environment: staging\n"), 0o644))

	cfg, err := Load(LoaderOptions{ConfigDir: dir, Environment: "nonexistent-env", EnvFile: ""})
	require.NoError(t, err)
	assert.Equal(t, "staging", cfg.Environment)
}

func TestLoadWithNoFilesReturnsDefaultedConfig(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(LoaderOptions{ConfigDir: dir, Environment: "development", EnvFile: ""})
	require.NoError(t, err)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "memory", cfg.Store.Backend)
}

func TestLoadEnvironmentOverrideTakesPriorityOverFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "default.yaml"), []byte("store:\n  dsn: postgres://file-dsn/rird\n  backend: postgres\n"), 0o644))

	os.Setenv("RIRD_STORE_DSN", "postgres://env-dsn/rird")
	defer os.Unsetenv("RIRD_STORE_DSN")

	cfg, err := Load(LoaderOptions{ConfigDir: dir, Environment: "development", EnvFile: ""})
	require.NoError(t, err)
	assert.Equal(t, "postgres://env-dsn/rird", cfg.Store.DSN)
}

func TestLoadFailsValidationOnUnknownBackend(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "default.yaml"), []byte("store:\n  backend: sqlite\n"), 0o644))

	_, err := Load(LoaderOptions{ConfigDir: dir, Environment: "development", EnvFile: ""})
	assert.Error(t, err)
}

func TestLoadSkipValidationBypassesErrors(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "default.yaml"), []byte("store:\n  backend: sqlite\n"), 0o644))

	cfg, err := Load(LoaderOptions{ConfigDir: dir, Environment: "development", EnvFile: "", SkipValidation: true})
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Store.Backend)
}

func TestMustLoadPanicsOnInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "default.yaml"), []byte("store:\n  backend: sqlite\n"), 0o644))

	assert.Panics(t, func() {
		MustLoad(LoaderOptions{ConfigDir: dir, Environment: "development", EnvFile: ""})
	})
}
