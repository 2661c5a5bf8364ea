package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadForTest(t *testing.T, workingDir string) *Config {
	t.Helper()
	t.Cleanup(Reset)
	Reset()

	cfg, err := Load(workingDir, false, false)
	require.NoError(t, err)
	return cfg
}

func TestLoad_Defaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))

	wd := t.TempDir()
	cfg := loadForTest(t, wd)

	assert.Equal(t, wd, cfg.WorkingDir)
	assert.Equal(t, defaultDataDirectory, cfg.Data.Directory)
	assert.False(t, cfg.Debug)
	assert.False(t, cfg.DisableDownload)
}

func TestLoad_LocalConfigOverridesGlobal(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))

	// The registry normally registers these at init; this package's
	// tests run without it.
	RegisterKnownServer("gopls")
	RegisterKnownServer("luau-lsp")

	globalConfig := `{"lsp": {"gopls": {}, "luau-lsp": {}}}`
	require.NoError(t, os.WriteFile(filepath.Join(home, ".lspdock.json"), []byte(globalConfig), 0o644))

	wd := t.TempDir()
	localConfig := `{"lsp": {"luau-lsp": {"disabled": true}}}`
	require.NoError(t, os.WriteFile(filepath.Join(wd, ".lspdock.json"), []byte(localConfig), 0o644))

	cfg := loadForTest(t, wd)

	require.Contains(t, cfg.LSP, "gopls")
	require.Contains(t, cfg.LSP, "luau-lsp")
	assert.False(t, cfg.LSP["gopls"].Disabled)
	assert.True(t, cfg.LSP["luau-lsp"].Disabled, "local config should win")
}

func TestLoad_DisableDownloadEnv(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	t.Setenv("LSPDOCK_DISABLE_DOWNLOAD", "true")

	cfg := loadForTest(t, t.TempDir())
	assert.True(t, cfg.DisableDownload)
}

func TestValidate_DisablesUnusableEntries(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))

	config := `{"lsp": {"mystery-server": {}}}`
	require.NoError(t, os.WriteFile(filepath.Join(home, ".lspdock.json"), []byte(config), 0o644))

	cfg := loadForTest(t, t.TempDir())

	require.Contains(t, cfg.LSP, "mystery-server")
	assert.True(t, cfg.LSP["mystery-server"].Disabled,
		"entries with no command and no registry match are unusable")
}

func TestValidate_KeepsKnownServerEntries(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))

	RegisterKnownServer("test-known-server")
	config := `{"lsp": {"test-known-server": {}}}`
	require.NoError(t, os.WriteFile(filepath.Join(home, ".lspdock.json"), []byte(config), 0o644))

	cfg := loadForTest(t, t.TempDir())

	require.Contains(t, cfg.LSP, "test-known-server")
	assert.False(t, cfg.LSP["test-known-server"].Disabled)
}

func TestSetServerDisabled_UpdatesFileAndMemory(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))

	RegisterKnownServer("gopls")
	configFile := filepath.Join(home, ".lspdock.json")
	config := `{"lsp": {"gopls": {}}}`
	require.NoError(t, os.WriteFile(configFile, []byte(config), 0o644))

	cfg := loadForTest(t, t.TempDir())
	require.False(t, cfg.LSP["gopls"].Disabled)

	require.NoError(t, SetServerDisabled("gopls", true))
	assert.True(t, cfg.LSP["gopls"].Disabled)

	data, err := os.ReadFile(configFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"disabled":true`)
}
