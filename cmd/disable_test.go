package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lspdock/lspdock/internal/config"
)

func TestDisableEnableCommands_UpdateConfigFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	config.Reset()
	t.Cleanup(config.Reset)

	wd, err := os.Getwd()
	require.NoError(t, err)
	t.Cleanup(func() { os.Chdir(wd) })

	configFile := filepath.Join(home, ".lspdock.json")
	require.NoError(t, os.WriteFile(configFile, []byte(`{"lsp": {"gopls": {}}}`), 0o644))

	rootCmd.SetArgs([]string{"disable", "gopls", "-c", t.TempDir()})
	require.NoError(t, rootCmd.Execute())

	data, err := os.ReadFile(configFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"disabled":true`)
	assert.True(t, config.Get().LSP["gopls"].Disabled)

	// Enabling must work even while the entry is disabled.
	rootCmd.SetArgs([]string{"enable", "gopls", "-c", t.TempDir()})
	require.NoError(t, rootCmd.Execute())

	data, err = os.ReadFile(configFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"disabled":false`)
	assert.False(t, config.Get().LSP["gopls"].Disabled)
}

func TestDisableCommand_RejectsUnknownServer(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	config.Reset()
	t.Cleanup(config.Reset)

	wd, err := os.Getwd()
	require.NoError(t, err)
	t.Cleanup(func() { os.Chdir(wd) })

	rootCmd.SetArgs([]string{"disable", "no-such-server", "-c", t.TempDir()})
	err = rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no-such-server")
}
