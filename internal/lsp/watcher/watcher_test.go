package watcher

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lspdock/lspdock/internal/lsp"
	"github.com/lspdock/lspdock/internal/lsp/protocol"
)

func newTestWatcher(t *testing.T, ignoredDirs []string) *WorkspaceWatcher {
	t.Helper()
	client := &lsp.Client{}
	client.SetIgnoredDirectories(ignoredDirs)
	w := NewWorkspaceWatcher(client)
	w.workspaceDir = filepath.FromSlash("/ws")
	return w
}

func TestGlobPattern(t *testing.T) {
	pattern, ok := globPattern("**/*.luau")
	require.True(t, ok)
	assert.Equal(t, "**/*.luau", pattern)

	pattern, ok = globPattern(map[string]any{
		"baseUri": "file:///ws",
		"pattern": "**/*.json",
	})
	require.True(t, ok)
	assert.Equal(t, "**/*.json", pattern)

	_, ok = globPattern(42)
	assert.False(t, ok)
}

func TestMatchesRegistration(t *testing.T) {
	w := newTestWatcher(t, nil)
	w.addRegistrations([]protocol.FileSystemWatcher{
		{GlobPattern: "**/*.luau"},
		{GlobPattern: map[string]any{"pattern": "**/aftman.toml"}},
	})

	assert.True(t, w.matchesRegistration(filepath.FromSlash("/ws/src/main.luau")))
	assert.True(t, w.matchesRegistration(filepath.FromSlash("/ws/aftman.toml")))
	assert.False(t, w.matchesRegistration(filepath.FromSlash("/ws/src/readme.md")))
}

func TestMatchesRegistration_NoRegistrations(t *testing.T) {
	w := newTestWatcher(t, nil)
	assert.False(t, w.matchesRegistration(filepath.FromSlash("/ws/src/main.luau")))
}

func TestIsIgnoredDir(t *testing.T) {
	w := newTestWatcher(t, []string{"Packages", "roblox_packages"})

	assert.True(t, w.isIgnoredDir("node_modules"), "shared set")
	assert.True(t, w.isIgnoredDir(".git"), "shared set")
	assert.True(t, w.isIgnoredDir("Packages"), "per-server set")
	assert.True(t, w.isIgnoredDir("roblox_packages"), "per-server set")
	assert.False(t, w.isIgnoredDir("src"))
}

func TestIsIgnoredPath(t *testing.T) {
	w := newTestWatcher(t, []string{"Packages"})

	assert.True(t, w.isIgnoredPath(filepath.FromSlash("/ws/Packages/roact/init.luau")))
	assert.True(t, w.isIgnoredPath(filepath.FromSlash("/ws/src/node_modules/x.js")))
	assert.False(t, w.isIgnoredPath(filepath.FromSlash("/ws/src/main.luau")))
	assert.False(t, w.isIgnoredPath(filepath.FromSlash("/elsewhere/Packages/x.luau")),
		"paths outside the workspace are not ours to filter")
}
