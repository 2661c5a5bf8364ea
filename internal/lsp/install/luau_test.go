package install

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLuauAssetName(t *testing.T) {
	tests := []struct {
		goos   string
		goarch string
		want   string
	}{
		{"linux", "amd64", "luau-lsp-linux-x86_64.zip"},
		{"darwin", "amd64", "luau-lsp-macos.zip"},
		{"darwin", "arm64", "luau-lsp-macos.zip"},
		{"windows", "amd64", "luau-lsp-win64.zip"},
	}

	for _, tt := range tests {
		got, err := luauAssetName(tt.goos, tt.goarch)
		require.NoError(t, err, "%s/%s", tt.goos, tt.goarch)
		assert.Equal(t, tt.want, got)
	}
}

func TestLuauAssetName_UnsupportedPlatforms(t *testing.T) {
	_, err := luauAssetName("linux", "arm64")
	assert.Error(t, err, "non-x86_64 linux has no release asset")

	_, err = luauAssetName("freebsd", "amd64")
	assert.Error(t, err)
}

func TestLuauReadiness(t *testing.T) {
	assert.True(t, luauReadiness("workspace ready for requests"))
	assert.True(t, luauReadiness("server initialized"))
	assert.False(t, luauReadiness("indexing sourcemap.json"))
	assert.False(t, luauReadiness(""))
}

func TestLuauReleaseURL_Deterministic(t *testing.T) {
	if runtime.GOOS == "linux" && runtime.GOARCH != "amd64" {
		t.Skip("no luau-lsp asset for this platform")
	}

	server := FromDefinition(BuiltinServers[0])
	require.Equal(t, "luau-lsp", server.ID)

	url, err := releaseAssetURL(context.Background(), server)
	require.NoError(t, err)

	asset, err := luauAssetName(runtime.GOOS, runtime.GOARCH)
	require.NoError(t, err)
	assert.Equal(t, "https://github.com/JohnnyMorganz/luau-lsp/releases/download/"+luauLSPVersion+"/"+asset, url)
}

func TestLuauReleaseURL_UnsupportedArchFailsBeforeNetwork(t *testing.T) {
	server := FromDefinition(BuiltinServers[0])
	server.AssetName = func(goos, goarch string) (string, error) {
		return luauAssetName("linux", "arm64")
	}

	// No HTTP server is running; an attempted network call would fail
	// differently than the platform error asserted here.
	_, err := releaseAssetURL(context.Background(), server)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported architecture")
}

func TestLuauSetup_CachesAssets(t *testing.T) {
	var requests atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.Write([]byte("content for " + r.URL.Path))
	}))
	defer ts.Close()

	origTypes, origDocs := robloxTypesURL, robloxDocsURL
	robloxTypesURL = ts.URL + "/globalTypes.d.luau"
	robloxDocsURL = ts.URL + "/en-us.json"
	defer func() { robloxTypesURL, robloxDocsURL = origTypes, origDocs }()

	dir := t.TempDir()

	args, err := luauSetup(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"--definitions:@roblox=" + filepath.Join(dir, "globalTypes.d.luau"),
		"--docs=" + filepath.Join(dir, "en-us.json"),
	}, args)
	assert.EqualValues(t, 2, requests.Load())

	// Second run must serve both assets from the cache.
	args2, err := luauSetup(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, args, args2)
	assert.EqualValues(t, 2, requests.Load())
}

func TestLuauSetup_DegradesOnFetchFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer ts.Close()

	origTypes, origDocs := robloxTypesURL, robloxDocsURL
	robloxTypesURL = ts.URL + "/globalTypes.d.luau"
	robloxDocsURL = ts.URL + "/en-us.json"
	defer func() { robloxTypesURL, robloxDocsURL = origTypes, origDocs }()

	args, err := luauSetup(context.Background(), t.TempDir())
	require.NoError(t, err, "asset fetch failures are non-fatal")
	assert.Empty(t, args)
}

func TestLocate_PrefersPath(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("executable bits are not a thing on windows")
	}

	dir := t.TempDir()
	bin := filepath.Join(dir, "fake-luau-lsp")
	require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\n"), 0o755))
	t.Setenv("PATH", dir)

	server := ResolvedServer{
		ID:      "fake",
		Command: []string{"fake-luau-lsp", "lsp"},
	}

	path, err := Locate(server)
	require.NoError(t, err)
	assert.Equal(t, bin, path)
}

func TestLocate_SearchesExtraPaths(t *testing.T) {
	dir := t.TempDir()
	name := exeName("fake-tool")
	bin := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(bin, []byte("bin"), 0o755))
	t.Setenv("PATH", t.TempDir())

	server := ResolvedServer{
		ID:      "fake-tool",
		Command: []string{"fake-tool"},
		ExtraPaths: func(home string) []string {
			return []string{dir}
		},
	}

	path, err := Locate(server)
	require.NoError(t, err)
	assert.Equal(t, bin, path)
}

func TestLocate_MissingBinary(t *testing.T) {
	t.Setenv("PATH", t.TempDir())

	server := ResolvedServer{
		ID:      "nope",
		Command: []string{"definitely-not-installed-anywhere"},
	}

	_, err := Locate(server)
	assert.Error(t, err)
}

func TestResolveCommand_FoundBinarySkipsInstall(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("executable bits are not a thing on windows")
	}

	dir := t.TempDir()
	bin := filepath.Join(dir, "present-server")
	require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\n"), 0o755))
	t.Setenv("PATH", dir)

	server := ResolvedServer{
		ID:       "present",
		Command:  []string{"present-server", "--stdio"},
		Strategy: StrategyGitHubRelease,
		AssetName: func(goos, goarch string) (string, error) {
			t.Fatal("installer must not run when the binary is on PATH")
			return "", nil
		},
	}

	// Downloads disabled: success proves the locator alone resolved it.
	path, args, err := ResolveCommand(context.Background(), server, true)
	require.NoError(t, err)
	assert.Equal(t, bin, path)
	assert.Equal(t, []string{"--stdio"}, args)
}
