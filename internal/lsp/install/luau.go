package install

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lspdock/lspdock/internal/logging"
)

// luau-lsp ships platform archives per release tag; the pin below is
// known to work with the initialize payload this client advertises.
const luauLSPVersion = "1.57.1"

// Overridable in tests.
var (
	robloxTypesURL = "https://luau-lsp.pages.dev/type-definitions/globalTypes.PluginSecurity.d.luau"
	robloxDocsURL  = "https://luau-lsp.pages.dev/api-docs/en-us.json"
)

const luauAssetTimeout = 30 * time.Second

func luauAssetName(goos, goarch string) (string, error) {
	switch goos {
	case "linux":
		if goarch != "amd64" {
			return "", fmt.Errorf("unsupported architecture for luau-lsp on linux: %s", goarch)
		}
		return "luau-lsp-linux-x86_64.zip", nil
	case "darwin":
		return "luau-lsp-macos.zip", nil
	case "windows":
		return "luau-lsp-win64.zip", nil
	default:
		return "", fmt.Errorf("unsupported platform for luau-lsp: %s", goos)
	}
}

// luauExtraPaths covers the Rojo ecosystem's toolchain manager.
func luauExtraPaths(home string) []string {
	return []string{
		filepath.Join(home, ".aftman", "bin"),
	}
}

// luauReadiness matches the warm-up log line luau-lsp emits once the
// workspace has been indexed.
func luauReadiness(message string) bool {
	return strings.Contains(message, "workspace ready") || strings.Contains(message, "initialized")
}

var luauRequiredCapabilities = []string{
	"textDocumentSync",
	"definitionProvider",
	"documentSymbolProvider",
	"referencesProvider",
}

var luauIgnoredDirs = []string{
	"node_modules",
	"Packages",
	"DevPackages",
	"roblox_packages",
	"build",
	"dist",
	".cache",
}

// luauSetup fetches the Roblox global type definitions and API docs,
// caching them next to the binary, and returns the corresponding
// command-line flags. A failed fetch degrades to launching without
// that flag.
func luauSetup(ctx context.Context, installDir string) ([]string, error) {
	if err := os.MkdirAll(installDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create install directory: %w", err)
	}

	var args []string
	if path, err := fetchCachedAsset(ctx, robloxTypesURL, filepath.Join(installDir, "globalTypes.d.luau")); err != nil {
		logging.Warn("Failed to fetch Roblox type definitions, continuing without them", "error", err)
	} else {
		args = append(args, "--definitions:@roblox="+path)
	}

	if path, err := fetchCachedAsset(ctx, robloxDocsURL, filepath.Join(installDir, "en-us.json")); err != nil {
		logging.Warn("Failed to fetch Roblox API docs, continuing without them", "error", err)
	} else {
		args = append(args, "--docs="+path)
	}

	return args, nil
}

// fetchCachedAsset returns dest if it already exists, otherwise
// downloads url into dest with a bounded timeout.
func fetchCachedAsset(ctx context.Context, url, dest string) (string, error) {
	if _, err := os.Stat(dest); err == nil {
		return dest, nil
	}

	ctx, cancel := context.WithTimeout(ctx, luauAssetTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return "", fmt.Errorf("fetch returned status %d for %s", resp.StatusCode, url)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), filepath.Base(dest)+".tmp-*")
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}
	tmp.Close()

	if err := os.Rename(tmp.Name(), dest); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return dest, nil
}
