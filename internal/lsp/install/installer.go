package install

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/lspdock/lspdock/internal/logging"
)

// ResolveCommand finds or installs the LSP server binary and returns
// the command plus args. Auto-install only runs when the binary is
// missing everywhere and downloads are enabled.
func ResolveCommand(ctx context.Context, server ResolvedServer, disableDownload bool) (string, []string, error) {
	if len(server.Command) == 0 {
		return "", nil, fmt.Errorf("no command configured for %s", server.ID)
	}
	args := server.Command[1:]

	if path, err := Locate(server); err == nil {
		logServerVersion(path, server.ID)
		return path, args, nil
	} else if filepath.IsAbs(server.Command[0]) {
		return "", nil, err
	}

	if disableDownload || server.Strategy == StrategyNone {
		return "", nil, fmt.Errorf("binary %q not found for %s (auto-install disabled or not supported)", server.Command[0], server.ID)
	}

	logging.Info("Auto-installing LSP server", "name", server.ID, "strategy", server.Strategy)

	var err error
	switch server.Strategy {
	case StrategyNpm:
		err = installNpm(ctx, server)
	case StrategyGoInstall:
		err = installGo(ctx, server)
	case StrategyGitHubRelease:
		err = installGitHubRelease(ctx, server)
	default:
		return "", nil, fmt.Errorf("unknown install strategy for %s", server.ID)
	}
	if err != nil {
		return "", nil, fmt.Errorf("auto-install failed for %s: %w", server.ID, err)
	}

	path, err := Locate(server)
	if err != nil {
		return "", nil, fmt.Errorf("binary %q still not found after install for %s", server.Command[0], server.ID)
	}
	logServerVersion(path, server.ID)
	return path, args, nil
}

// logServerVersion attempts to get and log the server version for debugging.
func logServerVersion(binaryPath, serverID string) {
	for _, flag := range []string{"--version", "version", "-v"} {
		cmd := exec.Command(binaryPath, flag)
		output, err := cmd.Output()
		if err == nil {
			version := strings.TrimSpace(strings.Split(string(output), "\n")[0])
			if version != "" {
				logging.Info("LSP server resolved", "name", serverID, "path", binaryPath, "version", version)
				return
			}
		}
	}
	logging.Info("LSP server resolved", "name", serverID, "path", binaryPath)
}

func installNpm(ctx context.Context, server ResolvedServer) error {
	npmPath, err := exec.LookPath("npm")
	if err != nil {
		return fmt.Errorf("npm not found in PATH, cannot auto-install %s", server.ID)
	}

	binDir := BinDir()
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("failed to create bin directory: %w", err)
	}

	packages := strings.Fields(server.InstallPackage)
	args := append([]string{"install", "--prefix", binDir}, packages...)

	cmd := exec.CommandContext(ctx, npmPath, args...)
	cmd.Dir = binDir
	cmd.Env = os.Environ()

	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("npm install failed: %w\noutput: %s", err, string(output))
	}

	logging.Info("Successfully installed LSP server via npm", "name", server.ID)
	return nil
}

func installGo(ctx context.Context, server ResolvedServer) error {
	goPath, err := exec.LookPath("go")
	if err != nil {
		return fmt.Errorf("go not found in PATH, cannot auto-install %s", server.ID)
	}

	binDir := BinDir()
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("failed to create bin directory: %w", err)
	}

	cmd := exec.CommandContext(ctx, goPath, "install", server.InstallPackage)
	cmd.Env = append(os.Environ(), "GOBIN="+binDir)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("go install failed: %w\noutput: %s", err, string(output))
	}

	logging.Info("Successfully installed LSP server via go install", "name", server.ID)
	return nil
}

// Overridable in tests.
var (
	githubDownloadBase = "https://github.com"
	githubAPIBase      = "https://api.github.com"
)

// releaseAssetURL builds the download URL. Servers with a pinned
// version and an asset-name hook get a deterministic URL; everything
// else goes through the GitHub latest-release API.
func releaseAssetURL(ctx context.Context, server ResolvedServer) (string, error) {
	if server.InstallVersion != "" && server.AssetName != nil {
		asset, err := server.AssetName(runtime.GOOS, runtime.GOARCH)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s/%s/releases/download/%s/%s",
			githubDownloadBase, server.InstallRepo, server.InstallVersion, asset), nil
	}

	url := fmt.Sprintf("%s/repos/%s/releases/latest", githubAPIBase, server.InstallRepo)
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch release info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return "", fmt.Errorf("GitHub API returned status %d for %s", resp.StatusCode, server.InstallRepo)
	}

	var release struct {
		Assets []releaseAsset `json:"assets"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return "", fmt.Errorf("failed to decode release info: %w", err)
	}

	asset := findMatchingAsset(release.Assets)
	if asset == "" {
		return "", fmt.Errorf("no matching release asset found for %s on %s/%s", server.ID, runtime.GOOS, runtime.GOARCH)
	}
	return asset, nil
}

func installGitHubRelease(ctx context.Context, server ResolvedServer) error {
	if server.InstallRepo == "" {
		return fmt.Errorf("no GitHub repo configured for %s", server.ID)
	}

	installDir := InstallDir(server.ID)
	if err := os.MkdirAll(installDir, 0o755); err != nil {
		return fmt.Errorf("failed to create install directory: %w", err)
	}

	assetURL, err := releaseAssetURL(ctx, server)
	if err != nil {
		return err
	}

	logging.Info("Downloading LSP server", "name", server.ID, "url", assetURL)
	tmpFile, err := downloadFile(ctx, assetURL, installDir)
	if err != nil {
		return err
	}
	defer os.Remove(tmpFile)

	binaryName := exeName(server.Command[0])
	downloadName := filepath.Base(assetURL)
	switch {
	case strings.HasSuffix(downloadName, ".tar.gz") || strings.HasSuffix(downloadName, ".tgz"):
		if err := extractTarGz(tmpFile, installDir); err != nil {
			return err
		}
	case strings.HasSuffix(downloadName, ".zip"):
		if err := extractZip(tmpFile, installDir); err != nil {
			return err
		}
	default:
		// Raw binary
		dest := filepath.Join(installDir, binaryName)
		if err := os.Rename(tmpFile, dest); err != nil {
			return err
		}
	}

	binary := findExecutable(installDir, binaryName)
	if binary == "" {
		return fmt.Errorf("executable %q not found after extraction for %s", binaryName, server.ID)
	}
	if runtime.GOOS != "windows" {
		if err := os.Chmod(binary, 0o755); err != nil {
			return fmt.Errorf("failed to mark %s executable: %w", binary, err)
		}
	}
	return nil
}

// downloadFile fetches url into a temp file inside dir, retrying
// transient failures with exponential backoff.
func downloadFile(ctx context.Context, url, dir string) (string, error) {
	tmpFile, err := os.CreateTemp(dir, "lsp-download-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()

	backoff := retry.WithMaxRetries(3, retry.NewExponential(500*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
		if err != nil {
			return err
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return retry.RetryableError(fmt.Errorf("download returned status %d", resp.StatusCode))
		}
		if resp.StatusCode != 200 {
			return fmt.Errorf("download returned status %d for %s", resp.StatusCode, url)
		}

		out, err := os.Create(tmpPath)
		if err != nil {
			return err
		}
		defer out.Close()
		if _, err := io.Copy(out, resp.Body); err != nil {
			return retry.RetryableError(fmt.Errorf("failed to write download: %w", err))
		}
		return nil
	})
	if err != nil {
		os.Remove(tmpPath)
		return "", err
	}
	return tmpPath, nil
}

type releaseAsset struct {
	Name               string `json:"name"`
	BrowserDownloadURL string `json:"browser_download_url"`
}

func findMatchingAsset(assets []releaseAsset) string {
	goos := runtime.GOOS
	goarch := runtime.GOARCH

	osNames := []string{goos}
	archNames := []string{goarch}

	switch goos {
	case "darwin":
		osNames = append(osNames, "macos", "osx", "apple")
	case "windows":
		osNames = append(osNames, "win")
	}

	switch goarch {
	case "amd64":
		archNames = append(archNames, "x86_64", "x64")
	case "arm64":
		archNames = append(archNames, "aarch64")
	}

	for _, a := range assets {
		name := strings.ToLower(a.Name)
		osMatch := false
		archMatch := false

		for _, os := range osNames {
			if strings.Contains(name, os) {
				osMatch = true
				break
			}
		}
		for _, arch := range archNames {
			if strings.Contains(name, arch) {
				archMatch = true
				break
			}
		}

		if osMatch && archMatch {
			return a.BrowserDownloadURL
		}
	}
	return ""
}

func extractTarGz(src, destDir string) error {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("invalid gzip archive: %w", err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("tar extraction failed: %w", err)
		}

		dest, err := sanitizePath(destDir, hdr.Name)
		if err != nil {
			return err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(dest, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
				return err
			}
			out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(hdr.Mode)&0o777)
			if err != nil {
				return err
			}
			if _, err := io.Copy(out, tr); err != nil {
				out.Close()
				return err
			}
			out.Close()
		}
	}
}

func extractZip(src, destDir string) error {
	zr, err := zip.OpenReader(src)
	if err != nil {
		return fmt.Errorf("invalid zip archive: %w", err)
	}
	defer zr.Close()

	for _, file := range zr.File {
		dest, err := sanitizePath(destDir, file.Name)
		if err != nil {
			return err
		}

		if file.FileInfo().IsDir() {
			if err := os.MkdirAll(dest, 0o755); err != nil {
				return err
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return err
		}
		in, err := file.Open()
		if err != nil {
			return err
		}
		out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, file.Mode()&0o777|0o600)
		if err != nil {
			in.Close()
			return err
		}
		if _, err := io.Copy(out, in); err != nil {
			in.Close()
			out.Close()
			return err
		}
		in.Close()
		out.Close()
	}
	return nil
}

// sanitizePath rejects archive entries that would escape destDir.
func sanitizePath(destDir, name string) (string, error) {
	dest := filepath.Join(destDir, filepath.FromSlash(name))
	if !strings.HasPrefix(dest, filepath.Clean(destDir)+string(os.PathSeparator)) {
		return "", fmt.Errorf("archive entry escapes destination: %s", name)
	}
	return dest, nil
}
