package install

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// BinDir returns the directory where npm and go installed server
// binaries are stored.
func BinDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".lspdock", "bin")
	}
	return filepath.Join(home, ".lspdock", "bin")
}

// InstallDir returns the per-server directory used for release archive
// extraction and cached auxiliary assets.
func InstallDir(serverID string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".lspdock", "servers", serverID)
	}
	return filepath.Join(home, ".lspdock", "servers", serverID)
}

func exeName(name string) string {
	if runtime.GOOS == "windows" && filepath.Ext(name) == "" {
		return name + ".exe"
	}
	return name
}

// wellKnownDirs lists directories commonly used by package managers
// that do not end up on PATH in every shell.
func wellKnownDirs(home string) []string {
	switch runtime.GOOS {
	case "windows":
		return []string{
			filepath.Join(home, "AppData", "Local", "Programs"),
			filepath.Join(home, "AppData", "Local", "Microsoft", "WindowsApps"),
		}
	default:
		return []string{
			filepath.Join(home, ".local", "bin"),
			"/usr/local/bin",
			"/opt/homebrew/bin",
		}
	}
}

// Locate returns the path to the server's executable without touching
// the network. The search order is: absolute path as configured, PATH,
// well-known install directories plus server-specific extras, the
// server's extraction directory, the shared bin directory, and finally
// the npm prefix.
func Locate(server ResolvedServer) (string, error) {
	if len(server.Command) == 0 {
		return "", fmt.Errorf("no command configured for %s", server.ID)
	}
	cmd := server.Command[0]

	if filepath.IsAbs(cmd) {
		if _, err := os.Stat(cmd); err == nil {
			return cmd, nil
		}
		return "", fmt.Errorf("configured command not found: %s", cmd)
	}

	if path, err := exec.LookPath(cmd); err == nil {
		return path, nil
	}

	home, _ := os.UserHomeDir()
	dirs := wellKnownDirs(home)
	if server.ExtraPaths != nil {
		dirs = append(dirs, server.ExtraPaths(home)...)
	}
	for _, dir := range dirs {
		candidate := filepath.Join(dir, exeName(cmd))
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}

	if path := findExecutable(InstallDir(server.ID), exeName(cmd)); path != "" {
		return path, nil
	}

	localBin := filepath.Join(BinDir(), exeName(cmd))
	if _, err := os.Stat(localBin); err == nil {
		return localBin, nil
	}

	npmBin := filepath.Join(BinDir(), "node_modules", ".bin", cmd)
	if _, err := os.Stat(npmBin); err == nil {
		return npmBin, nil
	}

	return "", fmt.Errorf("binary %q not found for %s", cmd, server.ID)
}

// findExecutable searches dir and its subdirectories for a file with
// the given name. Returns "" when dir does not exist or has no match.
func findExecutable(dir, name string) string {
	found := ""
	_ = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() && d.Name() == name {
			found = path
			return filepath.SkipAll
		}
		return nil
	})
	return found
}
