package install

import (
	"context"

	"github.com/lspdock/lspdock/internal/config"
)

// InstallStrategy defines how an LSP server binary is obtained.
type InstallStrategy int

const (
	StrategyNone          InstallStrategy = iota // Must be pre-installed on PATH
	StrategyNpm                                  // npm install --prefix <dir> <package>
	StrategyGoInstall                            // go install <pkg>@latest
	StrategyGitHubRelease                        // Download from GitHub releases
)

// ServerDefinition describes a built-in LSP server. The function
// fields are optional per-server hooks; a nil hook means the generic
// behavior applies.
type ServerDefinition struct {
	ID             string
	Extensions     []string
	Command        []string // Default command and args
	Strategy       InstallStrategy
	InstallPackage string // npm package name or go module path
	InstallRepo    string // GitHub owner/repo for release downloads
	InstallVersion string // Pinned release tag; empty means latest

	// AssetName maps GOOS/GOARCH to the release asset filename. When
	// set together with InstallVersion, the download URL is built
	// without consulting the GitHub API.
	AssetName func(goos, goarch string) (string, error)

	// ExtraPaths lists additional directories the locator should
	// search, on top of the shared well-known set.
	ExtraPaths func(home string) []string

	// Setup runs after the binary is resolved and returns extra
	// command-line arguments, e.g. paths to fetched definition files.
	Setup func(ctx context.Context, installDir string) ([]string, error)

	// ReadySignal inspects lowercased window/logMessage text and
	// reports whether the server finished its warm-up.
	ReadySignal func(message string) bool

	// RequiredCapabilities lists capability keys that must be present
	// in the initialize response for startup to proceed.
	RequiredCapabilities []string

	// IgnoredDirs extends the shared set of directories excluded from
	// workspace watching for this server.
	IgnoredDirs []string

	DefaultInit map[string]any
}

// ResolvedServer is the final server config after merging registry and
// user config.
type ResolvedServer struct {
	ID             string
	Extensions     []string
	Command        []string
	Env            map[string]string
	Initialization map[string]any
	Strategy       InstallStrategy
	InstallPackage string
	InstallRepo    string
	InstallVersion string

	AssetName            func(goos, goarch string) (string, error)
	ExtraPaths           func(home string) []string
	Setup                func(ctx context.Context, installDir string) ([]string, error)
	ReadySignal          func(message string) bool
	RequiredCapabilities []string
	IgnoredDirs          []string
}

// builtinByID returns a lookup map from server ID to its built-in definition.
func builtinByID() map[string]ServerDefinition {
	m := make(map[string]ServerDefinition, len(BuiltinServers))
	for _, def := range BuiltinServers {
		m[def.ID] = def
	}
	return m
}

// FromDefinition builds a ResolvedServer straight from a registry
// entry, with no user overrides applied.
func FromDefinition(def ServerDefinition) ResolvedServer {
	return ResolvedServer{
		ID:                   def.ID,
		Extensions:           def.Extensions,
		Command:              def.Command,
		Strategy:             def.Strategy,
		InstallPackage:       def.InstallPackage,
		InstallRepo:          def.InstallRepo,
		InstallVersion:       def.InstallVersion,
		AssetName:            def.AssetName,
		ExtraPaths:           def.ExtraPaths,
		Setup:                def.Setup,
		ReadySignal:          def.ReadySignal,
		RequiredCapabilities: def.RequiredCapabilities,
		IgnoredDirs:          def.IgnoredDirs,
		Initialization:       def.DefaultInit,
	}
}

// ResolveServers returns only LSP servers explicitly configured by the
// user. If a configured server matches a built-in, its defaults and
// hooks are merged. Disabled servers are excluded from the result.
func ResolveServers(cfg *config.Config) map[string]ResolvedServer {
	result := make(map[string]ResolvedServer)
	builtins := builtinByID()

	for name, lspCfg := range cfg.LSP {
		if lspCfg.Disabled {
			continue
		}

		var server ResolvedServer
		if def, ok := builtins[name]; ok {
			server = FromDefinition(def)
		} else {
			server = ResolvedServer{
				ID:       name,
				Strategy: StrategyNone,
			}
		}

		if lspCfg.Command != "" {
			server.Command = append([]string{lspCfg.Command}, lspCfg.Args...)
		}
		if len(lspCfg.Extensions) > 0 {
			server.Extensions = lspCfg.Extensions
		}
		if len(lspCfg.Env) > 0 {
			server.Env = lspCfg.Env
		}
		if len(lspCfg.Initialization) > 0 {
			if server.Initialization == nil {
				server.Initialization = lspCfg.Initialization
			} else {
				merged := make(map[string]any, len(server.Initialization)+len(lspCfg.Initialization))
				for k, v := range server.Initialization {
					merged[k] = v
				}
				for k, v := range lspCfg.Initialization {
					merged[k] = v
				}
				server.Initialization = merged
			}
		}

		result[name] = server
	}

	return result
}

func init() {
	for _, def := range BuiltinServers {
		config.RegisterKnownServer(def.ID)
	}
}
