// Package config manages application configuration from various sources.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/lspdock/lspdock/internal/logging"
	"github.com/spf13/viper"
	"github.com/tidwall/sjson"
)

// LSPConfig defines the user-facing configuration for a single language
// server. All fields are optional; built-in registry defaults fill the
// gaps for known server IDs.
type LSPConfig struct {
	Disabled       bool              `json:"disabled"`
	Command        string            `json:"command"`
	Args           []string          `json:"args"`
	Extensions     []string          `json:"extensions,omitempty"`
	Env            map[string]string `json:"env,omitempty"`
	Initialization map[string]any    `json:"initialization,omitempty"`
}

// Data defines storage configuration.
type Data struct {
	Directory string `json:"directory,omitempty"`
}

// Config is the main configuration structure for the application.
type Config struct {
	Data            Data                 `json:"data"`
	WorkingDir      string               `json:"wd,omitempty"`
	LSP             map[string]LSPConfig `json:"lsp,omitempty"`
	Debug           bool                 `json:"debug,omitempty"`
	DebugLSP        bool                 `json:"debugLSP,omitempty"`
	DisableDownload bool                 `json:"disableDownload,omitempty"`
}

// Application constants
const (
	defaultDataDirectory = ".lspdock"
	appName              = "lspdock"
)

// Global configuration instance
var cfg *Config

// Reset clears the global configuration, allowing Load to be called again.
// This is intended for use in tests only.
func Reset() {
	cfg = nil
	viper.Reset()
}

// Load initializes the configuration from environment variables and config files.
// If debug is true, debug mode is enabled and log level is set to debug.
// If debugLSP is true, raw LSP traffic is dumped to the message directory.
// It returns an error if configuration loading fails.
func Load(workingDir string, debug, debugLSP bool) (*Config, error) {
	if cfg != nil {
		return cfg, nil
	}

	cfg = &Config{
		WorkingDir: workingDir,
		LSP:        make(map[string]LSPConfig),
	}

	configureViper()
	setDefaults(debug, debugLSP)

	// Read global config
	if err := readConfig(viper.ReadInConfig()); err != nil {
		return cfg, err
	}

	// Load and merge local config
	mergeLocalConfig(workingDir)

	// Apply configuration to the struct
	if err := viper.Unmarshal(cfg); err != nil {
		return cfg, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	defaultLevel := slog.LevelInfo
	if cfg.Debug {
		defaultLevel = slog.LevelDebug
	}

	if cfg.DebugLSP {
		messagesPath := filepath.Join(cfg.Data.Directory, "messages")
		if _, err := os.Stat(messagesPath); os.IsNotExist(err) {
			if err := os.MkdirAll(messagesPath, 0o755); err != nil {
				return cfg, fmt.Errorf("failed to create directory: %w", err)
			}
		}
		logging.MessageDir = messagesPath
	}

	if os.Getenv("LSPDOCK_DEV_DEBUG") == "true" {
		loggingFile := filepath.Join(cfg.Data.Directory, "debug.log")

		// if file does not exist create it
		if _, err := os.Stat(loggingFile); os.IsNotExist(err) {
			if err := os.MkdirAll(cfg.Data.Directory, 0o755); err != nil {
				return cfg, fmt.Errorf("failed to create directory: %w", err)
			}
		}

		sloggingFileWriter, err := os.OpenFile(loggingFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
		if err != nil {
			return cfg, fmt.Errorf("failed to open log file: %w", err)
		}
		logger := slog.New(slog.NewTextHandler(sloggingFileWriter, &slog.HandlerOptions{
			Level: defaultLevel,
		}))
		slog.SetDefault(logger)
	} else {
		logger := slog.New(slog.NewTextHandler(logging.NewWriter(), &slog.HandlerOptions{
			Level: defaultLevel,
		}))
		slog.SetDefault(logger)
	}

	// Validate configuration
	if err := Validate(); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// configureViper sets up viper's configuration paths and environment variables.
func configureViper() {
	viper.SetConfigName(fmt.Sprintf(".%s", appName))
	viper.SetConfigType("json")
	viper.AddConfigPath("$HOME")
	viper.AddConfigPath(fmt.Sprintf("$XDG_CONFIG_HOME/%s", appName))
	viper.AddConfigPath(fmt.Sprintf("$HOME/.config/%s", appName))
	viper.SetEnvPrefix(strings.ToUpper(appName))
	viper.AutomaticEnv()
}

// setDefaults configures default values for configuration options.
func setDefaults(debug, debugLSP bool) {
	viper.SetDefault("data.directory", defaultDataDirectory)

	// Binary download control
	if v := os.Getenv("LSPDOCK_DISABLE_DOWNLOAD"); v == "true" || v == "1" {
		viper.Set("disableDownload", true)
	}

	if debug {
		viper.SetDefault("debug", true)
	} else {
		viper.SetDefault("debug", false)
	}

	if debugLSP {
		viper.Set("debugLSP", true)
	}
}

// readConfig handles the result of reading a configuration file.
func readConfig(err error) error {
	if err == nil {
		return nil
	}

	// It's okay if the config file doesn't exist
	if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		return nil
	}

	return fmt.Errorf("failed to read config: %w", err)
}

// mergeLocalConfig loads and merges configuration from the local directory.
func mergeLocalConfig(workingDir string) {
	local := viper.New()
	local.SetConfigName(fmt.Sprintf(".%s", appName))
	local.SetConfigType("json")
	local.AddConfigPath(workingDir)

	// Merge local config if it exists
	if err := local.ReadInConfig(); err == nil {
		viper.MergeConfigMap(local.AllSettings())
	}
}

// Validate checks if the configuration is valid and applies defaults where needed.
func Validate() error {
	if cfg == nil {
		return fmt.Errorf("config not loaded")
	}

	// An LSP entry with nothing to run and no way to look it up in the
	// registry is unusable; disable it instead of failing startup.
	for name, lspConfig := range cfg.LSP {
		if lspConfig.Command == "" && !lspConfig.Disabled && len(lspConfig.Extensions) == 0 && !isKnownServer(name) {
			logging.Warn("LSP configuration has no command, marking as disabled", "server", name)
			lspConfig.Disabled = true
			cfg.LSP[name] = lspConfig
		}
	}

	return nil
}

// knownServerIDs is populated by the install package's registry at init
// time to avoid an import cycle.
var knownServerIDs = map[string]bool{}

// RegisterKnownServer marks a server ID as resolvable from the built-in
// registry, so a bare `"lsp": {"gopls": {}}` entry validates.
func RegisterKnownServer(id string) {
	knownServerIDs[id] = true
}

func isKnownServer(id string) bool {
	return knownServerIDs[id]
}

// SetServerDisabled flips the disabled flag for one server in the user's
// config file, preserving the rest of the file untouched.
func SetServerDisabled(name string, disabled bool) error {
	if cfg == nil {
		return fmt.Errorf("config not loaded")
	}

	configFile := viper.ConfigFileUsed()
	var configData []byte
	if configFile == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		configFile = filepath.Join(homeDir, fmt.Sprintf(".%s.json", appName))
		logging.Info("config file not found, creating new one", "path", configFile)
		configData = []byte(`{}`)
	} else {
		data, err := os.ReadFile(configFile)
		if err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}
		configData = data
	}

	updated, err := sjson.SetBytes(configData, "lsp."+name+".disabled", disabled)
	if err != nil {
		return fmt.Errorf("failed to update config: %w", err)
	}

	if err := os.WriteFile(configFile, updated, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	entry := cfg.LSP[name]
	entry.Disabled = disabled
	cfg.LSP[name] = entry
	return nil
}

// Get returns the current configuration.
// It's safe to call this function multiple times.
func Get() *Config {
	return cfg
}

// WorkingDirectory returns the current working directory from the configuration.
func WorkingDirectory() string {
	if cfg == nil {
		panic("config not loaded")
	}
	return cfg.WorkingDir
}
