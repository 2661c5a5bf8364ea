package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lspdock/lspdock/internal/config"
	"github.com/lspdock/lspdock/internal/lsp/install"
)

var disableCmd = &cobra.Command{
	Use:   "disable <server>",
	Short: "Disable a language server in the user configuration",
	Long: `Disable marks a server as disabled in the user's config file so it
is skipped on the next start. The rest of the file is left untouched.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setDisabled(cmd, args[0], true)
	},
}

var enableCmd = &cobra.Command{
	Use:   "enable <server>",
	Short: "Re-enable a previously disabled language server",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setDisabled(cmd, args[0], false)
	},
}

func setDisabled(cmd *cobra.Command, name string, disabled bool) error {
	if err := loadConfig(cmd); err != nil {
		return err
	}
	if !serverConfigured(name) {
		return fmt.Errorf("unknown server %q, known servers: %s", name, strings.Join(knownServerNames(), ", "))
	}
	return config.SetServerDisabled(name, disabled)
}

// serverConfigured accepts any server the user has an entry for,
// disabled ones included, plus every built-in.
func serverConfigured(name string) bool {
	if cfg := config.Get(); cfg != nil {
		if _, ok := cfg.LSP[name]; ok {
			return true
		}
	}
	for _, def := range install.BuiltinServers {
		if def.ID == name {
			return true
		}
	}
	return false
}

func init() {
	rootCmd.AddCommand(disableCmd)
	rootCmd.AddCommand(enableCmd)
}
