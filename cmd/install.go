package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lspdock/lspdock/internal/config"
	"github.com/lspdock/lspdock/internal/lsp/install"
)

var installCmd = &cobra.Command{
	Use:   "install <server>",
	Short: "Pre-install a language server binary",
	Long: `Install resolves a server from the built-in registry or the user
configuration, downloading and extracting its binary if it is not
already present. Useful for provisioning machines ahead of time.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(cmd); err != nil {
			return err
		}
		name := args[0]

		server, ok := lookupServer(name)
		if !ok {
			return fmt.Errorf("unknown server %q, known servers: %s", name, strings.Join(knownServerNames(), ", "))
		}

		path, _, err := install.ResolveCommand(context.Background(), server, false)
		if err != nil {
			return err
		}

		fmt.Println(path)
		return nil
	},
}

// lookupServer prefers the user's resolved configuration, falling back
// to the raw registry so servers need not be configured to install.
func lookupServer(name string) (install.ResolvedServer, bool) {
	if servers := install.ResolveServers(config.Get()); servers != nil {
		if server, ok := servers[name]; ok {
			return server, true
		}
	}
	for _, def := range install.BuiltinServers {
		if def.ID == name {
			return install.FromDefinition(def), true
		}
	}
	return install.ResolvedServer{}, false
}

func knownServerNames() []string {
	names := make([]string, 0, len(install.BuiltinServers))
	for _, def := range install.BuiltinServers {
		names = append(names, def.ID)
	}
	return names
}

func init() {
	rootCmd.AddCommand(installCmd)
}
