package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lspdock/lspdock/internal/app"
	"github.com/lspdock/lspdock/internal/config"
	"github.com/lspdock/lspdock/internal/logging"
	"github.com/lspdock/lspdock/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "lspdock",
	Short: "Run and supervise language servers for a workspace",
	Long: `LSPDock launches the language servers configured for a workspace,
downloading missing binaries on demand, and keeps them fed with
filesystem changes. Diagnostics from every running server are cached
and can be queried per file.`,
	Example: `
  # Supervise the configured servers for the current directory
  lspdock

  # Run with debug logging in a specific directory
  lspdock -d -c /path/to/project

  # Check files and print their diagnostics
  lspdock check src/main.luau

  # Pre-install a server binary
  lspdock install luau-lsp

  # Print version
  lspdock -v
  `,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flag("help").Changed {
			cmd.Help()
			return nil
		}
		if cmd.Flag("version").Changed {
			fmt.Println(version.Version)
			return nil
		}

		if err := loadConfig(cmd); err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Everything the supervisor and the servers report goes to the
		// terminal for the life of the process, shutdown included.
		done := make(chan struct{})
		defer close(done)
		go streamEvents(done, os.Stderr)

		application := app.New()
		application.Init(ctx)

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		s := <-sig
		logging.Info("Received signal, shutting down", "signal", s.String())

		application.Shutdown(ctx)
		return nil
	},
}

// streamEvents prints every log record published after the call until
// done is closed.
func streamEvents(done <-chan struct{}, w io.Writer) {
	for msg := range logging.Subscribe(done) {
		fmt.Fprintln(w, formatEvent(msg))
	}
}

// formatEvent renders one log record as a terminal line. Persistent
// records carry a leading marker so they stand out in the scrollback.
func formatEvent(msg logging.LogMessage) string {
	var b strings.Builder
	if msg.Persist {
		b.WriteString("! ")
	}
	if !msg.Time.IsZero() {
		b.WriteString(msg.Time.Format("15:04:05") + " ")
	}
	b.WriteString(msg.Level)
	b.WriteString(" " + msg.Message)
	for _, attr := range msg.Attributes {
		b.WriteString(" " + attr.Key + "=" + attr.Value)
	}
	return b.String()
}

// loadConfig resolves the working directory from flags and loads the
// merged configuration.
func loadConfig(cmd *cobra.Command) error {
	cwd, _ := cmd.Flags().GetString("cwd")
	if cwd != "" {
		if err := os.Chdir(cwd); err != nil {
			return fmt.Errorf("failed to change directory: %v", err)
		}
	} else {
		c, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get current working directory: %v", err)
		}
		cwd = c
	}

	debug, _ := cmd.Flags().GetBool("debug")
	debugLSP, _ := cmd.Flags().GetBool("debug-lsp")

	_, err := config.Load(cwd, debug, debugLSP)
	return err
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolP("help", "h", false, "Help")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Debug")
	rootCmd.PersistentFlags().Bool("debug-lsp", false, "Write raw LSP traffic to the message directory")
	rootCmd.PersistentFlags().StringP("cwd", "c", "", "Current working directory")
	rootCmd.Flags().BoolP("version", "v", false, "Version")
}
