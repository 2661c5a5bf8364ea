package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/lspdock/lspdock/internal/app"
	"github.com/lspdock/lspdock/internal/lsp/protocol"
)

// checkStartupWait bounds how long check waits for servers to come up
// before opening files.
const checkStartupWait = 60 * time.Second

var checkCmd = &cobra.Command{
	Use:   "check [files...]",
	Short: "Print diagnostics for the given files",
	Long: `Check starts the language servers responsible for the given files,
waits for diagnostics, and prints them. The exit code is non-zero when
any error-severity diagnostic is reported.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(cmd); err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		application := app.New()
		application.Init(ctx)
		defer application.ForceShutdown()

		files := make([]string, 0, len(args))
		for _, arg := range args {
			abs, err := filepath.Abs(arg)
			if err != nil {
				return fmt.Errorf("invalid path %q: %v", arg, err)
			}
			files = append(files, abs)
		}

		if err := waitForClients(ctx, application, files); err != nil {
			return err
		}

		for _, file := range files {
			application.WaitForDiagnostics(ctx, file)
		}

		// The report is workspace-wide, centered on the first file.
		if out := application.FormatDiagnostics(files[0]); out != "" {
			fmt.Print(out)
		}

		if n := countErrors(application); n > 0 {
			return fmt.Errorf("%d error diagnostics reported", n)
		}
		return nil
	},
}

// waitForClients polls until at least one client covers each file or
// the startup window closes.
func waitForClients(ctx context.Context, application *app.App, files []string) error {
	deadline := time.Now().Add(checkStartupWait)
	for {
		covered := 0
		for _, file := range files {
			if len(application.ClientsForFile(file)) > 0 {
				covered++
			}
		}
		if covered == len(files) {
			return nil
		}
		if time.Now().After(deadline) {
			if covered == 0 {
				return fmt.Errorf("no language server available for the given files")
			}
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(200 * time.Millisecond):
		}
	}
}

func countErrors(application *app.App) int {
	count := 0
	for _, client := range application.Clients() {
		for _, diags := range client.GetDiagnostics() {
			for _, d := range diags {
				if d.Severity == protocol.SeverityError {
					count++
				}
			}
		}
	}
	return count
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
