package app

import (
	"context"
	"encoding/json"
	"maps"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/lspdock/lspdock/internal/logging"
	"github.com/lspdock/lspdock/internal/lsp"
	"github.com/lspdock/lspdock/internal/lsp/protocol"
)

const diagnosticsWait = 5 * time.Second

// App owns the set of running language server clients and their
// workspace watchers.
type App struct {
	LSPClients map[string]*lsp.Client

	clientsMutex sync.RWMutex

	watcherCancelFuncs []context.CancelFunc
	cancelFuncsMutex   sync.Mutex
	watcherWG          sync.WaitGroup
}

var _ lsp.Service = (*App)(nil)

func New() *App {
	return &App{
		LSPClients: make(map[string]*lsp.Client),
	}
}

// Init starts every configured language server in the background.
func (app *App) Init(ctx context.Context) {
	go app.initLSPClients(ctx)
}

// Clients returns a snapshot of the running clients.
func (app *App) Clients() map[string]*lsp.Client {
	app.clientsMutex.RLock()
	defer app.clientsMutex.RUnlock()

	clients := make(map[string]*lsp.Client, len(app.LSPClients))
	maps.Copy(clients, app.LSPClients)
	return clients
}

// ClientsForFile returns the clients whose extension lists cover the
// given file.
func (app *App) ClientsForFile(filePath string) []*lsp.Client {
	ext := strings.ToLower(filepath.Ext(filePath))

	app.clientsMutex.RLock()
	defer app.clientsMutex.RUnlock()

	var matched []*lsp.Client
	for _, client := range app.LSPClients {
		for _, e := range client.GetExtensions() {
			if strings.EqualFold(e, ext) {
				matched = append(matched, client)
				break
			}
		}
	}
	return matched
}

// NotifyOpenFile opens the file on every client responsible for it so
// diagnostics start flowing.
func (app *App) NotifyOpenFile(ctx context.Context, filePath string) {
	for _, client := range app.ClientsForFile(filePath) {
		if err := client.OpenFile(ctx, filePath); err != nil {
			logging.Debug("Failed to open file on LSP client", "server", client.Name(), "path", filePath, "error", err)
		}
	}
}

// WaitForDiagnostics blocks until any responsible client publishes
// diagnostics touching filePath, or until a bounded wait elapses.
func (app *App) WaitForDiagnostics(ctx context.Context, filePath string) {
	clients := app.ClientsForFile(filePath)
	if len(clients) == 0 {
		return
	}

	diagChan := make(chan struct{}, 1)

	for _, client := range clients {
		client := client
		originalDiags := make(map[protocol.DocumentUri][]protocol.Diagnostic)
		maps.Copy(originalDiags, client.GetDiagnostics())

		handler := func(params json.RawMessage) {
			lsp.HandleDiagnostics(client, params)
			var diagParams protocol.PublishDiagnosticsParams
			if err := json.Unmarshal(params, &diagParams); err != nil {
				return
			}

			if diagParams.URI.Path() == filePath || lsp.HasDiagnosticsChanged(client.GetDiagnostics(), originalDiags) {
				select {
				case diagChan <- struct{}{}:
				default:
				}
			}
		}

		client.RegisterNotificationHandler("textDocument/publishDiagnostics", handler)

		if client.IsFileOpen(filePath) {
			if err := client.NotifyChange(ctx, filePath); err != nil {
				continue
			}
		} else {
			if err := client.OpenFile(ctx, filePath); err != nil {
				continue
			}
		}
	}

	select {
	case <-diagChan:
	case <-time.After(diagnosticsWait):
	case <-ctx.Done():
	}
}

// FormatDiagnostics renders the cached diagnostics of every client as
// a report centered on filePath.
func (app *App) FormatDiagnostics(filePath string) string {
	return lsp.FormatDiagnostics(filePath, app.Clients())
}

// Shutdown performs a clean shutdown of watchers and clients.
func (app *App) Shutdown(ctx context.Context) {
	app.cancelFuncsMutex.Lock()
	for _, cancel := range app.watcherCancelFuncs {
		cancel()
	}
	app.cancelFuncsMutex.Unlock()
	app.watcherWG.Wait()

	for name, client := range app.Clients() {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := client.Shutdown(shutdownCtx); err != nil {
			logging.Error("Failed to shutdown LSP client", "name", name, "error", err)
		}
		cancel()
	}
}

// ForceShutdown performs an aggressive shutdown without waiting for
// watchers.
func (app *App) ForceShutdown() {
	logging.Info("Starting force shutdown")

	app.cancelFuncsMutex.Lock()
	for _, cancel := range app.watcherCancelFuncs {
		cancel()
	}
	app.cancelFuncsMutex.Unlock()

	for name, client := range app.Clients() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
		if err := client.Shutdown(shutdownCtx); err != nil {
			logging.Debug("Failed to gracefully shutdown LSP client, forcing close", "name", name, "error", err)
			client.Close()
		}
		cancel()
	}

	app.forceKillAllChildProcesses()

	logging.Info("Force shutdown completed")
}

// forceKillAllChildProcesses kills all child processes of the current process.
func (app *App) forceKillAllChildProcesses() {
	currentPID := os.Getpid()

	cmd := exec.Command("pgrep", "-P", strconv.Itoa(currentPID))
	output, err := cmd.Output()
	if err != nil {
		// No child processes found or pgrep failed
		return
	}

	for _, pidStr := range strings.Fields(string(output)) {
		if pid, err := strconv.Atoi(pidStr); err == nil {
			process, err := os.FindProcess(pid)
			if err == nil {
				logging.Debug("Force killing child process", "pid", pid)
				process.Kill()
			}
		}
	}
}
