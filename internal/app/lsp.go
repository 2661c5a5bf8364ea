package app

import (
	"context"
	"time"

	"github.com/lspdock/lspdock/internal/config"
	"github.com/lspdock/lspdock/internal/logging"
	"github.com/lspdock/lspdock/internal/lsp"
	"github.com/lspdock/lspdock/internal/lsp/install"
	"github.com/lspdock/lspdock/internal/lsp/watcher"
)

func (app *App) initLSPClients(ctx context.Context) {
	cfg := config.Get()

	// Resolve which servers to start: merge built-in registry with user config
	servers := install.ResolveServers(cfg)

	for name, server := range servers {
		go app.startLSPServer(ctx, name, server)
	}

	logging.Info("LSP clients initialization started in background")
}

// startLSPServer resolves the binary (auto-installing if needed), runs
// the server's setup hook, then creates and starts the LSP client.
func (app *App) startLSPServer(ctx context.Context, name string, server install.ResolvedServer) {
	defer logging.RecoverPanic("LSP-start-"+name, nil)

	cfg := config.Get()

	command, args, err := install.ResolveCommand(ctx, server, cfg.DisableDownload)
	if err != nil {
		logging.Debug("LSP server not available, skipping", "name", name, "reason", err)
		return
	}

	if server.Setup != nil {
		extraArgs, err := server.Setup(ctx, install.InstallDir(server.ID))
		if err != nil {
			logging.Error("LSP server setup failed", "name", name, "error", err)
			return
		}
		args = append(args, extraArgs...)
	}

	app.createAndStartLSPClient(ctx, name, server, command, args...)
}

// createAndStartLSPClient creates a new LSP client, initializes it, and starts its workspace watcher.
func (app *App) createAndStartLSPClient(ctx context.Context, name string, server install.ResolvedServer, command string, args ...string) {
	logging.Info("Creating LSP client", "name", name, "command", command, "args", args)

	lspClient, err := lsp.NewClient(ctx, name, command, server.Env, args...)
	if err != nil {
		logging.Error("Failed to create LSP client", "name", name, "error", err)
		return
	}

	// Adapter wiring: routing extensions, handshake assertions, and
	// the warm-up signal all come from the resolved definition.
	lspClient.SetExtensions(server.Extensions)
	lspClient.SetIgnoredDirectories(server.IgnoredDirs)
	lspClient.SetRequiredCapabilities(server.RequiredCapabilities)
	lspClient.SetInitializationOptions(server.Initialization)
	if server.ReadySignal != nil {
		lspClient.SetReadySignal(server.ReadySignal)
	}

	initCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err = lspClient.InitializeLSPClient(initCtx, config.WorkingDirectory())
	if err != nil {
		logging.Error("Initialize failed", "name", name, "error", err)
		lspClient.Close()
		return
	}

	if err := lspClient.WaitForServerReady(initCtx); err != nil {
		// Readiness is advisory; the protocol handshake already
		// succeeded, so proceed with the session anyway.
		logging.Warn("LSP server readiness timed out, proceeding", "name", name, "error", err)
	}
	lspClient.SetServerState(lsp.StateReady)

	logging.Info("LSP client initialized", "name", name)

	watchCtx, cancelFunc := context.WithCancel(ctx)
	workspaceWatcher := watcher.NewWorkspaceWatcher(lspClient)

	app.cancelFuncsMutex.Lock()
	app.watcherCancelFuncs = append(app.watcherCancelFuncs, cancelFunc)
	app.cancelFuncsMutex.Unlock()

	app.watcherWG.Add(1)

	app.clientsMutex.Lock()
	app.LSPClients[name] = lspClient
	app.clientsMutex.Unlock()

	go app.runWorkspaceWatcher(watchCtx, name, workspaceWatcher)
}

// runWorkspaceWatcher executes the workspace watcher for an LSP client.
func (app *App) runWorkspaceWatcher(ctx context.Context, name string, workspaceWatcher *watcher.WorkspaceWatcher) {
	defer app.watcherWG.Done()
	defer logging.RecoverPanic("LSP-"+name, func() {
		app.restartLSPClient(ctx, name)
	})

	workspaceWatcher.WatchWorkspace(ctx, config.WorkingDirectory())
	logging.Info("Workspace watcher stopped", "client", name)
}

// restartLSPClient attempts to restart a crashed or failed LSP client.
func (app *App) restartLSPClient(ctx context.Context, name string) {
	cfg := config.Get()
	servers := install.ResolveServers(cfg)
	server, exists := servers[name]
	if !exists {
		logging.Error("Cannot restart client, configuration not found", "client", name)
		return
	}

	app.clientsMutex.Lock()
	oldClient, exists := app.LSPClients[name]
	if exists {
		delete(app.LSPClients, name)
	}
	app.clientsMutex.Unlock()

	if exists && oldClient != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = oldClient.Shutdown(shutdownCtx)
		cancel()
	}

	app.startLSPServer(ctx, name, server)
	logging.Info("Successfully restarted LSP client", "client", name)
}
