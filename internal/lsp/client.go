package lsp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lspdock/lspdock/internal/config"
	"github.com/lspdock/lspdock/internal/logging"
	"github.com/lspdock/lspdock/internal/lsp/protocol"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// ServerState tracks the lifecycle of the external server process.
type ServerState int32

const (
	StateStarting ServerState = iota
	StateReady
	StateError
)

// readyTimeout bounds how long WaitForServerReady blocks for servers
// that announce readiness via log messages.
const readyTimeout = 5 * time.Second

type (
	NotificationHandler  func(params json.RawMessage)
	ServerRequestHandler func(params json.RawMessage) (any, error)
)

// Client speaks LSP to one external server process over stdio. All
// protocol machinery lives here; per-server quirks are injected through
// the setters before InitializeLSPClient is called.
type Client struct {
	name string
	Cmd  *exec.Cmd

	stdin   io.WriteCloser
	writeMu sync.Mutex
	stdout  *bufio.Reader

	nextID    atomic.Int64
	pendingMu sync.Mutex
	pending   map[int64]chan *Message

	notificationMu       sync.RWMutex
	notificationHandlers map[string]NotificationHandler

	serverRequestMu       sync.RWMutex
	serverRequestHandlers map[string]ServerRequestHandler

	diagnosticsMu sync.RWMutex
	diagnostics   map[protocol.DocumentUri][]protocol.Diagnostic

	openFilesMu sync.RWMutex
	openFiles   map[string]*openFileInfo

	// Adapter-injected behavior.
	extensions           []string
	ignoredDirs          []string
	readySignal          func(string) bool
	requiredCapabilities []string
	initOptions          map[string]any
	watchRegistration    func([]protocol.FileSystemWatcher)

	// Readiness transitions false→true exactly once and never resets.
	ready     chan struct{}
	readyOnce sync.Once

	serverState  atomic.Int32
	capabilities protocol.ServerCapabilities
	workspaceDir string
	closed       atomic.Bool
}

type openFileInfo struct {
	URI     protocol.DocumentUri
	Version int32
}

// NewClient starts the server subprocess with the workspace as its
// working directory and begins reading its stdout.
func NewClient(ctx context.Context, name, command string, env map[string]string, args ...string) (*Client, error) {
	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Dir = config.WorkingDirectory()
	cmd.Env = os.Environ()
	for k, v := range env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", command, err)
	}

	client := newClient(name, stdin, stdout)
	client.Cmd = cmd

	// Surface the server's stderr in our logs.
	go func() {
		defer logging.RecoverPanic("lsp-"+name+"-stderr", nil)
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			logging.Debug("LSP server stderr", "server", name, "line", scanner.Text())
		}
	}()

	go client.messageLoop()
	return client, nil
}

// newClient wires a client over arbitrary pipes; tests use it to talk
// to an in-process fake server. Callers own starting messageLoop when
// not going through NewClient.
func newClient(name string, stdin io.WriteCloser, stdout io.Reader) *Client {
	return &Client{
		name:                  name,
		stdin:                 stdin,
		stdout:                bufio.NewReader(stdout),
		pending:               make(map[int64]chan *Message),
		notificationHandlers:  make(map[string]NotificationHandler),
		serverRequestHandlers: make(map[string]ServerRequestHandler),
		diagnostics:           make(map[protocol.DocumentUri][]protocol.Diagnostic),
		openFiles:             make(map[string]*openFileInfo),
		ready:                 make(chan struct{}),
	}
}

func (c *Client) Name() string { return c.name }

// SetExtensions stores the file extensions this client handles, used
// for routing files to clients.
func (c *Client) SetExtensions(exts []string) { c.extensions = exts }

func (c *Client) GetExtensions() []string { return c.extensions }

// SetIgnoredDirectories stores directory names the workspace watcher
// must not descend into for this server.
func (c *Client) SetIgnoredDirectories(dirs []string) { c.ignoredDirs = dirs }

func (c *Client) IgnoredDirectories() []string { return c.ignoredDirs }

// SetReadySignal installs a matcher over window/logMessage text that
// fires the readiness signal.
func (c *Client) SetReadySignal(match func(string) bool) { c.readySignal = match }

// SetRequiredCapabilities lists capability keys that must be present in
// the initialize response; a missing key aborts startup.
func (c *Client) SetRequiredCapabilities(keys []string) { c.requiredCapabilities = keys }

// SetInitializationOptions merges server-specific options into the
// initialize payload.
func (c *Client) SetInitializationOptions(opts map[string]any) { c.initOptions = opts }

// OnFileWatchRegistration is invoked when the server dynamically
// registers workspace/didChangeWatchedFiles watchers.
func (c *Client) OnFileWatchRegistration(fn func([]protocol.FileSystemWatcher)) {
	c.watchRegistration = fn
}

func (c *Client) SetServerState(s ServerState) { c.serverState.Store(int32(s)) }

func (c *Client) GetServerState() ServerState { return ServerState(c.serverState.Load()) }

// Capabilities returns the decoded server capabilities after a
// successful initialize.
func (c *Client) Capabilities() protocol.ServerCapabilities { return c.capabilities }

// RegisterNotificationHandler installs a handler for a server
// notification method, replacing any previous one.
func (c *Client) RegisterNotificationHandler(method string, handler NotificationHandler) {
	c.notificationMu.Lock()
	defer c.notificationMu.Unlock()
	c.notificationHandlers[method] = handler
}

// RegisterServerRequestHandler installs a handler for a server→client
// request method.
func (c *Client) RegisterServerRequestHandler(method string, handler ServerRequestHandler) {
	c.serverRequestMu.Lock()
	defer c.serverRequestMu.Unlock()
	c.serverRequestHandlers[method] = handler
}

// Call performs a request and decodes the result into result when it is
// non-nil.
func (c *Client) Call(ctx context.Context, method string, params any, result any) error {
	id := c.nextID.Add(1)
	msg := &Message{ID: &id, Method: method}
	if params != nil {
		raw, err := marshalParams(params)
		if err != nil {
			return err
		}
		msg.Params = raw
	}

	ch := make(chan *Message, 1)
	c.pendingMu.Lock()
	c.pending[id] = ch
	c.pendingMu.Unlock()

	if err := c.writeMessage(msg); err != nil {
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
		return err
	}

	select {
	case resp := <-ch:
		if resp.Error != nil {
			return resp.Error
		}
		if result != nil && len(resp.Result) > 0 {
			if err := json.Unmarshal(resp.Result, result); err != nil {
				return fmt.Errorf("failed to decode %s result: %w", method, err)
			}
		}
		return nil
	case <-ctx.Done():
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
		return ctx.Err()
	}
}

// Notify sends a notification; there is no response.
func (c *Client) Notify(ctx context.Context, method string, params any) error {
	msg := &Message{Method: method}
	if params != nil {
		raw, err := marshalParams(params)
		if err != nil {
			return err
		}
		msg.Params = raw
	}
	return c.writeMessage(msg)
}

func marshalParams(params any) (json.RawMessage, error) {
	if raw, ok := params.(json.RawMessage); ok {
		return raw, nil
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal params: %w", err)
	}
	return raw, nil
}

func (c *Client) writeMessage(msg *Message) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	msg.JSONRPC = "2.0"
	if payload, err := json.Marshal(msg); err == nil {
		logging.WriteLSPMessage(c.name, "out", payload)
	}
	return WriteMessage(c.stdin, msg)
}

// InitializeLSPClient performs the initialize/initialized handshake.
// Required capability keys are asserted against the raw response; a
// missing key is fatal.
func (c *Client) InitializeLSPClient(ctx context.Context, workspaceDir string) (*protocol.InitializeResult, error) {
	c.workspaceDir = workspaceDir
	c.registerDefaultHandlers()

	params, err := c.initializeParams(workspaceDir)
	if err != nil {
		return nil, err
	}

	var raw json.RawMessage
	if err := c.Call(ctx, "initialize", params, &raw); err != nil {
		return nil, fmt.Errorf("initialize request failed: %w", err)
	}

	if err := verifyCapabilities(raw, c.requiredCapabilities); err != nil {
		return nil, err
	}

	var result protocol.InitializeResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("failed to decode initialize result: %w", err)
	}
	c.capabilities = result.Capabilities
	if result.ServerInfo != nil {
		logging.Debug("LSP server identified itself", "server", c.name,
			"serverName", result.ServerInfo.Name, "serverVersion", result.ServerInfo.Version)
	}

	if err := c.Notify(ctx, "initialized", protocol.InitializedParams{}); err != nil {
		return nil, fmt.Errorf("initialized notification failed: %w", err)
	}

	return &result, nil
}

// initializeParams builds the fixed capability-advertisement payload,
// layering adapter initialization options on top.
func (c *Client) initializeParams(workspaceDir string) (json.RawMessage, error) {
	rootURI := protocol.URIFromPath(workspaceDir)
	symbolKinds := &protocol.SymbolKindCapabilities{ValueSet: protocol.SymbolKindValueSet()}
	docFormats := []string{"markdown", "plaintext"}

	params := protocol.InitializeParams{
		ProcessID: os.Getpid(),
		Locale:    "en",
		RootPath:  workspaceDir,
		RootURI:   rootURI,
		Capabilities: protocol.ClientCapabilities{
			TextDocument: &protocol.TextDocumentClientCapabilities{
				Synchronization: &protocol.SynchronizationCapabilities{DidSave: true, DynamicRegistration: true},
				Definition:      &protocol.DefinitionCapabilities{DynamicRegistration: true},
				References:      &protocol.ReferencesCapabilities{DynamicRegistration: true},
				DocumentSymbol: &protocol.DocumentSymbolCapabilities{
					DynamicRegistration:               true,
					HierarchicalDocumentSymbolSupport: true,
					SymbolKind:                        symbolKinds,
				},
				Completion: &protocol.CompletionCapabilities{
					DynamicRegistration: true,
					CompletionItem: &protocol.CompletionItemCapabilities{
						SnippetSupport:          true,
						CommitCharactersSupport: true,
						DocumentationFormat:     docFormats,
						DeprecatedSupport:       true,
						PreselectSupport:        true,
					},
				},
				Hover: &protocol.HoverCapabilities{DynamicRegistration: true, ContentFormat: docFormats},
				SignatureHelp: &protocol.SignatureHelpCapabilities{
					DynamicRegistration: true,
					SignatureInformation: &protocol.SignatureInformationCapabilities{
						DocumentationFormat:  docFormats,
						ParameterInformation: &protocol.ParameterInformationCapabilities{LabelOffsetSupport: true},
					},
				},
				Rename:        &protocol.RenameCapabilities{DynamicRegistration: true, PrepareSupport: true},
				CallHierarchy: &protocol.CallHierarchyCapabilities{DynamicRegistration: true},
			},
			Workspace: &protocol.WorkspaceClientCapabilities{
				WorkspaceFolders:       true,
				DidChangeConfiguration: &protocol.DidChangeConfigurationCapabilities{DynamicRegistration: true},
				Configuration:          true,
				DidChangeWatchedFiles:  &protocol.DidChangeWatchedFilesCapabilities{DynamicRegistration: true},
				Symbol:                 &protocol.WorkspaceSymbolCapabilities{DynamicRegistration: true, SymbolKind: symbolKinds},
			},
		},
		InitializationOptions: map[string]any{},
		WorkspaceFolders: []protocol.WorkspaceFolder{
			{URI: rootURI, Name: filepath.Base(workspaceDir)},
		},
	}

	raw, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal initialize params: %w", err)
	}

	for key, value := range c.initOptions {
		raw, err = sjson.SetBytes(raw, "initializationOptions."+key, value)
		if err != nil {
			return nil, fmt.Errorf("failed to set initialization option %q: %w", key, err)
		}
	}
	return raw, nil
}

// verifyCapabilities asserts that every required capability key is
// present in the raw initialize response.
func verifyCapabilities(raw json.RawMessage, required []string) error {
	for _, key := range required {
		if !gjson.GetBytes(raw, "capabilities."+key).Exists() {
			return fmt.Errorf("server is missing required capability %q", key)
		}
	}
	return nil
}

func (c *Client) markReady() {
	c.readyOnce.Do(func() { close(c.ready) })
}

// WaitForServerReady blocks until the server signals readiness, or
// until the bounded timeout elapses. Servers without a ready signal
// are considered ready immediately. A timeout is reported as an error;
// callers treat it as non-fatal and proceed.
func (c *Client) WaitForServerReady(ctx context.Context) error {
	if c.readySignal == nil {
		return nil
	}

	select {
	case <-c.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(readyTimeout):
		// Treat the readiness deadline as reached; later signals
		// must not re-fire the transition.
		c.markReady()
		return fmt.Errorf("timed out waiting for %s readiness", c.name)
	}
}

// OpenFile sends textDocument/didOpen for the file if not already open.
func (c *Client) OpenFile(ctx context.Context, filePath string) error {
	uri := protocol.URIFromPath(filePath)

	c.openFilesMu.Lock()
	if _, open := c.openFiles[filePath]; open {
		c.openFilesMu.Unlock()
		return nil
	}
	c.openFiles[filePath] = &openFileInfo{URI: uri, Version: 1}
	c.openFilesMu.Unlock()

	content, err := os.ReadFile(filePath)
	if err != nil {
		c.openFilesMu.Lock()
		delete(c.openFiles, filePath)
		c.openFilesMu.Unlock()
		return fmt.Errorf("failed to read %s: %w", filePath, err)
	}

	return c.Notify(ctx, "textDocument/didOpen", protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{
			URI:        uri,
			LanguageID: DetectLanguageID(filePath),
			Version:    1,
			Text:       string(content),
		},
	})
}

// NotifyChange sends a full-content textDocument/didChange.
func (c *Client) NotifyChange(ctx context.Context, filePath string) error {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", filePath, err)
	}

	c.openFilesMu.Lock()
	info, open := c.openFiles[filePath]
	if !open {
		c.openFilesMu.Unlock()
		return fmt.Errorf("cannot notify change for unopened file %s", filePath)
	}
	info.Version++
	version := info.Version
	uri := info.URI
	c.openFilesMu.Unlock()

	return c.Notify(ctx, "textDocument/didChange", protocol.DidChangeTextDocumentParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: uri},
			Version:                version,
		},
		ContentChanges: []protocol.TextDocumentContentChangeEvent{{Text: string(content)}},
	})
}

// NotifySave sends textDocument/didSave with the saved content.
func (c *Client) NotifySave(ctx context.Context, filePath string) error {
	c.openFilesMu.RLock()
	info, open := c.openFiles[filePath]
	c.openFilesMu.RUnlock()
	if !open {
		return fmt.Errorf("cannot notify save for unopened file %s", filePath)
	}

	content, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", filePath, err)
	}

	return c.Notify(ctx, "textDocument/didSave", protocol.DidSaveTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: info.URI},
		Text:         string(content),
	})
}

// CloseFile sends textDocument/didClose for an open file.
func (c *Client) CloseFile(ctx context.Context, filePath string) error {
	c.openFilesMu.Lock()
	info, open := c.openFiles[filePath]
	if !open {
		c.openFilesMu.Unlock()
		return nil
	}
	delete(c.openFiles, filePath)
	uri := info.URI
	c.openFilesMu.Unlock()

	return c.Notify(ctx, "textDocument/didClose", protocol.DidCloseTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: uri},
	})
}

func (c *Client) IsFileOpen(filePath string) bool {
	c.openFilesMu.RLock()
	defer c.openFilesMu.RUnlock()
	_, open := c.openFiles[filePath]
	return open
}

// GetDiagnostics returns a snapshot of the diagnostics cache.
func (c *Client) GetDiagnostics() map[protocol.DocumentUri][]protocol.Diagnostic {
	c.diagnosticsMu.RLock()
	defer c.diagnosticsMu.RUnlock()
	out := make(map[protocol.DocumentUri][]protocol.Diagnostic, len(c.diagnostics))
	for uri, diags := range c.diagnostics {
		out[uri] = diags
	}
	return out
}

// Shutdown performs the protocol shutdown/exit sequence.
func (c *Client) Shutdown(ctx context.Context) error {
	if err := c.Call(ctx, "shutdown", nil, nil); err != nil {
		return err
	}
	if err := c.Notify(ctx, "exit", nil); err != nil {
		return err
	}
	return c.Close()
}

// Close tears the process down without the protocol goodbye.
func (c *Client) Close() error {
	c.closed.Store(true)
	if c.stdin != nil {
		c.stdin.Close()
	}
	if c.Cmd != nil && c.Cmd.Process != nil {
		done := make(chan error, 1)
		go func() { done <- c.Cmd.Wait() }()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			c.Cmd.Process.Kill()
			<-done
		}
	}
	return nil
}
