package lsp

import (
	"encoding/json"
	"strings"

	"github.com/lspdock/lspdock/internal/logging"
	"github.com/lspdock/lspdock/internal/lsp/protocol"
)

// registerDefaultHandlers installs the fixed handler set every server
// gets before the initialize handshake. Adapters may replace individual
// entries afterwards.
func (c *Client) registerDefaultHandlers() {
	c.RegisterServerRequestHandler("client/registerCapability", c.handleRegisterCapability)
	c.RegisterServerRequestHandler("workspace/configuration", c.handleWorkspaceConfiguration)
	c.RegisterServerRequestHandler("workspace/workspaceFolders", c.handleWorkspaceFolders)
	c.RegisterServerRequestHandler("window/workDoneProgress/create", handleAcknowledge)
	c.RegisterNotificationHandler("window/logMessage", c.handleLogMessage)
	c.RegisterNotificationHandler("window/showMessage", c.handleShowMessage)
	c.RegisterNotificationHandler("$/progress", handleIgnore)
	c.RegisterNotificationHandler("textDocument/publishDiagnostics", c.handleDiagnostics)
}

func (c *Client) handleServerRequest(msg *Message) {
	defer logging.RecoverPanic("lsp-"+c.name+"-request", nil)

	c.serverRequestMu.RLock()
	handler, ok := c.serverRequestHandlers[msg.Method]
	c.serverRequestMu.RUnlock()

	reply := &Message{ID: msg.ID}
	if !ok {
		logging.Debug("Unhandled server request", "server", c.name, "method", msg.Method)
		reply.Error = &ResponseError{Code: -32601, Message: "method not found: " + msg.Method}
	} else if result, err := handler(msg.Params); err != nil {
		reply.Error = &ResponseError{Code: -32603, Message: err.Error()}
	} else if result != nil {
		raw, err := json.Marshal(result)
		if err != nil {
			reply.Error = &ResponseError{Code: -32603, Message: err.Error()}
		} else {
			reply.Result = raw
		}
	} else {
		reply.Result = json.RawMessage("null")
	}

	if err := c.writeMessage(reply); err != nil {
		logging.Debug("Failed to reply to server request", "server", c.name, "method", msg.Method, "error", err)
	}
}

func (c *Client) handleNotification(msg *Message) {
	c.notificationMu.RLock()
	handler, ok := c.notificationHandlers[msg.Method]
	c.notificationMu.RUnlock()

	if !ok {
		logging.Debug("Unhandled notification", "server", c.name, "method", msg.Method)
		return
	}
	handler(msg.Params)
}

// handleRegisterCapability acknowledges dynamic registrations. File
// watcher registrations are forwarded to the workspace watcher.
func (c *Client) handleRegisterCapability(params json.RawMessage) (any, error) {
	var p protocol.RegistrationParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, nil
	}

	for _, reg := range p.Registrations {
		if reg.Method != "workspace/didChangeWatchedFiles" || c.watchRegistration == nil {
			continue
		}
		var opts protocol.DidChangeWatchedFilesRegistrationOptions
		if err := json.Unmarshal(reg.RegisterOptions, &opts); err != nil {
			logging.Debug("Invalid watcher registration", "server", c.name, "error", err)
			continue
		}
		c.watchRegistration(opts.Watchers)
	}
	return nil, nil
}

// handleWorkspaceConfiguration echoes one empty configuration object
// per requested item; servers fall back to their own defaults.
func (c *Client) handleWorkspaceConfiguration(params json.RawMessage) (any, error) {
	var p protocol.ConfigurationParams
	if err := json.Unmarshal(params, &p); err != nil {
		return []any{}, nil
	}
	items := make([]any, len(p.Items))
	for i := range items {
		items[i] = map[string]any{}
	}
	return items, nil
}

func (c *Client) handleWorkspaceFolders(params json.RawMessage) (any, error) {
	root := protocol.URIFromPath(c.workspaceDir)
	return []protocol.WorkspaceFolder{{URI: root, Name: c.name + "-workspace"}}, nil
}

func handleAcknowledge(params json.RawMessage) (any, error) {
	return nil, nil
}

func handleIgnore(params json.RawMessage) {}

// handleLogMessage records server log output and drives the readiness
// signal for adapters that announce warm-up completion via log text.
func (c *Client) handleLogMessage(params json.RawMessage) {
	var p protocol.LogMessageParams
	if err := json.Unmarshal(params, &p); err != nil {
		return
	}

	switch p.Type {
	case protocol.MessageError:
		logging.Warn("LSP server log", "server", c.name, "message", p.Message)
	default:
		logging.Debug("LSP server log", "server", c.name, "message", p.Message)
	}

	if c.readySignal != nil && c.readySignal(strings.ToLower(p.Message)) {
		logging.Debug("LSP server signaled readiness", "server", c.name)
		c.markReady()
	}
}

func (c *Client) handleShowMessage(params json.RawMessage) {
	var p protocol.LogMessageParams
	if err := json.Unmarshal(params, &p); err != nil {
		return
	}
	logging.Info("LSP server message", "server", c.name, "message", p.Message)
}

// HandleDiagnostics lets a replacement publishDiagnostics handler keep
// the client's diagnostic cache up to date before adding its own
// behavior.
func HandleDiagnostics(c *Client, params json.RawMessage) {
	c.handleDiagnostics(params)
}

// handleDiagnostics stores published diagnostics, replacing the cached
// set for the document.
func (c *Client) handleDiagnostics(params json.RawMessage) {
	var p protocol.PublishDiagnosticsParams
	if err := json.Unmarshal(params, &p); err != nil {
		logging.Debug("Invalid publishDiagnostics payload", "server", c.name, "error", err)
		return
	}

	c.diagnosticsMu.Lock()
	if len(p.Diagnostics) == 0 {
		delete(c.diagnostics, p.URI)
	} else {
		c.diagnostics[p.URI] = p.Diagnostics
	}
	c.diagnosticsMu.Unlock()

	if len(p.Diagnostics) == 0 {
		logging.Debug("Diagnostics cleared", "server", c.name, "path", p.URI.Path())
	} else {
		logging.Info("Diagnostics published", "server", c.name, "path", p.URI.Path(), "count", len(p.Diagnostics))
	}
}
