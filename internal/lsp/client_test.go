package lsp

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lspdock/lspdock/internal/lsp/protocol"
)

// pipeClient wires a client to an in-process fake server and returns
// the server's side of both pipes.
func pipeClient(t *testing.T) (*Client, *bufio.Reader, io.WriteCloser) {
	t.Helper()

	clientRead, serverWrite := io.Pipe()
	serverRead, clientWrite := io.Pipe()

	c := newClient("test", clientWrite, clientRead)
	go c.messageLoop()
	t.Cleanup(func() {
		clientWrite.Close()
		serverWrite.Close()
	})

	return c, bufio.NewReader(serverRead), serverWrite
}

// serveInitialize answers the initialize request with the given result
// payload and swallows everything else.
func serveInitialize(t *testing.T, in *bufio.Reader, out io.Writer, result string) {
	t.Helper()
	for {
		msg, _, err := ReadMessage(in)
		if err != nil {
			return
		}
		if msg.Method == "initialize" && msg.ID != nil {
			reply := &Message{ID: msg.ID, Result: json.RawMessage(result)}
			if err := WriteMessage(out, reply); err != nil {
				return
			}
		}
	}
}

func TestVerifyCapabilities(t *testing.T) {
	raw := json.RawMessage(`{"capabilities":{"textDocumentSync":1,"definitionProvider":true}}`)

	assert.NoError(t, verifyCapabilities(raw, nil))
	assert.NoError(t, verifyCapabilities(raw, []string{"textDocumentSync", "definitionProvider"}))

	err := verifyCapabilities(raw, []string{"textDocumentSync", "referencesProvider"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "referencesProvider")
}

func TestInitialize_Success(t *testing.T) {
	c, serverIn, serverOut := pipeClient(t)
	c.SetRequiredCapabilities([]string{"textDocumentSync", "definitionProvider"})

	go serveInitialize(t, serverIn, serverOut,
		`{"capabilities":{"textDocumentSync":1,"definitionProvider":true},"serverInfo":{"name":"fake","version":"0.1"}}`)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	result, err := c.InitializeLSPClient(ctx, t.TempDir())
	require.NoError(t, err)
	assert.NotNil(t, result.Capabilities.TextDocumentSync)
	assert.Equal(t, "fake", result.ServerInfo.Name)
}

func TestInitialize_MissingRequiredCapabilityAborts(t *testing.T) {
	c, serverIn, serverOut := pipeClient(t)
	c.SetRequiredCapabilities([]string{"textDocumentSync", "referencesProvider"})

	go serveInitialize(t, serverIn, serverOut, `{"capabilities":{"textDocumentSync":1}}`)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := c.InitializeLSPClient(ctx, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "referencesProvider")
}

func TestInitializeParams_MergesInitOptions(t *testing.T) {
	c := newClient("test", nil, strings.NewReader(""))
	c.SetInitializationOptions(map[string]any{"fflags": map[string]any{"LuauSolver2": true}})

	raw, err := c.initializeParams("/workspace")
	require.NoError(t, err)

	var params map[string]any
	require.NoError(t, json.Unmarshal(raw, &params))

	opts, ok := params["initializationOptions"].(map[string]any)
	require.True(t, ok)
	fflags, ok := opts["fflags"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, fflags["LuauSolver2"])

	assert.Equal(t, "en", params["locale"])
	assert.Contains(t, params["rootUri"], "file://")
}

func TestWaitForServerReady_NoSignalIsImmediate(t *testing.T) {
	c := newClient("test", nil, strings.NewReader(""))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	assert.NoError(t, c.WaitForServerReady(ctx))
}

func TestWaitForServerReady_SignalFires(t *testing.T) {
	c := newClient("test", nil, strings.NewReader(""))
	c.SetReadySignal(func(msg string) bool { return msg == "workspace ready" })

	params, _ := json.Marshal(protocol.LogMessageParams{Type: protocol.MessageInfo, Message: "Workspace Ready"})
	c.handleLogMessage(params)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, c.WaitForServerReady(ctx))

	// The transition never resets; repeated signals are no-ops.
	c.handleLogMessage(params)
	assert.NoError(t, c.WaitForServerReady(ctx))
}

func TestWaitForServerReady_IrrelevantLogDoesNotFire(t *testing.T) {
	c := newClient("test", nil, strings.NewReader(""))
	c.SetReadySignal(func(msg string) bool { return msg == "workspace ready" })

	params, _ := json.Marshal(protocol.LogMessageParams{Type: protocol.MessageLog, Message: "indexing files"})
	c.handleLogMessage(params)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.Error(t, c.WaitForServerReady(ctx))
}

func TestHandleWorkspaceConfiguration_EchoesEmptyItems(t *testing.T) {
	c := newClient("test", nil, strings.NewReader(""))

	params, _ := json.Marshal(protocol.ConfigurationParams{
		Items: []protocol.ConfigurationItem{{Section: "luau-lsp"}, {Section: "other"}},
	})
	result, err := c.handleWorkspaceConfiguration(params)
	require.NoError(t, err)

	items, ok := result.([]any)
	require.True(t, ok)
	assert.Len(t, items, 2)
}

func TestHandleRegisterCapability_ForwardsWatchers(t *testing.T) {
	c := newClient("test", nil, strings.NewReader(""))

	var got []protocol.FileSystemWatcher
	c.OnFileWatchRegistration(func(watchers []protocol.FileSystemWatcher) {
		got = watchers
	})

	params := json.RawMessage(`{
		"registrations": [{
			"id": "watch-1",
			"method": "workspace/didChangeWatchedFiles",
			"registerOptions": {"watchers": [{"globPattern": "**/*.luau"}]}
		}]
	}`)
	_, err := c.handleRegisterCapability(params)
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, "**/*.luau", got[0].GlobPattern)
}

func TestHandleDiagnostics_ReplacesAndClears(t *testing.T) {
	c := newClient("test", nil, strings.NewReader(""))
	uri := protocol.URIFromPath("/workspace/main.luau")

	params, _ := json.Marshal(protocol.PublishDiagnosticsParams{
		URI: uri,
		Diagnostics: []protocol.Diagnostic{
			{Severity: protocol.SeverityError, Message: "unknown global"},
		},
	})
	c.handleDiagnostics(params)
	assert.Len(t, c.GetDiagnostics()[uri], 1)

	empty, _ := json.Marshal(protocol.PublishDiagnosticsParams{URI: uri})
	c.handleDiagnostics(empty)
	assert.Empty(t, c.GetDiagnostics())
}
