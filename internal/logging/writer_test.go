package logging

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriter_ParsesLogfmtRecords(t *testing.T) {
	before := len(List())

	w := NewWriter()
	line := `time=2026-08-30T10:00:00Z level=INFO msg="Starting LSP client" server=luau-lsp` + "\n"
	n, err := w.Write([]byte(line))
	require.NoError(t, err)
	assert.Equal(t, len(line), n)

	msgs := List()
	require.Len(t, msgs, before+1)

	got := msgs[len(msgs)-1]
	assert.Equal(t, "INFO", got.Level)
	assert.Equal(t, "Starting LSP client", got.Message)
	assert.Equal(t, 2026, got.Time.Year())
	assert.False(t, got.Persist)
	require.Len(t, got.Attributes, 1)
	assert.Equal(t, "server", got.Attributes[0].Key)
	assert.Equal(t, "luau-lsp", got.Attributes[0].Value)
	assert.NotEmpty(t, got.ID)
}

func TestWriter_PersistFlag(t *testing.T) {
	w := NewWriter()
	_, err := w.Write([]byte(`level=WARN msg="binary missing" $_persist=true` + "\n"))
	require.NoError(t, err)

	msgs := List()
	got := msgs[len(msgs)-1]
	assert.True(t, got.Persist)
	assert.Empty(t, got.Attributes, "persist marker is not an attribute")
}

func TestSubscribe_ReceivesNewMessages(t *testing.T) {
	done := make(chan struct{})
	defer close(done)
	ch := Subscribe(done)

	w := NewWriter()
	_, err := w.Write([]byte(`level=INFO msg=hello` + "\n"))
	require.NoError(t, err)

	select {
	case got := <-ch:
		assert.Equal(t, "hello", got.Message)
	case <-time.After(time.Second):
		t.Fatal("no message received")
	}
}

func TestWriteLSPMessage(t *testing.T) {
	dir := t.TempDir()
	MessageDir = dir
	t.Cleanup(func() { MessageDir = "" })

	WriteLSPMessage("luau-lsp", "out", []byte(`{"jsonrpc":"2.0","method":"initialized"}`))

	file := filepath.Join(dir, RunID()+"-luau-lsp.log")
	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), "out")
	assert.Contains(t, string(data), `"method":"initialized"`)
}
