package cmd

import (
	"bufio"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lspdock/lspdock/internal/logging"
)

func TestFormatEvent(t *testing.T) {
	msg := logging.LogMessage{
		Time:    time.Date(2026, 8, 30, 10, 15, 0, 0, time.UTC),
		Level:   "WARN",
		Message: "LSP server readiness timed out, proceeding",
		Attributes: []logging.Attr{
			{Key: "name", Value: "luau-lsp"},
		},
	}

	out := formatEvent(msg)
	assert.Equal(t, "10:15:00 WARN LSP server readiness timed out, proceeding name=luau-lsp", out)
}

func TestFormatEvent_PersistMarker(t *testing.T) {
	msg := logging.LogMessage{Level: "ERROR", Message: "binary missing", Persist: true}
	assert.Equal(t, "! ERROR binary missing", formatEvent(msg))
}

func TestStreamEvents_PrintsPublishedRecords(t *testing.T) {
	pr, pw := io.Pipe()
	done := make(chan struct{})
	t.Cleanup(func() {
		close(done)
		pr.Close()
	})
	go streamEvents(done, pw)

	// Publish through the same writer slog's handler feeds in Load.
	w := logging.NewWriter()
	_, err := w.Write([]byte(`time=2026-08-30T10:00:00Z level=WARN msg="readiness timed out" server=luau-lsp` + "\n"))
	require.NoError(t, err)

	line, err := bufio.NewReader(pr).ReadString('\n')
	require.NoError(t, err)
	assert.Contains(t, line, "WARN")
	assert.Contains(t, line, "readiness timed out")
	assert.Contains(t, line, "server=luau-lsp")
}
