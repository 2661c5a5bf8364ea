package lsp

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lspdock/lspdock/internal/lsp/protocol"
)

func TestHasDiagnosticsChanged(t *testing.T) {
	uri := protocol.URIFromPath("/ws/a.luau")
	one := map[protocol.DocumentUri][]protocol.Diagnostic{
		uri: {{Message: "x"}},
	}
	two := map[protocol.DocumentUri][]protocol.Diagnostic{
		uri: {{Message: "x"}, {Message: "y"}},
	}

	assert.False(t, HasDiagnosticsChanged(one, one))
	assert.True(t, HasDiagnosticsChanged(two, one))
	assert.True(t, HasDiagnosticsChanged(one, map[protocol.DocumentUri][]protocol.Diagnostic{}))
}

func TestFormatDiagnostic(t *testing.T) {
	d := protocol.Diagnostic{
		Range:    protocol.Range{Start: protocol.Position{Line: 4, Character: 9}},
		Severity: protocol.SeverityError,
		Source:   "luau",
		Code:     "TypeError",
		Message:  "Type 'string' could not be converted into 'number'",
		Tags:     []protocol.DiagnosticTag{protocol.Deprecated},
	}

	out := formatDiagnostic("/ws/a.luau", d, "luau-lsp")
	assert.True(t, strings.HasPrefix(out, "Error: /ws/a.luau:5:10"), out)
	assert.Contains(t, out, "[luau]")
	assert.Contains(t, out, "[TypeError]")
	assert.Contains(t, out, "(deprecated)")
	assert.Contains(t, out, "could not be converted")
}

func TestFormatDiagnostic_FallsBackToClientSource(t *testing.T) {
	d := protocol.Diagnostic{Severity: protocol.SeverityWarning, Message: "unused local"}
	out := formatDiagnostic("/ws/a.luau", d, "luau-lsp")
	assert.Contains(t, out, "[luau-lsp]")
	assert.True(t, strings.HasPrefix(out, "Warn:"), out)
}

func TestSortBySeverity(t *testing.T) {
	diags := []string{
		"Warn: b.luau:1:1 [x] later",
		"Error: z.luau:9:9 [x] boom",
		"Info: a.luau:2:2 [x] note",
		"Error: a.luau:1:1 [x] first",
	}
	sortBySeverity(diags)

	assert.Equal(t, "Error: a.luau:1:1 [x] first", diags[0])
	assert.Equal(t, "Error: z.luau:9:9 [x] boom", diags[1])
}

func TestCountSeverity(t *testing.T) {
	diags := []string{
		"Error: a",
		"Error: b",
		"Warn: c",
		"Info: d",
	}
	assert.Equal(t, 2, CountSeverity(diags, "Error"))
	assert.Equal(t, 1, CountSeverity(diags, "Warn"))
	assert.Equal(t, 0, CountSeverity(diags, "Hint"))
}
