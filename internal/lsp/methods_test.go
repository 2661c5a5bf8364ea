package lsp

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lspdock/lspdock/internal/lsp/protocol"
)

func TestNormalizeLocations(t *testing.T) {
	single := json.RawMessage(`{"uri":"file:///ws/a.luau","range":{"start":{"line":1,"character":2},"end":{"line":1,"character":5}}}`)
	locs := normalizeLocations(single)
	require.Len(t, locs, 1)
	assert.EqualValues(t, 1, locs[0].Range.Start.Line)

	array := json.RawMessage(`[{"uri":"file:///ws/a.luau","range":{"start":{"line":0,"character":0},"end":{"line":0,"character":1}}},{"uri":"file:///ws/b.luau","range":{"start":{"line":3,"character":0},"end":{"line":3,"character":1}}}]`)
	locs = normalizeLocations(array)
	require.Len(t, locs, 2)
	assert.Equal(t, protocol.DocumentUri("file:///ws/b.luau"), locs[1].URI)

	links := json.RawMessage(`[{"targetUri":"file:///ws/c.luau","targetRange":{"start":{"line":7,"character":0},"end":{"line":9,"character":0}}}]`)
	locs = normalizeLocations(links)
	require.Len(t, locs, 1)
	assert.Equal(t, protocol.DocumentUri("file:///ws/c.luau"), locs[0].URI)
	assert.EqualValues(t, 7, locs[0].Range.Start.Line)

	assert.Nil(t, normalizeLocations(json.RawMessage(`null`)))
	assert.Nil(t, normalizeLocations(nil))
}
