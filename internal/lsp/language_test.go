package lsp

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lspdock/lspdock/internal/lsp/protocol"
)

func TestDetectLanguageID(t *testing.T) {
	tests := []struct {
		path string
		want protocol.LanguageKind
	}{
		{"src/main.luau", protocol.LangLuau},
		{"init.lua", protocol.LangLua},
		{"main.go", protocol.LangGo},
		{"component.TSX", protocol.LangTypeScriptReact},
		{"script.sh", protocol.LangShellScript},
		{"infra/main.tf", protocol.LangTerraform},
		{"Makefile", protocol.LanguageKind("")},
		{"noextension", protocol.LanguageKind("")},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, DetectLanguageID(tt.path), tt.path)
	}
}
