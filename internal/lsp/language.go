package lsp

import (
	"path/filepath"
	"strings"

	"github.com/lspdock/lspdock/internal/lsp/protocol"
)

var languageByExtension = map[string]protocol.LanguageKind{
	".c":      protocol.LangC,
	".h":      protocol.LangC,
	".cpp":    protocol.LangCPP,
	".cxx":    protocol.LangCPP,
	".cc":     protocol.LangCPP,
	".hpp":    protocol.LangCPP,
	".go":     protocol.LangGo,
	".js":     protocol.LangJavaScript,
	".mjs":    protocol.LangJavaScript,
	".cjs":    protocol.LangJavaScript,
	".jsx":    protocol.LangJavaScriptReact,
	".json":   protocol.LangJSON,
	".lua":    protocol.LangLua,
	".luau":   protocol.LangLuau,
	".md":     protocol.LangMarkdown,
	".py":     protocol.LangPython,
	".rs":     protocol.LangRust,
	".sh":     protocol.LangShellScript,
	".bash":   protocol.LangShellScript,
	".zsh":    protocol.LangShellScript,
	".tf":     protocol.LangTerraform,
	".tfvars": protocol.LangTerraformVars,
	".hcl":    protocol.LangHCL,
	".ts":     protocol.LangTypeScript,
	".mts":    protocol.LangTypeScript,
	".cts":    protocol.LangTypeScript,
	".tsx":    protocol.LangTypeScriptReact,
	".yaml":   protocol.LangYAML,
	".yml":    protocol.LangYAML,
	".zig":    protocol.LangZig,
	".zon":    protocol.LangZig,
}

// DetectLanguageID maps a document URI or path to the language
// identifier expected by textDocument/didOpen. Unknown extensions
// return the empty kind; servers tolerate it.
func DetectLanguageID(uri string) protocol.LanguageKind {
	ext := strings.ToLower(filepath.Ext(uri))
	if kind, ok := languageByExtension[ext]; ok {
		return kind
	}
	return protocol.LanguageKind("")
}
