package protocol

// LanguageKind is the language identifier sent in textDocument/didOpen.
type LanguageKind string

const (
	LangC               LanguageKind = "c"
	LangCPP             LanguageKind = "cpp"
	LangGo              LanguageKind = "go"
	LangJavaScript      LanguageKind = "javascript"
	LangJavaScriptReact LanguageKind = "javascriptreact"
	LangJSON            LanguageKind = "json"
	LangLua             LanguageKind = "lua"
	LangLuau            LanguageKind = "luau"
	LangMarkdown        LanguageKind = "markdown"
	LangPython          LanguageKind = "python"
	LangRust            LanguageKind = "rust"
	LangShellScript     LanguageKind = "shellscript"
	LangTerraform       LanguageKind = "terraform"
	LangTerraformVars   LanguageKind = "terraform-vars"
	LangHCL             LanguageKind = "hcl"
	LangTypeScript      LanguageKind = "typescript"
	LangTypeScriptReact LanguageKind = "typescriptreact"
	LangYAML            LanguageKind = "yaml"
	LangZig             LanguageKind = "zig"
)
