package install

// BuiltinServers is the registry of built-in LSP server definitions.
var BuiltinServers = []ServerDefinition{
	// Luau
	{
		ID:                   "luau-lsp",
		Extensions:           []string{".luau", ".lua"},
		Command:              []string{"luau-lsp", "lsp"},
		Strategy:             StrategyGitHubRelease,
		InstallRepo:          "JohnnyMorganz/luau-lsp",
		InstallVersion:       luauLSPVersion,
		AssetName:            luauAssetName,
		ExtraPaths:           luauExtraPaths,
		Setup:                luauSetup,
		ReadySignal:          luauReadiness,
		RequiredCapabilities: luauRequiredCapabilities,
		IgnoredDirs:          luauIgnoredDirs,
	},

	// Go
	{
		ID:             "gopls",
		Extensions:     []string{".go"},
		Command:        []string{"gopls"},
		Strategy:       StrategyGoInstall,
		InstallPackage: "golang.org/x/tools/gopls@latest",
		DefaultInit: map[string]any{
			"codelenses": map[string]bool{
				"generate":           true,
				"regenerate_cgo":     true,
				"test":               true,
				"tidy":               true,
				"upgrade_dependency": true,
				"vendor":             true,
				"vulncheck":          false,
			},
		},
	},

	// TypeScript / JavaScript
	{
		ID:             "typescript",
		Extensions:     []string{".ts", ".tsx", ".js", ".jsx", ".mjs", ".cjs", ".mts", ".cts"},
		Command:        []string{"typescript-language-server", "--stdio"},
		Strategy:       StrategyNpm,
		InstallPackage: "typescript-language-server typescript",
	},

	// Bash
	{
		ID:             "bash",
		Extensions:     []string{".sh", ".bash", ".zsh", ".ksh"},
		Command:        []string{"bash-language-server", "start"},
		Strategy:       StrategyNpm,
		InstallPackage: "bash-language-server",
	},

	// YAML
	{
		ID:             "yaml",
		Extensions:     []string{".yaml", ".yml"},
		Command:        []string{"yaml-language-server", "--stdio"},
		Strategy:       StrategyNpm,
		InstallPackage: "yaml-language-server",
	},

	// Python
	{
		ID:             "pyright",
		Extensions:     []string{".py"},
		Command:        []string{"pyright-langserver", "--stdio"},
		Strategy:       StrategyNpm,
		InstallPackage: "pyright",
	},

	// Lua
	{
		ID:          "lua-ls",
		Extensions:  []string{".lua"},
		Command:     []string{"lua-language-server"},
		Strategy:    StrategyGitHubRelease,
		InstallRepo: "LuaLS/lua-language-server",
	},

	// Terraform
	{
		ID:          "terraform",
		Extensions:  []string{".tf", ".tfvars"},
		Command:     []string{"terraform-ls", "serve"},
		Strategy:    StrategyGitHubRelease,
		InstallRepo: "hashicorp/terraform-ls",
	},

	// --- Servers that require pre-installation (StrategyNone) ---

	// Rust
	{
		ID:         "rust-analyzer",
		Extensions: []string{".rs"},
		Command:    []string{"rust-analyzer"},
	},

	// C/C++
	{
		ID:         "clangd",
		Extensions: []string{".c", ".cpp", ".cc", ".cxx", ".c++", ".h", ".hpp", ".hh", ".hxx", ".h++"},
		Command:    []string{"clangd"},
	},

	// Zig
	{
		ID:         "zls",
		Extensions: []string{".zig", ".zon"},
		Command:    []string{"zls"},
	},
}
