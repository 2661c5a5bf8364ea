package protocol

// Client capability advertisement. The JSON shape of these structs is
// the compatibility surface with external servers; field names follow
// the LSP 3.17 specification.

type SymbolKindCapabilities struct {
	ValueSet []int `json:"valueSet,omitempty"`
}

// SymbolKindValueSet covers every SymbolKind defined by LSP 3.17
// (File=1 through TypeParameter=26).
func SymbolKindValueSet() []int {
	set := make([]int, 26)
	for i := range set {
		set[i] = i + 1
	}
	return set
}

type SynchronizationCapabilities struct {
	DynamicRegistration bool `json:"dynamicRegistration,omitempty"`
	DidSave             bool `json:"didSave,omitempty"`
}

type DefinitionCapabilities struct {
	DynamicRegistration bool `json:"dynamicRegistration,omitempty"`
}

type ReferencesCapabilities struct {
	DynamicRegistration bool `json:"dynamicRegistration,omitempty"`
}

type DocumentSymbolCapabilities struct {
	DynamicRegistration               bool                    `json:"dynamicRegistration,omitempty"`
	HierarchicalDocumentSymbolSupport bool                    `json:"hierarchicalDocumentSymbolSupport,omitempty"`
	SymbolKind                        *SymbolKindCapabilities `json:"symbolKind,omitempty"`
}

type CompletionItemCapabilities struct {
	SnippetSupport          bool     `json:"snippetSupport,omitempty"`
	CommitCharactersSupport bool     `json:"commitCharactersSupport,omitempty"`
	DocumentationFormat     []string `json:"documentationFormat,omitempty"`
	DeprecatedSupport       bool     `json:"deprecatedSupport,omitempty"`
	PreselectSupport        bool     `json:"preselectSupport,omitempty"`
}

type CompletionCapabilities struct {
	DynamicRegistration bool                        `json:"dynamicRegistration,omitempty"`
	CompletionItem      *CompletionItemCapabilities `json:"completionItem,omitempty"`
}

type HoverCapabilities struct {
	DynamicRegistration bool     `json:"dynamicRegistration,omitempty"`
	ContentFormat       []string `json:"contentFormat,omitempty"`
}

type ParameterInformationCapabilities struct {
	LabelOffsetSupport bool `json:"labelOffsetSupport,omitempty"`
}

type SignatureInformationCapabilities struct {
	DocumentationFormat  []string                          `json:"documentationFormat,omitempty"`
	ParameterInformation *ParameterInformationCapabilities `json:"parameterInformation,omitempty"`
}

type SignatureHelpCapabilities struct {
	DynamicRegistration  bool                              `json:"dynamicRegistration,omitempty"`
	SignatureInformation *SignatureInformationCapabilities `json:"signatureInformation,omitempty"`
}

type RenameCapabilities struct {
	DynamicRegistration bool `json:"dynamicRegistration,omitempty"`
	PrepareSupport      bool `json:"prepareSupport,omitempty"`
}

type CallHierarchyCapabilities struct {
	DynamicRegistration bool `json:"dynamicRegistration,omitempty"`
}

type TextDocumentClientCapabilities struct {
	Synchronization *SynchronizationCapabilities `json:"synchronization,omitempty"`
	Definition      *DefinitionCapabilities      `json:"definition,omitempty"`
	References      *ReferencesCapabilities      `json:"references,omitempty"`
	DocumentSymbol  *DocumentSymbolCapabilities  `json:"documentSymbol,omitempty"`
	Completion      *CompletionCapabilities      `json:"completion,omitempty"`
	Hover           *HoverCapabilities           `json:"hover,omitempty"`
	SignatureHelp   *SignatureHelpCapabilities   `json:"signatureHelp,omitempty"`
	Rename          *RenameCapabilities          `json:"rename,omitempty"`
	CallHierarchy   *CallHierarchyCapabilities   `json:"callHierarchy,omitempty"`
}

type DidChangeConfigurationCapabilities struct {
	DynamicRegistration bool `json:"dynamicRegistration,omitempty"`
}

type DidChangeWatchedFilesCapabilities struct {
	DynamicRegistration bool `json:"dynamicRegistration,omitempty"`
}

type WorkspaceSymbolCapabilities struct {
	DynamicRegistration bool                    `json:"dynamicRegistration,omitempty"`
	SymbolKind          *SymbolKindCapabilities `json:"symbolKind,omitempty"`
}

type WorkspaceClientCapabilities struct {
	WorkspaceFolders       bool                                `json:"workspaceFolders,omitempty"`
	DidChangeConfiguration *DidChangeConfigurationCapabilities `json:"didChangeConfiguration,omitempty"`
	Configuration          bool                                `json:"configuration,omitempty"`
	DidChangeWatchedFiles  *DidChangeWatchedFilesCapabilities  `json:"didChangeWatchedFiles,omitempty"`
	Symbol                 *WorkspaceSymbolCapabilities        `json:"symbol,omitempty"`
}

type ClientCapabilities struct {
	TextDocument *TextDocumentClientCapabilities `json:"textDocument,omitempty"`
	Workspace    *WorkspaceClientCapabilities    `json:"workspace,omitempty"`
}

type InitializeParams struct {
	ProcessID             int                `json:"processId"`
	Locale                string             `json:"locale,omitempty"`
	RootPath              string             `json:"rootPath,omitempty"`
	RootURI               DocumentUri        `json:"rootUri"`
	Capabilities          ClientCapabilities `json:"capabilities"`
	InitializationOptions any                `json:"initializationOptions,omitempty"`
	WorkspaceFolders      []WorkspaceFolder  `json:"workspaceFolders,omitempty"`
}

// ServerCapabilities keeps union-typed provider fields loosely typed;
// presence checks happen against the raw JSON instead.
type ServerCapabilities struct {
	TextDocumentSync        any `json:"textDocumentSync,omitempty"`
	DefinitionProvider      any `json:"definitionProvider,omitempty"`
	ReferencesProvider      any `json:"referencesProvider,omitempty"`
	DocumentSymbolProvider  any `json:"documentSymbolProvider,omitempty"`
	WorkspaceSymbolProvider any `json:"workspaceSymbolProvider,omitempty"`
	HoverProvider           any `json:"hoverProvider,omitempty"`
	CompletionProvider      any `json:"completionProvider,omitempty"`
	SignatureHelpProvider   any `json:"signatureHelpProvider,omitempty"`
	RenameProvider          any `json:"renameProvider,omitempty"`
	CallHierarchyProvider   any `json:"callHierarchyProvider,omitempty"`
}

type ServerInfo struct {
	Name    string `json:"name,omitempty"`
	Version string `json:"version,omitempty"`
}

type InitializeResult struct {
	Capabilities ServerCapabilities `json:"capabilities"`
	ServerInfo   *ServerInfo        `json:"serverInfo,omitempty"`
}

// InitializedParams is empty by specification.
type InitializedParams struct{}
