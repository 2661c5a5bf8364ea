package lsp

import (
	"context"
	"encoding/json"

	"github.com/lspdock/lspdock/internal/lsp/protocol"
)

// Typed wrappers over Call for the language features lspdock consumes.

// normalizeLocations accepts Location, []Location, and LocationLink[]
// shapes; servers disagree on which one they return.
func normalizeLocations(raw json.RawMessage) []protocol.Location {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}

	var many []protocol.Location
	if err := json.Unmarshal(raw, &many); err == nil && len(many) > 0 && many[0].URI != "" {
		return many
	}

	var one protocol.Location
	if err := json.Unmarshal(raw, &one); err == nil && one.URI != "" {
		return []protocol.Location{one}
	}

	var links []struct {
		TargetURI   protocol.DocumentUri `json:"targetUri"`
		TargetRange protocol.Range       `json:"targetRange"`
	}
	if err := json.Unmarshal(raw, &links); err == nil {
		out := make([]protocol.Location, 0, len(links))
		for _, l := range links {
			if l.TargetURI != "" {
				out = append(out, protocol.Location{URI: l.TargetURI, Range: l.TargetRange})
			}
		}
		return out
	}
	return nil
}

func (c *Client) Definition(ctx context.Context, params protocol.DefinitionParams) ([]protocol.Location, error) {
	var raw json.RawMessage
	if err := c.Call(ctx, "textDocument/definition", params, &raw); err != nil {
		return nil, err
	}
	return normalizeLocations(raw), nil
}

func (c *Client) References(ctx context.Context, params protocol.ReferenceParams) ([]protocol.Location, error) {
	var locations []protocol.Location
	if err := c.Call(ctx, "textDocument/references", params, &locations); err != nil {
		return nil, err
	}
	return locations, nil
}

func (c *Client) Hover(ctx context.Context, params protocol.HoverParams) (*protocol.Hover, error) {
	var hover protocol.Hover
	if err := c.Call(ctx, "textDocument/hover", params, &hover); err != nil {
		return nil, err
	}
	return &hover, nil
}

// DocumentSymbol returns hierarchical symbols when the server supports
// them, converting flat SymbolInformation results otherwise.
func (c *Client) DocumentSymbol(ctx context.Context, params protocol.DocumentSymbolParams) ([]protocol.DocumentSymbol, error) {
	var raw json.RawMessage
	if err := c.Call(ctx, "textDocument/documentSymbol", params, &raw); err != nil {
		return nil, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var symbols []protocol.DocumentSymbol
	if err := json.Unmarshal(raw, &symbols); err == nil && (len(symbols) == 0 || symbols[0].SelectionRange != (protocol.Range{}) || symbols[0].Name != "") {
		return symbols, nil
	}

	var flat []protocol.SymbolInformation
	if err := json.Unmarshal(raw, &flat); err != nil {
		return nil, err
	}
	out := make([]protocol.DocumentSymbol, 0, len(flat))
	for _, s := range flat {
		out = append(out, protocol.DocumentSymbol{
			Name:           s.Name,
			Kind:           s.Kind,
			Range:          s.Location.Range,
			SelectionRange: s.Location.Range,
		})
	}
	return out, nil
}

func (c *Client) Symbol(ctx context.Context, params protocol.WorkspaceSymbolParams) ([]protocol.SymbolInformation, error) {
	var symbols []protocol.SymbolInformation
	if err := c.Call(ctx, "workspace/symbol", params, &symbols); err != nil {
		return nil, err
	}
	return symbols, nil
}

// Completion tolerates both CompletionList and bare item-array results.
func (c *Client) Completion(ctx context.Context, params protocol.CompletionParams) (*protocol.CompletionList, error) {
	var raw json.RawMessage
	if err := c.Call(ctx, "textDocument/completion", params, &raw); err != nil {
		return nil, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return &protocol.CompletionList{}, nil
	}

	var list protocol.CompletionList
	if err := json.Unmarshal(raw, &list); err == nil {
		return &list, nil
	}

	var items []protocol.CompletionItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, err
	}
	return &protocol.CompletionList{Items: items}, nil
}

func (c *Client) SignatureHelp(ctx context.Context, params protocol.SignatureHelpParams) (*protocol.SignatureHelp, error) {
	var help protocol.SignatureHelp
	if err := c.Call(ctx, "textDocument/signatureHelp", params, &help); err != nil {
		return nil, err
	}
	return &help, nil
}

func (c *Client) Rename(ctx context.Context, params protocol.RenameParams) (*protocol.WorkspaceEdit, error) {
	var edit protocol.WorkspaceEdit
	if err := c.Call(ctx, "textDocument/rename", params, &edit); err != nil {
		return nil, err
	}
	return &edit, nil
}

func (c *Client) PrepareCallHierarchy(ctx context.Context, params protocol.CallHierarchyPrepareParams) ([]protocol.CallHierarchyItem, error) {
	var items []protocol.CallHierarchyItem
	if err := c.Call(ctx, "textDocument/prepareCallHierarchy", params, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *Client) IncomingCalls(ctx context.Context, params protocol.CallHierarchyIncomingCallsParams) ([]protocol.CallHierarchyIncomingCall, error) {
	var calls []protocol.CallHierarchyIncomingCall
	if err := c.Call(ctx, "callHierarchy/incomingCalls", params, &calls); err != nil {
		return nil, err
	}
	return calls, nil
}

func (c *Client) OutgoingCalls(ctx context.Context, params protocol.CallHierarchyOutgoingCallsParams) ([]protocol.CallHierarchyOutgoingCall, error) {
	var calls []protocol.CallHierarchyOutgoingCall
	if err := c.Call(ctx, "callHierarchy/outgoingCalls", params, &calls); err != nil {
		return nil, err
	}
	return calls, nil
}
