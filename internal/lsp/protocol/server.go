package protocol

import "encoding/json"

// Types for server-initiated requests and notifications.

// MessageType used by window/logMessage and window/showMessage.
type MessageType uint32

const (
	MessageError   MessageType = 1
	MessageWarning MessageType = 2
	MessageInfo    MessageType = 3
	MessageLog     MessageType = 4
)

type LogMessageParams struct {
	Type    MessageType `json:"type"`
	Message string      `json:"message"`
}

type ProgressParams struct {
	Token any             `json:"token"`
	Value json.RawMessage `json:"value,omitempty"`
}

type ConfigurationItem struct {
	ScopeURI string `json:"scopeUri,omitempty"`
	Section  string `json:"section,omitempty"`
}

type ConfigurationParams struct {
	Items []ConfigurationItem `json:"items"`
}

type Registration struct {
	ID              string          `json:"id"`
	Method          string          `json:"method"`
	RegisterOptions json.RawMessage `json:"registerOptions,omitempty"`
}

type RegistrationParams struct {
	Registrations []Registration `json:"registrations"`
}

// FileChangeType for workspace/didChangeWatchedFiles.
type FileChangeType uint32

const (
	FileCreated FileChangeType = 1
	FileChanged FileChangeType = 2
	FileDeleted FileChangeType = 3
)

type FileEvent struct {
	URI  DocumentUri    `json:"uri"`
	Type FileChangeType `json:"type"`
}

type DidChangeWatchedFilesParams struct {
	Changes []FileEvent `json:"changes"`
}

// WatchKind flags; the default (nil Kind) watches all three.
type WatchKind uint32

const (
	WatchCreate WatchKind = 1
	WatchChange WatchKind = 2
	WatchDelete WatchKind = 4
)

// FileSystemWatcher's GlobPattern is either a bare pattern string or a
// relative-pattern object; the watcher handles both.
type FileSystemWatcher struct {
	GlobPattern any        `json:"globPattern"`
	Kind        *WatchKind `json:"kind,omitempty"`
}

type DidChangeWatchedFilesRegistrationOptions struct {
	Watchers []FileSystemWatcher `json:"watchers"`
}
