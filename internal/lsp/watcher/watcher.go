package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/lspdock/lspdock/internal/logging"
	"github.com/lspdock/lspdock/internal/lsp"
	"github.com/lspdock/lspdock/internal/lsp/protocol"
)

// sharedIgnoredDirs are excluded from watching for every server;
// per-server lists extend this set.
var sharedIgnoredDirs = map[string]bool{
	".git":         true,
	".hg":          true,
	".svn":         true,
	".idea":        true,
	".vscode":      true,
	"node_modules": true,
	"vendor":       true,
	"target":       true,
	"__pycache__":  true,
	".cache":       true,
}

const debounceInterval = 300 * time.Millisecond

// WorkspaceWatcher feeds filesystem changes to a language server. It
// forwards workspace/didChangeWatchedFiles for paths matching the
// server's registered glob patterns and refreshes open documents.
type WorkspaceWatcher struct {
	client       *lsp.Client
	workspaceDir string

	registrationMu sync.RWMutex
	registrations  []protocol.FileSystemWatcher

	debounceMu sync.Mutex
	debounced  map[string]*time.Timer
}

func NewWorkspaceWatcher(client *lsp.Client) *WorkspaceWatcher {
	w := &WorkspaceWatcher{
		client:    client,
		debounced: make(map[string]*time.Timer),
	}
	client.OnFileWatchRegistration(w.addRegistrations)
	return w
}

func (w *WorkspaceWatcher) addRegistrations(watchers []protocol.FileSystemWatcher) {
	w.registrationMu.Lock()
	w.registrations = append(w.registrations, watchers...)
	w.registrationMu.Unlock()
	logging.Debug("Registered file watchers", "server", w.client.Name(), "count", len(watchers))
}

// WatchWorkspace blocks until ctx is done, watching workspaceDir and
// its subdirectories. New directories are picked up as they appear.
func (w *WorkspaceWatcher) WatchWorkspace(ctx context.Context, workspaceDir string) {
	w.workspaceDir = workspaceDir

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		logging.Error("Failed to create filesystem watcher", "server", w.client.Name(), "error", err)
		return
	}
	defer fw.Close()

	err = filepath.WalkDir(workspaceDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != workspaceDir && w.isIgnoredDir(d.Name()) {
			return filepath.SkipDir
		}
		if err := fw.Add(path); err != nil {
			logging.Debug("Failed to watch directory", "server", w.client.Name(), "path", path, "error", err)
		}
		return nil
	})
	if err != nil {
		logging.Error("Failed to walk workspace", "server", w.client.Name(), "error", err)
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fw.Events:
			if !ok {
				return
			}
			w.handleEvent(ctx, fw, event)
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			logging.Debug("Filesystem watcher error", "server", w.client.Name(), "error", err)
		}
	}
}

func (w *WorkspaceWatcher) handleEvent(ctx context.Context, fw *fsnotify.Watcher, event fsnotify.Event) {
	path := event.Name

	if event.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if !w.isIgnoredDir(filepath.Base(path)) {
				if err := fw.Add(path); err != nil {
					logging.Debug("Failed to watch new directory", "server", w.client.Name(), "path", path, "error", err)
				}
			}
			return
		}
	}

	if w.isIgnoredPath(path) {
		return
	}

	var changeType protocol.FileChangeType
	switch {
	case event.Op.Has(fsnotify.Create):
		changeType = protocol.FileCreated
	case event.Op.Has(fsnotify.Write):
		changeType = protocol.FileChanged
	case event.Op.Has(fsnotify.Remove), event.Op.Has(fsnotify.Rename):
		changeType = protocol.FileDeleted
	default:
		return
	}

	w.debounce(path, func() {
		w.notify(ctx, path, changeType)
	})
}

// debounce collapses bursts of events for the same path into one
// notification.
func (w *WorkspaceWatcher) debounce(path string, fn func()) {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	if timer, ok := w.debounced[path]; ok {
		timer.Stop()
	}
	w.debounced[path] = time.AfterFunc(debounceInterval, func() {
		w.debounceMu.Lock()
		delete(w.debounced, path)
		w.debounceMu.Unlock()
		fn()
	})
}

func (w *WorkspaceWatcher) notify(ctx context.Context, path string, changeType protocol.FileChangeType) {
	if w.matchesRegistration(path) {
		params := protocol.DidChangeWatchedFilesParams{
			Changes: []protocol.FileEvent{{
				URI:  protocol.URIFromPath(path),
				Type: changeType,
			}},
		}
		if err := w.client.Notify(ctx, "workspace/didChangeWatchedFiles", params); err != nil {
			logging.Debug("Failed to notify watched file change", "server", w.client.Name(), "path", path, "error", err)
		}
	}

	// Re-sync documents the client holds open so cached diagnostics
	// track on-disk edits.
	if changeType == protocol.FileChanged && w.client.IsFileOpen(path) {
		if err := w.client.NotifyChange(ctx, path); err != nil {
			logging.Debug("Failed to sync open file", "server", w.client.Name(), "path", path, "error", err)
		}
	}
}

// matchesRegistration reports whether any server-registered glob
// matches the path. With no registrations the server never asked for
// file events.
func (w *WorkspaceWatcher) matchesRegistration(path string) bool {
	w.registrationMu.RLock()
	defer w.registrationMu.RUnlock()

	rel, err := filepath.Rel(w.workspaceDir, path)
	if err != nil {
		rel = path
	}
	rel = filepath.ToSlash(rel)

	for _, reg := range w.registrations {
		pattern, ok := globPattern(reg.GlobPattern)
		if !ok {
			continue
		}
		if matched, err := doublestar.Match(pattern, rel); err == nil && matched {
			return true
		}
		if matched, err := doublestar.Match(pattern, filepath.ToSlash(path)); err == nil && matched {
			return true
		}
	}
	return false
}

// globPattern extracts the pattern string from a registration. The
// protocol allows either a bare string or a relative-pattern object.
func globPattern(raw any) (string, bool) {
	switch v := raw.(type) {
	case string:
		return v, true
	case map[string]any:
		if p, ok := v["pattern"].(string); ok {
			return p, true
		}
	}
	return "", false
}

func (w *WorkspaceWatcher) isIgnoredDir(name string) bool {
	if sharedIgnoredDirs[name] {
		return true
	}
	for _, dir := range w.client.IgnoredDirectories() {
		if name == dir {
			return true
		}
	}
	return false
}

// isIgnoredPath checks every path segment under the workspace root
// against the ignore sets.
func (w *WorkspaceWatcher) isIgnoredPath(path string) bool {
	rel, err := filepath.Rel(w.workspaceDir, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return false
	}
	for _, segment := range strings.Split(filepath.ToSlash(rel), "/") {
		if w.isIgnoredDir(segment) {
			return true
		}
	}
	return false
}
