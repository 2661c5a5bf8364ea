package protocol

import (
	"net/url"
	"path/filepath"
	"runtime"
	"strings"
)

// DocumentUri is an LSP document URI, normally in the file scheme.
type DocumentUri string

// Path converts a file URI to a filesystem path. Non-file URIs are
// returned unchanged.
func (u DocumentUri) Path() string {
	s := string(u)
	if !strings.HasPrefix(s, "file://") {
		return s
	}

	parsed, err := url.Parse(s)
	if err != nil {
		return strings.TrimPrefix(s, "file://")
	}

	path := parsed.Path
	if unescaped, err := url.PathUnescape(path); err == nil {
		path = unescaped
	}

	// file:///C:/foo carries a leading slash before the drive letter.
	if runtime.GOOS == "windows" && len(path) >= 3 && path[0] == '/' && path[2] == ':' {
		path = path[1:]
	}

	return filepath.FromSlash(path)
}

// URIFromPath converts an absolute filesystem path to a file URI.
func URIFromPath(path string) DocumentUri {
	path = filepath.ToSlash(path)
	if !strings.HasPrefix(path, "/") {
		// Windows drive-letter paths need a separating slash.
		path = "/" + path
	}

	u := url.URL{Scheme: "file", Path: path}
	return DocumentUri(u.String())
}
