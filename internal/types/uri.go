package types

import (
	"net/url"
	"path/filepath"
	"strings"
)

// GlobalWorkspaceURI is the sentinel FileUri for requests that do not
// resolve to a concrete file (empty or unrecognized paths).
const GlobalWorkspaceURI = "workspace://global"

// FileUri is a canonical "file://<absolute-path>" string, or the
// GlobalWorkspaceURI sentinel. Conversions to/from FileUri are total:
// no input panics them.
type FileUri string

// NewFileUri converts an absolute or relative filesystem path into a
// FileUri. Empty input maps to GlobalWorkspaceURI.
func NewFileUri(path string) FileUri {
	if strings.TrimSpace(path) == "" {
		return GlobalWorkspaceURI
	}
	if strings.HasPrefix(path, "file://") {
		return FileUri(path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	abs = filepath.ToSlash(abs)
	if !strings.HasPrefix(abs, "/") {
		abs = "/" + abs
	}
	return FileUri("file://" + abs)
}

// Path extracts the filesystem path from a FileUri. Returns "" for the
// global sentinel or malformed input.
func (u FileUri) Path() string {
	s := string(u)
	if s == "" || s == GlobalWorkspaceURI {
		return ""
	}
	if parsed, err := url.Parse(s); err == nil && parsed.Scheme == "file" {
		return filepath.FromSlash(parsed.Path)
	}
	return strings.TrimPrefix(s, "file://")
}

// IsGlobal reports whether this URI is the global/unknown sentinel.
func (u FileUri) IsGlobal() bool {
	return u == "" || u == GlobalWorkspaceURI
}

// Normalize returns GlobalWorkspaceURI for empty/unknown input and the
// canonical FileUri otherwise. Used when building cache keys so that
// "", "workspace://global" and an unset URI all hash identically.
func Normalize(uri string) FileUri {
	if strings.TrimSpace(uri) == "" {
		return GlobalWorkspaceURI
	}
	if uri == GlobalWorkspaceURI {
		return GlobalWorkspaceURI
	}
	return NewFileUri(uri)
}
