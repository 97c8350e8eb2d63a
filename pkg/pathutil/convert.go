// Package pathutil converts between absolute and relative paths.
//
// The query pipeline uses FileUri (an absolute file:// form) internally
// for consistency and to avoid ambiguity, but adapter-facing output
// (CLI tables, MCP payloads) should use relative paths for readability.
// This package is the conversion layer between the two.
package pathutil

import (
	"path/filepath"
	"strings"

	"github.com/lightningralf/ontology-engine/internal/types"
)

// ToRelative converts an absolute path to relative based on a root directory.
// Falls back to the original path if conversion fails or path is already relative.
//
// Examples:
//   - ToRelative("/home/user/project/src/main.go", "/home/user/project") → "src/main.go"
//   - ToRelative("/other/location/file.go", "/home/user/project") → "/other/location/file.go" (outside root)
//   - ToRelative("src/main.go", "/home/user/project") → "src/main.go" (already relative)
func ToRelative(absPath, rootDir string) string {
	if absPath == "" || rootDir == "" {
		return absPath
	}
	if !filepath.IsAbs(absPath) {
		return absPath
	}

	absPath = filepath.Clean(absPath)
	rootDir = filepath.Clean(rootDir)

	relPath, err := filepath.Rel(rootDir, absPath)
	if err != nil {
		return absPath
	}
	if strings.HasPrefix(relPath, "..") {
		return absPath
	}
	return relPath
}

// ToRelativeURI renders a FileUri as a root-relative path for display,
// leaving the workspace://global sentinel untouched.
func ToRelativeURI(uri types.FileUri, rootDir string) string {
	if uri.IsGlobal() {
		return string(uri)
	}
	return ToRelative(uri.Path(), rootDir)
}

// ToRelativeDefinitions returns definitions' display paths rendered
// relative to rootDir, for CLI/MCP output boundaries.
func ToRelativeDefinitions(defs []types.Definition, rootDir string) []string {
	out := make([]string, len(defs))
	for i, d := range defs {
		out[i] = ToRelativeURI(d.URI, rootDir)
	}
	return out
}

// ToRelativeReferences returns a copy of references' display paths
// rendered relative to rootDir, for CLI/MCP output boundaries.
func ToRelativeReferences(refs []types.Reference, rootDir string) []string {
	out := make([]string, len(refs))
	for i, r := range refs {
		out[i] = ToRelativeURI(r.URI, rootDir)
	}
	return out
}
