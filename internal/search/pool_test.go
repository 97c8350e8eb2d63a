package search

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lightningralf/ontology-engine/internal/types"
)

func writeSearchFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(filepath.Join(dir, name)), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestPoolSearchFindsMatchingLine(t *testing.T) {
	dir := t.TempDir()
	writeSearchFile(t, dir, "a.go", "package a\n\nfunc GetUser() {}\n")
	writeSearchFile(t, dir, "b.go", "package b\n\nfunc unrelated() {}\n")

	p := NewPool(dir, 2, nil)
	hits, err := p.Search(context.Background(), types.SearchOptions{
		Pattern:    `\bGetUser\b`,
		MaxResults: 10,
		TimeoutMs:  2000,
		UseRegex:   true,
	})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "GetUser", hits[0].Match)
	assert.Equal(t, 3, hits[0].Line)
}

func TestPoolSearchExcludesDefaultDirs(t *testing.T) {
	dir := t.TempDir()
	writeSearchFile(t, dir, "keep.go", "func Target() {}\n")
	writeSearchFile(t, dir, "node_modules/dep.go", "func Target() {}\n")

	p := NewPool(dir, 2, nil)
	hits, err := p.Search(context.Background(), types.SearchOptions{
		Pattern:    `Target`,
		MaxResults: 10,
		TimeoutMs:  2000,
		UseRegex:   true,
	})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, filepath.Join(dir, "keep.go"), hits[0].File)
}

func TestPoolSearchRejectsInvalidOptions(t *testing.T) {
	p := NewPool(t.TempDir(), 1, nil)
	_, err := p.Search(context.Background(), types.SearchOptions{Pattern: "x"})
	assert.Error(t, err)
}

func TestPoolSearchNoMatchesReturnsEmptyNotError(t *testing.T) {
	dir := t.TempDir()
	writeSearchFile(t, dir, "only.go", "package only\n")

	p := NewPool(dir, 1, nil)
	hits, err := p.Search(context.Background(), types.SearchOptions{
		Pattern:    `NeverThere`,
		MaxResults: 10,
		TimeoutMs:  2000,
		UseRegex:   true,
	})
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestPoolSearchRespectsMaxResults(t *testing.T) {
	dir := t.TempDir()
	writeSearchFile(t, dir, "many.go", "match\nmatch\nmatch\nmatch\n")

	p := NewPool(dir, 1, nil)
	hits, err := p.Search(context.Background(), types.SearchOptions{
		Pattern:    `match`,
		MaxResults: 2,
		TimeoutMs:  2000,
		UseRegex:   true,
	})
	require.NoError(t, err)
	assert.LessOrEqual(t, len(hits), 2)
}

func TestPoolListFilesHonorsMaxDepth(t *testing.T) {
	dir := t.TempDir()
	writeSearchFile(t, dir, "top.go", "x")
	writeSearchFile(t, dir, "nested/shallow.go", "x")
	writeSearchFile(t, dir, "nested/sub/deep.go", "x")

	p := NewPool(dir, 1, nil)
	files, err := p.ListFiles(context.Background(), ListFilesOptions{MaxDepth: 1})
	require.NoError(t, err)
	assert.Contains(t, files, filepath.Join(dir, "top.go"))
	assert.Contains(t, files, filepath.Join(dir, "nested", "shallow.go"))
	for _, f := range files {
		assert.NotContains(t, f, "sub")
	}
}

func TestPoolListFilesHonorsMaxFiles(t *testing.T) {
	dir := t.TempDir()
	writeSearchFile(t, dir, "a.go", "x")
	writeSearchFile(t, dir, "b.go", "x")
	writeSearchFile(t, dir, "c.go", "x")

	p := NewPool(dir, 1, nil)
	files, err := p.ListFiles(context.Background(), ListFilesOptions{MaxFiles: 2})
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestPoolListFilesHonorsIncludesAndExcludes(t *testing.T) {
	dir := t.TempDir()
	writeSearchFile(t, dir, "keep.go", "x")
	writeSearchFile(t, dir, "skip.txt", "x")

	p := NewPool(dir, 1, nil)
	files, err := p.ListFiles(context.Background(), ListFilesOptions{Includes: []string{"*.go"}})
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, filepath.Join(dir, "keep.go"), files[0])
}

func TestPoolSearchFiltersByFileType(t *testing.T) {
	dir := t.TempDir()
	writeSearchFile(t, dir, "match.go", "token\n")
	writeSearchFile(t, dir, "match.txt", "token\n")

	p := NewPool(dir, 1, nil)
	hits, err := p.Search(context.Background(), types.SearchOptions{
		Pattern:    `token`,
		MaxResults: 10,
		TimeoutMs:  2000,
		UseRegex:   true,
		FileType:   "go",
	})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, filepath.Join(dir, "match.go"), hits[0].File)
}
