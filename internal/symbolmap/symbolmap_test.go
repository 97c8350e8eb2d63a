package symbolmap

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lightningralf/ontology-engine/internal/ast"
	"github.com/lightningralf/ontology-engine/internal/cache"
	"github.com/lightningralf/ontology-engine/internal/config"
	"github.com/lightningralf/ontology-engine/internal/metrics"
	"github.com/lightningralf/ontology-engine/internal/orchestrator"
	"github.com/lightningralf/ontology-engine/internal/search"
	"github.com/lightningralf/ontology-engine/internal/types"
)

func newTestBuilder(t *testing.T, root string) *Builder {
	t.Helper()
	cfg := config.Default()
	cfg.Project.Root = root
	pool := search.NewPool(root, 4, nil)
	astLayer := ast.NewLayer(cfg.Layer2.MaxFileSize)
	resultCache := cache.NewResultCache(100)
	engine := orchestrator.New(cfg, pool, astLayer, resultCache, metrics.New())
	return New(engine, astLayer, pool, cfg, metrics.New())
}

func writeGoFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestBuildCollectsDeclarationsAndReferences(t *testing.T) {
	root := t.TempDir()
	writeGoFile(t, root, "service.go", `package service

func ProcessOrder(id int) error {
	return nil
}

func caller() {
	ProcessOrder(1)
}
`)
	b := newTestBuilder(t, root)
	result, err := b.Build(context.Background(), types.SymbolMapRequest{Identifier: "ProcessOrder"})
	require.NoError(t, err)

	assert.Equal(t, "ProcessOrder", result.Identifier)
	assert.NotEmpty(t, result.Files)
	assert.NotEmpty(t, result.Declarations)
	assert.Equal(t, "ProcessOrder", result.Declarations[0].Name)
}

func TestBuildASTOnlySkipsReferenceFallback(t *testing.T) {
	root := t.TempDir()
	writeGoFile(t, root, "service.go", `package service

func ProcessOrder(id int) error {
	return nil
}
`)
	b := newTestBuilder(t, root)
	result, err := b.Build(context.Background(), types.SymbolMapRequest{Identifier: "ProcessOrder", ASTOnly: true})
	require.NoError(t, err)
	assert.Empty(t, result.References)
}

func TestBuildFallsBackToGlobScanWithNoDefinitions(t *testing.T) {
	root := t.TempDir()
	// "Ctx" appears with no word boundary on either side, so none of
	// raceL1's three regexes match, and the identifier is too short
	// (<4 chars) to trigger the fuzzy subsequence fallback. Only
	// globScan's plain substring check picks it up.
	writeGoFile(t, root, "notes.txt", "var reqCtxData = 1\n")
	b := newTestBuilder(t, root)
	result, err := b.Build(context.Background(), types.SymbolMapRequest{Identifier: "Ctx"})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Files)
}

func TestSeedFromDefinitionsDedupesByFile(t *testing.T) {
	root := t.TempDir()
	writeGoFile(t, root, "service.go", `package service

func ProcessOrder(id int) error {
	return nil
}
`)
	b := newTestBuilder(t, root)
	qreq := types.QueryRequest{Identifier: "ProcessOrder", MaxResults: 20}
	files, byFile := b.seedFromDefinitions(context.Background(), qreq, 20)
	require.Len(t, files, 1)
	assert.True(t, byFile[files[0]])
}

func TestUnionFilesMergesWithoutDuplicates(t *testing.T) {
	existing := []string{"/repo/a.go"}
	refs := []types.Reference{
		{URI: types.NewFileUri("/repo/a.go")},
		{URI: types.NewFileUri("/repo/b.go")},
	}
	out := unionFiles(existing, refs, 10)
	assert.ElementsMatch(t, []string{"/repo/a.go", "/repo/b.go"}, out)
}

func TestUnionFilesRespectsMaxFiles(t *testing.T) {
	existing := []string{"/repo/a.go"}
	refs := []types.Reference{
		{URI: types.NewFileUri("/repo/b.go")},
		{URI: types.NewFileUri("/repo/c.go")},
	}
	out := unionFiles(existing, refs, 2)
	assert.Len(t, out, 2)
}

func TestFileContainsFindsSubstring(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("line one\nline with UniqueTokenXyz here\n"), 0o644))
	assert.True(t, fileContains(path, "UniqueTokenXyz"))
	assert.False(t, fileContains(path, "NotPresent"))
}

func TestFileContainsReturnsFalseForMissingFile(t *testing.T) {
	assert.False(t, fileContains("/no/such/file.go", "anything"))
}

func TestIsDeclKindRecognizesDeclarations(t *testing.T) {
	assert.True(t, isDeclKind(ast.NodeFunctionDeclaration))
	assert.True(t, isDeclKind(ast.NodeClassDeclaration))
	assert.False(t, isDeclKind(ast.NodeCallExpression))
}

func TestSplitLocationParsesPathAndLine(t *testing.T) {
	path, line, ok := splitLocation("/repo/service.go:42")
	require.True(t, ok)
	assert.Equal(t, "/repo/service.go", path)
	assert.Equal(t, 42, line)
}

func TestSplitLocationRejectsMalformedInput(t *testing.T) {
	_, _, ok := splitLocation("no-colon-here")
	assert.False(t, ok)

	_, _, ok = splitLocation("/repo/service.go:not-a-number")
	assert.False(t, ok)

	_, _, ok = splitLocation("/repo/service.go:0")
	assert.False(t, ok)
}

func TestLineAndColumnLocatesIdentifier(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "service.go")
	require.NoError(t, os.WriteFile(path, []byte("package service\n\nimport \"fmt\"\n"), 0o644))

	text, col, ok := lineAndColumn(path, 3, "fmt")
	require.True(t, ok)
	assert.Equal(t, `import "fmt"`, text)
	assert.Equal(t, 8, col)
}

func TestLineAndColumnMissesBeyondIdentifier(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "service.go")
	require.NoError(t, os.WriteFile(path, []byte("package service\n"), 0o644))

	_, _, ok := lineAndColumn(path, 1, "nonexistent")
	assert.False(t, ok)
}
