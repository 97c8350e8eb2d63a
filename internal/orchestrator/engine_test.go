package orchestrator

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
	"github.com/lightningralf/ontology-engine/internal/search"
	"github.com/lightningralf/ontology-engine/internal/types"
)

func newTestEngine(t *testing.T, root string) *Engine {
	t.Helper()
	cfg := config.Default()
	cfg.Project.Root = root
	pool := search.NewPool(root, 4, nil)
	astLayer := ast.NewLayer(cfg.Layer2.MaxFileSize)
	resultCache := cache.NewResultCache(100)
	return New(cfg, pool, astLayer, resultCache, metrics.New())
}

func writeGoFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestFindDefinitionFindsFunctionDeclaration(t *testing.T) {
	root := t.TempDir()
	writeGoFile(t, root, "service.go", `package service

func ProcessOrder(id int) error {
	return nil
}

func helper() {
	ProcessOrder(1)
}
`)

	e := newTestEngine(t, root)
	result, err := e.FindDefinition(context.Background(), types.QueryRequest{Identifier: "ProcessOrder"})
	require.NoError(t, err)
	require.NotEmpty(t, result.Data)

	found := false
	for _, d := range result.Data {
		if d.Name == "ProcessOrder" {
			found = true
		}
	}
	assert.True(t, found, "expected to find the ProcessOrder declaration")
	assert.False(t, result.CacheHit)
}

func TestFindDefinitionCacheHitOnSecondCall(t *testing.T) {
	root := t.TempDir()
	writeGoFile(t, root, "cached.go", `package cached

func Lookup(key string) string {
	return key
}
`)

	e := newTestEngine(t, root)
	req := types.QueryRequest{Identifier: "Lookup"}

	first, err := e.FindDefinition(context.Background(), req)
	require.NoError(t, err)
	require.False(t, first.CacheHit)

	second, err := e.FindDefinition(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, second.CacheHit)
	assert.Equal(t, first.Data, second.Data)
}

func TestFindDefinitionRejectsEmptyRequest(t *testing.T) {
	root := t.TempDir()
	e := newTestEngine(t, root)

	_, err := e.FindDefinition(context.Background(), types.QueryRequest{})
	assert.Error(t, err)
}

func TestFindReferencesFindsUsageSite(t *testing.T) {
	root := t.TempDir()
	writeGoFile(t, root, "usage.go", `package usage

func Target() {}

func caller() {
	Target()
	Target()
}
`)

	e := newTestEngine(t, root)
	result, err := e.FindReferences(context.Background(), types.QueryRequest{Identifier: "Target"})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Data)
}

func TestExploreCodebaseRunsBothArms(t *testing.T) {
	root := t.TempDir()
	writeGoFile(t, root, "explore.go", `package explore

func Widget() {}

func use() {
	Widget()
}
`)

	e := newTestEngine(t, root)
	result := e.ExploreCodebase(context.Background(), types.ExploreRequest{Identifier: "Widget"})

	assert.NotEmpty(t, result.Definitions)
	assert.NotEmpty(t, result.References)
	assert.Equal(t, "Widget", result.Symbol)
}

func TestDedupDefinitionsPrefersASTValidated(t *testing.T) {
	defs := []types.Definition{
		{URI: "file:///a.go", Range: types.Range{Start: types.Position{Line: 5}}, Name: "foo", Confidence: 0.5, ASTValidated: false},
		{URI: "file:///a.go", Range: types.Range{Start: types.Position{Line: 5}}, Name: "foo", Confidence: 0.9, ASTValidated: true},
	}
	out := dedupDefinitions(defs)
	require.Len(t, out, 1)
	assert.True(t, out[0].ASTValidated)
}

func TestDedupReferencesRemovesExactDuplicates(t *testing.T) {
	refs := []types.Reference{
		{URI: "file:///a.go", Range: types.Range{Start: types.Position{Line: 1, Character: 2}}},
		{URI: "file:///a.go", Range: types.Range{Start: types.Position{Line: 1, Character: 2}}},
		{URI: "file:///a.go", Range: types.Range{Start: types.Position{Line: 2, Character: 0}}},
	}
	out := dedupReferences(refs)
	assert.Len(t, out, 2)
}

func TestFilterASTValidatedDefsFallsBackToBest(t *testing.T) {
	defs := []types.Definition{
		{Name: "a", Confidence: 0.3},
		{Name: "b", Confidence: 0.7},
	}
	out := filterASTValidatedDefs(defs)
	require.Len(t, out, 1)
	assert.Equal(t, "b", out[0].Name)
}
