package mcp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/lightningralf/ontology-engine/internal/ast"
	"github.com/lightningralf/ontology-engine/internal/cache"
	"github.com/lightningralf/ontology-engine/internal/config"
	"github.com/lightningralf/ontology-engine/internal/metrics"
	"github.com/lightningralf/ontology-engine/internal/orchestrator"
	"github.com/lightningralf/ontology-engine/internal/rename"
	"github.com/lightningralf/ontology-engine/internal/search"
	"github.com/lightningralf/ontology-engine/internal/symbolmap"
)

// callTool invokes a registered handler directly, bypassing the stdio
// transport, mirroring how the SDK marshals tool arguments.
func callTool(t *testing.T, s *Server, handler func(context.Context, *mcp.CallToolRequest) (*mcp.CallToolResult, error), params map[string]interface{}) string {
	t.Helper()
	raw, err := json.Marshal(params)
	require.NoError(t, err)
	req := &mcp.CallToolRequest{
		Params: &mcp.CallToolParamsRaw{Arguments: raw},
	}
	result, err := handler(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, result.Content, 1)
	text, ok := result.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func newTestServer(t *testing.T, root string) *Server {
	t.Helper()
	cfg := config.Default()
	cfg.Project.Root = root
	pool := search.NewPool(root, 4, nil)
	astLayer := ast.NewLayer(cfg.Layer2.MaxFileSize)
	resultCache := cache.NewResultCache(cfg.Cache.MaxEntries)
	m := metrics.New()
	engine := orchestrator.New(cfg, pool, astLayer, resultCache, m)
	renamer := rename.New(engine, m)
	symbolMaps := symbolmap.New(engine, astLayer, pool, cfg, m)
	return NewServer(engine, renamer, symbolMaps)
}

func writeGoFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestHandleFindDefinitionReturnsJSONResult(t *testing.T) {
	root := t.TempDir()
	writeGoFile(t, root, "service.go", `package service

func ProcessOrder(id int) error {
	return nil
}
`)
	s := newTestServer(t, root)

	out := callTool(t, s, s.handleFindDefinition, map[string]interface{}{
		"identifier": "ProcessOrder",
	})

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	data, ok := decoded["data"].([]interface{})
	require.True(t, ok)
	require.NotEmpty(t, data)
}

func TestHandleFindDefinitionErrorsOnMalformedArguments(t *testing.T) {
	s := newTestServer(t, t.TempDir())
	req := &mcp.CallToolRequest{Params: &mcp.CallToolParamsRaw{Arguments: []byte("not-json")}}

	result, err := s.handleFindDefinition(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandlePrepareRenameRejectsUnknownSymbol(t *testing.T) {
	root := t.TempDir()
	writeGoFile(t, root, "a.go", "package a\n")
	s := newTestServer(t, root)

	req := &mcp.CallToolRequest{Params: &mcp.CallToolParamsRaw{Arguments: mustJSON(t, map[string]interface{}{
		"identifier": "NoSuchSymbol",
	})}}
	result, err := s.handlePrepareRename(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandleRenameProducesWorkspaceEdit(t *testing.T) {
	root := t.TempDir()
	writeGoFile(t, root, "user.go", `package user

func GetUser(id int) string {
	return ""
}

func Caller() string {
	return GetUser(1)
}
`)
	s := newTestServer(t, root)

	out := callTool(t, s, s.handleRename, map[string]interface{}{
		"identifier": "GetUser",
		"newName":    "FetchUser",
	})

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	changes, ok := decoded["changes"].(map[string]interface{})
	require.True(t, ok)
	assert.NotEmpty(t, changes)
}

func TestHandleBuildSymbolMapReturnsDeclarations(t *testing.T) {
	root := t.TempDir()
	writeGoFile(t, root, "widget.go", `package widget

type Widget struct{}

func NewWidget() *Widget {
	return &Widget{}
}
`)
	s := newTestServer(t, root)

	out := callTool(t, s, s.handleBuildSymbolMap, map[string]interface{}{
		"identifier": "Widget",
	})

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Contains(t, decoded, "declarations")
}

func TestHandleExploreCodebaseReturnsBothResultSets(t *testing.T) {
	root := t.TempDir()
	writeGoFile(t, root, "order.go", `package order

func PlaceOrder(id int) error {
	return nil
}

func run() {
	PlaceOrder(1)
}
`)
	s := newTestServer(t, root)

	out := callTool(t, s, s.handleExploreCodebase, map[string]interface{}{
		"identifier": "PlaceOrder",
	})

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Contains(t, decoded, "definitions")
	assert.Contains(t, decoded, "references")
}

func mustJSON(t *testing.T, v interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}
