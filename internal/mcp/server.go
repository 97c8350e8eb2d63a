// Package mcp adapts the six core operations (findDefinition,
// findReferences, prepareRename, rename, buildSymbolMap,
// exploreCodebase) onto the Model Context Protocol.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/lightningralf/ontology-engine/internal/orchestrator"
	"github.com/lightningralf/ontology-engine/internal/rename"
	"github.com/lightningralf/ontology-engine/internal/symbolmap"
	"github.com/lightningralf/ontology-engine/internal/types"
	"github.com/lightningralf/ontology-engine/internal/version"
)

// Server wraps an MCP server bound to the query engine and its two
// satellite planners.
type Server struct {
	server     *mcp.Server
	engine     *orchestrator.Engine
	renamer    *rename.Planner
	symbolMaps *symbolmap.Builder
}

// NewServer builds a Server and registers every tool.
func NewServer(engine *orchestrator.Engine, renamer *rename.Planner, symbolMaps *symbolmap.Builder) *Server {
	s := &Server{
		server: mcp.NewServer(&mcp.Implementation{
			Name:    "ontology-mcp-server",
			Version: version.Version,
		}, nil),
		engine:     engine,
		renamer:    renamer,
		symbolMaps: symbolMaps,
	}
	s.registerTools()
	return s
}

// Run serves over stdio until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) registerTools() {
	s.server.AddTool(&mcp.Tool{
		Name:        "find_definition",
		Description: "Find where an identifier is declared, with confidence scores and source layer attribution.",
		InputSchema: queryRequestSchema(),
	}, s.handleFindDefinition)

	s.server.AddTool(&mcp.Tool{
		Name:        "find_references",
		Description: "Find every usage site of an identifier, optionally including its declaration.",
		InputSchema: queryRequestSchema(),
	}, s.handleFindReferences)

	s.server.AddTool(&mcp.Tool{
		Name:        "prepare_rename",
		Description: "Validate that an identifier can be renamed and return its current range.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"uri":        {Type: "string", Description: "file:// URI of the context file"},
				"identifier": {Type: "string", Description: "Symbol to rename"},
			},
			Required: []string{"identifier"},
		},
	}, s.handlePrepareRename)

	s.server.AddTool(&mcp.Tool{
		Name:        "rename",
		Description: "Build a WorkspaceEdit renaming every reference and the declaration of an identifier. Never writes to disk.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"uri":        {Type: "string", Description: "file:// URI of the context file"},
				"identifier": {Type: "string", Description: "Current symbol name"},
				"newName":    {Type: "string", Description: "Replacement symbol name"},
				"dryRun":     {Type: "boolean", Description: "When true, the caller does not intend to apply the edit"},
			},
			Required: []string{"identifier", "newName"},
		},
	}, s.handleRename)

	s.server.AddTool(&mcp.Tool{
		Name:        "build_symbol_map",
		Description: "Fuse declarations, references, imports and exports for an identifier over a bounded candidate file set.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"uri":        {Type: "string", Description: "file:// URI to scope the search"},
				"identifier": {Type: "string", Description: "Symbol to map"},
				"maxFiles":   {Type: "integer", Description: "Maximum candidate files to examine"},
				"astOnly":    {Type: "boolean", Description: "Skip the text-based reference fallback"},
			},
			Required: []string{"identifier"},
		},
	}, s.handleBuildSymbolMap)

	s.server.AddTool(&mcp.Tool{
		Name:        "explore_codebase",
		Description: "Run findDefinition and findReferences concurrently and return both result sets.",
		InputSchema: queryRequestSchema(),
	}, s.handleExploreCodebase)
}

func queryRequestSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"uri":                {Type: "string", Description: "file:// URI to scope the search, or omit for workspace-wide"},
			"identifier":         {Type: "string", Description: "Symbol to look up"},
			"includeDeclaration": {Type: "boolean", Description: "Include the declaration site in findReferences"},
			"maxResults":         {Type: "integer", Description: "Maximum results to return"},
			"precise":            {Type: "boolean", Description: "Force L2 AST validation"},
			"astOnly":            {Type: "boolean", Description: "Return only AST-validated results (find_definition only; find_references and explore_codebase ignore it)"},
		},
		Required: []string{"identifier"},
	}
}

type queryParams struct {
	URI                string `json:"uri"`
	Identifier         string `json:"identifier"`
	IncludeDeclaration bool   `json:"includeDeclaration"`
	MaxResults         int    `json:"maxResults"`
	Precise            bool   `json:"precise"`
	ASTOnly            bool   `json:"astOnly"`
}

func (p queryParams) toQueryRequest() types.QueryRequest {
	return types.QueryRequest{
		Identifier:         p.Identifier,
		URI:                types.Normalize(p.URI),
		IncludeDeclaration: p.IncludeDeclaration,
		MaxResults:         p.MaxResults,
		Precise:            p.Precise,
		ASTOnly:            p.ASTOnly,
	}
}

func (s *Server) handleFindDefinition(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p queryParams
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return errorResult("find_definition", err)
	}
	result, err := s.engine.FindDefinition(ctx, p.toQueryRequest())
	if err != nil {
		return errorResult("find_definition", err)
	}
	return jsonResult(result)
}

func (s *Server) handleFindReferences(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p queryParams
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return errorResult("find_references", err)
	}
	result, err := s.engine.FindReferences(ctx, p.toQueryRequest())
	if err != nil {
		return errorResult("find_references", err)
	}
	return jsonResult(result)
}

func (s *Server) handleExploreCodebase(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p queryParams
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return errorResult("explore_codebase", err)
	}
	qreq := p.toQueryRequest()
	result := s.engine.ExploreCodebase(ctx, types.ExploreRequest{
		Identifier:         qreq.Identifier,
		URI:                qreq.URI,
		IncludeDeclaration: qreq.IncludeDeclaration,
		MaxResults:         qreq.MaxResults,
		Precise:            qreq.Precise,
	})
	return jsonResult(result)
}

type renameParams struct {
	URI        string `json:"uri"`
	Identifier string `json:"identifier"`
	NewName    string `json:"newName"`
	DryRun     bool   `json:"dryRun"`
}

func (s *Server) handlePrepareRename(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p renameParams
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return errorResult("prepare_rename", err)
	}
	result, err := s.renamer.PrepareRename(ctx, types.RenameRequest{
		URI:        types.Normalize(p.URI),
		Identifier: p.Identifier,
	})
	if err != nil {
		return errorResult("prepare_rename", err)
	}
	return jsonResult(result)
}

func (s *Server) handleRename(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p renameParams
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return errorResult("rename", err)
	}
	result, err := s.renamer.Rename(ctx, types.RenameRequest{
		URI:        types.Normalize(p.URI),
		Identifier: p.Identifier,
		NewName:    p.NewName,
		DryRun:     p.DryRun,
	})
	if err != nil {
		return errorResult("rename", err)
	}
	return jsonResult(result)
}

type symbolMapParams struct {
	URI        string `json:"uri"`
	Identifier string `json:"identifier"`
	MaxFiles   int    `json:"maxFiles"`
	ASTOnly    bool   `json:"astOnly"`
}

func (s *Server) handleBuildSymbolMap(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p symbolMapParams
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return errorResult("build_symbol_map", err)
	}
	result, err := s.symbolMaps.Build(ctx, types.SymbolMapRequest{
		Identifier: p.Identifier,
		URI:        types.Normalize(p.URI),
		MaxFiles:   p.MaxFiles,
		ASTOnly:    p.ASTOnly,
	})
	if err != nil {
		return errorResult("build_symbol_map", err)
	}
	return jsonResult(result)
}

func jsonResult(data interface{}) (*mcp.CallToolResult, error) {
	content, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response data: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(content)}},
	}, nil
}

func errorResult(operation string, err error) (*mcp.CallToolResult, error) {
	result, marshalErr := jsonResult(map[string]interface{}{
		"success":   false,
		"error":     err.Error(),
		"operation": operation,
	})
	if marshalErr != nil {
		return nil, marshalErr
	}
	result.IsError = true
	return result, nil
}
