// Package symbolmap implements the symbol-map builder: fusing
// declarations, references, imports and exports for an identifier
// over a bounded candidate file set.
package symbolmap

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lightningralf/ontology-engine/internal/ast"
	"github.com/lightningralf/ontology-engine/internal/config"
	"github.com/lightningralf/ontology-engine/internal/discovery"
	"github.com/lightningralf/ontology-engine/internal/metrics"
	"github.com/lightningralf/ontology-engine/internal/orchestrator"
	"github.com/lightningralf/ontology-engine/internal/search"
	"github.com/lightningralf/ontology-engine/internal/types"
)

const defaultGlobScan = 200

// Builder owns the query engine (for seeding) and the AST layer (for
// declarations/imports) and produces SymbolMap results.
type Builder struct {
	engine  *orchestrator.Engine
	ast     *ast.Layer
	pool    *search.Pool
	walker  *discovery.Walker
	metrics *metrics.Engine
}

// New builds a Builder from the already-constructed query engine, AST
// layer and search pool. globScan's fallback file discovery uses a
// discovery.Walker built from cfg so it honors gitignore and doublestar
// include/exclude patterns rather than the search pool's simpler
// directory-prune listing.
func New(engine *orchestrator.Engine, astLayer *ast.Layer, pool *search.Pool, cfg *config.Config, m *metrics.Engine) *Builder {
	return &Builder{engine: engine, ast: astLayer, pool: pool, walker: discovery.NewWalker(cfg), metrics: m}
}

// Build runs the symbol-map pipeline's four steps: seed from
// definitions, union in discovered files, extract exported symbols and
// imports, then resolve import relationships.
func (b *Builder) Build(ctx context.Context, req types.SymbolMapRequest) (types.SymbolMap, error) {
	maxFiles := req.MaxFiles
	if maxFiles <= 0 {
		maxFiles = 20
	}

	qreq := types.QueryRequest{
		Identifier: req.Identifier,
		URI:        req.URI,
		Precise:    true,
		MaxResults: maxFiles * 2,
	}

	files, defsByFile := b.seedFromDefinitions(ctx, qreq, maxFiles)

	var refs []types.Reference
	if len(files) < maxFiles/2 && !req.ASTOnly {
		refsResult, err := b.engine.FindReferences(ctx, qreq)
		if err == nil {
			refs = refsResult.Data
			files = unionFiles(files, refs, maxFiles)
		}
	}

	if len(files) == 0 {
		files = b.globScan(ctx, req, maxFiles)
	}

	budget := 500 * time.Millisecond
	result := b.ast.Process(ctx, files, budget)

	declarations := make([]types.SymbolMapEntry, 0, len(defsByFile))
	for _, node := range result.Nodes {
		if !strings.EqualFold(node.Name, req.Identifier) {
			continue
		}
		if !isDeclKind(node.Type) {
			continue
		}
		declarations = append(declarations, types.SymbolMapEntry{
			URI:   node.URI,
			Range: node.Range,
			Kind:  string(node.Type),
			Name:  node.Name,
			Text:  node.Text,
		})
	}

	if len(refs) == 0 && !req.ASTOnly {
		refsResult, err := b.engine.FindReferences(ctx, qreq)
		if err == nil {
			refs = refsResult.Data
		}
	}
	referenceEntries := make([]types.SymbolMapEntry, 0, len(refs))
	for _, r := range refs {
		referenceEntries = append(referenceEntries, types.SymbolMapEntry{
			URI:   r.URI,
			Range: r.Range,
			Kind:  string(r.Kind),
			Name:  r.Name,
		})
	}

	exports, imports := b.resolveExportsImports(result, req.Identifier)

	if b.metrics != nil {
		b.metrics.RecordSymbolMapBuilt()
	}

	return types.SymbolMap{
		Identifier:   req.Identifier,
		Files:        files,
		Declarations: declarations,
		References:   referenceEntries,
		Imports:      imports,
		Exports:      exports,
	}, nil
}

func (b *Builder) seedFromDefinitions(ctx context.Context, qreq types.QueryRequest, maxFiles int) ([]string, map[string]bool) {
	defsResult, err := b.engine.FindDefinition(ctx, qreq)
	byFile := make(map[string]bool)
	if err != nil {
		return nil, byFile
	}
	var files []string
	for _, d := range defsResult.Data {
		path := d.URI.Path()
		if path == "" || byFile[path] {
			continue
		}
		byFile[path] = true
		files = append(files, path)
		if len(files) >= maxFiles {
			break
		}
	}
	return files, byFile
}

func unionFiles(existing []string, refs []types.Reference, maxFiles int) []string {
	seen := make(map[string]bool, len(existing))
	for _, f := range existing {
		seen[f] = true
	}
	out := append([]string{}, existing...)
	for _, r := range refs {
		path := r.URI.Path()
		if path == "" || seen[path] {
			continue
		}
		seen[path] = true
		out = append(out, path)
		if len(out) >= maxFiles {
			break
		}
	}
	return out
}

// globScan is the fallback when no definitions or references seed the
// file set: a small file discovery scan capped to maxFiles, filtered
// by identifier occurrence. Uses the gitignore- and doublestar-aware
// discovery.Walker rather than the search pool's listing, so the
// fallback respects the same exclusion rules as the rest of the
// pipeline.
func (b *Builder) globScan(ctx context.Context, req types.SymbolMapRequest, maxFiles int) []string {
	relPaths, err := b.walker.Discover()
	if err != nil {
		return nil
	}
	if len(relPaths) > defaultGlobScan {
		relPaths = relPaths[:defaultGlobScan]
	}

	var matched []string
	for _, rel := range relPaths {
		select {
		case <-ctx.Done():
			return matched
		default:
		}
		path := filepath.Join(b.walker.Root(), rel)
		if fileContains(path, req.Identifier) {
			matched = append(matched, path)
		}
		if len(matched) >= maxFiles {
			break
		}
	}
	return matched
}

func fileContains(path, identifier string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if strings.Contains(scanner.Text(), identifier) {
			return true
		}
	}
	return false
}

func isDeclKind(t ast.NodeType) bool {
	switch t {
	case ast.NodeFunctionDeclaration, ast.NodeMethodDefinition, ast.NodeArrowFunction,
		ast.NodeClassDeclaration, ast.NodeInterfaceDeclaration, ast.NodeVariableDeclaration:
		return true
	}
	return false
}

// resolveExportsImports builds the symbol map's export/import lists:
// export nodes whose
// name matches the identifier are emitted with their trimmed source
// line; import relationships are resolved by reading the referenced
// line and locating the identifier column.
func (b *Builder) resolveExportsImports(result ast.ProcessResult, identifier string) (exports, imports []types.SymbolMapEntry) {
	for _, node := range result.Nodes {
		if node.Type != ast.NodeExport {
			continue
		}
		if !strings.Contains(strings.ToLower(node.Text), strings.ToLower(identifier)) {
			continue
		}
		exports = append(exports, types.SymbolMapEntry{
			URI:   node.URI,
			Range: node.Range,
			Kind:  "export",
			Name:  identifier,
			Text:  strings.TrimSpace(node.Text),
		})
	}

	for _, rel := range result.Relationships {
		if rel.Kind != "imports" {
			continue
		}
		if !strings.Contains(rel.Target, identifier) {
			continue
		}
		path, line, ok := splitLocation(rel.Location)
		if !ok {
			continue
		}
		text, col, ok := lineAndColumn(path, line, identifier)
		if !ok {
			continue
		}
		imports = append(imports, types.SymbolMapEntry{
			URI:  types.NewFileUri(path),
			Range: types.Range{
				Start: types.Position{Line: line - 1, Character: col},
				End:   types.Position{Line: line - 1, Character: col + len(identifier)},
			},
			Kind: "import",
			Name: identifier,
			Text: text,
		})
	}

	return exports, imports
}

func splitLocation(loc string) (path string, line int, ok bool) {
	idx := strings.LastIndex(loc, ":")
	if idx < 0 {
		return "", 0, false
	}
	path = loc[:idx]
	n := 0
	for _, r := range loc[idx+1:] {
		if r < '0' || r > '9' {
			return "", 0, false
		}
		n = n*10 + int(r-'0')
	}
	return path, n, n > 0
}

func lineAndColumn(path string, line int, identifier string) (text string, col int, ok bool) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, false
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	current := 0
	for scanner.Scan() {
		current++
		if current == line {
			text = strings.TrimSpace(scanner.Text())
			col = strings.Index(scanner.Text(), identifier)
			return text, col, col >= 0
		}
	}
	return "", 0, false
}
