package ast

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/lightningralf/ontology-engine/internal/cache"
	"github.com/lightningralf/ontology-engine/internal/debug"
	"github.com/lightningralf/ontology-engine/internal/security"
	"github.com/lightningralf/ontology-engine/internal/types"
)

// parsed is what the Layer caches per (language, file content) pair.
type parsed struct {
	nodes []Node
	rels  []Relationship
}

// compiled holds a language's grammar and compiled query. Parsers are
// not safe for concurrent use, so parseContent creates a fresh
// tree_sitter.Parser for every parse rather than sharing one across
// goroutines.
type compiled struct {
	language *tree_sitter.Language
	query    *tree_sitter.Query
	captures []string
}

// Layer parses a bounded candidate file set under a wall-clock budget
// and yields validated nodes.
type Layer struct {
	mu         sync.Mutex
	compiled   map[string]*compiled // by language name
	validator  *security.FileValidator
	parseCache *cache.ParseCache
}

// NewLayer builds an empty Layer; languages are compiled lazily on
// first use so a process that never touches, say, Zig files never
// pays for its query compilation. maxFileSize enforces layer2.maxFileSize
// (0 disables the size check, keeping the binary-content guard). A
// content-hash-keyed parse cache avoids re-running tree-sitter when the
// same file is escalated into more than once within a process's
// lifetime (e.g. findDefinition and findReferences against the same
// identifier in quick succession).
func NewLayer(maxFileSize int64) *Layer {
	return &Layer{
		compiled:   make(map[string]*compiled),
		validator:  security.NewFileValidator(maxFileSize),
		parseCache: cache.NewParseCache(cache.DefaultMaxParseEntries, cache.DefaultParseTTL, cache.DefaultCleanupInterval),
	}
}

func (l *Layer) languageFor(ext string) (*compiled, bool) {
	name := LanguageFor(ext)
	if name == "" {
		return nil, false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if c, ok := l.compiled[name]; ok {
		return c, true
	}
	def, ok := registry[ext]
	if !ok {
		return nil, false
	}
	lang := def.language()
	query, err := tree_sitter.NewQuery(lang, def.query)
	if err != nil || query == nil {
		debug.Printf("[ast] query compile failed for %s: %v", name, err)
		return nil, false
	}
	c := &compiled{language: lang, query: query, captures: query.CaptureNames()}
	l.compiled[name] = c
	return c, true
}

// Process parses every file in files under the given budget and
// returns every captured node plus import relationships. Per-file
// parse panics (tree-sitter's CGO layer is not immune to malformed
// input) are recovered so one bad file doesn't abort the whole batch.
func (l *Layer) Process(ctx context.Context, files []string, budget time.Duration) ProcessResult {
	ctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	var result ProcessResult
	for _, path := range files {
		select {
		case <-ctx.Done():
			return result
		default:
		}
		nodes, rels := l.parseFile(path)
		result.Nodes = append(result.Nodes, nodes...)
		result.Relationships = append(result.Relationships, rels...)
	}
	return result
}

func (l *Layer) parseFile(path string) (nodes []Node, rels []Relationship) {
	ext := filepath.Ext(path)
	c, ok := l.languageFor(ext)
	if !ok {
		return nil, nil
	}

	if l.validator.ShouldSkip(path) {
		debug.Printf("[ast] skipping %s: over size limit or binary content", path)
		return nil, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, nil
	}

	language := LanguageFor(ext)
	if cached := l.parseCache.Get(language, content); cached != nil {
		p := cached.(parsed)
		return p.nodes, p.rels
	}

	nodes, rels, ok = l.parseContent(path, c, content)
	if ok {
		l.parseCache.Put(language, content, parsed{nodes: nodes, rels: rels})
	}
	return nodes, rels
}

// parseContent runs tree-sitter over content and reports ok=false if a
// parse panic was recovered, so the caller skips populating the parse
// cache with a result from a bad input.
func (l *Layer) parseContent(path string, c *compiled, content []byte) (nodes []Node, rels []Relationship, ok bool) {
	ok = true
	defer func() {
		if r := recover(); r != nil {
			debug.Printf("[ast] panic parsing %s: %v", path, r)
			nodes, rels, ok = nil, nil, false
		}
	}()

	parser := tree_sitter.NewParser()
	defer parser.Close()
	if err := parser.SetLanguage(c.language); err != nil {
		return nil, nil, true
	}

	// tree-sitter's C layer mutates the input buffer during parsing;
	// copy so the caller's buffer (potentially shared/cached) stays
	// immutable.
	buf := make([]byte, len(content))
	copy(buf, content)

	tree := parser.Parse(buf, nil)
	if tree == nil {
		return nil, nil, true
	}
	defer tree.Close()

	qc := tree_sitter.NewQueryCursor()
	defer qc.Close()

	matches := qc.Matches(c.query, tree.RootNode(), buf)
	uri := types.NewFileUri(path)

	for {
		match := matches.Next()
		if match == nil {
			break
		}

		names := make(map[string]string, 4)
		for _, cap := range match.Captures {
			captureName := c.captures[cap.Index]
			if strings.Contains(captureName, ".name") {
				names[captureName] = string(buf[cap.Node.StartByte():cap.Node.EndByte()])
			}
		}

		for _, cap := range match.Captures {
			captureName := c.captures[cap.Index]
			nodeType := NodeType(captureName)
			switch nodeType {
			case NodeFunctionDeclaration, NodeMethodDefinition, NodeArrowFunction,
				NodeClassDeclaration, NodeInterfaceDeclaration, NodeVariableDeclaration,
				NodeCallExpression:
				n := nodeFrom(uri, cap.Node, buf, nodeType, names)
				nodes = append(nodes, n)
			case NodeImport:
				loc := fmt.Sprintf("%s:%d", path, int(cap.Node.StartPosition().Row)+1)
				target := string(buf[cap.Node.StartByte():cap.Node.EndByte()])
				rels = append(rels, Relationship{Kind: "imports", Location: loc, Target: strings.Trim(target, `"'`)})
			case NodeExport:
				n := nodeFrom(uri, cap.Node, buf, NodeExport, names)
				nodes = append(nodes, n)
			}
		}
	}

	return nodes, rels, true
}

func nodeFrom(uri types.FileUri, tsNode tree_sitter.Node, content []byte, nodeType NodeType, names map[string]string) Node {
	start := tsNode.StartPosition()
	end := tsNode.EndPosition()

	name := ""
	switch nodeType {
	case NodeFunctionDeclaration, NodeArrowFunction:
		name = names["function.name"]
	case NodeMethodDefinition:
		name = names["method.name"]
	case NodeClassDeclaration:
		name = names["class.name"]
	case NodeInterfaceDeclaration:
		name = names["interface.name"]
	case NodeVariableDeclaration:
		name = names["variable.name"]
	case NodeCallExpression:
		name = names["call.name"]
	}

	return Node{
		ID:   fmt.Sprintf("%s:%d:%d", uri.Path(), int(start.Row)+1, int(start.Column)+1),
		Type: nodeType,
		URI:  uri,
		Range: types.Range{
			Start: types.Position{Line: int(start.Row), Character: int(start.Column)},
			End:   types.Position{Line: int(end.Row), Character: int(end.Column)},
		},
		Text: string(content[tsNode.StartByte():tsNode.EndByte()]),
		Name: name,
	}
}
