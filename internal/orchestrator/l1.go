package orchestrator

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/lightningralf/ontology-engine/internal/ast"
	"github.com/lightningralf/ontology-engine/internal/config"
	"github.com/lightningralf/ontology-engine/internal/search"
	"github.com/lightningralf/ontology-engine/internal/types"
)

// maxIncludeGlobs bounds how many of the configured include globs the
// file-discovery job passes to ListFiles.
const maxIncludeGlobs = 6

// raceL1 runs two concurrent jobs under a single budget: the content
// fast-path (three regex strategies racing each other) and a
// file-discovery pass that lists candidate files via the configured
// include globs and then scans just those for the identifier. The
// first job to produce a non-empty result wins; the field stays open
// for postRaceGrace so the other job can still contribute if it
// finishes shortly after. Falls back to a subsequence regex when
// nothing surfaces and the seed is long enough to make that cheap.
func (e *Engine) raceL1(ctx context.Context, req types.QueryRequest) []types.StreamingResult {
	budget := time.Duration(e.cfg.Performance.L1BudgetMs) * time.Millisecond
	raceCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	contentCh := make(chan []types.StreamingResult, 1)
	discoveryCh := make(chan []types.StreamingResult, 1)
	go func() { contentCh <- e.raceContentStrategies(raceCtx, req) }()
	go func() { discoveryCh <- e.discoverAndScan(raceCtx, req) }()

	var merged []types.StreamingResult
	var graceDeadline <-chan time.Time
	contentDone, discoveryDone := false, false
	for !contentDone || !discoveryDone {
		select {
		case hits := <-contentCh:
			contentDone = true
			if len(hits) == 0 {
				continue
			}
			merged = append(merged, hits...)
			if graceDeadline == nil {
				graceDeadline = time.After(postRaceGrace)
			}
		case hits := <-discoveryCh:
			discoveryDone = true
			if len(hits) == 0 {
				continue
			}
			merged = append(merged, hits...)
			if graceDeadline == nil {
				graceDeadline = time.After(postRaceGrace)
			}
		case <-graceDeadline:
			contentDone, discoveryDone = true, true
		case <-raceCtx.Done():
			contentDone, discoveryDone = true, true
		}
	}

	if len(merged) == 0 && len(req.Identifier) >= 4 {
		if e.metrics != nil {
			e.metrics.RecordL1Fallback()
		}
		merged = e.fuzzyFallback(ctx, req)
	}

	return merged
}

// raceContentStrategies runs three content-search strategies (exact
// word, prefix, suffix) racing concurrently; the first non-empty
// result wins, but the field stays open for postRaceGrace so a
// slightly slower strategy can still contribute its hits.
func (e *Engine) raceContentStrategies(raceCtx context.Context, req types.QueryRequest) []types.StreamingResult {
	id := regexp.QuoteMeta(req.Identifier)
	patterns := []string{
		`\b` + id + `\b`,
		`\b` + id + `\w*`,
		`\w*` + id + `\b`,
	}

	resultsCh := make(chan []types.StreamingResult, len(patterns))
	for _, pattern := range patterns {
		pattern := pattern
		go func() {
			opts := types.SearchOptions{
				Pattern:    pattern,
				Path:       req.URI.Path(),
				MaxResults: maxOr(req.MaxResults, 100),
				TimeoutMs:  e.cfg.Layer1.TimeoutMs,
				UseRegex:   true,
			}
			hits, err := e.pool.Search(raceCtx, opts)
			if err != nil {
				resultsCh <- nil
				return
			}
			resultsCh <- hits
		}()
	}

	var merged []types.StreamingResult
	var graceDeadline <-chan time.Time
	remaining := len(patterns)
	for remaining > 0 {
		select {
		case hits := <-resultsCh:
			remaining--
			if len(hits) == 0 {
				continue
			}
			merged = append(merged, hits...)
			if graceDeadline == nil {
				graceDeadline = time.After(postRaceGrace)
			}
		case <-graceDeadline:
			remaining = 0
		case <-raceCtx.Done():
			remaining = 0
		}
	}

	return merged
}

// discoverAndScan lists candidate files through the configured include
// globs (capped to maxIncludeGlobs) with the layer's extended exclude
// set, then scans only those files for an exact-word match. This is
// the file-discovery arm of the L1 race: when the identifier's
// location is reachable through its include-glob scope, enumerating
// that narrower file set and scanning it can resolve before the
// full-tree content race does.
func (e *Engine) discoverAndScan(raceCtx context.Context, req types.QueryRequest) []types.StreamingResult {
	includes := e.cfg.Include
	if len(includes) > maxIncludeGlobs {
		includes = includes[:maxIncludeGlobs]
	}

	files, err := e.pool.ListFiles(raceCtx, search.ListFilesOptions{
		Path:      req.URI.Path(),
		Includes:  includes,
		Excludes:  e.cfg.Layer1.GrepExcludePatterns,
		MaxFiles:  e.cfg.Layer1.GrepMaxResults,
		TimeoutMs: e.cfg.Layer1.TimeoutMs,
	})
	if err != nil || len(files) == 0 {
		return nil
	}

	id := regexp.QuoteMeta(req.Identifier)
	hits, err := e.pool.SearchInFiles(raceCtx, files, types.SearchOptions{
		Pattern:    `\b` + id + `\b`,
		MaxResults: maxOr(req.MaxResults, 100),
		TimeoutMs:  e.cfg.Layer1.TimeoutMs,
		UseRegex:   true,
	})
	if err != nil {
		return nil
	}
	return hits
}

// fuzzyFallback retries with a subsequence regex under an extended
// timeout and orders the survivors by Jaro-Winkler similarity of the
// matched text to the identifier, closest first.
func (e *Engine) fuzzyFallback(ctx context.Context, req types.QueryRequest) []types.StreamingResult {
	var b strings.Builder
	for i, r := range req.Identifier {
		if i > 0 {
			b.WriteString(".*")
		}
		b.WriteString(regexp.QuoteMeta(string(r)))
	}
	fctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	opts := types.SearchOptions{
		Pattern:    b.String(),
		Path:       req.URI.Path(),
		MaxResults: maxOr(req.MaxResults, 100),
		TimeoutMs:  5000,
		UseRegex:   true,
	}
	hits, err := e.pool.Search(fctx, opts)
	if err != nil {
		return nil
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return search.JaroWinkler(hits[i].Match, req.Identifier) > search.JaroWinkler(hits[j].Match, req.Identifier)
	})
	return hits
}

func maxOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}

// hitsToDefinitions normalizes raw L1 hits into Definitions, applying
// token expansion and L1 scoring.
func (e *Engine) hitsToDefinitions(hits []types.StreamingResult, identifier string) []types.Definition {
	var out []types.Definition
	for _, h := range hits {
		token, col := ExpandToken(h.Text, h.Column, identifier)
		if col < 0 {
			continue
		}
		wordBoundary := strings.EqualFold(token, identifier)
		uri := types.NewFileUri(h.File)
		out = append(out, types.Definition{
			URI:        uri,
			Range:      rangeFor(h.Line-1, col, token),
			Kind:       types.KindVariable,
			Name:       token,
			Source:     sourceFor(h, identifier),
			Confidence: scoreL1(h, identifier, wordBoundary),
			Layer:      types.LayerOne,
		})
	}
	return out
}

// hitsToReferences mirrors hitsToDefinitions for usage sites.
func (e *Engine) hitsToReferences(hits []types.StreamingResult, identifier string) []types.Reference {
	var out []types.Reference
	for _, h := range hits {
		token, col := ExpandToken(h.Text, h.Column, identifier)
		if col < 0 {
			continue
		}
		wordBoundary := strings.EqualFold(token, identifier)
		uri := types.NewFileUri(h.File)
		out = append(out, types.Reference{
			URI:        uri,
			Range:      rangeFor(h.Line-1, col, token),
			Kind:       types.RefUsage,
			Name:       token,
			Source:     sourceFor(h, identifier),
			Confidence: scoreL1(h, identifier, wordBoundary),
			Layer:      types.LayerOne,
		})
	}
	return out
}

func sourceFor(h types.StreamingResult, identifier string) types.Source {
	if strings.EqualFold(h.Match, identifier) {
		return types.SourceExact
	}
	return types.SourceFuzzy
}

func rangeFor(line0, col0 int, token string) types.Range {
	return types.Range{
		Start: types.Position{Line: line0, Character: col0},
		End:   types.Position{Line: line0, Character: col0 + len(token)},
	}
}

// applyL1Heuristics runs prefix narrowing and dominant token collapse
// over a Definition slice. precise forces the collapse even when the
// result set isn't otherwise noisy.
func (e *Engine) applyL1Heuristics(defs []types.Definition, identifier string, precise bool) []types.Definition {
	names := make([]string, len(defs))
	for i, d := range defs {
		names[i] = d.Name
	}
	kept := PrefixNarrow(names, identifier)
	keptSet := make(map[string]bool, len(kept))
	for _, k := range kept {
		keptSet[k] = true
	}
	var filtered []types.Definition
	for _, d := range defs {
		if keptSet[d.Name] {
			filtered = append(filtered, d)
		}
	}
	return DominantTokenCollapse(filtered, func(d types.Definition) string { return d.Name }, precise)
}

// applyL1HeuristicsRefs mirrors applyL1Heuristics for a Reference
// slice, so findReferences narrows and collapses noisy L1 hits the
// same way findDefinition does.
func (e *Engine) applyL1HeuristicsRefs(refs []types.Reference, identifier string, precise bool) []types.Reference {
	names := make([]string, len(refs))
	for i, r := range refs {
		names[i] = r.Name
	}
	kept := PrefixNarrow(names, identifier)
	keptSet := make(map[string]bool, len(kept))
	for _, k := range kept {
		keptSet[k] = true
	}
	var filtered []types.Reference
	for _, r := range refs {
		if keptSet[r.Name] {
			filtered = append(filtered, r)
		}
	}
	return DominantTokenCollapse(filtered, func(r types.Reference) string { return r.Name }, precise)
}

// shouldEscalate decides whether L1 results warrant L2 escalation.
func (e *Engine) shouldEscalate(defs []types.Definition, req types.QueryRequest) bool {
	switch e.cfg.Performance.EscalationPolicy {
	case config.EscalationNever:
		return false
	case config.EscalationAlways:
		return true
	}
	if req.Precise {
		return true
	}
	if len(defs) == 0 {
		return false
	}
	topConfidence := 0.0
	files := make(map[types.FileUri]bool)
	for _, d := range defs {
		if d.Confidence > topConfidence {
			topConfidence = d.Confidence
		}
		files[d.URI] = true
	}
	if topConfidence < e.cfg.Performance.L1ConfidenceThreshold {
		return true
	}
	if len(files) > e.cfg.Performance.L1AmbiguityMaxFiles && len(defs) <= 50 {
		return true
	}
	if e.cfg.Performance.L1RequireFilenameMatch {
		anyMatch := false
		for _, d := range defs {
			if strings.Contains(strings.ToLower(baseName(d.URI.Path())), strings.ToLower(req.Identifier)) {
				anyMatch = true
				break
			}
		}
		if !anyMatch {
			return true
		}
	}
	return false
}

func (e *Engine) isAmbiguous(refs []types.Reference) bool {
	files := make(map[types.FileUri]bool)
	for _, r := range refs {
		files[r.URI] = true
	}
	return len(files) > e.cfg.Performance.L1AmbiguityMaxFiles && len(refs) <= 50
}

// escalateDefinitions selects candidate files, runs the AST layer
// under budget, and merges AST-validated hits into the L1 set.
func (e *Engine) escalateDefinitions(ctx context.Context, defs []types.Definition, req types.QueryRequest) []types.Definition {
	candidates := e.selectCandidateFiles(defs, req.Identifier)
	if len(candidates) == 0 {
		return defs
	}

	budget := time.Duration(e.cfg.Layer2.BudgetMs) * time.Millisecond
	if len(req.Identifier) <= 4 || req.Precise {
		budget = 180 * time.Millisecond
	}

	parseStart := time.Now()
	result := e.ast.Process(ctx, candidates, budget)
	if e.metrics != nil {
		e.metrics.RecordL2Parse(time.Since(parseStart).Seconds())
	}

	names := []string{req.Identifier}
	merged := make([]types.Definition, len(defs))
	copy(merged, defs)

	for _, node := range result.Nodes {
		if !isDeclarationNode(node.Type) {
			continue
		}
		if !ast.ValidateDefinition(node, req.Identifier, names) {
			continue
		}
		exact := ast.ExactCaseMatch(node, req.Identifier)
		merged = append(merged, types.Definition{
			URI:          node.URI,
			Range:        node.Range,
			Kind:         kindFromNodeType(node.Type),
			Name:         node.Name,
			Source:       types.SourcePattern,
			Confidence:   scoreAST(exact, true),
			Layer:        types.LayerTwo,
			ASTValidated: true,
		})
	}

	return merged
}

// escalateReferences mirrors escalateDefinitions for usage sites,
// validating identifier/call nodes.
func (e *Engine) escalateReferences(ctx context.Context, refs []types.Reference, req types.QueryRequest) []types.Reference {
	candidates := e.selectCandidateFilesForRefs(refs, req.Identifier)
	if len(candidates) == 0 {
		return refs
	}

	budget := time.Duration(e.cfg.Layer2.BudgetMs) * time.Millisecond
	parseStart := time.Now()
	result := e.ast.Process(ctx, candidates, budget)
	if e.metrics != nil {
		e.metrics.RecordL2Parse(time.Since(parseStart).Seconds())
	}

	merged := make([]types.Reference, len(refs))
	copy(merged, refs)

	for _, r := range refs {
		for _, node := range result.Nodes {
			if node.URI != r.URI {
				continue
			}
			if !ast.ValidateReference(node, r.Range.Start.Line, r.Range.Start.Character, req.Identifier) {
				continue
			}
			merged = append(merged, types.Reference{
				URI:          node.URI,
				Range:        node.Range,
				Kind:         refKindFromNodeType(node.Type),
				Name:         node.Name,
				Source:       types.SourcePattern,
				Confidence:   scoreReference(true, 0),
				Layer:        types.LayerTwo,
				ASTValidated: true,
			})
			break
		}
	}

	return merged
}

func isDeclarationNode(t ast.NodeType) bool {
	switch t {
	case ast.NodeFunctionDeclaration, ast.NodeMethodDefinition, ast.NodeArrowFunction,
		ast.NodeClassDeclaration, ast.NodeInterfaceDeclaration, ast.NodeVariableDeclaration:
		return true
	}
	return false
}

func kindFromNodeType(t ast.NodeType) types.DefinitionKind {
	switch t {
	case ast.NodeFunctionDeclaration, ast.NodeArrowFunction:
		return types.KindFunction
	case ast.NodeMethodDefinition:
		return types.KindMethod
	case ast.NodeClassDeclaration:
		return types.KindClass
	case ast.NodeInterfaceDeclaration:
		return types.KindInterface
	case ast.NodeVariableDeclaration:
		return types.KindVariable
	default:
		return types.KindVariable
	}
}

func refKindFromNodeType(t ast.NodeType) types.ReferenceKind {
	if t == ast.NodeCallExpression {
		return types.RefCall
	}
	return types.RefUsage
}

// selectCandidateFiles picks up to N files (default 10, 8 for short
// seeds), preferring filenames containing the identifier.
func (e *Engine) selectCandidateFiles(defs []types.Definition, identifier string) []string {
	max := e.cfg.Layer2.MaxCandidateFiles
	if len(identifier) <= 4 {
		max = 8
	}
	seen := make(map[string]bool)
	var preferred, rest []string
	for _, d := range defs {
		path := d.URI.Path()
		if path == "" || seen[path] {
			continue
		}
		seen[path] = true
		if strings.Contains(strings.ToLower(baseName(path)), strings.ToLower(identifier)) {
			preferred = append(preferred, path)
		} else {
			rest = append(rest, path)
		}
	}
	all := append(preferred, rest...)
	if len(all) > max {
		all = all[:max]
	}
	return all
}

func (e *Engine) selectCandidateFilesForRefs(refs []types.Reference, identifier string) []string {
	seen := make(map[string]bool)
	var files []string
	max := e.cfg.Layer2.MaxCandidateFiles
	for _, r := range refs {
		path := r.URI.Path()
		if path == "" || seen[path] {
			continue
		}
		seen[path] = true
		files = append(files, path)
		if len(files) >= max {
			break
		}
	}
	return files
}
