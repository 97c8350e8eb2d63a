package orchestrator

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lightningralf/ontology-engine/internal/ast"
	"github.com/lightningralf/ontology-engine/internal/cache"
	"github.com/lightningralf/ontology-engine/internal/config"
	ontologyerrors "github.com/lightningralf/ontology-engine/internal/errors"
	"github.com/lightningralf/ontology-engine/internal/metrics"
	"github.com/lightningralf/ontology-engine/internal/search"
	"github.com/lightningralf/ontology-engine/internal/types"
)

// postRaceGrace is the window during which a race loser's result may
// still be merged after the winner has already emitted.
const postRaceGrace = 120 * time.Millisecond

// Engine owns the search pool, AST layer, and result cache, and wires
// them into findDefinition, findReferences and exploreCodebase; the
// rename and symbolmap packages build the other operations on top of
// it. Layers are reached through their own small types rather than
// back-pointers to avoid import cycles.
type Engine struct {
	cfg     *config.Config
	pool    *search.Pool
	ast     *ast.Layer
	cache   *cache.ResultCache
	metrics *metrics.Engine
}

// New builds an Engine from a validated Config.
func New(cfg *config.Config, pool *search.Pool, astLayer *ast.Layer, resultCache *cache.ResultCache, m *metrics.Engine) *Engine {
	return &Engine{cfg: cfg, pool: pool, ast: astLayer, cache: resultCache, metrics: m}
}

// FindDefinition runs the tiered definition search: L1 regex race,
// optional L2 AST escalation. A non-nil error is always an
// InvalidRequest or Internal QueryError — LayerTimeout/LayerError are
// recovered locally and never reach here.
func (e *Engine) FindDefinition(ctx context.Context, req types.QueryRequest) (types.Result[[]types.Definition], error) {
	req.Operation = "findDefinition"
	req = req.Normalized()

	if err := e.validate(req); err != nil {
		return types.Result[[]types.Definition]{RequestID: uuid.NewString(), Timestamp: time.Now().Unix()}, err
	}

	key := cache.Fingerprint(req.Operation, req)
	if cached, ok := e.cache.Get(key); ok {
		e.metrics.RecordCacheHit()
		result := cached.(types.Result[[]types.Definition])
		result.CacheHit = true
		result.Performance = types.Performance{}
		return result, nil
	}
	e.metrics.RecordCacheMiss()

	start := time.Now()
	l1Start := time.Now()
	hits := e.raceL1(ctx, req)
	l1Elapsed := time.Since(l1Start)

	defs := e.hitsToDefinitions(hits, req.Identifier)
	defs = e.applyL1Heuristics(defs, req.Identifier, req.Precise)

	var l2Elapsed time.Duration
	if e.shouldEscalate(defs, req) {
		l2Start := time.Now()
		defs = e.escalateDefinitions(ctx, defs, req)
		l2Elapsed = time.Since(l2Start)
	}

	defs = dedupDefinitions(defs)
	if req.ASTOnly || req.Precise {
		defs = filterASTValidatedDefs(defs)
	}
	if req.MaxResults > 0 && len(defs) > req.MaxResults {
		defs = defs[:req.MaxResults]
	}

	total := time.Since(start)
	perf := types.Performance{
		Layer1: l1Elapsed.Milliseconds(),
		Layer2: l2Elapsed.Milliseconds(),
		Total:  total.Milliseconds(),
	}

	result := types.Result[[]types.Definition]{
		Data:        defs,
		Performance: perf,
		RequestID:   uuid.NewString(),
		CacheHit:    false,
		Timestamp:   time.Now().Unix(),
	}

	quality := qualityForDefinitions(defs)
	e.cache.Put(key, result, quality)
	if !req.URI.IsGlobal() {
		e.cache.RegisterKeyURI(key, req.URI.Path())
	}

	return result, nil
}

// FindReferences runs the tiered reference search: L1 regex race,
// optional L2 AST escalation.
func (e *Engine) FindReferences(ctx context.Context, req types.QueryRequest) (types.Result[[]types.Reference], error) {
	req.Operation = "findReferences"
	req = req.Normalized()

	if err := e.validate(req); err != nil {
		return types.Result[[]types.Reference]{RequestID: uuid.NewString(), Timestamp: time.Now().Unix()}, err
	}

	key := cache.Fingerprint(req.Operation, req)
	if cached, ok := e.cache.Get(key); ok {
		e.metrics.RecordCacheHit()
		result := cached.(types.Result[[]types.Reference])
		result.CacheHit = true
		result.Performance = types.Performance{}
		return result, nil
	}
	e.metrics.RecordCacheMiss()

	start := time.Now()
	l1Start := time.Now()
	hits := e.raceL1(ctx, req)
	l1Elapsed := time.Since(l1Start)

	refs := e.hitsToReferences(hits, req.Identifier)
	refs = e.applyL1HeuristicsRefs(refs, req.Identifier, req.Precise)
	if req.IncludeDeclaration {
		defs := e.hitsToDefinitions(hits, req.Identifier)
		defs = e.applyL1Heuristics(defs, req.Identifier, req.Precise)
		for _, d := range defs {
			refs = append(refs, types.Reference{
				URI: d.URI, Range: d.Range, Kind: types.RefUsage, Name: d.Name,
				Source: d.Source, Confidence: d.Confidence, Layer: d.Layer,
			})
		}
	}

	var l2Elapsed time.Duration
	if len(refs) == 0 || e.isAmbiguous(refs) || req.Precise {
		l2Start := time.Now()
		refs = e.escalateReferences(ctx, refs, req)
		l2Elapsed = time.Since(l2Start)
	}

	refs = dedupReferences(refs)
	if req.MaxResults > 0 && len(refs) > req.MaxResults {
		refs = refs[:req.MaxResults]
	}

	total := time.Since(start)
	perf := types.Performance{
		Layer1: l1Elapsed.Milliseconds(),
		Layer2: l2Elapsed.Milliseconds(),
		Total:  total.Milliseconds(),
	}

	result := types.Result[[]types.Reference]{
		Data:        refs,
		Performance: perf,
		RequestID:   uuid.NewString(),
		CacheHit:    false,
		Timestamp:   time.Now().Unix(),
	}

	quality := qualityForReferences(refs)
	e.cache.Put(key, result, quality)
	if !req.URI.IsGlobal() {
		e.cache.RegisterKeyURI(key, req.URI.Path())
	}

	return result, nil
}

// ExploreCodebase runs FindDefinition and FindReferences together and
// returns both result sets under a single symbol.
func (e *Engine) ExploreCodebase(ctx context.Context, req types.ExploreRequest) types.ExploreResult {
	start := time.Now()

	qreq := types.QueryRequest{
		Identifier:         req.Identifier,
		URI:                req.URI,
		IncludeDeclaration: req.IncludeDeclaration,
		MaxResults:         req.MaxResults,
		Precise:            req.Precise,
		Conceptual:         req.Conceptual,
	}

	type defOutcome struct {
		defs types.Result[[]types.Definition]
	}
	type refOutcome struct {
		refs types.Result[[]types.Reference]
	}

	defCh := make(chan defOutcome, 1)
	refCh := make(chan refOutcome, 1)

	go func() {
		defer func() { recover() }()
		defs, _ := e.FindDefinition(ctx, qreq)
		defCh <- defOutcome{defs: defs}
	}()
	go func() {
		defer func() { recover() }()
		refs, _ := e.FindReferences(ctx, qreq)
		refCh <- refOutcome{refs: refs}
	}()

	var defs []types.Definition
	var refs []types.Reference
	var defMs, refMs int64

	d, ok := <-defCh
	if ok {
		defs = d.defs.Data
		defMs = d.defs.Performance.Total
	}
	r, ok := <-refCh
	if ok {
		refs = r.refs.Data
		refMs = r.refs.Performance.Total
	}

	return types.ExploreResult{
		Symbol:      req.Identifier,
		ContextURI:  req.URI,
		Definitions: defs,
		References:  refs,
		Performance: types.ExplorePerformance{
			Definitions: defMs,
			References:  refMs,
			Total:       time.Since(start).Milliseconds(),
		},
	}
}

func (e *Engine) validate(req types.QueryRequest) error {
	if req.Identifier == "" && req.URI.IsGlobal() {
		return ontologyerrors.InvalidRequestf("identifier and uri must not both be empty")
	}
	return nil
}

func qualityForDefinitions(defs []types.Definition) cache.ResultQuality {
	confidences := make([]float64, len(defs))
	allExact := true
	for i, d := range defs {
		confidences[i] = d.Confidence
		if d.Source != types.SourceExact {
			allExact = false
		}
	}
	kind := cache.KindMixed
	if len(defs) == 0 {
		kind = cache.KindEmpty
	} else if allExact {
		kind = cache.KindExact
	}
	return cache.QualityFor(kind, confidences)
}

func qualityForReferences(refs []types.Reference) cache.ResultQuality {
	confidences := make([]float64, len(refs))
	allExact := true
	for i, r := range refs {
		confidences[i] = r.Confidence
		if r.Source != types.SourceExact {
			allExact = false
		}
	}
	kind := cache.KindMixed
	if len(refs) == 0 {
		kind = cache.KindEmpty
	} else if allExact {
		kind = cache.KindExact
	}
	return cache.QualityFor(kind, confidences)
}

func dedupDefinitions(defs []types.Definition) []types.Definition {
	type key struct {
		uri  types.FileUri
		line int
		name string
	}
	groups := make(map[key]types.Definition)
	var order []key
	for _, d := range defs {
		k := key{uri: d.URI, line: d.Range.Start.Line, name: strings.ToLower(d.Name)}
		existing, ok := groups[k]
		if !ok {
			groups[k] = d
			order = append(order, k)
			continue
		}
		if d.ASTValidated && (!existing.ASTValidated || d.Confidence > existing.Confidence) {
			groups[k] = d
		} else if !existing.ASTValidated && !d.ASTValidated && d.Confidence > existing.Confidence {
			groups[k] = d
		}
	}
	out := make([]types.Definition, 0, len(order))
	for _, k := range order {
		out = append(out, groups[k])
	}
	sortDefinitions(out)
	return out
}

func dedupReferences(refs []types.Reference) []types.Reference {
	type key struct {
		uri  types.FileUri
		line int
		char int
	}
	seen := make(map[key]bool)
	var out []types.Reference
	for _, r := range refs {
		k := key{uri: r.URI, line: r.Range.Start.Line, char: r.Range.Start.Character}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, r)
	}
	sortReferences(out)
	return out
}

func sortDefinitions(defs []types.Definition) {
	sort.Slice(defs, func(i, j int) bool {
		if defs[i].Confidence != defs[j].Confidence {
			return defs[i].Confidence > defs[j].Confidence
		}
		if defs[i].URI != defs[j].URI {
			return defs[i].URI < defs[j].URI
		}
		return defs[i].Range.Start.Line < defs[j].Range.Start.Line
	})
}

func sortReferences(refs []types.Reference) {
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Confidence != refs[j].Confidence {
			return refs[i].Confidence > refs[j].Confidence
		}
		if refs[i].URI != refs[j].URI {
			return refs[i].URI < refs[j].URI
		}
		return refs[i].Range.Start.Line < refs[j].Range.Start.Line
	})
}

func filterASTValidatedDefs(defs []types.Definition) []types.Definition {
	var out []types.Definition
	for _, d := range defs {
		if d.ASTValidated {
			out = append(out, d)
		}
	}
	if len(out) == 0 && len(defs) > 0 {
		best := defs[0]
		for _, d := range defs[1:] {
			if d.Confidence > best.Confidence {
				best = d
			}
		}
		return []types.Definition{best}
	}
	return out
}
