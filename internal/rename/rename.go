// Package rename implements the rename planner: fusing a precise
// findReferences/findDefinition pair into a WorkspaceEdit without
// touching disk. Reuses the query engine's primitives rather than
// re-implementing search.
package rename

import (
	"context"
	"sort"

	"github.com/lightningralf/ontology-engine/internal/errors"
	"github.com/lightningralf/ontology-engine/internal/metrics"
	"github.com/lightningralf/ontology-engine/internal/orchestrator"
	"github.com/lightningralf/ontology-engine/internal/types"
)

// Planner owns query engine access and produces prepareRename/rename
// results.
type Planner struct {
	engine  *orchestrator.Engine
	metrics *metrics.Engine
}

// New builds a Planner over an already-constructed query Engine.
func New(engine *orchestrator.Engine, m *metrics.Engine) *Planner {
	return &Planner{engine: engine, metrics: m}
}

// PrepareRename validates that req.Identifier is findable at req.URI
// and returns the placeholder/range over the seed.
func (p *Planner) PrepareRename(ctx context.Context, req types.RenameRequest) (types.PrepareRenameResult, error) {
	if req.Identifier == "" {
		return types.PrepareRenameResult{}, errors.InvalidRequestf("identifier must not be empty")
	}

	defs, err := p.engine.FindDefinition(ctx, types.QueryRequest{
		Identifier: req.Identifier,
		URI:        req.URI,
		Position:   req.Position,
		Precise:    true,
		MaxResults: 1,
	})
	if err != nil {
		return types.PrepareRenameResult{}, err
	}
	if len(defs.Data) == 0 {
		return types.PrepareRenameResult{}, errors.InvalidRequestf("symbol %q not found", req.Identifier)
	}

	best := defs.Data[0]
	return types.PrepareRenameResult{
		Range:       best.Range,
		Placeholder: best.Name,
	}, nil
}

// Rename builds a workspace edit: collect precise references
// (preferring AST-validated entries) and the best definition, group by
// file, and dedup by (line, character). The result is never applied
// to disk — dryRun only changes whether the caller is expected to
// apply it.
func (p *Planner) Rename(ctx context.Context, req types.RenameRequest) (types.WorkspaceEdit, error) {
	if req.Identifier == "" || req.NewName == "" {
		return types.WorkspaceEdit{}, errors.InvalidRequestf("identifier and newName must not be empty")
	}

	qreq := types.QueryRequest{
		Identifier:         req.Identifier,
		URI:                req.URI,
		Position:           req.Position,
		Precise:            true,
		IncludeDeclaration: true,
		MaxResults:         500,
	}

	refsResult, err := p.engine.FindReferences(ctx, qreq)
	if err != nil {
		return types.WorkspaceEdit{}, err
	}
	refs := preferASTValidatedRefs(refsResult.Data)

	defsResult, err := p.engine.FindDefinition(ctx, qreq)
	if err != nil {
		return types.WorkspaceEdit{}, err
	}

	edits := make(map[types.FileUri][]types.TextEdit)
	seen := make(map[editKey]bool)

	addRange := func(uri types.FileUri, rng types.Range) {
		k := editKey{uri: uri, line: rng.Start.Line, char: rng.Start.Character}
		if seen[k] {
			return
		}
		seen[k] = true
		edits[uri] = append(edits[uri], types.TextEdit{Range: rng, NewText: req.NewName})
	}

	for _, r := range refs {
		addRange(r.URI, r.Range)
	}
	if len(defsResult.Data) > 0 {
		best := defsResult.Data[0]
		for _, d := range defsResult.Data {
			if d.Confidence > best.Confidence {
				best = d
			}
		}
		addRange(best.URI, best.Range)
	}

	for uri, list := range edits {
		edits[uri] = dedupNonOverlapping(list)
	}

	if p.metrics != nil {
		p.metrics.RecordRenamePlanned()
		if !req.DryRun {
			p.metrics.RecordRenameApplied()
		}
	}

	return types.WorkspaceEdit{Changes: edits}, nil
}

type editKey struct {
	uri  types.FileUri
	line int
	char int
}

// preferASTValidatedRefs drops unvalidated raw-L1 entries when at
// least one AST-validated reference exists.
func preferASTValidatedRefs(refs []types.Reference) []types.Reference {
	hasValidated := false
	for _, r := range refs {
		if r.ASTValidated {
			hasValidated = true
			break
		}
	}
	if !hasValidated {
		return refs
	}
	var out []types.Reference
	for _, r := range refs {
		if r.ASTValidated {
			out = append(out, r)
		}
	}
	return out
}

// dedupNonOverlapping enforces that edits stay pairwise non-overlapping:
// edits are sorted by start position and an edit that starts before
// the previous one ends is dropped.
func dedupNonOverlapping(edits []types.TextEdit) []types.TextEdit {
	sort.Slice(edits, func(i, j int) bool {
		if edits[i].Range.Start.Line != edits[j].Range.Start.Line {
			return edits[i].Range.Start.Line < edits[j].Range.Start.Line
		}
		return edits[i].Range.Start.Character < edits[j].Range.Start.Character
	})

	var out []types.TextEdit
	for _, e := range edits {
		if len(out) > 0 {
			last := out[len(out)-1]
			if e.Range.Start.Line == last.Range.End.Line && e.Range.Start.Character < last.Range.End.Character {
				continue
			}
		}
		out = append(out, e)
	}
	return out
}
