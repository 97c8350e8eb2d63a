// Package orchestrator implements the query orchestrator:
// findDefinition, findReferences and exploreCodebase, wiring the
// search, AST, rename and cache layers together.
package orchestrator

import (
	"strings"

	"github.com/lightningralf/ontology-engine/internal/types"
)

// scoreL1 scores a raw regex hit: starts at 0.5, +0.25 for a
// word-boundary match, +0.05 for a case-sensitive occurrence, +0.05
// when the file's basename contains the identifier.
func scoreL1(hit types.StreamingResult, identifier string, wordBoundary bool) float64 {
	score := 0.5
	if wordBoundary {
		score += 0.25
	}
	if strings.Contains(hit.Text, identifier) {
		score += 0.05
	}
	base := baseName(hit.File)
	if strings.Contains(strings.ToLower(base), strings.ToLower(identifier)) {
		score += 0.05
	}
	return types.Clamp01(score)
}

// scoreAST scores an AST-validated definition: starts at 0.8, bonuses
// for an exact name match and a declaration-kind node.
func scoreAST(exactName bool, isDeclaration bool) float64 {
	score := 0.8
	if exactName {
		score += 0.1
	}
	if isDeclaration {
		score += 0.05
	}
	return types.Clamp01(score)
}

// scoreReference scores an AST-validated reference: starts at 0.7,
// bonuses for call/identifier node types and proximity to the
// reported column.
func scoreReference(isCallOrIdentifier bool, columnDistance int) float64 {
	score := 0.7
	if isCallOrIdentifier {
		score += 0.15
	}
	if columnDistance <= 1 {
		score += 0.1
	} else if columnDistance <= 3 {
		score += 0.05
	}
	return types.Clamp01(score)
}

func baseName(path string) string {
	if i := strings.LastIndexAny(path, "/\\"); i >= 0 {
		return path[i+1:]
	}
	return path
}
