package ast

import "github.com/lightningralf/ontology-engine/internal/types"

// Node is a typed AST node: a declaration or usage site carrying the
// capture that produced it, its source range, and the metadata the
// orchestrator needs to validate a candidate match against it.
type Node struct {
	ID       string // "path:line:col"
	Type     NodeType
	URI      types.FileUri
	Range    types.Range
	Text     string
	Name     string // the captured identifier, e.g. functionName/className
	Metadata map[string]any
}

// Relationship is an edge between a node and something outside it —
// currently only `imports`, carrying a "path:line" location.
type Relationship struct {
	Kind     string
	Location string // "path:line"
	Target   string
}

// ProcessResult is the {nodes[], relationships[]} shape Process
// returns.
type ProcessResult struct {
	Nodes         []Node
	Relationships []Relationship
}
