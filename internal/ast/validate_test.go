package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lightningralf/ontology-engine/internal/types"
)

func TestValidateDefinition(t *testing.T) {
	node := Node{Name: "GetUser"}

	assert.True(t, ValidateDefinition(node, "getuser", nil), "case-insensitive exact match")
	assert.True(t, ValidateDefinition(node, "unrelated", []string{"GetUser"}), "candidate-name match")
	assert.False(t, ValidateDefinition(node, "SetUser", nil))
}

func TestExactCaseMatch(t *testing.T) {
	node := Node{Name: "GetUser"}
	assert.True(t, ExactCaseMatch(node, "GetUser"))
	assert.False(t, ExactCaseMatch(node, "getuser"))
}

func TestValidateReference(t *testing.T) {
	node := Node{
		Type: NodeCallExpression,
		Name: "getUser",
		Range: types.Range{
			Start: types.Position{Line: 10, Character: 4},
			End:   types.Position{Line: 10, Character: 11},
		},
	}

	assert.True(t, ValidateReference(node, 10, 4, "getUser"), "exact position covered by node range")
	assert.True(t, ValidateReference(node, 10, 6, "GetUser"), "position within node range, case-insensitive")
	assert.True(t, ValidateReference(node, 10, 13, "getUser"), "position within 3 columns of range end")
	assert.False(t, ValidateReference(node, 10, 30, "getUser"), "position too far from node range")
	assert.False(t, ValidateReference(node, 11, 4, "getUser"), "wrong line")
	assert.False(t, ValidateReference(node, 10, 4, "setUser"), "wrong identifier")

	plainIdentifier := node
	plainIdentifier.Type = NodeIdentifier
	assert.True(t, ValidateReference(plainIdentifier, 10, 4, "getUser"))

	wrongType := node
	wrongType.Type = NodeVariableDeclaration
	assert.False(t, ValidateReference(wrongType, 10, 4, "getUser"))
}
