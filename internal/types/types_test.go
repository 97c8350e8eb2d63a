package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRangeContainsWithinSameLine(t *testing.T) {
	r := Range{Start: Position{Line: 2, Character: 4}, End: Position{Line: 2, Character: 10}}
	assert.True(t, r.Contains(2, 4))
	assert.True(t, r.Contains(2, 9))
	assert.False(t, r.Contains(2, 10))
	assert.False(t, r.Contains(2, 3))
}

func TestRangeContainsOutsideLineRange(t *testing.T) {
	r := Range{Start: Position{Line: 2, Character: 4}, End: Position{Line: 2, Character: 10}}
	assert.False(t, r.Contains(1, 5))
	assert.False(t, r.Contains(3, 5))
}

func TestClamp01ClampsOutOfRangeValues(t *testing.T) {
	assert.Equal(t, 0.0, Clamp01(-0.5))
	assert.Equal(t, 1.0, Clamp01(1.5))
	assert.Equal(t, 0.5, Clamp01(0.5))
}

func TestSearchOptionsValidateRejectsNonPositiveTimeout(t *testing.T) {
	err := SearchOptions{MaxResults: 10}.Validate()
	require.Error(t, err)
}

func TestSearchOptionsValidateRejectsNonPositiveMaxResults(t *testing.T) {
	err := SearchOptions{TimeoutMs: 10}.Validate()
	require.Error(t, err)
}

func TestSearchOptionsValidateAcceptsPositiveValues(t *testing.T) {
	err := SearchOptions{TimeoutMs: 10, MaxResults: 5}.Validate()
	assert.NoError(t, err)
}

func TestResultEnvelopeCarriesPayload(t *testing.T) {
	r := Result[[]Definition]{
		Data:      []Definition{{Name: "GetUser"}},
		RequestID: "req-1",
	}
	assert.Len(t, r.Data, 1)
	assert.False(t, r.CacheHit)
	assert.Equal(t, "req-1", r.RequestID)
}
