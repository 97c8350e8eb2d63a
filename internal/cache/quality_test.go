package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestQualityForEmptyYieldsKindEmpty(t *testing.T) {
	q := QualityFor(KindExact, nil)
	assert.Equal(t, KindEmpty, q.Kind)
	assert.Equal(t, 0, q.ResultCount)
}

func TestQualityForAveragesConfidence(t *testing.T) {
	q := QualityFor(KindMixed, []float64{0.4, 0.8})
	assert.Equal(t, 2, q.ResultCount)
	assert.InDelta(t, 0.6, q.AverageConfidence, 0.0001)
}

func TestTTLHighConfidenceDoublesBase(t *testing.T) {
	q := ResultQuality{Kind: KindMixed, AverageConfidence: 0.95, ResultCount: 5}
	assert.Equal(t, baseTTL[KindMixed]*2, q.TTL())
}

func TestTTLLowConfidenceHalvesBase(t *testing.T) {
	q := ResultQuality{Kind: KindMixed, AverageConfidence: 0.1, ResultCount: 5}
	assert.Equal(t, baseTTL[KindMixed]/2, q.TTL())
}

func TestTTLManyResultsAppliesBoost(t *testing.T) {
	q := ResultQuality{Kind: KindMixed, AverageConfidence: 0.5, ResultCount: 20}
	expected := time.Duration(float64(baseTTL[KindMixed]) * 1.5)
	assert.Equal(t, expected, q.TTL())
}

func TestTTLFewResultsAppliesPenalty(t *testing.T) {
	q := ResultQuality{Kind: KindMixed, AverageConfidence: 0.5, ResultCount: 1}
	expected := time.Duration(float64(baseTTL[KindMixed]) * 0.7)
	assert.Equal(t, expected, q.TTL())
}

func TestTTLClampsToBounds(t *testing.T) {
	tiny := ResultQuality{Kind: KindEmpty, AverageConfidence: 0.1, ResultCount: 1}
	assert.Equal(t, minTTL, tiny.TTL())

	huge := ResultQuality{Kind: KindExact, AverageConfidence: 0.99, ResultCount: 50}
	assert.Equal(t, maxTTL, huge.TTL())
}

func TestTTLUnknownKindFallsBackToMixed(t *testing.T) {
	q := ResultQuality{Kind: "nonsense", AverageConfidence: 0.5, ResultCount: 5}
	assert.Equal(t, baseTTL[KindMixed], q.TTL())
}
