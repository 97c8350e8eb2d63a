package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJaroWinklerIdenticalStringsScoreOne(t *testing.T) {
	assert.Equal(t, 1.0, JaroWinkler("GetUser", "GetUser"))
}

func TestJaroWinklerEmptyStringScoresZero(t *testing.T) {
	assert.Equal(t, 0.0, JaroWinkler("GetUser", ""))
	assert.Equal(t, 0.0, JaroWinkler("", "GetUser"))
}

func TestJaroWinklerCloseStringsScoreHigherThanDistantOnes(t *testing.T) {
	close := JaroWinkler("GetUser", "GetUsers")
	distant := JaroWinkler("GetUser", "ZZZZZZZ")
	assert.Greater(t, close, distant)
	assert.GreaterOrEqual(t, close, 0.0)
	assert.LessOrEqual(t, close, 1.0)
}
