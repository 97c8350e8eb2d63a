package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStemLowercasesShortWords(t *testing.T) {
	assert.Equal(t, "go", Stem("Go"))
	assert.Equal(t, "db", Stem("DB"))
}

func TestStemCollapsesRelatedForms(t *testing.T) {
	assert.Equal(t, Stem("connection"), Stem("connections"))
	assert.Equal(t, Stem("running"), Stem("runs"))
}

func TestStemIsCaseInsensitive(t *testing.T) {
	assert.Equal(t, Stem("GetUser"), Stem("getuser"))
}
