package search

import (
	"strings"

	"github.com/surgebase/porter2"
)

// Stem reduces word to its Porter2 stem, used by the dominant-token
// collapse so `getUser`/`getUsers` group under the same token family
// when scoring ties.
func Stem(word string) string {
	if len(word) < 3 {
		return strings.ToLower(word)
	}
	return porter2.Stem(strings.ToLower(word))
}
