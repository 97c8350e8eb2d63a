package orchestrator

import (
	"sort"
	"strings"

	"github.com/lightningralf/ontology-engine/internal/search"
)

func isWordChar(b byte) bool {
	return b == '_' ||
		(b >= 'a' && b <= 'z') ||
		(b >= 'A' && b <= 'Z') ||
		(b >= '0' && b <= '9')
}

// ExpandToken expands a hit to the word token surrounding the reported
// column (1-based from the engine); if that expansion doesn't contain
// seed, pick the nearest word token on the line that does. Returns the
// token text and its 0-based start column, or ("", -1) if no token on
// the line contains seed.
func ExpandToken(line string, column1Based int, seed string) (string, int) {
	col := column1Based - 1
	if col < 0 {
		col = 0
	}
	if col > len(line) {
		col = len(line)
	}

	tok, start := tokenAt(line, col)
	if strings.Contains(strings.ToLower(tok), strings.ToLower(seed)) {
		return tok, start
	}

	type candidate struct {
		text  string
		start int
	}
	var candidates []candidate
	i := 0
	for i < len(line) {
		if !isWordChar(line[i]) {
			i++
			continue
		}
		j := i
		for j < len(line) && isWordChar(line[j]) {
			j++
		}
		word := line[i:j]
		if strings.Contains(strings.ToLower(word), strings.ToLower(seed)) {
			candidates = append(candidates, candidate{text: word, start: i})
		}
		i = j
	}
	if len(candidates) == 0 {
		return "", -1
	}
	sort.Slice(candidates, func(a, b int) bool {
		da := distance(candidates[a].start, col)
		db := distance(candidates[b].start, col)
		return da < db
	})
	return candidates[0].text, candidates[0].start
}

func tokenAt(line string, col int) (string, int) {
	if col >= len(line) || !isWordChar(line[col]) {
		// search backward for the start of a token ending at or before col
		for c := col - 1; c >= 0; c-- {
			if isWordChar(line[c]) {
				col = c
				break
			}
			if c == 0 {
				return "", col
			}
		}
	}
	start := col
	for start > 0 && isWordChar(line[start-1]) {
		start--
	}
	end := col
	for end < len(line) && isWordChar(line[end]) {
		end++
	}
	if start == end {
		return "", start
	}
	return line[start:end], start
}

func distance(a, b int) int {
	if a < b {
		return b - a
	}
	return a - b
}

// PrefixNarrow narrows tokens to exact-prefix matches when identifier
// is short (<6 chars) and doing so keeps at least one hit while
// shrinking the set.
func PrefixNarrow(tokens []string, identifier string) []string {
	if len(identifier) >= 6 {
		return tokens
	}
	var kept []string
	for _, t := range tokens {
		if strings.HasPrefix(strings.ToLower(t), strings.ToLower(identifier)) {
			kept = append(kept, t)
		}
	}
	if len(kept) > 0 && len(kept) < len(tokens) {
		return kept
	}
	return tokens
}

// DominantTokenCollapse collapses a noisy result set (more than 3
// distinct stems, more than 50 entries total, or precise was
// requested) down to only the entries whose stemmed token matches the
// most frequent stem.
func DominantTokenCollapse[T any](items []T, tokenOf func(T) string, precise bool) []T {
	if len(items) == 0 {
		return items
	}

	counts := make(map[string]int)
	stems := make([]string, len(items))
	for i, item := range items {
		stem := search.Stem(tokenOf(item))
		stems[i] = stem
		counts[stem]++
	}

	distinct := len(counts)
	if distinct <= 3 && len(items) <= 50 && !precise {
		return items
	}

	dominant := ""
	best := -1
	for stem, count := range counts {
		if count > best {
			best = count
			dominant = stem
		}
	}

	var kept []T
	for i, item := range items {
		if stems[i] == dominant {
			kept = append(kept, item)
		}
	}
	return kept
}
