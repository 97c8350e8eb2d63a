package search

import "github.com/hbollon/go-edlib"

// JaroWinkler returns the Jaro-Winkler similarity of a and b in
// [0,1], used to rank subsequence-regex survivors during the L1
// fuzzy fallback.
func JaroWinkler(a, b string) float64 {
	if a == b {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}
	score, err := edlib.StringsSimilarity(a, b, edlib.JaroWinkler)
	if err != nil {
		return 0.0
	}
	return float64(score)
}
