package domain

import "github.com/pmezard/go-difflib/difflib"

// Similarity returns the Ratcliff/Obershelp ratio of a and b in [0, 1]:
// 2·M/T, where M is the total size of the matching blocks found by recursively
// taking the longest common substring and T is the combined length. Strings are
// compared by code point. Two empty strings score 1.
func Similarity(a, b string) float64 {
	return difflib.NewMatcher(splitRunes(a), splitRunes(b)).Ratio()
}

func splitRunes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}
