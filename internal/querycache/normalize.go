package querycache

import "strings"

// Normalize lowercases q and collapses runs of whitespace into single spaces.
// Normalize(Normalize(q)) == Normalize(q).
func Normalize(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}

// wordSet returns the distinct words of a normalized query
func wordSet(normalized string) map[string]struct{} {
	words := strings.Fields(normalized)
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
