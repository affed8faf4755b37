// Package textsim holds the small set of crude text-similarity heuristics
// shared by the retrieval planner and the quality validator: Jaccard token
// overlap, n-gram phrase extraction, and word tokenization. These are
// intentionally simple lexical measures, not embeddings.
package textsim

import "strings"

// Tokenize splits on whitespace, lowercases, and strips surrounding
// punctuation.
func Tokenize(s string) []string {
	fields := strings.Fields(strings.ToLower(s))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ".,!?;:\"'()[]{}")
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

// Jaccard computes the Jaccard similarity of the whitespace-token sets of
// a and b.
func Jaccard(a, b string) float64 {
	setA := toSet(Tokenize(a))
	setB := toSet(Tokenize(b))
	if len(setA) == 0 && len(setB) == 0 {
		return 0
	}
	intersection := 0
	for tok := range setA {
		if setB[tok] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func toSet(tokens []string) map[string]bool {
	out := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		out[t] = true
	}
	return out
}

// NGrams returns every contiguous n-token phrase of s, space-joined.
func NGrams(s string, n int) []string {
	toks := Tokenize(s)
	if len(toks) < n {
		return nil
	}
	out := make([]string, 0, len(toks)-n+1)
	for i := 0; i+n <= len(toks); i++ {
		out = append(out, strings.Join(toks[i:i+n], " "))
	}
	return out
}

// ContainsFold reports whether haystack contains needle, case-insensitive.
func ContainsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
