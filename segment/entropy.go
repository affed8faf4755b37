package segment

import "math"

// entropyAnalyzer computes Shannon entropy over sliding windows of runes.
// Per the ambiguous-source-behavior note this spec preserves intentionally:
// a segment's entropy is derived from its *first occurrence only* in the
// training text, so duplicate occurrences elsewhere are not averaged in.
type entropyAnalyzer struct {
	windowSize int
}

func newEntropyAnalyzer(windowSize int) *entropyAnalyzer {
	if windowSize < 1 {
		windowSize = 3
	}
	return &entropyAnalyzer{windowSize: windowSize}
}

// positionEntropies returns, for each rune index i, the Shannon entropy of
// the window of runes centered at i.
func (a *entropyAnalyzer) positionEntropies(text []rune) []float64 {
	out := make([]float64, len(text))
	for i := range text {
		out[i] = a.entropyAt(text, i)
	}
	return out
}

func (a *entropyAnalyzer) entropyAt(text []rune, position int) float64 {
	half := a.windowSize / 2
	start := position - half
	if start < 0 {
		start = 0
	}
	end := start + a.windowSize
	if end > len(text) {
		end = len(text)
		start = end - a.windowSize
		if start < 0 {
			start = 0
		}
	}
	return shannonEntropy(text[start:end])
}

func shannonEntropy(window []rune) float64 {
	if len(window) == 0 {
		return 0
	}
	counts := make(map[rune]int, len(window))
	for _, r := range window {
		counts[r]++
	}
	n := float64(len(window))
	entropy := 0.0
	for _, c := range counts {
		p := float64(c) / n
		entropy -= p * math.Log2(p)
	}
	return entropy
}

// segmentEntropy finds the segment's first occurrence in text and averages
// the per-position entropy across its span.
func (a *entropyAnalyzer) segmentEntropy(text []rune, segment []rune) float64 {
	idx := firstOccurrence(text, segment)
	if idx < 0 || len(segment) == 0 {
		return 0
	}
	sum := 0.0
	for i := idx; i < idx+len(segment) && i < len(text); i++ {
		sum += a.entropyAt(text, i)
	}
	return sum / float64(len(segment))
}

func firstOccurrence(text, segment []rune) int {
	if len(segment) == 0 || len(segment) > len(text) {
		return -1
	}
outer:
	for i := 0; i+len(segment) <= len(text); i++ {
		for j, r := range segment {
			if text[i+j] != r {
				continue outer
			}
		}
		return i
	}
	return -1
}
