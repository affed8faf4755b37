package quality

import "regexp"

// Lexicon holds the configurable keyword/regex sets the crude heuristics
// scan against. Built-in defaults are used whenever a caller doesn't
// supply its own (or a loading step fails) — lexicon loading is never
// allowed to fail validation.
type Lexicon struct {
	ToxicTerms          []string
	UniversalQuantifiers []string
	HarmfulTerms        []string
	PersonalInfoPatterns []*regexp.Regexp
	HedgePhrases        []string
	CertaintyPhrases    []string
}

var specificFactPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(19|20)\d{2}\b`),               // years
	regexp.MustCompile(`\b\d+(\.\d+)?%\b`),                // percentages
	regexp.MustCompile(`[$€£]\s?\d+(,\d{3})*(\.\d+)?\b`),  // currency
	regexp.MustCompile(`\b\d+(,\d{3})*\s?(million|billion|thousand|hundred)\b`), // large-number words
}

// DefaultLexicon matches the worked examples: a small built-in seed list
// rather than an exhaustive moderation lexicon.
func DefaultLexicon() Lexicon {
	return Lexicon{
		ToxicTerms: []string{
			"hate", "stupid", "idiot", "kill", "worthless", "disgusting",
		},
		UniversalQuantifiers: []string{
			"all", "never", "always", "everyone", "nobody",
		},
		HarmfulTerms: []string{
			"bomb", "weapon", "attack", "self-harm", "suicide",
		},
		PersonalInfoPatterns: []*regexp.Regexp{
			regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),                       // SSN-shaped
			regexp.MustCompile(`\b[\w.+-]+@[\w-]+\.[a-zA-Z]{2,}\b`),           // email
			regexp.MustCompile(`\b\d{3}[-.\s]?\d{3}[-.\s]?\d{4}\b`),           // phone-shaped
		},
		HedgePhrases: []string{
			"i think", "maybe", "possibly", "it seems", "i'm not sure", "might",
		},
		CertaintyPhrases: []string{
			"definitely", "certainly", "without a doubt", "always", "guaranteed",
		},
	}
}
