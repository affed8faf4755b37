package quality

import (
	"regexp"
	"strings"
	"time"

	"github.com/cognitron/cognitron/conversation"
	"github.com/cognitron/cognitron/textsim"
	"github.com/microcosm-cc/bluemonday"
)

// sourceReliability is the fixed table used by factual_grounding.
func sourceReliability(t conversation.SourceType) float64 {
	switch t {
	case conversation.SourceSemantic:
		return 0.8
	case conversation.SourceConceptGraph:
		return 0.9
	case conversation.SourcePattern:
		return 0.7
	default:
		return 0.6
	}
}

// Validator scores a generated response against the fixed axis set. It
// strips HTML/script content from the response before running any
// lexicon or regex scan, so markup can't be used to smuggle flagged text
// past the heuristics.
type Validator struct {
	Lexicon  Lexicon
	sanitize *bluemonday.Policy
}

// New builds a Validator. A zero-value Lexicon means "use defaults".
func New(lex Lexicon) *Validator {
	if len(lex.ToxicTerms) == 0 && len(lex.UniversalQuantifiers) == 0 {
		lex = DefaultLexicon()
	}
	return &Validator{Lexicon: lex, sanitize: bluemonday.StrictPolicy()}
}

// Validate computes the full Response Quality vector, Safety Flags and
// Source Attribution for one turn. Missing knowledge never fails
// validation; it lowers grounding/attribution and raises
// hallucination_risk instead.
func (v *Validator) Validate(response string, knowledge []conversation.RetrievedKnowledgeItem, query string, recentAssistant []string) Result {
	clean := v.sanitize.Sanitize(response)

	grounding := v.factualGrounding(clean, knowledge)
	coherence := v.coherence(clean)
	consistency := v.consistency(clean, recentAssistant)
	relevance := v.relevance(clean, query, knowledge)
	toxicity := v.toxicity(clean)
	bias := v.bias(clean)
	safety := (toxicity + bias) / 2
	attribution, sourceAttrScore := v.sourceAttribution(clean, knowledge)
	completeness := v.completeness(clean, query)
	clarity := v.clarity(clean)
	hallucination := v.hallucinationRisk(clean, knowledge)
	calibration := v.confidenceCalibration(clean, knowledge)

	vec := Vector{
		FactualGrounding:      grounding,
		Coherence:             coherence,
		Relevance:             relevance,
		SafetyScore:           safety,
		SourceAttribution:     sourceAttrScore,
		ConsistencyScore:      consistency,
		Completeness:          completeness,
		Clarity:               clarity,
		Toxicity:              toxicity,
		Bias:                  bias,
		HallucinationRisk:     hallucination,
		ConfidenceCalibration: calibration,
	}

	flags := v.safetyFlags(clean, toxicity, bias)

	return Result{Quality: vec, Flags: flags, Attribution: attribution, ScoredAt: time.Now()}
}

func (v *Validator) factualGrounding(response string, knowledge []conversation.RetrievedKnowledgeItem) float64 {
	if len(knowledge) == 0 {
		return 0.5
	}
	var numerator, denominator float64
	for _, item := range knowledge {
		influence := textsim.Jaccard(response, item.Content) * item.Relevance
		reliability := sourceReliability(item.SourceType)
		numerator += influence * reliability * item.Relevance
		denominator += influence
	}
	if denominator == 0 {
		return 0.5
	}
	return clamp01(numerator / denominator)
}

func (v *Validator) coherence(response string) float64 {
	sentences := splitSentences(response)
	if len(sentences) <= 1 {
		return 0.7
	}
	var total float64
	for i := 1; i < len(sentences); i++ {
		total += textsim.Jaccard(sentences[i-1], sentences[i])
	}
	return clamp01(total / float64(len(sentences)-1))
}

func (v *Validator) consistency(response string, recentAssistant []string) float64 {
	if len(recentAssistant) == 0 {
		return 0.8
	}
	var total float64
	for _, prior := range recentAssistant {
		total += textsim.Jaccard(response, prior)
	}
	return clamp01(total / float64(len(recentAssistant)))
}

func (v *Validator) relevance(response, query string, knowledge []conversation.RetrievedKnowledgeItem) float64 {
	simToQuery := textsim.Jaccard(response, query)
	var knowledgeAlignment float64
	if len(knowledge) > 0 {
		var total float64
		for _, item := range knowledge {
			total += textsim.Jaccard(response, item.Content)
		}
		knowledgeAlignment = total / float64(len(knowledge))
	}
	return clamp01(0.4*simToQuery + 0.6*knowledgeAlignment)
}

func (v *Validator) toxicity(response string) float64 {
	matched := countTerms(response, v.Lexicon.ToxicTerms)
	return clamp01(1 - minFloat(1, 0.25*float64(matched)))
}

func (v *Validator) bias(response string) float64 {
	matched := countTerms(response, v.Lexicon.UniversalQuantifiers)
	return clamp01(1 - minFloat(0.5, 0.11*float64(matched)))
}

func (v *Validator) sourceAttribution(response string, knowledge []conversation.RetrievedKnowledgeItem) ([]Attribution, float64) {
	if len(knowledge) == 0 {
		return nil, 0.5
	}
	attributions := make([]Attribution, 0, len(knowledge))
	matchedCount := 0
	sourceTypes := make(map[conversation.SourceType]bool)

	for _, item := range knowledge {
		sourceTypes[item.SourceType] = true
		phrases := textsim.NGrams(item.Content, 3)
		var used []string
		for _, phrase := range phrases {
			if textsim.ContainsFold(response, phrase) {
				used = append(used, phrase)
			}
		}
		if len(used) > 0 {
			matchedCount++
		}
		attributions = append(attributions, Attribution{
			SourceID:       item.SourceID,
			SourceType:     sourceLabel(item.SourceType),
			UsedInResponse: used,
			MatchedPhrases: len(used),
		})
	}

	completeness := float64(matchedCount) / float64(len(knowledge))
	diversity := float64(len(sourceTypes)) / float64(len(knowledge))
	return attributions, clamp01(0.7*completeness + 0.3*diversity)
}

func (v *Validator) completeness(response, query string) float64 {
	words := contentWords(query)
	if len(words) == 0 {
		return 1.0
	}
	addressed := 0
	for _, w := range words {
		if textsim.ContainsFold(response, w) {
			addressed++
		}
	}
	return clamp01(float64(addressed) / float64(len(words)))
}

func (v *Validator) clarity(response string) float64 {
	sentences := splitSentences(response)
	if len(sentences) == 0 {
		return 0.5
	}
	var totalWords int
	for _, s := range sentences {
		totalWords += len(textsim.Tokenize(s))
	}
	mean := float64(totalWords) / float64(len(sentences))
	switch {
	case mean > 30:
		return clamp01(1 - (mean-30)/30)
	case mean < 5:
		return clamp01(mean / 5)
	default:
		return 1.0
	}
}

func (v *Validator) hallucinationRisk(response string, knowledge []conversation.RetrievedKnowledgeItem) float64 {
	facts := findSpecificFacts(response)
	if len(facts) == 0 {
		return 0.2
	}
	supported := 0
	for _, fact := range facts {
		for _, item := range knowledge {
			if strings.Contains(item.Content, fact) {
				supported++
				break
			}
		}
	}
	return clamp01(1 - float64(supported)/float64(len(facts)))
}

func (v *Validator) confidenceCalibration(response string, knowledge []conversation.RetrievedKnowledgeItem) float64 {
	expressed := expressedConfidence(response, v.Lexicon)
	var avgRelevance float64
	if len(knowledge) > 0 {
		var total float64
		for _, item := range knowledge {
			total += item.Relevance
		}
		avgRelevance = total / float64(len(knowledge))
	}
	diff := expressed - avgRelevance
	if diff < 0 {
		diff = -diff
	}
	return clamp01(1 - diff)
}

func (v *Validator) safetyFlags(response string, toxicity, bias float64) Flags {
	harmful := countTerms(response, v.Lexicon.HarmfulTerms) > 0
	var matchedTerms []string
	matchedTerms = append(matchedTerms, matchingTerms(response, v.Lexicon.ToxicTerms)...)
	matchedTerms = append(matchedTerms, matchingTerms(response, v.Lexicon.UniversalQuantifiers)...)
	matchedTerms = append(matchedTerms, matchingTerms(response, v.Lexicon.HarmfulTerms)...)

	personalInfo := false
	for _, pattern := range v.Lexicon.PersonalInfoPatterns {
		if pattern.MatchString(response) {
			personalInfo = true
			break
		}
	}

	var risk RiskLevel
	switch {
	case harmful || personalInfo:
		if personalInfo {
			risk = RiskHigh
		} else {
			risk = RiskCritical
		}
	case toxicity < 0.8 || bias < 0.8:
		risk = RiskMedium
	default:
		risk = RiskLow
	}

	var recommendations []string
	if risk >= RiskMedium {
		recommendations = append(recommendations, "review response before surfacing to the end user")
	}

	return Flags{
		Harmful:         harmful,
		PersonalInfo:    personalInfo,
		Misinformation:  false,
		BiasFlag:        bias < 0.8,
		Inappropriate:   harmful || toxicity < 0.5,
		RiskLevel:       risk,
		FlaggedTerms:    matchedTerms,
		Recommendations: recommendations,
	}
}

func sourceLabel(s conversation.SourceType) string {
	switch s {
	case conversation.SourceSemantic:
		return "semantic"
	case conversation.SourceConceptGraph:
		return "concept-graph"
	case conversation.SourceEpisodic:
		return "episodic"
	case conversation.SourceThread:
		return "thread"
	case conversation.SourcePattern:
		return "pattern"
	case conversation.SourceWorking:
		return "working"
	default:
		return "unknown"
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

var sentenceSplit = regexp.MustCompile(`[.!?]+\s*`)

func splitSentences(s string) []string {
	parts := sentenceSplit.Split(strings.TrimSpace(s), -1)
	out := parts[:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}

func contentWords(s string) []string {
	var out []string
	for _, w := range textsim.Tokenize(s) {
		if len(w) > 3 {
			out = append(out, w)
		}
	}
	return out
}

func countTerms(response string, terms []string) int {
	count := 0
	for _, t := range terms {
		if textsim.ContainsFold(response, t) {
			count++
		}
	}
	return count
}

func matchingTerms(response string, terms []string) []string {
	var out []string
	for _, t := range terms {
		if textsim.ContainsFold(response, t) {
			out = append(out, t)
		}
	}
	return out
}

func findSpecificFacts(response string) []string {
	var facts []string
	for _, pattern := range specificFactPatterns {
		facts = append(facts, pattern.FindAllString(response, -1)...)
	}
	return facts
}

func expressedConfidence(response string, lex Lexicon) float64 {
	hedges := countTerms(response, lex.HedgePhrases)
	certainty := countTerms(response, lex.CertaintyPhrases)
	if hedges == 0 && certainty == 0 {
		return 0.5
	}
	return clamp01(float64(certainty) / float64(hedges+certainty))
}
