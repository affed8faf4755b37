// Package retrieval implements the Retrieval Planner (C5): the pipeline
// centerpiece that composes the segment engine, memory tiers, concept
// graph, and pattern detector into a ranked set of retrieved knowledge
// items for a query.
package retrieval

// Config tunes a single Plan invocation. WConcept, WTemporal, and
// WPersonal are expected to sum to 1.
type Config struct {
	MaxDepth             int
	MaxConceptsPerLayer  int
	MinRelevance         float64
	WConcept             float64
	WTemporal            float64
	WPersonal            float64
	EnablePersonalization bool
	EnableThreads        bool
	EnablePatterns       bool
	Limit                int
	RecencyWindowDays    int
	MinActivation        float64
}

// DefaultConfig matches the worked examples in the component design.
func DefaultConfig() Config {
	return Config{
		MaxDepth:              3,
		MaxConceptsPerLayer:   10,
		MinRelevance:          0.2,
		WConcept:              0.4,
		WTemporal:             0.3,
		WPersonal:             0.3,
		EnablePersonalization: true,
		EnableThreads:         true,
		EnablePatterns:        true,
		Limit:                 10,
		RecencyWindowDays:     30,
		MinActivation:         0.05,
	}
}
