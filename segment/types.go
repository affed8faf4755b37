// Package segment implements the BPE-like segment discovery engine (C1):
// a vocabulary of variable-length recurring units with frequency, entropy,
// and confidence statistics, a prune/archive/restore lifecycle, and
// timestamped-backup persistence.
package segment

import "time"

// Pair is an unordered-by-construction pair of adjacent segments
// considered for merging.
type Pair struct {
	Left, Right string
}

func (p Pair) Merged() string { return p.Left + p.Right }

// Stats is a single segment's full statistics record, matching the
// persistence schema in full: content, length, frequency, timestamps,
// access count, confidence, entropy, context stability, archival state,
// and optional merge provenance.
type Stats struct {
	Segment          string
	Length           int
	Frequency        int
	Confidence       float64
	Entropy          float64
	ContextStability float64
	CreatedAt        time.Time
	LastAccessed     time.Time
	LastModified     time.Time
	AccessCount      int
	IsArchived       bool
	FormedFrom       *Pair
	MergeStep        int
}

// Config tunes the training and pruning behavior of an Engine.
type Config struct {
	MinFrequency        int
	MaxVocabSize         int
	NumMerges            int
	ContextWindowSize    int
	MinEntropyThreshold  float64
	MinConfidence        float64
	EnableAdvancedHeuristics bool
	Pruning              PruningConfig
	AutoSaveInterval     time.Duration
	MaxBackups           int
}

// PruningConfig parameterizes the pruning predicate in the spec's data
// model: a segment is a candidate iff it is not archived AND
// (confidence<MinConfidence AND age>MinAge) OR (inactivity>MaxInactivity
// AND accessCount<MinAccessCount), or the hard cap is exceeded.
type PruningConfig struct {
	MinConfidence   float64
	MinAge          time.Duration
	MaxInactivity   time.Duration
	MinAccessCount  int
	MaxActiveSegments int
}

// DefaultConfig matches the teacher's BpeConfig defaults, adjusted to Go
// idiom (durations instead of raw seconds).
func DefaultConfig() Config {
	return Config{
		MinFrequency:             2,
		MaxVocabSize:             10000,
		NumMerges:                1000,
		ContextWindowSize:        3,
		MinEntropyThreshold:      0.5,
		MinConfidence:            0.3,
		EnableAdvancedHeuristics: true,
		Pruning: PruningConfig{
			MinConfidence:     0.3,
			MinAge:            7 * 24 * time.Hour,
			MaxInactivity:     30 * 24 * time.Hour,
			MinAccessCount:    2,
			MaxActiveSegments: 10000,
		},
		AutoSaveInterval: 10 * time.Minute,
		MaxBackups:       5,
	}
}
