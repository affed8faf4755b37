// Package orchestrator implements the Unified Cognitive Pipeline (C8): it
// drives one conversational turn through retrieval, generation, and
// quality validation, then writes the result back into memory. Turns on
// distinct conversations run concurrently; turns on the same conversation
// are serialized.
package orchestrator

import (
	"time"

	"github.com/cognitron/cognitron/conversation"
	"github.com/cognitron/cognitron/quality"
)

// StageTimeouts configures the per-stage deadlines described in the
// concurrency model. A zero duration means "no deadline" for that stage.
type StageTimeouts struct {
	Retrieval time.Duration
	Generate  time.Duration
	Validate  time.Duration
}

// DefaultStageTimeouts matches the worked examples: generous but bounded
// per-stage budgets.
func DefaultStageTimeouts() StageTimeouts {
	return StageTimeouts{
		Retrieval: 5 * time.Second,
		Generate:  30 * time.Second,
		Validate:  5 * time.Second,
	}
}

// Config bundles the orchestrator's tunables.
type Config struct {
	Timeouts       StageTimeouts
	MaxConcurrentTurns int
}

// DefaultConfig matches the worked examples.
func DefaultConfig() Config {
	return Config{Timeouts: DefaultStageTimeouts(), MaxConcurrentTurns: 16}
}

// TurnResult is what a completed turn hands back to the caller.
type TurnResult struct {
	Response        string
	ContextUsed     []conversation.RetrievedKnowledgeItem
	ConfidenceScore float64
	Quality         quality.Vector
	Flags           quality.Flags
}
