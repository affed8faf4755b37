// Package telemetry defines the training-data collector contract: an
// external collaborator the pipeline orchestrator may optionally hand
// completed turns to. MetricsCollector is the one concrete collector the
// platform ships; callers wire in another when they have somewhere to
// send turns.
package telemetry

import (
	"context"
	"time"
)

// Interaction is the minimal record handed to a collector after a turn
// completes successfully.
type Interaction struct {
	ConversationID  string
	Query           string
	Response        string
	ConfidenceScore float64
	OccurredAt      time.Time
	Duration        time.Duration
}

// Collector receives completed interactions for offline use (fine-tuning
// data collection, analytics, audit). Collect must not block the turn
// for long; the orchestrator treats it as fire-and-forget.
type Collector interface {
	Collect(ctx context.Context, interaction Interaction) error
}

// NoOpCollector discards every interaction. It's the default when no
// collector is configured.
type NoOpCollector struct{}

func (NoOpCollector) Collect(ctx context.Context, interaction Interaction) error { return nil }
