package telemetry

import (
	"context"
	"sync"
	"time"
)

// OperationMetrics aggregates timing and outcome counts for one named
// operation within a component, mirroring the running-average update
// performance_monitor.rs's OperationMetrics::record_operation does: no
// history is kept, just count/min/max/average updated in place.
type OperationMetrics struct {
	Count             int64
	SuccessCount      int64
	FailureCount      int64
	AverageDurationMs float64
	MinDurationMs     float64
	MaxDurationMs     float64
}

func (m *OperationMetrics) record(duration time.Duration, success bool) {
	durationMs := float64(duration) / float64(time.Millisecond)

	m.Count++
	if success {
		m.SuccessCount++
	} else {
		m.FailureCount++
	}

	m.AverageDurationMs = (m.AverageDurationMs*float64(m.Count-1) + durationMs) / float64(m.Count)
	if m.Count == 1 || durationMs < m.MinDurationMs {
		m.MinDurationMs = durationMs
	}
	if durationMs > m.MaxDurationMs {
		m.MaxDurationMs = durationMs
	}
}

// ComponentMetrics is the per-component rollup returned by Snapshot:
// totals across every operation plus a breakdown by operation name.
type ComponentMetrics struct {
	TotalOperations    int64
	SuccessfulOperations int64
	FailedOperations   int64
	AverageDurationMs  float64
	MinDurationMs      float64
	MaxDurationMs      float64
	ErrorRatePercent   float64
	OperationBreakdown map[string]OperationMetrics
	LastUpdated        time.Time
}

type componentState struct {
	total      OperationMetrics
	operations map[string]*OperationMetrics
	lastUpdate time.Time
}

// MetricsCollector records per-component, per-operation call counts,
// success rates, and latency, grounded on
// original_source/crates/brain-infra/src/performance_monitor.rs's
// ComponentPerformanceTracker/ComponentPerformanceMetrics. It satisfies
// telemetry.Collector so it can also sit in Orchestrator.Collector and
// record completed turns as the "orchestrator" component's "turn"
// operation.
type MetricsCollector struct {
	mu         sync.Mutex
	components map[string]*componentState
}

// NewMetricsCollector builds an empty MetricsCollector.
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{components: make(map[string]*componentState)}
}

// RecordOperation records one timed call to component/operation.
func (c *MetricsCollector) RecordOperation(component, operation string, duration time.Duration, success bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	state, ok := c.components[component]
	if !ok {
		state = &componentState{operations: make(map[string]*OperationMetrics)}
		c.components[component] = state
	}

	state.total.record(duration, success)
	op, ok := state.operations[operation]
	if !ok {
		op = &OperationMetrics{}
		state.operations[operation] = op
	}
	op.record(duration, success)
	state.lastUpdate = time.Now()
}

// Collect implements telemetry.Collector, recording a completed turn as
// the orchestrator component's "turn" operation.
func (c *MetricsCollector) Collect(ctx context.Context, interaction Interaction) error {
	c.RecordOperation("orchestrator", "turn", interaction.Duration, true)
	return nil
}

// Snapshot returns a point-in-time copy of every component's metrics.
func (c *MetricsCollector) Snapshot() map[string]ComponentMetrics {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[string]ComponentMetrics, len(c.components))
	for name, state := range c.components {
		breakdown := make(map[string]OperationMetrics, len(state.operations))
		for op, m := range state.operations {
			breakdown[op] = *m
		}
		errorRate := 0.0
		if state.total.Count > 0 {
			errorRate = float64(state.total.FailureCount) / float64(state.total.Count) * 100
		}
		out[name] = ComponentMetrics{
			TotalOperations:      state.total.Count,
			SuccessfulOperations: state.total.SuccessCount,
			FailedOperations:     state.total.FailureCount,
			AverageDurationMs:    state.total.AverageDurationMs,
			MinDurationMs:        state.total.MinDurationMs,
			MaxDurationMs:        state.total.MaxDurationMs,
			ErrorRatePercent:     errorRate,
			OperationBreakdown:   breakdown,
			LastUpdated:          state.lastUpdate,
		}
	}
	return out
}
