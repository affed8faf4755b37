package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsCollectorAggregatesCountsAndLatency(t *testing.T) {
	c := NewMetricsCollector()

	c.RecordOperation("retrieval", "plan", 10*time.Millisecond, true)
	c.RecordOperation("retrieval", "plan", 20*time.Millisecond, true)
	c.RecordOperation("retrieval", "plan", 30*time.Millisecond, false)

	snap := c.Snapshot()
	require.Contains(t, snap, "retrieval")

	metrics := snap["retrieval"]
	assert.Equal(t, int64(3), metrics.TotalOperations)
	assert.Equal(t, int64(2), metrics.SuccessfulOperations)
	assert.Equal(t, int64(1), metrics.FailedOperations)
	assert.InDelta(t, 20.0, metrics.AverageDurationMs, 1e-9)
	assert.InDelta(t, 10.0, metrics.MinDurationMs, 1e-9)
	assert.InDelta(t, 30.0, metrics.MaxDurationMs, 1e-9)
	assert.InDelta(t, 100.0/3.0, metrics.ErrorRatePercent, 1e-9)

	op := metrics.OperationBreakdown["plan"]
	assert.Equal(t, int64(3), op.Count)
}

func TestMetricsCollectorSeparatesComponents(t *testing.T) {
	c := NewMetricsCollector()
	c.RecordOperation("retrieval", "plan", time.Millisecond, true)
	c.RecordOperation("generator", "generate", time.Millisecond, true)

	snap := c.Snapshot()
	assert.Len(t, snap, 2)
	assert.Contains(t, snap, "retrieval")
	assert.Contains(t, snap, "generator")
}

func TestMetricsCollectorImplementsCollectorInterface(t *testing.T) {
	c := NewMetricsCollector()
	var collector Collector = c

	require.NoError(t, collector.Collect(context.Background(), Interaction{
		ConversationID: "conv-1",
		Duration:       5 * time.Millisecond,
	}))

	snap := c.Snapshot()
	require.Contains(t, snap, "orchestrator")
	assert.Equal(t, int64(1), snap["orchestrator"].TotalOperations)
	assert.Equal(t, int64(1), snap["orchestrator"].SuccessfulOperations)
}
