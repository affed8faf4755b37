package retrieval

import (
	"context"
	"testing"

	"github.com/cognitron/cognitron/conceptgraph"
	"github.com/cognitron/cognitron/conversation"
	"github.com/cognitron/cognitron/memory"
	"github.com/cognitron/cognitron/pattern"
	"github.com/cognitron/cognitron/segment"
	"github.com/stretchr/testify/assert"
)

func newTestPlanner() *Planner {
	seg := segment.New(segment.DefaultConfig(), nil)
	seg.Initialize("rust ownership rust ownership rust memory safety")
	_ = seg.Train()

	graph := conceptgraph.New()
	tiers := memory.New(memory.DefaultConfig())
	detector := pattern.New(2)

	return New(seg, graph, tiers, detector, nil)
}

func TestPlanOnEmptyMessageReturnsEmpty(t *testing.T) {
	p := newTestPlanner()
	results := p.Plan(context.Background(), "", &conversation.Context{}, DefaultConfig())
	assert.Empty(t, results)
}

func TestPlanResultsRespectMinRelevance(t *testing.T) {
	p := newTestPlanner()
	p.Memory.Semantic.Upsert("rust", "Rust is a systems language emphasizing memory safety", 0.9)

	cfg := DefaultConfig()
	cfg.MinRelevance = 0.05
	results := p.Plan(context.Background(), "what do you know about rust memory safety?", &conversation.Context{}, cfg)
	for _, r := range results {
		assert.GreaterOrEqual(t, r.Relevance, cfg.MinRelevance)
	}
}

func TestPlanIsDeterministicAcrossCalls(t *testing.T) {
	p := newTestPlanner()
	p.Memory.Semantic.Upsert("rust", "Rust is a systems language emphasizing memory safety", 0.9)

	cfg := DefaultConfig()
	cfg.MinRelevance = 0.05
	first := p.Plan(context.Background(), "tell me about rust", &conversation.Context{}, cfg)
	second := p.Plan(context.Background(), "tell me about rust", &conversation.Context{}, cfg)

	assert.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Content, second[i].Content)
	}
}
