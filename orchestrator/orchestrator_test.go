package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/cognitron/cognitron/conceptgraph"
	"github.com/cognitron/cognitron/conversation"
	"github.com/cognitron/cognitron/generator"
	"github.com/cognitron/cognitron/memory"
	"github.com/cognitron/cognitron/pattern"
	"github.com/cognitron/cognitron/quality"
	"github.com/cognitron/cognitron/retrieval"
	"github.com/cognitron/cognitron/segment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	response string
	delay    time.Duration
	err      error
}

func (s *stubProvider) Generate(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func newTestOrchestrator(t *testing.T, provider generator.Provider, cfg Config) *Orchestrator {
	t.Helper()
	seg := segment.New(segment.DefaultConfig(), nil)
	graph := conceptgraph.New()
	tiers := memory.New(memory.DefaultConfig())
	detector := pattern.New(2)

	planner := retrieval.New(seg, graph, tiers, detector, nil)
	gen := generator.New(provider, generator.DefaultConfig())
	validator := quality.New(quality.Lexicon{})

	return New(planner, gen, validator, tiers, nil, nil, cfg)
}

func TestTurnAppendsMessagesAndWritesBackToMemory(t *testing.T) {
	o := newTestOrchestrator(t, &stubProvider{response: "Hello! How can I help?"}, DefaultConfig())
	convCtx := &conversation.Context{ConversationID: "c1"}

	result, err := o.Turn(context.Background(), "hello", convCtx, retrieval.DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, "Hello! How can I help?", result.Response)
	assert.Len(t, convCtx.Messages, 2)
	assert.Equal(t, conversation.User, convCtx.Messages[0].Role)
	assert.Equal(t, conversation.Assistant, convCtx.Messages[1].Role)
}

func TestTurnSurfacesGenerateStageTimeout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timeouts.Generate = 10 * time.Millisecond
	o := newTestOrchestrator(t, &stubProvider{response: "too slow", delay: 100 * time.Millisecond}, cfg)
	convCtx := &conversation.Context{ConversationID: "c2"}

	_, err := o.Turn(context.Background(), "hello", convCtx, retrieval.DefaultConfig())
	require.Error(t, err)
	assert.Empty(t, convCtx.Messages, "neither the user nor an assistant message should be committed on a discarded turn")
}

func TestTurnExceedingConcurrencyCapReturnsResourceExhausted(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxConcurrentTurns = 1
	o := newTestOrchestrator(t, &stubProvider{response: "ok", delay: 50 * time.Millisecond}, cfg)

	errCh := make(chan error, 2)
	go func() {
		_, err := o.Turn(context.Background(), "first", &conversation.Context{ConversationID: "a"}, retrieval.DefaultConfig())
		errCh <- err
	}()
	time.Sleep(10 * time.Millisecond)
	go func() {
		_, err := o.Turn(context.Background(), "second", &conversation.Context{ConversationID: "b"}, retrieval.DefaultConfig())
		errCh <- err
	}()

	first := <-errCh
	second := <-errCh
	assert.True(t, (first == nil) != (second == nil), "exactly one turn should be rejected while the other succeeds")
}
