package generator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cognitron/cognitron/cerr"
	"github.com/cognitron/cognitron/conversation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	lastPrompt    string
	lastMaxTokens int
	lastTemp      float64
	response      string
	err           error
}

func (s *stubProvider) Generate(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	s.lastPrompt = prompt
	s.lastMaxTokens = maxTokens
	s.lastTemp = temperature
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func TestGenerateEnforcesConfiguredBounds(t *testing.T) {
	stub := &stubProvider{response: "hello"}
	cfg := DefaultConfig()
	cfg.MaxTokens = 256
	cfg.Temperature = 0.2
	adapter := New(stub, cfg)

	text, err := adapter.Generate(context.Background(), "prompt text")
	require.NoError(t, err)
	assert.Equal(t, "hello", text)
	assert.Equal(t, 256, stub.lastMaxTokens)
	assert.Equal(t, 0.2, stub.lastTemp)
	assert.Equal(t, "prompt text", stub.lastPrompt)
}

func TestGenerateSurfacesProviderFailureAsUpstreamError(t *testing.T) {
	stub := &stubProvider{err: errors.New("upstream returned 503: rate limited")}
	adapter := New(stub, DefaultConfig())

	_, err := adapter.Generate(context.Background(), "prompt text")
	require.Error(t, err)
	assert.True(t, cerr.Is(err, cerr.Upstream))
}

func TestBuildPromptIndexesKnowledgeAndBoundsHistory(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HistoryWindow = 2

	history := []conversation.Message{
		{ID: "1", Role: conversation.User, Content: "first"},
		{ID: "2", Role: conversation.Assistant, Content: "second"},
		{ID: "3", Role: conversation.User, Content: "third"},
	}
	knowledge := []conversation.RetrievedKnowledgeItem{
		{Content: "rust is memory safe", SourceType: conversation.SourceSemantic, Relevance: 0.8, Timestamp: time.Now()},
	}

	prompt := BuildPrompt(cfg, "what about rust?", history, knowledge)

	assert.Contains(t, prompt, "[1] (semantic, relevance=0.80) rust is memory safe")
	assert.NotContains(t, prompt, "first")
	assert.Contains(t, prompt, "second")
	assert.Contains(t, prompt, "third")
	assert.Contains(t, prompt, "user: what about rust?")
}

func TestBuildPromptAppliesSystemPromptOverrides(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SystemPromptOverrides = []string{"Respond in formal tone."}

	prompt := BuildPrompt(cfg, "hi", nil, nil)
	assert.Contains(t, prompt, "Respond in formal tone.")
}
