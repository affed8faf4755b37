package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkingEvictsLowestScoringWhenFull(t *testing.T) {
	w := NewWorking(2)
	a := w.Insert("first", Low, 0.1)
	w.Insert("second", High, 0.9)
	w.Insert("third", Critical, 0.95)

	all := w.All()
	require.Len(t, all, 2)
	for _, it := range all {
		assert.NotEqual(t, a.ID, it.ID, "lowest-scoring item should have been evicted")
	}
}

func TestWorkingQueryOrdering(t *testing.T) {
	w := NewWorking(10)
	w.Insert("alpha topic", Medium, 0.3)
	w.Insert("beta topic", Medium, 0.9)

	results := w.Query("topic", 0, 0)
	require.Len(t, results, 2)
	assert.Equal(t, "beta topic", results[0].Content)
}

func TestEpisodicQueryByPatternAndTimeRange(t *testing.T) {
	e := NewEpisodic()
	e.Append("rust ownership model", 0.5)
	e.Append("unrelated note", 0.5)

	results := e.Query("rust", time.Time{}, time.Time{}, 0, 0)
	require.Len(t, results, 1)
	assert.Contains(t, results[0].Content, "rust")
}

func TestSemanticUpsertIsIdempotentAndMonotonic(t *testing.T) {
	s := NewSemantic()
	first := s.Upsert("rust", "a systems language", 0.2)
	second := s.Upsert("rust", "a systems language", 0.2)

	assert.Equal(t, first.ID, second.ID)
	assert.GreaterOrEqual(t, second.Confidence, first.Confidence)

	got, ok := s.Get("rust")
	require.True(t, ok)
	assert.Equal(t, first.ID, got.ID)
}

func TestConsolidationPromotesQualifyingWorkingItems(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinAccessCount = 1
	cfg.MinImportance = 0.5
	tiers := New(cfg)

	item := tiers.Working.Insert("ownership prevents data races in rust", Medium, 0.8)
	tiers.Working.Touch(item.ID)

	require.NoError(t, tiers.Consolidate(context.Background()))

	hits := tiers.Semantic.Query("ownership", 0)
	require.NotEmpty(t, hits)

	before := hits[0].Confidence
	require.NoError(t, tiers.Consolidate(context.Background()))
	hits = tiers.Semantic.Query("ownership", 0)
	require.NotEmpty(t, hits)
	assert.GreaterOrEqual(t, hits[0].Confidence, before)
}

func TestLearnTriggersAutomaticConsolidation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ConsolidateEvery = 1
	cfg.MinAccessCount = 0
	cfg.MinImportance = 0.1
	tiers := New(cfg)

	tiers.Learn(context.Background(), "a fact worth remembering", Medium, 0.9)

	assert.Eventually(t, func() bool {
		return len(tiers.Semantic.Query("", 0)) > 0
	}, time.Second, 10*time.Millisecond)
}
