package conceptgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryFiltersByPatternAndConfidence(t *testing.T) {
	g := New()
	g.AddNode(Entity, "Rust programming language", 0.9, "")
	g.AddNode(Entity, "Go programming language", 0.2, "")

	results := g.Query(Query{Pattern: "programming", MinConfidence: 0.5})
	require.Len(t, results, 1)
	assert.Contains(t, results[0].Content, "Rust")
}

func TestBFSRespectsDepthAndNodeCap(t *testing.T) {
	g := New()
	seed := g.AddNode(Entity, "seed", 1.0, "")
	prev := seed
	for i := 0; i < 10; i++ {
		next := g.AddNode(Entity, "node", 1.0, "")
		g.AddEdge(prev, next, "related", 1.0)
		prev = next
	}

	result := g.BFS(seed, 3, 50, 0.1)
	assert.LessOrEqual(t, len(result.Visited), 50)
	for _, d := range result.Depth {
		assert.LessOrEqual(t, d, 3)
	}
}

func TestBFSFromNonExistentSeedIsEmptyNotError(t *testing.T) {
	g := New()
	result := g.BFS("missing", 3, 10, 0.0)
	assert.Empty(t, result.Visited)
}

func TestSpreadingActivationCapsAtMaxNodes(t *testing.T) {
	g := New()
	seed := g.AddNode(Entity, "seed", 1.0, "")
	for i := 0; i < 1000; i++ {
		target := g.AddNode(Entity, "reachable", 1.0, "")
		g.AddEdge(seed, target, "related", 1.0)
	}

	result := g.SpreadingActivation(seed, 3, 50, 0.1)
	assert.LessOrEqual(t, len(result.Visited), 50)
	for _, d := range result.Depth {
		assert.LessOrEqual(t, d, 3)
	}
}

func TestSpreadingActivationHandlesCycles(t *testing.T) {
	g := New()
	a := g.AddNode(Entity, "a", 1.0, "")
	b := g.AddNode(Entity, "b", 1.0, "")
	g.AddEdge(a, b, "related", 0.9)
	g.AddEdge(b, a, "related", 0.9)

	result := g.SpreadingActivation(a, 5, 10, 0.01)
	assert.Contains(t, result.Visited, b)
	assert.LessOrEqual(t, len(result.Visited), 10)
}
