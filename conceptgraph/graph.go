package conceptgraph

import (
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Graph is an in-memory, mutex-guarded concept graph. Writers serialize
// globally; reads may run concurrently, matching the concurrency model's
// rule for this component.
type Graph struct {
	mu       sync.RWMutex
	nodes    map[string]*Node
	outEdges map[string][]*Edge
	inEdges  map[string][]*Edge
	typeIdx  map[NodeType][]string
}

// New creates an empty concept graph.
func New() *Graph {
	return &Graph{
		nodes:    make(map[string]*Node),
		outEdges: make(map[string][]*Edge),
		inEdges:  make(map[string][]*Edge),
		typeIdx:  make(map[NodeType][]string),
	}
}

// AddNode creates a node and returns its opaque id.
func (g *Graph) AddNode(nodeType NodeType, content string, confidence float64, source string) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	id := uuid.NewString()
	g.nodes[id] = &Node{
		ID:         id,
		Type:       nodeType,
		Content:    content,
		Confidence: clamp01(confidence),
		Source:     source,
	}
	g.typeIdx[nodeType] = append(g.typeIdx[nodeType], id)
	return id
}

// AddEdge adds a directed, weighted, typed relationship.
func (g *Graph) AddEdge(source, target, relation string, weight float64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	e := &Edge{Source: source, Target: target, Relation: relation, Weight: clamp01(weight)}
	g.outEdges[source] = append(g.outEdges[source], e)
	g.inEdges[target] = append(g.inEdges[target], e)
}

// Node looks up a node by id.
func (g *Graph) Node(id string) (*Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.nodes[id]
	return n, ok
}

// Query returns nodes matching the given filters. Content match is a
// case-insensitive substring predicate by default.
func (g *Graph) Query(q Query) []*Node {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var candidates []*Node
	if q.Type != nil {
		for _, id := range g.typeIdx[*q.Type] {
			if n, ok := g.nodes[id]; ok {
				candidates = append(candidates, n)
			}
		}
	} else {
		for _, n := range g.nodes {
			candidates = append(candidates, n)
		}
	}

	pattern := strings.ToLower(q.Pattern)
	var out []*Node
	for _, n := range candidates {
		if pattern != "" && !strings.Contains(strings.ToLower(n.Content), pattern) {
			continue
		}
		if n.Confidence < q.MinConfidence {
			continue
		}
		if q.MaxConfidence > 0 && n.Confidence > q.MaxConfidence {
			continue
		}
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return out[i].ID < out[j].ID
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}

// FindByContent returns node ids whose content contains pattern
// case-insensitively, used to seed traversals from a segmented message.
func (g *Graph) FindByContent(pattern string) []string {
	nodes := g.Query(Query{Pattern: pattern})
	ids := make([]string, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID
	}
	return ids
}

// State is the full exported contents of a Graph, used to snapshot and
// restore it across process restarts.
type State struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Export returns a point-in-time copy of every node and edge.
func (g *Graph) Export() State {
	g.mu.RLock()
	defer g.mu.RUnlock()

	state := State{Nodes: make([]Node, 0, len(g.nodes))}
	for _, n := range g.nodes {
		state.Nodes = append(state.Nodes, *n)
	}
	sort.Slice(state.Nodes, func(i, j int) bool { return state.Nodes[i].ID < state.Nodes[j].ID })

	for _, edges := range g.outEdges {
		for _, e := range edges {
			state.Edges = append(state.Edges, *e)
		}
	}
	sort.Slice(state.Edges, func(i, j int) bool {
		if state.Edges[i].Source != state.Edges[j].Source {
			return state.Edges[i].Source < state.Edges[j].Source
		}
		return state.Edges[i].Target < state.Edges[j].Target
	})
	return state
}

// Import rebuilds the graph from a previously exported State, replacing
// any existing contents. Node ids are preserved rather than reassigned,
// so edges referencing them stay valid.
func (g *Graph) Import(state State) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.nodes = make(map[string]*Node, len(state.Nodes))
	g.outEdges = make(map[string][]*Edge)
	g.inEdges = make(map[string][]*Edge)
	g.typeIdx = make(map[NodeType][]string)

	for i := range state.Nodes {
		n := state.Nodes[i]
		g.nodes[n.ID] = &n
		g.typeIdx[n.Type] = append(g.typeIdx[n.Type], n.ID)
	}
	for i := range state.Edges {
		e := state.Edges[i]
		g.outEdges[e.Source] = append(g.outEdges[e.Source], &e)
		g.inEdges[e.Target] = append(g.inEdges[e.Target], &e)
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
