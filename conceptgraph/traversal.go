package conceptgraph

import "sort"

// BFS traverses breadth-first up to maxDepth hops, at most maxNodes
// visited, following only edges whose weight is at least minWeight.
// Traversal from a non-existent seed returns an empty result, not an
// error. Cycles are handled by the visited set, never by recursion depth.
func (g *Graph) BFS(seed string, maxDepth, maxNodes int, minWeight float64) *TraversalResult {
	g.mu.RLock()
	defer g.mu.RUnlock()

	result := &TraversalResult{
		Activation: make(map[string]float64),
		Depth:      make(map[string]int),
		Path:       make(map[string][]string),
	}

	if _, ok := g.nodes[seed]; !ok {
		return result
	}

	visited := map[string]bool{seed: true}
	result.Visited = append(result.Visited, seed)
	result.Activation[seed] = 1.0
	result.Depth[seed] = 0
	result.Path[seed] = []string{seed}

	queue := []string{seed}
	for len(queue) > 0 && len(result.Visited) < maxNodes {
		current := queue[0]
		queue = queue[1:]
		depth := result.Depth[current]
		if depth >= maxDepth {
			continue
		}

		for _, e := range sortedEdges(g.outEdges[current]) {
			if e.Weight < minWeight {
				continue
			}
			if visited[e.Target] {
				continue
			}
			if len(result.Visited) >= maxNodes {
				break
			}
			visited[e.Target] = true
			result.Visited = append(result.Visited, e.Target)
			result.Depth[e.Target] = depth + 1
			result.Activation[e.Target] = 1.0
			path := append(append([]string{}, result.Path[current]...), e.Target)
			result.Path[e.Target] = path
			queue = append(queue, e.Target)
		}
	}
	return result
}

// SpreadingActivation starts at activation 1.0 on seed; each hop
// multiplies activation by the edge weight, and a node's accumulated
// activation is the sum over all paths that reached it. Traversal halts
// when depth=maxDepth, node-count=maxNodes, or the next hop's activation
// falls below minActivation.
func (g *Graph) SpreadingActivation(seed string, maxDepth, maxNodes int, minActivation float64) *TraversalResult {
	g.mu.RLock()
	defer g.mu.RUnlock()

	result := &TraversalResult{
		Activation: make(map[string]float64),
		Depth:      make(map[string]int),
		Path:       make(map[string][]string),
	}

	if _, ok := g.nodes[seed]; !ok {
		return result
	}

	order := []string{seed}
	result.Activation[seed] = 1.0
	result.Depth[seed] = 0
	result.Path[seed] = []string{seed}
	visited := map[string]bool{seed: true}

	frontier := []string{seed}
	for depth := 0; depth < maxDepth && len(frontier) > 0 && len(order) < maxNodes; depth++ {
		var next []string
		for _, current := range frontier {
			currentActivation := result.Activation[current]
			for _, e := range sortedEdges(g.outEdges[current]) {
				nextActivation := currentActivation * e.Weight
				if nextActivation < minActivation {
					continue
				}
				if !visited[e.Target] {
					if len(order) >= maxNodes {
						continue
					}
					visited[e.Target] = true
					order = append(order, e.Target)
					result.Depth[e.Target] = depth + 1
					path := append(append([]string{}, result.Path[current]...), e.Target)
					result.Path[e.Target] = path
					next = append(next, e.Target)
				}
				result.Activation[e.Target] += nextActivation
			}
		}
		frontier = next
	}

	// Tie-break equal activation by lexicographic node id when reporting
	// the visited order.
	sort.SliceStable(order, func(i, j int) bool {
		if result.Activation[order[i]] != result.Activation[order[j]] {
			return result.Activation[order[i]] > result.Activation[order[j]]
		}
		return order[i] < order[j]
	})
	result.Visited = order
	return result
}

// sortedEdges preserves insertion order for equal-weight edges (a stable
// sort keyed only by descending weight).
func sortedEdges(edges []*Edge) []*Edge {
	out := make([]*Edge, len(edges))
	copy(out, edges)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Weight > out[j].Weight })
	return out
}
