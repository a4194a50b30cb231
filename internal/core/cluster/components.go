package cluster

import (
	"github.com/agenthands/resolve/internal/core/graph"
)

// Components is the degenerate fallback partitioner: connected components
// over the surviving edges. The seed is ignored; component membership does
// not depend on traversal order.
type Components struct{}

func (c *Components) Partition(g *graph.Graph, minScore float64, _ int64) map[string]int {
	adj := survivingAdjacency(g, minScore)

	visited := make(map[string]bool)
	groups := make(map[string][]string)
	for id := range adj {
		if visited[id] {
			continue
		}
		var component []string
		c.dfs(id, adj, visited, &component)
		groups[id] = component
	}
	return assign(groups)
}

func (c *Components) dfs(u string, adj map[string][]string, visited map[string]bool, component *[]string) {
	visited[u] = true
	*component = append(*component, u)
	for _, v := range adj[u] {
		if !visited[v] {
			c.dfs(v, adj, visited, component)
		}
	}
}
