// Package graph holds the in-memory similarity graph accumulated by the
// scoring stage and consumed read-only by cluster extraction and export.
package graph

import (
	"iter"
	"sort"

	"github.com/agenthands/resolve/internal/core/model"
)

type pairKey struct {
	a, b string
}

func keyOf(a, b string) pairKey {
	if b < a {
		a, b = b, a
	}
	return pairKey{a: a, b: b}
}

// Graph is a set of normalized records plus weighted similarity edges.
// Not safe for concurrent mutation; the pipeline funnels all writes through
// a single aggregator.
type Graph struct {
	nodes map[string]model.NormalizedRecord
	edges map[pairKey]model.SimilarityEdge
	adj   map[string]map[string]float64
}

func New() *Graph {
	return &Graph{
		nodes: make(map[string]model.NormalizedRecord),
		edges: make(map[pairKey]model.SimilarityEdge),
		adj:   make(map[string]map[string]float64),
	}
}

// AddNode registers a record as a graph node.
func (g *Graph) AddNode(rec model.NormalizedRecord) {
	g.nodes[rec.ID] = rec
}

// AddEdge upserts an edge, keeping the highest aggregated score seen for the
// pair. A pair produced from multiple blocks therefore collapses to one edge.
// Self-loops are ignored.
func (g *Graph) AddEdge(e model.SimilarityEdge) {
	if e.A == e.B {
		return
	}
	key := keyOf(e.A, e.B)
	if existing, ok := g.edges[key]; ok && existing.Score >= e.Score {
		return
	}
	g.edges[key] = e
	g.link(e.A, e.B, e.Score)
	g.link(e.B, e.A, e.Score)
}

func (g *Graph) link(from, to string, score float64) {
	if g.adj[from] == nil {
		g.adj[from] = make(map[string]float64)
	}
	g.adj[from][to] = score
}

// Neighbors yields the ids adjacent to id, in sorted order.
func (g *Graph) Neighbors(id string) iter.Seq[string] {
	return func(yield func(string) bool) {
		ids := make([]string, 0, len(g.adj[id]))
		for n := range g.adj[id] {
			ids = append(ids, n)
		}
		sort.Strings(ids)
		for _, n := range ids {
			if !yield(n) {
				return
			}
		}
	}
}

// Weight returns the aggregated score between two adjacent nodes.
func (g *Graph) Weight(a, b string) (float64, bool) {
	w, ok := g.adj[a][b]
	return w, ok
}

// Node returns the record registered under id.
func (g *Graph) Node(id string) (model.NormalizedRecord, bool) {
	rec, ok := g.nodes[id]
	return rec, ok
}

// NodeIDs returns all node ids, sorted.
func (g *Graph) NodeIDs() []string {
	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Edges returns the full edge set sorted by pair for deterministic export.
func (g *Graph) Edges() []model.SimilarityEdge {
	out := make([]model.SimilarityEdge, 0, len(g.edges))
	for _, e := range g.edges {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].A != out[j].A {
			return out[i].A < out[j].A
		}
		return out[i].B < out[j].B
	})
	return out
}

func (g *Graph) NodeCount() int { return len(g.nodes) }
func (g *Graph) EdgeCount() int { return len(g.edges) }
