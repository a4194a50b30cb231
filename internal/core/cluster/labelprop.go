package cluster

import (
	"math/rand/v2"
	"sort"

	"github.com/agenthands/resolve/internal/core/graph"
)

// LabelPropagation is a weighted, seeded label propagation partitioner.
// Each node starts with its own label; on every pass nodes adopt the label
// carrying the highest total edge weight among their neighbors. Node order
// is shuffled per pass from the fixed seed, and ties break on the smallest
// label, so a given graph and seed always converge to the same partition.
type LabelPropagation struct {
	MaxIterations int
}

func NewLabelPropagation() *LabelPropagation {
	return &LabelPropagation{MaxIterations: 20}
}

func (lp *LabelPropagation) Partition(g *graph.Graph, minScore float64, seed int64) map[string]int {
	adj := survivingAdjacency(g, minScore)
	if len(adj) == 0 {
		return map[string]int{}
	}

	nodes := make([]string, 0, len(adj))
	for id := range adj {
		nodes = append(nodes, id)
	}
	sort.Strings(nodes)

	labels := make(map[string]string, len(nodes))
	for _, id := range nodes {
		labels[id] = id
	}

	rng := rand.New(rand.NewPCG(uint64(seed), uint64(seed)))
	for iter := 0; iter < lp.MaxIterations; iter++ {
		rng.Shuffle(len(nodes), func(i, j int) {
			nodes[i], nodes[j] = nodes[j], nodes[i]
		})

		changed := 0
		for _, u := range nodes {
			weights := make(map[string]float64)
			best := 0.0
			for _, v := range adj[u] {
				w, _ := g.Weight(u, v)
				label := labels[v]
				weights[label] += w
				if weights[label] > best {
					best = weights[label]
				}
			}

			var candidates []string
			for label, w := range weights {
				if w == best {
					candidates = append(candidates, label)
				}
			}
			sort.Strings(candidates)
			next := candidates[0]
			if labels[u] != next {
				labels[u] = next
				changed++
			}
		}
		if changed == 0 {
			break
		}
	}

	groups := make(map[string][]string)
	for id, label := range labels {
		groups[label] = append(groups[label], id)
	}
	return assign(groups)
}
