// Package cluster partitions the similarity graph into communities of
// likely-duplicate records. Algorithms are pluggable behind Partitioner so
// the connected-components fallback can substitute for label propagation
// without touching any other component.
package cluster

import (
	"fmt"
	"maps"
	"sort"

	"github.com/agenthands/resolve/internal/core/graph"
)

// Partitioner assigns cluster ids to records connected by edges scoring at
// least minScore. Records with no surviving edge are absent from the result.
// Output must be deterministic for a fixed graph and seed.
type Partitioner interface {
	Partition(g *graph.Graph, minScore float64, seed int64) map[string]int
}

// Algorithm names accepted in the clustering configuration.
const (
	AlgorithmLabelProp  = "labelprop"
	AlgorithmComponents = "components"
)

// New resolves a configured algorithm name.
func New(name string) (Partitioner, error) {
	switch name {
	case AlgorithmLabelProp:
		return NewLabelPropagation(), nil
	case AlgorithmComponents:
		return &Components{}, nil
	default:
		return nil, fmt.Errorf("clustering: unknown algorithm %q", name)
	}
}

// NondeterminismError signals that a fixed-seed partition was not
// reproducible. Raised only by Verify; it indicates a regression in the
// algorithm, not a runtime condition to recover from.
type NondeterminismError struct {
	Algorithm string
}

func (e *NondeterminismError) Error() string {
	return fmt.Sprintf("clustering: algorithm %q produced different partitions for the same graph and seed", e.Algorithm)
}

// Verify re-runs the partition and compares; used by verification mode.
func Verify(name string, p Partitioner, g *graph.Graph, minScore float64, seed int64) error {
	first := p.Partition(g, minScore, seed)
	second := p.Partition(g, minScore, seed)
	if !maps.Equal(first, second) {
		return &NondeterminismError{Algorithm: name}
	}
	return nil
}

// survivingAdjacency projects the graph onto edges scoring >= minScore.
func survivingAdjacency(g *graph.Graph, minScore float64) map[string][]string {
	adj := make(map[string][]string)
	for _, e := range g.Edges() {
		if e.Score < minScore {
			continue
		}
		adj[e.A] = append(adj[e.A], e.B)
		adj[e.B] = append(adj[e.B], e.A)
	}
	return adj
}

// assign converts label groups into dense cluster ids. Groups of size one are
// dropped (singletons are not clustered). Ids are ordered by each group's
// smallest member so the numbering is stable across runs.
func assign(groups map[string][]string) map[string]int {
	type group struct {
		min     string
		members []string
	}
	var ordered []group
	for _, members := range groups {
		if len(members) < 2 {
			continue
		}
		sort.Strings(members)
		ordered = append(ordered, group{min: members[0], members: members})
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].min < ordered[j].min })

	out := make(map[string]int)
	for id, grp := range ordered {
		for _, member := range grp.members {
			out[member] = id
		}
	}
	return out
}
