// Package resolve turns cluster assignments into master entities and
// record-to-master links, in either destructive (merge) or auditable (link)
// mode.
package resolve

import (
	"fmt"
	"sort"

	"github.com/agenthands/resolve/internal/core/model"
)

// Mode selects how clusters are resolved. Run-wide; never mixed within a run.
type Mode string

const (
	// ModeMerge combines each cluster into its master entity, discarding the
	// originals from the output model.
	ModeMerge Mode = "merge"
	// ModeLink keeps every original record and asserts pairwise same-as
	// relations inside each cluster.
	ModeLink Mode = "link"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeMerge, ModeLink:
		return Mode(s), nil
	case "":
		return "", fmt.Errorf("resolution: mode is unset (want %q or %q)", ModeMerge, ModeLink)
	default:
		return "", fmt.Errorf("resolution: unknown mode %q (want %q or %q)", s, ModeMerge, ModeLink)
	}
}

// Resolution is the outcome of applying a strategy to the extracted clusters.
type Resolution struct {
	Mode        Mode
	Clusters    []model.Cluster
	Masters     []model.MasterEntity
	Assignments []model.Assignment
	// SameAs holds the pairwise links per cluster; only populated in link mode.
	SameAs []model.SameAs
	// Unclustered lists records that had no qualifying edges, sorted.
	Unclustered []string
}

// OutputRecordCount is the number of records downstream consumers see:
// unchanged in link mode, one per cluster plus singletons in merge mode.
func (r *Resolution) OutputRecordCount(inputCount int) int {
	if r.Mode == ModeLink {
		return inputCount
	}
	return len(r.Clusters) + len(r.Unclustered)
}

// Builder applies a resolution mode to a cluster assignment and synthesizes
// master entities.
type Builder struct {
	mode              Mode
	promoteSingletons bool
}

func NewBuilder(mode Mode, promoteSingletons bool) *Builder {
	return &Builder{mode: mode, promoteSingletons: promoteSingletons}
}

// Resolve materializes clusters from the partition, builds one master entity
// per cluster, links every member to its master, and emits same-as pairs in
// link mode. When singleton promotion is on, unclustered records get a master
// mirroring their own attributes.
func (b *Builder) Resolve(partition map[string]int, records map[string]model.NormalizedRecord) *Resolution {
	byCluster := make(map[int][]string)
	for id, cl := range partition {
		byCluster[cl] = append(byCluster[cl], id)
	}

	clusterIDs := make([]int, 0, len(byCluster))
	for cl := range byCluster {
		clusterIDs = append(clusterIDs, cl)
	}
	sort.Ints(clusterIDs)

	res := &Resolution{Mode: b.mode}
	for _, cl := range clusterIDs {
		members := byCluster[cl]
		sort.Strings(members)
		res.Clusters = append(res.Clusters, model.Cluster{ID: cl, Members: members})

		master := BuildMaster(cl, members, records)
		res.Masters = append(res.Masters, master)
		for _, id := range members {
			res.Assignments = append(res.Assignments, model.Assignment{RecordID: id, MasterUUID: master.UUID})
		}

		if b.mode == ModeLink {
			for i := 0; i < len(members); i++ {
				for j := i + 1; j < len(members); j++ {
					res.SameAs = append(res.SameAs, model.NewSameAs(members[i], members[j]))
				}
			}
		}
	}

	for id := range records {
		if _, ok := partition[id]; !ok {
			res.Unclustered = append(res.Unclustered, id)
		}
	}
	sort.Strings(res.Unclustered)

	if b.promoteSingletons {
		nextID := 0
		if n := len(clusterIDs); n > 0 {
			nextID = clusterIDs[n-1] + 1
		}
		for _, id := range res.Unclustered {
			master := BuildMaster(nextID, []string{id}, records)
			res.Masters = append(res.Masters, master)
			res.Assignments = append(res.Assignments, model.Assignment{RecordID: id, MasterUUID: master.UUID})
			nextID++
		}
	}

	return res
}
