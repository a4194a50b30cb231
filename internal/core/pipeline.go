// Package core implements the batch entity-resolution engine: normalization,
// blocking, pairwise scoring, similarity-graph aggregation, cluster
// extraction, and master-entity synthesis. The engine performs no I/O;
// ingestion and persistence are collaborator boundaries owned by the caller.
package core

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/agenthands/resolve/internal/config"
	"github.com/agenthands/resolve/internal/core/block"
	"github.com/agenthands/resolve/internal/core/cluster"
	"github.com/agenthands/resolve/internal/core/graph"
	"github.com/agenthands/resolve/internal/core/model"
	"github.com/agenthands/resolve/internal/core/normalize"
	"github.com/agenthands/resolve/internal/core/resolve"
	"github.com/agenthands/resolve/internal/core/score"
)

// RecordSource supplies the raw candidate records for one run.
type RecordSource interface {
	Load(ctx context.Context) ([]model.Record, error)
}

// MalformedRecordError marks a record missing its unique identifier, the one
// structural invariant. The record is rejected; the run continues.
type MalformedRecordError struct {
	Index int
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("record at index %d has no id", e.Index)
}

// Rejection reports one record dropped during ingestion.
type Rejection struct {
	Index  int    `json:"index"`
	ID     string `json:"id,omitempty"`
	Reason string `json:"reason"`
}

// Result is the complete output of one resolution run. Nothing has been
// durably written when Run returns; persistence is an explicit second step.
type Result struct {
	Records     []model.NormalizedRecord `json:"records"`
	Edges       []model.SimilarityEdge   `json:"edges"`
	Clusters    []model.Cluster          `json:"clusters"`
	ClusterOf   map[string]int           `json:"cluster_of"`
	Masters     []model.MasterEntity     `json:"masters"`
	Assignments []model.Assignment       `json:"assignments"`
	SameAs      []model.SameAs           `json:"same_as,omitempty"`
	Unclustered []string                 `json:"unclustered"`
	Mode        resolve.Mode             `json:"mode"`
	Rejections  []Rejection              `json:"rejections,omitempty"`
	Warnings    []string                 `json:"warnings,omitempty"`
}

// Pipeline wires the engine components for one configuration. Construct once
// per run; safe to reuse for repeated runs with the same configuration.
type Pipeline struct {
	cfg         *config.Config
	normalizer  *normalize.Normalizer
	blocker     *block.Blocker
	scorer      *score.Scorer
	partitioner cluster.Partitioner
	builder     *resolve.Builder
}

// NewPipeline validates the configuration and builds the engine. A
// configuration fault aborts here, before any record is processed.
func NewPipeline(cfg *config.Config) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	blocker, err := cfg.Blocker()
	if err != nil {
		return nil, err
	}
	scorer, err := score.NewScorer(cfg.ScoringFields(), cfg.Scoring.EdgeThreshold)
	if err != nil {
		return nil, err
	}
	partitioner, err := cluster.New(cfg.Clustering.Algorithm)
	if err != nil {
		return nil, err
	}
	mode, err := resolve.ParseMode(cfg.Resolution.Mode)
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		cfg:         cfg,
		normalizer:  normalize.New(),
		blocker:     blocker,
		scorer:      scorer,
		partitioner: partitioner,
		builder:     resolve.NewBuilder(mode, cfg.Clustering.PromoteSingletons),
	}, nil
}

// Run executes the full pipeline over the source's records. Per-record
// faults are isolated into Result.Rejections; only source failures,
// cancellation, and determinism-verification failures abort the run.
func (p *Pipeline) Run(ctx context.Context, src RecordSource) (*Result, error) {
	raw, err := src.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load records: %w", err)
	}

	result := &Result{Mode: resolve.Mode(p.cfg.Resolution.Mode)}

	records := make(map[string]model.NormalizedRecord, len(raw))
	for i, rec := range raw {
		if rec.ID == "" {
			err := &MalformedRecordError{Index: i}
			result.Rejections = append(result.Rejections, Rejection{Index: i, Reason: err.Error()})
			continue
		}
		if _, dup := records[rec.ID]; dup {
			result.Rejections = append(result.Rejections, Rejection{
				Index: i, ID: rec.ID, Reason: fmt.Sprintf("duplicate record id %q", rec.ID),
			})
			continue
		}
		records[rec.ID] = p.normalizer.Apply(rec)
	}

	blocks, warnings := p.blocker.Blocks(orderedRecords(records))
	for _, w := range warnings {
		result.Warnings = append(result.Warnings, w.String())
	}

	g, err := p.scoreBlocks(ctx, records, blocks)
	if err != nil {
		return nil, err
	}
	result.Records = orderedRecords(records)
	result.Edges = g.Edges()

	// Cluster extraction is the serialization point: it needs the complete
	// aggregated graph.
	partition := p.partitioner.Partition(g, p.cfg.Clustering.ClusterThreshold, p.cfg.Clustering.Seed)
	if p.cfg.Clustering.VerifyDeterminism {
		if err := cluster.Verify(p.cfg.Clustering.Algorithm, p.partitioner, g,
			p.cfg.Clustering.ClusterThreshold, p.cfg.Clustering.Seed); err != nil {
			return nil, err
		}
	}

	res := p.builder.Resolve(partition, records)
	result.Clusters = res.Clusters
	result.ClusterOf = partition
	result.Masters = res.Masters
	result.Assignments = res.Assignments
	result.SameAs = res.SameAs
	result.Unclustered = res.Unclustered

	return result, nil
}

// scoreBlocks fans block-local pairwise comparison out over a worker pool.
// Workers emit edge batches; a single aggregator goroutine owns all graph
// mutation, so the graph itself needs no locking. A pair appearing in more
// than one block is scored per block and de-duplicated by the graph's
// max-score upsert.
func (p *Pipeline) scoreBlocks(ctx context.Context, records map[string]model.NormalizedRecord, blocks map[string][]string) (*graph.Graph, error) {
	g := graph.New()
	for _, rec := range records {
		g.AddNode(rec)
	}

	workers := p.cfg.Concurrency.ScoreWorkers
	if workers <= 0 {
		workers = 1
	}

	jobs := make(chan []string)
	edges := make(chan []model.SimilarityEdge)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for members := range jobs {
				batch := p.scoreBlock(records, members)
				if len(batch) == 0 {
					continue
				}
				select {
				case edges <- batch:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for batch := range edges {
			for _, e := range batch {
				g.AddEdge(e)
			}
		}
	}()

feed:
	for _, members := range blocks {
		select {
		case jobs <- members:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()
	close(edges)
	<-done

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return g, nil
}

func (p *Pipeline) scoreBlock(records map[string]model.NormalizedRecord, members []string) []model.SimilarityEdge {
	var out []model.SimilarityEdge
	for i := 0; i < len(members); i++ {
		for j := i + 1; j < len(members); j++ {
			edge, ok := p.scorer.Score(records[members[i]], records[members[j]])
			if ok {
				out = append(out, edge)
			}
		}
	}
	return out
}

func orderedRecords(records map[string]model.NormalizedRecord) []model.NormalizedRecord {
	out := make([]model.NormalizedRecord, 0, len(records))
	for _, rec := range records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
