package score

import (
	"fmt"
	"math"

	"github.com/agenthands/resolve/internal/core/model"
)

// FieldConfig selects the metric and weight for one schema field.
type FieldConfig struct {
	Metric string
	Weight float64
}

type fieldScorer struct {
	field  model.FieldType
	metric Metric
	weight float64
}

// Scorer computes per-field and aggregated similarity for record pairs.
// Scoring is symmetric and deterministic for a fixed configuration.
type Scorer struct {
	fields    []fieldScorer
	threshold float64
}

// NewScorer validates the field configuration: metrics must be registered and
// weights must sum to 1.
func NewScorer(fields map[model.FieldType]FieldConfig, edgeThreshold float64) (*Scorer, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("scoring: no fields configured")
	}
	if edgeThreshold < 0 || edgeThreshold > 1 {
		return nil, fmt.Errorf("scoring: edge threshold %v outside [0,1]", edgeThreshold)
	}

	s := &Scorer{threshold: edgeThreshold}
	sum := 0.0
	for _, field := range model.FieldTypes() {
		cfg, ok := fields[field]
		if !ok {
			continue
		}
		metric, ok := Lookup(cfg.Metric)
		if !ok {
			return nil, fmt.Errorf("scoring: unknown metric %q for field %s (known: %v)", cfg.Metric, field, MetricNames())
		}
		if cfg.Weight < 0 {
			return nil, fmt.Errorf("scoring: negative weight for field %s", field)
		}
		s.fields = append(s.fields, fieldScorer{field: field, metric: metric, weight: cfg.Weight})
		sum += cfg.Weight
	}
	if math.Abs(sum-1) > 1e-9 {
		return nil, fmt.Errorf("scoring: field weights sum to %v, want 1", sum)
	}
	return s, nil
}

// Threshold returns the configured low-confidence edge threshold.
func (s *Scorer) Threshold() float64 { return s.threshold }

// Score compares two normalized records. The returned edge is materialized
// only when the aggregated score reaches the edge threshold; ok reports
// whether it did. Fields absent on either side are excluded and the remaining
// weights renormalized, so sparse records are compared on what they share.
func (s *Scorer) Score(a, b model.NormalizedRecord) (model.SimilarityEdge, bool) {
	fieldScores := make(map[model.FieldType]float64, len(s.fields))
	weighted := 0.0
	weightSum := 0.0
	for _, fs := range s.fields {
		va, vb := a.Value(fs.field), b.Value(fs.field)
		if va == "" || vb == "" {
			continue
		}
		score := fs.metric(va, vb)
		fieldScores[fs.field] = score
		weighted += score * fs.weight
		weightSum += fs.weight
	}
	if weightSum == 0 {
		return model.SimilarityEdge{}, false
	}

	aggregate := weighted / weightSum
	edge := model.NewSimilarityEdge(a.ID, b.ID, fieldScores, aggregate)
	return edge, aggregate >= s.threshold
}
