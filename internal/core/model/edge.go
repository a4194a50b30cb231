package model

// SimilarityEdge is an undirected scored edge between two candidate records.
// A is always the lexicographically smaller record id.
type SimilarityEdge struct {
	A           string                `json:"a"`
	B           string                `json:"b"`
	FieldScores map[FieldType]float64 `json:"field_scores"`
	Score       float64               `json:"score"`
}

// NewSimilarityEdge builds an edge with the pair in canonical order.
func NewSimilarityEdge(a, b string, fieldScores map[FieldType]float64, score float64) SimilarityEdge {
	if b < a {
		a, b = b, a
	}
	return SimilarityEdge{A: a, B: b, FieldScores: fieldScores, Score: score}
}
