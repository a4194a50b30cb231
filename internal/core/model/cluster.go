package model

import "time"

// Cluster is one connected community of likely-duplicate records.
// Members are sorted by record id.
type Cluster struct {
	ID      int      `json:"id"`
	Members []string `json:"members"`
}

// MasterEntity is the canonical representation of one cluster.
type MasterEntity struct {
	UUID       string               `json:"uuid"`
	ClusterID  int                  `json:"cluster_id"`
	Attributes map[FieldType]string `json:"attributes"`
	CreatedAt  time.Time            `json:"created_at"`
}

// Assignment links a candidate record to its master entity.
type Assignment struct {
	RecordID   string `json:"record_id"`
	MasterUUID string `json:"master_uuid"`
}

// SameAs is a non-destructive link asserting two records denote the same
// entity. Emitted only in link mode. A is the smaller record id.
type SameAs struct {
	A string `json:"a"`
	B string `json:"b"`
}

// NewSameAs builds a same-as link with the pair in canonical order.
func NewSameAs(a, b string) SameAs {
	if b < a {
		a, b = b, a
	}
	return SameAs{A: a, B: b}
}
