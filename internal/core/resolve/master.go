package resolve

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/agenthands/resolve/internal/core/model"
)

// sparseFields get "most complete non-empty value" synthesis when no value
// has a plurality; the remaining fields always use plurality voting.
var sparseFields = map[model.FieldType]bool{
	model.FieldEmail: true,
	model.FieldPhone: true,
}

// BuildMaster synthesizes the canonical attributes for one cluster. The
// computation is deterministic and total: plurality vote on normalized
// values with ties broken by lowest record id, and longest-non-empty for
// sparse fields lacking a plurality winner. A cluster of size one yields a
// master identical to the member's own normalized attributes.
func BuildMaster(clusterID int, members []string, records map[string]model.NormalizedRecord) model.MasterEntity {
	sorted := append([]string(nil), members...)
	sort.Strings(sorted)

	attrs := make(map[model.FieldType]string)
	for _, field := range model.FieldTypes() {
		value := canonicalValue(field, sorted, records)
		if value != "" {
			attrs[field] = value
		}
	}

	return model.MasterEntity{
		UUID:       uuid.New().String(),
		ClusterID:  clusterID,
		Attributes: attrs,
		CreatedAt:  time.Now().UTC(),
	}
}

func canonicalValue(field model.FieldType, members []string, records map[string]model.NormalizedRecord) string {
	counts := make(map[string]int)
	firstHolder := make(map[string]string) // value -> lowest record id holding it
	for _, id := range members {
		v := records[id].Value(field)
		if v == "" {
			continue
		}
		counts[v]++
		if _, seen := firstHolder[v]; !seen {
			firstHolder[v] = id
		}
	}
	if len(counts) == 0 {
		return ""
	}

	best := ""
	bestCount := 0
	plural := true
	for v, c := range counts {
		switch {
		case c > bestCount:
			best, bestCount, plural = v, c, true
		case c == bestCount:
			plural = false
			if firstHolder[v] < firstHolder[best] {
				best = v
			}
		}
	}

	if !plural && sparseFields[field] {
		return mostComplete(counts, firstHolder)
	}
	return best
}

// mostComplete prefers the longest value; length ties break on the lowest
// holding record id.
func mostComplete(counts map[string]int, firstHolder map[string]string) string {
	best := ""
	for v := range counts {
		if best == "" ||
			len(v) > len(best) ||
			(len(v) == len(best) && firstHolder[v] < firstHolder[best]) {
			best = v
		}
	}
	return best
}
