package core

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/resolve/internal/config"
	"github.com/agenthands/resolve/internal/core/block"
	"github.com/agenthands/resolve/internal/core/cluster"
	"github.com/agenthands/resolve/internal/core/model"
	"github.com/agenthands/resolve/internal/core/resolve"
	"github.com/agenthands/resolve/internal/core/score"
)

type sliceSource struct {
	records []model.Record
	err     error
}

func (s *sliceSource) Load(context.Context) ([]model.Record, error) {
	return s.records, s.err
}

func rawRecord(id, name, phone, email, addr string) model.Record {
	fields := map[model.FieldType]string{}
	if name != "" {
		fields[model.FieldName] = name
	}
	if phone != "" {
		fields[model.FieldPhone] = phone
	}
	if email != "" {
		fields[model.FieldEmail] = email
	}
	if addr != "" {
		fields[model.FieldAddress] = addr
	}
	return model.Record{ID: id, Fields: fields}
}

// namePhoneConfig scores on name and phone only, blocking on name prefix +
// postal and on phone prefix.
func namePhoneConfig() *config.Config {
	cfg := config.Default()
	cfg.Scoring.EdgeThreshold = 0.55
	cfg.Scoring.Fields = map[string]config.FieldScoring{
		string(model.FieldName):  {Metric: score.MetricJaroWinkler, Weight: 0.6},
		string(model.FieldPhone): {Metric: score.MetricExact, Weight: 0.4},
	}
	cfg.Clustering.ClusterThreshold = 0.75
	cfg.Clustering.Seed = 42
	cfg.Resolution.Mode = string(resolve.ModeLink)
	return cfg
}

// typoFamily is scenario material: five spellings of one person sharing a
// phone number and a postal code.
func typoFamily() []model.Record {
	return []model.Record{
		rawRecord("a1", "John Smith", "(555) 123-4567", "", "12 Main St 94107"),
		rawRecord("a2", "John  Smith.", "+1 555 123 4567", "", "12 Main Street 94107"),
		rawRecord("a3", "Jon Smith", "555-123-4567", "", "12 Main St 94107"),
		rawRecord("a4", "Jhon Smith", "5551234567", "", "12 Main St, 94107"),
		rawRecord("a5", "Dr. John Smith", "555.123.4567", "", "12 Main St 94107"),
	}
}

func TestRunTypoFamilyResolvesToOneMaster(t *testing.T) {
	p, err := NewPipeline(namePhoneConfig())
	require.NoError(t, err)

	result, err := p.Run(context.Background(), &sliceSource{records: typoFamily()})
	require.NoError(t, err)

	require.Len(t, result.Clusters, 1)
	assert.Equal(t, []string{"a1", "a2", "a3", "a4", "a5"}, result.Clusters[0].Members)
	require.Len(t, result.Masters, 1)
	// Plurality: "john smith" appears three times after normalization.
	assert.Equal(t, "john smith", result.Masters[0].Attributes[model.FieldName])
	assert.Equal(t, "5551234567", result.Masters[0].Attributes[model.FieldPhone])
	assert.Len(t, result.Assignments, 5)
	assert.Empty(t, result.Unclustered)
}

func TestRunDisjointRecordsStaySingletons(t *testing.T) {
	// Identical names, but nothing else in common and no shared block key:
	// blocking must prevent the comparison entirely.
	records := []model.Record{
		rawRecord("b1", "Alice Brown", "(212) 555-0101", "alice@home.net", "1 Elm St 10001"),
		rawRecord("b2", "Alice Brown", "(415) 555-0202", "abrown@work.io", "9 Oak Ave 94107"),
	}

	p, err := NewPipeline(namePhoneConfig())
	require.NoError(t, err)

	result, err := p.Run(context.Background(), &sliceSource{records: records})
	require.NoError(t, err)

	assert.Empty(t, result.Edges)
	assert.Empty(t, result.Clusters)
	assert.Empty(t, result.Masters)
	assert.Equal(t, []string{"b1", "b2"}, result.Unclustered)
}

func TestRunSingletonPromotion(t *testing.T) {
	cfg := namePhoneConfig()
	cfg.Clustering.PromoteSingletons = true
	p, err := NewPipeline(cfg)
	require.NoError(t, err)

	records := []model.Record{
		rawRecord("b1", "Alice Brown", "(212) 555-0101", "", "1 Elm St 10001"),
		rawRecord("b2", "Alice Brown", "(415) 555-0202", "", "9 Oak Ave 94107"),
	}
	result, err := p.Run(context.Background(), &sliceSource{records: records})
	require.NoError(t, err)

	require.Len(t, result.Masters, 2)
	assert.Equal(t, "alice brown", result.Masters[0].Attributes[model.FieldName])
	assert.Len(t, result.Assignments, 2)
}

// fraudFamily chains five records through partial overlaps: consecutive
// records share a phone or an email, but no pair is similar enough on its
// own to clear a naive per-pair merge bar.
func fraudFamily() []model.Record {
	return []model.Record{
		rawRecord("f1", "Maria Santos", "555-000-1111", "ms1@x.com", "7 Pine St 94107"),
		rawRecord("f2", "Maria Santoz", "555-000-1111", "ms2@x.com", "7 Pine St 94107"),
		rawRecord("f3", "Mario Santos", "555-000-2222", "ms2@x.com", "7 Pine St 94107"),
		rawRecord("f4", "Maria Santos", "555-000-2222", "ms3@x.com", "7 Pine St 94107"),
		rawRecord("f5", "Marla Santos", "555-000-3333", "ms3@x.com", "7 Pine St 94107"),
	}
}

func TestRunFraudFamilyUnifiesTransitively(t *testing.T) {
	cfg := config.Default()
	cfg.Scoring.EdgeThreshold = 0.45
	cfg.Scoring.Fields = map[string]config.FieldScoring{
		string(model.FieldName):  {Metric: score.MetricJaroWinkler, Weight: 0.5},
		string(model.FieldPhone): {Metric: score.MetricExact, Weight: 0.25},
		string(model.FieldEmail): {Metric: score.MetricExact, Weight: 0.25},
	}
	cfg.Clustering.Algorithm = cluster.AlgorithmComponents
	cfg.Clustering.ClusterThreshold = 0.68

	p, err := NewPipeline(cfg)
	require.NoError(t, err)

	result, err := p.Run(context.Background(), &sliceSource{records: fraudFamily()})
	require.NoError(t, err)

	// No pair reaches 0.75, but the chain of 0.68+ edges is one community.
	for _, e := range result.Edges {
		assert.Less(t, e.Score, 0.75, "pair %s-%s", e.A, e.B)
	}
	require.Len(t, result.Clusters, 1)
	assert.Len(t, result.Clusters[0].Members, 5)
}

func TestRunBlockingIsASupersetFilter(t *testing.T) {
	cfg := namePhoneConfig()
	p, err := NewPipeline(cfg)
	require.NoError(t, err)

	records := append(typoFamily(), fraudFamily()...)
	result, err := p.Run(context.Background(), &sliceSource{records: records})
	require.NoError(t, err)

	blocker, err := cfg.Blocker()
	require.NoError(t, err)
	byID := make(map[string]model.NormalizedRecord)
	for _, rec := range result.Records {
		byID[rec.ID] = rec
	}

	// Every materialized edge connects records sharing at least one block key.
	require.NotEmpty(t, result.Edges)
	for _, e := range result.Edges {
		shared := false
		keysA := blocker.Keys(byID[e.A])
		for _, kb := range blocker.Keys(byID[e.B]) {
			for _, ka := range keysA {
				if ka == kb {
					shared = true
				}
			}
		}
		assert.True(t, shared, "edge %s-%s crosses blocks", e.A, e.B)
	}
}

func TestRunCatchAllBlockComparesKeylessRecords(t *testing.T) {
	// Neither record derives a phone-prefix key, so both land in the
	// catch-all block and still get compared there.
	cfg := config.Default()
	cfg.Blocking.Keys = []string{block.KeyPhonePrefix}
	cfg.Scoring.Fields = map[string]config.FieldScoring{
		string(model.FieldEmail): {Metric: score.MetricExact, Weight: 1.0},
	}

	records := []model.Record{
		rawRecord("c1", "", "", "shared@example.com", ""),
		rawRecord("c2", "", "", "Shared@Example.com", ""),
	}

	p, err := NewPipeline(cfg)
	require.NoError(t, err)

	result, err := p.Run(context.Background(), &sliceSource{records: records})
	require.NoError(t, err)

	require.Len(t, result.Edges, 1)
	assert.Equal(t, 1.0, result.Edges[0].Score)
	require.Len(t, result.Clusters, 1)
	assert.Equal(t, []string{"c1", "c2"}, result.Clusters[0].Members)
}

func TestRunDeterministicAcrossRuns(t *testing.T) {
	cfg := namePhoneConfig()
	cfg.Clustering.VerifyDeterminism = true
	records := append(typoFamily(), fraudFamily()...)

	run := func() *Result {
		p, err := NewPipeline(cfg)
		require.NoError(t, err)
		result, err := p.Run(context.Background(), &sliceSource{records: records})
		require.NoError(t, err)
		return result
	}

	first, second := run(), run()
	assert.Equal(t, first.ClusterOf, second.ClusterOf)
	assert.Equal(t, first.Edges, second.Edges)
	require.Equal(t, len(first.Masters), len(second.Masters))
	for i := range first.Masters {
		// Master ids are generated; canonical values must be identical.
		assert.Equal(t, first.Masters[i].Attributes, second.Masters[i].Attributes)
		assert.Equal(t, first.Masters[i].ClusterID, second.Masters[i].ClusterID)
	}
}

func TestRunMergeVersusLinkCounts(t *testing.T) {
	records := append(typoFamily(),
		rawRecord("z1", "Zoe Quinn", "999-111-2222", "", "4 Birch Rd 30301"))

	for _, mode := range []resolve.Mode{resolve.ModeLink, resolve.ModeMerge} {
		cfg := namePhoneConfig()
		cfg.Resolution.Mode = string(mode)
		p, err := NewPipeline(cfg)
		require.NoError(t, err)

		result, err := p.Run(context.Background(), &sliceSource{records: records})
		require.NoError(t, err)

		res := resolve.Resolution{
			Mode:        mode,
			Clusters:    result.Clusters,
			Unclustered: result.Unclustered,
		}
		switch mode {
		case resolve.ModeLink:
			assert.Equal(t, 6, res.OutputRecordCount(len(result.Records)))
			assert.Len(t, result.SameAs, 10) // C(5,2)
		case resolve.ModeMerge:
			assert.Equal(t, 2, res.OutputRecordCount(len(result.Records)))
			assert.Empty(t, result.SameAs)
		}
	}
}

func TestRunRejectsRecordsWithoutID(t *testing.T) {
	records := []model.Record{
		rawRecord("", "No Id", "555-1", "", ""),
		rawRecord("ok1", "Fine Record", "555-2", "", ""),
		rawRecord("ok1", "Duplicate Id", "555-3", "", ""),
	}

	p, err := NewPipeline(namePhoneConfig())
	require.NoError(t, err)

	result, err := p.Run(context.Background(), &sliceSource{records: records})
	require.NoError(t, err)

	require.Len(t, result.Rejections, 2)
	assert.Equal(t, 0, result.Rejections[0].Index)
	assert.Contains(t, result.Rejections[0].Reason, "no id")
	assert.Equal(t, "ok1", result.Rejections[1].ID)
	assert.Len(t, result.Records, 1)
}

func TestRunOversizeBlockWarning(t *testing.T) {
	cfg := namePhoneConfig()
	cfg.Blocking.MaxBlockSize = 3
	p, err := NewPipeline(cfg)
	require.NoError(t, err)

	result, err := p.Run(context.Background(), &sliceSource{records: typoFamily()})
	require.NoError(t, err)

	assert.NotEmpty(t, result.Warnings)
}

func TestRunSourceFailure(t *testing.T) {
	p, err := NewPipeline(namePhoneConfig())
	require.NoError(t, err)

	_, err = p.Run(context.Background(), &sliceSource{err: errors.New("connection refused")})
	assert.ErrorContains(t, err, "failed to load records")
}

func TestNewPipelineRejectsBadConfig(t *testing.T) {
	cfg := namePhoneConfig()
	cfg.Resolution.Mode = "both"

	_, err := NewPipeline(cfg)
	var verr *config.ValidationError
	assert.ErrorAs(t, err, &verr)
}
