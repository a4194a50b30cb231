package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultValidates(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

func TestValidateWeightsMustSumToOne(t *testing.T) {
	cfg := Default()
	cfg.Scoring.Fields["full_name"] = FieldScoring{Metric: "jaro_winkler", Weight: 0.9}

	err := cfg.Validate()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "scoring.fields", verr.Field)
}

func TestValidateUnknownMetric(t *testing.T) {
	cfg := Default()
	cfg.Scoring.Fields["full_name"] = FieldScoring{Metric: "soundex", Weight: 0.4}

	err := cfg.Validate()
	assert.ErrorContains(t, err, "unknown metric")
}

func TestValidateUnknownAlgorithm(t *testing.T) {
	cfg := Default()
	cfg.Clustering.Algorithm = "louvain"

	assert.ErrorContains(t, cfg.Validate(), "unknown algorithm")
}

func TestValidateModeUnset(t *testing.T) {
	cfg := Default()
	cfg.Resolution.Mode = ""

	assert.ErrorContains(t, cfg.Validate(), "mode is unset")
}

func TestValidateBadThreshold(t *testing.T) {
	cfg := Default()
	cfg.Clustering.ClusterThreshold = 1.5

	assert.ErrorContains(t, cfg.Validate(), "cluster_threshold")
}

func TestLoadTOML(t *testing.T) {
	raw := `
[blocking]
keys = ["phone_prefix"]

[scoring]
edge_threshold = 0.6

[scoring.fields.full_name]
metric = "jaro_winkler"
weight = 0.6

[scoring.fields.phone]
metric = "exact"
weight = 0.4

[scoring.fields.email]
metric = "exact"
weight = 0.0

[scoring.fields.address]
metric = "token_jaccard"
weight = 0.0

[clustering]
algorithm = "components"
cluster_threshold = 0.8
seed = 7

[resolution]
mode = "merge"
`
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"phone_prefix"}, cfg.Blocking.Keys)
	assert.Equal(t, 0.6, cfg.Scoring.EdgeThreshold)
	assert.Equal(t, "components", cfg.Clustering.Algorithm)
	assert.Equal(t, int64(7), cfg.Clustering.Seed)
	assert.Equal(t, "merge", cfg.Resolution.Mode)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestLoadOrDefaultMissingFile(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOrDefaultBrokenFileAborts(t *testing.T) {
	// A present-but-invalid file must abort, never fall back to defaults.
	path := filepath.Join(t.TempDir(), "config.toml")
	raw := "[scoring.fields.full_name]\nmetric = \"jaro_winkler\"\nweight = 0.6\n"
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	_, err := LoadOrDefault(path)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "scoring.fields", verr.Field)

	require.NoError(t, os.WriteFile(path, []byte("keys = [unclosed"), 0o644))
	_, err = LoadOrDefault(path)
	assert.ErrorContains(t, err, "failed to parse TOML")
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("NEO4J_URI", "bolt://db:7687")
	t.Setenv("NEO4J_PASSWORD", "hunter2")

	cfg := Default()
	cfg.ApplyEnv()
	assert.Equal(t, "bolt://db:7687", cfg.Store.URI)
	assert.Equal(t, "hunter2", cfg.Store.Password)
	assert.Equal(t, "neo4j", cfg.Store.User)
}
