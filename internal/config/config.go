package config

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/agenthands/resolve/internal/core/block"
	"github.com/agenthands/resolve/internal/core/cluster"
	"github.com/agenthands/resolve/internal/core/model"
	"github.com/agenthands/resolve/internal/core/resolve"
	"github.com/agenthands/resolve/internal/core/score"
)

// ValidationError is a configuration fault detected before any record is
// processed. It aborts the whole run.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

type BlockingConfig struct {
	Keys           []string `toml:"keys"`
	NamePrefixLen  int      `toml:"name_prefix_len"`
	PhonePrefixLen int      `toml:"phone_prefix_len"`
	MaxBlockSize   int      `toml:"max_block_size"`
}

type FieldScoring struct {
	Metric string  `toml:"metric"`
	Weight float64 `toml:"weight"`
}

type ScoringConfig struct {
	EdgeThreshold float64                 `toml:"edge_threshold"`
	Fields        map[string]FieldScoring `toml:"fields"`
}

type ClusteringConfig struct {
	Algorithm         string  `toml:"algorithm"`
	ClusterThreshold  float64 `toml:"cluster_threshold"`
	Seed              int64   `toml:"seed"`
	PromoteSingletons bool    `toml:"promote_singletons"`
	VerifyDeterminism bool    `toml:"verify_determinism"`
}

type ResolutionConfig struct {
	Mode string `toml:"mode"`
}

type IngestConfig struct {
	Source        string  `toml:"source"`
	Path          string  `toml:"path"`
	Query         string  `toml:"query"`
	Count         int     `toml:"count"`
	DuplicateRate float64 `toml:"duplicate_rate"`
	Seed          int64   `toml:"seed"`
}

type StoreConfig struct {
	Kind              string `toml:"kind"`
	URI               string `toml:"uri"`
	User              string `toml:"user"`
	Password          string `toml:"password"`
	PersistNormalized bool   `toml:"persist_normalized"`
}

type ConcurrencyConfig struct {
	ScoreWorkers int `toml:"score_workers"`
}

// Config is the full run configuration, constructed once per run and passed
// by reference to every component.
type Config struct {
	Blocking    BlockingConfig    `toml:"blocking"`
	Scoring     ScoringConfig     `toml:"scoring"`
	Clustering  ClusteringConfig  `toml:"clustering"`
	Resolution  ResolutionConfig  `toml:"resolution"`
	Ingest      IngestConfig      `toml:"ingest"`
	Store       StoreConfig       `toml:"store"`
	Concurrency ConcurrencyConfig `toml:"concurrency"`
}

// Default returns a runnable configuration for demo and test runs.
func Default() *Config {
	return &Config{
		Blocking: BlockingConfig{
			Keys:           []string{block.KeyNamePrefixPostal, block.KeyPhonePrefix},
			NamePrefixLen:  3,
			PhonePrefixLen: 6,
			MaxBlockSize:   500,
		},
		Scoring: ScoringConfig{
			EdgeThreshold: 0.55,
			Fields: map[string]FieldScoring{
				string(model.FieldName):    {Metric: score.MetricJaroWinkler, Weight: 0.4},
				string(model.FieldEmail):   {Metric: score.MetricExact, Weight: 0.2},
				string(model.FieldPhone):   {Metric: score.MetricExact, Weight: 0.2},
				string(model.FieldAddress): {Metric: score.MetricTokenJaccard, Weight: 0.2},
			},
		},
		Clustering: ClusteringConfig{
			Algorithm:        cluster.AlgorithmLabelProp,
			ClusterThreshold: 0.75,
			Seed:             42,
		},
		Resolution:  ResolutionConfig{Mode: string(resolve.ModeLink)},
		Ingest:      IngestConfig{Source: "synthetic", Count: 200, DuplicateRate: 0.35, Seed: 42},
		Store:       StoreConfig{Kind: "none", URI: "bolt://localhost:7687", User: "neo4j"},
		Concurrency: ConcurrencyConfig{ScoreWorkers: 4},
	}
}

// Load reads and validates a TOML configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads the file at path, falling back to the defaults only
// when no file exists there. A file that is present but fails to parse or
// validate is a configuration fault and aborts instead of being replaced.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// ApplyEnv overrides store credentials from the environment.
func (c *Config) ApplyEnv() {
	if uri := os.Getenv("NEO4J_URI"); uri != "" {
		c.Store.URI = uri
	}
	if user := os.Getenv("NEO4J_USER"); user != "" {
		c.Store.User = user
	}
	if pass := os.Getenv("NEO4J_PASSWORD"); pass != "" {
		c.Store.Password = pass
	}
}

// Validate fails fast on configuration faults, before any record is
// processed.
func (c *Config) Validate() error {
	if len(c.Blocking.Keys) == 0 {
		return &ValidationError{Field: "blocking.keys", Reason: "at least one block key recipe is required"}
	}
	if _, err := c.Blocker(); err != nil {
		return &ValidationError{Field: "blocking.keys", Reason: err.Error()}
	}

	if len(c.Scoring.Fields) == 0 {
		return &ValidationError{Field: "scoring.fields", Reason: "at least one scored field is required"}
	}
	sum := 0.0
	for name, fc := range c.Scoring.Fields {
		if _, ok := score.Lookup(fc.Metric); !ok {
			return &ValidationError{
				Field:  "scoring.fields." + name + ".metric",
				Reason: fmt.Sprintf("unknown metric %q (known: %v)", fc.Metric, score.MetricNames()),
			}
		}
		sum += fc.Weight
	}
	if math.Abs(sum-1) > 1e-9 {
		return &ValidationError{Field: "scoring.fields", Reason: fmt.Sprintf("weights sum to %v, want 1", sum)}
	}
	if c.Scoring.EdgeThreshold < 0 || c.Scoring.EdgeThreshold > 1 {
		return &ValidationError{Field: "scoring.edge_threshold", Reason: "must be in [0,1]"}
	}

	if _, err := cluster.New(c.Clustering.Algorithm); err != nil {
		return &ValidationError{Field: "clustering.algorithm", Reason: err.Error()}
	}
	if c.Clustering.ClusterThreshold < 0 || c.Clustering.ClusterThreshold > 1 {
		return &ValidationError{Field: "clustering.cluster_threshold", Reason: "must be in [0,1]"}
	}

	if _, err := resolve.ParseMode(c.Resolution.Mode); err != nil {
		return &ValidationError{Field: "resolution.mode", Reason: err.Error()}
	}
	return nil
}

// ScoringFields converts the TOML field table into the scorer's typed form.
func (c *Config) ScoringFields() map[model.FieldType]score.FieldConfig {
	out := make(map[model.FieldType]score.FieldConfig, len(c.Scoring.Fields))
	for name, fc := range c.Scoring.Fields {
		out[model.FieldType(name)] = score.FieldConfig{Metric: fc.Metric, Weight: fc.Weight}
	}
	return out
}

// Blocker builds the configured blocker.
func (c *Config) Blocker() (*block.Blocker, error) {
	return block.New(c.Blocking.Keys, c.Blocking.NamePrefixLen, c.Blocking.PhonePrefixLen, c.Blocking.MaxBlockSize)
}
