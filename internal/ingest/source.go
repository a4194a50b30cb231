// Package ingest supplies candidate records to the engine. Sources implement
// the core.RecordSource boundary; the engine never reads files or databases
// itself.
package ingest

import (
	"fmt"

	"github.com/agenthands/resolve/internal/config"
	"github.com/agenthands/resolve/internal/core"
)

// New builds the configured record source.
func New(cfg config.IngestConfig) (core.RecordSource, error) {
	switch cfg.Source {
	case "csv":
		if cfg.Path == "" {
			return nil, fmt.Errorf("ingest: csv source requires a path")
		}
		return &CSVSource{Path: cfg.Path}, nil
	case "sqlite":
		if cfg.Path == "" {
			return nil, fmt.Errorf("ingest: sqlite source requires a path")
		}
		return &SQLiteSource{DSN: cfg.Path, Query: cfg.Query}, nil
	case "synthetic", "":
		return &SyntheticSource{
			Count:         cfg.Count,
			DuplicateRate: cfg.DuplicateRate,
			Seed:          cfg.Seed,
		}, nil
	default:
		return nil, fmt.Errorf("ingest: unknown source %q", cfg.Source)
	}
}
