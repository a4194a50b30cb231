// Package store persists resolution results through the graph driver.
// The engine itself performs no I/O; persistence is this explicit step.
package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/agenthands/resolve/internal/config"
	"github.com/agenthands/resolve/internal/core"
	"github.com/agenthands/resolve/internal/core/model"
	"github.com/agenthands/resolve/internal/core/resolve"
	"github.com/agenthands/resolve/internal/driver"
)

// ResultStore writes one run's output to durable storage.
type ResultStore interface {
	Persist(ctx context.Context, result *core.Result) error
	Close(ctx context.Context) error
}

// FromConfig builds the configured store. Kind "none" returns a no-op store.
func FromConfig(cfg *config.Config) (ResultStore, error) {
	switch cfg.Store.Kind {
	case "neo4j":
		d, err := driver.NewNeo4jDriver(cfg.Store.URI, cfg.Store.User, cfg.Store.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Neo4j: %w", err)
		}
		return NewGraphStore(d, cfg.Store.PersistNormalized), nil
	case "none", "":
		return NopStore{}, nil
	default:
		return nil, fmt.Errorf("store: unknown kind %q", cfg.Store.Kind)
	}
}

// GraphStore writes results as Observation and MasterEntity nodes with
// SIMILAR_TO, SAME_AS and RESOLVED_TO relationships.
type GraphStore struct {
	Driver            driver.GraphDriver
	PersistNormalized bool
}

func NewGraphStore(d driver.GraphDriver, persistNormalized bool) *GraphStore {
	return &GraphStore{Driver: d, PersistNormalized: persistNormalized}
}

func (s *GraphStore) Persist(ctx context.Context, result *core.Result) error {
	if err := s.Driver.BuildIndices(ctx); err != nil {
		return err
	}
	if result.Mode == resolve.ModeMerge {
		return s.persistMerged(ctx, result)
	}

	for _, rec := range result.Records {
		params := fieldParams(rec.Raw)
		params["id"] = rec.ID
		if _, err := s.Driver.ExecuteQuery(ctx, driver.SaveObservationQuery, params); err != nil {
			return fmt.Errorf("failed to save observation %s: %w", rec.ID, err)
		}
		if s.PersistNormalized {
			normParams := fieldParams(rec.Norm)
			normParams["id"] = rec.ID
			if _, err := s.Driver.ExecuteQuery(ctx, driver.SaveNormalizedQuery, normParams); err != nil {
				return fmt.Errorf("failed to save normalized values for %s: %w", rec.ID, err)
			}
		}
	}

	for _, e := range result.Edges {
		// Neo4j properties cannot hold maps; the per-field breakdown goes in
		// as a JSON string.
		fieldScores, err := json.Marshal(e.FieldScores)
		if err != nil {
			return fmt.Errorf("failed to encode field scores for %s-%s: %w", e.A, e.B, err)
		}
		params := map[string]interface{}{
			"a": e.A, "b": e.B, "score": e.Score, "field_scores": string(fieldScores),
		}
		if _, err := s.Driver.ExecuteQuery(ctx, driver.SaveSimilarEdgeQuery, params); err != nil {
			return fmt.Errorf("failed to save edge %s-%s: %w", e.A, e.B, err)
		}
	}

	for id, clusterID := range result.ClusterOf {
		params := map[string]interface{}{"id": id, "cluster_id": clusterID}
		if _, err := s.Driver.ExecuteQuery(ctx, driver.SaveClusterIDQuery, params); err != nil {
			return fmt.Errorf("failed to save cluster id for %s: %w", id, err)
		}
	}

	for _, m := range result.Masters {
		params := fieldParams(m.Attributes)
		params["uuid"] = m.UUID
		params["cluster_id"] = m.ClusterID
		params["created_at"] = m.CreatedAt
		if _, err := s.Driver.ExecuteQuery(ctx, driver.SaveMasterEntityQuery, params); err != nil {
			return fmt.Errorf("failed to save master entity %s: %w", m.UUID, err)
		}
	}

	for _, a := range result.Assignments {
		params := map[string]interface{}{"record_id": a.RecordID, "master_uuid": a.MasterUUID}
		if _, err := s.Driver.ExecuteQuery(ctx, driver.SaveAssignmentQuery, params); err != nil {
			return fmt.Errorf("failed to save assignment %s: %w", a.RecordID, err)
		}
	}

	for _, sa := range result.SameAs {
		params := map[string]interface{}{"a": sa.A, "b": sa.B}
		if _, err := s.Driver.ExecuteQuery(ctx, driver.SaveSameAsQuery, params); err != nil {
			return fmt.Errorf("failed to save same-as %s-%s: %w", sa.A, sa.B, err)
		}
	}

	return nil
}

// persistMerged applies merge mode's destructive side: clustered originals
// are removed from the graph and only their master entities survive. Records
// outside any cluster keep their Observation nodes and, when singleton
// promotion produced one, their master link.
func (s *GraphStore) persistMerged(ctx context.Context, result *core.Result) error {
	for _, rec := range result.Records {
		if _, clustered := result.ClusterOf[rec.ID]; clustered {
			params := map[string]interface{}{"id": rec.ID}
			if _, err := s.Driver.ExecuteQuery(ctx, driver.DeleteObservationQuery, params); err != nil {
				return fmt.Errorf("failed to remove merged observation %s: %w", rec.ID, err)
			}
			continue
		}

		params := fieldParams(rec.Raw)
		params["id"] = rec.ID
		if _, err := s.Driver.ExecuteQuery(ctx, driver.SaveObservationQuery, params); err != nil {
			return fmt.Errorf("failed to save observation %s: %w", rec.ID, err)
		}
		if s.PersistNormalized {
			normParams := fieldParams(rec.Norm)
			normParams["id"] = rec.ID
			if _, err := s.Driver.ExecuteQuery(ctx, driver.SaveNormalizedQuery, normParams); err != nil {
				return fmt.Errorf("failed to save normalized values for %s: %w", rec.ID, err)
			}
		}
	}

	for _, m := range result.Masters {
		params := fieldParams(m.Attributes)
		params["uuid"] = m.UUID
		params["cluster_id"] = m.ClusterID
		params["created_at"] = m.CreatedAt
		if _, err := s.Driver.ExecuteQuery(ctx, driver.SaveMasterEntityQuery, params); err != nil {
			return fmt.Errorf("failed to save master entity %s: %w", m.UUID, err)
		}
	}

	for _, a := range result.Assignments {
		if _, clustered := result.ClusterOf[a.RecordID]; clustered {
			continue
		}
		params := map[string]interface{}{"record_id": a.RecordID, "master_uuid": a.MasterUUID}
		if _, err := s.Driver.ExecuteQuery(ctx, driver.SaveAssignmentQuery, params); err != nil {
			return fmt.Errorf("failed to save assignment %s: %w", a.RecordID, err)
		}
	}

	return nil
}

func (s *GraphStore) Close(ctx context.Context) error {
	return s.Driver.Close(ctx)
}

// fieldParams maps every schema field, defaulting absent ones to "" so the
// Cypher SET clauses always have their parameters.
func fieldParams(values map[model.FieldType]string) map[string]interface{} {
	params := make(map[string]interface{}, len(model.FieldTypes())+2)
	for _, f := range model.FieldTypes() {
		params[string(f)] = values[f]
	}
	return params
}

// NopStore discards results; used when no persistence is configured.
type NopStore struct{}

func (NopStore) Persist(context.Context, *core.Result) error { return nil }
func (NopStore) Close(context.Context) error                 { return nil }
