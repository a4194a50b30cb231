package ingest

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/agenthands/resolve/internal/core/model"
)

// DefaultSQLiteQuery is used when no query is configured. The companion
// example database keeps candidate records in a "records" table.
const DefaultSQLiteQuery = "SELECT id, full_name, email, phone, address FROM records"

// SQLiteSource reads records from a SQLite database. The query must project
// five columns: id, full_name, email, phone, address.
type SQLiteSource struct {
	DSN   string
	Query string
}

func (s *SQLiteSource) Load(ctx context.Context) ([]model.Record, error) {
	db, err := sql.Open("sqlite3", s.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database '%s': %w", s.DSN, err)
	}
	defer db.Close()

	query := s.Query
	if query == "" {
		query = DefaultSQLiteQuery
	}

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var records []model.Record
	for rows.Next() {
		var id, name, email, phone, address sql.NullString
		if err := rows.Scan(&id, &name, &email, &phone, &address); err != nil {
			return nil, fmt.Errorf("failed to scan record row: %w", err)
		}

		rec := model.Record{ID: id.String, Fields: make(map[model.FieldType]string)}
		for field, v := range map[model.FieldType]sql.NullString{
			model.FieldName:    name,
			model.FieldEmail:   email,
			model.FieldPhone:   phone,
			model.FieldAddress: address,
		} {
			if v.Valid && v.String != "" {
				rec.Fields[field] = v.String
			}
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate record rows: %w", err)
	}
	return records, nil
}
