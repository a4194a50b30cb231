package ingest

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/agenthands/resolve/internal/core/model"
)

// CSVSource reads records from a headered CSV file. Recognized columns are
// id plus the schema field names; unknown columns are ignored.
type CSVSource struct {
	Path string
}

func (s *CSVSource) Load(ctx context.Context) ([]model.Record, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open csv file '%s': %w", s.Path, err)
	}
	defer f.Close()

	return ReadCSV(ctx, f)
}

// ReadCSV parses records from CSV data with a header row.
func ReadCSV(ctx context.Context, r io.Reader) ([]model.Record, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	idCol := -1
	fieldCols := make(map[int]model.FieldType)
	for i, name := range header {
		if name == "id" {
			idCol = i
			continue
		}
		for _, f := range model.FieldTypes() {
			if name == string(f) {
				fieldCols[i] = f
			}
		}
	}
	if idCol < 0 {
		return nil, fmt.Errorf("csv header has no id column")
	}

	var records []model.Record
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv row: %w", err)
		}

		rec := model.Record{Fields: make(map[model.FieldType]string)}
		if idCol < len(row) {
			rec.ID = row[idCol]
		}
		for col, field := range fieldCols {
			if col < len(row) && row[col] != "" {
				rec.Fields[field] = row[col]
			}
		}
		records = append(records, rec)
	}
	return records, nil
}
