// Package csvio reads run input records and writes result tables as CSV.
package csvio

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/lingotab/lingotab/internal/domain"
	"github.com/lingotab/lingotab/internal/engine"
)

// Input files must carry these columns, in this order, before any extras.
var expectedHeader = []string{"key", "source", "text"}

// ReadRecords parses the input CSV. The header is matched case-insensitively
// and extra columns are ignored. Duplicate keys and blank keys are rejected
// here so the engine never sees them.
func ReadRecords(r io.Reader) ([]domain.Record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("input is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if err := checkHeader(header); err != nil {
		return nil, err
	}

	var records []domain.Record
	seen := make(map[string]int)
	line := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if len(row) < len(expectedHeader) {
			return nil, fmt.Errorf("line %d: expected at least %d columns, got %d", line, len(expectedHeader), len(row))
		}

		key := strings.TrimSpace(row[0])
		if key == "" {
			return nil, fmt.Errorf("line %d: key must not be empty", line)
		}
		if prev, ok := seen[key]; ok {
			return nil, fmt.Errorf("line %d: duplicate key %q (first on line %d)", line, key, prev)
		}
		seen[key] = line

		records = append(records, domain.Record{
			Key:    key,
			Source: row[1],
			Text:   row[2],
		})
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("input has a header but no records")
	}
	return records, nil
}

func checkHeader(header []string) error {
	if len(header) < len(expectedHeader) {
		return fmt.Errorf("header must start with %s", strings.Join(expectedHeader, ","))
	}
	for i, want := range expectedHeader {
		if !strings.EqualFold(strings.TrimSpace(header[i]), want) {
			return fmt.Errorf("header column %d is %q, want %q", i+1, header[i], want)
		}
	}
	return nil
}

// WriteTable renders the result table next to the original record columns,
// one output row per input record in input order.
func WriteTable(w io.Writer, table domain.Table, records []domain.Record, groups []*domain.Group, includeMetadata bool) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(engine.BuildHeader(groups, includeMetadata)); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, row := range engine.BuildRows(table, records, groups, includeMetadata) {
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	return nil
}
