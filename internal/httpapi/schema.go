package httpapi

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/lingotab/lingotab/internal/domain"
)

//go:embed run_request.schema.json
var runRequestSchemaJSON string

// RunRequest is the validated body of POST /api/v1/runs. Prior carries an
// earlier run's table for retry-merge; the new run's keys win.
type RunRequest struct {
	Records         []domain.Record `json:"records"`
	Groups          []*domain.Group `json:"groups"`
	IncludeMetadata bool            `json:"include_metadata"`
	Prior           domain.Table    `json:"prior,omitempty"`
}

var (
	compileOnce       sync.Once
	compiledSchema    *jsonschema.Schema
	compiledSchemaErr error
)

// ValidateRunRequest checks the payload against the embedded schema plus
// the semantic rules the schema cannot express, then decodes it.
func ValidateRunRequest(payload []byte) (*RunRequest, error) {
	value, err := decodeStrictJSON(payload)
	if err != nil {
		return nil, fmt.Errorf("decode request JSON: %w", err)
	}

	schema, err := loadSchema()
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}
	if err := schema.Validate(value); err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	normalized, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("normalize request JSON: %w", err)
	}

	var req RunRequest
	if err := json.Unmarshal(normalized, &req); err != nil {
		return nil, fmt.Errorf("unmarshal request: %w", err)
	}

	if err := validateSemantics(&req); err != nil {
		return nil, err
	}
	return &req, nil
}

func loadSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020

		if err := compiler.AddResource("run_request.schema.json", strings.NewReader(runRequestSchemaJSON)); err != nil {
			compiledSchemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}

		schema, err := compiler.Compile("run_request.schema.json")
		if err != nil {
			compiledSchemaErr = fmt.Errorf("compile schema: %w", err)
			return
		}
		compiledSchema = schema
	})

	if compiledSchemaErr != nil {
		return nil, compiledSchemaErr
	}
	if compiledSchema == nil {
		return nil, fmt.Errorf("schema not initialized")
	}
	return compiledSchema, nil
}

func decodeStrictJSON(raw []byte) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("request body is empty")
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("request body contains trailing content")
	}
	return value, nil
}

func validateSemantics(req *RunRequest) error {
	seenKeys := make(map[string]bool, len(req.Records))
	for _, record := range req.Records {
		if seenKeys[record.Key] {
			return fmt.Errorf("duplicate record key %q", record.Key)
		}
		seenKeys[record.Key] = true
	}

	seenIDs := make(map[string]bool, len(req.Groups))
	for _, group := range req.Groups {
		if seenIDs[group.ID] {
			return fmt.Errorf("duplicate group id %q", group.ID)
		}
		seenIDs[group.ID] = true
	}
	return nil
}
