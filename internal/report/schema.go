package report

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/qri-io/jsonschema"
)

//go:embed report.schema.json
var schemaJSON []byte

// ErrSchemaMismatch is returned when a report document breaks its schema.
var ErrSchemaMismatch = errors.New("report does not match schema")

var compiledSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	rs := &jsonschema.Schema{}
	if err := json.Unmarshal(schemaJSON, rs); err != nil {
		return nil, fmt.Errorf("compile report schema: %w", err)
	}
	return rs, nil
})

// Schema returns the JSON schema of the report document.
func Schema() []byte {
	return schemaJSON
}

// ValidateDocument checks an encoded report against the schema.
func ValidateDocument(ctx context.Context, doc []byte) error {
	rs, err := compiledSchema()
	if err != nil {
		return err
	}
	verrs, err := rs.ValidateBytes(ctx, doc)
	if err != nil {
		return fmt.Errorf("schema validate: %w", err)
	}
	if len(verrs) > 0 {
		var sb strings.Builder
		for _, v := range verrs {
			sb.WriteString(v.PropertyPath)
			sb.WriteString(": ")
			sb.WriteString(v.Message)
			sb.WriteString("; ")
		}
		return fmt.Errorf("%w: %s", ErrSchemaMismatch, sb.String())
	}
	return nil
}
