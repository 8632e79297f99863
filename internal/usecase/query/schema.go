package query

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/okushnikov/structured-query/internal/entity"
	"github.com/okushnikov/structured-query/pkg/types/errs"
)

type schemaProperty struct {
	Type string `json:"type"`
}

type schemaDescriptor struct {
	Type                 string                    `json:"type"`
	Properties           map[string]schemaProperty `json:"properties"`
	Required             []string                  `json:"required"`
	AdditionalProperties bool                      `json:"additionalProperties"`
}

// buildSchemaDescriptor turns the field schema into the strict JSON
// schema handed to the model: every field required, no additional
// properties. Duplicate names and unknown types were already rejected by
// the cache key builder, but the checks are repeated here so the
// function is safe on its own.
func buildSchemaDescriptor(fields []entity.FieldDefinition) ([]byte, error) {
	descriptor := schemaDescriptor{
		Type:                 "object",
		Properties:           make(map[string]schemaProperty, len(fields)),
		Required:             make([]string, 0, len(fields)),
		AdditionalProperties: false,
	}

	for _, f := range fields {
		if _, ok := descriptor.Properties[f.Name]; ok {
			return nil, fmt.Errorf("query - buildSchemaDescriptor - duplicate field %q: %w", f.Name, errs.ErrEncoding)
		}

		switch f.Type {
		case entity.FieldText:
			descriptor.Properties[f.Name] = schemaProperty{Type: "string"}
		case entity.FieldNumber:
			descriptor.Properties[f.Name] = schemaProperty{Type: "number"}
		default:
			return nil, fmt.Errorf("query - buildSchemaDescriptor - field %q has type %q: %w", f.Name, f.Type, errs.ErrEncoding)
		}

		descriptor.Required = append(descriptor.Required, f.Name)
	}

	b, err := json.Marshal(descriptor)
	if err != nil {
		return nil, fmt.Errorf("query - buildSchemaDescriptor - json.Marshal: %w", err)
	}

	return b, nil
}

// validateResult strictly checks the model output against the requested
// fields: the exact field set, strings for text, JSON numbers for
// number. Nothing is coerced; any deviation is ErrSchemaViolation.
func validateResult(fields []entity.FieldDefinition, raw []byte) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var result map[string]any
	if err := dec.Decode(&result); err != nil {
		return fmt.Errorf("query - validateResult - not a JSON object: %w", errs.ErrSchemaViolation)
	}

	if len(result) != len(fields) {
		return fmt.Errorf("query - validateResult - got %d fields, want %d: %w", len(result), len(fields), errs.ErrSchemaViolation)
	}

	for _, f := range fields {
		value, ok := result[f.Name]
		if !ok {
			return fmt.Errorf("query - validateResult - missing field %q: %w", f.Name, errs.ErrSchemaViolation)
		}

		switch f.Type {
		case entity.FieldText:
			if _, ok := value.(string); !ok {
				return fmt.Errorf("query - validateResult - field %q is not text: %w", f.Name, errs.ErrSchemaViolation)
			}
		case entity.FieldNumber:
			if _, ok := value.(json.Number); !ok {
				return fmt.Errorf("query - validateResult - field %q is not a number: %w", f.Name, errs.ErrSchemaViolation)
			}
		}
	}

	return nil
}
