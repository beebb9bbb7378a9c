package dispatch

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// structuredResponseSchema is the contract every structured answer must
// satisfy before it feeds aggregation.
const structuredResponseSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["summary_points"],
  "properties": {
    "summary_points": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "text"],
        "properties": {
          "id": {"type": "string"},
          "text": {"type": "string"},
          "confidence": {"type": "string"}
        }
      }
    },
    "detailed_explanation": {"type": "string"},
    "evidence": {"type": "array", "items": {"type": "string"}},
    "reproducible_example": {"type": "string"}
  }
}`

// Schema wraps a compiled JSON schema for structured-output validation.
type Schema struct {
	compiled *gojsonschema.Schema
}

// NewStructuredSchema compiles the default structured-response schema.
func NewStructuredSchema() (*Schema, error) {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(structuredResponseSchema))
	if err != nil {
		return nil, fmt.Errorf("failed to compile structured schema: %w", err)
	}
	return &Schema{compiled: compiled}, nil
}

func (s *Schema) Validate(document string) error {
	result, err := s.compiled.Validate(gojsonschema.NewStringLoader(document))
	if err != nil {
		return fmt.Errorf("schema validation failed: %v", err)
	}
	if !result.Valid() {
		return fmt.Errorf("schema violation: %v", result.Errors())
	}
	return nil
}
