// Package schemas validates structured LLM output against embedded JSON Schemas before it is
// decoded into domain types.
package schemas

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed tailored_content.schema.json
var tailoredContentSchema string

// ValidationError represents a schema validation error with field paths
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation error at a specific field
type FieldError struct {
	Field   string
	Message string
}

func (ve *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString("validation failed:")
	for i, err := range ve.Errors {
		fmt.Fprintf(&sb, " %d. %s: %s;", i+1, err.Field, err.Message)
	}
	return strings.TrimSuffix(sb.String(), ";")
}

var compiled sync.Map // schema source -> *gojsonschema.Schema

func compile(schema string) (*gojsonschema.Schema, error) {
	if s, ok := compiled.Load(schema); ok {
		return s.(*gojsonschema.Schema), nil
	}
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schema))
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}
	compiled.Store(schema, s)
	return s, nil
}

// ValidateJSONString validates a JSON document against a JSON Schema given as strings.
// Schema violations are reported as *ValidationError; malformed input as a plain error.
func ValidateJSONString(schema, document string) error {
	s, err := compile(schema)
	if err != nil {
		return err
	}
	result, err := s.Validate(gojsonschema.NewStringLoader(document))
	if err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}
	if result.Valid() {
		return nil
	}

	ve := &ValidationError{}
	for _, e := range result.Errors() {
		ve.Errors = append(ve.Errors, FieldError{Field: e.Field(), Message: e.Description()})
	}
	return ve
}

// ValidateTailoredContent checks a model's tailored resume JSON.
func ValidateTailoredContent(document string) error {
	return ValidateJSONString(tailoredContentSchema, document)
}
