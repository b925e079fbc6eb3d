package schemas

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateTailoredContent_Valid(t *testing.T) {
	doc := `{
		"summary": "Backend engineer focused on Go services",
		"experience": [{"company": "Acme", "title": "Engineer", "bullets": ["Built APIs"]}],
		"skills": ["Go", "PostgreSQL"]
	}`
	assert.NoError(t, ValidateTailoredContent(doc))
}

func TestValidateTailoredContent_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		doc   string
		field string
	}{
		{"missing summary", `{"experience": [], "skills": []}`, "(root)"},
		{"empty summary", `{"summary": "", "experience": [], "skills": []}`, "summary"},
		{"experience without title", `{"summary": "s", "experience": [{"company": "A", "bullets": []}], "skills": []}`, "experience.0"},
		{"unexpected field", `{"summary": "s", "experience": [], "skills": [], "score": 90}`, "(root)"},
		{"wrong type", `{"summary": "s", "experience": [], "skills": "Go"}`, "skills"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTailoredContent(tt.doc)
			require.Error(t, err)
			var ve *ValidationError
			require.True(t, errors.As(err, &ve))
			require.NotEmpty(t, ve.Errors)
			assert.Equal(t, tt.field, ve.Errors[0].Field)
		})
	}
}

func TestValidateTailoredContent_Malformed(t *testing.T) {
	err := ValidateTailoredContent(`{"summary": `)
	require.Error(t, err)
	var ve *ValidationError
	assert.False(t, errors.As(err, &ve))
}

func TestValidationError_Message(t *testing.T) {
	ve := &ValidationError{Errors: []FieldError{{Field: "summary", Message: "too short"}, {Field: "skills", Message: "bad"}}}
	assert.Equal(t, "validation failed: 1. summary: too short; 2. skills: bad", ve.Error())
}
