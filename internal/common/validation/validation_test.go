package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		input string
		valid bool
	}{
		{"someone@example.com", true},
		{"first.last+tag@sub.example.co.jp", true},
		{"under_score@example-domain.org", true},
		{"", false},
		{"someone", false},
		{"someone@", false},
		{"someone@example", false},
		{"some one@example.com", false},
		{"@example.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.valid, ValidateEmail(tt.input))
		})
	}
}

func TestNotBlank(t *testing.T) {
	assert.True(t, NotBlank("Taro"))
	assert.False(t, NotBlank(""))
	assert.False(t, NotBlank("   \t"))
}

const testSchema = `{
  "type": "object",
  "required": ["type"],
  "properties": {
    "type": {"type": "string", "enum": ["message", "conversationUpdate"]},
    "text": {"type": "string"}
  }
}`

func TestSchemaValidator(t *testing.T) {
	v, err := NewSchemaValidator([]byte(testSchema))
	require.NoError(t, err)

	tests := []struct {
		name  string
		doc   string
		valid bool
		field string
	}{
		{name: "valid message", doc: `{"type":"message","text":"hi"}`, valid: true},
		{name: "missing type", doc: `{"text":"hi"}`, valid: false, field: "(root)"},
		{name: "unknown type", doc: `{"type":"typing"}`, valid: false, field: "type"},
		{name: "wrong text type", doc: `{"type":"message","text":5}`, valid: false, field: "text"},
		{name: "not json", doc: `{`, valid: false, field: "(root)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := v.Validate([]byte(tt.doc))
			assert.Equal(t, tt.valid, result.Valid)
			if !tt.valid {
				require.NotEmpty(t, result.Errors)
				assert.Equal(t, tt.field, result.Errors[0].Field)
				assert.NotEmpty(t, result.Summary())
			}
		})
	}
}

func TestNewSchemaValidator_InvalidSchema(t *testing.T) {
	_, err := NewSchemaValidator([]byte(`{"type": 12}`))
	assert.Error(t, err)
}
