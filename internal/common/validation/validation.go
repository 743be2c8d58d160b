// internal/common/validation/validation.go
package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9_.+-]+@[a-zA-Z0-9-]+\.[a-zA-Z0-9-.]+$`)

// ValidateEmail reports whether s looks like local@domain.tld.
func ValidateEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// NotBlank reports whether s has any non-whitespace content.
func NotBlank(s string) bool {
	return strings.TrimSpace(s) != ""
}

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Summary joins all error messages into one line.
func (r *ValidationResult) Summary() string {
	parts := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		parts = append(parts, fmt.Sprintf("%s: %s", e.Field, e.Message))
	}
	return strings.Join(parts, "; ")
}

// SchemaValidator validates JSON documents against a compiled JSON schema.
type SchemaValidator struct {
	schema *gojsonschema.Schema
}

func NewSchemaValidator(schema []byte) (*SchemaValidator, error) {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schema))
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &SchemaValidator{schema: compiled}, nil
}

// Validate checks a raw JSON document. A document that is not JSON at all is reported
// as a single validation error rather than a Go error.
func (v *SchemaValidator) Validate(document []byte) *ValidationResult {
	result, err := v.schema.Validate(gojsonschema.NewBytesLoader(document))
	if err != nil {
		return &ValidationResult{
			Valid: false,
			Errors: []ValidationError{{
				Field:   "(root)",
				Message: err.Error(),
				Code:    "MALFORMED_DOCUMENT",
			}},
		}
	}
	if result.Valid() {
		return &ValidationResult{Valid: true}
	}

	errs := make([]ValidationError, 0, len(result.Errors()))
	for _, re := range result.Errors() {
		errs = append(errs, ValidationError{
			Field:   re.Field(),
			Message: re.Description(),
			Code:    strings.ToUpper(re.Type()),
		})
	}
	return &ValidationResult{Valid: false, Errors: errs}
}
