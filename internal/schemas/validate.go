// Package schemas provides JSON Schema validation for pipeline inputs and records.
package schemas

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/jonathan/content-pipeline/internal/types"
	embedded "github.com/jonathan/content-pipeline/schemas"
)

// ValidationError represents a schema validation error with field paths
type ValidationError struct {
	Schema string
	Errors []FieldError
}

// FieldError represents a single validation error at a specific field
type FieldError struct {
	Field   string
	Message string
}

// SchemaLoadError represents errors loading or parsing the schema itself
type SchemaLoadError struct {
	Path    string
	Message string
	Cause   error
}

func (e *SchemaLoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to load schema %s: %s: %v", e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("failed to load schema %s: %s", e.Path, e.Message)
}

func (e *SchemaLoadError) Unwrap() error {
	return e.Cause
}

func (ve *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString("validation failed:\n")
	for i, err := range ve.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s: %s\n", i+1, err.Field, err.Message))
	}
	return sb.String()
}

// Names lists the embedded schema names accepted by Validate.
func Names() []string {
	return []string{"inspirations", "run_record", "config"}
}

func schemaFile(name string) (string, error) {
	switch name {
	case "inspirations":
		return embedded.Inspirations, nil
	case "run_record":
		return embedded.RunRecord, nil
	case "config":
		return embedded.Config, nil
	default:
		return "", fmt.Errorf("unknown schema %q (want one of %s)", name, strings.Join(Names(), ", "))
	}
}

// Validate checks document against the named embedded schema.
func Validate(name string, document []byte) error {
	file, err := schemaFile(name)
	if err != nil {
		return err
	}
	schema, err := embedded.FS.ReadFile(file)
	if err != nil {
		return &SchemaLoadError{Path: file, Message: "schema not embedded", Cause: err}
	}
	return validate(file, gojsonschema.NewBytesLoader(schema), gojsonschema.NewBytesLoader(document))
}

// ValidateFile checks the JSON file at path against the named embedded schema.
func ValidateFile(name, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	return Validate(name, data)
}

// ValidateJSONString validates JSON string content against schema string content
func ValidateJSONString(schemaContent, jsonContent string) error {
	return validate("(string schema)", gojsonschema.NewStringLoader(schemaContent), gojsonschema.NewStringLoader(jsonContent))
}

func validate(schemaPath string, schemaLoader, documentLoader gojsonschema.JSONLoader) error {
	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return &SchemaLoadError{
			Path:    schemaPath,
			Message: "schema validation failed during load",
			Cause:   err,
		}
	}

	if result.Valid() {
		return nil
	}

	// Build structured error
	validationErr := &ValidationError{
		Schema: schemaPath,
		Errors: make([]FieldError, 0, len(result.Errors())),
	}

	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		validationErr.Errors = append(validationErr.Errors, FieldError{
			Field:   field,
			Message: desc.Description(),
		})
	}

	return validationErr
}

// DecodeInspirations validates data as an inspiration batch and decodes it.
// Struct validation runs per item later, in the outline stage.
func DecodeInspirations(data []byte) ([]types.Inspiration, error) {
	if err := Validate("inspirations", data); err != nil {
		return nil, err
	}
	var batch []types.Inspiration
	if err := json.Unmarshal(data, &batch); err != nil {
		return nil, fmt.Errorf("failed to decode inspirations: %w", err)
	}
	return batch, nil
}

// LoadInspirations reads and decodes an inspiration batch file.
func LoadInspirations(path string) ([]types.Inspiration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read inspirations file: %w", err)
	}
	return DecodeInspirations(data)
}
