package template

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema/template.schema.json
var templateSchemaJSON string

var (
	templateSchemaOnce sync.Once
	templateSchema     *jsonschema.Schema
	templateSchemaErr  error
)

// ValidateDocument checks a raw template mapping against the dialect's
// document schema. It validates structure only; section contents are
// checked during translation.
func ValidateDocument(raw map[string]interface{}) error {
	templateSchemaOnce.Do(func() {
		templateSchema, templateSchemaErr = jsonschema.CompileString("template.schema.json", templateSchemaJSON)
	})
	if templateSchemaErr != nil {
		return fmt.Errorf("failed to compile template schema: %w", templateSchemaErr)
	}

	// Round-trip through JSON so YAML-decoded values carry the types the
	// schema validator expects.
	data, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("failed to normalize template document: %w", err)
	}
	var instance interface{}
	if err := json.Unmarshal(data, &instance); err != nil {
		return fmt.Errorf("failed to normalize template document: %w", err)
	}

	if err := templateSchema.Validate(instance); err != nil {
		return fmt.Errorf("template document is invalid: %w", err)
	}
	return nil
}

// Validate checks the template against the document schema.
func (t *Template) Validate() error {
	return ValidateDocument(t.raw)
}
