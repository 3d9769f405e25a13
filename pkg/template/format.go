package template

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Parse decodes template source into a Template. Templates may be authored
// in YAML or JSON; JSON parses as a YAML subset.
func Parse(data []byte) (*Template, error) {
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}
	return NewTemplate(raw), nil
}

// ParseFile reads and decodes a template file.
func ParseFile(path string) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read template file: %w", err)
	}
	return Parse(data)
}
