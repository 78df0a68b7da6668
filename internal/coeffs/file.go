// SPDX-License-Identifier: MIT
package coeffs

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads a coefficient table from a YAML file and validates it.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read coefficient table: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML coefficient table and validates it.
func Parse(data []byte) (*Table, error) {
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse coefficient table: %w", err)
	}
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("invalid coefficient table: %w", err)
	}
	return &t, nil
}

// Marshal encodes the table as YAML.
func (t *Table) Marshal() ([]byte, error) {
	return yaml.Marshal(t)
}

// Save writes the table to path as YAML.
func (t *Table) Save(path string) error {
	data, err := t.Marshal()
	if err != nil {
		return fmt.Errorf("failed to encode coefficient table: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write coefficient table: %w", err)
	}
	return nil
}
