package mapper

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// AttributeMapping maps one Maximo classified attribute to the source
// property it is populated from.
type AttributeMapping struct {
	// Property is the source property name on the Qonic product.
	Property string `yaml:"property"`
	// Type is the source data type: String, Integer, Real, Boolean or Time.
	Type string `yaml:"type"`
	// Domain optionally restricts the value to a fixed set. Values outside
	// the domain map to null rather than failing the asset.
	Domain []string `yaml:"domain,omitempty"`
}

// ClassMapping describes how one classification code maps into Maximo.
type ClassMapping struct {
	ClassStructureID string `yaml:"class_structure_id"`
	HierarchyPath    string `yaml:"hierarchy_path"`
	// Attributes is keyed by Maximo assetattrid.
	Attributes map[string]AttributeMapping `yaml:"attributes"`
}

// Table is the static classification mapping table. It is produced
// out-of-band (refreshed from the bSDD dictionary) and loaded read-only at
// startup.
type Table struct {
	// Default, when present, is applied to codes absent from Classes.
	Default *ClassMapping           `yaml:"default,omitempty"`
	Classes map[string]ClassMapping `yaml:"classes"`
}

// LoadTable reads a mapping table from a YAML file.
func LoadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read mapping table: %w", err)
	}

	var table Table
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("failed to parse mapping table %s: %w", path, err)
	}
	if len(table.Classes) == 0 && table.Default == nil {
		return nil, fmt.Errorf("mapping table %s defines no classes and no default", path)
	}
	return &table, nil
}

// Codes returns every classification code the table maps explicitly.
func (t *Table) Codes() []string {
	codes := make([]string, 0, len(t.Classes))
	for code := range t.Classes {
		codes = append(codes, code)
	}
	return codes
}

// Has reports whether code is mapped, explicitly or via the default.
func (t *Table) Has(code string) bool {
	if _, ok := t.Classes[code]; ok {
		return true
	}
	return t.Default != nil
}
