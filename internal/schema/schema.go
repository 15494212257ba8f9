// Package schema defines the extraction field schema: the ordered list of
// fields the service asks the model for, loaded once at process start.
package schema

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed fields.yaml
var defaultFieldsYAML []byte

// Field is one entry in the extraction schema.
type Field struct {
	// Name is the field identifier, e.g. "facility_amount".
	Name string `yaml:"name" json:"name"`
	// Boolean marks fields whose value must serialize as literal
	// "true"/"false" rather than free text.
	Boolean bool `yaml:"boolean,omitempty" json:"boolean,omitempty"`
	// Description is included in the prompt to steer extraction.
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// Schema is an ordered, immutable field list. Order is significant: the
// prompt lists fields in schema order, so two loads of the same file
// produce byte-identical prompts.
type Schema struct {
	fields []Field
	index  map[string]int
}

type fileFormat struct {
	Fields []Field `yaml:"fields"`
}

// Default returns the embedded loan-document schema.
func Default() (*Schema, error) {
	return parse(defaultFieldsYAML)
}

// LoadFile reads a schema from a YAML file.
func LoadFile(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file: %w", err)
	}
	return parse(data)
}

func parse(data []byte) (*Schema, error) {
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse schema: %w", err)
	}
	if len(f.Fields) == 0 {
		return nil, fmt.Errorf("schema contains no fields")
	}

	s := &Schema{
		fields: f.Fields,
		index:  make(map[string]int, len(f.Fields)),
	}
	for i, fld := range f.Fields {
		if strings.TrimSpace(fld.Name) == "" {
			return nil, fmt.Errorf("schema field %d has empty name", i)
		}
		// First occurrence wins; duplicates are reported by Validate,
		// never silently dropped.
		if _, seen := s.index[fld.Name]; !seen {
			s.index[fld.Name] = i
		}
	}
	return s, nil
}

// Fields returns the schema fields in declaration order.
func (s *Schema) Fields() []Field {
	return s.fields
}

// Len returns the number of declared fields, duplicates included.
func (s *Schema) Len() int {
	return len(s.fields)
}

// Has reports whether name is a declared field identifier.
func (s *Schema) Has(name string) bool {
	_, ok := s.index[name]
	return ok
}

// IsBoolean reports whether name is declared as a boolean field.
func (s *Schema) IsBoolean(name string) bool {
	i, ok := s.index[name]
	return ok && s.fields[i].Boolean
}

// Validate checks the schema for suspicious entries and returns
// human-readable warnings. Duplicate and near-duplicate identifiers
// (seen in upstream schema files, e.g. two spellings of the same
// guarantor-age field) are reported but never deduplicated here.
func (s *Schema) Validate() []string {
	var warnings []string

	exact := make(map[string]string)      // lowercased -> first original
	normalized := make(map[string]string) // normalized -> first original
	for _, f := range s.fields {
		lower := strings.ToLower(f.Name)
		if first, ok := exact[lower]; ok {
			warnings = append(warnings,
				fmt.Sprintf("duplicate field identifier %q (first declared as %q)", f.Name, first))
			continue
		}
		exact[lower] = f.Name

		norm := normalizeIdentifier(f.Name)
		if first, ok := normalized[norm]; ok {
			warnings = append(warnings,
				fmt.Sprintf("near-duplicate field identifier %q resembles %q", f.Name, first))
			continue
		}
		normalized[norm] = f.Name
	}

	return warnings
}

// normalizeIdentifier lowercases and strips separators so that
// "Father_Name" and "father name" compare equal.
func normalizeIdentifier(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
