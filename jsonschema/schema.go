package jsonschema

import (
	"bytes"
	"fmt"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	modelkit "github.com/reoring/modelkit"
)

// Schema is the JSON Schema subset that compiles to modelkit classes and
// that Export produces. Keep this struct small and extend incrementally.
type Schema struct {
	// Annotations
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`

	// Core
	Type    TypeSet `json:"type,omitempty"`
	Format  string  `json:"format,omitempty"`
	Default any     `json:"default,omitempty"`
	Enum    []any   `json:"enum,omitempty"`

	// Number
	Minimum          *float64 `json:"minimum,omitempty"`
	Maximum          *float64 `json:"maximum,omitempty"`
	ExclusiveMinimum *float64 `json:"exclusiveMinimum,omitempty"`
	ExclusiveMaximum *float64 `json:"exclusiveMaximum,omitempty"`
	MultipleOf       *float64 `json:"multipleOf,omitempty"`

	// String
	MinLength *int   `json:"minLength,omitempty"`
	MaxLength *int   `json:"maxLength,omitempty"`
	Pattern   string `json:"pattern,omitempty"`

	// Object
	Properties           map[string]*Schema `json:"properties,omitempty"`
	Required             []string           `json:"required,omitempty"`
	AdditionalProperties *Additional        `json:"additionalProperties,omitempty"`

	// Array
	Items       *Schema `json:"items,omitempty"`
	MinItems    *int    `json:"minItems,omitempty"`
	MaxItems    *int    `json:"maxItems,omitempty"`
	UniqueItems bool    `json:"uniqueItems,omitempty"`
}

// TypeSet is the "type" keyword: a single name or a list of names.
type TypeSet []string

func (t *TypeSet) UnmarshalJSON(b []byte) error {
	var one string
	if err := json.Unmarshal(b, &one); err == nil {
		*t = TypeSet{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(b, &many); err != nil {
		return fmt.Errorf("jsonschema: type must be a string or a list of strings: %w", err)
	}
	*t = many
	return nil
}

func (t TypeSet) MarshalJSON() ([]byte, error) {
	if len(t) == 1 {
		return json.Marshal(t[0])
	}
	return json.Marshal([]string(t))
}

// Primary returns the first non-null type ("" when none).
func (t TypeSet) Primary() string {
	for _, s := range t {
		if s != "null" {
			return s
		}
	}
	return ""
}

// Has reports whether name is listed.
func (t TypeSet) Has(name string) bool {
	for _, s := range t {
		if s == name {
			return true
		}
	}
	return false
}

// Additional is the "additionalProperties" keyword: a boolean or a schema
// for the values of undeclared keys.
type Additional struct {
	Allowed bool
	Schema  *Schema
}

func (a *Additional) UnmarshalJSON(b []byte) error {
	var allowed bool
	if err := json.Unmarshal(b, &allowed); err == nil {
		*a = Additional{Allowed: allowed}
		return nil
	}
	var s Schema
	if err := decode(b, &s); err != nil {
		return fmt.Errorf("jsonschema: additionalProperties: %w", err)
	}
	*a = Additional{Allowed: true, Schema: &s}
	return nil
}

func (a Additional) MarshalJSON() ([]byte, error) {
	if a.Schema != nil {
		return json.Marshal(a.Schema)
	}
	return json.Marshal(a.Allowed)
}

// Closed reports additionalProperties: false.
func (s *Schema) Closed() bool {
	return s.AdditionalProperties != nil && !s.AdditionalProperties.Allowed
}

// Parse decodes a JSON Schema document. Numbers in default and enum are
// kept as json.Number.
func Parse(data []byte) (*Schema, error) {
	var s Schema
	if err := decode(data, &s); err != nil {
		return nil, fmt.Errorf("jsonschema: parse: %w", err)
	}
	return &s, nil
}

// ParseYAML decodes a JSON Schema written in YAML.
func ParseYAML(data []byte) (*Schema, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("jsonschema: parse yaml: %w", err)
	}
	b, err := json.Marshal(modelkit.NormalizeYAML(doc))
	if err != nil {
		return nil, fmt.Errorf("jsonschema: parse yaml: %w", err)
	}
	return Parse(b)
}

func decode(b []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	return dec.Decode(v)
}
