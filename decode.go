package modelkit

import (
	"bytes"
	"fmt"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// DecodeJSON decodes a JSON object and constructs an instance from it.
// Numbers are kept as json.Number so integers never round-trip through float64.
func (c *Class) DecodeJSON(data []byte) (*Instance, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("modelkit: decode json: %w", err)
	}
	return c.fromDocument(doc)
}

// DecodeYAML decodes a single YAML document and constructs an instance from it.
func (c *Class) DecodeYAML(data []byte) (*Instance, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("modelkit: decode yaml: %w", err)
	}
	return c.fromDocument(NormalizeYAML(doc))
}

func (c *Class) fromDocument(doc any) (*Instance, error) {
	m, ok := doc.(map[string]any)
	if !ok {
		return nil, fail(CodeInvalidType, "", map[string]string{"value": describeDocument(doc), "expected": "an object"})
	}
	return c.New(m)
}

func describeDocument(doc any) string {
	switch doc.(type) {
	case []any:
		return "array"
	case nil:
		return "null"
	}
	return repr(doc)
}

// NormalizeYAML converts YAML-decoded values (which may contain map[any]any)
// into JSON-like map[string]any recursively. Non-string keys are stringified.
func NormalizeYAML(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			out[k] = NormalizeYAML(vv)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			out[keyString(k)] = NormalizeYAML(vv)
		}
		return out
	case []any:
		arr := make([]any, len(t))
		for i := range t {
			arr[i] = NormalizeYAML(t[i])
		}
		return arr
	default:
		return v
	}
}
