// Package openapi compiles the object schemas of an OpenAPI 3 document into
// modelkit classes.
//
// Documents are loaded with kin-openapi, every components.schemas entry is
// converted to the jsonschema subset and compiled with jsonschema.Compile.
// Component references are inlined: a property that refers to another
// component gets its own nested class named after the owner and property.
package openapi

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/getkin/kin-openapi/openapi3"

	modelkit "github.com/reoring/modelkit"
	"github.com/reoring/modelkit/jsonschema"
)

// ErrCycle reports a schema that refers to itself. Inlined classes cannot
// express recursion.
var ErrCycle = errors.New("openapi: recursive schema")

// Import loads data (JSON or YAML), validates it and compiles every object
// component schema. The result is keyed by component name. Non-object
// components are skipped.
func Import(ctx context.Context, data []byte, opts ...jsonschema.CompileOpt) (map[string]*modelkit.Class, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	loader := openapi3.NewLoader()
	loader.Context = ctx
	doc, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("openapi: load document: %w", err)
	}
	if err := doc.Validate(ctx, openapi3.DisableExamplesValidation()); err != nil {
		return nil, fmt.Errorf("openapi: validate: %w", err)
	}
	out := map[string]*modelkit.Class{}
	if doc.Components == nil {
		return out, nil
	}

	names := make([]string, 0, len(doc.Components.Schemas))
	for name := range doc.Components.Schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ref := doc.Components.Schemas[name]
		if ref == nil || ref.Value == nil || !isObject(ref.Value) {
			continue
		}
		s, err := Convert(ref)
		if err != nil {
			return nil, fmt.Errorf("openapi: %s: %w", name, err)
		}
		c, err := jsonschema.Compile(name, s, opts...)
		if err != nil {
			return nil, fmt.Errorf("openapi: %s: %w", name, err)
		}
		out[name] = c
	}
	return out, nil
}

func isObject(s *openapi3.Schema) bool {
	if s.Type == nil || len(s.Type.Slice()) == 0 {
		return len(s.Properties) > 0
	}
	return s.Type.Is(openapi3.TypeObject)
}

// Convert maps a resolved schema reference to the jsonschema subset.
func Convert(ref *openapi3.SchemaRef) (*jsonschema.Schema, error) {
	c := &converter{visiting: map[*openapi3.Schema]bool{}}
	return c.schema("#", ref)
}

type converter struct {
	visiting map[*openapi3.Schema]bool
}

func (c *converter) schema(where string, ref *openapi3.SchemaRef) (*jsonschema.Schema, error) {
	if ref == nil {
		return nil, nil
	}
	src := ref.Value
	if src == nil {
		return nil, fmt.Errorf("openapi: %s: unresolved reference %q", where, ref.Ref)
	}
	if c.visiting[src] {
		return nil, fmt.Errorf("%w at %s (%s)", ErrCycle, where, ref.Ref)
	}
	c.visiting[src] = true
	defer delete(c.visiting, src)

	out := &jsonschema.Schema{
		Title:       src.Title,
		Description: src.Description,
		Format:      src.Format,
		Default:     src.Default,
		Pattern:     src.Pattern,
		MultipleOf:  src.MultipleOf,
		UniqueItems: src.UniqueItems,
	}
	if src.Type != nil {
		out.Type = append(jsonschema.TypeSet(nil), src.Type.Slice()...)
	}
	if src.Nullable && len(out.Type) > 0 && !out.Type.Has("null") {
		out.Type = append(out.Type, "null")
	}
	if len(src.Enum) > 0 {
		out.Enum = append([]any(nil), src.Enum...)
	}

	// OpenAPI 3.0 bounds are numbers with boolean exclusivity flags.
	if src.Min != nil {
		v := *src.Min
		if src.ExclusiveMin {
			out.ExclusiveMinimum = &v
		} else {
			out.Minimum = &v
		}
	}
	if src.Max != nil {
		v := *src.Max
		if src.ExclusiveMax {
			out.ExclusiveMaximum = &v
		} else {
			out.Maximum = &v
		}
	}
	if src.MinLength != 0 {
		v := int(src.MinLength)
		out.MinLength = &v
	}
	if src.MaxLength != nil {
		v := int(*src.MaxLength)
		out.MaxLength = &v
	}
	if src.MinItems != 0 {
		v := int(src.MinItems)
		out.MinItems = &v
	}
	if src.MaxItems != nil {
		v := int(*src.MaxItems)
		out.MaxItems = &v
	}

	if len(src.Properties) > 0 {
		out.Properties = make(map[string]*jsonschema.Schema, len(src.Properties))
		for name, p := range src.Properties {
			ps, err := c.schema(where+"/properties/"+name, p)
			if err != nil {
				return nil, err
			}
			out.Properties[name] = ps
		}
	}
	if len(src.Required) > 0 {
		out.Required = append([]string(nil), src.Required...)
	}
	if src.Items != nil {
		items, err := c.schema(where+"/items", src.Items)
		if err != nil {
			return nil, err
		}
		out.Items = items
	}
	ap := src.AdditionalProperties
	switch {
	case ap.Schema != nil:
		vs, err := c.schema(where+"/additionalProperties", ap.Schema)
		if err != nil {
			return nil, err
		}
		out.AdditionalProperties = &jsonschema.Additional{Allowed: true, Schema: vs}
	case ap.Has != nil:
		out.AdditionalProperties = &jsonschema.Additional{Allowed: *ap.Has}
	}
	return out, nil
}
