package jsonschema

import (
	"time"

	modelkit "github.com/reoring/modelkit"
)

// Export projects a class back into a Schema. Fields compiled by Compile
// carry their source keywords; other fields export their kind, static
// default and nullability only.
func Export(c *modelkit.Class) *Schema {
	s := &Schema{Type: TypeSet{"object"}, Properties: map[string]*Schema{}}
	for _, f := range c.Fields() {
		s.Properties[f.Name()] = exportField(f)
		if !f.Nullable() && !f.Kind().IsCollection() {
			s.Required = append(s.Required, f.Name())
		}
	}
	if c.UnknownPolicy() == modelkit.UnknownStrict {
		s.AdditionalProperties = &Additional{Allowed: false}
	}
	return s
}

func exportField(f *modelkit.Field) *Schema {
	var s *Schema
	switch f.Kind() {
	case modelkit.KindString:
		s = &Schema{Type: TypeSet{"string"}}
	case modelkit.KindInteger:
		s = &Schema{Type: TypeSet{"integer"}}
	case modelkit.KindFloat:
		s = &Schema{Type: TypeSet{"number"}}
	case modelkit.KindBool:
		s = &Schema{Type: TypeSet{"boolean"}}
	case modelkit.KindDateTime:
		s = &Schema{Type: TypeSet{"string"}, Format: "date-time"}
	case modelkit.KindDuration:
		// nanoseconds, as encoded by ToJSON
		s = &Schema{Type: TypeSet{"integer"}, Format: "duration"}
	case modelkit.KindList, modelkit.KindSet:
		s = &Schema{Type: TypeSet{"array"}, UniqueItems: f.Kind() == modelkit.KindSet}
		if vf := f.ValueField(); vf != nil {
			s.Items = exportField(vf)
		}
	case modelkit.KindDict:
		s = &Schema{Type: TypeSet{"object"}}
		if vf := f.ValueField(); vf != nil {
			s.AdditionalProperties = &Additional{Allowed: true, Schema: exportField(vf)}
		}
	case modelkit.KindEmbedded:
		s = Export(f.Target())
	default:
		s = &Schema{}
	}

	if d, ok := f.Default().(modelkit.StaticDefault); ok && d.Value != nil {
		s.Default = exportValue(d.Value)
	}
	if src, ok := f.Extra(ExtraSchema); ok {
		if ps, ok := src.(*Schema); ok {
			mergeKeywords(s, ps)
		}
	}
	return s
}

func exportValue(v any) any {
	switch t := v.(type) {
	case time.Time:
		return t.Format(time.RFC3339Nano)
	case time.Duration:
		return int64(t)
	}
	return modelkit.Project(v)
}

// mergeKeywords copies the keywords a descriptor cannot express.
func mergeKeywords(dst, src *Schema) {
	dst.Title = src.Title
	dst.Description = src.Description
	if dst.Format == "" {
		dst.Format = src.Format
	}
	if dst.Default == nil {
		dst.Default = src.Default
	}
	if src.Type.Has("null") && !dst.Type.Has("null") && len(dst.Type) > 0 {
		dst.Type = append(dst.Type, "null")
	}
	dst.Enum = src.Enum
	dst.Minimum, dst.Maximum = src.Minimum, src.Maximum
	dst.ExclusiveMinimum, dst.ExclusiveMaximum = src.ExclusiveMinimum, src.ExclusiveMaximum
	dst.MultipleOf = src.MultipleOf
	dst.MinLength, dst.MaxLength, dst.Pattern = src.MinLength, src.MaxLength, src.Pattern
	dst.MinItems, dst.MaxItems = src.MinItems, src.MaxItems
	dst.UniqueItems = dst.UniqueItems || src.UniqueItems
	if src.Closed() && dst.AdditionalProperties == nil {
		dst.AdditionalProperties = &Additional{Allowed: false}
	}
}
