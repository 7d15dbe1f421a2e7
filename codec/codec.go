// Package codec converts the wire form of temporal values to and from the Go
// values modelkit stores.
//
// DateTime and Duration fields accept only time.Time and time.Duration, so a
// decoded JSON or YAML document needs its text timestamps converted before
// construction. Document walks a class registry (embedded classes and
// collection elements included) and applies the codec registered for each
// field kind; Encode does the reverse on an instance projection.
package codec

import (
	"fmt"
	"strconv"

	modelkit "github.com/reoring/modelkit"
)

// Codec converts one field kind. Decode and Encode pass through values they
// do not recognise, leaving type errors to the field pipeline.
type Codec interface {
	Kind() modelkit.Kind
	Decode(v any) (any, error)
	Encode(v any) (any, error)
}

// Set maps field kinds to codecs.
type Set map[modelkit.Kind]Codec

// Default holds TimeRFC3339 and DurationText.
func Default() Set {
	return Set{}.With(TimeRFC3339()).With(DurationText())
}

// With registers c for its kind and returns s.
func (s Set) With(c Codec) Set {
	s[c.Kind()] = c
	return s
}

// Document returns a copy of doc with every value of a codec-handled field
// decoded. Errors carry the field path.
func (s Set) Document(c *modelkit.Class, doc map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		f, ok := c.Field(k)
		if !ok {
			out[k] = v
			continue
		}
		dv, err := s.value(f, v, false)
		if err != nil {
			return nil, modelkit.ErrorUnder(k, err)
		}
		out[k] = dv
	}
	return out, nil
}

// Encode projects inst like ToJSON, with every codec-handled value encoded.
func (s Set) Encode(inst *modelkit.Instance) (map[string]any, error) {
	out := map[string]any{}
	for _, n := range inst.FieldNames() {
		f, _ := inst.Class().Field(n)
		v, err := s.value(f, inst.Get(n), true)
		if err != nil {
			return nil, modelkit.ErrorUnder(n, err)
		}
		out[n] = modelkit.Project(v)
	}
	return out, nil
}

// EncodeValue encodes one value of field f the way Encode does, recursing
// through embedded instances and collection elements. Set elements come back
// as a sorted list.
func (s Set) EncodeValue(f *modelkit.Field, v any) (any, error) {
	return s.value(f, v, true)
}

// DecodeValue decodes one value of field f the way Document does. A list
// given for a SetOf field stays a list.
func (s Set) DecodeValue(f *modelkit.Field, v any) (any, error) {
	return s.value(f, v, false)
}

// value converts v and recurses through embedded documents and list or dict
// elements.
func (s Set) value(f *modelkit.Field, v any, encode bool) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch f.Kind() {
	case modelkit.KindEmbedded:
		switch t := v.(type) {
		case map[string]any:
			if !encode {
				return s.Document(f.Target(), t)
			}
		case *modelkit.Instance:
			if encode {
				return s.Encode(t)
			}
		}
		return v, nil
	case modelkit.KindList, modelkit.KindSet:
		var items []any
		switch t := v.(type) {
		case []any:
			items = t
		case modelkit.Set:
			items = t.Items()
		}
		if f.ValueField() == nil || items == nil {
			return v, nil
		}
		out := make([]any, len(items))
		for i, e := range items {
			ev, err := s.value(f.ValueField(), e, encode)
			if err != nil {
				return nil, err
			}
			out[i] = ev
		}
		return out, nil
	case modelkit.KindDict:
		if f.ValueField() == nil {
			return v, nil
		}
		switch t := v.(type) {
		case map[string]any:
			out := make(map[string]any, len(t))
			for k, e := range t {
				ev, err := s.value(f.ValueField(), e, encode)
				if err != nil {
					return nil, modelkit.ErrorUnder("['"+k+"']", err)
				}
				out[k] = ev
			}
			return out, nil
		case map[any]any:
			out := make(map[any]any, len(t))
			for k, e := range t {
				ev, err := s.value(f.ValueField(), e, encode)
				if err != nil {
					return nil, modelkit.ErrorUnder("['"+fmt.Sprint(k)+"']", err)
				}
				out[k] = ev
			}
			return out, nil
		}
		return v, nil
	}
	c, ok := s[f.Kind()]
	if !ok {
		return v, nil
	}
	if encode {
		return c.Encode(v)
	}
	return c.Decode(v)
}

func quote(s string) string { return strconv.Quote(s) }
