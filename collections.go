package modelkit

import (
	"reflect"
	"sort"
)

// List declares a []any field. Values(d) validates every element through d.
func List(opts ...Option) *Field {
	return newCollection(KindList, func() any { return []any{} }, opts)
}

// SetOf declares a Set field. Values(d) validates every element through d.
func SetOf(opts ...Option) *Field {
	return newCollection(KindSet, func() any { return Set{} }, opts)
}

// Dict declares a map[any]any field. Keys(d) validates keys, Values(d) values.
func Dict(opts ...Option) *Field {
	return newCollection(KindDict, func() any { return map[any]any{} }, opts)
}

func newCollection(kind Kind, empty func() any, opts []Option) *Field {
	f := &Field{kind: kind, def: ComputedDefault{Fn: empty}, coerce: coerceCollection}
	f.apply(opts)
	// collections are empty, never nil, once assigned
	f.nullable = false
	return f
}

func coerceCollection(f *Field, v any) (any, error) {
	switch f.kind {
	case KindList:
		return coerceList(f, v)
	case KindSet:
		return coerceSet(f, v)
	default:
		return coerceDict(f, v)
	}
}

// element runs one collection element through the inner value descriptor.
func (f *Field) element(path string, e any) (any, error) {
	if f.value == nil {
		return e, nil
	}
	ev, err := f.value.Check(e)
	if err != nil {
		return nil, toValidationError(CodeValidation, "", err).under(path)
	}
	return ev, nil
}

func coerceList(f *Field, v any) (any, error) {
	if v == nil {
		return []any{}, nil
	}
	items, ok := listItems(v)
	if !ok {
		return nil, invalidType(f, v, "a list")
	}
	out := make([]any, 0, len(items))
	for _, e := range items {
		ev, err := f.element(f.name, e)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, nil
}

func coerceSet(f *Field, v any) (any, error) {
	if v == nil {
		return Set{}, nil
	}
	src, ok := v.(Set)
	if !ok {
		return nil, invalidType(f, v, "a set")
	}
	out := make(Set, len(src))
	for _, e := range src.Items() {
		ev, err := f.element(f.name, e)
		if err != nil {
			return nil, err
		}
		if !hashable(ev) {
			return nil, fail(CodeUnhashable, f.name, map[string]string{"value": repr(ev)})
		}
		out.Add(ev)
	}
	return out, nil
}

func coerceDict(f *Field, v any) (any, error) {
	if v == nil {
		return map[any]any{}, nil
	}
	keys, vals, ok := dictEntries(v)
	if !ok {
		return nil, invalidType(f, v, "a dict")
	}
	out := make(map[any]any, len(keys))
	for i, k := range keys {
		if f.key != nil {
			ck, err := f.key.Check(k)
			if err != nil {
				ve := toValidationError(CodeValidation, "", err)
				e := fail(CodeInvalidKey, f.name, map[string]string{"key": repr(k), "detail": ve.Message})
				e.Cause = ve
				return nil, e
			}
			k = ck
		}
		if !hashable(k) {
			return nil, fail(CodeUnhashable, f.name, map[string]string{"value": repr(k)})
		}
		ev, err := f.element(keyPath(f.name, k), vals[i])
		if err != nil {
			return nil, err
		}
		out[k] = ev
	}
	return out, nil
}

// listItems accepts []any and any other slice or array except []byte.
func listItems(v any) ([]any, bool) {
	switch t := v.(type) {
	case []any:
		return t, true
	case []byte, string:
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// dictEntries accepts any Go map except Set and returns its entries ordered
// by key.
func dictEntries(v any) ([]any, []any, bool) {
	if _, isSet := v.(Set); isSet {
		return nil, nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map {
		return nil, nil, false
	}
	type entry struct{ k, v any }
	entries := make([]entry, 0, rv.Len())
	it := rv.MapRange()
	for it.Next() {
		entries = append(entries, entry{it.Key().Interface(), it.Value().Interface()})
	}
	sort.Slice(entries, func(i, j int) bool { return lessAny(entries[i].k, entries[j].k) })
	keys := make([]any, len(entries))
	vals := make([]any, len(entries))
	for i, e := range entries {
		keys[i], vals[i] = e.k, e.v
	}
	return keys, vals, true
}
