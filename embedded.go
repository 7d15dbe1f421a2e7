package modelkit

import "reflect"

// Embedded declares a field holding an instance of c. Mappings are expanded
// with c.New; instances of c (or of a class extending c) are stored as-is,
// without a copy, so the same instance may be shared by several owners.
func Embedded(c *Class, opts ...Option) *Field {
	f := &Field{kind: KindEmbedded, nullable: true, class: c, coerce: coerceEmbedded}
	if c == nil {
		f.misuse("Embedded requires a class")
	} else {
		f.def = ComputedDefault{Fn: func() any { return c.seeded() }}
	}
	f.apply(opts)
	return f
}

func coerceEmbedded(f *Field, v any) (any, error) {
	if inst, ok := v.(*Instance); ok && inst != nil && inst.class.IsA(f.class) {
		return inst, nil
	}
	if m, ok := stringMap(v); ok {
		inst, err := f.class.New(m)
		if err != nil {
			return nil, toValidationError(CodeValidation, "", err).under(f.name)
		}
		return inst, nil
	}
	return nil, fail(CodeNotInstance, f.name, map[string]string{"value": repr(v), "class": f.class.name})
}

// stringMap accepts map[string]any, maps keyed by a string kind, and
// map[any]any whose keys are all strings.
func stringMap(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case nil:
		return nil, false
	case map[string]any:
		return t, true
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			ks, ok := k.(string)
			if !ok {
				return nil, false
			}
			out[ks] = vv
		}
		return out, true
	case Set:
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	out := make(map[string]any, rv.Len())
	it := rv.MapRange()
	for it.Next() {
		out[it.Key().String()] = it.Value().Interface()
	}
	return out, true
}
