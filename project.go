package modelkit

// Project maps a stored value to plain JSON-compatible data: instances via
// their ToJSON, lists and sets element-wise (sets in sorted order), dicts to
// map[string]any with stringified keys (keys that print alike resolve the
// same way on every call). Other scalars pass through unchanged.
func Project(v any) any {
	switch t := v.(type) {
	case *Instance:
		if t == nil {
			return nil
		}
		return t.ToJSON()
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = Project(e)
		}
		return out
	case Set:
		items := t.Items()
		for i, e := range items {
			items[i] = Project(e)
		}
		return items
	case map[any]any:
		// keys in sorted order: when two keys print alike the later one wins
		keys, vals, _ := dictEntries(t)
		out := make(map[string]any, len(keys))
		for i, k := range keys {
			out[keyString(k)] = Project(vals[i])
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = Project(e)
		}
		return out
	}
	return v
}
