package modelkit

import (
	"fmt"
	"reflect"
	"sort"
)

// Set is the stored representation of SetOf fields. Elements must be
// hashable (comparable) values.
type Set map[any]struct{}

// NewSet builds a Set from items. It panics on unhashable items, as a Go map
// would.
func NewSet(items ...any) Set {
	s := make(Set, len(items))
	for _, it := range items {
		s.Add(it)
	}
	return s
}

func (s Set) Add(v any) { s[v] = struct{}{} }

func (s Set) Has(v any) bool {
	if !hashable(v) {
		return false
	}
	_, ok := s[v]
	return ok
}

func (s Set) Len() int { return len(s) }

// Items returns the elements in a deterministic order.
func (s Set) Items() []any {
	out := make([]any, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return lessAny(out[i], out[j]) })
	return out
}

func hashable(v any) bool {
	if v == nil {
		return true
	}
	return reflect.TypeOf(v).Comparable()
}

// lessAny orders mixed values: numbers numerically, strings lexically, and
// otherwise by type name then printed form.
func lessAny(a, b any) bool {
	if af, ok := numericValue(a); ok {
		if bf, ok := numericValue(b); ok {
			return af < bf
		}
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		return as < bs
	}
	ta, tb := fmt.Sprintf("%T", a), fmt.Sprintf("%T", b)
	if ta != tb {
		return ta < tb
	}
	return fmt.Sprint(a) < fmt.Sprint(b)
}

func numericValue(v any) (float64, bool) {
	i, u, f, kind, ok := number(v)
	switch {
	case !ok:
		return 0, false
	case kind == 'i':
		return float64(i), true
	case kind == 'u':
		return float64(u), true
	}
	return f, true
}

// keyString renders a dict key for paths and JSON projection.
func keyString(k any) string {
	if s, ok := k.(string); ok {
		return s
	}
	return fmt.Sprint(k)
}
