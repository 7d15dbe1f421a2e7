package modelkit

// Predicate reports whether a (coerced, mutated) value is acceptable.
type Predicate func(v any) bool

// Mutator transforms a value before nullability and validation checks. A
// returned error fails the assignment with CodeMutation.
type Mutator func(v any) (any, error)

// AllOf accepts a value only when every predicate does. Nil entries are skipped.
func AllOf(ps ...Predicate) Predicate {
	return func(v any) bool {
		for _, p := range ps {
			if p != nil && !p(v) {
				return false
			}
		}
		return true
	}
}

// AnyOf accepts a value when at least one predicate does.
func AnyOf(ps ...Predicate) Predicate {
	return func(v any) bool {
		for _, p := range ps {
			if p != nil && p(v) {
				return true
			}
		}
		return false
	}
}

// Not negates p.
func Not(p Predicate) Predicate {
	return func(v any) bool { return !p(v) }
}

// Typed adapts a predicate over T. nil passes (nullability is the job of the
// nullable flag); any other non-T value fails.
func Typed[T any](fn func(T) bool) Predicate {
	return func(v any) bool {
		if v == nil {
			return true
		}
		t, ok := v.(T)
		if !ok {
			return false
		}
		return fn(t)
	}
}

// Transform lifts an infallible function into a Mutator.
func Transform(fn func(any) any) Mutator {
	return func(v any) (any, error) { return fn(v), nil }
}

// Chain runs mutators left to right, stopping at the first error.
func Chain(ms ...Mutator) Mutator {
	return func(v any) (any, error) {
		var err error
		for _, m := range ms {
			if m == nil {
				continue
			}
			if v, err = m(v); err != nil {
				return nil, err
			}
		}
		return v, nil
	}
}
