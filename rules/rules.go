package rules

import (
	"fmt"
	"reflect"
	"strings"

	modelkit "github.com/reoring/modelkit"
)

// Rule is a class-level invariant, registered with ClassBuilder.Refine.
type Rule = func(*modelkit.Instance) error

// Op defines simple comparison operators for If(...).Then(...)
type Op int

const (
	Eq Op = iota
	Ne
	Lt
	Le
	Gt
	Ge
)

// Conditional composes conditional execution of rules.
type Conditional struct {
	path string
	op   Op
	want any
	all  []Conditional // composite AND
	any  []Conditional // composite OR
}

// If builds a conditional that evaluates a field path against a value using
// an operator. The path is dotted through embedded fields, e.g. "engine.kind".
func If(path string, op Op, want any) Conditional {
	return Conditional{path: path, op: op, want: want}
}

// IfAll builds a conditional that requires all conditions to hold.
func IfAll(conds ...Conditional) Conditional { return Conditional{all: conds} }

// IfAny builds a conditional that requires any condition to hold.
func IfAny(conds ...Conditional) Conditional { return Conditional{any: conds} }

// And combines the receiver with additional conditions using logical AND.
func (c Conditional) And(others ...Conditional) Conditional {
	conds := append([]Conditional{c}, others...)
	return IfAll(conds...)
}

// Or combines the receiver with additional conditions using logical OR.
func (c Conditional) Or(others ...Conditional) Conditional {
	conds := append([]Conditional{c}, others...)
	return IfAny(conds...)
}

// Then attaches rules to run when the condition is satisfied. The first
// failing rule wins.
func (c Conditional) Then(rules ...Rule) Rule {
	return func(inst *modelkit.Instance) error {
		if !evalConditional(inst, c) {
			return nil
		}
		return And(rules...)(inst)
	}
}

// Require fails when the field at path is nil. Useful after If(...).Then.
func Require(path string) Rule {
	return func(inst *modelkit.Instance) error {
		v, ok := valueAtPath(inst, path)
		if !ok || v == nil {
			return modelkit.NewValidationError(modelkit.CodeCustom, path, "is required")
		}
		return nil
	}
}

// AtLeastOne ensures the collection at path has at least 1 element.
func AtLeastOne(path string) Rule {
	return func(inst *modelkit.Instance) error {
		val, ok := valueAtPath(inst, path)
		if !ok {
			return nil
		}
		if n, ok := length(val); ok && n == 0 {
			return modelkit.NewValidationError(modelkit.CodeCustom, path, "at least 1 item is required")
		}
		// Not a collection; do not report here to avoid noise
		return nil
	}
}

// UniqueBy ensures elements of the list at path have unique values for key.
// Elements may be instances or string-keyed maps.
// Note: keys are compared by their printed form, so 1 and "1" collide. Keep
// the key field a single type.
func UniqueBy(path, key string) Rule {
	return func(inst *modelkit.Instance) error {
		val, ok := valueAtPath(inst, path)
		if !ok {
			return nil
		}
		items, ok := val.([]any)
		if !ok {
			return nil
		}
		seen := map[string]int{}
		for i, elem := range items {
			kv, ok := valueWithin(elem, key)
			if !ok {
				continue
			}
			k := fmt.Sprint(kv)
			if j, dup := seen[k]; dup {
				return modelkit.NewValidationError(modelkit.CodeCustom, path,
					fmt.Sprintf("duplicate %s %q (items %d and %d)", key, k, j, i))
			}
			seen[k] = i
		}
		return nil
	}
}

// And runs rules in order and returns the first failure.
func And(rules ...Rule) Rule {
	return func(inst *modelkit.Instance) error {
		for _, r := range rules {
			if r == nil {
				continue
			}
			if err := r(inst); err != nil {
				return err
			}
		}
		return nil
	}
}

// Or succeeds if any rule succeeds. When all fail, the first failure is
// returned.
func Or(rules ...Rule) Rule {
	return func(inst *modelkit.Instance) error {
		var first error
		for _, r := range rules {
			if r == nil {
				continue
			}
			err := r(inst)
			if err == nil {
				return nil
			}
			if first == nil {
				first = err
			}
		}
		return first
	}
}

// ------- helpers -------

func evalConditional(inst *modelkit.Instance, c Conditional) bool {
	// composite AND
	if len(c.all) > 0 {
		for _, it := range c.all {
			if !evalConditional(inst, it) {
				return false
			}
		}
		return true
	}
	// composite OR
	if len(c.any) > 0 {
		for _, it := range c.any {
			if evalConditional(inst, it) {
				return true
			}
		}
		return false
	}
	// simple predicate
	cur, ok := valueAtPath(inst, c.path)
	if !ok {
		return false
	}
	return compare(cur, c.op, c.want)
}

// valueAtPath navigates embedded instances and string-keyed maps by a
// dotted path.
func valueAtPath(inst *modelkit.Instance, path string) (any, bool) {
	return valueWithin(inst, path)
}

func valueWithin(v any, rel string) (any, bool) {
	if rel == "" {
		return v, true
	}
	cur := v
	for _, seg := range strings.Split(rel, ".") {
		switch t := cur.(type) {
		case *modelkit.Instance:
			if t == nil {
				return nil, false
			}
			nv, ok := t.Lookup(seg)
			if !ok {
				return nil, false
			}
			cur = nv
		case map[string]any:
			nv, ok := t[seg]
			if !ok {
				return nil, false
			}
			cur = nv
		case map[any]any:
			nv, ok := t[seg]
			if !ok {
				return nil, false
			}
			cur = nv
		default:
			return nil, false
		}
	}
	return cur, true
}

func length(v any) (int, bool) {
	if s, ok := v.(modelkit.Set); ok {
		return s.Len(), true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len(), true
	}
	return 0, false
}

func compare(cur any, op Op, want any) bool {
	switch op {
	case Eq:
		return equal(cur, want)
	case Ne:
		return !equal(cur, want)
	case Lt, Le, Gt, Ge:
		return compareOrdered(cur, op, want)
	default:
		return false
	}
}

// equal treats numbers of different Go types as equal when their values are.
func equal(a, b any) bool {
	if x, ok := toFloat64(a); ok {
		if y, ok := toFloat64(b); ok {
			return x == y
		}
	}
	return reflect.DeepEqual(a, b)
}

func compareOrdered(cur any, op Op, want any) bool {
	c := reflect.ValueOf(cur)
	w := reflect.ValueOf(want)
	if isIntLike(c.Kind()) && isIntLike(w.Kind()) {
		a := toInt64(c)
		b := toInt64(w)
		switch op {
		case Lt:
			return a < b
		case Le:
			return a <= b
		case Gt:
			return a > b
		case Ge:
			return a >= b
		}
	}
	a, ok := toFloat64(cur)
	if !ok {
		return false
	}
	b, ok := toFloat64(want)
	if !ok {
		return false
	}
	switch op {
	case Lt:
		return a < b
	case Le:
		return a <= b
	case Gt:
		return a > b
	case Ge:
		return a >= b
	}
	return false
}

func isIntLike(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	default:
		return false
	}
}

func toInt64(v reflect.Value) int64 {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(v.Uint())
	default:
		return 0
	}
}

// toFloat64 converts any Go number (but not bool) or json.Number to float64.
func toFloat64(v any) (float64, bool) {
	if v == nil {
		return 0, false
	}
	if n, ok := v.(interface{ Float64() (float64, error) }); ok {
		f, err := n.Float64()
		return f, err == nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	default:
		return 0, false
	}
}
