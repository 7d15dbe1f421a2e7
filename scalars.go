package modelkit

import (
	"math"
	"strconv"
	"time"
	"unicode/utf8"
)

// Generic accepts any value; only the mutator, nullable flag and validator
// apply.
func Generic(opts ...Option) *Field { return newField(KindGeneric, nil, opts) }

// String accepts text. []byte input is decoded as UTF-8.
func String(opts ...Option) *Field { return newField(KindString, coerceString, opts) }

// Integer coerces numbers (but not booleans) to int, truncating toward zero.
func Integer(opts ...Option) *Field { return newField(KindInteger, coerceInteger, opts) }

// Float coerces numbers (but not booleans) to float64.
func Float(opts ...Option) *Field { return newField(KindFloat, coerceFloat, opts) }

// Bool accepts booleans and the numbers 0 and 1.
func Bool(opts ...Option) *Field { return newField(KindBool, coerceBool, opts) }

// DateTime accepts time.Time values only.
func DateTime(opts ...Option) *Field { return newField(KindDateTime, coerceDateTime, opts) }

// Duration accepts time.Duration values only.
func Duration(opts ...Option) *Field { return newField(KindDuration, coerceDuration, opts) }

func invalidType(f *Field, v any, expected string) *ValidationError {
	return fail(CodeInvalidType, f.name, map[string]string{"value": repr(v), "expected": expected})
}

func coerceString(f *Field, v any) (any, error) {
	switch s := v.(type) {
	case nil, string:
		return v, nil
	case []byte:
		if !utf8.Valid(s) {
			return nil, fail(CodeInvalidFormat, f.name, map[string]string{"value": repr(v), "expected": "utf-8"})
		}
		return string(s), nil
	}
	return nil, invalidType(f, v, "a string")
}

// number classifies v as a non-boolean number: kind 'i' (signed), 'u'
// (unsigned) or 'f' (float). Exact integers never take a float round trip.
func number(v any) (i int64, u uint64, fl float64, kind byte, ok bool) {
	switch n := v.(type) {
	case int:
		return int64(n), 0, 0, 'i', true
	case int8:
		return int64(n), 0, 0, 'i', true
	case int16:
		return int64(n), 0, 0, 'i', true
	case int32:
		return int64(n), 0, 0, 'i', true
	case int64:
		return n, 0, 0, 'i', true
	case uint:
		return 0, uint64(n), 0, 'u', true
	case uint8:
		return 0, uint64(n), 0, 'u', true
	case uint16:
		return 0, uint64(n), 0, 'u', true
	case uint32:
		return 0, uint64(n), 0, 'u', true
	case uint64:
		return 0, n, 0, 'u', true
	case float32:
		return 0, 0, float64(n), 'f', true
	case float64:
		return 0, 0, n, 'f', true
	case jsonNumber:
		if iv, err := strconv.ParseInt(n.String(), 10, 64); err == nil {
			return iv, 0, 0, 'i', true
		}
		if fv, err := n.Float64(); err == nil {
			return 0, 0, fv, 'f', true
		}
	}
	return 0, 0, 0, 0, false
}

// jsonNumber matches json.Number from encoding/json and the decoders that
// mirror it.
type jsonNumber interface {
	String() string
	Float64() (float64, error)
	Int64() (int64, error)
}

func coerceInteger(f *Field, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	i, u, fl, kind, ok := number(v)
	if !ok {
		return nil, invalidType(f, v, "an int")
	}
	switch kind {
	case 'i':
		if i > math.MaxInt || i < math.MinInt {
			return nil, fail(CodeOverflow, f.name, map[string]string{"value": repr(v), "expected": "int"})
		}
		return int(i), nil
	case 'u':
		if u > math.MaxInt {
			return nil, fail(CodeOverflow, f.name, map[string]string{"value": repr(v), "expected": "int"})
		}
		return int(u), nil
	}
	if math.IsNaN(fl) || math.IsInf(fl, 0) || fl >= math.MaxInt || fl < math.MinInt {
		return nil, fail(CodeOverflow, f.name, map[string]string{"value": repr(v), "expected": "int"})
	}
	return int(math.Trunc(fl)), nil
}

func coerceFloat(f *Field, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	i, u, fl, kind, ok := number(v)
	if !ok {
		return nil, invalidType(f, v, "a float")
	}
	switch kind {
	case 'i':
		return float64(i), nil
	case 'u':
		return float64(u), nil
	}
	return fl, nil
}

func coerceBool(f *Field, v any) (any, error) {
	switch b := v.(type) {
	case nil, bool:
		return b, nil
	}
	i, u, fl, kind, ok := number(v)
	if ok {
		switch {
		case kind == 'i' && (i == 0 || i == 1):
			return i == 1, nil
		case kind == 'u' && (u == 0 || u == 1):
			return u == 1, nil
		case kind == 'f' && (fl == 0 || fl == 1):
			return fl == 1, nil
		}
	}
	return nil, invalidType(f, v, "a bool")
}

func coerceDateTime(f *Field, v any) (any, error) {
	switch v.(type) {
	case nil, time.Time:
		return v, nil
	}
	return nil, invalidType(f, v, "a datetime")
}

func coerceDuration(f *Field, v any) (any, error) {
	switch v.(type) {
	case nil, time.Duration:
		return v, nil
	}
	return nil, invalidType(f, v, "a duration")
}
