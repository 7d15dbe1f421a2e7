package rules

import (
	"math"
	"net/mail"
	"reflect"
	"regexp"
	"time"
	"unicode/utf8"

	modelkit "github.com/reoring/modelkit"
)

// Field-level predicates for modelkit.WithValidator. Every predicate accepts
// nil; rejecting nil is the job of modelkit.NotNull.

// Min accepts numbers >= n.
func Min(n float64) modelkit.Predicate {
	return numeric(func(f float64) bool { return f >= n })
}

// Max accepts numbers <= n.
func Max(n float64) modelkit.Predicate {
	return numeric(func(f float64) bool { return f <= n })
}

// ExclusiveMin accepts numbers > n.
func ExclusiveMin(n float64) modelkit.Predicate {
	return numeric(func(f float64) bool { return f > n })
}

// ExclusiveMax accepts numbers < n.
func ExclusiveMax(n float64) modelkit.Predicate {
	return numeric(func(f float64) bool { return f < n })
}

// MultipleOf accepts numbers that are an integral multiple of n.
func MultipleOf(n float64) modelkit.Predicate {
	return numeric(func(f float64) bool {
		if n == 0 {
			return false
		}
		q := f / n
		return math.Abs(q-math.Round(q)) < 1e-9
	})
}

func numeric(fn func(float64) bool) modelkit.Predicate {
	return func(v any) bool {
		if v == nil {
			return true
		}
		f, ok := toFloat64(v)
		return ok && fn(f)
	}
}

// MinLen accepts strings (counted in runes) and collections with at least n
// elements.
func MinLen(n int) modelkit.Predicate {
	return sized(func(l int) bool { return l >= n })
}

// MaxLen accepts strings (counted in runes) and collections with at most n
// elements.
func MaxLen(n int) modelkit.Predicate {
	return sized(func(l int) bool { return l <= n })
}

func sized(fn func(int) bool) modelkit.Predicate {
	return func(v any) bool {
		if v == nil {
			return true
		}
		if s, ok := v.(string); ok {
			return fn(utf8.RuneCountInString(s))
		}
		l, ok := length(v)
		return ok && fn(l)
	}
}

// Pattern accepts strings matching expr. It panics if expr does not compile,
// like regexp.MustCompile.
func Pattern(expr string) modelkit.Predicate {
	re := regexp.MustCompile(expr)
	return modelkit.Typed(re.MatchString)
}

// Enum accepts values equal to one of allowed. Numbers compare by value.
func Enum(allowed ...any) modelkit.Predicate {
	return func(v any) bool {
		if v == nil {
			return true
		}
		for _, a := range allowed {
			if equal(v, a) {
				return true
			}
		}
		return false
	}
}

// Unique accepts lists without repeated elements.
func Unique() modelkit.Predicate {
	return func(v any) bool {
		if v == nil {
			return true
		}
		rv := reflect.ValueOf(v)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			return false
		}
		for i := 0; i < rv.Len(); i++ {
			for j := i + 1; j < rv.Len(); j++ {
				if equal(rv.Index(i).Interface(), rv.Index(j).Interface()) {
					return false
				}
			}
		}
		return true
	}
}

// RFC3339 accepts time.Time values and strings in RFC 3339 format.
func RFC3339() modelkit.Predicate {
	return func(v any) bool {
		switch t := v.(type) {
		case nil, time.Time:
			return true
		case string:
			_, err := time.Parse(time.RFC3339, t)
			return err == nil
		}
		return false
	}
}

// Email accepts bare addresses such as "a@example.com" (no display name).
func Email() modelkit.Predicate {
	return modelkit.Typed(func(s string) bool {
		addr, err := mail.ParseAddress(s)
		return err == nil && addr.Address == s
	})
}
