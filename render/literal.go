package render

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	modelkit "github.com/reoring/modelkit"
)

// Literal renders v as a Go expression that evaluates to an equal value when
// assigned to any. Supported: nil, bool, string, []byte, Go numbers,
// json.Number, time.Time (UTC), time.Duration, []any, map[string]any,
// map[any]any and modelkit.Set.
func Literal(v any) (string, error) {
	s, _, err := literal(v)
	return s, err
}

func literal(v any) (src string, usesTime bool, err error) {
	switch t := v.(type) {
	case nil:
		return "nil", false, nil
	case bool:
		return strconv.FormatBool(t), false, nil
	case string:
		return strconv.Quote(t), false, nil
	case []byte:
		return "[]byte(" + strconv.Quote(string(t)) + ")", false, nil
	case int:
		return strconv.Itoa(t), false, nil
	case int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%T(%d)", t, t), false, nil
	case float32:
		f, err := floatLit(float64(t))
		return "float32(" + f + ")", false, err
	case float64:
		f, err := floatLit(t)
		return f, false, err
	case fmt.Stringer:
		// json.Number and friends render as their text; time values below
		// are matched before this case by their concrete types.
		if d, ok := v.(time.Duration); ok {
			return fmt.Sprintf("time.Duration(%d)", int64(d)), true, nil
		}
		if tm, ok := v.(time.Time); ok {
			if tm.Location() != time.UTC {
				return "", false, fmt.Errorf("%w: non-UTC time %v", ErrUnrenderable, tm)
			}
			return fmt.Sprintf("time.Date(%d, %d, %d, %d, %d, %d, %d, time.UTC)",
				tm.Year(), tm.Month(), tm.Day(), tm.Hour(), tm.Minute(), tm.Second(), tm.Nanosecond()), true, nil
		}
		if n, ok := v.(interface{ Float64() (float64, error) }); ok {
			if _, err := n.Float64(); err == nil {
				return t.String(), false, nil
			}
		}
	case []any:
		parts := make([]string, len(t))
		for i, e := range t {
			s, ut, err := literal(e)
			if err != nil {
				return "", false, err
			}
			parts[i], usesTime = s, usesTime || ut
		}
		return "[]any{" + strings.Join(parts, ", ") + "}", usesTime, nil
	case map[string]any:
		m := make(map[any]any, len(t))
		for k, e := range t {
			m[k] = e
		}
		return mapLiteral("map[string]any", m)
	case map[any]any:
		return mapLiteral("map[any]any", t)
	case modelkit.Set:
		items := t.Items()
		parts := make([]string, len(items))
		for i, e := range items {
			s, ut, err := literal(e)
			if err != nil {
				return "", false, err
			}
			parts[i], usesTime = s, usesTime || ut
		}
		return "modelkit.NewSet(" + strings.Join(parts, ", ") + ")", usesTime, nil
	}
	return "", false, fmt.Errorf("%w: %T", ErrUnrenderable, v)
}

func mapLiteral(typ string, m map[any]any) (string, bool, error) {
	type entry struct{ k, v string }
	entries := make([]entry, 0, len(m))
	usesTime := false
	for k, e := range m {
		ks, ut1, err := literal(k)
		if err != nil {
			return "", false, err
		}
		vs, ut2, err := literal(e)
		if err != nil {
			return "", false, err
		}
		usesTime = usesTime || ut1 || ut2
		entries = append(entries, entry{ks, vs})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].k < entries[j].k })
	parts := make([]string, len(entries))
	for i, e := range entries {
		parts[i] = e.k + ": " + e.v
	}
	return typ + "{" + strings.Join(parts, ", ") + "}", usesTime, nil
}

// floatLit keeps a decimal point so the untyped constant stays a float64.
func floatLit(f float64) (string, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", fmt.Errorf("%w: %v", ErrUnrenderable, f)
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s, nil
}
