package codec

import (
	"time"

	modelkit "github.com/reoring/modelkit"
)

// TimeRFC3339 converts between RFC3339 strings and time.Time.
func TimeRFC3339() Codec { return rfc3339Codec{} }

type rfc3339Codec struct{}

func (rfc3339Codec) Kind() modelkit.Kind { return modelkit.KindDateTime }

func (rfc3339Codec) Decode(v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return v, nil
	}
	t, err := parseRFC3339(s)
	if err != nil {
		return nil, modelkit.NewValidationError(modelkit.CodeInvalidFormat, "", "invalid RFC3339 time "+quote(s))
	}
	return t, nil
}

func (rfc3339Codec) Encode(v any) (any, error) {
	if t, ok := v.(time.Time); ok {
		return formatRFC3339Canonical(t), nil
	}
	return v, nil
}

func parseRFC3339(s string) (time.Time, error) {
	// Accept RFC3339Nano (trailing zeros optional)
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		if t2, err2 := time.Parse(time.RFC3339, s); err2 == nil {
			return t2, nil
		}
		return time.Time{}, err
	}
	return t, nil
}

func formatRFC3339Canonical(t time.Time) string {
	// Normalize to UTC and format using RFC3339Nano (Go trims trailing zeros)
	return t.UTC().Format(time.RFC3339Nano)
}
