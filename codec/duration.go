package codec

import (
	"time"

	modelkit "github.com/reoring/modelkit"
)

// DurationText converts between Go duration strings ("1h30m") and
// time.Duration. Integral JSON numbers decode as nanoseconds.
func DurationText() Codec { return durationCodec{} }

type durationCodec struct{}

func (durationCodec) Kind() modelkit.Kind { return modelkit.KindDuration }

func (durationCodec) Decode(v any) (any, error) {
	switch t := v.(type) {
	case string:
		d, err := time.ParseDuration(t)
		if err != nil {
			return nil, modelkit.NewValidationError(modelkit.CodeInvalidFormat, "", "invalid duration "+quote(t))
		}
		return d, nil
	case interface{ Int64() (int64, error) }:
		if n, err := t.Int64(); err == nil {
			return time.Duration(n), nil
		}
	case int:
		return time.Duration(t), nil
	case int64:
		return time.Duration(t), nil
	}
	return v, nil
}

func (durationCodec) Encode(v any) (any, error) {
	if d, ok := v.(time.Duration); ok {
		return d.String(), nil
	}
	return v, nil
}
