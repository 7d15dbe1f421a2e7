// Package middleware decodes HTTP request bodies into modelkit instances.
//
// The net/http handler here is shared by the echo and gin adapters, which
// live in their own modules so that the core stays free of framework deps.
package middleware

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	json "github.com/goccy/go-json"

	modelkit "github.com/reoring/modelkit"
	"github.com/reoring/modelkit/codec"
)

// DefaultMaxBytes caps request bodies when Opt.MaxBytes is zero.
const DefaultMaxBytes = 1 << 20

type ctxKeyInstance struct{}

// ContextWithInstance attaches a decoded instance to the context.
func ContextWithInstance(ctx context.Context, inst *modelkit.Instance) context.Context {
	return context.WithValue(ctx, ctxKeyInstance{}, inst)
}

// InstanceFromContext retrieves the instance stored by ContextWithInstance.
func InstanceFromContext(ctx context.Context) (*modelkit.Instance, bool) {
	inst, ok := ctx.Value(ctxKeyInstance{}).(*modelkit.Instance)
	return inst, ok && inst != nil
}

// Opt configures body decoding. The zero value uses codec.Default and
// DefaultMaxBytes.
type Opt struct {
	Codecs   codec.Set
	MaxBytes int64
}

// DefaultOpt returns the options used for a zero Opt.
func DefaultOpt() Opt {
	return Opt{Codecs: codec.Default(), MaxBytes: DefaultMaxBytes}
}

func (o Opt) withDefaults() Opt {
	if o.Codecs == nil {
		o.Codecs = codec.Default()
	}
	if o.MaxBytes <= 0 {
		o.MaxBytes = DefaultMaxBytes
	}
	return o
}

// DecodeBody reads one JSON object from r, converts text-encoded temporal
// values and constructs a validated instance of c.
func DecodeBody(c *modelkit.Class, r io.Reader, opt Opt) (*modelkit.Instance, error) {
	opt = opt.withDefaults()
	data, err := io.ReadAll(io.LimitReader(r, opt.MaxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("middleware: read body: %w", err)
	}
	if int64(len(data)) > opt.MaxBytes {
		return nil, fmt.Errorf("middleware: read body: %w", &http.MaxBytesError{Limit: opt.MaxBytes})
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("middleware: decode json: %w", err)
	}
	m, ok := doc.(map[string]any)
	if !ok {
		return nil, modelkit.NewValidationError(modelkit.CodeInvalidType, "", "request body must be a JSON object")
	}
	m, err = opt.Codecs.Document(c, m)
	if err != nil {
		return nil, err
	}
	inst, err := c.New(m)
	if err != nil {
		return nil, err
	}
	if err := inst.Validate(); err != nil {
		return nil, err
	}
	return inst, nil
}

// Status maps a decode failure to an HTTP status: 422 for validation
// failures, 413 for oversized bodies and 400 otherwise.
func Status(err error) int {
	if _, ok := modelkit.AsValidationError(err); ok {
		return http.StatusUnprocessableEntity
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

// ErrorPayload shapes a decode failure for JSON responses.
func ErrorPayload(err error) map[string]any {
	if ve, ok := modelkit.AsValidationError(err); ok {
		return map[string]any{"error": map[string]any{
			"code":    ve.Code,
			"field":   ve.Field,
			"message": ve.Message,
		}}
	}
	return map[string]any{"error": map[string]any{"message": err.Error()}}
}

// Decode returns net/http middleware that decodes the request body into an
// instance of c and stores it in the request context. Failures are answered
// with ErrorPayload and the next handler is not called.
func Decode(c *modelkit.Class, opt Opt) func(http.Handler) http.Handler {
	opt = opt.withDefaults()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body := http.MaxBytesReader(w, r.Body, opt.MaxBytes)
			inst, err := DecodeBody(c, body, opt)
			if err != nil {
				WriteError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithInstance(r.Context(), inst)))
		})
	}
}

// WriteError writes err as a JSON ErrorPayload with the matching Status.
func WriteError(w http.ResponseWriter, err error) {
	b, mErr := json.Marshal(ErrorPayload(err))
	if mErr != nil {
		http.Error(w, err.Error(), Status(err))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(Status(err))
	_, _ = w.Write(b)
}
