package modelkit

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/reoring/modelkit/i18n"
)

// Error codes (exported consts for IDE completion and type safety by convention)
const (
	CodeInvalidType   = "invalid_type"
	CodeNotNullable   = "not_nullable"
	CodeValidation    = "validation"
	CodeMutation      = "mutation"
	CodeUnknownKey    = "unknown_key"
	CodeInvalidKey    = "invalid_key"
	CodeNotInstance   = "not_instance"
	CodeUnhashable    = "unhashable"
	CodeOverflow      = "overflow"
	CodeInvalidFormat = "invalid_format"
	// Class-level refines and other caller-defined invariants.
	CodeCustom = "custom"
)

// ValidationError is the single failure type produced while setting,
// constructing, updating or validating instances.
type ValidationError struct {
	Code    string // One of the codes listed above.
	Field   string // Root-relative field path (e.g. outer.inner, tags['a']); empty when unknown.
	Message string
	Cause   error // Optional: underlying error (for example a mutator failure).
}

// NewValidationError builds a ValidationError with an explicit message.
func NewValidationError(code, field, msg string) *ValidationError {
	return &ValidationError{Code: code, Field: field, Message: msg}
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return e.Field + ": " + e.Message
	}
	return e.Message
}

func (e *ValidationError) Unwrap() error { return e.Cause }

// under re-raises the error below parent, keeping code and message.
func (e *ValidationError) under(parent string) *ValidationError {
	return &ValidationError{Code: e.Code, Field: joinPath(parent, e.Field), Message: e.Message, Cause: e.Cause}
}

// AsValidationError extracts a *ValidationError using errors.As internally.
func AsValidationError(err error) (*ValidationError, bool) {
	if err == nil {
		return nil, false
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// toValidationError converts arbitrary errors from caller hooks into a
// ValidationError located at field.
func toValidationError(code, field string, err error) *ValidationError {
	if ve, ok := AsValidationError(err); ok {
		return ve
	}
	return &ValidationError{Code: code, Field: field, Message: err.Error(), Cause: err}
}

// UsageError reports definition-time misuse of the descriptor API. It is
// returned from ClassBuilder.Build and Field.Err, never from Set or New.
type UsageError struct {
	Field   string
	Message string
}

func (e *UsageError) Error() string {
	if e.Field != "" {
		return "modelkit: field " + strconv.Quote(e.Field) + ": " + e.Message
	}
	return "modelkit: " + e.Message
}

// fail renders the localized message for code and wraps it as a ValidationError.
func fail(code, field string, data map[string]string) *ValidationError {
	return &ValidationError{Code: code, Field: field, Message: i18n.T(code, data)}
}

// repr renders a value for messages: strings quoted, nil as null.
func repr(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return strconv.Quote(t)
	case []byte:
		return "b" + strconv.Quote(string(t))
	case *Instance:
		if t == nil {
			return "null"
		}
		return t.class.name + "(" + t.String() + ")"
	}
	return fmt.Sprintf("%v", v)
}

// ErrorUnder re-raises a ValidationError found in err with parent prefixed
// to its path, the way nested fields report failures. Other errors are
// returned unchanged.
func ErrorUnder(parent string, err error) error {
	if ve, ok := AsValidationError(err); ok {
		return ve.under(parent)
	}
	return err
}
