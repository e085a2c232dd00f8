package editor

import (
	"errors"
	"fmt"
)

var (
	ErrNoSchema        = errors.New("component has no editable properties")
	ErrUnknownProperty = errors.New("unknown property")
	ErrUnsupportedType = errors.New("unsupported property type")
	ErrUnsupportedOp   = errors.New("operation not supported for property type")
	ErrTypeMismatch    = errors.New("value does not match property type")
	ErrOutOfRange      = errors.New("number out of range")
	ErrInvalidOption   = errors.New("value is not one of the options")
	ErrIndexOutOfRange = errors.New("index out of range")
	ErrMissingRequired = errors.New("required property missing")
	ErrInternal        = errors.New("internal editor error")
)

// FieldError ties a validation failure to the dot-path of the field that
// caused it. It unwraps to one of the sentinel errors above.
type FieldError struct {
	Path   string
	Err    error
	Detail string
}

func (e *FieldError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %v: %s", e.Path, e.Err, e.Detail)
}

func (e *FieldError) Unwrap() error { return e.Err }

func fieldErr(path string, err error, format string, args ...any) *FieldError {
	return &FieldError{Path: path, Err: err, Detail: fmt.Sprintf(format, args...)}
}
