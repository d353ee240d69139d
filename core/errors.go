package core

import "github.com/pkg/errors"

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

// ValidationError is returned whenever input is rejected, as a whole (Err) or field by field.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return err.Fields[0].Field + ": " + err.Fields[0].Error
		}
		return "validation failed"
	}
	return err.Err.Error()
}

// FieldMap returns the field errors keyed by field name, nil when there are none.
func (err ValidationError) FieldMap() map[string]string {
	if len(err.Fields) == 0 {
		return nil
	}
	m := make(map[string]string, len(err.Fields))
	for _, fErr := range err.Fields {
		if _, ok := m[fErr.Field]; !ok { // first error of a field wins
			m[fErr.Field] = fErr.Error
		}
	}
	return m
}

// AsValidationError returns the *ValidationError held by err, if any.
func AsValidationError(err error) (*ValidationError, bool) {
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return vErr, true
	}
	return nil, false
}

type shutdown struct {
	message string
	cause   error
}

// NewShutdownError is used when the app cannot keep on serving requests safely, i.e. storage integrity errors.
func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

// WrapShutdown marks err as fatal to the app.
func WrapShutdown(err error, msg string) error {
	return &shutdown{message: msg, cause: err}
}

func (s *shutdown) Error() string {
	if s.cause == nil {
		return s.message
	}
	return s.message + ": " + s.cause.Error()
}

func (s *shutdown) Unwrap() error { return s.cause }

// IsShutdown reports whether a shutdown error is anywhere in err's chain.
func IsShutdown(err error) bool {
	var s *shutdown
	return errors.As(err, &s)
}
