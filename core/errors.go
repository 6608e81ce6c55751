package core

import "github.com/pkg/errors"

// FieldError attaches a message to one submitted field. The API layer
// renders a slice of these as a field→message JSON object.
type FieldError struct {
	Field string
	Error string
}

// ValidationError carries the field errors of a rejected write. Err is
// optional context used when no field breakdown applies.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{Err: err, Fields: flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// shutdown is a sentinel for unrecoverable states. Catching one means the
// server should stop gracefully.
type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

// IsShutdown checks whether a shutdown error is hiding in the chain.
func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
