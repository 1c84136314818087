package operations

import (
	"errors"
	"fmt"
)

var (
	errEmptyQuery       = errors.New("empty query")
	errUnknownOperation = errors.New("unknown operation")
	errInvalidFormat    = errors.New("invalid format")
	errUnknownParameter = errors.New("unknown parameter")
	errMissingKey       = errors.New("missing row key")
	errRowNotFound      = errors.New("row not found")
	errRowExists        = errors.New("row already exists")
)

// Error wraps a sentinel error with additional context
type Error struct {
	err     error  // The underlying sentinel error
	context string // Additional error context
}

func (e *Error) Error() string {
	if e.context == "" {
		return e.err.Error()
	}
	return fmt.Sprintf("%s: %s", e.err.Error(), e.context)
}

func (e *Error) Unwrap() error {
	return e.err
}

func newError(err error, format string, args ...interface{}) *Error {
	return &Error{
		err:     err,
		context: fmt.Sprintf(format, args...),
	}
}
