package sqlgen

import (
	"errors"
	"fmt"
)

var (
	ErrMissingWhere       = errors.New("operation without WHERE is forbidden")
	ErrMissingTable       = errors.New("table is not set")
	ErrNoOperation        = errors.New("operation is not set")
	ErrUnsupportedDialect = errors.New("unsupported dialect")
)

// BuilderError is a structural statement error raised while compiling,
// before anything is sent to the server.
type BuilderError struct {
	Op  Operation
	Err error
}

// Error implements the error interface.
func (e *BuilderError) Error() string {
	return fmt.Sprintf("sqlgen: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying sentinel.
func (e *BuilderError) Unwrap() error {
	return e.Err
}

// IsBuilderError reports whether err is or wraps a *BuilderError.
func IsBuilderError(err error) bool {
	var be *BuilderError
	return errors.As(err, &be)
}
