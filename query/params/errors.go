package params

import (
	"errors"
	"fmt"
)

var (
	ErrMissingValue = errors.New("value not found")
	ErrEmptyList    = errors.New("empty list")
)

// BindError reports a placeholder that cannot be bound. It is returned before
// any statement is prepared.
type BindError struct {
	Name string
	Err  error
}

// Error implements the error interface.
func (e *BindError) Error() string {
	return fmt.Sprintf("bind :%s: %v", e.Name, e.Err)
}

// Unwrap returns the underlying sentinel.
func (e *BindError) Unwrap() error {
	return e.Err
}

// IsBindError reports whether err is or wraps a *BindError.
func IsBindError(err error) bool {
	var be *BindError
	return errors.As(err, &be)
}
