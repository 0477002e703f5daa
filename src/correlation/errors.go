package correlation

import (
	"errors"
	"fmt"
)

// ErrCancelled is wrapped by the outcome of every operation resolved through
// CancelAll.
var ErrCancelled = errors.New("operation cancelled")

// UnknownCorrelationError is returned by Complete when the token does not
// match a pending operation, either because it was never issued or because it
// was already completed.
type UnknownCorrelationError struct {
	Token Token
}

// Error ...
func (e *UnknownCorrelationError) Error() string {
	return fmt.Sprintf("no pending operation for token %s", e.Token)
}

// IsUnknownCorrelation reports whether err is, or wraps, an
// UnknownCorrelationError.
func IsUnknownCorrelation(err error) bool {
	var uce *UnknownCorrelationError
	return errors.As(err, &uce)
}

// IsCancelled reports whether err wraps ErrCancelled.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}
