package pool

import (
	"errors"
	"fmt"
)

// ConfigErrType enumerates configuration failures.
type ConfigErrType uint32

const (
	// AlreadyExists is returned when creating a configuration whose name is
	// taken.
	AlreadyExists ConfigErrType = iota
	// NotFound is returned when a named configuration does not exist.
	NotFound
	// InUse is returned when deleting a configuration with an open session.
	InUse
	// Invalid is returned when a configuration fails validation.
	Invalid
)

// String ...
func (t ConfigErrType) String() string {
	switch t {
	case AlreadyExists:
		return "Already Exists"
	case NotFound:
		return "Not Found"
	case InUse:
		return "In Use"
	case Invalid:
		return "Invalid"
	default:
		return "Unknown"
	}
}

// ConfigErr is the error returned by configuration operations, and by Open
// when the configuration is missing.
type ConfigErr struct {
	errType ConfigErrType
	name    string
	cause   error
}

// NewConfigErr ...
func NewConfigErr(errType ConfigErrType, name string, cause error) *ConfigErr {
	return &ConfigErr{
		errType: errType,
		name:    name,
		cause:   cause,
	}
}

// Type returns the failure class.
func (e *ConfigErr) Type() ConfigErrType {
	return e.errType
}

// Error ...
func (e *ConfigErr) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("pool config %s: %s: %v", e.name, e.errType, e.cause)
	}
	return fmt.Sprintf("pool config %s: %s", e.name, e.errType)
}

// Unwrap returns the underlying cause, if any.
func (e *ConfigErr) Unwrap() error {
	return e.cause
}

// SessionErrType enumerates session failures.
type SessionErrType uint32

const (
	// InvalidHandle is returned for unknown, closed or stale handles, and for
	// handles not in the Open state.
	InvalidHandle SessionErrType = iota
	// AlreadyOpen is returned when a session already exists for the name.
	AlreadyOpen
	// ConnectionFailed is returned when too few nodes could be reached.
	ConnectionFailed
	// ConsensusFailure is returned when the reachable nodes did not agree.
	ConsensusFailure
	// Timeout is returned when the deadline expired.
	Timeout
)

// String ...
func (t SessionErrType) String() string {
	switch t {
	case InvalidHandle:
		return "Invalid Handle"
	case AlreadyOpen:
		return "Already Open"
	case ConnectionFailed:
		return "Connection Failed"
	case ConsensusFailure:
		return "Consensus Failure"
	case Timeout:
		return "Timeout"
	default:
		return "Unknown"
	}
}

// SessionErr is the error returned by session operations.
type SessionErr struct {
	errType SessionErrType
	subject string
	cause   error
}

// NewSessionErr ...
func NewSessionErr(errType SessionErrType, subject string, cause error) *SessionErr {
	return &SessionErr{
		errType: errType,
		subject: subject,
		cause:   cause,
	}
}

// Type returns the failure class.
func (e *SessionErr) Type() SessionErrType {
	return e.errType
}

// Error ...
func (e *SessionErr) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("pool session %s: %s: %v", e.subject, e.errType, e.cause)
	}
	return fmt.Sprintf("pool session %s: %s", e.subject, e.errType)
}

// Unwrap returns the underlying cause, if any.
func (e *SessionErr) Unwrap() error {
	return e.cause
}

// IsConfig checks that an error is, or wraps, a ConfigErr of type t.
func IsConfig(err error, t ConfigErrType) bool {
	var ce *ConfigErr
	return errors.As(err, &ce) && ce.errType == t
}

// IsSession checks that an error is, or wraps, a SessionErr of type t.
func IsSession(err error, t SessionErrType) bool {
	var se *SessionErr
	return errors.As(err, &se) && se.errType == t
}

// errorClass gives a short label for an operation outcome, used in metrics.
func errorClass(err error) string {
	if err == nil {
		return "ok"
	}
	var ce *ConfigErr
	if errors.As(err, &ce) {
		return ce.errType.String()
	}
	var se *SessionErr
	if errors.As(err, &se) {
		return se.errType.String()
	}
	if isCancelled(err) {
		return "Cancelled"
	}
	return "Error"
}
