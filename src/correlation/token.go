package correlation

import (
	"fmt"
	"time"
)

// Token identifies a pending operation. Zero is never issued.
type Token uint64

// String ...
func (t Token) String() string {
	return fmt.Sprintf("#%d", uint64(t))
}

// Kind is the type of operation a token was issued for.
type Kind uint32

const (
	// CreateConfig stores a new pool descriptor.
	CreateConfig Kind = iota
	// DeleteConfig removes a pool descriptor.
	DeleteConfig
	// Open establishes a session against a pool.
	Open
	// Refresh re-runs discovery on an open session.
	Refresh
	// Close releases a session.
	Close
)

// Kinds lists every Kind, in declaration order.
var Kinds = []Kind{CreateConfig, DeleteConfig, Open, Refresh, Close}

// String returns the string representation of a Kind
func (k Kind) String() string {
	switch k {
	case CreateConfig:
		return "CreateConfig"
	case DeleteConfig:
		return "DeleteConfig"
	case Open:
		return "Open"
	case Refresh:
		return "Refresh"
	case Close:
		return "Close"
	default:
		return "Unknown"
	}
}

// Outcome is the single result delivered for an operation. Err is nil on
// success.
type Outcome struct {
	Result interface{}
	Err    error
}

// Continuation receives the outcome of an operation.
type Continuation func(Outcome)

// PendingOperation is the record kept for a registered token until it is
// completed or cancelled.
type PendingOperation struct {
	Token   Token
	Kind    Kind
	Created time.Time

	continuation Continuation
}
