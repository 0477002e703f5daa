package consensus

import (
	"errors"
	"fmt"
)

// ConsensusErrType enumerates discovery failures.
type ConsensusErrType uint32

const (
	// NoQuorumReachable means fewer than a quorum of nodes gave a valid
	// answer.
	NoQuorumReachable ConsensusErrType = iota
	// NoAgreement means enough nodes answered but no status reached a
	// quorum.
	NoAgreement
	// Timeout means the deadline expired before agreement.
	Timeout
	// EngineClosed means the engine was closed.
	EngineClosed
)

// String ...
func (t ConsensusErrType) String() string {
	switch t {
	case NoQuorumReachable:
		return "No Quorum Reachable"
	case NoAgreement:
		return "No Agreement"
	case Timeout:
		return "Timeout"
	case EngineClosed:
		return "Engine Closed"
	default:
		return "Unknown"
	}
}

// ConsensusErr is returned by Discover.
type ConsensusErr struct {
	errType ConsensusErrType
	valid   int
	quorum  int
	cause   error
}

// NewConsensusErr ...
func NewConsensusErr(errType ConsensusErrType, valid, quorum int, cause error) *ConsensusErr {
	return &ConsensusErr{
		errType: errType,
		valid:   valid,
		quorum:  quorum,
		cause:   cause,
	}
}

// Type returns the failure class.
func (e *ConsensusErr) Type() ConsensusErrType {
	return e.errType
}

// Error ...
func (e *ConsensusErr) Error() string {
	msg := fmt.Sprintf("%s: %d valid replies, quorum %d", e.errType, e.valid, e.quorum)
	if e.cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.cause)
	}
	return msg
}

// Unwrap returns the underlying cause, if any.
func (e *ConsensusErr) Unwrap() error {
	return e.cause
}

// IsConsensus checks that an error is, or wraps, a ConsensusErr of type t.
func IsConsensus(err error, t ConsensusErrType) bool {
	var ce *ConsensusErr
	return errors.As(err, &ce) && ce.errType == t
}
