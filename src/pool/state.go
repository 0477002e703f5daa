package pool

import "sync/atomic"

// State captures the lifecycle state of a pool session: Closed, Opening, Open,
// Refreshing, or Closing
type State uint32

const (
	// Closed sessions no longer exist. Their handle is invalid.
	Closed State = iota
	// Opening is the state in which discovery runs for a new session.
	Opening
	// Open sessions hold a validated view of the pool.
	Open
	// Refreshing is the sub-state of Open in which discovery runs again.
	Refreshing
	// Closing is the state in which engine resources are released.
	Closing
)

// String returns the string representation of a State
func (s State) String() string {
	switch s {
	case Closed:
		return "Closed"
	case Opening:
		return "Opening"
	case Open:
		return "Open"
	case Refreshing:
		return "Refreshing"
	case Closing:
		return "Closing"
	default:
		return "Unknown"
	}
}

// External returns the state as callers see it. Refreshing is reported as
// Open.
func (s State) External() State {
	if s == Refreshing {
		return Open
	}
	return s
}

type sessionState struct {
	state State
}

func (b *sessionState) getState() State {
	stateAddr := (*uint32)(&b.state)
	return State(atomic.LoadUint32(stateAddr))
}

func (b *sessionState) setState(s State) {
	stateAddr := (*uint32)(&b.state)
	atomic.StoreUint32(stateAddr, uint32(s))
}

// MarshalText encodes the State by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
