package consensus

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mosaicnetworks/ledgerpool/src/peers"
)

// SessionRef identifies the engine resources held on behalf of one pool
// session.
type SessionRef string

// NewSessionRef returns a fresh random SessionRef.
func NewSessionRef() SessionRef {
	return SessionRef(uuid.New().String())
}

// Options tune a single discovery.
type Options struct {
	// ConnLimit caps the number of nodes queried in parallel. Zero means no
	// limit.
	ConnLimit int
	// PreorderedNodes lists the public keys of nodes to query first.
	PreorderedNodes []string
}

// View is the authoritative view of a pool produced by a successful
// discovery.
type View struct {
	// Peers is the node set reported by the agreeing nodes.
	Peers *peers.PeerSet
	// LedgerSize is the number of committed transactions.
	LedgerSize uint64
	// RootHash is the root hash of the ledger.
	RootHash string
	// Agreeing lists the public keys of the nodes in the authoritative group.
	Agreeing []string
	// Disagreeing lists nodes that answered validly with another status.
	Disagreeing []string
	// Unreachable lists nodes that did not answer before agreement.
	Unreachable []string
	// Faulty lists nodes that answered with a wrong key, nonce or signature.
	Faulty []string
	// Quorum is the group size that was required.
	Quorum int
	// Timestamp is when the view was established.
	Timestamp time.Time
}

// Engine is the interface of consensus engines.
type Engine interface {
	// Discover contacts the nodes and returns the view they agree on. Errors
	// are ConsensusErr values, or the context error if ctx was cancelled.
	Discover(ctx context.Context, ref SessionRef, nodes *peers.PeerSet, opts Options) (*View, error)
	// Teardown releases the resources held for ref. Calling it for an
	// unknown or already released ref is a no-op.
	Teardown(ref SessionRef) error
	// Close releases every resource. Discover fails afterwards.
	Close() error
}
