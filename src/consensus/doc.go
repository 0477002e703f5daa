// Package consensus defines the Consensus Engine a pool session delegates to,
// and provides PeerEngine, a reference implementation.
//
// An Engine turns a node list into an authoritative View of the pool: the node
// set the ledger currently reports, the ledger size and root hash, and which
// nodes agreed, failed to answer, or answered with invalid data. The pool
// manager calls Discover when a session is opened or refreshed, and Teardown
// when it is closed or abandoned.
//
// PeerEngine
//
// PeerEngine sends a StatusRequest carrying a fresh nonce to every node of the
// list, at most ConnLimit at a time, starting with the preordered nodes. A
// reply counts only if it comes from the expected key, echoes the nonce, and
// carries a valid signature over the nonce and the canonical ledger status.
// Valid replies are grouped by status hash. A group with at least
// SuperMajority (2n/3+1) members is authoritative; two such groups cannot
// coexist, so the first group to reach the threshold ends the discovery.
//
// When no group reaches the threshold the failure is classified: fewer valid
// replies than the threshold is NoQuorumReachable, otherwise NoAgreement. An
// expired context gives Timeout.
package consensus
