// Package node implements a simulated ledger node.
//
// A Node holds a minimal ledger (the current node set, a transaction count and
// a chained root hash) and answers StatusRequests from pool clients with a
// StatusResponse signed by its validator key. It is enough to exercise the
// pool manager end to end: nodes can be suspended to look unreachable, their
// node set can be changed to simulate governance, and they can be made to
// answer with a wrong signature to simulate a malicious node.
//
// The ledgerpool node command runs a Node over TCP. Tests use InmemCluster,
// which wires a set of nodes over in-memory transports.
package node
