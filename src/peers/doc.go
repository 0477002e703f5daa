// Package peers defines the ledger nodes a pool client talks to and implements
// functions to manage collections of them.
//
// A peer is one ledger node: a public key, the network address where it
// answers requests, and an optional moniker which is a non-unique
// user-friendly name. Peers are identified by their public keys.
//
// A peer-set is the membership of a pool at a point in time. Pool
// configurations carry the peer-set they were created with, and every session
// keeps the latest peer-set the nodes agreed on. Because membership is itself
// governed through the ledger, the agreed peer-set may drift away from the
// configured one as nodes are added, removed or moved; PeerSet.Diff reports
// such changes.
//
// A peer-set of n nodes tolerates f = (n-1)/3 faulty nodes. SuperMajority
// returns the size of a quorum, 2n/3+1, which is the number of identical
// answers a client needs before it treats an answer as authoritative.
//
// Peer-sets can be read from, and written to, JSON files. Such a file holds a
// list of peers and is what the client uses as a genesis node list when a
// pool configuration is created from a file.
package peers
