// Package keys implements the public key cryptography used between a pool
// client and the ledger nodes it talks to.
//
// Every ledger node owns a key-pair. Its public key is part of the node entry
// in a pool configuration, and every status reply the node sends back is
// signed with the private key. A client accepts a reply only if the signature
// verifies against the public key it already holds for that node, which is how
// replies from impostors or tampering relays are excluded from consensus.
//
// Keys use ECDSA over the secp256k1 curve.
package keys
