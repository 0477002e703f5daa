package net

import (
	"bytes"

	"github.com/mosaicnetworks/ledgerpool/src/crypto"
	"github.com/mosaicnetworks/ledgerpool/src/peers"
	"github.com/ugorji/go/codec"
)

// StatusRequest asks a ledger node for its view of the pool. The Nonce must be
// echoed in the signed response, so that replies cannot be replayed.
type StatusRequest struct {
	Nonce string
}

// LedgerStatus is what a node asserts about the ledger: the current node set,
// the number of committed transactions, and the root hash of the ledger.
type LedgerStatus struct {
	Peers      []*peers.Peer
	LedgerSize uint64
	RootHash   string
}

// Marshal returns the canonical JSON encoding of the LedgerStatus.
func (s *LedgerStatus) Marshal() ([]byte, error) {
	b := new(bytes.Buffer)
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	enc := codec.NewEncoder(b, jh)

	if err := enc.Encode(s); err != nil {
		return nil, err
	}

	return b.Bytes(), nil
}

// Hash returns the SHA256 hash of the canonical encoding. Nodes that agree on
// the ledger produce the same hash.
func (s *LedgerStatus) Hash() ([]byte, error) {
	b, err := s.Marshal()
	if err != nil {
		return nil, err
	}
	return crypto.SHA256(b), nil
}

// StatusResponse is a node's signed answer to a StatusRequest.
type StatusResponse struct {
	PubKeyHex string
	Nonce     string
	Status    LedgerStatus
	Signature string
}

// StatusDigest computes the digest a node signs: SHA256(nonce || status).
func StatusDigest(nonce string, status *LedgerStatus) ([]byte, error) {
	b, err := status.Marshal()
	if err != nil {
		return nil, err
	}
	return crypto.SHA256(append([]byte(nonce), b...)), nil
}

// Digest returns the digest covered by the response signature.
func (r *StatusResponse) Digest() ([]byte, error) {
	return StatusDigest(r.Nonce, &r.Status)
}
