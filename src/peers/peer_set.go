package peers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/mosaicnetworks/ledgerpool/src/common"
	"github.com/mosaicnetworks/ledgerpool/src/crypto"
)

//PeerSet is a set of Peers forming a pool
type PeerSet struct {
	Peers    []*Peer          `json:"peers"`
	ByPubKey map[string]*Peer `json:"-"`
	ByID     map[uint32]*Peer `json:"-"`

	//cached values
	hash          []byte
	hex           string
	superMajority *int
	trustCount    *int
}

/* Constructors */

//NewPeerSet creates a new PeerSet from a list of Peers
func NewPeerSet(peers []*Peer) *PeerSet {
	peerSet := &PeerSet{
		ByPubKey: make(map[string]*Peer),
		ByID:     make(map[uint32]*Peer),
	}

	for _, peer := range peers {
		peerSet.ByPubKey[peer.PubKeyString()] = peer
		peerSet.ByID[peer.ID()] = peer
	}

	peerSet.Peers = peers

	return peerSet
}

//NewPeerSetFromPeerSliceBytes creates a new PeerSet from a peerSlice in Bytes format
func NewPeerSetFromPeerSliceBytes(peerSliceBytes []byte) (*PeerSet, error) {
	peers := []*Peer{}

	dec := json.NewDecoder(bytes.NewBuffer(peerSliceBytes))
	if err := dec.Decode(&peers); err != nil {
		return nil, err
	}

	return NewPeerSet(peers), nil
}

//WithNewPeer returns a new PeerSet with a list of peers including the new one.
func (peerSet *PeerSet) WithNewPeer(peer *Peer) *PeerSet {
	peers := append([]*Peer{}, peerSet.Peers...)

	//don't add it if it already exists
	if _, ok := peerSet.ByPubKey[peer.PubKeyString()]; !ok {
		peers = append(peers, peer)
	}

	return NewPeerSet(peers)
}

//WithRemovedPeer returns a new PeerSet with a list of peers excluding the
//provided one
func (peerSet *PeerSet) WithRemovedPeer(peer *Peer) *PeerSet {
	peers := []*Peer{}
	for _, p := range peerSet.Peers {
		if p.PubKeyString() != peer.PubKeyString() {
			peers = append(peers, p)
		}
	}
	return NewPeerSet(peers)
}

//Copy returns a deep copy of the PeerSet. Callers can modify the Peers of the
//copy without affecting the original.
func (peerSet *PeerSet) Copy() *PeerSet {
	peers := make([]*Peer, 0, len(peerSet.Peers))
	for _, p := range peerSet.Peers {
		peers = append(peers, &Peer{
			NetAddr:   p.NetAddr,
			PubKeyHex: p.PubKeyHex,
			Moniker:   p.Moniker,
		})
	}
	return NewPeerSet(peers)
}

/* ToSlice Methods */

//PubKeys returns the PeerSet's slice of public keys
func (peerSet *PeerSet) PubKeys() []string {
	res := []string{}

	for _, peer := range peerSet.Peers {
		res = append(res, peer.PubKeyString())
	}

	return res
}

/* Utilities */

//Len returns the number of Peers in the PeerSet
func (peerSet *PeerSet) Len() int {
	return len(peerSet.ByPubKey)
}

//Validate checks that the PeerSet is a usable node list: not empty, every
//peer valid, and no public key listed twice.
func (peerSet *PeerSet) Validate() error {
	if len(peerSet.Peers) == 0 {
		return fmt.Errorf("empty peer-set")
	}
	if len(peerSet.ByPubKey) != len(peerSet.Peers) {
		return fmt.Errorf("peer-set lists the same public key more than once")
	}
	for _, p := range peerSet.Peers {
		if err := p.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Hash uniquely identifies a PeerSet. It is computed by hashing (SHA256) the
// public keys and addresses of the peers, one by one, in public key order, so
// that two listings of the same membership hash the same.
func (peerSet *PeerSet) Hash() ([]byte, error) {
	if len(peerSet.hash) == 0 {
		sorted := append([]*Peer{}, peerSet.Peers...)
		sort.Slice(sorted, func(i, j int) bool {
			return sorted[i].PubKeyString() < sorted[j].PubKeyString()
		})

		hash := []byte{}
		for _, p := range sorted {
			entry := append(p.PubKeyBytes(), []byte(p.NetAddr)...)
			hash = crypto.SimpleHashFromTwoHashes(hash, entry)
		}
		peerSet.hash = hash
	}
	return peerSet.hash, nil
}

//Hex is the hexadecimal representation of Hash
func (peerSet *PeerSet) Hex() string {
	if len(peerSet.hex) == 0 {
		hash, _ := peerSet.Hash()
		peerSet.hex = common.EncodeToString(hash)
	}
	return peerSet.hex
}

//Marshal marshals the peerset
func (peerSet *PeerSet) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	if err := enc.Encode(peerSet.Peers); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

//SuperMajority return the number of peers that forms a strong majortiy (+2/3)
//in the PeerSet
func (peerSet *PeerSet) SuperMajority() int {
	if peerSet.superMajority == nil {
		val := 2*peerSet.Len()/3 + 1
		peerSet.superMajority = &val
	}
	return *peerSet.superMajority
}

//TrustCount calculates the Trust Count for a peerset, ie. the minimum number
//of peers that includes at least one honest peer.
func (peerSet *PeerSet) TrustCount() int {
	if peerSet.trustCount == nil {
		val := 0
		if len(peerSet.Peers) > 1 {
			val = int(math.Ceil(float64(peerSet.Len()) / float64(3)))
		}
		peerSet.trustCount = &val
	}
	return *peerSet.trustCount
}

//Diff compares the PeerSet with a newer one. It returns the peers that only
//appear in the newer set, the peers that only appear in this one, and the
//peers present in both whose address changed.
func (peerSet *PeerSet) Diff(newer *PeerSet) (added, removed, moved []*Peer) {
	for _, p := range newer.Peers {
		old, ok := peerSet.ByPubKey[p.PubKeyString()]
		switch {
		case !ok:
			added = append(added, p)
		case old.NetAddr != p.NetAddr:
			moved = append(moved, p)
		}
	}
	for _, p := range peerSet.Peers {
		if _, ok := newer.ByPubKey[p.PubKeyString()]; !ok {
			removed = append(removed, p)
		}
	}
	return added, removed, moved
}
