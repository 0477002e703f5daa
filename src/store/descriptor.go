package store

import (
	"bytes"
	"fmt"
	"regexp"
	"time"

	"github.com/mosaicnetworks/ledgerpool/src/peers"
	"github.com/ugorji/go/codec"
)

var nameRegexp = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)

// Tuning holds optional runtime defaults for sessions opened on a pool. Zero
// values defer to the process configuration.
type Tuning struct {
	// Timeout bounds Open and Refresh when the caller gives no deadline.
	Timeout time.Duration
	// ConnLimit caps the number of nodes queried in parallel.
	ConnLimit int
	// PreorderedNodes lists public keys of nodes to query first.
	PreorderedNodes []string
}

// Descriptor is a named, durable description of a ledger pool.
type Descriptor struct {
	Name    string
	Nodes   []*peers.Peer
	Tuning  Tuning
	Created time.Time
}

// NewDescriptor creates a Descriptor stamped with the current time.
func NewDescriptor(name string, nodes []*peers.Peer, tuning Tuning) *Descriptor {
	return &Descriptor{
		Name:    name,
		Nodes:   nodes,
		Tuning:  tuning,
		Created: time.Now().UTC(),
	}
}

// PeerSet returns the node list as a PeerSet.
func (d *Descriptor) PeerSet() *peers.PeerSet {
	return peers.NewPeerSet(d.Nodes).Copy()
}

// Validate checks the name, the node list and the tuning parameters.
func (d *Descriptor) Validate() error {
	if !ValidName(d.Name) {
		return fmt.Errorf("invalid pool name %q", d.Name)
	}

	ps := peers.NewPeerSet(d.Nodes)
	if err := ps.Validate(); err != nil {
		return fmt.Errorf("pool %s: %v", d.Name, err)
	}

	if d.Tuning.Timeout < 0 {
		return fmt.Errorf("pool %s: negative timeout", d.Name)
	}
	if d.Tuning.ConnLimit < 0 {
		return fmt.Errorf("pool %s: negative connection limit", d.Name)
	}
	for _, pub := range d.Tuning.PreorderedNodes {
		if _, ok := ps.ByPubKey[peers.NewPeer(pub, "", "").PubKeyString()]; !ok {
			return fmt.Errorf("pool %s: preordered node %s is not in the node list", d.Name, pub)
		}
	}

	return nil
}

// ValidName reports whether name can be used as a pool name. Names end up in
// file paths and URLs, so they are restricted to a portable alphabet.
func ValidName(name string) bool {
	return len(name) <= 128 && nameRegexp.MatchString(name)
}

// Copy returns a deep copy of the Descriptor.
func (d *Descriptor) Copy() *Descriptor {
	nodes := make([]*peers.Peer, 0, len(d.Nodes))
	for _, p := range d.Nodes {
		nodes = append(nodes, peers.NewPeer(p.PubKeyHex, p.NetAddr, p.Moniker))
	}

	return &Descriptor{
		Name:  d.Name,
		Nodes: nodes,
		Tuning: Tuning{
			Timeout:         d.Tuning.Timeout,
			ConnLimit:       d.Tuning.ConnLimit,
			PreorderedNodes: append([]string(nil), d.Tuning.PreorderedNodes...),
		},
		Created: d.Created,
	}
}

// Marshal returns the canonical JSON encoding of the Descriptor.
func (d *Descriptor) Marshal() ([]byte, error) {
	b := new(bytes.Buffer)
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	enc := codec.NewEncoder(b, jh)

	if err := enc.Encode(d); err != nil {
		return nil, err
	}

	return b.Bytes(), nil
}

// Unmarshal ...
func (d *Descriptor) Unmarshal(data []byte) error {
	b := bytes.NewBuffer(data)
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	dec := codec.NewDecoder(b, jh)

	return dec.Decode(d)
}
