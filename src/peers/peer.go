package peers

import (
	"fmt"

	"github.com/mosaicnetworks/ledgerpool/src/common"
	"github.com/mosaicnetworks/ledgerpool/src/crypto/keys"
)

// Peer is a ledger node.
type Peer struct {
	NetAddr   string
	PubKeyHex string
	Moniker   string

	id uint32
}

// NewPeer creates a Peer with a normalised public key.
func NewPeer(pubKeyHex, netAddr, moniker string) *Peer {
	return &Peer{
		PubKeyHex: common.NormalizeHex(pubKeyHex),
		NetAddr:   netAddr,
		Moniker:   moniker,
	}
}

// ID returns the compact identifier derived from the public key.
func (p *Peer) ID() uint32 {
	if p.id == 0 {
		p.id = keys.PublicKeyID(p.PubKeyBytes())
	}
	return p.id
}

// PubKeyString returns the upper-case hex representation of the public key.
func (p *Peer) PubKeyString() string {
	return common.NormalizeHex(p.PubKeyHex)
}

// PubKeyBytes returns the raw public key. Malformed keys give nil.
func (p *Peer) PubKeyBytes() []byte {
	b, err := common.DecodeFromString(p.PubKeyString())
	if err != nil {
		return nil
	}
	return b
}

// Validate checks that the peer carries a usable public key and address.
func (p *Peer) Validate() error {
	if _, err := keys.ParsePublicKeyHex(p.PubKeyHex); err != nil {
		return fmt.Errorf("peer %q: %v", p.Moniker, err)
	}
	if p.NetAddr == "" {
		return fmt.Errorf("peer %s has no network address", p.PubKeyString())
	}
	return nil
}

// String ...
func (p *Peer) String() string {
	if p.Moniker != "" {
		return fmt.Sprintf("%s@%s", p.Moniker, p.NetAddr)
	}
	return p.NetAddr
}
