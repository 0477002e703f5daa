package node

import (
	"sync"

	"github.com/mosaicnetworks/ledgerpool/src/common"
	"github.com/mosaicnetworks/ledgerpool/src/crypto"
	"github.com/mosaicnetworks/ledgerpool/src/net"
	"github.com/mosaicnetworks/ledgerpool/src/peers"
)

// ledger is the minimal ledger state of a simulated node. Every appended
// transaction extends the root hash chain.
type ledger struct {
	sync.RWMutex
	peers    []*peers.Peer
	size     uint64
	rootHash []byte
}

func newLedger(peerSet *peers.PeerSet) *ledger {
	return &ledger{
		peers: peerSet.Copy().Peers,
	}
}

func (l *ledger) appendTransactions(txs [][]byte) {
	l.Lock()
	defer l.Unlock()

	for _, tx := range txs {
		l.rootHash = crypto.SimpleHashFromTwoHashes(l.rootHash, crypto.SHA256(tx))
		l.size++
	}
}

func (l *ledger) setPeers(peerSet *peers.PeerSet) {
	l.Lock()
	defer l.Unlock()
	l.peers = peerSet.Copy().Peers
}

func (l *ledger) status() net.LedgerStatus {
	l.RLock()
	defer l.RUnlock()

	return net.LedgerStatus{
		Peers:      peers.NewPeerSet(l.peers).Copy().Peers,
		LedgerSize: l.size,
		RootHash:   common.EncodeToString(l.rootHash),
	}
}
