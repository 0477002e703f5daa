package node

import (
	"crypto/ecdsa"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mosaicnetworks/ledgerpool/src/net"
	"github.com/mosaicnetworks/ledgerpool/src/peers"
	"github.com/sirupsen/logrus"
)

//Node defines a simulated ledger node
type Node struct {
	state

	conf   *Config
	logger *logrus.Entry

	validator *Validator
	ledger    *ledger

	trans net.Transport
	netCh <-chan net.RPC

	shutdownCh chan struct{}

	// doneCh is closed when Run returns. runState is 0 before Run, 1 while
	// Run is looping, and 2 once Shutdown has claimed a node that never ran.
	doneCh   chan struct{}
	runState int32

	// forgedKey, when set, signs responses instead of the validator key.
	forgedKey  *ecdsa.PrivateKey
	forgedLock sync.Mutex

	start          time.Time
	statusRequests uint64
	dropped        uint64
}

//NewNode is a factory method that returns a Node instance
func NewNode(conf *Config,
	validator *Validator,
	peerSet *peers.PeerSet,
	trans net.Transport,
) *Node {
	logger := conf.Logger
	if logger == nil {
		logger = DefaultConfig().Logger
	}

	node := Node{
		conf:      conf,
		logger:    logger.WithField("this_id", validator.ID()),
		validator: validator,
		ledger:    newLedger(peerSet),
		trans:     trans,
		netCh:     trans.Consumer(),

		shutdownCh: make(chan struct{}),
		doneCh:     make(chan struct{}),
		start:      time.Now(),
	}

	return &node
}

//RunAsync runs the node in a separate goroutine
func (n *Node) RunAsync() {
	n.logger.Debug("RunAsync")
	go n.Run()
}

//Run processes incoming requests until Shutdown.
func (n *Node) Run() {
	if !atomic.CompareAndSwapInt32(&n.runState, 0, 1) {
		return
	}
	defer close(n.doneCh)

	go n.trans.Listen()

	for {
		select {
		case rpc := <-n.netCh:
			if n.getState() != Serving {
				atomic.AddUint64(&n.dropped, 1)
				continue
			}
			if !n.goFunc(func() { n.processRPC(rpc) }) {
				atomic.AddUint64(&n.dropped, 1)
				n.logger.Warn("Too many requests in flight, dropping one")
			}
		case <-n.shutdownCh:
			return
		}
	}
}

//Shutdown the node
func (n *Node) Shutdown() {
	if n.getState() != Shutdown {
		n.logger.Debug("Shutdown")

		n.setState(Shutdown)

		//Stop the Run loop before waiting for the routines it started
		close(n.shutdownCh)
		if !atomic.CompareAndSwapInt32(&n.runState, 0, 2) {
			<-n.doneCh
		}

		n.waitRoutines()

		//transport should only be closed once all concurrent operations
		//are finished
		n.trans.Close()
	}
}

//Suspend makes the node ignore requests without shutting down. To a pool
//client, a suspended node is unreachable.
func (n *Node) Suspend() {
	if n.getState() == Serving {
		n.logger.Debug("Suspend")
		n.setState(Suspended)
	}
}

//Resume brings a suspended node back to Serving.
func (n *Node) Resume() {
	if n.getState() == Suspended {
		n.logger.Debug("Resume")
		n.setState(Serving)
	}
}

//GetState returns the node's state
func (n *Node) GetState() State {
	return n.getState()
}

//SubmitTransactions appends transactions to the node's ledger.
func (n *Node) SubmitTransactions(txs ...[]byte) {
	n.ledger.appendTransactions(txs)
}

//SetPeers replaces the node set the node reports, as a governance change
//committed through the ledger would.
func (n *Node) SetPeers(peerSet *peers.PeerSet) {
	n.logger.WithField("peers", peerSet.Len()).Debug("SetPeers")
	n.ledger.setPeers(peerSet)
}

//SetForgedKey makes the node sign its responses with key instead of its own
//key. Passing nil restores honest behaviour.
func (n *Node) SetForgedKey(key *ecdsa.PrivateKey) {
	n.forgedLock.Lock()
	defer n.forgedLock.Unlock()
	n.forgedKey = key
}

func (n *Node) getForgedKey() *ecdsa.PrivateKey {
	n.forgedLock.Lock()
	defer n.forgedLock.Unlock()
	return n.forgedKey
}

//Status returns the node's current ledger status.
func (n *Node) Status() net.LedgerStatus {
	return n.ledger.status()
}

//ID returns the ID of this node
func (n *Node) ID() uint32 {
	return n.validator.ID()
}

//PublicKeyHex returns the public key of this node
func (n *Node) PublicKeyHex() string {
	return n.validator.PublicKeyHex()
}

//Peer returns the peer entry describing this node.
func (n *Node) Peer() *peers.Peer {
	return peers.NewPeer(n.validator.PublicKeyHex(), n.trans.AdvertiseAddr(), n.validator.Moniker)
}

//GetStats returns stats
func (n *Node) GetStats() map[string]string {
	status := n.Status()

	return map[string]string{
		"state":           n.getState().String(),
		"moniker":         n.validator.Moniker,
		"id":              strconv.FormatUint(uint64(n.ID()), 10),
		"ledger_size":     strconv.FormatUint(status.LedgerSize, 10),
		"root_hash":       status.RootHash,
		"num_peers":       strconv.Itoa(len(status.Peers)),
		"status_requests": strconv.FormatUint(atomic.LoadUint64(&n.statusRequests), 10),
		"dropped":         strconv.FormatUint(atomic.LoadUint64(&n.dropped), 10),
		"time_elapsed":    time.Since(n.start).Truncate(time.Second).String(),
	}
}
