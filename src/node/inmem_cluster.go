package node

import (
	"fmt"
	"sync"

	"github.com/mosaicnetworks/ledgerpool/src/crypto/keys"
	"github.com/mosaicnetworks/ledgerpool/src/net"
	"github.com/mosaicnetworks/ledgerpool/src/peers"
	"github.com/sirupsen/logrus"
)

// InmemCluster runs simulated ledger nodes over in-memory transports. Clients
// obtain transports routed to every node through NewClientTransport.
type InmemCluster struct {
	sync.Mutex

	Nodes []*Node

	transports []*net.InmemTransport
	clients    []*net.InmemTransport
	logger     *logrus.Entry
}

// NewInmemCluster creates and starts n nodes that all report the same node set.
func NewInmemCluster(n int, logger *logrus.Entry) (*InmemCluster, error) {
	c := &InmemCluster{
		logger: logger,
	}

	validators := []*Validator{}
	pirs := []*peers.Peer{}

	for i := 0; i < n; i++ {
		key, err := keys.GenerateECDSAKey()
		if err != nil {
			return nil, err
		}
		moniker := fmt.Sprintf("node%d", i)
		addr, trans := net.NewInmemTransport("")

		validators = append(validators, NewValidator(key, moniker))
		c.transports = append(c.transports, trans)
		pirs = append(pirs, peers.NewPeer(keys.PublicKeyHex(&key.PublicKey), addr, moniker))
	}

	peerSet := peers.NewPeerSet(pirs)

	for i := 0; i < n; i++ {
		conf := &Config{
			Moniker: validators[i].Moniker,
			Logger:  logger.WithField("node", i),
		}
		node := NewNode(conf, validators[i], peerSet, c.transports[i])
		node.RunAsync()
		c.Nodes = append(c.Nodes, node)
	}

	return c, nil
}

// Peers returns the node set of the cluster as it was created.
func (c *InmemCluster) Peers() []*peers.Peer {
	c.Lock()
	defer c.Unlock()

	res := []*peers.Peer{}
	for _, n := range c.Nodes {
		res = append(res, n.Peer())
	}
	return res
}

// AddNode starts one more node. It does not change the node set reported by
// the other nodes; use SetPeers for that.
func (c *InmemCluster) AddNode() (*Node, error) {
	c.Lock()
	defer c.Unlock()

	key, err := keys.GenerateECDSAKey()
	if err != nil {
		return nil, err
	}
	moniker := fmt.Sprintf("node%d", len(c.Nodes))
	_, trans := net.NewInmemTransport("")

	validator := NewValidator(key, moniker)
	self := peers.NewPeer(validator.PublicKeyHex(), trans.LocalAddr(), moniker)

	node := NewNode(
		&Config{Moniker: moniker, Logger: c.logger.WithField("node", len(c.Nodes))},
		validator,
		peers.NewPeerSet([]*peers.Peer{self}),
		trans,
	)
	node.RunAsync()

	c.Nodes = append(c.Nodes, node)
	c.transports = append(c.transports, trans)

	for _, cl := range c.clients {
		cl.Connect(trans.LocalAddr(), trans)
	}

	return node, nil
}

// SetPeers makes every running node report peerSet.
func (c *InmemCluster) SetPeers(peerSet *peers.PeerSet) {
	c.Lock()
	defer c.Unlock()

	for _, n := range c.Nodes {
		n.SetPeers(peerSet)
	}
}

// SubmitTransactions appends the same transactions to every node.
func (c *InmemCluster) SubmitTransactions(txs ...[]byte) {
	c.Lock()
	defer c.Unlock()

	for _, n := range c.Nodes {
		n.SubmitTransactions(txs...)
	}
}

// NewClientTransport returns a transport routed to every node of the cluster.
// It satisfies the transport factory signature of the consensus engine.
func (c *InmemCluster) NewClientTransport() (net.Transport, error) {
	c.Lock()
	defer c.Unlock()

	_, client := net.NewInmemTransport("")
	for _, t := range c.transports {
		client.Connect(t.LocalAddr(), t)
	}
	c.clients = append(c.clients, client)
	return client, nil
}

// OpenClients counts the client transports that have not been closed.
func (c *InmemCluster) OpenClients() int {
	c.Lock()
	defer c.Unlock()

	count := 0
	for _, cl := range c.clients {
		if !cl.IsShutdown() {
			count++
		}
	}
	return count
}

// Shutdown stops every node.
func (c *InmemCluster) Shutdown() {
	c.Lock()
	defer c.Unlock()

	for _, n := range c.Nodes {
		n.Shutdown()
	}
}
