package consensus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mosaicnetworks/ledgerpool/src/common"
	"github.com/mosaicnetworks/ledgerpool/src/crypto/keys"
	"github.com/mosaicnetworks/ledgerpool/src/net"
	"github.com/mosaicnetworks/ledgerpool/src/peers"
	"github.com/sirupsen/logrus"
)

// TransportFactory creates the transport a session uses to reach its nodes.
type TransportFactory func() (net.Transport, error)

// PeerEngine is an Engine that reaches agreement over signed status replies.
// Each session gets its own transport, created on first use and released by
// Teardown.
type PeerEngine struct {
	sync.Mutex

	factory  TransportFactory
	sessions map[SessionRef]net.Transport
	closed   bool

	logger *logrus.Entry
}

// NewPeerEngine creates a PeerEngine that obtains transports from factory.
func NewPeerEngine(factory TransportFactory, logger *logrus.Entry) *PeerEngine {
	if logger == nil {
		log := logrus.New()
		log.Level = logrus.DebugLevel
		logger = logrus.NewEntry(log)
	}

	return &PeerEngine{
		factory:  factory,
		sessions: make(map[SessionRef]net.Transport),
		logger:   logger.WithField("component", "engine"),
	}
}

type reply struct {
	peer *peers.Peer
	resp net.StatusResponse
	err  error
}

func (e *PeerEngine) transport(ref SessionRef) (net.Transport, error) {
	e.Lock()
	defer e.Unlock()

	if e.closed {
		return nil, NewConsensusErr(EngineClosed, 0, 0, nil)
	}

	if t, ok := e.sessions[ref]; ok {
		return t, nil
	}

	t, err := e.factory()
	if err != nil {
		return nil, err
	}
	e.sessions[ref] = t

	return t, nil
}

// Discover implements the Engine interface.
func (e *PeerEngine) Discover(ctx context.Context, ref SessionRef, nodes *peers.PeerSet, opts Options) (*View, error) {
	quorum := nodes.SuperMajority()

	if err := ctx.Err(); err != nil {
		return nil, contextErr(err, 0, quorum)
	}

	trans, err := e.transport(ref)
	if err != nil {
		return nil, err
	}

	order := orderNodes(nodes.Peers, opts.PreorderedNodes)

	limit := opts.ConnLimit
	if limit <= 0 || limit > len(order) {
		limit = len(order)
	}

	nonce := uuid.New().String()

	logger := e.logger.WithFields(logrus.Fields{
		"ref":    ref,
		"nodes":  len(order),
		"quorum": quorum,
		"limit":  limit,
	})
	logger.Debug("Discover")

	dctx, cancel := context.WithCancel(ctx)
	defer cancel()

	replies := make(chan reply, len(order))
	sem := make(chan struct{}, limit)

	go func() {
		for _, p := range order {
			select {
			case sem <- struct{}{}:
			case <-dctx.Done():
				return
			}
			go func(p *peers.Peer) {
				defer func() { <-sem }()
				var resp net.StatusResponse
				err := trans.Status(p.NetAddr, &net.StatusRequest{Nonce: nonce}, &resp)
				replies <- reply{peer: p, resp: resp, err: err}
			}(p)
		}
	}()

	tally := newTally(quorum)

	for received := 0; received < len(order); received++ {
		select {
		case r := <-replies:
			key := r.peer.PubKeyString()

			if r.err != nil {
				logger.WithFields(logrus.Fields{
					"peer":  r.peer,
					"error": r.err,
				}).Debug("Node unreachable")
				tally.unreachable(key)
				continue
			}

			hash, err := verifyReply(r.peer, nonce, &r.resp)
			if err != nil {
				logger.WithFields(logrus.Fields{
					"peer":  r.peer,
					"error": err,
				}).Warn("Faulty reply")
				tally.faulty(key)
				continue
			}

			if tally.add(key, hash, &r.resp.Status) {
				view := tally.view(order)
				logger.WithFields(logrus.Fields{
					"agreeing":    len(view.Agreeing),
					"unreachable": len(view.Unreachable),
					"faulty":      len(view.Faulty),
					"ledger_size": view.LedgerSize,
				}).Debug("Agreement")
				return view, nil
			}

		case <-ctx.Done():
			return nil, contextErr(ctx.Err(), tally.valid, quorum)
		}
	}

	// Faulty replies count as answers: the nodes were reached but did not
	// agree with the others.
	if tally.valid+len(tally.faults) < quorum {
		return nil, NewConsensusErr(NoQuorumReachable, tally.valid, quorum, nil)
	}
	return nil, NewConsensusErr(NoAgreement, tally.valid, quorum, nil)
}

// Teardown implements the Engine interface.
func (e *PeerEngine) Teardown(ref SessionRef) error {
	e.Lock()
	t, ok := e.sessions[ref]
	delete(e.sessions, ref)
	e.Unlock()

	if !ok {
		return nil
	}

	e.logger.WithField("ref", ref).Debug("Teardown")

	return t.Close()
}

// Close implements the Engine interface.
func (e *PeerEngine) Close() error {
	e.Lock()
	sessions := e.sessions
	e.sessions = make(map[SessionRef]net.Transport)
	e.closed = true
	e.Unlock()

	for ref, t := range sessions {
		if err := t.Close(); err != nil {
			e.logger.WithFields(logrus.Fields{
				"ref":   ref,
				"error": err,
			}).Error("Closing session transport")
		}
	}
	return nil
}

// Sessions returns the number of sessions holding a transport.
func (e *PeerEngine) Sessions() int {
	e.Lock()
	defer e.Unlock()
	return len(e.sessions)
}

func contextErr(err error, valid, quorum int) error {
	if err == context.DeadlineExceeded {
		return NewConsensusErr(Timeout, valid, quorum, err)
	}
	return err
}

// orderNodes puts the preordered nodes first, in the given order, followed by
// the others in list order.
func orderNodes(nodes []*peers.Peer, preordered []string) []*peers.Peer {
	byKey := make(map[string]*peers.Peer, len(nodes))
	for _, p := range nodes {
		byKey[p.PubKeyString()] = p
	}

	res := make([]*peers.Peer, 0, len(nodes))
	taken := make(map[string]bool)

	for _, pub := range preordered {
		key := common.NormalizeHex(pub)
		if p, ok := byKey[key]; ok && !taken[key] {
			res = append(res, p)
			taken[key] = true
		}
	}
	for _, p := range nodes {
		if !taken[p.PubKeyString()] {
			res = append(res, p)
		}
	}
	return res
}

// verifyReply checks the responder, the nonce and the signature, and returns
// the hex hash of the status.
func verifyReply(peer *peers.Peer, nonce string, resp *net.StatusResponse) (string, error) {
	if common.NormalizeHex(resp.PubKeyHex) != peer.PubKeyString() {
		return "", fmt.Errorf("reply signed as %s", resp.PubKeyHex)
	}
	if resp.Nonce != nonce {
		return "", fmt.Errorf("nonce mismatch")
	}

	digest, err := resp.Digest()
	if err != nil {
		return "", err
	}
	if err := keys.VerifyDigest(peer.PubKeyHex, digest, resp.Signature); err != nil {
		return "", err
	}

	if err := peers.NewPeerSet(resp.Status.Peers).Validate(); err != nil {
		return "", fmt.Errorf("invalid node set: %v", err)
	}

	hash, err := resp.Status.Hash()
	if err != nil {
		return "", err
	}
	return common.EncodeToString(hash), nil
}

// tally accumulates the replies of one discovery.
type tally struct {
	quorum int
	valid  int

	groups   map[string][]string
	statuses map[string]*net.LedgerStatus
	winner   string

	answered     map[string]bool
	unreachables []string
	faults       []string
}

func newTally(quorum int) *tally {
	return &tally{
		quorum:   quorum,
		groups:   make(map[string][]string),
		statuses: make(map[string]*net.LedgerStatus),
		answered: make(map[string]bool),
	}
}

func (t *tally) unreachable(key string) {
	t.answered[key] = true
	t.unreachables = append(t.unreachables, key)
}

func (t *tally) faulty(key string) {
	t.answered[key] = true
	t.faults = append(t.faults, key)
}

// add records a valid reply and reports whether its group reached quorum.
func (t *tally) add(key, hash string, status *net.LedgerStatus) bool {
	t.answered[key] = true
	t.valid++
	t.groups[hash] = append(t.groups[hash], key)
	if _, ok := t.statuses[hash]; !ok {
		t.statuses[hash] = status
	}
	if len(t.groups[hash]) >= t.quorum {
		t.winner = hash
		return true
	}
	return false
}

func (t *tally) view(order []*peers.Peer) *View {
	status := t.statuses[t.winner]

	view := &View{
		Peers:      peers.NewPeerSet(status.Peers).Copy(),
		LedgerSize: status.LedgerSize,
		RootHash:   status.RootHash,
		Agreeing:   append([]string{}, t.groups[t.winner]...),
		Faulty:     append([]string{}, t.faults...),
		Quorum:     t.quorum,
		Timestamp:  time.Now(),
	}

	for hash, members := range t.groups {
		if hash != t.winner {
			view.Disagreeing = append(view.Disagreeing, members...)
		}
	}

	view.Unreachable = append([]string{}, t.unreachables...)
	for _, p := range order {
		if !t.answered[p.PubKeyString()] {
			view.Unreachable = append(view.Unreachable, p.PubKeyString())
		}
	}

	return view
}
