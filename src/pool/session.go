package pool

import (
	"sync"
	"time"

	"github.com/mosaicnetworks/ledgerpool/src/consensus"
	"github.com/mosaicnetworks/ledgerpool/src/peers"
)

// Snapshot is a read-only copy of a session.
type Snapshot struct {
	Handle          Handle
	Name            string
	State           State
	Peers           []*peers.Peer
	LedgerSize      uint64
	RootHash        string
	Quorum          int
	Unreachable     []string
	Faulty          []string
	OpenedAt        time.Time
	RefreshedAt     time.Time
	RefreshFailures int
}

// session is the Manager's record of a live pool session. The embedded Mutex
// is the transition lock: Open, Refresh and Close hold it while they run. The
// view is published under viewLock so that snapshots never wait for a running
// discovery.
type session struct {
	sync.Mutex
	sessionState

	handle  Handle
	name    string
	ref     consensus.SessionRef
	nodes   *peers.PeerSet
	timeout time.Duration
	opts    consensus.Options

	viewLock        sync.RWMutex
	view            *consensus.View
	openedAt        time.Time
	refreshedAt     time.Time
	refreshFailures int
}

func newSession(name string, nodes *peers.PeerSet, timeout time.Duration, opts consensus.Options) *session {
	return &session{
		name:    name,
		ref:     consensus.NewSessionRef(),
		nodes:   nodes,
		timeout: timeout,
		opts:    opts,
	}
}

// knownGood returns the node set to run discovery against: the one from the
// last successful discovery, or the configured one before the first.
func (s *session) knownGood() *peers.PeerSet {
	s.viewLock.RLock()
	defer s.viewLock.RUnlock()

	if s.view != nil {
		return s.view.Peers.Copy()
	}
	return s.nodes.Copy()
}

func (s *session) currentView() *consensus.View {
	s.viewLock.RLock()
	defer s.viewLock.RUnlock()
	return s.view
}

func (s *session) publish(view *consensus.View, opened bool) {
	s.viewLock.Lock()
	defer s.viewLock.Unlock()

	s.view = view
	if opened {
		s.openedAt = view.Timestamp
	} else {
		s.refreshedAt = view.Timestamp
	}
}

func (s *session) refreshFailed() {
	s.viewLock.Lock()
	defer s.viewLock.Unlock()
	s.refreshFailures++
}

func (s *session) snapshot() Snapshot {
	s.viewLock.RLock()
	defer s.viewLock.RUnlock()

	snap := Snapshot{
		Handle:          s.handle,
		Name:            s.name,
		State:           s.getState().External(),
		OpenedAt:        s.openedAt,
		RefreshedAt:     s.refreshedAt,
		RefreshFailures: s.refreshFailures,
	}

	if s.view != nil {
		snap.Peers = s.view.Peers.Copy().Peers
		snap.LedgerSize = s.view.LedgerSize
		snap.RootHash = s.view.RootHash
		snap.Quorum = s.view.Quorum
		snap.Unreachable = append([]string{}, s.view.Unreachable...)
		snap.Faulty = append([]string{}, s.view.Faulty...)
	}

	return snap
}
