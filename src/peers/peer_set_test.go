package peers

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/mosaicnetworks/ledgerpool/src/crypto/keys"
)

func testPeers(t *testing.T, n int) []*Peer {
	peers := []*Peer{}
	for i := 0; i < n; i++ {
		key, err := keys.GenerateECDSAKey()
		if err != nil {
			t.Fatal(err)
		}
		peers = append(peers, NewPeer(
			keys.PublicKeyHex(&key.PublicKey),
			fmt.Sprintf("127.0.0.1:%d", 9700+i),
			fmt.Sprintf("node%d", i),
		))
	}
	return peers
}

func TestSuperMajority(t *testing.T) {
	cases := []struct {
		n, quorum, trust int
	}{
		{1, 1, 0},
		{2, 2, 1},
		{3, 3, 1},
		{4, 3, 2},
		{5, 4, 2},
		{7, 5, 3},
		{10, 7, 4},
	}

	for _, c := range cases {
		ps := NewPeerSet(testPeers(t, c.n))
		if sm := ps.SuperMajority(); sm != c.quorum {
			t.Fatalf("n=%d: SuperMajority should be %d, not %d", c.n, c.quorum, sm)
		}
		if tc := ps.TrustCount(); tc != c.trust {
			t.Fatalf("n=%d: TrustCount should be %d, not %d", c.n, c.trust, tc)
		}
	}
}

func TestPeerSetHashIgnoresOrder(t *testing.T) {
	peers := testPeers(t, 4)
	reversed := []*Peer{peers[3], peers[2], peers[1], peers[0]}

	a := NewPeerSet(peers)
	b := NewPeerSet(reversed)

	if a.Hex() != b.Hex() {
		t.Fatalf("hash should not depend on listing order")
	}

	moved := a.Copy()
	moved.Peers[0].NetAddr = "10.0.0.1:9700"
	if NewPeerSet(moved.Peers).Hex() == a.Hex() {
		t.Fatalf("hash should change when an address changes")
	}
}

func TestPeerSetDiff(t *testing.T) {
	peers := testPeers(t, 5)

	old := NewPeerSet(peers[:4])

	moved := &Peer{NetAddr: "10.0.0.2:9701", PubKeyHex: peers[1].PubKeyHex, Moniker: peers[1].Moniker}
	newer := NewPeerSet([]*Peer{peers[0], moved, peers[2], peers[4]})

	added, removed, changed := old.Diff(newer)

	if len(added) != 1 || added[0].PubKeyString() != peers[4].PubKeyString() {
		t.Fatalf("added should be [node4], got %v", added)
	}
	if len(removed) != 1 || removed[0].PubKeyString() != peers[3].PubKeyString() {
		t.Fatalf("removed should be [node3], got %v", removed)
	}
	if len(changed) != 1 || changed[0].NetAddr != "10.0.0.2:9701" {
		t.Fatalf("moved should be [node1], got %v", changed)
	}
}

func TestPeerSetValidate(t *testing.T) {
	peers := testPeers(t, 3)

	if err := NewPeerSet(peers).Validate(); err != nil {
		t.Fatalf("valid peer-set rejected: %v", err)
	}

	if err := NewPeerSet(nil).Validate(); err == nil {
		t.Fatalf("empty peer-set should be rejected")
	}

	dup := []*Peer{peers[0], peers[1], NewPeer(peers[0].PubKeyHex, "other:1", "dup")}
	if err := NewPeerSet(dup).Validate(); err == nil {
		t.Fatalf("duplicate public keys should be rejected")
	}

	bad := []*Peer{peers[0], NewPeer("0x1234", "host:1", "bad")}
	if err := NewPeerSet(bad).Validate(); err == nil {
		t.Fatalf("malformed public key should be rejected")
	}

	noAddr := []*Peer{NewPeer(peers[0].PubKeyHex, "", "noaddr")}
	if err := NewPeerSet(noAddr).Validate(); err == nil {
		t.Fatalf("missing address should be rejected")
	}
}

func TestWithNewAndRemovedPeer(t *testing.T) {
	peers := testPeers(t, 4)
	ps := NewPeerSet(peers[:3])

	grown := ps.WithNewPeer(peers[3])
	if grown.Len() != 4 || ps.Len() != 3 {
		t.Fatalf("WithNewPeer should not modify the receiver: %d %d", ps.Len(), grown.Len())
	}
	if grown.WithNewPeer(peers[3]).Len() != 4 {
		t.Fatalf("adding an existing peer should be a no-op")
	}

	shrunk := grown.WithRemovedPeer(peers[0])
	if shrunk.Len() != 3 {
		t.Fatalf("WithRemovedPeer should have 3 peers, not %d", shrunk.Len())
	}
	if _, ok := shrunk.ByPubKey[peers[0].PubKeyString()]; ok {
		t.Fatalf("removed peer still present")
	}
}

func TestJSONPeerSet(t *testing.T) {
	dir, err := ioutil.TempDir("", "ledgerpool")
	if err != nil {
		t.Fatalf("err: %v ", err)
	}
	defer os.RemoveAll(dir)

	store := NewJSONPeerSet(filepath.Join(dir, "main.peers.json"))

	// Try a read, should get nothing
	peerSet, err := store.PeerSet()
	if err == nil {
		t.Fatalf("store.PeerSet() should generate an error")
	}
	if peerSet != nil {
		t.Fatalf("peerSet: %v", peerSet)
	}

	newPeers := testPeers(t, 3)
	if err := store.Write(newPeers); err != nil {
		t.Fatalf("err: %v", err)
	}

	peerSet, err = store.PeerSet()
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if peerSet.Len() != 3 {
		t.Fatalf("peers: %v", peerSet.Peers)
	}

	for i := 0; i < 3; i++ {
		if peerSet.Peers[i].NetAddr != newPeers[i].NetAddr {
			t.Fatalf("peers[%d] NetAddr should be %s, not %s", i,
				newPeers[i].NetAddr, peerSet.Peers[i].NetAddr)
		}
		if peerSet.Peers[i].Moniker != newPeers[i].Moniker {
			t.Fatalf("peers[%d] Moniker should be %s, not %s", i,
				newPeers[i].Moniker, peerSet.Peers[i].Moniker)
		}
		if peerSet.Peers[i].PubKeyHex != newPeers[i].PubKeyHex {
			t.Fatalf("peers[%d] PubKeyHex should be %s, not %s", i,
				newPeers[i].PubKeyHex, peerSet.Peers[i].PubKeyHex)
		}
	}
}
