package ledgerpool

import (
	"time"

	"github.com/mosaicnetworks/ledgerpool/src/peers"
	"github.com/mosaicnetworks/ledgerpool/src/store"
)

// PoolSpec describes a pool configuration to create. When Nodes is empty, the
// node list is read from GenesisFile, or from <datadir>/<name>.peers.json when
// GenesisFile is empty too.
type PoolSpec struct {
	Nodes           []*peers.Peer
	GenesisFile     string
	Timeout         time.Duration
	ConnLimit       int
	PreorderedNodes []string
}

func (s PoolSpec) tuning() store.Tuning {
	return store.Tuning{
		Timeout:         s.Timeout,
		ConnLimit:       s.ConnLimit,
		PreorderedNodes: s.PreorderedNodes,
	}
}
