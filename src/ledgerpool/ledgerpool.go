package ledgerpool

import (
	"context"
	"fmt"

	"github.com/mosaicnetworks/ledgerpool/src/config"
	"github.com/mosaicnetworks/ledgerpool/src/consensus"
	"github.com/mosaicnetworks/ledgerpool/src/correlation"
	"github.com/mosaicnetworks/ledgerpool/src/net"
	"github.com/mosaicnetworks/ledgerpool/src/peers"
	"github.com/mosaicnetworks/ledgerpool/src/pool"
	"github.com/mosaicnetworks/ledgerpool/src/service"
	"github.com/mosaicnetworks/ledgerpool/src/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// LedgerPool is the context object that owns the configuration store, the
// consensus engine, the correlation table and the session manager.
type LedgerPool struct {
	// Config is the configuration of the LedgerPool
	Config *config.Config

	// Store holds the pool configurations
	Store store.Store

	// Engine runs discovery against pool nodes
	Engine consensus.Engine

	// Table correlates asynchronous operations with their outcome
	Table *correlation.Table

	// Manager manages pool sessions
	Manager *pool.Manager

	// Registry collects the Prometheus metrics of the LedgerPool
	Registry *prometheus.Registry

	// Service is the optional HTTP API
	Service *service.Service

	// TransportFactory creates the transport of each pool session. It
	// defaults to a TCP client transport; tests replace it before Init.
	TransportFactory consensus.TransportFactory

	logger *logrus.Entry
}

// NewLedgerPool is a factory method to produce a LedgerPool instance.
func NewLedgerPool(c *config.Config) *LedgerPool {
	return &LedgerPool{
		Config: c,
	}
}

// Init initialises the LedgerPool based on its configuration. Init does not
// start the HTTP service; see Run.
func (lp *LedgerPool) Init() error {
	lp.logger = lp.Config.Logger()

	if err := lp.initStore(); err != nil {
		lp.logger.WithError(err).Error("ledgerpool.go:Init() initStore")
		return err
	}

	if err := lp.initEngine(); err != nil {
		lp.logger.WithError(err).Error("ledgerpool.go:Init() initEngine")
		return err
	}

	lp.initManager()

	lp.initService()

	return nil
}

// Run starts the HTTP service, if it is enabled. This is a blocking call.
func (lp *LedgerPool) Run() {
	if lp.Service != nil {
		lp.Service.Serve()
	}
}

func (lp *LedgerPool) initStore() error {
	var err error

	switch lp.Config.Store {
	case config.InmemStore, "":
		lp.Store = store.NewInmemStore()
		lp.logger.Debug("created new in-mem store")
	case config.BadgerStore:
		dbPath := lp.Config.BadgerDir()
		lp.logger.WithField("path", dbPath).Debug("Opening badger store")
		lp.Store, err = store.NewBadgerStore(dbPath, lp.logger)
	case config.SQLiteStore:
		dbPath := lp.Config.SQLiteFile()
		lp.logger.WithField("path", dbPath).Debug("Opening sqlite store")
		lp.Store, err = store.NewSQLiteStore(dbPath)
	default:
		err = fmt.Errorf("unknown store %q", lp.Config.Store)
	}

	return err
}

func (lp *LedgerPool) initEngine() error {
	if lp.TransportFactory == nil {
		maxPool := lp.Config.MaxPool
		timeout := lp.Config.TCPTimeout
		logger := lp.logger
		lp.TransportFactory = func() (net.Transport, error) {
			return net.NewTCPClientTransport(maxPool, timeout, logger), nil
		}
	}

	lp.Engine = consensus.NewPeerEngine(lp.TransportFactory, lp.logger)

	return nil
}

func (lp *LedgerPool) initManager() {
	lp.Table = correlation.NewTable(lp.logger)
	lp.Registry = prometheus.NewRegistry()

	table := lp.Table
	metrics := pool.NewMetrics(lp.Registry, func() float64 {
		return float64(table.Len())
	})

	lp.Manager = pool.NewManager(
		lp.Config.PoolConfig(),
		lp.Table,
		lp.Store,
		lp.Engine,
		metrics,
		lp.logger,
	)
}

func (lp *LedgerPool) initService() {
	if !lp.Config.NoService {
		lp.Service = service.NewService(
			lp.Config.ServiceAddr,
			lp.Manager,
			lp.Table,
			lp.Registry,
			lp.logger,
		)
	}
}

// Shutdown closes the HTTP service, then stops the manager, cancelling pending
// operations and closing open sessions, and finally closes the engine and the
// store.
func (lp *LedgerPool) Shutdown() {
	lp.logger.Debug("Shutdown")

	if lp.Service != nil {
		if err := lp.Service.Close(); err != nil {
			lp.logger.WithError(err).Warn("Closing service")
		}
	}

	if lp.Manager != nil {
		lp.Manager.Shutdown()
	}

	if lp.Engine != nil {
		if err := lp.Engine.Close(); err != nil {
			lp.logger.WithError(err).Warn("Closing engine")
		}
	}

	if lp.Store != nil {
		if err := lp.Store.Close(); err != nil {
			lp.logger.WithError(err).Warn("Closing store")
		}
	}
}

/*******************************************************************************
Pool configurations
*******************************************************************************/

// descriptor resolves the node list of spec and builds the descriptor.
func (lp *LedgerPool) descriptor(name string, spec PoolSpec) (*store.Descriptor, error) {
	nodes := spec.Nodes

	if len(nodes) == 0 {
		path := spec.GenesisFile
		if path == "" {
			path = lp.Config.GenesisFile(name)
		}

		ps, err := peers.NewJSONPeerSet(path).PeerSet()
		if err != nil {
			return nil, pool.NewConfigErr(pool.Invalid, name, fmt.Errorf("reading %s: %w", path, err))
		}
		if ps == nil {
			return nil, pool.NewConfigErr(pool.Invalid, name, fmt.Errorf("%s is empty", path))
		}
		nodes = ps.Peers
	}

	return store.NewDescriptor(name, nodes, spec.tuning()), nil
}

// CreatePoolConfigAsync registers the creation of a pool configuration. A
// genesis file that cannot be read fails the operation with an Invalid
// ConfigErr.
func (lp *LedgerPool) CreatePoolConfigAsync(name string, spec PoolSpec) *correlation.Future {
	return lp.Manager.CreateConfigFuncAsync(func() (*store.Descriptor, error) {
		return lp.descriptor(name, spec)
	})
}

// CreatePoolConfig persists a new pool configuration.
func (lp *LedgerPool) CreatePoolConfig(name string, spec PoolSpec) error {
	return lp.CreatePoolConfigAsync(name, spec).Wait().Err
}

// DeletePoolConfigAsync registers the deletion of a pool configuration.
func (lp *LedgerPool) DeletePoolConfigAsync(name string) *correlation.Future {
	return lp.Manager.DeleteConfigAsync(name)
}

// DeletePoolConfig removes a pool configuration that no session uses.
func (lp *LedgerPool) DeletePoolConfig(name string) error {
	return lp.Manager.DeleteConfig(name)
}

// ListPoolConfigs returns the names of the pool configurations.
func (lp *LedgerPool) ListPoolConfigs() ([]string, error) {
	return lp.Manager.Configs()
}

// PoolConfig returns the named pool configuration.
func (lp *LedgerPool) PoolConfig(name string) (*store.Descriptor, error) {
	return lp.Manager.Config(name)
}

/*******************************************************************************
Pool sessions
*******************************************************************************/

// OpenPoolAsync registers the opening of a session on the named pool.
func (lp *LedgerPool) OpenPoolAsync(ctx context.Context, name string, rc pool.RuntimeConfig) *correlation.Future {
	return lp.Manager.OpenAsync(ctx, name, rc)
}

// OpenPool opens a session on the named pool and returns its handle.
func (lp *LedgerPool) OpenPool(ctx context.Context, name string, rc pool.RuntimeConfig) (pool.Handle, error) {
	return lp.Manager.Open(ctx, name, rc)
}

// RefreshPoolAsync registers a refresh of an open session.
func (lp *LedgerPool) RefreshPoolAsync(ctx context.Context, h pool.Handle) *correlation.Future {
	return lp.Manager.RefreshAsync(ctx, h)
}

// RefreshPool re-runs discovery on an open session.
func (lp *LedgerPool) RefreshPool(ctx context.Context, h pool.Handle) (pool.Snapshot, error) {
	return lp.Manager.Refresh(ctx, h)
}

// ClosePoolAsync registers the closing of a session.
func (lp *LedgerPool) ClosePoolAsync(ctx context.Context, h pool.Handle) *correlation.Future {
	return lp.Manager.CloseAsync(ctx, h)
}

// ClosePool closes a session.
func (lp *LedgerPool) ClosePool(ctx context.Context, h pool.Handle) error {
	return lp.Manager.Close(ctx, h)
}

// PoolSnapshot returns a read-only copy of a session.
func (lp *LedgerPool) PoolSnapshot(h pool.Handle) (pool.Snapshot, error) {
	return lp.Manager.Snapshot(h)
}

// Sessions returns snapshots of every live session.
func (lp *LedgerPool) Sessions() []pool.Snapshot {
	return lp.Manager.Sessions()
}
