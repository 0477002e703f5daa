package pool

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/mosaicnetworks/ledgerpool/src/common"
	"github.com/mosaicnetworks/ledgerpool/src/consensus"
	"github.com/mosaicnetworks/ledgerpool/src/correlation"
	"github.com/mosaicnetworks/ledgerpool/src/store"
	"github.com/sirupsen/logrus"
)

// Manager is the Pool Session Manager. It is safe for concurrent use.
type Manager struct {
	// mu guards the handle table, the name claims, the deletions in flight
	// and closing. It is never held across network or store I/O.
	mu       sync.RWMutex
	handles  *handleTable
	byName   map[string]Handle
	deleting map[string]int
	closing  bool

	table  *correlation.Table
	store  store.Store
	engine consensus.Engine
	conf   *Config

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	metrics *Metrics
	logger  *logrus.Entry
}

// NewManager creates a Manager. The Manager does not own table, st or engine;
// whoever created them closes them after Shutdown.
func NewManager(conf *Config,
	table *correlation.Table,
	st store.Store,
	engine consensus.Engine,
	metrics *Metrics,
	logger *logrus.Entry,
) *Manager {
	if conf == nil {
		conf = DefaultConfig()
	}

	if logger == nil {
		log := logrus.New()
		log.Level = logrus.DebugLevel
		logger = logrus.NewEntry(log)
	}

	if metrics == nil {
		metrics = NewMetrics(nil, nil)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Manager{
		handles:  newHandleTable(),
		byName:   make(map[string]Handle),
		deleting: make(map[string]int),
		table:    table,
		store:    st,
		engine:   engine,
		conf:     conf,
		ctx:      ctx,
		cancel:   cancel,
		metrics:  metrics,
		logger:   logger.WithField("component", "manager"),
	}
}

/*******************************************************************************
Async plumbing
*******************************************************************************/

// goOp registers an operation, runs it in a tracked goroutine and completes
// its token with the result. If the Manager is shutting down, the operation is
// completed at once with a cancellation error.
func (m *Manager) goOp(kind correlation.Kind, op func() (interface{}, error), undelivered func(interface{})) *correlation.Future {
	f := m.table.RegisterFuture(kind)

	m.mu.Lock()
	if m.closing {
		m.mu.Unlock()
		m.complete(f.Token(), kind, nil, errShuttingDown(), nil)
		return f
	}
	m.wg.Add(1)
	m.mu.Unlock()

	go func() {
		defer m.wg.Done()

		start := time.Now()
		result, err := op()
		m.metrics.observe(kind.String(), err, time.Since(start))

		m.complete(f.Token(), kind, result, err, undelivered)
	}()

	return f
}

func (m *Manager) complete(token correlation.Token, kind correlation.Kind, result interface{}, err error, undelivered func(interface{})) {
	cerr := m.table.Complete(token, correlation.Outcome{Result: result, Err: err})
	if cerr == nil {
		return
	}

	m.metrics.undelivered.Inc()

	entry := m.logger.WithFields(logrus.Fields{
		"token": token,
		"kind":  kind,
		"error": cerr,
	})
	if m.isClosing() {
		entry.Warn("Outcome not delivered")
	} else {
		entry.Error("Outcome not delivered")
	}

	if undelivered != nil && err == nil {
		undelivered(result)
	}
}

func (m *Manager) isClosing() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closing
}

// opContext derives the context of an operation from the caller's context and
// the Manager's lifetime, and bounds it with timeout when the caller gave no
// deadline.
func (m *Manager) opContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(m.ctx, cancel)

	if _, ok := ctx.Deadline(); !ok && timeout > 0 {
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeout(ctx, timeout)
		return ctx, func() {
			cancelTimeout()
			stop()
			cancel()
		}
	}

	return ctx, func() {
		stop()
		cancel()
	}
}

// claimErr describes the claim h holds on a name.
func claimErr(h Handle) error {
	if h == 0 {
		return fmt.Errorf("being opened")
	}
	return fmt.Errorf("held by %s", h)
}

func errShuttingDown() error {
	return fmt.Errorf("%w: manager shutting down", correlation.ErrCancelled)
}

func isCancelled(err error) bool {
	return errors.Is(err, correlation.ErrCancelled) || errors.Is(err, context.Canceled)
}

// sessionError maps an engine error to the session error taxonomy.
func sessionError(subject string, err error) error {
	switch {
	case consensus.IsConsensus(err, consensus.Timeout),
		errors.Is(err, context.DeadlineExceeded):
		return NewSessionErr(Timeout, subject, err)
	case consensus.IsConsensus(err, consensus.NoAgreement):
		return NewSessionErr(ConsensusFailure, subject, err)
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("%w: %v", correlation.ErrCancelled, err)
	default:
		return NewSessionErr(ConnectionFailed, subject, err)
	}
}

/*******************************************************************************
Configurations
*******************************************************************************/

// CreateConfigAsync registers a CreateConfig operation. The outcome carries no
// result.
func (m *Manager) CreateConfigAsync(desc *store.Descriptor) *correlation.Future {
	desc = desc.Copy()
	return m.CreateConfigFuncAsync(func() (*store.Descriptor, error) {
		return desc, nil
	})
}

// CreateConfigFuncAsync registers a CreateConfig operation whose descriptor
// is built by load, in the operation's goroutine. An error from load is the
// outcome of the operation.
func (m *Manager) CreateConfigFuncAsync(load func() (*store.Descriptor, error)) *correlation.Future {
	return m.goOp(correlation.CreateConfig, func() (interface{}, error) {
		desc, err := load()
		if err != nil {
			return nil, err
		}
		return nil, m.createConfig(desc)
	}, nil)
}

// CreateConfig stores a new pool configuration.
func (m *Manager) CreateConfig(desc *store.Descriptor) error {
	return m.CreateConfigAsync(desc).Wait().Err
}

func (m *Manager) createConfig(desc *store.Descriptor) error {
	if err := desc.Validate(); err != nil {
		return NewConfigErr(Invalid, desc.Name, err)
	}

	if err := m.store.Create(desc); err != nil {
		if common.IsStore(err, common.KeyAlreadyExists) {
			return NewConfigErr(AlreadyExists, desc.Name, nil)
		}
		return fmt.Errorf("creating pool config %s: %w", desc.Name, err)
	}

	m.logger.WithFields(logrus.Fields{
		"name":  desc.Name,
		"nodes": len(desc.Nodes),
	}).Info("Pool config created")

	return nil
}

// DeleteConfigAsync registers a DeleteConfig operation.
func (m *Manager) DeleteConfigAsync(name string) *correlation.Future {
	return m.goOp(correlation.DeleteConfig, func() (interface{}, error) {
		return nil, m.deleteConfig(name)
	}, nil)
}

// DeleteConfig removes a pool configuration. It fails with InUse while a
// session is open on it.
func (m *Manager) DeleteConfig(name string) error {
	return m.DeleteConfigAsync(name).Wait().Err
}

func (m *Manager) deleteConfig(name string) error {
	m.mu.Lock()
	if h, ok := m.byName[name]; ok {
		m.mu.Unlock()
		return NewConfigErr(InUse, name, claimErr(h))
	}
	m.deleting[name]++
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		if m.deleting[name]--; m.deleting[name] == 0 {
			delete(m.deleting, name)
		}
		m.mu.Unlock()
	}()

	if err := m.store.Delete(name); err != nil {
		if common.IsStore(err, common.KeyNotFound) {
			return NewConfigErr(NotFound, name, nil)
		}
		return fmt.Errorf("deleting pool config %s: %w", name, err)
	}

	m.logger.WithField("name", name).Info("Pool config deleted")

	return nil
}

// Config returns a copy of the named pool configuration.
func (m *Manager) Config(name string) (*store.Descriptor, error) {
	desc, err := m.store.Get(name)
	if err != nil {
		if common.IsStore(err, common.KeyNotFound) {
			return nil, NewConfigErr(NotFound, name, nil)
		}
		return nil, err
	}
	return desc, nil
}

// Configs lists the names of the stored pool configurations.
func (m *Manager) Configs() ([]string, error) {
	return m.store.List()
}

/*******************************************************************************
Sessions
*******************************************************************************/

// OpenAsync registers an Open operation. On success the outcome's Result is
// the Handle of the new session.
func (m *Manager) OpenAsync(ctx context.Context, name string, rc RuntimeConfig) *correlation.Future {
	return m.goOp(correlation.Open, func() (interface{}, error) {
		h, err := m.open(ctx, name, rc)
		if err != nil {
			return nil, err
		}
		return h, nil
	}, func(result interface{}) {
		m.abort(result.(Handle))
	})
}

// Open establishes a session against the named pool configuration.
func (m *Manager) Open(ctx context.Context, name string, rc RuntimeConfig) (Handle, error) {
	o := m.OpenAsync(ctx, name, rc).Wait()
	if o.Err != nil {
		return 0, o.Err
	}
	return o.Result.(Handle), nil
}

func (m *Manager) open(ctx context.Context, name string, rc RuntimeConfig) (Handle, error) {
	m.mu.Lock()

	if m.closing {
		m.mu.Unlock()
		return 0, errShuttingDown()
	}

	if h, ok := m.byName[name]; ok {
		m.mu.Unlock()
		return 0, NewSessionErr(AlreadyOpen, name, claimErr(h))
	}

	if m.deleting[name] > 0 {
		m.mu.Unlock()
		return 0, NewConfigErr(NotFound, name, fmt.Errorf("being deleted"))
	}

	// The zero handle claims the name while the descriptor is read.
	m.byName[name] = 0
	m.mu.Unlock()

	desc, err := m.store.Get(name)
	if err != nil {
		m.mu.Lock()
		delete(m.byName, name)
		m.mu.Unlock()

		if common.IsStore(err, common.KeyNotFound) {
			return 0, NewConfigErr(NotFound, name, nil)
		}
		return 0, fmt.Errorf("loading pool config %s: %w", name, err)
	}

	timeout, opts := resolve(rc, desc.Tuning, m.conf)
	sess := newSession(name, desc.PeerSet(), timeout, opts)

	// The new session is locked before it becomes visible, so Refresh and
	// Close on its handle wait for the outcome of Open.
	sess.Lock()
	defer sess.Unlock()

	m.mu.Lock()
	sess.handle = m.handles.allocate(sess)
	sess.setState(Opening)
	m.byName[name] = sess.handle
	m.mu.Unlock()

	logger := m.logger.WithFields(logrus.Fields{
		"name":   name,
		"handle": sess.handle,
		"ref":    sess.ref,
	})
	logger.Debug("Opening")

	dctx, cancel := m.opContext(ctx, timeout)
	defer cancel()

	view, err := m.engine.Discover(dctx, sess.ref, sess.knownGood(), opts)
	if err != nil {
		if terr := m.engine.Teardown(sess.ref); terr != nil {
			logger.WithError(terr).Warn("Teardown after failed open")
		}
		m.release(sess)
		logger.WithError(err).Warn("Open failed")
		return 0, sessionError(name, err)
	}

	sess.publish(view, true)
	sess.setState(Open)
	m.metrics.sessions.Inc()

	logger.WithFields(logrus.Fields{
		"agreeing":    len(view.Agreeing),
		"unreachable": len(view.Unreachable),
		"faulty":      len(view.Faulty),
		"ledger_size": view.LedgerSize,
	}).Info("Pool opened")

	return sess.handle, nil
}

// RefreshAsync registers a Refresh operation. On success the outcome's Result
// is a Snapshot of the refreshed session.
func (m *Manager) RefreshAsync(ctx context.Context, h Handle) *correlation.Future {
	return m.goOp(correlation.Refresh, func() (interface{}, error) {
		snap, err := m.refresh(ctx, h)
		if err != nil {
			return nil, err
		}
		return snap, nil
	}, func(interface{}) {
		m.abort(h)
	})
}

// Refresh re-runs discovery on an open session. On failure the session stays
// Open with its previous view and the error is returned. Concurrent refreshes
// of the same handle run one after the other.
func (m *Manager) Refresh(ctx context.Context, h Handle) (Snapshot, error) {
	o := m.RefreshAsync(ctx, h).Wait()
	if o.Err != nil {
		return Snapshot{}, o.Err
	}
	return o.Result.(Snapshot), nil
}

func (m *Manager) refresh(ctx context.Context, h Handle) (Snapshot, error) {
	sess, err := m.lockOpen(h)
	if err != nil {
		return Snapshot{}, err
	}
	defer sess.Unlock()

	sess.setState(Refreshing)

	logger := m.logger.WithFields(logrus.Fields{
		"name":   sess.name,
		"handle": h,
	})

	prev := sess.currentView()

	dctx, cancel := m.opContext(ctx, sess.timeout)
	defer cancel()

	view, err := m.engine.Discover(dctx, sess.ref, sess.knownGood(), sess.opts)
	if err != nil {
		sess.refreshFailed()
		sess.setState(Open)
		m.metrics.refreshFailures.Inc()
		logger.WithError(err).Warn("Refresh failed, keeping last known-good view")
		return Snapshot{}, sessionError(sess.name, err)
	}

	added, removed, moved := prev.Peers.Diff(view.Peers)
	if len(added)+len(removed)+len(moved) > 0 {
		logger.WithFields(logrus.Fields{
			"added":   added,
			"removed": removed,
			"moved":   moved,
		}).Info("Pool node set changed")
	}

	sess.publish(view, false)
	sess.setState(Open)

	logger.WithFields(logrus.Fields{
		"agreeing":    len(view.Agreeing),
		"unreachable": len(view.Unreachable),
		"ledger_size": view.LedgerSize,
	}).Debug("Refreshed")

	return sess.snapshot(), nil
}

// CloseAsync registers a Close operation.
func (m *Manager) CloseAsync(ctx context.Context, h Handle) *correlation.Future {
	return m.goOp(correlation.Close, func() (interface{}, error) {
		return nil, m.close(ctx, h)
	}, nil)
}

// Close releases a session. Its handle becomes invalid.
func (m *Manager) Close(ctx context.Context, h Handle) error {
	return m.CloseAsync(ctx, h).Wait().Err
}

func (m *Manager) close(ctx context.Context, h Handle) error {
	if err := ctx.Err(); err != nil {
		return sessionError(h.String(), err)
	}

	sess, err := m.lockOpen(h)
	if err != nil {
		return err
	}
	defer sess.Unlock()

	m.closeLocked(sess)

	m.logger.WithFields(logrus.Fields{
		"name":   sess.name,
		"handle": h,
	}).Info("Pool closed")

	return nil
}

// closeLocked tears a session down. The caller holds the session lock and the
// session is Open.
func (m *Manager) closeLocked(sess *session) {
	sess.setState(Closing)
	if err := m.engine.Teardown(sess.ref); err != nil {
		m.logger.WithFields(logrus.Fields{
			"name":  sess.name,
			"error": err,
		}).Warn("Teardown failed")
	}
	m.release(sess)
	m.metrics.sessions.Dec()
}

// abort closes a session whose outcome could not be delivered.
func (m *Manager) abort(h Handle) {
	sess, err := m.lockOpen(h)
	if err != nil {
		return
	}
	defer sess.Unlock()

	m.logger.WithFields(logrus.Fields{
		"name":   sess.name,
		"handle": h,
	}).Warn("Aborting session")

	m.closeLocked(sess)
}

// lockOpen looks h up, takes the session lock, and checks that the session is
// still the one h names and that it is Open.
func (m *Manager) lockOpen(h Handle) (*session, error) {
	m.mu.RLock()
	sess, ok := m.handles.lookup(h)
	m.mu.RUnlock()

	if !ok {
		return nil, NewSessionErr(InvalidHandle, h.String(), nil)
	}

	sess.Lock()
	if sess.handle != h || sess.getState() != Open {
		sess.Unlock()
		return nil, NewSessionErr(InvalidHandle, h.String(), nil)
	}
	return sess, nil
}

// release frees the handle and the name claim of a session.
func (m *Manager) release(sess *session) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.handles.release(sess.handle)
	if m.byName[sess.name] == sess.handle {
		delete(m.byName, sess.name)
	}
	sess.setState(Closed)
}

// Snapshot returns a read-only copy of a session.
func (m *Manager) Snapshot(h Handle) (Snapshot, error) {
	m.mu.RLock()
	sess, ok := m.handles.lookup(h)
	m.mu.RUnlock()

	if !ok {
		return Snapshot{}, NewSessionErr(InvalidHandle, h.String(), nil)
	}
	return sess.snapshot(), nil
}

// Sessions returns snapshots of every live session, ordered by name.
func (m *Manager) Sessions() []Snapshot {
	m.mu.RLock()
	live := m.handles.live()
	m.mu.RUnlock()

	res := make([]Snapshot, 0, len(live))
	for _, s := range live {
		res = append(res, s.snapshot())
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Name < res[j].Name })
	return res
}

/*******************************************************************************
Shutdown
*******************************************************************************/

// Shutdown stops accepting operations, cancels the running ones, resolves
// every pending token with a cancellation, waits for the workers, and closes
// the remaining sessions. The table, store and engine stay open.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	if m.closing {
		m.mu.Unlock()
		return
	}
	m.closing = true
	m.mu.Unlock()

	m.logger.Debug("Shutdown")

	m.cancel()

	if n := m.table.CancelAll("shutdown"); n > 0 {
		m.logger.WithField("cancelled", n).Info("Cancelled pending operations")
	}

	m.wg.Wait()

	m.mu.RLock()
	live := m.handles.live()
	m.mu.RUnlock()

	for _, sess := range live {
		sess.Lock()
		if sess.getState() == Open {
			m.closeLocked(sess)
		}
		sess.Unlock()
	}
}
