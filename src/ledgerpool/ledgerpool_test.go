package ledgerpool

import (
	"context"
	"fmt"
	gonet "net"
	"net/http"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/mosaicnetworks/ledgerpool/src/config"
	"github.com/mosaicnetworks/ledgerpool/src/crypto/keys"
	"github.com/mosaicnetworks/ledgerpool/src/net"
	"github.com/mosaicnetworks/ledgerpool/src/node"
	"github.com/mosaicnetworks/ledgerpool/src/peers"
	"github.com/mosaicnetworks/ledgerpool/src/pool"
	"github.com/sirupsen/logrus"
)

func newTestLedgerPool(t *testing.T, c *node.InmemCluster, storeType string) *LedgerPool {
	conf := config.NewTestConfig(t, logrus.DebugLevel)
	conf.Store = storeType
	conf.Timeout = 2 * time.Second

	lp := NewLedgerPool(conf)
	if c != nil {
		lp.TransportFactory = c.NewClientTransport
	}

	if err := lp.Init(); err != nil {
		t.Fatal(err)
	}

	return lp
}

func TestCreatePoolConfigFromGenesisFile(t *testing.T) {
	c, err := node.NewInmemCluster(4, config.NewTestConfig(t, logrus.DebugLevel).Logger())
	if err != nil {
		t.Fatal(err)
	}
	defer c.Shutdown()

	lp := newTestLedgerPool(t, c, config.InmemStore)
	defer lp.Shutdown()

	if err := lp.CreatePoolConfig("main", PoolSpec{}); !pool.IsConfig(err, pool.Invalid) {
		t.Fatalf("missing genesis file should be Invalid, got %v", err)
	}

	genesis := peers.NewJSONPeerSet(lp.Config.GenesisFile("main"))
	if err := genesis.Write(c.Peers()); err != nil {
		t.Fatal(err)
	}

	if err := lp.CreatePoolConfig("main", PoolSpec{ConnLimit: 2}); err != nil {
		t.Fatalf("CreatePoolConfig: %v", err)
	}

	desc, err := lp.PoolConfig("main")
	if err != nil {
		t.Fatal(err)
	}
	if desc.PeerSet().Hex() != peers.NewPeerSet(c.Peers()).Hex() {
		t.Fatalf("descriptor should carry the genesis node list")
	}
	if desc.Tuning.ConnLimit != 2 {
		t.Fatalf("descriptor should carry the tuning")
	}

	ctx := context.Background()

	h, err := lp.OpenPool(ctx, "main", pool.RuntimeConfig{})
	if err != nil {
		t.Fatalf("OpenPool: %v", err)
	}

	snap, err := lp.RefreshPool(ctx, h)
	if err != nil {
		t.Fatalf("RefreshPool: %v", err)
	}
	if snap.Handle != h || len(snap.Peers) != 4 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}

	if err := lp.DeletePoolConfig("main"); !pool.IsConfig(err, pool.InUse) {
		t.Fatalf("expected InUse, got %v", err)
	}

	if err := lp.ClosePool(ctx, h); err != nil {
		t.Fatal(err)
	}
	if err := lp.DeletePoolConfig("main"); err != nil {
		t.Fatal(err)
	}
}

func TestAsyncForms(t *testing.T) {
	c, err := node.NewInmemCluster(4, config.NewTestConfig(t, logrus.DebugLevel).Logger())
	if err != nil {
		t.Fatal(err)
	}
	defer c.Shutdown()

	lp := newTestLedgerPool(t, c, config.InmemStore)
	defer lp.Shutdown()

	f := lp.CreatePoolConfigAsync("main", PoolSpec{Nodes: c.Peers()})
	if o := f.Wait(); o.Err != nil {
		t.Fatal(o.Err)
	}

	ctx := context.Background()

	open := lp.OpenPoolAsync(ctx, "main", pool.RuntimeConfig{})
	o := open.Wait()
	if o.Err != nil {
		t.Fatal(o.Err)
	}
	h := o.Result.(pool.Handle)

	refresh := lp.RefreshPoolAsync(ctx, h)
	if refresh.Token() == open.Token() {
		t.Fatalf("operations should get distinct tokens")
	}
	if o := refresh.Wait(); o.Err != nil || o.Result.(pool.Snapshot).Handle != h {
		t.Fatalf("unexpected refresh outcome %+v", o)
	}

	if o := lp.ClosePoolAsync(ctx, h).Wait(); o.Err != nil {
		t.Fatal(o.Err)
	}
	if o := lp.DeletePoolConfigAsync("main").Wait(); o.Err != nil {
		t.Fatal(o.Err)
	}
}

func TestPersistentStores(t *testing.T) {
	for _, st := range []string{config.BadgerStore, config.SQLiteStore} {
		t.Run(st, func(t *testing.T) {
			conf := config.NewTestConfig(t, logrus.DebugLevel)
			conf.Store = st

			nodes := []*peers.Peer{}
			for i := 0; i < 2; i++ {
				key, err := keys.GenerateECDSAKey()
				if err != nil {
					t.Fatal(err)
				}
				addr := fmt.Sprintf("127.0.0.1:%d", 1337+i)
				nodes = append(nodes, peers.NewPeer(keys.PublicKeyHex(&key.PublicKey), addr, ""))
			}

			lp := NewLedgerPool(conf)
			if err := lp.Init(); err != nil {
				t.Fatal(err)
			}
			for _, name := range []string{"beta", "alpha"} {
				if err := lp.CreatePoolConfig(name, PoolSpec{Nodes: nodes}); err != nil {
					t.Fatal(err)
				}
			}
			lp.Shutdown()

			lp = NewLedgerPool(conf)
			if err := lp.Init(); err != nil {
				t.Fatal(err)
			}
			defer lp.Shutdown()

			names, err := lp.ListPoolConfigs()
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(names, []string{"alpha", "beta"}) {
				t.Fatalf("configs should survive a restart, got %v", names)
			}
		})
	}
}

func TestUnknownStore(t *testing.T) {
	conf := config.NewTestConfig(t, logrus.DebugLevel)
	conf.Store = "etcd"

	if err := NewLedgerPool(conf).Init(); err == nil {
		t.Fatalf("Init should fail with an unknown store")
	}
}

func TestCreatePoolConfigAsyncGenesisError(t *testing.T) {
	lp := newTestLedgerPool(t, nil, config.InmemStore)
	defer lp.Shutdown()

	f := lp.CreatePoolConfigAsync("main", PoolSpec{GenesisFile: "/nonexistent/peers.json"})
	if f == nil {
		t.Fatalf("CreatePoolConfigAsync should always return a future")
	}
	if o := f.Wait(); !pool.IsConfig(o.Err, pool.Invalid) {
		t.Fatalf("unreadable genesis file should fail the operation with Invalid, got %v", o.Err)
	}
	if lp.Table.Len() != 0 {
		t.Fatalf("completed operation should not stay pending")
	}
}

func freeAddr(t *testing.T) string {
	l, err := gonet.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()
	return l.Addr().String()
}

func TestShutdownClosesServiceFirst(t *testing.T) {
	conf := config.NewTestConfig(t, logrus.InfoLevel)
	conf.Store = config.SQLiteStore
	conf.NoService = false
	conf.ServiceAddr = freeAddr(t)

	lp := NewLedgerPool(conf)
	if err := lp.Init(); err != nil {
		t.Fatal(err)
	}
	go lp.Run()

	url := fmt.Sprintf("http://%s/pools", conf.ServiceAddr)
	client := &http.Client{Timeout: time.Second}

	up := false
	for i := 0; i < 100 && !up; i++ {
		if resp, err := client.Get(url); err == nil {
			resp.Body.Close()
			up = resp.StatusCode == http.StatusOK
		}
		if !up {
			time.Sleep(10 * time.Millisecond)
		}
	}
	if !up {
		t.Fatalf("service did not come up on %s", conf.ServiceAddr)
	}

	stop := make(chan struct{})
	var wg sync.WaitGroup
	var mu sync.Mutex
	statuses := []int{}

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				resp, err := client.Get(url)
				if err != nil {
					continue
				}
				resp.Body.Close()
				mu.Lock()
				statuses = append(statuses, resp.StatusCode)
				mu.Unlock()
			}
		}()
	}

	time.Sleep(20 * time.Millisecond)
	lp.Shutdown()
	close(stop)
	wg.Wait()

	for _, code := range statuses {
		if code != http.StatusOK {
			t.Fatalf("requests during Shutdown should not see a closed store, got status %d", code)
		}
	}

	if resp, err := client.Get(url); err == nil {
		resp.Body.Close()
		t.Fatalf("service should be closed after Shutdown")
	}
}

func TestShutdownReleasesSessions(t *testing.T) {
	c, err := node.NewInmemCluster(4, config.NewTestConfig(t, logrus.DebugLevel).Logger())
	if err != nil {
		t.Fatal(err)
	}
	defer c.Shutdown()

	lp := newTestLedgerPool(t, c, config.InmemStore)

	if err := lp.CreatePoolConfig("main", PoolSpec{Nodes: c.Peers()}); err != nil {
		t.Fatal(err)
	}
	h, err := lp.OpenPool(context.Background(), "main", pool.RuntimeConfig{})
	if err != nil {
		t.Fatal(err)
	}

	lp.Shutdown()

	if c.OpenClients() != 0 {
		t.Fatalf("Shutdown should close every session transport")
	}
	if _, err := lp.PoolSnapshot(h); !pool.IsSession(err, pool.InvalidHandle) {
		t.Fatalf("handle should be invalid after Shutdown, got %v", err)
	}
}

func TestOpenPoolOverTCP(t *testing.T) {
	conf := config.NewTestConfig(t, logrus.DebugLevel)
	logger := conf.Logger()

	const n = 4

	transports := []*net.NetworkTransport{}
	validators := []*node.Validator{}
	pirs := []*peers.Peer{}

	for i := 0; i < n; i++ {
		trans, err := net.NewTCPTransport("127.0.0.1:0", "", 2, time.Second, logger)
		if err != nil {
			t.Fatal(err)
		}
		key, err := keys.GenerateECDSAKey()
		if err != nil {
			t.Fatal(err)
		}
		moniker := fmt.Sprintf("tcp%d", i)
		v := node.NewValidator(key, moniker)

		transports = append(transports, trans)
		validators = append(validators, v)
		pirs = append(pirs, peers.NewPeer(v.PublicKeyHex(), trans.AdvertiseAddr(), moniker))
	}

	peerSet := peers.NewPeerSet(pirs)

	for i := 0; i < n; i++ {
		nd := node.NewNode(
			&node.Config{Moniker: validators[i].Moniker, Logger: logger},
			validators[i],
			peerSet,
			transports[i],
		)
		nd.SubmitTransactions([]byte("tx"))
		nd.RunAsync()
		defer nd.Shutdown()
	}

	lp := NewLedgerPool(conf)
	if err := lp.Init(); err != nil {
		t.Fatal(err)
	}
	defer lp.Shutdown()

	if err := lp.CreatePoolConfig("tcp", PoolSpec{Nodes: pirs}); err != nil {
		t.Fatal(err)
	}

	h, err := lp.OpenPool(context.Background(), "tcp", pool.RuntimeConfig{})
	if err != nil {
		t.Fatalf("OpenPool: %v", err)
	}

	snap, err := lp.PoolSnapshot(h)
	if err != nil {
		t.Fatal(err)
	}
	if snap.LedgerSize != 1 || len(snap.Peers) != n {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}
