package service

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/mosaicnetworks/ledgerpool/src/common"
	"github.com/mosaicnetworks/ledgerpool/src/consensus"
	"github.com/mosaicnetworks/ledgerpool/src/correlation"
	"github.com/mosaicnetworks/ledgerpool/src/node"
	"github.com/mosaicnetworks/ledgerpool/src/pool"
	"github.com/mosaicnetworks/ledgerpool/src/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

func TestService(t *testing.T) {
	logger := common.NewTestEntry(t, logrus.DebugLevel)

	c, err := node.NewInmemCluster(4, logger)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Shutdown()

	engine := consensus.NewPeerEngine(c.NewClientTransport, logger)
	defer engine.Close()

	table := correlation.NewTable(logger)
	reg := prometheus.NewRegistry()
	metrics := pool.NewMetrics(reg, func() float64 { return float64(table.Len()) })

	m := pool.NewManager(&pool.Config{Timeout: 2 * time.Second}, table, store.NewInmemStore(), engine, metrics, logger)
	defer m.Shutdown()

	for _, name := range []string{"beta", "alpha"} {
		if err := m.CreateConfig(store.NewDescriptor(name, c.Peers(), store.Tuning{})); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := m.Open(context.Background(), "alpha", pool.RuntimeConfig{}); err != nil {
		t.Fatal(err)
	}

	s := NewService("", m, table, reg, logger)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	get := func(path string, v interface{}) int {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		if resp.StatusCode == http.StatusOK && v != nil {
			if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
				t.Fatalf("decoding %s: %v", path, err)
			}
		}
		return resp.StatusCode
	}

	var names []string
	if code := get("/pools", &names); code != http.StatusOK {
		t.Fatalf("/pools returned %d", code)
	}
	if !reflect.DeepEqual(names, []string{"alpha", "beta"}) {
		t.Fatalf("/pools should list alpha and beta, not %v", names)
	}

	var desc map[string]interface{}
	if code := get("/pools/beta", &desc); code != http.StatusOK {
		t.Fatalf("/pools/beta returned %d", code)
	}
	if desc["Name"] != "beta" {
		t.Fatalf("/pools/beta returned %v", desc)
	}

	if code := get("/pools/gamma", nil); code != http.StatusNotFound {
		t.Fatalf("/pools/gamma should return 404, not %d", code)
	}

	var sessions []map[string]interface{}
	if code := get("/sessions", &sessions); code != http.StatusOK {
		t.Fatalf("/sessions returned %d", code)
	}
	if len(sessions) != 1 || sessions[0]["Name"] != "alpha" || sessions[0]["State"] != "Open" {
		t.Fatalf("/sessions should describe the open alpha session: %v", sessions)
	}

	var stats map[string]interface{}
	if code := get("/stats", &stats); code != http.StatusOK {
		t.Fatalf("/stats returned %d", code)
	}
	if stats["sessions"] != float64(1) {
		t.Fatalf("/stats should report 1 session: %v", stats)
	}

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	buf := new(strings.Builder)
	if _, err := io.Copy(buf, resp.Body); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "ledgerpool_manager_sessions 1") {
		t.Fatalf("/metrics should export the sessions gauge")
	}

	resp2, err := http.Post(ts.URL+"/pools", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp2.Body.Close()
	if resp2.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("POST should be rejected, got %d", resp2.StatusCode)
	}
}
