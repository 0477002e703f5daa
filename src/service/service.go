package service

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/mosaicnetworks/ledgerpool/src/correlation"
	"github.com/mosaicnetworks/ledgerpool/src/pool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Service exposes pool configurations, sessions and statistics over HTTP.
type Service struct {
	sync.Mutex

	bindAddress string
	manager     *pool.Manager
	table       *correlation.Table
	gatherer    prometheus.Gatherer
	mux         *http.ServeMux
	server      *http.Server
	closed      bool
	logger      *logrus.Entry
}

// NewService ...
func NewService(bindAddress string,
	manager *pool.Manager,
	table *correlation.Table,
	gatherer prometheus.Gatherer,
	logger *logrus.Entry,
) *Service {
	service := Service{
		bindAddress: bindAddress,
		manager:     manager,
		table:       table,
		gatherer:    gatherer,
		mux:         http.NewServeMux(),
		logger:      logger.WithField("component", "service"),
	}

	service.registerHandlers()

	return &service
}

func (s *Service) registerHandlers() {
	s.logger.Debug("Registering LedgerPool API handlers")
	s.mux.HandleFunc("/pools", s.makeHandler(s.GetPools))
	s.mux.HandleFunc("/pools/", s.makeHandler(s.GetPool))
	s.mux.HandleFunc("/sessions", s.makeHandler(s.GetSessions))
	s.mux.HandleFunc("/stats", s.makeHandler(s.GetStats))
	if s.gatherer != nil {
		s.mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
}

func (s *Service) makeHandler(fn func(http.ResponseWriter, *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		// enable CORS
		w.Header().Set("Access-Control-Allow-Origin", "*")

		fn(w, r)
	}
}

// Handler returns the http.Handler serving the API.
func (s *Service) Handler() http.Handler {
	return s.mux
}

// Serve calls ListenAndServe. This is a blocking call.
func (s *Service) Serve() {
	s.Lock()
	if s.closed {
		s.Unlock()
		return
	}
	s.server = &http.Server{
		Addr:    s.bindAddress,
		Handler: s.mux,
	}
	server := s.server
	s.Unlock()

	s.logger.WithField("bind_address", s.bindAddress).Debug("Serving LedgerPool API")

	err := server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		s.logger.Error(err)
	}
}

// shutdownTimeout bounds how long Close waits for requests in flight.
const shutdownTimeout = 5 * time.Second

// Close stops the server started by Serve, if any, and waits for the requests
// in flight to finish.
func (s *Service) Close() error {
	s.Lock()
	s.closed = true
	server := s.server
	s.Unlock()

	if server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return server.Close()
	}
	return nil
}

// GetPools returns the names of the pool configurations.
func (s *Service) GetPools(w http.ResponseWriter, r *http.Request) {
	names, err := s.manager.Configs()
	if err != nil {
		s.logger.WithError(err).Error("Listing pool configs")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, names)
}

// GetPool returns a pool configuration.
func (s *Service) GetPool(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/pools/")

	desc, err := s.manager.Config(name)
	if err != nil {
		if pool.IsConfig(err, pool.NotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		s.logger.WithError(err).Errorf("Retrieving pool config %s", name)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, desc)
}

// GetSessions returns a snapshot of every live session.
func (s *Service) GetSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.manager.Sessions())
}

// GetStats returns the number of pending operations by kind and the number of
// live sessions.
func (s *Service) GetStats(w http.ResponseWriter, r *http.Request) {
	stats := map[string]interface{}{
		"pending_operations": s.table.PendingByKind(),
		"sessions":           len(s.manager.Sessions()),
	}

	writeJSON(w, stats)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")

	json.NewEncoder(w).Encode(v)
}
