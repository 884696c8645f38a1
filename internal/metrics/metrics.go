/*
 * Copyright (c) 2026 Rowgate Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

/*
Package metrics provides Prometheus-compatible metrics for rowgate.

METRIC CATEGORIES:
==================
- Operations: issued (total, by type: get, put, delete, increment, cas,
  scan, close, flush), failed
- Operation latency: admission-to-settlement, summed for averaging
- Permits: capacity, in-use count and over-release count per registered pool
- Scanners: currently open scan sessions
- Health: last probe outcome

PROMETHEUS ENDPOINT:
====================
Metrics are exposed at /metrics in Prometheus text format.

EXAMPLE METRICS:
================

	rowgate_ops_total 12345
	rowgate_ops_by_type_total{type="get"} 9876
	rowgate_ops_failed_total 3
	rowgate_permits_in_use{pool="client"} 7
	rowgate_permits_capacity{pool="client"} 10
*/
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"rowgate/internal/config"
	"rowgate/internal/limits"
	"rowgate/internal/logging"
)

// Metrics holds all rowgate metrics.
type Metrics struct {
	// Operation metrics
	OpsTotal     atomic.Uint64
	OpsGet       atomic.Uint64
	OpsPut       atomic.Uint64
	OpsDelete    atomic.Uint64
	OpsIncrement atomic.Uint64
	OpsCAS       atomic.Uint64
	OpsScan      atomic.Uint64
	OpsClose     atomic.Uint64
	OpsFlush     atomic.Uint64
	OpsFailed    atomic.Uint64

	// Operation latency metrics (in microseconds)
	OpLatencySum   atomic.Uint64
	OpLatencyCount atomic.Uint64

	// Scan session metrics
	ScannersOpen atomic.Int64

	// Health metrics
	Healthy atomic.Bool

	// Registered permit pools, sampled at scrape time.
	pools sync.Map // pool name -> *limits.Pool
}

// Global metrics instance
var globalMetrics = &Metrics{}

// Get returns the global metrics instance.
func Get() *Metrics {
	return globalMetrics
}

// RegisterPool registers a permit pool for scraping under the given name.
func (m *Metrics) RegisterPool(name string, p *limits.Pool) {
	m.pools.Store(name, p)
}

// RecordOp records one settled operation.
func (m *Metrics) RecordOp(opType string, latency time.Duration) {
	m.OpsTotal.Add(1)
	m.OpLatencySum.Add(uint64(latency.Microseconds()))
	m.OpLatencyCount.Add(1)

	switch opType {
	case "get":
		m.OpsGet.Add(1)
	case "put":
		m.OpsPut.Add(1)
	case "delete":
		m.OpsDelete.Add(1)
	case "increment":
		m.OpsIncrement.Add(1)
	case "cas":
		m.OpsCAS.Add(1)
	case "scan":
		m.OpsScan.Add(1)
	case "close":
		m.OpsClose.Add(1)
	case "flush":
		m.OpsFlush.Add(1)
	}
}

// RecordOpError records a failed operation.
func (m *Metrics) RecordOpError() {
	m.OpsFailed.Add(1)
}

// ScannerOpened records a newly opened scan session.
func (m *Metrics) ScannerOpened() {
	m.ScannersOpen.Add(1)
}

// ScannerClosed records a closed scan session.
func (m *Metrics) ScannerClosed() {
	m.ScannersOpen.Add(-1)
}

// AverageOpLatency returns the average operation latency in microseconds.
func (m *Metrics) AverageOpLatency() float64 {
	count := m.OpLatencyCount.Load()
	if count == 0 {
		return 0
	}
	return float64(m.OpLatencySum.Load()) / float64(count)
}

// Server provides an HTTP server for Prometheus metrics.
type Server struct {
	config *config.MetricsConfig
	server *http.Server
	logger *logging.Logger
}

// NewServer creates a new metrics server.
func NewServer(cfg *config.MetricsConfig) *Server {
	return &Server{
		config: cfg,
		logger: logging.NewLogger("metrics"),
	}
}

// Start starts the metrics HTTP server.
func (s *Server) Start() error {
	if !s.config.Enabled {
		s.logger.Info("Metrics server disabled")
		return nil
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", s.handleMetrics)

	s.server = &http.Server{
		Addr:    s.config.Addr,
		Handler: mux,
	}

	go func() {
		s.logger.Info("Starting metrics server", "addr", s.config.Addr)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("Metrics server error", "error", err)
		}
	}()

	return nil
}

// Stop stops the metrics HTTP server.
func (s *Server) Stop() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.logger.Info("Stopping metrics server")
	return s.server.Shutdown(ctx)
}

// handleMetrics handles the /metrics endpoint in Prometheus format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	m := Get()
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	// Operation metrics
	fmt.Fprintf(w, "# HELP rowgate_ops_total Total operations issued\n")
	fmt.Fprintf(w, "# TYPE rowgate_ops_total counter\n")
	fmt.Fprintf(w, "rowgate_ops_total %d\n", m.OpsTotal.Load())

	fmt.Fprintf(w, "# HELP rowgate_ops_by_type_total Operations by type\n")
	fmt.Fprintf(w, "# TYPE rowgate_ops_by_type_total counter\n")
	fmt.Fprintf(w, "rowgate_ops_by_type_total{type=\"get\"} %d\n", m.OpsGet.Load())
	fmt.Fprintf(w, "rowgate_ops_by_type_total{type=\"put\"} %d\n", m.OpsPut.Load())
	fmt.Fprintf(w, "rowgate_ops_by_type_total{type=\"delete\"} %d\n", m.OpsDelete.Load())
	fmt.Fprintf(w, "rowgate_ops_by_type_total{type=\"increment\"} %d\n", m.OpsIncrement.Load())
	fmt.Fprintf(w, "rowgate_ops_by_type_total{type=\"cas\"} %d\n", m.OpsCAS.Load())
	fmt.Fprintf(w, "rowgate_ops_by_type_total{type=\"scan\"} %d\n", m.OpsScan.Load())
	fmt.Fprintf(w, "rowgate_ops_by_type_total{type=\"close\"} %d\n", m.OpsClose.Load())
	fmt.Fprintf(w, "rowgate_ops_by_type_total{type=\"flush\"} %d\n", m.OpsFlush.Load())

	fmt.Fprintf(w, "# HELP rowgate_ops_failed_total Failed operations\n")
	fmt.Fprintf(w, "# TYPE rowgate_ops_failed_total counter\n")
	fmt.Fprintf(w, "rowgate_ops_failed_total %d\n", m.OpsFailed.Load())

	// Operation latency
	fmt.Fprintf(w, "# HELP rowgate_op_latency_avg_microseconds Average operation latency\n")
	fmt.Fprintf(w, "# TYPE rowgate_op_latency_avg_microseconds gauge\n")
	fmt.Fprintf(w, "rowgate_op_latency_avg_microseconds %.2f\n", m.AverageOpLatency())

	// Scan session metrics
	fmt.Fprintf(w, "# HELP rowgate_scanners_open Currently open scan sessions\n")
	fmt.Fprintf(w, "# TYPE rowgate_scanners_open gauge\n")
	fmt.Fprintf(w, "rowgate_scanners_open %d\n", m.ScannersOpen.Load())

	// Permit pool metrics, sampled live
	type poolSample struct {
		name string
		pool *limits.Pool
	}
	var samples []poolSample
	m.pools.Range(func(key, value any) bool {
		samples = append(samples, poolSample{key.(string), value.(*limits.Pool)})
		return true
	})
	sort.Slice(samples, func(i, j int) bool { return samples[i].name < samples[j].name })

	fmt.Fprintf(w, "# HELP rowgate_permits_capacity Permit pool capacity\n")
	fmt.Fprintf(w, "# TYPE rowgate_permits_capacity gauge\n")
	for _, ps := range samples {
		fmt.Fprintf(w, "rowgate_permits_capacity{pool=%q} %d\n", ps.name, ps.pool.Capacity())
	}

	fmt.Fprintf(w, "# HELP rowgate_permits_in_use Permits currently held\n")
	fmt.Fprintf(w, "# TYPE rowgate_permits_in_use gauge\n")
	for _, ps := range samples {
		fmt.Fprintf(w, "rowgate_permits_in_use{pool=%q} %d\n", ps.name, ps.pool.InUse())
	}

	fmt.Fprintf(w, "# HELP rowgate_permit_over_releases_total Release calls with no matching acquire\n")
	fmt.Fprintf(w, "# TYPE rowgate_permit_over_releases_total counter\n")
	for _, ps := range samples {
		fmt.Fprintf(w, "rowgate_permit_over_releases_total{pool=%q} %d\n", ps.name, ps.pool.OverReleases())
	}

	// Health metrics
	healthy := 0
	if m.Healthy.Load() {
		healthy = 1
	}
	fmt.Fprintf(w, "# HELP rowgate_healthy Last store probe outcome (1=healthy, 0=unhealthy)\n")
	fmt.Fprintf(w, "# TYPE rowgate_healthy gauge\n")
	fmt.Fprintf(w, "rowgate_healthy %d\n", healthy)
}
