package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"rowgate/internal/config"
	"rowgate/internal/limits"
)

func TestRecordOpByType(t *testing.T) {
	m := Get()
	beforeTotal := m.OpsTotal.Load()
	beforeGet := m.OpsGet.Load()
	beforeScan := m.OpsScan.Load()

	m.RecordOp("get", time.Millisecond)
	m.RecordOp("scan", 2*time.Millisecond)

	if got := m.OpsTotal.Load() - beforeTotal; got != 2 {
		t.Errorf("OpsTotal delta = %d, want 2", got)
	}
	if got := m.OpsGet.Load() - beforeGet; got != 1 {
		t.Errorf("OpsGet delta = %d, want 1", got)
	}
	if got := m.OpsScan.Load() - beforeScan; got != 1 {
		t.Errorf("OpsScan delta = %d, want 1", got)
	}
}

func TestAverageOpLatency(t *testing.T) {
	var m Metrics
	if got := m.AverageOpLatency(); got != 0 {
		t.Errorf("empty metrics average = %f, want 0", got)
	}

	m.RecordOp("get", 100*time.Microsecond)
	m.RecordOp("get", 300*time.Microsecond)

	if got := m.AverageOpLatency(); got != 200 {
		t.Errorf("average = %f µs, want 200", got)
	}
}

func TestScannerGauge(t *testing.T) {
	var m Metrics
	m.ScannerOpened()
	m.ScannerOpened()
	m.ScannerClosed()

	if got := m.ScannersOpen.Load(); got != 1 {
		t.Errorf("ScannersOpen = %d, want 1", got)
	}
}

func TestMetricsEndpointSamplesPools(t *testing.T) {
	pool, err := limits.New(5)
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	pool.Acquire()
	pool.Acquire()
	Get().RegisterPool("scrape_test", pool)

	s := NewServer(&config.MetricsConfig{Enabled: true, Addr: ":0"})
	rec := httptest.NewRecorder()
	s.handleMetrics(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	for _, want := range []string{
		"rowgate_ops_total",
		"rowgate_permits_capacity{pool=\"scrape_test\"} 5",
		"rowgate_permits_in_use{pool=\"scrape_test\"} 2",
		"rowgate_permit_over_releases_total{pool=\"scrape_test\"} 0",
		"rowgate_scanners_open",
		"rowgate_healthy",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("scrape output missing %q", want)
		}
	}

	pool.Release()
	pool.Release()
}

func TestDisabledServerDoesNotListen(t *testing.T) {
	s := NewServer(&config.MetricsConfig{Enabled: false})
	if err := s.Start(); err != nil {
		t.Fatalf("disabled Start should be a no-op, got %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("Stop on a disabled server should be a no-op, got %v", err)
	}
}
