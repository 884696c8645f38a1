package client

import (
	"errors"
	"testing"

	"rowgate/internal/limits"
	"rowgate/internal/metrics"
	"rowgate/internal/table"
)

var errBoom = errors.New("boom")

// The metrics registry is process-global, so these tests assert on deltas
// rather than absolute counter values.

func TestMeteredRecordsOps(t *testing.T) {
	pool, _ := limits.New(4)
	fake := newFakeClient()
	metered := NewMeteredClient(NewBoundedClient(fake, pool))

	m := metrics.Get()
	beforeTotal := m.OpsTotal.Load()
	beforePuts := m.OpsPut.Load()

	d := metered.Put(&table.PutRequest{Table: []byte("t"), Key: []byte("k")})
	fake.settleOne(t)
	<-d.Done()

	if got := m.OpsTotal.Load() - beforeTotal; got != 1 {
		t.Errorf("OpsTotal delta = %d, want 1", got)
	}
	if got := m.OpsPut.Load() - beforePuts; got != 1 {
		t.Errorf("OpsPut delta = %d, want 1", got)
	}
}

func TestMeteredRecordsFailures(t *testing.T) {
	pool, _ := limits.New(4)
	fake := newFakeClient()
	fake.getErr = errBoom
	metered := NewMeteredClient(NewBoundedClient(fake, pool))

	m := metrics.Get()
	before := m.OpsFailed.Load()

	d := metered.Get(&table.GetRequest{Table: []byte("t"), Key: []byte("k")})
	<-d.Done()

	if got := m.OpsFailed.Load() - before; got != 1 {
		t.Errorf("OpsFailed delta = %d, want 1", got)
	}
}

func TestMeteredDoesNotAlterOutcome(t *testing.T) {
	pool, _ := limits.New(4)
	fake := newFakeClient()
	metered := NewMeteredClient(NewBoundedClient(fake, pool))

	d := metered.AtomicIncrement(&table.IncrementRequest{
		Table: []byte("t"), Key: []byte("k"),
		Family: []byte("f"), Qualifier: []byte("q"), Amount: 1,
	})
	<-d.Done()

	v, err := d.Result()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 1 {
		t.Errorf("metered layer altered the value: %d", v)
	}
}

func TestMeteredScannerGauge(t *testing.T) {
	pool, _ := limits.New(4)
	fake := newFakeClient()
	metered := NewMeteredClient(NewBoundedClient(fake, pool))

	m := metrics.Get()
	before := m.ScannersOpen.Load()

	scanner := metered.NewScanner([]byte("t"))
	if got := m.ScannersOpen.Load() - before; got != 1 {
		t.Fatalf("ScannersOpen delta after open = %d, want 1", got)
	}

	d := scanner.Close()
	fake.settleOne(t)
	<-d.Done()

	if got := m.ScannersOpen.Load() - before; got != 0 {
		t.Errorf("ScannersOpen delta after close = %d, want 0", got)
	}
}
