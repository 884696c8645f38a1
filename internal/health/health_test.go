package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"rowgate/internal/limits"
	"rowgate/internal/metrics"
	"rowgate/internal/store"
)

func TestRunChecksAggregatesStatus(t *testing.T) {
	tests := []struct {
		name     string
		statuses []Status
		want     Status
	}{
		{name: "all healthy", statuses: []Status{StatusHealthy, StatusHealthy}, want: StatusHealthy},
		{name: "one degraded", statuses: []Status{StatusHealthy, StatusDegraded}, want: StatusDegraded},
		{name: "one unhealthy", statuses: []Status{StatusDegraded, StatusUnhealthy}, want: StatusUnhealthy},
		{name: "no checks", statuses: nil, want: StatusHealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := NewChecker("test")
			for i, status := range tt.statuses {
				s := status
				checker.RegisterCheck(string(rune('a'+i)), func() CheckResult {
					return CheckResult{Status: s}
				})
			}

			response := checker.RunChecks()
			if response.Status != tt.want {
				t.Errorf("overall status = %s, want %s", response.Status, tt.want)
			}
			if len(response.Checks) != len(tt.statuses) {
				t.Errorf("got %d check results, want %d", len(response.Checks), len(tt.statuses))
			}
		})
	}
}

func TestRunChecksMirrorsIntoMetrics(t *testing.T) {
	checker := NewChecker("test")
	checker.RegisterCheck("failing", func() CheckResult {
		return CheckResult{Status: StatusUnhealthy, Message: "down"}
	})
	checker.RunChecks()
	if metrics.Get().Healthy.Load() {
		t.Error("unhealthy verdict not mirrored into metrics")
	}

	checker = NewChecker("test")
	checker.RegisterCheck("passing", func() CheckResult {
		return CheckResult{Status: StatusHealthy}
	})
	checker.RunChecks()
	if !metrics.Get().Healthy.Load() {
		t.Error("healthy verdict not mirrored into metrics")
	}
}

func TestStoreProbeCheck(t *testing.T) {
	backing := store.NewMemStore()
	backing.CreateTable([]byte("probe"))
	c := store.NewAsyncClient(backing)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		c.Shutdown().Wait(ctx)
	}()

	check := StoreProbeCheck(c, "probe", time.Second)
	if result := check(); result.Status != StatusHealthy {
		t.Errorf("probe against existing table: %s (%s)", result.Status, result.Message)
	}

	check = StoreProbeCheck(c, "no_such_table", time.Second)
	if result := check(); result.Status != StatusUnhealthy {
		t.Errorf("probe against missing table should be unhealthy, got %s", result.Status)
	}
}

func TestPoolSaturationCheck(t *testing.T) {
	pool, err := limits.New(2)
	if err != nil {
		t.Fatalf("pool: %v", err)
	}

	check := PoolSaturationCheck(pool)
	if result := check(); result.Status != StatusHealthy {
		t.Errorf("idle pool should be healthy, got %s", result.Status)
	}

	pool.Acquire()
	pool.Acquire()
	if result := check(); result.Status != StatusDegraded {
		t.Errorf("saturated pool should be degraded, got %s", result.Status)
	}

	pool.Release()
	pool.Release()
}

func TestOverReleaseCheck(t *testing.T) {
	pool, _ := limits.New(1)
	check := OverReleaseCheck(pool)

	if result := check(); result.Status != StatusHealthy {
		t.Errorf("clean pool should be healthy, got %s", result.Status)
	}

	pool.Release()
	if result := check(); result.Status != StatusDegraded {
		t.Errorf("over-released pool should be degraded, got %s", result.Status)
	}
}

func TestDiscoveryCheck(t *testing.T) {
	check := DiscoveryCheck(func() (bool, string) { return true, "3 nodes" })
	if result := check(); result.Status != StatusHealthy || result.Message != "3 nodes" {
		t.Errorf("unexpected result: %+v", result)
	}

	check = DiscoveryCheck(func() (bool, string) { return false, "no nodes" })
	if result := check(); result.Status != StatusDegraded {
		t.Errorf("failed discovery should be degraded, got %s", result.Status)
	}
}

func TestIsHealthy(t *testing.T) {
	checker := NewChecker("test")
	if !checker.IsHealthy() {
		t.Error("checker with no checks should be healthy")
	}

	checker.RegisterCheck("broken", func() CheckResult {
		return CheckResult{Status: StatusUnhealthy, Message: errors.New("nope").Error()}
	})
	if checker.IsHealthy() {
		t.Error("checker with an unhealthy check should not be healthy")
	}
}
