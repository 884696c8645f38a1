package async

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestResolveDeliversValue(t *testing.T) {
	d := New[int]()
	go d.Resolve(42)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	v, err := d.Wait(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 42 {
		t.Errorf("expected 42, got %d", v)
	}
}

func TestRejectDeliversError(t *testing.T) {
	boom := errors.New("boom")
	d := New[string]()
	d.Reject(boom)

	ctx := context.Background()
	_, err := d.Wait(ctx)
	if !errors.Is(err, boom) {
		t.Errorf("expected boom, got %v", err)
	}
}

func TestSecondSettlementIgnored(t *testing.T) {
	d := New[int]()
	d.Resolve(1)
	d.Resolve(2)
	d.Reject(errors.New("late"))

	v, err := d.Result()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 1 {
		t.Errorf("first settlement should win, got %d", v)
	}
}

func TestResolvedAndFailedConstructors(t *testing.T) {
	v, err := Resolved(7).Result()
	if err != nil || v != 7 {
		t.Errorf("Resolved: got (%d, %v)", v, err)
	}

	boom := errors.New("boom")
	_, err = Failed[int](boom).Result()
	if !errors.Is(err, boom) {
		t.Errorf("Failed: got %v", err)
	}
}

func TestCallbackRunsOnSettle(t *testing.T) {
	d := New[int]()
	var got atomic.Int64

	d.AddBoth(func(v int, err error) (int, error) {
		got.Store(int64(v))
		return v, err
	})

	d.Resolve(9)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := d.Wait(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Load() != 9 {
		t.Errorf("callback saw %d, want 9", got.Load())
	}
}

func TestCallbackAfterSettleRunsInline(t *testing.T) {
	d := Resolved(3)
	ran := false

	d.AddBoth(func(v int, err error) (int, error) {
		ran = true
		return v, err
	})

	if !ran {
		t.Error("callback on a settled deferred should run immediately")
	}
}

func TestCallbacksChainTransformations(t *testing.T) {
	d := New[int]()
	out := d.AddBoth(func(v int, err error) (int, error) {
		return v * 2, err
	}).AddBoth(func(v int, err error) (int, error) {
		return v + 1, err
	})

	d.Resolve(10)

	v, err := out.Result()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 21 {
		t.Errorf("expected 21 after chain, got %d", v)
	}
}

func TestCallbackCanConvertErrorToValue(t *testing.T) {
	d := New[int]()
	out := d.AddBoth(func(v int, err error) (int, error) {
		if err != nil {
			return -1, nil
		}
		return v, nil
	})

	d.Reject(errors.New("boom"))

	v, err := out.Result()
	if err != nil {
		t.Fatalf("callback should have swallowed the error, got %v", err)
	}
	if v != -1 {
		t.Errorf("expected fallback -1, got %d", v)
	}
}

func TestCallbackAddedDuringSettleStillRuns(t *testing.T) {
	d := New[int]()
	var second atomic.Bool

	d.AddBoth(func(v int, err error) (int, error) {
		d.AddBoth(func(v int, err error) (int, error) {
			second.Store(true)
			return v, err
		})
		return v, err
	})

	d.Resolve(1)

	deadline := time.Now().Add(time.Second)
	for !second.Load() {
		if time.Now().After(deadline) {
			t.Fatal("callback added during settlement never ran")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestWaitRespectsContext(t *testing.T) {
	d := New[int]()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := d.Wait(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestDoneChannelCloses(t *testing.T) {
	d := New[Unit]()

	select {
	case <-d.Done():
		t.Fatal("done channel closed before settlement")
	default:
	}

	d.Resolve(Unit{})

	select {
	case <-d.Done():
	case <-time.After(time.Second):
		t.Fatal("done channel never closed")
	}
}

func TestSettledReporting(t *testing.T) {
	d := New[int]()
	if d.Settled() {
		t.Error("fresh deferred should not be settled")
	}
	d.Resolve(1)
	if !d.Settled() {
		t.Error("resolved deferred should be settled")
	}
}

func TestConcurrentSettlersOneWins(t *testing.T) {
	d := New[int]()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			d.Resolve(n)
		}(i)
	}
	wg.Wait()

	v, err := d.Result()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v < 0 || v >= 50 {
		t.Errorf("winning value out of range: %d", v)
	}
}

func TestConcurrentCallbacksAllRun(t *testing.T) {
	d := New[int]()
	var ran atomic.Int64
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.AddBoth(func(v int, err error) (int, error) {
				ran.Add(1)
				return v, err
			})
		}()
	}
	wg.Wait()
	d.Resolve(1)

	deadline := time.Now().Add(time.Second)
	for ran.Load() != 20 {
		if time.Now().After(deadline) {
			t.Fatalf("only %d of 20 callbacks ran", ran.Load())
		}
		time.Sleep(time.Millisecond)
	}
}
