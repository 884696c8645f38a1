package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	"rowgate/internal/table"
)

func TestAsyncClientRoundTrip(t *testing.T) {
	s := NewMemStore()
	c := testClient(t, s)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := c.Put(&table.PutRequest{
		Table: []byte("t"), Key: []byte("k"),
		Family: []byte("f"), Qualifier: []byte("q"), Value: []byte("v"),
	}).Wait(ctx)
	if err != nil {
		t.Fatalf("put failed: %v", err)
	}

	cells, err := c.Get(&table.GetRequest{Table: []byte("t"), Key: []byte("k")}).Wait(ctx)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if len(cells) != 1 || string(cells[0].Value) != "v" {
		t.Errorf("unexpected read back: %+v", cells)
	}
}

func TestAsyncClientReturnsPendingHandle(t *testing.T) {
	s := NewMemStore()
	s.CreateTable([]byte("t"))
	c := NewAsyncClient(s, WithLatency(100*time.Millisecond))
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		c.Shutdown().Wait(ctx)
	}()

	start := time.Now()
	d := c.EnsureTableExists([]byte("t"))
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("issuing the operation blocked for %v", elapsed)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := d.Wait(ctx); err != nil {
		t.Fatalf("operation failed: %v", err)
	}
}

func TestAsyncClientRejectsAfterShutdown(t *testing.T) {
	s := NewMemStore()
	s.CreateTable([]byte("t"))
	c := NewAsyncClient(s)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := c.Shutdown().Wait(ctx); err != nil {
		t.Fatalf("shutdown failed: %v", err)
	}

	if _, err := c.EnsureTableExists([]byte("t")).Wait(ctx); !errors.Is(err, ErrClientShutdown) {
		t.Errorf("expected ErrClientShutdown, got %v", err)
	}
	if _, err := c.Shutdown().Wait(ctx); !errors.Is(err, ErrClientShutdown) {
		t.Errorf("double shutdown: expected ErrClientShutdown, got %v", err)
	}
}

func TestShutdownWaitsForInflight(t *testing.T) {
	s := NewMemStore()
	s.CreateTable([]byte("t"))
	c := NewAsyncClient(s, WithLatency(100*time.Millisecond))

	op := c.EnsureTableExists([]byte("t"))
	shutdown := c.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := shutdown.Wait(ctx); err != nil {
		t.Fatalf("shutdown failed: %v", err)
	}

	if !op.Settled() {
		t.Error("shutdown settled before the in-flight operation")
	}
}

func TestConcurrentIncrements(t *testing.T) {
	s := NewMemStore()
	c := testClient(t, s)

	const workers = 8
	const perWorker = 25

	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for j := 0; j < perWorker; j++ {
				req := &table.IncrementRequest{
					Table: []byte("t"), Key: []byte("counter"),
					Family: []byte("f"), Qualifier: []byte("n"),
					Amount: 1,
				}
				if _, err := c.AtomicIncrement(req).Wait(ctx); err != nil {
					return fmt.Errorf("increment failed: %w", err)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}

	v, err := s.Increment(&table.IncrementRequest{
		Table: []byte("t"), Key: []byte("counter"),
		Family: []byte("f"), Qualifier: []byte("n"),
		Amount: 0,
	})
	if err != nil {
		t.Fatalf("final read failed: %v", err)
	}
	if want := int64(workers * perWorker); v != want {
		t.Errorf("counter = %d, want %d (lost updates)", v, want)
	}
}
