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

package store

import (
	"sync"
	"sync/atomic"
	"time"

	"rowgate/internal/async"
	"rowgate/internal/client"
	"rowgate/internal/logging"
	"rowgate/internal/table"
)

// AsyncClient exposes a MemStore through the asynchronous client contract:
// every operation returns a pending handle immediately and settles from a
// driver goroutine. An injected latency widens the settlement window,
// which the shell and bench use to make admission control observable.
type AsyncClient struct {
	store     *MemStore
	latency   time.Duration
	batchRows int
	logger    *logging.Logger

	closed   atomic.Bool
	inflight sync.WaitGroup
}

// Option configures an AsyncClient.
type Option func(*AsyncClient)

// WithLatency delays every operation's settlement by d.
func WithLatency(d time.Duration) Option {
	return func(c *AsyncClient) { c.latency = d }
}

// WithBatchRows sets the default rows per scan batch.
func WithBatchRows(n int) Option {
	return func(c *AsyncClient) { c.batchRows = n }
}

// NewAsyncClient creates an asynchronous driver over the store.
func NewAsyncClient(st *MemStore, opts ...Option) *AsyncClient {
	c := &AsyncClient{
		store:     st,
		batchRows: 128,
		logger:    logging.NewLogger("driver"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// dispatch runs op on a driver goroutine and settles the returned handle
// with its outcome. Operations issued after shutdown settle immediately
// with ErrClientShutdown; the handle is still returned, per the
// asynchronous contract.
func dispatch[T any](c *AsyncClient, op func() (T, error)) *async.Deferred[T] {
	d := async.New[T]()
	if c.closed.Load() {
		d.Reject(ErrClientShutdown)
		return d
	}

	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		if c.latency > 0 {
			time.Sleep(c.latency)
		}
		v, err := op()
		if err != nil {
			d.Reject(err)
			return
		}
		d.Resolve(v)
	}()
	return d
}

// EnsureTableExists settles successfully once the table is known to exist.
func (c *AsyncClient) EnsureTableExists(tbl []byte) *async.Deferred[async.Unit] {
	return dispatch(c, func() (async.Unit, error) {
		return async.Unit{}, c.store.EnsureTable(tbl)
	})
}

// Get reads cells from a single row.
func (c *AsyncClient) Get(req *table.GetRequest) *async.Deferred[[]table.Cell] {
	return dispatch(c, func() ([]table.Cell, error) {
		return c.store.Get(req)
	})
}

// Put writes one cell.
func (c *AsyncClient) Put(req *table.PutRequest) *async.Deferred[async.Unit] {
	return dispatch(c, func() (async.Unit, error) {
		return async.Unit{}, c.store.Put(req)
	})
}

// Delete removes cells from a single row.
func (c *AsyncClient) Delete(req *table.DeleteRequest) *async.Deferred[async.Unit] {
	return dispatch(c, func() (async.Unit, error) {
		return async.Unit{}, c.store.Delete(req)
	})
}

// CompareAndSet writes the cell only if its current value equals expected.
func (c *AsyncClient) CompareAndSet(req *table.PutRequest, expected []byte) *async.Deferred[bool] {
	return dispatch(c, func() (bool, error) {
		return c.store.CompareAndSet(req, expected)
	})
}

// AtomicIncrement adds to a counter cell and settles with the new value.
func (c *AsyncClient) AtomicIncrement(req *table.IncrementRequest) *async.Deferred[int64] {
	return dispatch(c, func() (int64, error) {
		return c.store.Increment(req)
	})
}

// Flush is a no-op for the in-memory store; edits are never buffered.
func (c *AsyncClient) Flush() *async.Deferred[async.Unit] {
	return dispatch(c, func() (async.Unit, error) {
		return async.Unit{}, nil
	})
}

// NewScanner opens a scan session on the table.
func (c *AsyncClient) NewScanner(tbl []byte) client.RowScanner {
	return newMemScanner(c, tbl)
}

// Shutdown stops admitting new operations and settles once every in-flight
// operation has settled.
func (c *AsyncClient) Shutdown() *async.Deferred[async.Unit] {
	d := async.New[async.Unit]()
	if c.closed.Swap(true) {
		d.Reject(ErrClientShutdown)
		return d
	}

	c.logger.Info("Driver shutting down")
	go func() {
		c.inflight.Wait()
		d.Resolve(async.Unit{})
	}()
	return d
}
