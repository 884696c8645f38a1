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

package client

import (
	"rowgate/internal/async"
	"rowgate/internal/limits"
	"rowgate/internal/table"
)

// BoundedClient constrains the number of concurrent in-flight requests to
// the underlying client with a permit pool. Each remote operation acquires
// a permit before it is issued, blocking the calling goroutine until one is
// available, and releases it when the operation settles. The pending handle
// returned to the caller is the delegate's own, unchanged.
//
// Scanners opened through NewScanner share the client's pool, so scan
// batches count against the same in-flight cap as point operations.
type BoundedClient struct {
	client Client
	pool   *limits.Pool
}

// NewBoundedClient wraps the given client with admission control on the
// given pool. The pool should be owned by this client; sharing it across
// unrelated clients throttles them jointly.
func NewBoundedClient(c Client, pool *limits.Pool) *BoundedClient {
	return &BoundedClient{client: c, pool: pool}
}

// Pool returns the permit pool gating this client.
func (c *BoundedClient) Pool() *limits.Pool {
	return c.pool
}

// EnsureTableExists checks the table under a permit.
func (c *BoundedClient) EnsureTableExists(tbl []byte) *async.Deferred[async.Unit] {
	return limits.Admit(c.pool, func() *async.Deferred[async.Unit] {
		return c.client.EnsureTableExists(tbl)
	})
}

// Get reads a row under a permit.
func (c *BoundedClient) Get(req *table.GetRequest) *async.Deferred[[]table.Cell] {
	return limits.Admit(c.pool, func() *async.Deferred[[]table.Cell] {
		return c.client.Get(req)
	})
}

// Put writes a cell under a permit.
func (c *BoundedClient) Put(req *table.PutRequest) *async.Deferred[async.Unit] {
	return limits.Admit(c.pool, func() *async.Deferred[async.Unit] {
		return c.client.Put(req)
	})
}

// Delete removes cells under a permit.
func (c *BoundedClient) Delete(req *table.DeleteRequest) *async.Deferred[async.Unit] {
	return limits.Admit(c.pool, func() *async.Deferred[async.Unit] {
		return c.client.Delete(req)
	})
}

// CompareAndSet conditionally writes a cell under a permit.
func (c *BoundedClient) CompareAndSet(req *table.PutRequest, expected []byte) *async.Deferred[bool] {
	return limits.Admit(c.pool, func() *async.Deferred[bool] {
		return c.client.CompareAndSet(req, expected)
	})
}

// AtomicIncrement bumps a counter under a permit.
func (c *BoundedClient) AtomicIncrement(req *table.IncrementRequest) *async.Deferred[int64] {
	return limits.Admit(c.pool, func() *async.Deferred[int64] {
		return c.client.AtomicIncrement(req)
	})
}

// Flush flushes buffered edits under a permit.
func (c *BoundedClient) Flush() *async.Deferred[async.Unit] {
	return limits.Admit(c.pool, func() *async.Deferred[async.Unit] {
		return c.client.Flush()
	})
}

// NewScanner opens a scan session. Opening is a local call and takes no
// permit; the returned scanner's NextRows and Close are gated on this
// client's pool.
func (c *BoundedClient) NewScanner(tbl []byte) RowScanner {
	return NewBoundedRowScanner(c.client.NewScanner(tbl), c.pool)
}

// Shutdown releases the underlying connection under a permit, so it queues
// behind operations already admitted.
func (c *BoundedClient) Shutdown() *async.Deferred[async.Unit] {
	return limits.Admit(c.pool, func() *async.Deferred[async.Unit] {
		return c.client.Shutdown()
	})
}
