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
Package client defines the asynchronous row-store client capability and its
decorators.

Client Overview:
================

The underlying driver is fully asynchronous: every remote operation returns
a pending result handle immediately and settles later on the driver's
completion context. The decorators in this package wrap that capability
without changing its contract:

  - BoundedClient / BoundedRowScanner gate admission on a permit pool so the
    number of in-flight operations never exceeds a configured cap
  - MeteredClient records per-operation counts and latencies
  - ManagedClient adds process-lifecycle start/stop hooks

Decorators compose; a typical production stack is

	client.NewManagedClient(
		client.NewMeteredClient(
			client.NewBoundedClient(driver, pool)))
*/
package client

import (
	"golang.org/x/text/encoding"

	"rowgate/internal/async"
	"rowgate/internal/table"
)

// Client is the asynchronous row-store capability. Every remote operation
// returns a pending handle that settles exactly once; NewScanner is a
// local call that opens a scan session without issuing an RPC.
type Client interface {
	// EnsureTableExists settles successfully once the table is known to
	// exist, or with an error if it does not.
	EnsureTableExists(tbl []byte) *async.Deferred[async.Unit]

	// Get reads cells from a single row.
	Get(req *table.GetRequest) *async.Deferred[[]table.Cell]

	// Put writes one cell.
	Put(req *table.PutRequest) *async.Deferred[async.Unit]

	// Delete removes cells from a single row.
	Delete(req *table.DeleteRequest) *async.Deferred[async.Unit]

	// CompareAndSet writes the cell only if its current value equals
	// expected; settles with whether the write was applied. A nil expected
	// value means the cell must not exist.
	CompareAndSet(req *table.PutRequest, expected []byte) *async.Deferred[bool]

	// AtomicIncrement adds to a counter cell and settles with the new value.
	AtomicIncrement(req *table.IncrementRequest) *async.Deferred[int64]

	// Flush forces any buffered edits out to the store.
	Flush() *async.Deferred[async.Unit]

	// NewScanner opens a scan session on the table. The returned scanner
	// holds server-side cursor state; its configuration calls are local
	// until the first NextRows.
	NewScanner(tbl []byte) RowScanner

	// Shutdown flushes and releases the underlying connection. No further
	// operations may be issued once it settles.
	Shutdown() *async.Deferred[async.Unit]
}

// RowScanner is a cursor over a range of rows. Configuration setters are
// synchronous local mutations returning the scanner itself to facilitate
// chaining; NextRows, NextRowsN and Close issue remote calls and return
// pending handles. Cursor advancement is sequential: callers must not
// overlap NextRows calls on the same scanner.
type RowScanner interface {
	// SetStartKey sets the first key to scan from (inclusive).
	SetStartKey(key []byte) RowScanner

	// SetStopKey sets the key to scan until (exclusive).
	SetStopKey(key []byte) RowScanner

	// SetFamily restricts the scan to one column family.
	SetFamily(family []byte) RowScanner

	// SetQualifier restricts the scan to one qualifier.
	SetQualifier(qualifier []byte) RowScanner

	// SetKeyRegexp filters rows to keys matching the expression, decoded
	// as UTF-8.
	SetKeyRegexp(expr string) RowScanner

	// SetKeyRegexpWithCharset filters rows to keys matching the
	// expression after decoding each key with the given charset.
	SetKeyRegexpWithCharset(expr string, charset encoding.Encoding) RowScanner

	// SetServerBlockCache sets whether the scan populates the server-side
	// block cache.
	SetServerBlockCache(populate bool) RowScanner

	// SetMaxNumRows caps the rows fetched per batch.
	SetMaxNumRows(n int) RowScanner

	// SetMaxNumCells caps the cells fetched per batch.
	SetMaxNumCells(n int) RowScanner

	// SetMinTimestamp yields only cells at or above the timestamp.
	SetMinTimestamp(ts int64) RowScanner

	// MinTimestamp returns the configured minimum timestamp.
	MinTimestamp() int64

	// SetMaxTimestamp yields only cells below the timestamp.
	SetMaxTimestamp(ts int64) RowScanner

	// MaxTimestamp returns the configured maximum timestamp.
	MaxTimestamp() int64

	// SetTimeRange sets both timestamp bounds at once.
	SetTimeRange(minTS, maxTS int64) RowScanner

	// CurrentKey returns the key of the row the cursor last stopped at.
	CurrentKey() []byte

	// NextRows fetches the next batch of rows, up to the configured batch
	// caps. It settles with a nil batch once the scan is exhausted.
	NextRows() *async.Deferred[[]table.Row]

	// NextRowsN fetches the next batch of at most n rows.
	NextRowsN(n int) *async.Deferred[[]table.Row]

	// Close releases the cursor. The scanner is unusable once it settles.
	Close() *async.Deferred[async.Unit]
}
