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
	"time"

	"golang.org/x/text/encoding"

	"rowgate/internal/async"
	"rowgate/internal/metrics"
	"rowgate/internal/table"
)

// MeteredClient records per-operation counts, failures and latency for any
// client. Latency is measured from the call (after any admission wait in a
// wrapped BoundedClient) to settlement. The observer never alters the
// operation's outcome.
type MeteredClient struct {
	client Client
	stats  *metrics.Metrics
}

// NewMeteredClient wraps the given client with metrics recording.
func NewMeteredClient(c Client) *MeteredClient {
	return &MeteredClient{client: c, stats: metrics.Get()}
}

// observe attaches a recording callback to the pending handle.
func observe[T any](d *async.Deferred[T], stats *metrics.Metrics, opType string, start time.Time) *async.Deferred[T] {
	return d.AddBoth(func(value T, err error) (T, error) {
		stats.RecordOp(opType, time.Since(start))
		if err != nil {
			stats.RecordOpError()
		}
		return value, err
	})
}

// EnsureTableExists checks the table, recording as a get-class probe.
func (c *MeteredClient) EnsureTableExists(tbl []byte) *async.Deferred[async.Unit] {
	return observe(c.client.EnsureTableExists(tbl), c.stats, "get", time.Now())
}

// Get reads a row, recording count and latency.
func (c *MeteredClient) Get(req *table.GetRequest) *async.Deferred[[]table.Cell] {
	return observe(c.client.Get(req), c.stats, "get", time.Now())
}

// Put writes a cell, recording count and latency.
func (c *MeteredClient) Put(req *table.PutRequest) *async.Deferred[async.Unit] {
	return observe(c.client.Put(req), c.stats, "put", time.Now())
}

// Delete removes cells, recording count and latency.
func (c *MeteredClient) Delete(req *table.DeleteRequest) *async.Deferred[async.Unit] {
	return observe(c.client.Delete(req), c.stats, "delete", time.Now())
}

// CompareAndSet conditionally writes a cell, recording count and latency.
func (c *MeteredClient) CompareAndSet(req *table.PutRequest, expected []byte) *async.Deferred[bool] {
	return observe(c.client.CompareAndSet(req, expected), c.stats, "cas", time.Now())
}

// AtomicIncrement bumps a counter, recording count and latency.
func (c *MeteredClient) AtomicIncrement(req *table.IncrementRequest) *async.Deferred[int64] {
	return observe(c.client.AtomicIncrement(req), c.stats, "increment", time.Now())
}

// Flush flushes buffered edits, recording count and latency.
func (c *MeteredClient) Flush() *async.Deferred[async.Unit] {
	return observe(c.client.Flush(), c.stats, "flush", time.Now())
}

// NewScanner opens a scan session wrapped with metrics recording.
func (c *MeteredClient) NewScanner(tbl []byte) RowScanner {
	c.stats.ScannerOpened()
	return &meteredRowScanner{scanner: c.client.NewScanner(tbl), stats: c.stats}
}

// Shutdown releases the underlying connection, recording count and latency.
func (c *MeteredClient) Shutdown() *async.Deferred[async.Unit] {
	return observe(c.client.Shutdown(), c.stats, "flush", time.Now())
}

// meteredRowScanner records scan batches and cursor closes.
type meteredRowScanner struct {
	scanner RowScanner
	stats   *metrics.Metrics
}

func (s *meteredRowScanner) SetStartKey(key []byte) RowScanner {
	s.scanner.SetStartKey(key)
	return s
}

func (s *meteredRowScanner) SetStopKey(key []byte) RowScanner {
	s.scanner.SetStopKey(key)
	return s
}

func (s *meteredRowScanner) SetFamily(family []byte) RowScanner {
	s.scanner.SetFamily(family)
	return s
}

func (s *meteredRowScanner) SetQualifier(qualifier []byte) RowScanner {
	s.scanner.SetQualifier(qualifier)
	return s
}

func (s *meteredRowScanner) SetKeyRegexp(expr string) RowScanner {
	s.scanner.SetKeyRegexp(expr)
	return s
}

func (s *meteredRowScanner) SetKeyRegexpWithCharset(expr string, charset encoding.Encoding) RowScanner {
	s.scanner.SetKeyRegexpWithCharset(expr, charset)
	return s
}

func (s *meteredRowScanner) SetServerBlockCache(populate bool) RowScanner {
	s.scanner.SetServerBlockCache(populate)
	return s
}

func (s *meteredRowScanner) SetMaxNumRows(n int) RowScanner {
	s.scanner.SetMaxNumRows(n)
	return s
}

func (s *meteredRowScanner) SetMaxNumCells(n int) RowScanner {
	s.scanner.SetMaxNumCells(n)
	return s
}

func (s *meteredRowScanner) SetMinTimestamp(ts int64) RowScanner {
	s.scanner.SetMinTimestamp(ts)
	return s
}

func (s *meteredRowScanner) MinTimestamp() int64 {
	return s.scanner.MinTimestamp()
}

func (s *meteredRowScanner) SetMaxTimestamp(ts int64) RowScanner {
	s.scanner.SetMaxTimestamp(ts)
	return s
}

func (s *meteredRowScanner) MaxTimestamp() int64 {
	return s.scanner.MaxTimestamp()
}

func (s *meteredRowScanner) SetTimeRange(minTS, maxTS int64) RowScanner {
	s.scanner.SetTimeRange(minTS, maxTS)
	return s
}

func (s *meteredRowScanner) CurrentKey() []byte {
	return s.scanner.CurrentKey()
}

func (s *meteredRowScanner) NextRows() *async.Deferred[[]table.Row] {
	return observe(s.scanner.NextRows(), s.stats, "scan", time.Now())
}

func (s *meteredRowScanner) NextRowsN(n int) *async.Deferred[[]table.Row] {
	return observe(s.scanner.NextRowsN(n), s.stats, "scan", time.Now())
}

func (s *meteredRowScanner) Close() *async.Deferred[async.Unit] {
	d := observe(s.scanner.Close(), s.stats, "close", time.Now())
	return d.AddBoth(func(v async.Unit, err error) (async.Unit, error) {
		s.stats.ScannerClosed()
		return v, err
	})
}
