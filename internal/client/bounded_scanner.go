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
	"golang.org/x/text/encoding"

	"rowgate/internal/async"
	"rowgate/internal/limits"
	"rowgate/internal/table"
)

// BoundedRowScanner constrains the scanner's remote calls with a permit
// pool. Configuration setters and getters are local cursor state and are
// forwarded directly without touching the pool; NextRows, NextRowsN and
// Close each hold one permit from admission to settlement.
//
// Obtain an instance through BoundedClient.NewScanner, which hands the
// scanner the client's pool.
type BoundedRowScanner struct {
	scanner RowScanner
	pool    *limits.Pool
}

// NewBoundedRowScanner wraps the given scanner, constraining its cursor
// operations on the given pool.
func NewBoundedRowScanner(s RowScanner, pool *limits.Pool) *BoundedRowScanner {
	return &BoundedRowScanner{scanner: s, pool: pool}
}

// SetStartKey sets the first key to scan from (inclusive).
func (s *BoundedRowScanner) SetStartKey(key []byte) RowScanner {
	s.scanner.SetStartKey(key)
	return s
}

// SetStopKey sets the key to scan until (exclusive).
func (s *BoundedRowScanner) SetStopKey(key []byte) RowScanner {
	s.scanner.SetStopKey(key)
	return s
}

// SetFamily restricts the scan to one column family.
func (s *BoundedRowScanner) SetFamily(family []byte) RowScanner {
	s.scanner.SetFamily(family)
	return s
}

// SetQualifier restricts the scan to one qualifier.
func (s *BoundedRowScanner) SetQualifier(qualifier []byte) RowScanner {
	s.scanner.SetQualifier(qualifier)
	return s
}

// SetKeyRegexp filters rows to keys matching the expression.
func (s *BoundedRowScanner) SetKeyRegexp(expr string) RowScanner {
	s.scanner.SetKeyRegexp(expr)
	return s
}

// SetKeyRegexpWithCharset filters rows to keys matching the expression,
// decoding keys with the given charset.
func (s *BoundedRowScanner) SetKeyRegexpWithCharset(expr string, charset encoding.Encoding) RowScanner {
	s.scanner.SetKeyRegexpWithCharset(expr, charset)
	return s
}

// SetServerBlockCache sets whether the scan populates the server-side
// block cache.
func (s *BoundedRowScanner) SetServerBlockCache(populate bool) RowScanner {
	s.scanner.SetServerBlockCache(populate)
	return s
}

// SetMaxNumRows caps the rows fetched per batch.
func (s *BoundedRowScanner) SetMaxNumRows(n int) RowScanner {
	s.scanner.SetMaxNumRows(n)
	return s
}

// SetMaxNumCells caps the cells fetched per batch.
func (s *BoundedRowScanner) SetMaxNumCells(n int) RowScanner {
	s.scanner.SetMaxNumCells(n)
	return s
}

// SetMinTimestamp yields only cells at or above the timestamp.
func (s *BoundedRowScanner) SetMinTimestamp(ts int64) RowScanner {
	s.scanner.SetMinTimestamp(ts)
	return s
}

// MinTimestamp returns the configured minimum timestamp.
func (s *BoundedRowScanner) MinTimestamp() int64 {
	return s.scanner.MinTimestamp()
}

// SetMaxTimestamp yields only cells below the timestamp.
func (s *BoundedRowScanner) SetMaxTimestamp(ts int64) RowScanner {
	s.scanner.SetMaxTimestamp(ts)
	return s
}

// MaxTimestamp returns the configured maximum timestamp.
func (s *BoundedRowScanner) MaxTimestamp() int64 {
	return s.scanner.MaxTimestamp()
}

// SetTimeRange sets both timestamp bounds at once.
func (s *BoundedRowScanner) SetTimeRange(minTS, maxTS int64) RowScanner {
	s.scanner.SetTimeRange(minTS, maxTS)
	return s
}

// CurrentKey returns the key of the row the cursor last stopped at.
func (s *BoundedRowScanner) CurrentKey() []byte {
	return s.scanner.CurrentKey()
}

// NextRows fetches the next batch of rows under a permit.
func (s *BoundedRowScanner) NextRows() *async.Deferred[[]table.Row] {
	return limits.Admit(s.pool, s.scanner.NextRows)
}

// NextRowsN fetches the next batch of at most n rows under a permit.
func (s *BoundedRowScanner) NextRowsN(n int) *async.Deferred[[]table.Row] {
	return limits.Admit(s.pool, func() *async.Deferred[[]table.Row] {
		return s.scanner.NextRowsN(n)
	})
}

// Close releases the cursor under a permit.
func (s *BoundedRowScanner) Close() *async.Deferred[async.Unit] {
	return limits.Admit(s.pool, s.scanner.Close)
}
