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
Package store provides an in-memory row store and an asynchronous driver
over it.

Store Overview:
===============

MemStore holds tables of rows keyed by opaque byte strings, each row a set
of (family, qualifier) addressed cells with millisecond timestamps. Row
keys are kept sorted, so scans walk the table in key order with a cursor
that survives across batches.

AsyncClient adapts MemStore to the asynchronous client contract: every
operation returns a pending handle immediately and settles from a driver
goroutine, optionally after an injected latency. It is the reference
implementation of the client capability wrapped by the admission-control
decorators, and what the shell, bench and tests run against.
*/
package store

import (
	"bytes"
	"encoding/binary"
	"sort"
	"sync"

	"rowgate/internal/errors"
	"rowgate/internal/table"
)

// Sentinel errors reported by the store. They cross the client decorators
// unchanged.
var (
	ErrTableNotFound  = errors.New(errors.ErrCodeTableNotFound, errors.CategoryStore, "table not found")
	ErrNotCounter     = errors.New(errors.ErrCodeNotCounter, errors.CategoryStore, "cell is not a counter")
	ErrBadRegexp      = errors.New(errors.ErrCodeBadRegexp, errors.CategoryStore, "invalid key regexp")
	ErrClientShutdown = errors.New(errors.ErrCodeClientShutdown, errors.CategoryConnection, "client has been shut down")
	ErrScannerClosed  = errors.New(errors.ErrCodeScannerClosed, errors.CategoryConnection, "scanner is closed")
)

// MemStore is an in-memory multi-table row store.
type MemStore struct {
	mu     sync.RWMutex
	tables map[string]*memTable
}

// memTable holds one table's rows. keys mirrors the rows map in sorted
// order so scans can walk it without re-sorting.
type memTable struct {
	rows map[string]table.Row
	keys []string
}

// NewMemStore creates an empty store.
func NewMemStore() *MemStore {
	return &MemStore{tables: make(map[string]*memTable)}
}

// CreateTable creates the table if it does not already exist.
func (s *MemStore) CreateTable(tbl []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.table(string(tbl))
}

// EnsureTable returns an error if the table does not exist.
func (s *MemStore) EnsureTable(tbl []byte) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.tables[string(tbl)]; !ok {
		return errors.Wrap(errors.ErrCodeTableNotFound, errors.CategoryStore, string(tbl), ErrTableNotFound)
	}
	return nil
}

// table returns the named table, creating it if absent. Caller holds mu.
func (s *MemStore) table(name string) *memTable {
	t, ok := s.tables[name]
	if !ok {
		t = &memTable{rows: make(map[string]table.Row)}
		s.tables[name] = t
	}
	return t
}

// Get reads cells from a single row. A missing row yields an empty result,
// not an error; a missing table is an error.
func (s *MemStore) Get(req *table.GetRequest) ([]table.Cell, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tables[string(req.Table)]
	if !ok {
		return nil, errors.Wrap(errors.ErrCodeTableNotFound, errors.CategoryStore, string(req.Table), ErrTableNotFound)
	}

	row := t.rows[string(req.Key)]
	result := make([]table.Cell, 0, len(row))
	for _, c := range row {
		if !cellSelected(c, req.Family, req.Qualifier) {
			continue
		}
		result = append(result, c)
	}
	return result, nil
}

// Put writes one cell, creating the table and row as needed. Writes are
// last-write-wins per (family, qualifier).
func (s *MemStore) Put(req *table.PutRequest) error {
	ts := req.Timestamp
	if ts == 0 {
		ts = table.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.table(string(req.Table))
	t.putCell(string(req.Key), table.Cell{
		Key:       append([]byte(nil), req.Key...),
		Family:    append([]byte(nil), req.Family...),
		Qualifier: append([]byte(nil), req.Qualifier...),
		Value:     append([]byte(nil), req.Value...),
		Timestamp: ts,
	})
	return nil
}

// Delete removes cells from a single row. A nil family removes the whole
// row; deleting from a missing table or row is a no-op.
func (s *MemStore) Delete(req *table.DeleteRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tables[string(req.Table)]
	if !ok {
		return nil
	}

	key := string(req.Key)
	row, ok := t.rows[key]
	if !ok {
		return nil
	}

	if req.Family == nil {
		t.removeRow(key)
		return nil
	}

	kept := row[:0]
	for _, c := range row {
		if cellSelected(c, req.Family, req.Qualifier) {
			continue
		}
		kept = append(kept, c)
	}
	if len(kept) == 0 {
		t.removeRow(key)
		return nil
	}
	t.rows[key] = kept
	return nil
}

// CompareAndSet writes the cell only if its current value equals expected.
// A nil expected value requires the cell to be absent. Returns whether the
// write was applied.
func (s *MemStore) CompareAndSet(req *table.PutRequest, expected []byte) (bool, error) {
	ts := req.Timestamp
	if ts == 0 {
		ts = table.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.table(string(req.Table))
	current, exists := t.cell(string(req.Key), req.Family, req.Qualifier)

	if expected == nil {
		if exists {
			return false, nil
		}
	} else {
		if !exists || !bytes.Equal(current.Value, expected) {
			return false, nil
		}
	}

	t.putCell(string(req.Key), table.Cell{
		Key:       append([]byte(nil), req.Key...),
		Family:    append([]byte(nil), req.Family...),
		Qualifier: append([]byte(nil), req.Qualifier...),
		Value:     append([]byte(nil), req.Value...),
		Timestamp: ts,
	})
	return true, nil
}

// Increment atomically adds to a counter cell, creating it at zero if
// absent, and returns the new value. Counter cells hold an 8-byte
// big-endian value.
func (s *MemStore) Increment(req *table.IncrementRequest) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.table(string(req.Table))
	var current int64
	if c, ok := t.cell(string(req.Key), req.Family, req.Qualifier); ok {
		if len(c.Value) != 8 {
			return 0, errors.Wrap(errors.ErrCodeNotCounter, errors.CategoryStore, string(req.Key), ErrNotCounter)
		}
		current = int64(binary.BigEndian.Uint64(c.Value))
	}

	next := current + req.Amount
	value := make([]byte, 8)
	binary.BigEndian.PutUint64(value, uint64(next))

	t.putCell(string(req.Key), table.Cell{
		Key:       append([]byte(nil), req.Key...),
		Family:    append([]byte(nil), req.Family...),
		Qualifier: append([]byte(nil), req.Qualifier...),
		Value:     value,
		Timestamp: table.Now(),
	})
	return next, nil
}

// Tables returns the table names, sorted.
func (s *MemStore) Tables() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.tables))
	for name := range s.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RowCount returns the number of rows in the table, or zero if it does
// not exist.
func (s *MemStore) RowCount(tbl []byte) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tables[string(tbl)]
	if !ok {
		return 0
	}
	return len(t.keys)
}

// scanQuery is the resolved configuration of one scan batch.
type scanQuery struct {
	afterKey  []byte // exclusive resume point; nil means start of range
	startKey  []byte
	stopKey   []byte
	family    []byte
	qualifier []byte
	keyMatch  func([]byte) bool // nil matches every key
	minTS     int64
	maxTS     int64 // 0 means unbounded
	maxRows   int
	maxCells  int // 0 means unbounded
}

// scanBatch walks the table in key order from the query's resume point and
// collects up to maxRows rows (and, when set, at most maxCells cells while
// returning at least one row). It returns the batch and the last key
// visited, so the cursor can resume after it.
func (s *MemStore) scanBatch(tbl []byte, q *scanQuery) ([]table.Row, []byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tables[string(tbl)]
	if !ok {
		return nil, nil, errors.Wrap(errors.ErrCodeTableNotFound, errors.CategoryStore, string(tbl), ErrTableNotFound)
	}

	// Resume strictly after the cursor position, or at the start key on
	// the first batch.
	from := q.afterKey
	inclusive := false
	if from == nil {
		from = q.startKey
		inclusive = true
	}

	idx := 0
	if from != nil {
		idx = sort.SearchStrings(t.keys, string(from))
		if !inclusive && idx < len(t.keys) && t.keys[idx] == string(from) {
			idx++
		}
	}

	var batch []table.Row
	var lastKey []byte
	cells := 0
	for ; idx < len(t.keys); idx++ {
		key := t.keys[idx]
		if q.stopKey != nil && key >= string(q.stopKey) {
			break
		}
		lastKey = []byte(key)

		if q.keyMatch != nil && !q.keyMatch([]byte(key)) {
			continue
		}

		var row table.Row
		for _, c := range t.rows[key] {
			if !cellSelected(c, q.family, q.qualifier) {
				continue
			}
			if c.Timestamp < q.minTS {
				continue
			}
			if q.maxTS != 0 && c.Timestamp >= q.maxTS {
				continue
			}
			row = append(row, c)
		}
		if len(row) == 0 {
			continue
		}

		batch = append(batch, row)
		cells += len(row)
		if q.maxRows > 0 && len(batch) >= q.maxRows {
			break
		}
		if q.maxCells > 0 && cells >= q.maxCells {
			break
		}
	}

	return batch, lastKey, nil
}

// cellSelected reports whether the cell matches the family/qualifier
// narrowing; nil selects all.
func cellSelected(c table.Cell, family, qualifier []byte) bool {
	if family != nil && !bytes.Equal(c.Family, family) {
		return false
	}
	if qualifier != nil && !bytes.Equal(c.Qualifier, qualifier) {
		return false
	}
	return true
}

// putCell inserts or replaces the row's cell for its (family, qualifier),
// keeping cells sorted and the key index current. Caller holds mu.
func (t *memTable) putCell(key string, c table.Cell) {
	row, exists := t.rows[key]
	if !exists {
		i := sort.SearchStrings(t.keys, key)
		t.keys = append(t.keys, "")
		copy(t.keys[i+1:], t.keys[i:])
		t.keys[i] = key
	}

	for i := range row {
		if bytes.Equal(row[i].Family, c.Family) && bytes.Equal(row[i].Qualifier, c.Qualifier) {
			row[i] = c
			t.rows[key] = row
			return
		}
	}

	i := sort.Search(len(row), func(i int) bool {
		if cmp := bytes.Compare(row[i].Family, c.Family); cmp != 0 {
			return cmp > 0
		}
		return bytes.Compare(row[i].Qualifier, c.Qualifier) > 0
	})
	row = append(row, table.Cell{})
	copy(row[i+1:], row[i:])
	row[i] = c
	t.rows[key] = row
}

// cell returns the row's cell for (family, qualifier). Caller holds mu.
func (t *memTable) cell(key string, family, qualifier []byte) (table.Cell, bool) {
	for _, c := range t.rows[key] {
		if bytes.Equal(c.Family, family) && bytes.Equal(c.Qualifier, qualifier) {
			return c, true
		}
	}
	return table.Cell{}, false
}

// removeRow deletes the row and its key index entry. Caller holds mu.
func (t *memTable) removeRow(key string) {
	delete(t.rows, key)
	i := sort.SearchStrings(t.keys, key)
	if i < len(t.keys) && t.keys[i] == key {
		t.keys = append(t.keys[:i], t.keys[i+1:]...)
	}
}
