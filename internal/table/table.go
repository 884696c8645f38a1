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
Package table defines the row and cell model of the row store and the
request types consumed by the client.

Data Model:
===========

Tables hold rows identified by an opaque byte key. A row is a set of cells,
each addressed by (family, qualifier) and carrying a value and a timestamp
in milliseconds. Keys, families, qualifiers and values are byte strings with
no encoding imposed by this layer.
*/
package table

import "time"

// Cell is one versioned value within a row.
type Cell struct {
	Key       []byte
	Family    []byte
	Qualifier []byte
	Value     []byte
	Timestamp int64 // milliseconds since the Unix epoch
}

// Row is the set of cells of a single row, ordered by family then qualifier.
type Row []Cell

// Now returns the current time as a cell timestamp.
func Now() int64 {
	return time.Now().UnixMilli()
}

// GetRequest reads cells from a single row. Family and Qualifier narrow the
// read when set; nil selects all.
type GetRequest struct {
	Table     []byte
	Key       []byte
	Family    []byte
	Qualifier []byte
}

// PutRequest writes one cell. A zero Timestamp means the store assigns the
// write time.
type PutRequest struct {
	Table     []byte
	Key       []byte
	Family    []byte
	Qualifier []byte
	Value     []byte
	Timestamp int64
}

// DeleteRequest removes cells from a single row. Family and Qualifier
// narrow the deletion when set; nil removes the whole row.
type DeleteRequest struct {
	Table     []byte
	Key       []byte
	Family    []byte
	Qualifier []byte
}

// IncrementRequest atomically adds Amount to a counter cell, creating it
// at zero if absent.
type IncrementRequest struct {
	Table     []byte
	Key       []byte
	Family    []byte
	Qualifier []byte
	Amount    int64
}
