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
	"regexp"

	"golang.org/x/text/encoding"

	"rowgate/internal/async"
	"rowgate/internal/client"
	"rowgate/internal/errors"
	"rowgate/internal/table"
)

// memScanner is a cursor over one table of the in-memory store. Setters
// mutate local configuration only; NextRows walks the key index from the
// cursor position on a driver goroutine. Cursor advancement is sequential
// by the caller's discipline, matching the scanner contract.
type memScanner struct {
	client *AsyncClient
	tbl    []byte

	startKey  []byte
	stopKey   []byte
	family    []byte
	qualifier []byte

	keyRegexp  *regexp.Regexp
	regexpErr  error
	charset    encoding.Encoding
	blockCache bool
	maxRows    int
	maxCells   int
	minTS      int64
	maxTS      int64

	currentKey []byte
	closed     bool
}

func newMemScanner(c *AsyncClient, tbl []byte) *memScanner {
	return &memScanner{
		client:     c,
		tbl:        append([]byte(nil), tbl...),
		blockCache: true,
	}
}

func (s *memScanner) SetStartKey(key []byte) client.RowScanner {
	s.startKey = append([]byte(nil), key...)
	return s
}

func (s *memScanner) SetStopKey(key []byte) client.RowScanner {
	s.stopKey = append([]byte(nil), key...)
	return s
}

func (s *memScanner) SetFamily(family []byte) client.RowScanner {
	s.family = append([]byte(nil), family...)
	return s
}

func (s *memScanner) SetQualifier(qualifier []byte) client.RowScanner {
	s.qualifier = append([]byte(nil), qualifier...)
	return s
}

func (s *memScanner) SetKeyRegexp(expr string) client.RowScanner {
	s.keyRegexp, s.regexpErr = regexp.Compile(expr)
	s.charset = nil
	return s
}

func (s *memScanner) SetKeyRegexpWithCharset(expr string, charset encoding.Encoding) client.RowScanner {
	s.keyRegexp, s.regexpErr = regexp.Compile(expr)
	s.charset = charset
	return s
}

// SetServerBlockCache is kept for interface compatibility; the in-memory
// store has no block cache.
func (s *memScanner) SetServerBlockCache(populate bool) client.RowScanner {
	s.blockCache = populate
	return s
}

func (s *memScanner) SetMaxNumRows(n int) client.RowScanner {
	s.maxRows = n
	return s
}

func (s *memScanner) SetMaxNumCells(n int) client.RowScanner {
	s.maxCells = n
	return s
}

func (s *memScanner) SetMinTimestamp(ts int64) client.RowScanner {
	s.minTS = ts
	return s
}

func (s *memScanner) MinTimestamp() int64 {
	return s.minTS
}

func (s *memScanner) SetMaxTimestamp(ts int64) client.RowScanner {
	s.maxTS = ts
	return s
}

func (s *memScanner) MaxTimestamp() int64 {
	return s.maxTS
}

func (s *memScanner) SetTimeRange(minTS, maxTS int64) client.RowScanner {
	s.minTS = minTS
	s.maxTS = maxTS
	return s
}

func (s *memScanner) CurrentKey() []byte {
	return s.currentKey
}

// NextRows fetches the next batch, capped by SetMaxNumRows or the driver's
// default batch size.
func (s *memScanner) NextRows() *async.Deferred[[]table.Row] {
	n := s.maxRows
	if n == 0 {
		n = s.client.batchRows
	}
	return s.nextBatch(n)
}

// NextRowsN fetches the next batch of at most n rows.
func (s *memScanner) NextRowsN(n int) *async.Deferred[[]table.Row] {
	return s.nextBatch(n)
}

func (s *memScanner) nextBatch(maxRows int) *async.Deferred[[]table.Row] {
	return dispatch(s.client, func() ([]table.Row, error) {
		if s.closed {
			return nil, ErrScannerClosed
		}
		if s.regexpErr != nil {
			return nil, errors.Wrap(errors.ErrCodeBadRegexp, errors.CategoryStore, s.regexpErr.Error(), ErrBadRegexp)
		}

		q := &scanQuery{
			afterKey:  s.currentKey,
			startKey:  s.startKey,
			stopKey:   s.stopKey,
			family:    s.family,
			qualifier: s.qualifier,
			keyMatch:  s.keyMatcher(),
			minTS:     s.minTS,
			maxTS:     s.maxTS,
			maxRows:   maxRows,
			maxCells:  s.maxCells,
		}

		batch, lastKey, err := s.client.store.scanBatch(s.tbl, q)
		if err != nil {
			return nil, err
		}
		if lastKey != nil {
			s.currentKey = lastKey
		}
		return batch, nil
	})
}

// keyMatcher builds the row-key predicate from the configured regexp and
// charset. Keys that fail to decode in the charset do not match.
func (s *memScanner) keyMatcher() func([]byte) bool {
	if s.keyRegexp == nil {
		return nil
	}
	re, charset := s.keyRegexp, s.charset
	return func(key []byte) bool {
		if charset == nil {
			return re.Match(key)
		}
		decoded, err := charset.NewDecoder().Bytes(key)
		if err != nil {
			return false
		}
		return re.Match(decoded)
	}
}

// Close releases the cursor; further calls on the scanner settle with
// ErrScannerClosed.
func (s *memScanner) Close() *async.Deferred[async.Unit] {
	return dispatch(s.client, func() (async.Unit, error) {
		if s.closed {
			return async.Unit{}, ErrScannerClosed
		}
		s.closed = true
		return async.Unit{}, nil
	})
}
