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
Package limits bounds the number of concurrently outstanding asynchronous
operations issued against the row store.

Note that this is concurrency limiting, not rate limiting: the pool caps how
many operations are in flight at any instant, not how many are started per
unit of time.

A Pool is a counting semaphore sized at construction. Every remote operation
must acquire a permit before it is issued (admission) and holds that permit
until its pending result handle settles, at which point the permit is
released exactly once. Acquire deliberately blocks without a context: once a
caller is waiting to admit an operation, abandoning the wait would risk an
orphaned permit, so the wait is not cancellable.
*/
package limits

import (
	"fmt"
	"sync/atomic"
)

// Pool is a counting semaphore bounding concurrent in-flight operations.
// The zero value is not usable; construct with New.
type Pool struct {
	permits      chan struct{}
	overReleases atomic.Uint64
}

// New creates a Pool admitting at most capacity concurrent operations.
// Capacity must be positive; this is validated before any operation can
// be admitted.
func New(capacity int) (*Pool, error) {
	if capacity < 1 {
		return nil, fmt.Errorf("pool capacity must be positive, got %d", capacity)
	}
	return &Pool{permits: make(chan struct{}, capacity)}, nil
}

// Acquire blocks until a permit is available, then takes it. The wait is
// not interruptible: a caller committed to admitting an operation cannot
// abandon the wait without risking a leaked permit.
func (p *Pool) Acquire() {
	p.permits <- struct{}{}
}

// TryAcquire takes a permit if one is immediately available.
func (p *Pool) TryAcquire() bool {
	select {
	case p.permits <- struct{}{}:
		return true
	default:
		return false
	}
}

// Release returns one permit to the pool. Releasing more times than
// matching Acquire calls is a programming error; the pool clamps rather
// than growing capacity, and counts the event so tests and metrics can
// surface it.
func (p *Pool) Release() {
	select {
	case <-p.permits:
	default:
		p.overReleases.Add(1)
	}
}

// Capacity returns the maximum number of concurrently held permits.
func (p *Pool) Capacity() int {
	return cap(p.permits)
}

// InUse returns the number of permits currently held.
func (p *Pool) InUse() int {
	return len(p.permits)
}

// Available returns the number of permits not currently held.
func (p *Pool) Available() int {
	return cap(p.permits) - len(p.permits)
}

// OverReleases returns how many Release calls found no permit to return.
func (p *Pool) OverReleases() uint64 {
	return p.overReleases.Load()
}
