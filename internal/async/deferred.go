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
Package async provides the pending result handle used by the rowgate client.

Deferred Overview:
==================

A Deferred[T] represents the eventual outcome of an asynchronous operation
issued against the row store. It settles exactly once, into either a value
or an error, and supports a chain of transforming callbacks:

  - Resolve/Reject settle the handle; a second settlement attempt is ignored
  - AddBoth attaches a callback that observes (and may transform) the
    outcome; callbacks run in registration order, each receiving the
    previous callback's output
  - Wait blocks until settlement or context cancellation
  - Done exposes a channel closed once the callback chain has drained

Callbacks registered before settlement run in the settling goroutine,
which for driver-completed operations is the driver's completion context.
Callbacks registered after settlement run inline in the caller of AddBoth.

Usage:

	d := async.New[int64]()
	go func() { d.Resolve(42) }()
	d.AddBoth(func(v int64, err error) (int64, error) {
		return v, err
	})
	v, err := d.Wait(ctx)
*/
package async

import (
	"context"
	"sync"
)

// Unit is the result type of operations that complete without a value.
type Unit struct{}

// Callback observes a settled outcome and returns the outcome to pass to
// the next callback in the chain. A callback that does not transform the
// result must return its arguments unchanged.
type Callback[T any] func(value T, err error) (T, error)

// Settlement states. The running state covers the window in which the
// callback chain is draining; callbacks added then are appended to the
// chain rather than run inline.
const (
	statePending = iota
	stateRunning
	stateDone
)

// Deferred is a pending result handle that settles exactly once.
type Deferred[T any] struct {
	mu        sync.Mutex
	state     int
	value     T
	err       error
	callbacks []Callback[T]
	done      chan struct{}
}

// New creates an unsettled Deferred.
func New[T any]() *Deferred[T] {
	return &Deferred[T]{done: make(chan struct{})}
}

// Resolved creates a Deferred already settled with the given value.
func Resolved[T any](value T) *Deferred[T] {
	d := New[T]()
	d.Resolve(value)
	return d
}

// Failed creates a Deferred already settled with the given error.
func Failed[T any](err error) *Deferred[T] {
	d := New[T]()
	d.Reject(err)
	return d
}

// Resolve settles the Deferred with a value. Ignored if already settled.
func (d *Deferred[T]) Resolve(value T) {
	d.settle(value, nil)
}

// Reject settles the Deferred with an error. Ignored if already settled.
func (d *Deferred[T]) Reject(err error) {
	var zero T
	d.settle(zero, err)
}

// settle records the outcome and drains the callback chain. Only the first
// settlement takes effect; the driver firing a completion twice is a bug
// upstream and must not corrupt the chain here.
func (d *Deferred[T]) settle(value T, err error) {
	d.mu.Lock()
	if d.state != statePending {
		d.mu.Unlock()
		return
	}
	d.state = stateRunning
	d.value, d.err = value, err

	for len(d.callbacks) > 0 {
		cb := d.callbacks[0]
		d.callbacks = d.callbacks[1:]
		v, e := d.value, d.err
		d.mu.Unlock()
		v, e = cb(v, e)
		d.mu.Lock()
		d.value, d.err = v, e
	}

	d.state = stateDone
	d.mu.Unlock()
	close(d.done)
}

// AddBoth attaches a callback that fires on settlement regardless of
// outcome. If the Deferred has already settled, the callback runs inline
// before AddBoth returns. Returns the same Deferred to facilitate chaining.
func (d *Deferred[T]) AddBoth(cb Callback[T]) *Deferred[T] {
	d.mu.Lock()
	if d.state != stateDone {
		d.callbacks = append(d.callbacks, cb)
		d.mu.Unlock()
		return d
	}
	v, e := d.value, d.err
	d.mu.Unlock()

	v, e = cb(v, e)

	d.mu.Lock()
	d.value, d.err = v, e
	d.mu.Unlock()
	return d
}

// Done returns a channel closed once the Deferred has settled and its
// callback chain has drained.
func (d *Deferred[T]) Done() <-chan struct{} {
	return d.done
}

// Settled reports whether the Deferred has settled.
func (d *Deferred[T]) Settled() bool {
	select {
	case <-d.done:
		return true
	default:
		return false
	}
}

// Result returns the settled outcome. It must only be called after Done
// is closed; calling it earlier returns the zero value and a nil error.
func (d *Deferred[T]) Result() (T, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.value, d.err
}

// Wait blocks until the Deferred settles or the context is cancelled.
func (d *Deferred[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-d.done:
		return d.Result()
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
