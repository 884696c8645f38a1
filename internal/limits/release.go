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

package limits

import (
	"sync"

	"rowgate/internal/async"
)

// ReleaseOnSettle attaches a callback to the pending handle that releases
// one permit when the operation settles, success or failure, and forwards
// the outcome unchanged. The release is idempotent even if the completion
// mechanism were to fire the callback more than once.
func ReleaseOnSettle[T any](d *async.Deferred[T], pool *Pool) *async.Deferred[T] {
	var once sync.Once
	return d.AddBoth(func(value T, err error) (T, error) {
		once.Do(pool.Release)
		return value, err
	})
}

// Admit gates one asynchronous operation on the pool: acquire a permit,
// invoke the operation, attach the permit release to its pending handle,
// and return that handle still pending. If the operation panics before
// returning a handle, the permit is released and the panic re-raised, so
// no capacity leaks.
func Admit[T any](pool *Pool, op func() *async.Deferred[T]) *async.Deferred[T] {
	pool.Acquire()
	defer func() {
		if r := recover(); r != nil {
			pool.Release()
			panic(r)
		}
	}()
	return ReleaseOnSettle(op(), pool)
}
