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
rowgate-bench - Admission Control Load Generator

This tool drives a configurable number of workers through the bounded
client stack and reports whether the permit pool actually held the
in-flight ceiling. It exists to demonstrate admission control under
load: however many workers and whatever request rate you configure, the
store never observes more concurrent requests than the pool capacity.

Usage:

	rowgate-bench                        # 8 workers, 10 permits, 5s run
	rowgate-bench -workers 64 -permits 4 # Heavy contention
	rowgate-bench -rate 500              # Pace request starts at 500/s
	rowgate-bench -latency 20ms          # Slower simulated store
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"rowgate/internal/async"
	"rowgate/internal/banner"
	"rowgate/internal/client"
	"rowgate/internal/limits"
	"rowgate/internal/logging"
	"rowgate/internal/metrics"
	"rowgate/internal/store"
	"rowgate/internal/table"
)

// trackingClient counts concurrent in-flight operations at the store
// boundary, underneath the admission layer. The peak it records is the
// number the permit pool is supposed to bound.
type trackingClient struct {
	client.Client
	inFlight atomic.Int64
	peak     atomic.Int64
}

func (t *trackingClient) track() func() {
	n := t.inFlight.Add(1)
	for {
		p := t.peak.Load()
		if n <= p || t.peak.CompareAndSwap(p, n) {
			break
		}
	}
	return func() { t.inFlight.Add(-1) }
}

func (t *trackingClient) Get(req *table.GetRequest) *async.Deferred[[]table.Cell] {
	done := t.track()
	d := t.Client.Get(req)
	return d.AddBoth(func(v []table.Cell, err error) ([]table.Cell, error) {
		done()
		return v, err
	})
}

func (t *trackingClient) Put(req *table.PutRequest) *async.Deferred[async.Unit] {
	done := t.track()
	d := t.Client.Put(req)
	return d.AddBoth(func(v async.Unit, err error) (async.Unit, error) {
		done()
		return v, err
	})
}

func (t *trackingClient) AtomicIncrement(req *table.IncrementRequest) *async.Deferred[int64] {
	done := t.track()
	d := t.Client.AtomicIncrement(req)
	return d.AddBoth(func(v int64, err error) (int64, error) {
		done()
		return v, err
	})
}

func main() {
	workers := flag.Int("workers", 8, "Number of concurrent workers")
	permits := flag.Int("permits", 10, "Permit pool capacity")
	duration := flag.Duration("duration", 5*time.Second, "Benchmark duration")
	latency := flag.Duration("latency", 5*time.Millisecond, "Simulated store latency per operation")
	rateLimit := flag.Float64("rate", 0, "Request starts per second across all workers (0 = unpaced)")
	readPct := flag.Int("reads", 70, "Percentage of operations that are reads")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("rowgate-bench version %s\n", banner.Version)
		fmt.Printf("%s\n", banner.Copyright)
		os.Exit(0)
	}

	logger := logging.NewLogger("bench")

	pool, err := limits.New(*permits)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create permit pool: %v\n", err)
		os.Exit(1)
	}
	metrics.Get().RegisterPool("bench", pool)

	backing := store.NewMemStore()
	raw := store.NewAsyncClient(backing, store.WithLatency(*latency))
	tracker := &trackingClient{Client: raw}
	bounded := client.NewBoundedClient(tracker, pool)
	metered := client.NewMeteredClient(bounded)

	tableName := []byte("bench")
	backing.CreateTable(tableName)
	if _, err := metered.EnsureTableExists(tableName).Wait(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "failed to create bench table: %v\n", err)
		os.Exit(1)
	}

	var limiter *rate.Limiter
	if *rateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(*rateLimit), *workers)
	}

	logger.Info("Starting benchmark",
		"workers", *workers,
		"permits", *permits,
		"duration", *duration,
		"latency", *latency)

	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	var completed, failed atomic.Uint64
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < *workers; i++ {
		worker := i
		g.Go(func() error {
			rng := rand.New(rand.NewSource(int64(worker)))
			for {
				if gctx.Err() != nil {
					return nil
				}
				if limiter != nil {
					if err := limiter.Wait(gctx); err != nil {
						return nil
					}
				}

				key := []byte(fmt.Sprintf("row-%04d", rng.Intn(1000)))
				var opErr error
				switch {
				case rng.Intn(100) < *readPct:
					_, opErr = metered.Get(&table.GetRequest{Table: tableName, Key: key}).Wait(gctx)
				case rng.Intn(2) == 0:
					_, opErr = metered.Put(&table.PutRequest{
						Table:     tableName,
						Key:       key,
						Family:    []byte("d"),
						Qualifier: []byte("v"),
						Value:     []byte(fmt.Sprintf("w%d-%d", worker, rng.Int())),
					}).Wait(gctx)
				default:
					_, opErr = metered.AtomicIncrement(&table.IncrementRequest{
						Table:     tableName,
						Key:       key,
						Family:    []byte("d"),
						Qualifier: []byte("n"),
						Amount:    1,
					}).Wait(gctx)
				}

				if opErr != nil {
					if gctx.Err() != nil {
						return nil
					}
					failed.Add(1)
					continue
				}
				completed.Add(1)
			}
		})
	}

	if err := g.Wait(); err != nil {
		fmt.Fprintf(os.Stderr, "benchmark failed: %v\n", err)
		os.Exit(1)
	}
	elapsed := time.Since(start)

	ops := completed.Load()
	peak := tracker.peak.Load()

	fmt.Println()
	fmt.Printf("  %s%sRESULTS:%s\n", banner.AnsiBold, banner.AnsiCyan, banner.AnsiReset)
	fmt.Printf("    Operations:       %d (%.0f ops/s)\n", ops, float64(ops)/elapsed.Seconds())
	fmt.Printf("    Failed:           %d\n", failed.Load())
	fmt.Printf("    Workers:          %d\n", *workers)
	fmt.Printf("    Permit capacity:  %d\n", *permits)
	fmt.Printf("    Peak in-flight:   %d\n", peak)
	fmt.Printf("    Over-releases:    %d\n", pool.OverReleases())
	fmt.Printf("    Avg op latency:   %.0fµs\n", metrics.Get().AverageOpLatency())
	fmt.Println()

	if peak > int64(*permits) {
		fmt.Printf("  %sFAIL: peak in-flight %d exceeded permit capacity %d%s\n",
			banner.AnsiRed, peak, *permits, banner.AnsiReset)
		os.Exit(1)
	}
	fmt.Printf("  %sPASS: in-flight ceiling held at or below %d%s\n",
		banner.AnsiGreen, *permits, banner.AnsiReset)
}
