package client

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/text/encoding"

	"rowgate/internal/async"
	"rowgate/internal/limits"
	"rowgate/internal/table"
)

// fakeClient hands out pending deferreds and records how many operations
// the driver has been asked to run. Tests settle the deferreds to simulate
// driver completions.
type fakeClient struct {
	issued  atomic.Int64
	pending chan *async.Deferred[async.Unit]
	getErr  error
}

func newFakeClient() *fakeClient {
	return &fakeClient{pending: make(chan *async.Deferred[async.Unit], 64)}
}

func (f *fakeClient) issueUnit() *async.Deferred[async.Unit] {
	f.issued.Add(1)
	d := async.New[async.Unit]()
	f.pending <- d
	return d
}

func (f *fakeClient) EnsureTableExists(tbl []byte) *async.Deferred[async.Unit] {
	return f.issueUnit()
}

func (f *fakeClient) Get(req *table.GetRequest) *async.Deferred[[]table.Cell] {
	f.issued.Add(1)
	if f.getErr != nil {
		return async.Failed[[]table.Cell](f.getErr)
	}
	return async.Resolved[[]table.Cell](nil)
}

func (f *fakeClient) Put(req *table.PutRequest) *async.Deferred[async.Unit] {
	return f.issueUnit()
}

func (f *fakeClient) Delete(req *table.DeleteRequest) *async.Deferred[async.Unit] {
	return f.issueUnit()
}

func (f *fakeClient) CompareAndSet(req *table.PutRequest, expected []byte) *async.Deferred[bool] {
	f.issued.Add(1)
	return async.Resolved(true)
}

func (f *fakeClient) AtomicIncrement(req *table.IncrementRequest) *async.Deferred[int64] {
	f.issued.Add(1)
	return async.Resolved[int64](1)
}

func (f *fakeClient) Flush() *async.Deferred[async.Unit] {
	return f.issueUnit()
}

func (f *fakeClient) NewScanner(tbl []byte) RowScanner {
	return &fakeScanner{client: f}
}

func (f *fakeClient) Shutdown() *async.Deferred[async.Unit] {
	return f.issueUnit()
}

// fakeScanner issues pending deferreds for its remote calls.
type fakeScanner struct {
	client *fakeClient
	minTS  int64
	maxTS  int64
	sets   atomic.Int64
}

func (s *fakeScanner) set() RowScanner {
	s.sets.Add(1)
	return s
}

func (s *fakeScanner) SetStartKey(key []byte) RowScanner      { return s.set() }
func (s *fakeScanner) SetStopKey(key []byte) RowScanner       { return s.set() }
func (s *fakeScanner) SetFamily(family []byte) RowScanner     { return s.set() }
func (s *fakeScanner) SetQualifier(q []byte) RowScanner       { return s.set() }
func (s *fakeScanner) SetKeyRegexp(expr string) RowScanner    { return s.set() }
func (s *fakeScanner) SetServerBlockCache(b bool) RowScanner  { return s.set() }
func (s *fakeScanner) SetMaxNumRows(n int) RowScanner         { return s.set() }
func (s *fakeScanner) SetMaxNumCells(n int) RowScanner        { return s.set() }

func (s *fakeScanner) SetKeyRegexpWithCharset(expr string, charset encoding.Encoding) RowScanner {
	return s.set()
}

func (s *fakeScanner) SetMinTimestamp(ts int64) RowScanner {
	s.minTS = ts
	return s.set()
}

func (s *fakeScanner) SetMaxTimestamp(ts int64) RowScanner {
	s.maxTS = ts
	return s.set()
}

func (s *fakeScanner) SetTimeRange(minTS, maxTS int64) RowScanner {
	s.minTS, s.maxTS = minTS, maxTS
	return s.set()
}

func (s *fakeScanner) MinTimestamp() int64 { return s.minTS }
func (s *fakeScanner) MaxTimestamp() int64 { return s.maxTS }
func (s *fakeScanner) CurrentKey() []byte  { return nil }

func (s *fakeScanner) NextRows() *async.Deferred[[]table.Row] {
	s.client.issued.Add(1)
	d := async.New[[]table.Row]()
	unit := async.New[async.Unit]()
	unit.AddBoth(func(v async.Unit, err error) (async.Unit, error) {
		d.Resolve(nil)
		return v, err
	})
	s.client.pending <- unit
	return d
}

func (s *fakeScanner) NextRowsN(n int) *async.Deferred[[]table.Row] {
	return s.NextRows()
}

func (s *fakeScanner) Close() *async.Deferred[async.Unit] {
	return s.client.issueUnit()
}

// settleOne completes the oldest pending driver operation.
func (f *fakeClient) settleOne(t *testing.T) {
	t.Helper()
	select {
	case d := <-f.pending:
		d.Resolve(async.Unit{})
	case <-time.After(time.Second):
		t.Fatal("no pending driver operation to settle")
	}
}

func TestBoundedOpsHoldPermitUntilSettlement(t *testing.T) {
	pool, _ := limits.New(2)
	fake := newFakeClient()
	bounded := NewBoundedClient(fake, pool)

	d := bounded.Put(&table.PutRequest{Table: []byte("t"), Key: []byte("k")})
	if got := pool.InUse(); got != 1 {
		t.Fatalf("expected 1 permit held while pending, got %d", got)
	}

	fake.settleOne(t)
	<-d.Done()

	if got := pool.InUse(); got != 0 {
		t.Errorf("expected permit released after settlement, %d in use", got)
	}
}

func TestBoundedReleasesOnAllOpKinds(t *testing.T) {
	pool, _ := limits.New(4)
	fake := newFakeClient()
	bounded := NewBoundedClient(fake, pool)

	ops := []struct {
		name string
		run  func() <-chan struct{}
	}{
		{"ensure", func() <-chan struct{} { return bounded.EnsureTableExists([]byte("t")).Done() }},
		{"put", func() <-chan struct{} {
			return bounded.Put(&table.PutRequest{Table: []byte("t"), Key: []byte("k")}).Done()
		}},
		{"delete", func() <-chan struct{} {
			return bounded.Delete(&table.DeleteRequest{Table: []byte("t"), Key: []byte("k")}).Done()
		}},
		{"flush", func() <-chan struct{} { return bounded.Flush().Done() }},
	}

	for _, op := range ops {
		t.Run(op.name, func(t *testing.T) {
			done := op.run()
			fake.settleOne(t)
			<-done
			if got := pool.InUse(); got != 0 {
				t.Errorf("%s left %d permits held", op.name, got)
			}
		})
	}
}

func TestBoundedForwardsErrorUnchanged(t *testing.T) {
	boom := errors.New("region unavailable")
	pool, _ := limits.New(1)
	fake := newFakeClient()
	fake.getErr = boom
	bounded := NewBoundedClient(fake, pool)

	d := bounded.Get(&table.GetRequest{Table: []byte("t"), Key: []byte("k")})
	<-d.Done()

	if _, err := d.Result(); !errors.Is(err, boom) {
		t.Errorf("error was not forwarded unchanged: %v", err)
	}
	if got := pool.InUse(); got != 0 {
		t.Errorf("failed operation leaked a permit, %d in use", got)
	}
}

func TestBoundedReleasesPermitOnSynchronousPanic(t *testing.T) {
	pool, _ := limits.New(1)
	bounded := NewBoundedClient(&panickyClient{}, pool)

	func() {
		defer func() {
			if recover() == nil {
				t.Error("expected panic to propagate")
			}
		}()
		bounded.Flush()
	}()

	if got := pool.InUse(); got != 0 {
		t.Errorf("panic leaked a permit, %d in use", got)
	}
	if got := pool.OverReleases(); got != 0 {
		t.Errorf("panic path over-released %d times", got)
	}
}

type panickyClient struct {
	fakeClient
}

func (p *panickyClient) Flush() *async.Deferred[async.Unit] {
	panic("connection torn down")
}

func TestBoundedBlocksAtCapacity(t *testing.T) {
	pool, _ := limits.New(1)
	fake := newFakeClient()
	bounded := NewBoundedClient(fake, pool)

	first := bounded.Put(&table.PutRequest{Table: []byte("t"), Key: []byte("a")})

	started := make(chan struct{})
	var second *async.Deferred[async.Unit]
	go func() {
		close(started)
		second = bounded.Put(&table.PutRequest{Table: []byte("t"), Key: []byte("b")})
	}()

	<-started
	time.Sleep(50 * time.Millisecond)
	if got := fake.issued.Load(); got != 1 {
		t.Fatalf("second op reached the driver while pool was empty, issued = %d", got)
	}

	fake.settleOne(t)
	<-first.Done()

	fake.settleOne(t)
	deadline := time.Now().Add(time.Second)
	for pool.InUse() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("second operation never finished after permit freed")
		}
		time.Sleep(time.Millisecond)
	}
	_ = second
}

func TestNewScannerTakesNoPermit(t *testing.T) {
	pool, _ := limits.New(1)
	fake := newFakeClient()
	bounded := NewBoundedClient(fake, pool)

	scanner := bounded.NewScanner([]byte("t"))
	if scanner == nil {
		t.Fatal("expected a scanner")
	}
	if got := pool.InUse(); got != 0 {
		t.Errorf("NewScanner consumed %d permits", got)
	}
}

func TestScannerSettersTakeNoPermit(t *testing.T) {
	pool, _ := limits.New(1)
	fake := newFakeClient()
	bounded := NewBoundedClient(fake, pool)

	scanner := bounded.NewScanner([]byte("t")).
		SetStartKey([]byte("a")).
		SetStopKey([]byte("z")).
		SetFamily([]byte("f")).
		SetMaxNumRows(10).
		SetTimeRange(1, 100)

	if got := pool.InUse(); got != 0 {
		t.Errorf("setters consumed %d permits", got)
	}
	if got, want := scanner.MinTimestamp(), int64(1); got != want {
		t.Errorf("MinTimestamp = %d, want %d", got, want)
	}
	if got, want := scanner.MaxTimestamp(), int64(100); got != want {
		t.Errorf("MaxTimestamp = %d, want %d", got, want)
	}
}

func TestScannersShareClientPool(t *testing.T) {
	pool, _ := limits.New(2)
	fake := newFakeClient()
	bounded := NewBoundedClient(fake, pool)

	s1 := bounded.NewScanner([]byte("t"))
	s2 := bounded.NewScanner([]byte("t"))
	s3 := bounded.NewScanner([]byte("t"))

	d1 := s1.NextRows()
	d2 := s2.NextRows()

	started := make(chan struct{})
	go func() {
		close(started)
		d := s3.NextRows()
		<-d.Done()
	}()

	<-started
	time.Sleep(50 * time.Millisecond)
	if got := fake.issued.Load(); got != 2 {
		t.Fatalf("third scanner fetched while pool was empty, issued = %d", got)
	}

	fake.settleOne(t)
	fake.settleOne(t)
	fake.settleOne(t)

	<-d1.Done()
	<-d2.Done()

	deadline := time.Now().Add(time.Second)
	for pool.InUse() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("permits never drained back to zero")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestScannerCloseWaitsForPermit(t *testing.T) {
	pool, _ := limits.New(1)
	fake := newFakeClient()
	bounded := NewBoundedClient(fake, pool)

	inflight := bounded.Put(&table.PutRequest{Table: []byte("t"), Key: []byte("k")})
	scanner := bounded.NewScanner([]byte("t"))

	started := make(chan struct{})
	closed := make(chan struct{})
	go func() {
		close(started)
		d := scanner.Close()
		<-d.Done()
		close(closed)
	}()

	<-started
	select {
	case <-closed:
		t.Fatal("Close proceeded while the pool was empty")
	case <-time.After(50 * time.Millisecond):
	}

	fake.settleOne(t)
	<-inflight.Done()
	fake.settleOne(t)

	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("Close never completed after permit freed")
	}
}

func TestPoolAccessor(t *testing.T) {
	pool, _ := limits.New(3)
	bounded := NewBoundedClient(newFakeClient(), pool)
	if bounded.Pool() != pool {
		t.Error("Pool accessor did not return the bounding pool")
	}
}
