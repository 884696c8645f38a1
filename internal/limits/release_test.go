package limits

import (
	"errors"
	"testing"
	"time"

	"rowgate/internal/async"
)

func TestReleaseOnSettleReturnsPermit(t *testing.T) {
	p, _ := New(1)
	p.Acquire()

	d := async.New[int]()
	ReleaseOnSettle(d, p)
	d.Resolve(5)

	<-d.Done()
	if got := p.InUse(); got != 0 {
		t.Errorf("permit not returned, %d in use", got)
	}
}

func TestReleaseOnSettleReturnsPermitOnError(t *testing.T) {
	p, _ := New(1)
	p.Acquire()

	d := async.New[int]()
	ReleaseOnSettle(d, p)
	d.Reject(errors.New("boom"))

	<-d.Done()
	if got := p.InUse(); got != 0 {
		t.Errorf("permit not returned on error settlement, %d in use", got)
	}
}

func TestReleaseOnSettlePreservesOutcome(t *testing.T) {
	p, _ := New(1)
	p.Acquire()

	d := async.New[int]()
	ReleaseOnSettle(d, p)
	d.Resolve(7)

	<-d.Done()
	v, err := d.Result()
	if err != nil || v != 7 {
		t.Errorf("adapter changed the outcome: (%d, %v)", v, err)
	}

	boom := errors.New("boom")
	p.Acquire()
	d2 := async.New[int]()
	ReleaseOnSettle(d2, p)
	d2.Reject(boom)

	<-d2.Done()
	if _, err := d2.Result(); !errors.Is(err, boom) {
		t.Errorf("adapter changed the error: %v", err)
	}
}

func TestAdmitAcquiresAndReleases(t *testing.T) {
	p, _ := New(2)

	d := Admit(p, func() *async.Deferred[int] {
		if got := p.InUse(); got != 1 {
			t.Errorf("operation should run holding a permit, in use = %d", got)
		}
		return async.Resolved(1)
	})

	<-d.Done()
	if got := p.InUse(); got != 0 {
		t.Errorf("permit not returned after settlement, %d in use", got)
	}
}

func TestAdmitReleasesOncePerOperation(t *testing.T) {
	p, _ := New(1)

	d := async.New[int]()
	out := Admit(p, func() *async.Deferred[int] { return d })

	d.Resolve(1)
	<-out.Done()

	if got := p.OverReleases(); got != 0 {
		t.Errorf("single settlement caused %d over-releases", got)
	}
	if got := p.InUse(); got != 0 {
		t.Errorf("expected pool drained to 0 in use, got %d", got)
	}
}

func TestAdmitReleasesOnSynchronousPanic(t *testing.T) {
	p, _ := New(1)

	func() {
		defer func() {
			if r := recover(); r == nil {
				t.Error("expected the panic to propagate")
			}
		}()
		Admit(p, func() *async.Deferred[int] {
			panic("driver blew up")
		})
	}()

	if got := p.InUse(); got != 0 {
		t.Errorf("permit leaked across panic, %d in use", got)
	}
	if got := p.OverReleases(); got != 0 {
		t.Errorf("panic path over-released %d times", got)
	}
}

func TestAdmitBlocksWhenPoolEmpty(t *testing.T) {
	p, _ := New(1)

	gate := async.New[int]()
	first := Admit(p, func() *async.Deferred[int] { return gate })

	started := make(chan struct{})
	go func() {
		close(started)
		d := Admit(p, func() *async.Deferred[int] { return async.Resolved(2) })
		<-d.Done()
	}()

	<-started
	time.Sleep(50 * time.Millisecond)
	if got := p.InUse(); got != 1 {
		t.Fatalf("second Admit should be parked waiting for the permit, in use = %d", got)
	}

	gate.Resolve(1)
	<-first.Done()

	deadline := time.Now().Add(time.Second)
	for p.InUse() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("second operation never completed after permit freed")
		}
		time.Sleep(time.Millisecond)
	}
}
