package bridge

import (
	"testing"
	"time"
)

func TestPendingResolve(t *testing.T) {
	p := newPendingMap()
	ch := p.add("r1")

	go p.resolve("r1", Result{OK: true, Message: "done"})

	res := p.await("r1", ch, time.Second)
	if !res.OK || res.Message != "done" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if p.size() != 0 {
		t.Fatalf("resolver left registered: %d", p.size())
	}
}

func TestPendingTimeoutClearsResolver(t *testing.T) {
	p := newPendingMap()
	ch := p.add("r1")

	start := time.Now()
	res := p.await("r1", ch, 30*time.Millisecond)
	if res.OK {
		t.Fatalf("timeout should resolve ok:false, got %+v", res)
	}
	if res.Message != "timeout" {
		t.Fatalf("unexpected timeout message: %q", res.Message)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Fatalf("await took too long: %v", elapsed)
	}
	if p.size() != 0 {
		t.Fatalf("dangling resolver after timeout: %d", p.size())
	}
}

func TestPendingLateResponseIgnored(t *testing.T) {
	p := newPendingMap()
	ch := p.add("r1")

	res := p.await("r1", ch, 10*time.Millisecond)
	if res.OK {
		t.Fatalf("expected timeout, got %+v", res)
	}

	if p.resolve("r1", Result{OK: true}) {
		t.Fatal("late response found a resolver")
	}
}

func TestPendingIndependentRequests(t *testing.T) {
	p := newPendingMap()
	ch1 := p.add("r1")
	ch2 := p.add("r2")

	p.resolve("r2", Result{OK: true, Message: "second"})

	res2 := p.await("r2", ch2, time.Second)
	if res2.Message != "second" {
		t.Fatalf("wrong correlation: %+v", res2)
	}

	res1 := p.await("r1", ch1, 10*time.Millisecond)
	if res1.OK {
		t.Fatalf("r1 should time out independently, got %+v", res1)
	}
}
