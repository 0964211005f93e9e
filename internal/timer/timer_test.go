package timer

import (
	"sync/atomic"
	"testing"
	"time"
)

const testTick = time.Millisecond

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(testTick)
	}
	t.Fatal(msg)
}

func TestExpiryFiresExactlyOnce(t *testing.T) {
	var fired int32

	st := Start(Options{
		Duration: 5 * testTick,
		Tick:     testTick,
		OnExpire: func() { atomic.AddInt32(&fired, 1) },
	})
	defer st.Stop()

	waitFor(t, func() bool { return atomic.LoadInt32(&fired) > 0 }, "expiry never fired")

	// Give the goroutine room to misbehave.
	time.Sleep(20 * testTick)
	if n := atomic.LoadInt32(&fired); n != 1 {
		t.Fatalf("expiry fired %d times, want 1", n)
	}
}

func TestZeroDurationExpiresImmediately(t *testing.T) {
	var fired int32

	st := Start(Options{
		Duration: 0,
		Tick:     testTick,
		OnExpire: func() { atomic.AddInt32(&fired, 1) },
	})
	defer st.Stop()

	waitFor(t, func() bool { return atomic.LoadInt32(&fired) == 1 }, "zero-duration timer never expired")

	if r := st.Remaining(); r != 0 {
		t.Errorf("remaining = %v after expiry, want 0 (no underflow)", r)
	}
}

func TestWarningFiresOnceBeforeExpiry(t *testing.T) {
	var warned, expired int32

	st := Start(Options{
		Duration: 20 * testTick,
		WarnAt:   10 * testTick,
		Tick:     testTick,
		OnWarn:   func() { atomic.AddInt32(&warned, 1) },
		OnExpire: func() { atomic.AddInt32(&expired, 1) },
	})
	defer st.Stop()

	waitFor(t, func() bool { return atomic.LoadInt32(&expired) == 1 }, "timer never expired")

	if n := atomic.LoadInt32(&warned); n != 1 {
		t.Errorf("warning fired %d times, want 1", n)
	}
}

func TestStopPreventsExpiry(t *testing.T) {
	var fired int32

	st := Start(Options{
		Duration: 50 * testTick,
		Tick:     testTick,
		OnExpire: func() { atomic.AddInt32(&fired, 1) },
	})
	st.Stop()
	st.Stop() // idempotent

	time.Sleep(80 * testTick)
	if n := atomic.LoadInt32(&fired); n != 0 {
		t.Fatalf("expiry fired %d times after Stop", n)
	}
}

func TestRemainingCountsDown(t *testing.T) {
	st := Start(Options{
		Duration: 100 * testTick,
		Tick:     testTick,
	})
	defer st.Stop()

	start := st.Remaining()
	waitFor(t, func() bool { return st.Remaining() < start }, "remaining never decreased")
}
