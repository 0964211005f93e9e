package proctor

import (
	"testing"
	"time"
)

func TestEscalationLadder(t *testing.T) {
	m := NewMonitor(3, 2*time.Second)
	base := time.Now()

	if m.State() != StateClean {
		t.Fatalf("initial state = %s, want CLEAN", m.State())
	}

	r1 := m.RecordFocusLoss(base)
	if !r1.Counted || r1.Count != 1 || r1.Remaining != 2 || r1.Terminated {
		t.Fatalf("first infraction = %+v", r1)
	}
	if m.State() != StateWarned {
		t.Fatalf("state after first infraction = %s, want WARNED", m.State())
	}

	r2 := m.RecordFocusLoss(base.Add(5 * time.Second))
	if !r2.Counted || r2.Count != 2 || r2.Terminated {
		t.Fatalf("second infraction = %+v", r2)
	}

	r3 := m.RecordFocusLoss(base.Add(10 * time.Second))
	if !r3.Counted || r3.Count != 3 || !r3.Terminated || r3.Remaining != 0 {
		t.Fatalf("third infraction = %+v, want terminated", r3)
	}
	if m.State() != StateTerminated {
		t.Fatalf("state = %s, want TERMINATED", m.State())
	}
}

func TestTerminateFiresOnce(t *testing.T) {
	m := NewMonitor(3, time.Second)
	base := time.Now()

	terminations := 0
	for i := 0; i < 6; i++ {
		if m.RecordFocusLoss(base.Add(time.Duration(i) * 10 * time.Second)).Terminated {
			terminations++
		}
	}
	if terminations != 1 {
		t.Fatalf("terminated %d times, want exactly 1", terminations)
	}
	if m.Count() != 3 {
		t.Errorf("count = %d, want 3 (no counting past termination)", m.Count())
	}
}

func TestDuplicateSignalsCoalesced(t *testing.T) {
	m := NewMonitor(3, 2*time.Second)
	base := time.Now()

	// blur and visibilitychange for the same real focus loss.
	r1 := m.RecordFocusLoss(base)
	r2 := m.RecordFocusLoss(base.Add(50 * time.Millisecond))

	if !r1.Counted {
		t.Fatal("first signal should count")
	}
	if r2.Counted {
		t.Fatal("duplicate signal inside the debounce window should not count")
	}
	if m.Count() != 1 {
		t.Fatalf("count = %d, want 1", m.Count())
	}

	// A genuinely separate event outside the window counts.
	r3 := m.RecordFocusLoss(base.Add(3 * time.Second))
	if !r3.Counted || m.Count() != 2 {
		t.Fatalf("separate event = %+v, count = %d", r3, m.Count())
	}
}

func TestRestorePersistedBudget(t *testing.T) {
	m := NewMonitor(3, time.Second)
	m.Restore(2)

	r := m.RecordFocusLoss(time.Now())
	if !r.Terminated {
		t.Fatalf("restored monitor at 2/3 should terminate on next infraction, got %+v", r)
	}

	// Restoring at or past the limit lands directly in TERMINATED.
	m2 := NewMonitor(3, time.Second)
	m2.Restore(3)
	if m2.State() != StateTerminated {
		t.Fatalf("restored state = %s, want TERMINATED", m2.State())
	}
	if r := m2.RecordFocusLoss(time.Now()); r.Counted || r.Terminated {
		t.Fatalf("terminated monitor recorded %+v", r)
	}
}
