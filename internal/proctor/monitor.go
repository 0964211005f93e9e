package proctor

import (
	"sync"
	"time"
)

// State is the monitor's position in the escalation ladder.
type State string

const (
	StateClean      State = "CLEAN"
	StateWarned     State = "WARNED"
	StateTerminated State = "TERMINATED"
)

// Monitor counts focus-loss infractions for one proctored session and
// escalates Clean -> Warned(n) -> Terminated once the limit is reached.
// Browsers report a single real focus loss through more than one signal
// (blur and visibility change), so events inside the debounce window are
// coalesced into one infraction.
type Monitor struct {
	mu         sync.Mutex
	limit      int
	debounce   time.Duration
	count      int
	lastEvent  time.Time
	terminated bool
}

// Result describes the effect of one reported focus loss.
type Result struct {
	// Counted is false when the event was coalesced into a previous one
	// or arrived after termination.
	Counted bool
	// Count is the infraction total after this event.
	Count int
	// Remaining is how many more infractions are allowed before termination.
	Remaining int
	// Terminated is true only on the transition into the terminated state;
	// the caller must force-finalize the session exactly once.
	Terminated bool
}

// NewMonitor creates a Monitor with the given infraction limit and
// signal-coalescing window.
func NewMonitor(limit int, debounce time.Duration) *Monitor {
	return &Monitor{limit: limit, debounce: debounce}
}

// Restore seeds the infraction count from persisted session state, so a
// page reload or server restart cannot reset the budget.
func (m *Monitor) Restore(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count = count
	if m.count >= m.limit {
		m.terminated = true
	}
}

// RecordFocusLoss registers one focus-loss signal observed at the given
// time. Duplicate signals for the same real event (within the debounce
// window) do not increment the count.
func (m *Monitor) RecordFocusLoss(at time.Time) Result {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.terminated {
		return Result{Count: m.count, Remaining: 0}
	}

	if !m.lastEvent.IsZero() && at.Sub(m.lastEvent) < m.debounce {
		return Result{Count: m.count, Remaining: m.limit - m.count}
	}
	m.lastEvent = at

	m.count++
	res := Result{Counted: true, Count: m.count, Remaining: m.limit - m.count}
	if m.count >= m.limit {
		m.terminated = true
		res.Terminated = true
		res.Remaining = 0
	}
	return res
}

// State returns the monitor's current escalation state.
func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case m.terminated:
		return StateTerminated
	case m.count > 0:
		return StateWarned
	default:
		return StateClean
	}
}

// Count returns the current infraction total.
func (m *Monitor) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.count
}
