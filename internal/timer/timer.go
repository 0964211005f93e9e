package timer

import (
	"sync"
	"time"
)

// SectionTimer counts down a section's duration on wall-clock ticks and
// fires its expiry callback exactly once. It is a scoped resource: Start
// acquires the ticking goroutine, Stop releases it. A new instance is
// created per section; leftover time never carries over.
type SectionTimer struct {
	mu        sync.Mutex
	remaining time.Duration
	warnAt    time.Duration
	warned    bool
	expired   bool

	onWarn   func()
	onExpire func()

	tick     time.Duration
	stopOnce sync.Once
	stopCh   chan struct{}
}

// Options configures a SectionTimer.
type Options struct {
	// Duration is the section length. Zero expires on the first tick.
	Duration time.Duration
	// WarnAt fires OnWarn once when remaining time drops to this value.
	// Zero disables the warning.
	WarnAt time.Duration
	// OnWarn and OnExpire run on the timer goroutine. OnExpire is invoked
	// at most once per timer instance.
	OnWarn   func()
	OnExpire func()
	// Tick overrides the 1s tick interval. Tests only.
	Tick time.Duration
}

// Start creates a SectionTimer and begins counting down.
func Start(opts Options) *SectionTimer {
	t := &SectionTimer{
		remaining: opts.Duration,
		warnAt:    opts.WarnAt,
		onWarn:    opts.OnWarn,
		onExpire:  opts.OnExpire,
		tick:      opts.Tick,
		stopCh:    make(chan struct{}),
	}
	if t.tick <= 0 {
		t.tick = time.Second
	}
	go t.run()
	return t
}

func (t *SectionTimer) run() {
	ticker := time.NewTicker(t.tick)
	defer ticker.Stop()

	for {
		select {
		case <-t.stopCh:
			return
		case <-ticker.C:
			if t.step() {
				return
			}
		}
	}
}

// step advances the countdown by one tick. Returns true when the timer is
// done. Callbacks fire outside the lock so they may call Stop safely.
func (t *SectionTimer) step() bool {
	var fireWarn, fireExpire bool

	t.mu.Lock()
	if t.expired {
		t.mu.Unlock()
		return true
	}
	t.remaining -= t.tick
	if t.remaining < 0 {
		t.remaining = 0
	}
	if t.warnAt > 0 && !t.warned && t.remaining <= t.warnAt && t.remaining > 0 {
		t.warned = true
		fireWarn = t.onWarn != nil
	}
	if t.remaining == 0 {
		t.expired = true
		fireExpire = t.onExpire != nil
	}
	t.mu.Unlock()

	if fireWarn {
		t.onWarn()
	}
	if fireExpire {
		t.onExpire()
	}
	return fireExpire || t.isExpired()
}

func (t *SectionTimer) isExpired() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.expired
}

// Remaining returns the time left on the countdown.
func (t *SectionTimer) Remaining() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remaining
}

// Stop tears the timer down without firing expiry. Safe to call multiple
// times and after expiry.
func (t *SectionTimer) Stop() {
	t.stopOnce.Do(func() { close(t.stopCh) })
}
