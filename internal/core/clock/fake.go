package clock

import (
	"sync"
	"time"
)

// Fake is a manually advanced Clock. Timers fire only when Advance moves the
// clock past their deadline.
type Fake struct {
	mu      sync.Mutex
	now     time.Time
	timers  []*fakeTimer
	stopped bool
}

// NewFake creates a Fake clock starting at start.
func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

// Now returns the fake current time.
func (fake *Fake) Now() time.Time {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	return fake.now
}

// NewTimer registers a timer that fires once the clock reaches now+d.
func (fake *Fake) NewTimer(d time.Duration) Timer {
	fake.mu.Lock()
	defer fake.mu.Unlock()

	timer := &fakeTimer{
		clock:    fake,
		deadline: fake.now.Add(d),
		ch:       make(chan time.Time, 1),
	}
	if fake.stopped {
		close(timer.ch)
		return timer
	}
	if d <= 0 {
		timer.ch <- fake.now
		return timer
	}
	fake.timers = append(fake.timers, timer)
	return timer
}

// Advance moves the clock forward and fires every timer whose deadline has
// been reached.
func (fake *Fake) Advance(d time.Duration) {
	fake.mu.Lock()
	defer fake.mu.Unlock()

	fake.now = fake.now.Add(d)
	pending := fake.timers[:0]
	for _, timer := range fake.timers {
		if timer.deadline.After(fake.now) {
			pending = append(pending, timer)
			continue
		}
		timer.ch <- fake.now
	}
	fake.timers = pending
}

// Halt simulates a failed clock: pending timers are closed and new timers
// are created already closed.
func (fake *Fake) Halt() {
	fake.mu.Lock()
	defer fake.mu.Unlock()

	fake.stopped = true
	for _, timer := range fake.timers {
		close(timer.ch)
	}
	fake.timers = nil
}

// Pending returns the number of timers waiting to fire.
func (fake *Fake) Pending() int {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	return len(fake.timers)
}

// BlockUntil waits until at least n timers are pending or the timeout
// elapses. It reports whether the condition was met.
func (fake *Fake) BlockUntil(n int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		if fake.Pending() >= n {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(time.Millisecond)
	}
}

func (fake *Fake) remove(target *fakeTimer) bool {
	fake.mu.Lock()
	defer fake.mu.Unlock()

	for index, timer := range fake.timers {
		if timer == target {
			fake.timers = append(fake.timers[:index], fake.timers[index+1:]...)
			return true
		}
	}
	return false
}

type fakeTimer struct {
	clock    *Fake
	deadline time.Time
	ch       chan time.Time
}

func (timer *fakeTimer) C() <-chan time.Time {
	return timer.ch
}

func (timer *fakeTimer) Stop() bool {
	return timer.clock.remove(timer)
}
