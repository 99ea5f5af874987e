// Package clock abstracts the time source used by the timer core so that
// countdowns can be driven deterministically in tests.
package clock

import (
	"errors"
	"time"
)

// ErrStopped indicates the clock can no longer deliver time events.
var ErrStopped = errors.New("clock stopped")

// Clock provides the current time and one-shot timers.
type Clock interface {
	Now() time.Time
	NewTimer(d time.Duration) Timer
}

// Timer is a single pending time event.
//
// A receive from C that reports a closed channel means the clock failed and
// no further events will arrive.
type Timer interface {
	C() <-chan time.Time
	Stop() bool
}

type realClock struct{}

// Real returns a Clock backed by the time package.
func Real() Clock {
	return realClock{}
}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) NewTimer(d time.Duration) Timer {
	return &realTimer{timer: time.NewTimer(d)}
}

type realTimer struct {
	timer *time.Timer
}

func (timer *realTimer) C() <-chan time.Time {
	return timer.timer.C
}

func (timer *realTimer) Stop() bool {
	return timer.timer.Stop()
}
