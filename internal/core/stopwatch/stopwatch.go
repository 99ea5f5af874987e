// Package stopwatch tracks elapsed running time of a single countdown with
// pause and resume. Elapsed time is computed from clock deltas when read, so
// no background goroutine is needed and reads never affect accuracy.
package stopwatch

import (
	"sync"
	"time"

	"runepause/internal/core/clock"
)

// Status is a point-in-time view of a Stopwatch.
type Status struct {
	Duration  time.Duration
	Elapsed   time.Duration
	Remaining time.Duration
	Running   bool
	Paused    bool
	Done      bool
}

type state struct {
	duration     time.Duration
	accumulated  time.Duration
	running      bool
	paused       bool
	segmentStart time.Time
	elapsed      time.Duration
}

// Stopwatch measures running time across pause/resume segments.
type Stopwatch struct {
	mu    sync.Mutex
	clock clock.Clock
	state state
}

// New creates a stopped Stopwatch. A nil clock uses the real clock.
func New(source clock.Clock) *Stopwatch {
	if source == nil {
		source = clock.Real()
	}
	return &Stopwatch{clock: source}
}

// Start resets the stopwatch and begins a new running segment. A duration
// of zero or less means no target duration.
func (watch *Stopwatch) Start(duration time.Duration) {
	watch.mu.Lock()
	defer watch.mu.Unlock()

	if duration < 0 {
		duration = 0
	}
	watch.state = state{
		duration:     duration,
		running:      true,
		segmentStart: watch.clock.Now(),
	}
}

// Pause folds the current segment into the accumulated time.
func (watch *Stopwatch) Pause() {
	watch.mu.Lock()
	defer watch.mu.Unlock()

	if !watch.state.running || watch.state.paused {
		return
	}
	watch.state.accumulated += watch.segmentLocked(watch.clock.Now())
	watch.state.elapsed = watch.state.accumulated
	watch.state.segmentStart = time.Time{}
	watch.state.paused = true
}

// Resume opens a new running segment.
func (watch *Stopwatch) Resume() {
	watch.mu.Lock()
	defer watch.mu.Unlock()

	if !watch.state.running || !watch.state.paused {
		return
	}
	watch.state.segmentStart = watch.clock.Now()
	watch.state.paused = false
}

// Stop resets the stopwatch to its zero state.
func (watch *Stopwatch) Stop() {
	watch.mu.Lock()
	defer watch.mu.Unlock()
	watch.state = state{}
}

// Status returns the current elapsed time without closing the segment.
func (watch *Stopwatch) Status() Status {
	watch.mu.Lock()
	defer watch.mu.Unlock()

	elapsed := watch.state.accumulated
	if watch.state.running && !watch.state.paused {
		elapsed += watch.segmentLocked(watch.clock.Now())
	}
	watch.state.elapsed = elapsed

	status := Status{
		Duration: watch.state.duration,
		Elapsed:  elapsed,
		Running:  watch.state.running,
		Paused:   watch.state.paused,
	}
	if status.Duration > 0 {
		status.Remaining = status.Duration - elapsed
		if status.Remaining <= 0 {
			status.Remaining = 0
			status.Done = true
		}
	}
	return status
}

// Elapsed is a shorthand for Status().Elapsed.
func (watch *Stopwatch) Elapsed() time.Duration {
	return watch.Status().Elapsed
}

func (watch *Stopwatch) segmentLocked(now time.Time) time.Duration {
	if watch.state.segmentStart.IsZero() {
		return 0
	}
	segment := now.Sub(watch.state.segmentStart)
	if segment < 0 {
		return 0
	}
	return segment
}
