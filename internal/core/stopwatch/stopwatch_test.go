package stopwatch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"runepause/internal/core/clock"
)

func newTestStopwatch() (*Stopwatch, *clock.Fake) {
	fake := clock.NewFake(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	return New(fake), fake
}

func TestStopwatchElapsedWhileRunning(t *testing.T) {
	watch, fake := newTestStopwatch()
	watch.Start(time.Minute)

	fake.Advance(10 * time.Second)
	status := watch.Status()

	assert.True(t, status.Running)
	assert.False(t, status.Paused)
	assert.Equal(t, 10*time.Second, status.Elapsed)
	assert.Equal(t, 50*time.Second, status.Remaining)
	assert.False(t, status.Done)
}

func TestStopwatchPauseExcludesPausedTime(t *testing.T) {
	watch, fake := newTestStopwatch()
	watch.Start(0)

	fake.Advance(3 * time.Second)
	watch.Pause()
	fake.Advance(100 * time.Second)
	watch.Resume()
	fake.Advance(2 * time.Second)
	watch.Pause()
	fake.Advance(time.Hour)
	watch.Resume()
	fake.Advance(5 * time.Second)

	assert.Equal(t, 10*time.Second, watch.Elapsed())
}

func TestStopwatchStatusPollingDoesNotDoubleCount(t *testing.T) {
	watch, fake := newTestStopwatch()
	watch.Start(0)

	for i := 0; i < 20; i++ {
		fake.Advance(250 * time.Millisecond)
		watch.Status()
		watch.Status()
	}

	assert.Equal(t, 5*time.Second, watch.Elapsed())
}

func TestStopwatchRedundantCallsAreNoOps(t *testing.T) {
	watch, fake := newTestStopwatch()

	watch.Pause()
	watch.Resume()
	assert.Equal(t, Status{}, watch.Status())

	watch.Start(0)
	fake.Advance(time.Second)
	watch.Resume()
	fake.Advance(time.Second)
	watch.Pause()
	watch.Pause()
	fake.Advance(time.Minute)

	status := watch.Status()
	require.True(t, status.Paused)
	assert.Equal(t, 2*time.Second, status.Elapsed)
}

func TestStopwatchStopResets(t *testing.T) {
	watch, fake := newTestStopwatch()
	watch.Start(time.Minute)
	fake.Advance(20 * time.Second)

	watch.Stop()
	fake.Advance(20 * time.Second)

	assert.Equal(t, Status{}, watch.Status())
}

func TestStopwatchStartOverwrites(t *testing.T) {
	watch, fake := newTestStopwatch()
	watch.Start(time.Minute)
	fake.Advance(20 * time.Second)
	watch.Pause()

	watch.Start(30 * time.Second)
	fake.Advance(31 * time.Second)

	status := watch.Status()
	assert.False(t, status.Paused)
	assert.Equal(t, 31*time.Second, status.Elapsed)
	assert.Zero(t, status.Remaining)
	assert.True(t, status.Done)
}
