package timekeeper

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"runepause/internal/core/clock"
	"runepause/internal/core/model"
)

const waitTimeout = 2 * time.Second

var epoch = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

type harness struct {
	t      *testing.T
	keeper *TimeKeeper
	fake   *clock.Fake
	sub    *Subscription
	errc   chan error
}

func startKeeper(t *testing.T, settings model.CycleSettings, configure func(*Config)) *harness {
	t.Helper()
	fake := clock.NewFake(epoch)
	options := Config{Clock: fake, RunID: "run-test"}
	if configure != nil {
		configure(&options)
	}
	keeper := New(settings, options)
	h := &harness{
		t:      t,
		keeper: keeper,
		fake:   fake,
		sub:    keeper.Subscribe(1024),
		errc:   make(chan error, 1),
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		h.errc <- keeper.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-keeper.Done():
		case <-time.After(waitTimeout):
			t.Error("timekeeper did not stop")
		}
	})
	return h
}

// advance waits for the engine to arm its timer, then moves the clock.
func (h *harness) advance(d time.Duration) {
	h.t.Helper()
	require.True(h.t, h.fake.BlockUntil(1, waitTimeout), "timekeeper never armed a timer")
	h.fake.Advance(d)
}

// tick advances one second and waits for the resulting countdown event, so
// commands sent afterwards are ordered behind it.
func (h *harness) tick() Event {
	h.t.Helper()
	h.advance(time.Second)
	return h.next(EventTick)
}

func (h *harness) ticks(n int) {
	h.t.Helper()
	for i := 0; i < n; i++ {
		h.tick()
	}
}

// sync orders the test behind every command sent so far.
func (h *harness) sync() {
	h.t.Helper()
	h.keeper.Pause()
	h.next(EventPaused)
	h.keeper.Resume()
	h.next(EventResumed)
}

// next returns the next event of one of the given types, skipping others.
func (h *harness) next(types ...EventType) Event {
	h.t.Helper()
	return nextFrom(h.t, h.sub, types...)
}

func nextFrom(t *testing.T, sub *Subscription, types ...EventType) Event {
	t.Helper()
	deadline := time.After(waitTimeout)
	for {
		select {
		case event, ok := <-sub.C():
			require.True(t, ok, "subscription closed while waiting for %v", types)
			if len(types) == 0 {
				return event
			}
			for _, want := range types {
				if event.Type == want {
					return event
				}
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %v", types)
			return Event{}
		}
	}
}

func shortCycle() model.CycleSettings {
	return model.CycleSettings{
		Focus:           10 * time.Second,
		Break:           3 * time.Second,
		MicroBreak:      time.Second,
		MicroBreakEvery: 0,
		Snooze:          2 * time.Second,
	}
}

func TestPhaseSequenceWithMicroBreaks(t *testing.T) {
	settings := model.CycleSettings{
		Focus:           25 * time.Minute,
		Break:           5 * time.Minute,
		MicroBreak:      2 * time.Minute,
		MicroBreakEvery: 4,
	}
	h := startKeeper(t, settings, nil)

	type step struct {
		phase Phase
		cycle int
	}
	var got []step
	for len(got) < 9 {
		event := h.next(EventPhaseStart)
		got = append(got, step{event.Phase, event.Cycle})
		if len(got) < 9 {
			h.advance(event.RemainingDuration())
		}
	}

	assert.Equal(t, []step{
		{PhaseFocus, 1}, {PhaseBreak, 1},
		{PhaseFocus, 2}, {PhaseBreak, 2},
		{PhaseFocus, 3}, {PhaseBreak, 3},
		{PhaseFocus, 4}, {PhaseMicroBreak, 4},
		{PhaseFocus, 5},
	}, got)
}

func TestTicksCountDownOncePerSecond(t *testing.T) {
	settings := shortCycle()
	settings.Focus = 3 * time.Second
	h := startKeeper(t, settings, nil)

	start := h.next(EventPhaseStart)
	assert.Equal(t, 3, start.Remaining)
	assert.Equal(t, 3, start.Total)
	assert.Equal(t, "run-test", start.RunID)

	var remaining []int
	for i := 0; i < 3; i++ {
		h.advance(time.Second)
		remaining = append(remaining, h.next(EventTick).Remaining)
	}
	assert.Equal(t, []int{2, 1, 0}, remaining)

	end := h.next()
	assert.Equal(t, EventPhaseEnd, end.Type)
	assert.Equal(t, OutcomeCompleted, end.Outcome)
	assert.Equal(t, 3, end.Elapsed())

	brk := h.next()
	assert.Equal(t, EventPhaseStart, brk.Type)
	assert.Equal(t, PhaseBreak, brk.Phase)
	assert.Equal(t, 3, brk.Remaining)
}

func TestLateWakeUpCatchesUpWithoutDrift(t *testing.T) {
	h := startKeeper(t, shortCycle(), nil)
	h.next(EventPhaseStart)

	h.advance(1500 * time.Millisecond)
	assert.Equal(t, 9, h.next(EventTick).Remaining)

	// The next boundary is 500ms away, not a full second.
	h.advance(500 * time.Millisecond)
	assert.Equal(t, 8, h.next(EventTick).Remaining)

	h.advance(4 * time.Second)
	assert.Equal(t, 4, h.next(EventTick).Remaining)
}

func TestInterruptEndsOnlyCurrentPhase(t *testing.T) {
	h := startKeeper(t, shortCycle(), nil)
	h.next(EventPhaseStart)
	h.ticks(3)

	h.keeper.Interrupt()

	end := h.next()
	assert.Equal(t, EventPhaseEnd, end.Type)
	assert.Equal(t, OutcomeInterrupted, end.Outcome)
	assert.Equal(t, PhaseFocus, end.Phase)
	assert.Equal(t, 7, end.Remaining)

	brk := h.next(EventPhaseStart)
	assert.Equal(t, PhaseBreak, brk.Phase)
	assert.Equal(t, 1, brk.Cycle)

	// The break runs normally: the interrupt was consumed.
	h.advance(time.Second)
	tick := h.next(EventTick, EventPhaseEnd)
	assert.Equal(t, EventTick, tick.Type)
	assert.Equal(t, 2, tick.Remaining)
}

func TestStaleInterruptIsIgnored(t *testing.T) {
	h := startKeeper(t, shortCycle(), nil)
	start := h.next(EventPhaseStart)

	h.keeper.send(command{kind: commandInterrupt, serial: start.Serial + 5})
	h.sync()
	h.advance(time.Second)

	event := h.next(EventTick, EventPhaseEnd)
	assert.Equal(t, EventTick, event.Type)
	assert.Equal(t, 9, event.Remaining)
}

func TestSkipAndSnoozeFromEndedPhaseAreRefused(t *testing.T) {
	h := startKeeper(t, shortCycle(), nil)
	h.next(EventPhaseStart)
	require.NoError(t, h.keeper.Skip())
	require.Equal(t, PhaseBreak, h.next(EventPhaseStart).Phase)
	raisedIn := h.keeper.Status().Serial

	h.ticks(2)
	h.advance(time.Second)
	assert.Equal(t, OutcomeCompleted, h.next(EventPhaseEnd).Outcome)
	require.Equal(t, PhaseFocus, h.next(EventPhaseStart).Phase)

	assert.ErrorIs(t, h.keeper.request(command{kind: commandSkip, serial: raisedIn}), ErrPhaseEnded)
	assert.ErrorIs(t, h.keeper.request(command{kind: commandSnooze, serial: raisedIn}), ErrPhaseEnded)

	event := h.tick()
	assert.Equal(t, PhaseFocus, event.Phase)
	assert.Equal(t, 9, event.Remaining)
	assert.Equal(t, 2, event.Cycle)
}

func TestCommandsBeforeRunDoNotBlock(t *testing.T) {
	keeper := New(shortCycle(), Config{Clock: clock.NewFake(epoch), CommandBuffer: 1})
	result := make(chan error, 1)
	go func() {
		keeper.Pause()
		keeper.Resume()
		keeper.UpdateSettings(shortCycle())
		result <- keeper.Skip()
	}()

	select {
	case err := <-result:
		assert.ErrorIs(t, err, ErrNotStarted)
	case <-time.After(waitTimeout):
		t.Fatal("command blocked before Run started")
	}
}

func TestInterruptBeforeRunHasNoEffect(t *testing.T) {
	fake := clock.NewFake(epoch)
	keeper := New(shortCycle(), Config{Clock: fake})
	sub := keeper.Subscribe(64)
	keeper.Interrupt()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go keeper.Run(ctx)

	nextFrom(t, sub, EventPhaseStart)
	keeper.Pause()
	nextFrom(t, sub, EventPaused)
	keeper.Resume()
	nextFrom(t, sub, EventResumed)

	require.True(t, fake.BlockUntil(1, waitTimeout))
	fake.Advance(time.Second)
	event := nextFrom(t, sub, EventTick, EventPhaseEnd)
	assert.Equal(t, EventTick, event.Type)
	assert.Equal(t, 9, event.Remaining)
}

func TestCycleCountNeverDecreases(t *testing.T) {
	h := startKeeper(t, shortCycle(), nil)

	last := 0
	for i := 0; i < 6; i++ {
		start := h.next(EventPhaseStart)
		assert.GreaterOrEqual(t, start.Cycle, last)
		if start.Phase == PhaseFocus {
			assert.Equal(t, last+1, start.Cycle)
		}
		last = start.Cycle
		h.keeper.Interrupt()
		h.next(EventPhaseEnd)
	}
	assert.Equal(t, 3, last)
}

func TestPauseFreezesCountdown(t *testing.T) {
	h := startKeeper(t, shortCycle(), nil)
	h.next(EventPhaseStart)
	h.ticks(2)

	h.keeper.Pause()
	paused := h.next(EventPaused)
	assert.Equal(t, 8, paused.Remaining)
	assert.True(t, h.keeper.Status().Paused)
	assert.Zero(t, h.fake.Pending())

	h.fake.Advance(time.Hour)
	h.keeper.Pause()
	h.keeper.Resume()
	h.next(EventResumed)

	assert.Equal(t, 7, h.tick().Remaining)
	assert.False(t, h.keeper.Status().Paused)
}

func TestPauseCarriesAcrossPhaseBoundary(t *testing.T) {
	h := startKeeper(t, shortCycle(), nil)
	h.next(EventPhaseStart)
	h.keeper.Pause()
	h.next(EventPaused)

	require.NoError(t, h.keeper.Skip())
	brk := h.next(EventPhaseStart)
	assert.Equal(t, PhaseBreak, brk.Phase)
	assert.True(t, h.keeper.Status().Paused)
	assert.Zero(t, h.fake.Pending())

	h.keeper.Resume()
	h.next(EventResumed)
	h.advance(time.Second)
	assert.Equal(t, 2, h.next(EventTick).Remaining)
}

func TestSubscriptionMidPhaseSeesOnlyFutureTicks(t *testing.T) {
	h := startKeeper(t, shortCycle(), nil)
	h.next(EventPhaseStart)
	h.ticks(4)
	current := h.keeper.Status().Remaining
	require.Equal(t, 6, current)

	late := h.keeper.Subscribe(64)
	h.ticks(2)

	for i := 0; i < 2; i++ {
		event := nextFrom(t, late, EventTick)
		assert.Less(t, event.Remaining, current+1)
	}
}

func TestHardBreakRefusesSkipAndSnooze(t *testing.T) {
	settings := shortCycle()
	settings.HardBreak = true
	h := startKeeper(t, settings, nil)

	h.next(EventPhaseStart)
	require.NoError(t, h.keeper.Skip())
	brk := h.next(EventPhaseStart)
	require.Equal(t, PhaseBreak, brk.Phase)
	assert.True(t, brk.HardBreak)

	assert.ErrorIs(t, h.keeper.Skip(), ErrHardBreak)
	assert.ErrorIs(t, h.keeper.Snooze(), ErrHardBreak)

	h.keeper.Interrupt()
	end := h.next(EventPhaseEnd)
	assert.Equal(t, OutcomeInterrupted, end.Outcome)
	assert.Equal(t, PhaseFocus, h.next(EventPhaseStart).Phase)
}

func TestSnoozeInsertsIdlePhaseAndRepeatsBreak(t *testing.T) {
	h := startKeeper(t, shortCycle(), nil)
	h.next(EventPhaseStart)

	assert.ErrorIs(t, h.keeper.Snooze(), ErrNotInBreak)

	require.NoError(t, h.keeper.Skip())
	h.next(EventPhaseStart)
	h.tick()

	require.NoError(t, h.keeper.Snooze())
	end := h.next(EventPhaseEnd)
	assert.Equal(t, OutcomeSnoozed, end.Outcome)

	idle := h.next(EventPhaseStart)
	assert.Equal(t, PhaseIdle, idle.Phase)
	assert.Equal(t, 2, idle.Total)
	assert.Equal(t, 1, idle.Cycle)

	h.advance(2 * time.Second)
	repeat := h.next(EventPhaseStart)
	assert.Equal(t, PhaseBreak, repeat.Phase)
	assert.Equal(t, 3, repeat.Remaining)
	assert.Equal(t, 1, repeat.Cycle)
}

func TestSettingsUpdateAppliesToNextPhase(t *testing.T) {
	h := startKeeper(t, shortCycle(), nil)
	h.next(EventPhaseStart)
	h.ticks(2)

	updated := shortCycle()
	updated.Focus = 20 * time.Second
	updated.Break = 7 * time.Second
	h.keeper.UpdateSettings(updated)
	event := h.next(EventSettingsUpdated)
	assert.Equal(t, 10, event.Total)
	assert.Equal(t, 8, event.Remaining)

	h.advance(8 * time.Second)
	assert.Equal(t, OutcomeCompleted, h.next(EventPhaseEnd).Outcome)
	brk := h.next(EventPhaseStart)
	assert.Equal(t, 7, brk.Total)

	h.advance(7 * time.Second)
	focus := h.next(EventPhaseStart)
	assert.Equal(t, PhaseFocus, focus.Phase)
	assert.Equal(t, 20, focus.Total)
}

func TestSettingsUpdateImmediatePolicy(t *testing.T) {
	h := startKeeper(t, shortCycle(), func(options *Config) {
		options.UpdatePolicy = ApplyImmediately
	})
	h.next(EventPhaseStart)
	h.ticks(4)

	updated := shortCycle()
	updated.Focus = 6 * time.Second
	h.keeper.UpdateSettings(updated)
	event := h.next(EventSettingsUpdated)
	assert.Equal(t, 6, event.Total)
	assert.Equal(t, 2, event.Remaining)

	updated.Focus = 3 * time.Second
	h.keeper.UpdateSettings(updated)
	h.next(EventSettingsUpdated)
	assert.Equal(t, OutcomeCompleted, h.next(EventPhaseEnd).Outcome)
	assert.Equal(t, PhaseBreak, h.next(EventPhaseStart).Phase)
}

type fakeIdle struct {
	mu    sync.Mutex
	idle  time.Duration
	err   error
	calls int
}

func (idle *fakeIdle) set(value time.Duration) {
	idle.mu.Lock()
	defer idle.mu.Unlock()
	idle.idle = value
}

func (idle *fakeIdle) IdleDuration() (time.Duration, error) {
	idle.mu.Lock()
	defer idle.mu.Unlock()
	idle.calls++
	return idle.idle, idle.err
}

func (idle *fakeIdle) callCount() int {
	idle.mu.Lock()
	defer idle.mu.Unlock()
	return idle.calls
}

func TestIdleAutoPauseAndResume(t *testing.T) {
	idle := &fakeIdle{}
	h := startKeeper(t, shortCycle(), func(options *Config) {
		options.IdleChecker = idle
		options.IdleThreshold = 5 * time.Minute
		options.IdleCheckInterval = 5 * time.Second
	})
	h.next(EventPhaseStart)

	idle.set(10 * time.Minute)
	h.advance(time.Second)
	assert.Equal(t, 9, h.next(EventTick).Remaining)
	h.next(EventAutoPaused)
	assert.True(t, h.keeper.Status().AutoPaused)

	h.advance(5 * time.Second)
	require.Eventually(t, func() bool { return idle.callCount() >= 2 }, waitTimeout, time.Millisecond)
	assert.True(t, h.keeper.Status().AutoPaused)

	idle.set(0)
	h.advance(5 * time.Second)
	resumed := h.next(EventAutoResumed)
	assert.Equal(t, 9, resumed.Remaining)

	assert.Equal(t, 8, h.tick().Remaining)
}

func TestIdleUnsupportedDisablesChecks(t *testing.T) {
	idle := &fakeIdle{err: ErrIdleUnsupported}
	h := startKeeper(t, shortCycle(), func(options *Config) {
		options.IdleChecker = idle
		options.IdleThreshold = time.Minute
		options.IdleCheckInterval = time.Second
	})
	h.next(EventPhaseStart)

	assert.Equal(t, 9, h.tick().Remaining)
	failure := h.next()
	assert.Equal(t, EventIdleError, failure.Type)
	assert.Equal(t, ErrIdleUnsupported.Error(), failure.Message)

	assert.Equal(t, 8, h.tick().Remaining)
	assert.Equal(t, 7, h.tick().Remaining)
	assert.Equal(t, 1, idle.callCount())
}

func TestClockFailureStopsRun(t *testing.T) {
	h := startKeeper(t, shortCycle(), nil)
	h.next(EventPhaseStart)
	require.True(t, h.fake.BlockUntil(1, waitTimeout))

	h.fake.Halt()

	select {
	case err := <-h.errc:
		assert.True(t, errors.Is(err, clock.ErrStopped))
	case <-time.After(waitTimeout):
		t.Fatal("run did not stop on clock failure")
	}
	for range h.sub.C() {
	}
	assert.Equal(t, Snapshot{Tick: Tick{Phase: PhaseIdle}}, h.keeper.Status())
	assert.ErrorIs(t, h.keeper.Skip(), ErrStopped)
}

func TestRunTwiceFails(t *testing.T) {
	h := startKeeper(t, shortCycle(), nil)
	h.next(EventPhaseStart)
	assert.ErrorIs(t, h.keeper.Run(context.Background()), ErrAlreadyRunning)
}

func TestStatusTracksEngineState(t *testing.T) {
	fake := clock.NewFake(epoch)
	keeper := New(shortCycle(), Config{Clock: fake})
	assert.Equal(t, PhaseIdle, keeper.Status().Phase)
	assert.False(t, keeper.Status().Running)

	sub := keeper.Subscribe(64)
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- keeper.Run(ctx) }()

	nextFrom(t, sub, EventPhaseStart)
	status := keeper.Status()
	assert.True(t, status.Running)
	assert.Equal(t, PhaseFocus, status.Phase)
	assert.Equal(t, 10, status.Remaining)
	assert.Equal(t, 1, status.Cycle)

	cancel()
	assert.ErrorIs(t, <-errc, context.Canceled)
	assert.False(t, keeper.Status().Running)
}
