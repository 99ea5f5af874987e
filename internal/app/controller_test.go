package app

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"runepause/internal/core/clock"
	"runepause/internal/core/timekeeper"
	"runepause/internal/preferences"
)

const waitTimeout = 2 * time.Second

type memoryStore struct {
	mu       sync.Mutex
	settings preferences.Settings
	saveErr  error
	saves    int
}

func (store *memoryStore) Load() preferences.Settings {
	store.mu.Lock()
	defer store.mu.Unlock()
	return store.settings.Clone()
}

func (store *memoryStore) Save(settings preferences.Settings) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	if store.saveErr != nil {
		return store.saveErr
	}
	store.saves++
	store.settings = settings.Clone()
	return nil
}

type eventLog struct {
	events chan timekeeper.Event
}

func newEventLog() *eventLog {
	return &eventLog{events: make(chan timekeeper.Event, 256)}
}

func (log *eventLog) OnEvent(event timekeeper.Event) {
	log.events <- event
}

func (log *eventLog) next(t *testing.T, eventType timekeeper.EventType) timekeeper.Event {
	t.Helper()
	deadline := time.After(waitTimeout)
	for {
		select {
		case event := <-log.events:
			if event.Type == eventType {
				return event
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", eventType)
			return timekeeper.Event{}
		}
	}
}

func quickSettings() preferences.Settings {
	settings := preferences.DefaultSettings()
	settings.FocusDuration = 10 * time.Second
	settings.BreakDuration = 5 * time.Second
	settings.MicroBreakEvery = 0
	settings.IdleEnabled = false
	return settings
}

func newTestController(t *testing.T, configure func(*Options)) (*Controller, *clock.Fake, *memoryStore, *eventLog) {
	t.Helper()
	fake := clock.NewFake(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	store := &memoryStore{settings: quickSettings()}
	options := Options{Store: store, Clock: fake}
	if configure != nil {
		configure(&options)
	}
	controller := New(options)
	events := newEventLog()
	controller.Listen(events)
	t.Cleanup(func() { _ = controller.Stop() })
	return controller, fake, store, events
}

func TestControlsRequireRun(t *testing.T) {
	controller, _, _, _ := newTestController(t, nil)

	assert.ErrorIs(t, controller.Pause(), ErrNotRunning)
	assert.ErrorIs(t, controller.Resume(), ErrNotRunning)
	assert.ErrorIs(t, controller.Interrupt(), ErrNotRunning)
	assert.ErrorIs(t, controller.Skip(), ErrNotRunning)
	assert.ErrorIs(t, controller.Snooze(), ErrNotRunning)
	assert.ErrorIs(t, controller.Stop(), ErrNotRunning)
	_, err := controller.Subscribe(1)
	assert.ErrorIs(t, err, ErrNotRunning)

	status := controller.Status()
	assert.Equal(t, timekeeper.PhaseIdle, status.Phase)
	assert.False(t, status.Running)
}

func TestStartRunsListenersAndStop(t *testing.T) {
	controller, fake, _, events := newTestController(t, nil)
	require.NoError(t, controller.Start(controller.Settings()))
	assert.ErrorIs(t, controller.Start(controller.Settings()), timekeeper.ErrAlreadyRunning)

	start := events.next(t, timekeeper.EventPhaseStart)
	assert.Equal(t, timekeeper.PhaseFocus, start.Phase)
	assert.NotEmpty(t, start.RunID)

	require.True(t, fake.BlockUntil(1, waitTimeout))
	fake.Advance(time.Second)
	assert.Equal(t, 9, events.next(t, timekeeper.EventTick).Remaining)

	status := controller.Status()
	assert.True(t, status.Running)
	assert.Equal(t, 9, status.Remaining)
	assert.Equal(t, start.RunID, status.RunID)

	require.NoError(t, controller.Stop())
	assert.False(t, controller.Running())
	assert.Equal(t, timekeeper.PhaseIdle, controller.Status().Phase)

	require.NoError(t, controller.Start(controller.Settings()))
	assert.NotEqual(t, start.RunID, events.next(t, timekeeper.EventPhaseStart).RunID)
}

func TestSkipAndSnoozeThroughController(t *testing.T) {
	controller, _, _, events := newTestController(t, nil)
	settings := quickSettings()
	settings.HardBreak = true
	require.NoError(t, controller.Start(settings))
	events.next(t, timekeeper.EventPhaseStart)

	assert.ErrorIs(t, controller.Snooze(), timekeeper.ErrNotInBreak)
	require.NoError(t, controller.Skip())
	brk := events.next(t, timekeeper.EventPhaseStart)
	require.Equal(t, timekeeper.PhaseBreak, brk.Phase)
	assert.ErrorIs(t, controller.Skip(), timekeeper.ErrHardBreak)

	require.NoError(t, controller.Interrupt())
	assert.Equal(t, timekeeper.OutcomeInterrupted, events.next(t, timekeeper.EventPhaseEnd).Outcome)
}

func TestPauseAndResumeThroughController(t *testing.T) {
	controller, _, _, events := newTestController(t, nil)
	require.NoError(t, controller.Start(controller.Settings()))
	events.next(t, timekeeper.EventPhaseStart)

	require.NoError(t, controller.Pause())
	events.next(t, timekeeper.EventPaused)
	assert.True(t, controller.Status().Paused)

	require.NoError(t, controller.Resume())
	events.next(t, timekeeper.EventResumed)
	assert.False(t, controller.Status().Paused)
}

func TestUpdateSettingsPersistsAndApplies(t *testing.T) {
	controller, fake, store, events := newTestController(t, nil)
	require.NoError(t, controller.Start(controller.Settings()))
	events.next(t, timekeeper.EventPhaseStart)

	updated := controller.Settings()
	updated.BreakDuration = 7 * time.Second
	require.NoError(t, controller.UpdateSettings(updated))
	events.next(t, timekeeper.EventSettingsUpdated)

	assert.Equal(t, 7*time.Second, store.Load().BreakDuration)
	assert.Equal(t, 7*time.Second, controller.Settings().BreakDuration)

	require.True(t, fake.BlockUntil(1, waitTimeout))
	fake.Advance(10 * time.Second)
	assert.Equal(t, 7, events.next(t, timekeeper.EventPhaseStart).Total)
}

func TestUpdateSettingsKeepsPreviousOnSaveFailure(t *testing.T) {
	controller, _, store, _ := newTestController(t, nil)
	store.saveErr = errors.New("disk full")

	updated := controller.Settings()
	updated.FocusDuration = time.Hour
	err := controller.UpdateSettings(updated)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, 10*time.Second, controller.Settings().FocusDuration)
}

func TestClockFailureIsReported(t *testing.T) {
	controller, fake, _, events := newTestController(t, nil)
	require.NoError(t, controller.Start(controller.Settings()))
	events.next(t, timekeeper.EventPhaseStart)
	require.True(t, fake.BlockUntil(1, waitTimeout))

	fake.Halt()

	require.Eventually(t, func() bool {
		return controller.Status().LastError != ""
	}, waitTimeout, time.Millisecond)
	status := controller.Status()
	assert.Contains(t, status.LastError, clock.ErrStopped.Error())
	assert.False(t, status.Running)
	assert.False(t, controller.Running())
}

func TestCollaboratorsBuiltPerRun(t *testing.T) {
	var mu sync.Mutex
	var seen []time.Duration
	collaborator := newEventLog()
	controller, _, _, _ := newTestController(t, func(options *Options) {
		options.Collaborators = func(settings preferences.Settings) []Listener {
			mu.Lock()
			defer mu.Unlock()
			seen = append(seen, settings.FocusDuration)
			return []Listener{collaborator}
		}
	})

	settings := quickSettings()
	settings.FocusDuration = 42 * time.Second
	require.NoError(t, controller.Start(settings))
	assert.Equal(t, 42, collaborator.next(t, timekeeper.EventPhaseStart).Total)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []time.Duration{42 * time.Second}, seen)
}

type constantIdle struct{ idle time.Duration }

func (idle constantIdle) IdleDuration() (time.Duration, error) {
	return idle.idle, nil
}

func TestIdleCheckerUsedOnlyWhenEnabled(t *testing.T) {
	controller, fake, _, events := newTestController(t, func(options *Options) {
		options.Idle = constantIdle{idle: time.Hour}
	})

	require.NoError(t, controller.Start(quickSettings()))
	events.next(t, timekeeper.EventPhaseStart)
	require.True(t, fake.BlockUntil(1, waitTimeout))
	fake.Advance(time.Second)
	events.next(t, timekeeper.EventTick)
	require.NoError(t, controller.Stop())

	settings := quickSettings()
	settings.IdleEnabled = true
	settings.IdleThreshold = time.Minute
	require.NoError(t, controller.Start(settings))
	events.next(t, timekeeper.EventPhaseStart)
	require.True(t, fake.BlockUntil(1, waitTimeout))
	fake.Advance(time.Second)
	events.next(t, timekeeper.EventAutoPaused)
}

func TestSubscribeFollowsActiveRun(t *testing.T) {
	controller, fake, _, events := newTestController(t, nil)
	require.NoError(t, controller.Start(controller.Settings()))
	events.next(t, timekeeper.EventPhaseStart)

	sub, err := controller.Subscribe(8)
	require.NoError(t, err)
	require.True(t, fake.BlockUntil(1, waitTimeout))
	fake.Advance(time.Second)

	select {
	case event := <-sub.C():
		assert.Equal(t, timekeeper.EventTick, event.Type)
	case <-time.After(waitTimeout):
		t.Fatal("no event on subscription")
	}

	require.NoError(t, controller.Stop())
	for range sub.C() {
	}
}

func TestStopwatchIsShared(t *testing.T) {
	controller, fake, _, _ := newTestController(t, nil)
	controller.Stopwatch().Start(time.Minute)
	fake.Advance(10 * time.Second)

	status := controller.Stopwatch().Status()
	assert.Equal(t, 10*time.Second, status.Elapsed)
	assert.Equal(t, 50*time.Second, status.Remaining)
}

type endingLog struct {
	*eventLog
	ended chan struct{}
}

func (log endingLog) OnRunEnd() {
	close(log.ended)
}

func TestRunEndListenerNotified(t *testing.T) {
	controller, _, _, events := newTestController(t, nil)
	ending := endingLog{eventLog: newEventLog(), ended: make(chan struct{})}
	controller.Listen(ending)

	require.NoError(t, controller.Start(controller.Settings()))
	events.next(t, timekeeper.EventPhaseStart)
	require.NoError(t, controller.Stop())

	select {
	case <-ending.ended:
	default:
		t.Fatal("run end not reported before Stop returned")
	}
}
