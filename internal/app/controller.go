// Package app hosts the Controller: the single control surface shared by
// the tray, the overlay, the HTTP API and the CLI.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"runepause/internal/core/clock"
	"runepause/internal/core/stopwatch"
	"runepause/internal/core/timekeeper"
	"runepause/internal/preferences"
)

// ErrNotRunning is returned by run controls when no timer is active.
var ErrNotRunning = errors.New("timer not running")

// Listener consumes the events of a run. Each listener gets its own
// subscription and goroutine, so a slow listener only delays itself.
type Listener interface {
	OnEvent(event timekeeper.Event)
}

// RunEndListener is implemented by listeners that want to know when the
// run they observe has ended, whether stopped or failed.
type RunEndListener interface {
	OnRunEnd()
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(event timekeeper.Event)

// OnEvent calls fn(event).
func (fn ListenerFunc) OnEvent(event timekeeper.Event) {
	fn(event)
}

// SettingsStore loads and saves user preferences.
type SettingsStore interface {
	Load() preferences.Settings
	Save(settings preferences.Settings) error
}

// Options configure a Controller.
type Options struct {
	Store             SettingsStore
	Clock             clock.Clock
	Idle              timekeeper.IdleChecker
	IdleCheckInterval time.Duration
	UpdatePolicy      timekeeper.UpdatePolicy
	// ListenerBuffer is the subscription size of each listener.
	ListenerBuffer int
	// Collaborators builds the per-run listeners from the settings the run
	// starts with.
	Collaborators func(settings preferences.Settings) []Listener
}

// Status is the controller view of the timer.
type Status struct {
	timekeeper.Snapshot
	LastError string `json:"last_error,omitempty"`
}

// Controller owns at most one timer run at a time.
type Controller struct {
	options Options
	watch   *stopwatch.Stopwatch

	mu        sync.Mutex
	settings  preferences.Settings
	run       *activeRun
	lastErr   error
	listeners []Listener
}

type activeRun struct {
	keeper  *timekeeper.TimeKeeper
	cancel  context.CancelFunc
	drained sync.WaitGroup
}

// New creates a Controller and loads settings from the store.
func New(options Options) *Controller {
	if options.Clock == nil {
		options.Clock = clock.Real()
	}
	if options.ListenerBuffer <= 0 {
		options.ListenerBuffer = 64
	}
	settings := preferences.DefaultSettings()
	if options.Store != nil {
		settings = options.Store.Load()
	}
	return &Controller{
		options:  options,
		watch:    stopwatch.New(options.Clock),
		settings: settings,
	}
}

// Listen attaches a listener to every run started after the call.
func (controller *Controller) Listen(listener Listener) {
	controller.mu.Lock()
	defer controller.mu.Unlock()
	controller.listeners = append(controller.listeners, listener)
}

// Start begins a run with settings. The settings become the current
// in-memory settings but are not persisted.
func (controller *Controller) Start(settings preferences.Settings) error {
	controller.mu.Lock()
	defer controller.mu.Unlock()

	if controller.run != nil {
		return timekeeper.ErrAlreadyRunning
	}
	controller.settings = settings.Clone()

	config := timekeeper.Config{
		Clock:             controller.options.Clock,
		IdleCheckInterval: controller.options.IdleCheckInterval,
		UpdatePolicy:      controller.options.UpdatePolicy,
		RunID:             uuid.NewString(),
	}
	if threshold := settings.IdleThresholdOrZero(); threshold > 0 && controller.options.Idle != nil {
		config.IdleChecker = controller.options.Idle
		config.IdleThreshold = threshold
	}
	keeper := timekeeper.New(settings.CycleSettings(), config)

	listeners := append([]Listener{}, controller.listeners...)
	if controller.options.Collaborators != nil {
		listeners = append(listeners, controller.options.Collaborators(settings)...)
	}

	ctx, cancel := context.WithCancel(context.Background())
	run := &activeRun{keeper: keeper, cancel: cancel}
	for _, listener := range listeners {
		sub := keeper.Subscribe(controller.options.ListenerBuffer)
		run.drained.Add(1)
		go func(listener Listener) {
			defer run.drained.Done()
			for event := range sub.C() {
				listener.OnEvent(event)
			}
			if ender, ok := listener.(RunEndListener); ok {
				ender.OnRunEnd()
			}
		}(listener)
	}

	controller.run = run
	controller.lastErr = nil
	go controller.drive(ctx, run)
	return nil
}

func (controller *Controller) drive(ctx context.Context, run *activeRun) {
	err := run.keeper.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return
	}
	log.Printf("app: timer stopped: %v", err)

	controller.mu.Lock()
	defer controller.mu.Unlock()
	if controller.run == run {
		controller.run = nil
		controller.lastErr = err
	}
	run.cancel()
}

// Stop ends the active run and waits until every listener has drained.
func (controller *Controller) Stop() error {
	controller.mu.Lock()
	run := controller.run
	controller.run = nil
	controller.mu.Unlock()

	if run == nil {
		return ErrNotRunning
	}
	run.cancel()
	<-run.keeper.Done()
	run.drained.Wait()
	return nil
}

// Running reports whether a run is active.
func (controller *Controller) Running() bool {
	return controller.active() != nil
}

func (controller *Controller) active() *timekeeper.TimeKeeper {
	controller.mu.Lock()
	defer controller.mu.Unlock()
	if controller.run == nil {
		return nil
	}
	return controller.run.keeper
}

// Pause freezes the active run.
func (controller *Controller) Pause() error {
	keeper := controller.active()
	if keeper == nil {
		return ErrNotRunning
	}
	keeper.Pause()
	return nil
}

// Resume unfreezes the active run.
func (controller *Controller) Resume() error {
	keeper := controller.active()
	if keeper == nil {
		return ErrNotRunning
	}
	keeper.Resume()
	return nil
}

// Interrupt ends the current phase of the active run.
func (controller *Controller) Interrupt() error {
	keeper := controller.active()
	if keeper == nil {
		return ErrNotRunning
	}
	keeper.Interrupt()
	return nil
}

// Skip ends the current phase unless it is a hard break.
func (controller *Controller) Skip() error {
	keeper := controller.active()
	if keeper == nil {
		return ErrNotRunning
	}
	return keeper.Skip()
}

// Snooze postpones the current break.
func (controller *Controller) Snooze() error {
	keeper := controller.active()
	if keeper == nil {
		return ErrNotRunning
	}
	return keeper.Snooze()
}

// Status returns the timer state and the error that ended the last run,
// if any.
func (controller *Controller) Status() Status {
	controller.mu.Lock()
	defer controller.mu.Unlock()

	status := Status{Snapshot: timekeeper.Snapshot{Tick: timekeeper.Tick{Phase: timekeeper.PhaseIdle}}}
	if controller.run != nil {
		status.Snapshot = controller.run.keeper.Status()
	}
	if controller.lastErr != nil {
		status.LastError = controller.lastErr.Error()
	}
	return status
}

// Settings returns a copy of the current settings.
func (controller *Controller) Settings() preferences.Settings {
	controller.mu.Lock()
	defer controller.mu.Unlock()
	return controller.settings.Clone()
}

// UpdateSettings persists settings and applies them to the active run. When
// saving fails the previous settings stay in effect.
func (controller *Controller) UpdateSettings(settings preferences.Settings) error {
	settings = settings.Clone()
	settings.Version = preferences.CurrentVersion
	if controller.options.Store != nil {
		if err := controller.options.Store.Save(settings); err != nil {
			return fmt.Errorf("save settings: %w", err)
		}
	}

	controller.mu.Lock()
	controller.settings = settings
	run := controller.run
	controller.mu.Unlock()

	if run != nil {
		run.keeper.UpdateSettings(settings.CycleSettings())
	}
	return nil
}

// Subscribe attaches an observer to the active run. The subscription is
// closed when the run ends.
func (controller *Controller) Subscribe(buffer int) (*timekeeper.Subscription, error) {
	keeper := controller.active()
	if keeper == nil {
		return nil, ErrNotRunning
	}
	return keeper.Subscribe(buffer), nil
}

// Stopwatch returns the standalone stopwatch.
func (controller *Controller) Stopwatch() *stopwatch.Stopwatch {
	return controller.watch
}
