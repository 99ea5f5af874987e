package timekeeper

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"runepause/internal/core/clock"
	"runepause/internal/core/model"
	"runepause/internal/core/stopwatch"
)

var (
	// ErrIdleUnsupported indicates idle detection is not available on this system.
	ErrIdleUnsupported = errors.New("idle detection unsupported")
	// ErrAlreadyRunning is returned by a second call to Run.
	ErrAlreadyRunning = errors.New("timekeeper already running")
	// ErrStopped is returned by requests made after Run has returned.
	ErrStopped = errors.New("timekeeper stopped")
	// ErrNotStarted is returned when a request cannot be queued because Run
	// has not started and the command buffer is full.
	ErrNotStarted = errors.New("timekeeper not started")
	// ErrHardBreak is returned when skipping or snoozing a hard break.
	ErrHardBreak = errors.New("hard break cannot be skipped or snoozed")
	// ErrNotInBreak is returned when snoozing outside a break.
	ErrNotInBreak = errors.New("no break in progress")
	// ErrPhaseEnded is returned by Skip and Snooze when the phase they were
	// raised in ended before the request was handled.
	ErrPhaseEnded = errors.New("phase already ended")
)

// IdleChecker reports the duration of user inactivity.
type IdleChecker interface {
	IdleDuration() (time.Duration, error)
}

// UpdatePolicy decides how a settings update affects the running phase.
type UpdatePolicy int

const (
	// ApplyNextPhase leaves the running phase untouched.
	ApplyNextPhase UpdatePolicy = iota
	// ApplyImmediately re-targets the running phase to the new duration.
	ApplyImmediately
)

// Config contains runtime options for TimeKeeper.
type Config struct {
	Clock             clock.Clock
	IdleChecker       IdleChecker
	IdleThreshold     time.Duration
	IdleCheckInterval time.Duration
	UpdatePolicy      UpdatePolicy
	RunID             string
	CommandBuffer     int
}

// TimeKeeper drives the Focus/Break cycle. All cycle state is owned by the
// goroutine executing Run; other goroutines talk to it through commands and
// read the atomically published Snapshot.
type TimeKeeper struct {
	options  Config
	settings atomic.Pointer[model.CycleSettings]
	snapshot atomic.Pointer[Snapshot]
	commands chan command
	hub      *hub
	started  atomic.Bool
	done     chan struct{}
}

type commandKind int

const (
	commandPause commandKind = iota
	commandResume
	commandInterrupt
	commandSkip
	commandSnooze
	commandSettings
)

type command struct {
	kind   commandKind
	serial uint64
	reply  chan error
}

// runState is only touched by the Run goroutine.
type runState struct {
	settings      model.CycleSettings
	phase         Phase
	serial        uint64
	cycle         int
	total         int
	remaining     int
	paused        bool
	autoPaused    bool
	idleEnabled   bool
	lastIdleCheck time.Time
	watch         *stopwatch.Stopwatch
}

// New creates a TimeKeeper with the provided configuration. Commands sent
// before Run starts are queued up to Config.CommandBuffer; beyond that they
// are dropped instead of blocking the caller.
func New(settings model.CycleSettings, options Config) *TimeKeeper {
	if options.Clock == nil {
		options.Clock = clock.Real()
	}
	if options.IdleCheckInterval <= 0 {
		options.IdleCheckInterval = 5 * time.Second
	}
	if options.CommandBuffer <= 0 {
		options.CommandBuffer = 32
	}

	keeper := &TimeKeeper{
		options:  options,
		commands: make(chan command, options.CommandBuffer),
		hub:      newHub(),
		done:     make(chan struct{}),
	}
	normalized := settings.Normalize()
	keeper.settings.Store(&normalized)
	keeper.snapshot.Store(idleSnapshot())
	return keeper
}

// Subscribe registers a new observer. Only events published after the call
// are delivered.
func (keeper *TimeKeeper) Subscribe(buffer int) *Subscription {
	return keeper.hub.subscribe(buffer)
}

// Status returns the latest published state.
func (keeper *TimeKeeper) Status() Snapshot {
	return *keeper.snapshot.Load()
}

// Settings returns the settings used for phases that have not started yet.
func (keeper *TimeKeeper) Settings() model.CycleSettings {
	return *keeper.settings.Load()
}

// Done is closed when Run returns.
func (keeper *TimeKeeper) Done() <-chan struct{} {
	return keeper.done
}

// Pause freezes the countdown. The pause carries over phase boundaries.
func (keeper *TimeKeeper) Pause() {
	keeper.send(command{kind: commandPause})
}

// Resume unfreezes the countdown.
func (keeper *TimeKeeper) Resume() {
	keeper.send(command{kind: commandResume})
}

// Interrupt ends the phase that is active at the time of the call. The
// cycle continues with the next phase.
func (keeper *TimeKeeper) Interrupt() {
	keeper.send(command{kind: commandInterrupt, serial: keeper.Status().Serial})
}

// Skip ends the current phase unless it is a hard break. Like Interrupt it
// only applies to the phase active at the time of the call.
func (keeper *TimeKeeper) Skip() error {
	return keeper.request(command{kind: commandSkip, serial: keeper.Status().Serial})
}

// Snooze postpones the current break by the snooze duration.
func (keeper *TimeKeeper) Snooze() error {
	return keeper.request(command{kind: commandSnooze, serial: keeper.Status().Serial})
}

// UpdateSettings replaces the settings used for phases not yet started.
func (keeper *TimeKeeper) UpdateSettings(settings model.CycleSettings) {
	normalized := settings.Normalize()
	keeper.settings.Store(&normalized)
	keeper.send(command{kind: commandSettings})
}

func (keeper *TimeKeeper) send(cmd command) error {
	select {
	case <-keeper.done:
		return ErrStopped
	default:
	}
	if !keeper.started.Load() {
		select {
		case keeper.commands <- cmd:
			return nil
		default:
			return ErrNotStarted
		}
	}
	select {
	case keeper.commands <- cmd:
		return nil
	case <-keeper.done:
		return ErrStopped
	}
}

func (keeper *TimeKeeper) request(cmd command) error {
	cmd.reply = make(chan error, 1)
	if err := keeper.send(cmd); err != nil {
		return err
	}
	select {
	case err := <-cmd.reply:
		return err
	case <-keeper.done:
		return ErrStopped
	}
}

// Run drives the cycle until ctx is cancelled or the clock fails. On return
// the published state is reset and all subscriptions are closed.
func (keeper *TimeKeeper) Run(ctx context.Context) error {
	if !keeper.started.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer func() {
		keeper.snapshot.Store(idleSnapshot())
		keeper.hub.close()
		close(keeper.done)
	}()

	run := &runState{
		watch:       stopwatch.New(keeper.options.Clock),
		idleEnabled: keeper.options.IdleChecker != nil && keeper.options.IdleThreshold > 0,
	}

	for {
		run.cycle++
		if _, err := keeper.runPhase(ctx, run, PhaseFocus); err != nil {
			return err
		}

		breakPhase := PhaseBreak
		if keeper.Settings().MicroBreakDue(run.cycle) {
			breakPhase = PhaseMicroBreak
		}
		for {
			outcome, err := keeper.runPhase(ctx, run, breakPhase)
			if err != nil {
				return err
			}
			if outcome != OutcomeSnoozed {
				break
			}
			if _, err := keeper.runPhase(ctx, run, PhaseIdle); err != nil {
				return err
			}
		}
	}
}

func (keeper *TimeKeeper) runPhase(ctx context.Context, run *runState, phase Phase) (Outcome, error) {
	run.settings = keeper.Settings()
	run.phase = phase
	run.serial++
	run.total = phaseSeconds(phase, run.settings)
	run.remaining = run.total
	run.autoPaused = false
	run.lastIdleCheck = time.Time{}
	run.watch.Start(0)
	keeper.syncWatch(run)

	keeper.emit(run, Event{Type: EventPhaseStart})

	for run.remaining > 0 {
		var timer clock.Timer
		var wake <-chan time.Time
		switch {
		case run.autoPaused:
			timer = keeper.options.Clock.NewTimer(keeper.options.IdleCheckInterval)
		case run.paused:
		default:
			boundary := time.Duration(run.total-run.remaining+1) * time.Second
			timer = keeper.options.Clock.NewTimer(boundary - run.watch.Elapsed())
		}
		if timer != nil {
			wake = timer.C()
		}

		select {
		case <-ctx.Done():
			stopTimer(timer)
			return "", ctx.Err()
		case now, ok := <-wake:
			if !ok {
				return "", fmt.Errorf("%s phase: %w", phase, clock.ErrStopped)
			}
			if run.autoPaused {
				keeper.pollIdle(run)
				continue
			}
			keeper.advance(run)
			keeper.checkIdle(run, now)
		case cmd := <-keeper.commands:
			stopTimer(timer)
			if outcome, ended := keeper.handle(run, cmd); ended {
				keeper.emit(run, Event{Type: EventPhaseEnd, Outcome: outcome})
				return outcome, nil
			}
		}
	}

	keeper.emit(run, Event{Type: EventPhaseEnd, Outcome: OutcomeCompleted})
	return OutcomeCompleted, nil
}

// advance recomputes the remaining whole seconds from the stopwatch, so a
// late wake-up never accumulates drift.
func (keeper *TimeKeeper) advance(run *runState) {
	remaining := run.total - int(run.watch.Elapsed()/time.Second)
	if remaining < 0 {
		remaining = 0
	}
	if remaining >= run.remaining {
		return
	}
	run.remaining = remaining
	keeper.emit(run, Event{Type: EventTick})
}

func (keeper *TimeKeeper) handle(run *runState, cmd command) (Outcome, bool) {
	switch cmd.kind {
	case commandPause:
		if run.paused {
			return "", false
		}
		run.paused = true
		keeper.syncWatch(run)
		keeper.emit(run, Event{Type: EventPaused})
	case commandResume:
		if !run.paused {
			return "", false
		}
		run.paused = false
		keeper.syncWatch(run)
		keeper.emit(run, Event{Type: EventResumed})
	case commandInterrupt:
		if cmd.serial == run.serial {
			return OutcomeInterrupted, true
		}
	case commandSkip:
		if cmd.serial != run.serial {
			cmd.reply <- ErrPhaseEnded
			return "", false
		}
		if run.phase.IsBreak() && run.settings.HardBreak {
			cmd.reply <- ErrHardBreak
			return "", false
		}
		cmd.reply <- nil
		return OutcomeSkipped, true
	case commandSnooze:
		switch {
		case cmd.serial != run.serial:
			cmd.reply <- ErrPhaseEnded
		case !run.phase.IsBreak():
			cmd.reply <- ErrNotInBreak
		case run.settings.HardBreak:
			cmd.reply <- ErrHardBreak
		default:
			cmd.reply <- nil
			return OutcomeSnoozed, true
		}
	case commandSettings:
		if keeper.options.UpdatePolicy == ApplyImmediately {
			keeper.retarget(run)
		}
		keeper.emit(run, Event{Type: EventSettingsUpdated})
	}
	return "", false
}

func (keeper *TimeKeeper) retarget(run *runState) {
	run.settings = keeper.Settings()
	elapsed := run.total - run.remaining
	run.total = phaseSeconds(run.phase, run.settings)
	run.remaining = run.total - elapsed
	if run.remaining < 0 {
		run.remaining = 0
	}
}

func (keeper *TimeKeeper) checkIdle(run *runState, now time.Time) {
	if !run.idleEnabled || run.phase != PhaseFocus || run.paused || run.remaining == 0 {
		return
	}
	if !run.lastIdleCheck.IsZero() && now.Sub(run.lastIdleCheck) < keeper.options.IdleCheckInterval {
		return
	}
	run.lastIdleCheck = now

	idle, ok := keeper.queryIdle(run)
	if !ok || idle < keeper.options.IdleThreshold {
		return
	}
	run.autoPaused = true
	keeper.syncWatch(run)
	keeper.emit(run, Event{Type: EventAutoPaused, Message: fmt.Sprintf("idle for %s", idle.Truncate(time.Second))})
}

func (keeper *TimeKeeper) pollIdle(run *runState) {
	idle, ok := keeper.queryIdle(run)
	if ok && idle >= keeper.options.IdleThreshold {
		return
	}
	run.autoPaused = false
	keeper.syncWatch(run)
	keeper.emit(run, Event{Type: EventAutoResumed})
}

func (keeper *TimeKeeper) queryIdle(run *runState) (time.Duration, bool) {
	idle, err := keeper.options.IdleChecker.IdleDuration()
	if err == nil {
		return idle, true
	}
	if errors.Is(err, ErrIdleUnsupported) {
		run.idleEnabled = false
	}
	log.Printf("timekeeper: idle check: %v", err)
	keeper.emit(run, Event{Type: EventIdleError, Message: err.Error()})
	return 0, false
}

func (keeper *TimeKeeper) syncWatch(run *runState) {
	if run.paused || run.autoPaused {
		run.watch.Pause()
		return
	}
	run.watch.Resume()
}

func (keeper *TimeKeeper) emit(run *runState, event Event) {
	event.Tick = Tick{Phase: run.phase, Remaining: run.remaining, Cycle: run.cycle}
	event.Total = run.total
	event.Serial = run.serial
	event.HardBreak = run.phase.IsBreak() && run.settings.HardBreak
	event.At = keeper.options.Clock.Now()
	event.RunID = keeper.options.RunID

	keeper.snapshot.Store(&Snapshot{
		Tick:       event.Tick,
		Total:      run.total,
		Serial:     run.serial,
		Running:    true,
		Paused:     run.paused,
		AutoPaused: run.autoPaused,
		HardBreak:  event.HardBreak,
		RunID:      keeper.options.RunID,
	})
	keeper.hub.emit(event)
}

func phaseSeconds(phase Phase, settings model.CycleSettings) int {
	var duration time.Duration
	switch phase {
	case PhaseFocus:
		duration = settings.Focus
	case PhaseBreak:
		duration = settings.Break
	case PhaseMicroBreak:
		duration = settings.MicroBreak
	case PhaseIdle:
		duration = settings.Snooze
	}
	return int(duration / time.Second)
}

func stopTimer(timer clock.Timer) {
	if timer != nil {
		timer.Stop()
	}
}
