// Package presenter turns timer events into tray and overlay updates. It
// holds no toolkit types, so the same logic drives fyne widgets and tests.
package presenter

import (
	"fmt"
	"sync"
	"time"

	"runepause/internal/core/timekeeper"
)

// StatusView is the tray side of the presentation.
type StatusView interface {
	SetStatus(text string)
	SetPaused(paused bool)
	SetRunning(running bool)
	SetInBreak(inBreak, hardBreak bool)
}

// Break describes the overlay for one break phase.
type Break struct {
	Title     string
	Message   string
	Remaining time.Duration
	HardBreak bool
}

// BreakView is the overlay side of the presentation.
type BreakView interface {
	ShowBreak(session Break)
	SetRemaining(remaining time.Duration)
	HideBreak()
}

// Presenter implements the controller listener contract.
type Presenter struct {
	status   StatusView
	overlay  BreakView
	dispatch func(func())

	mu      sync.Mutex
	showing bool
}

// New returns a Presenter. dispatch runs view updates on the UI goroutine;
// nil runs them inline.
func New(status StatusView, overlay BreakView, dispatch func(func())) *Presenter {
	if dispatch == nil {
		dispatch = func(fn func()) { fn() }
	}
	return &Presenter{status: status, overlay: overlay, dispatch: dispatch}
}

// OnEvent updates the views for one engine event.
func (presenter *Presenter) OnEvent(event timekeeper.Event) {
	presenter.mu.Lock()
	defer presenter.mu.Unlock()

	text := StatusText(event)
	paused := event.Type == timekeeper.EventPaused || event.Type == timekeeper.EventAutoPaused
	switch event.Type {
	case timekeeper.EventPhaseStart:
		presenter.phaseStart(event, text)
	case timekeeper.EventTick:
		remaining := event.RemainingDuration()
		showing := presenter.showing
		presenter.dispatch(func() {
			presenter.status.SetStatus(text)
			if showing {
				presenter.overlay.SetRemaining(remaining)
			}
		})
	case timekeeper.EventPaused, timekeeper.EventResumed, timekeeper.EventAutoPaused, timekeeper.EventAutoResumed:
		presenter.dispatch(func() {
			presenter.status.SetPaused(paused)
			presenter.status.SetStatus(text)
		})
	}
}

func (presenter *Presenter) phaseStart(event timekeeper.Event, text string) {
	inBreak := event.Phase.IsBreak()
	wasShowing := presenter.showing
	presenter.showing = inBreak
	session := Break{
		Title:     PhaseName(event.Phase),
		Message:   breakMessage(event),
		Remaining: event.RemainingDuration(),
		HardBreak: event.HardBreak,
	}
	presenter.dispatch(func() {
		presenter.status.SetRunning(true)
		presenter.status.SetStatus(text)
		presenter.status.SetInBreak(inBreak, event.HardBreak)
		switch {
		case inBreak:
			presenter.overlay.ShowBreak(session)
		case wasShowing:
			presenter.overlay.HideBreak()
		}
	})
}

// OnRunEnd resets the views after a run ends.
func (presenter *Presenter) OnRunEnd() {
	presenter.mu.Lock()
	defer presenter.mu.Unlock()

	wasShowing := presenter.showing
	presenter.showing = false
	presenter.dispatch(func() {
		presenter.status.SetRunning(false)
		presenter.status.SetPaused(false)
		presenter.status.SetInBreak(false, false)
		presenter.status.SetStatus("Stopped")
		if wasShowing {
			presenter.overlay.HideBreak()
		}
	})
}

// PhaseName returns the user-facing phase label.
func PhaseName(phase timekeeper.Phase) string {
	switch phase {
	case timekeeper.PhaseFocus:
		return "Focus"
	case timekeeper.PhaseBreak:
		return "Break"
	case timekeeper.PhaseMicroBreak:
		return "Micro-break"
	case timekeeper.PhaseIdle:
		return "Snoozed"
	default:
		return string(phase)
	}
}

// StatusText renders the tray status line, e.g. "Focus 24:59".
func StatusText(event timekeeper.Event) string {
	text := fmt.Sprintf("%s %s", PhaseName(event.Phase), FormatRemaining(event.RemainingDuration()))
	switch event.Type {
	case timekeeper.EventPaused:
		text += " (paused)"
	case timekeeper.EventAutoPaused:
		text += " (away)"
	}
	return text
}

// FormatRemaining renders a countdown as MM:SS.
func FormatRemaining(value time.Duration) string {
	if value < 0 {
		value = 0
	}
	seconds := int(value.Seconds())
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

func breakMessage(event timekeeper.Event) string {
	switch {
	case event.HardBreak:
		return "Step away from the screen. This break cannot be skipped."
	case event.Phase == timekeeper.PhaseMicroBreak:
		return "Look away and relax your eyes."
	default:
		return "Time to stand up and stretch."
	}
}
