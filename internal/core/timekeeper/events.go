package timekeeper

import "time"

// Phase labels one segment of the work/break cycle.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseFocus      Phase = "focus"
	PhaseBreak      Phase = "break"
	PhaseMicroBreak Phase = "micro_break"
)

// IsBreak reports whether the phase is a break or micro-break.
func (phase Phase) IsBreak() bool {
	return phase == PhaseBreak || phase == PhaseMicroBreak
}

// Outcome describes how a phase ended.
type Outcome string

const (
	OutcomeCompleted   Outcome = "completed"
	OutcomeInterrupted Outcome = "interrupted"
	OutcomeSkipped     Outcome = "skipped"
	OutcomeSnoozed     Outcome = "snoozed"
)

// EventType defines the type of TimeKeeper event.
type EventType string

const (
	EventPhaseStart      EventType = "phase_start"
	EventTick            EventType = "tick"
	EventPhaseEnd        EventType = "phase_end"
	EventPaused          EventType = "paused"
	EventResumed         EventType = "resumed"
	EventAutoPaused      EventType = "auto_paused"
	EventAutoResumed     EventType = "auto_resumed"
	EventIdleError       EventType = "idle_error"
	EventSettingsUpdated EventType = "settings_updated"
)

// Tick is the per-second progress of the current phase.
type Tick struct {
	Phase     Phase `json:"phase"`
	Remaining int   `json:"seconds_remaining"`
	Cycle     int   `json:"cycle"`
}

// RemainingDuration returns Remaining as a time.Duration.
func (tick Tick) RemainingDuration() time.Duration {
	return time.Duration(tick.Remaining) * time.Second
}

// Event represents a TimeKeeper update for observers.
type Event struct {
	Type EventType `json:"type"`
	Tick
	Total     int       `json:"total_seconds"`
	Serial    uint64    `json:"serial"`
	Outcome   Outcome   `json:"outcome,omitempty"`
	HardBreak bool      `json:"hard_break"`
	Message   string    `json:"message,omitempty"`
	At        time.Time `json:"at"`
	RunID     string    `json:"run_id"`
}

// Elapsed returns how many seconds of the phase have been counted down.
func (event Event) Elapsed() int {
	elapsed := event.Total - event.Remaining
	if elapsed < 0 {
		return 0
	}
	return elapsed
}

// Snapshot is the published state of a TimeKeeper.
type Snapshot struct {
	Tick
	Total      int    `json:"total_seconds"`
	Serial     uint64 `json:"serial"`
	Running    bool   `json:"running"`
	Paused     bool   `json:"paused"`
	AutoPaused bool   `json:"auto_paused"`
	HardBreak  bool   `json:"hard_break"`
	RunID      string `json:"run_id,omitempty"`
}

func idleSnapshot() *Snapshot {
	return &Snapshot{Tick: Tick{Phase: PhaseIdle}}
}
