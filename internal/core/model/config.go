package model

import "time"

// CycleSettings defines the Focus/Break cycle driven by the phase engine.
type CycleSettings struct {
	Focus      time.Duration
	Break      time.Duration
	MicroBreak time.Duration

	// MicroBreakEvery replaces every Nth break with a micro-break. Zero
	// disables micro-breaks.
	MicroBreakEvery int

	// HardBreak forbids skipping or snoozing breaks.
	HardBreak bool
	Snooze    time.Duration
}

// Normalize clamps negative values and guarantees a non-empty Focus phase.
func (settings CycleSettings) Normalize() CycleSettings {
	settings.Focus = wholeSeconds(settings.Focus)
	settings.Break = wholeSeconds(settings.Break)
	settings.MicroBreak = wholeSeconds(settings.MicroBreak)
	settings.Snooze = wholeSeconds(settings.Snooze)
	if settings.Focus < time.Second {
		settings.Focus = time.Second
	}
	if settings.MicroBreakEvery < 0 {
		settings.MicroBreakEvery = 0
	}
	return settings
}

// MicroBreakDue reports whether the break following the given cycle is a
// micro-break.
func (settings CycleSettings) MicroBreakDue(cycle int) bool {
	return settings.MicroBreakEvery > 0 && cycle > 0 && cycle%settings.MicroBreakEvery == 0
}

func wholeSeconds(value time.Duration) time.Duration {
	if value <= 0 {
		return 0
	}
	return value.Truncate(time.Second)
}
