package preferences

import (
	"time"

	"runepause/internal/core/model"
)

// CurrentVersion is the settings schema version written by this build.
const CurrentVersion = 1

// Hotkey actions persisted in Settings.Hotkeys.
const (
	HotkeyStart  = "start"
	HotkeyStop   = "stop"
	HotkeySnooze = "snooze"
)

// Settings defines editable user preferences.
type Settings struct {
	Version int `json:"version"`

	FocusDuration      time.Duration `json:"focus_duration"`
	BreakDuration      time.Duration `json:"break_duration"`
	MicroBreakDuration time.Duration `json:"micro_break_duration"`
	MicroBreakEvery    int           `json:"micro_break_every"`
	HardBreak          bool          `json:"hard_break"`
	SnoozeDuration     time.Duration `json:"snooze_duration"`

	IdleEnabled   bool          `json:"idle_enabled"`
	IdleThreshold time.Duration `json:"idle_threshold"`

	Theme         string            `json:"theme"`
	Hotkeys       map[string]string `json:"hotkeys"`
	ObsidianVault string            `json:"obsidian_vault"`
	WebhookURL    string            `json:"webhook_url"`
	ForceBlocks   []string          `json:"force_blocks"`

	OverlayOpacity float64 `json:"overlay_opacity"`
	Fullscreen     bool    `json:"fullscreen"`
}

// DefaultSettings returns default settings for RunePause.
func DefaultSettings() Settings {
	return Settings{
		Version:            CurrentVersion,
		FocusDuration:      50 * time.Minute,
		BreakDuration:      10 * time.Minute,
		MicroBreakDuration: 2 * time.Minute,
		MicroBreakEvery:    2,
		HardBreak:          true,
		SnoozeDuration:     60 * time.Second,
		IdleEnabled:        true,
		IdleThreshold:      5 * time.Minute,
		Theme:              "system",
		Hotkeys: map[string]string{
			HotkeyStart:  "CmdOrCtrl+Shift+P",
			HotkeyStop:   "CmdOrCtrl+Shift+O",
			HotkeySnooze: "CmdOrCtrl+Shift+S",
		},
		ForceBlocks:    []string{},
		OverlayOpacity: 0.85,
		Fullscreen:     true,
	}
}

// CycleSettings converts settings to the timer engine configuration.
func (settings Settings) CycleSettings() model.CycleSettings {
	return model.CycleSettings{
		Focus:           settings.FocusDuration,
		Break:           settings.BreakDuration,
		MicroBreak:      settings.MicroBreakDuration,
		MicroBreakEvery: settings.MicroBreakEvery,
		HardBreak:       settings.HardBreak,
		Snooze:          settings.SnoozeDuration,
	}.Normalize()
}

// IdleThresholdOrZero returns the idle threshold, or zero when idle
// detection is disabled.
func (settings Settings) IdleThresholdOrZero() time.Duration {
	if !settings.IdleEnabled || settings.IdleThreshold < 0 {
		return 0
	}
	return settings.IdleThreshold
}

// Clone returns a copy that shares no maps or slices with settings.
func (settings Settings) Clone() Settings {
	clone := settings
	if settings.Hotkeys != nil {
		clone.Hotkeys = make(map[string]string, len(settings.Hotkeys))
		for action, accelerator := range settings.Hotkeys {
			clone.Hotkeys[action] = accelerator
		}
	}
	if settings.ForceBlocks != nil {
		clone.ForceBlocks = append([]string{}, settings.ForceBlocks...)
	}
	return clone
}
