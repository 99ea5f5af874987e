package server

import (
	"time"

	"runepause/internal/app"
	"runepause/internal/core/stopwatch"
	"runepause/internal/preferences"
)

// StatusBody is the timer state returned by status and control operations.
type StatusBody struct {
	Phase      string `json:"phase" example:"focus"`
	Remaining  int    `json:"seconds_remaining"`
	Total      int    `json:"total_seconds"`
	Cycle      int    `json:"cycle"`
	Running    bool   `json:"running"`
	Paused     bool   `json:"paused"`
	AutoPaused bool   `json:"auto_paused"`
	HardBreak  bool   `json:"hard_break"`
	RunID      string `json:"run_id,omitempty"`
	LastError  string `json:"last_error,omitempty"`
}

func statusBody(status app.Status) StatusBody {
	return StatusBody{
		Phase:      string(status.Phase),
		Remaining:  status.Remaining,
		Total:      status.Total,
		Cycle:      status.Cycle,
		Running:    status.Running,
		Paused:     status.Paused,
		AutoPaused: status.AutoPaused,
		HardBreak:  status.HardBreak,
		RunID:      status.RunID,
		LastError:  status.LastError,
	}
}

// SettingsBody is the wire form of user settings. Durations are whole
// seconds.
type SettingsBody struct {
	Version              int               `json:"version"`
	FocusSeconds         int64             `json:"focus_seconds"`
	BreakSeconds         int64             `json:"break_seconds"`
	MicroBreakSeconds    int64             `json:"micro_break_seconds"`
	MicroBreakEvery      int               `json:"micro_break_every"`
	HardBreak            bool              `json:"hard_break"`
	SnoozeSeconds        int64             `json:"snooze_seconds"`
	IdleEnabled          bool              `json:"idle_enabled"`
	IdleThresholdSeconds int64             `json:"idle_threshold_seconds"`
	Theme                string            `json:"theme"`
	Hotkeys              map[string]string `json:"hotkeys"`
	ObsidianVault        string            `json:"obsidian_vault"`
	WebhookURL           string            `json:"webhook_url"`
	ForceBlocks          []string          `json:"force_blocks"`
	OverlayOpacity       float64           `json:"overlay_opacity"`
	Fullscreen           bool              `json:"fullscreen"`
}

// SettingsPatch carries the settings fields to change. Absent fields keep
// their current value.
type SettingsPatch struct {
	FocusSeconds         *int64            `json:"focus_seconds,omitempty" minimum:"1"`
	BreakSeconds         *int64            `json:"break_seconds,omitempty" minimum:"0"`
	MicroBreakSeconds    *int64            `json:"micro_break_seconds,omitempty" minimum:"0"`
	MicroBreakEvery      *int              `json:"micro_break_every,omitempty" minimum:"0"`
	HardBreak            *bool             `json:"hard_break,omitempty"`
	SnoozeSeconds        *int64            `json:"snooze_seconds,omitempty" minimum:"0"`
	IdleEnabled          *bool             `json:"idle_enabled,omitempty"`
	IdleThresholdSeconds *int64            `json:"idle_threshold_seconds,omitempty" minimum:"0"`
	Theme                *string           `json:"theme,omitempty" enum:"system,light,dark"`
	Hotkeys              map[string]string `json:"hotkeys,omitempty"`
	ObsidianVault        *string           `json:"obsidian_vault,omitempty"`
	WebhookURL           *string           `json:"webhook_url,omitempty"`
	ForceBlocks          []string          `json:"force_blocks,omitempty"`
	OverlayOpacity       *float64          `json:"overlay_opacity,omitempty" minimum:"0.7" maximum:"0.95"`
	Fullscreen           *bool             `json:"fullscreen,omitempty"`
}

func settingsBody(settings preferences.Settings) SettingsBody {
	return SettingsBody{
		Version:              settings.Version,
		FocusSeconds:         int64(settings.FocusDuration / time.Second),
		BreakSeconds:         int64(settings.BreakDuration / time.Second),
		MicroBreakSeconds:    int64(settings.MicroBreakDuration / time.Second),
		MicroBreakEvery:      settings.MicroBreakEvery,
		HardBreak:            settings.HardBreak,
		SnoozeSeconds:        int64(settings.SnoozeDuration / time.Second),
		IdleEnabled:          settings.IdleEnabled,
		IdleThresholdSeconds: int64(settings.IdleThreshold / time.Second),
		Theme:                settings.Theme,
		Hotkeys:              settings.Hotkeys,
		ObsidianVault:        settings.ObsidianVault,
		WebhookURL:           settings.WebhookURL,
		ForceBlocks:          settings.ForceBlocks,
		OverlayOpacity:       settings.OverlayOpacity,
		Fullscreen:           settings.Fullscreen,
	}
}

// Apply returns settings with the patch applied.
func (patch SettingsPatch) Apply(settings preferences.Settings) preferences.Settings {
	settings = settings.Clone()
	setDuration := func(target *time.Duration, value *int64) {
		if value != nil {
			*target = time.Duration(*value) * time.Second
		}
	}
	setDuration(&settings.FocusDuration, patch.FocusSeconds)
	setDuration(&settings.BreakDuration, patch.BreakSeconds)
	setDuration(&settings.MicroBreakDuration, patch.MicroBreakSeconds)
	setDuration(&settings.SnoozeDuration, patch.SnoozeSeconds)
	setDuration(&settings.IdleThreshold, patch.IdleThresholdSeconds)
	if patch.MicroBreakEvery != nil {
		settings.MicroBreakEvery = *patch.MicroBreakEvery
	}
	if patch.HardBreak != nil {
		settings.HardBreak = *patch.HardBreak
	}
	if patch.IdleEnabled != nil {
		settings.IdleEnabled = *patch.IdleEnabled
	}
	if patch.Theme != nil {
		settings.Theme = *patch.Theme
	}
	if patch.Hotkeys != nil {
		if settings.Hotkeys == nil {
			settings.Hotkeys = map[string]string{}
		}
		for action, accelerator := range patch.Hotkeys {
			settings.Hotkeys[action] = accelerator
		}
	}
	if patch.ObsidianVault != nil {
		settings.ObsidianVault = *patch.ObsidianVault
	}
	if patch.WebhookURL != nil {
		settings.WebhookURL = *patch.WebhookURL
	}
	if patch.ForceBlocks != nil {
		settings.ForceBlocks = append([]string{}, patch.ForceBlocks...)
	}
	if patch.OverlayOpacity != nil {
		settings.OverlayOpacity = *patch.OverlayOpacity
	}
	if patch.Fullscreen != nil {
		settings.Fullscreen = *patch.Fullscreen
	}
	return settings
}

// StopwatchBody is the standalone stopwatch state.
type StopwatchBody struct {
	DurationSeconds  float64 `json:"duration_seconds"`
	ElapsedSeconds   float64 `json:"elapsed_seconds"`
	RemainingSeconds float64 `json:"remaining_seconds"`
	Running          bool    `json:"running"`
	Paused           bool    `json:"paused"`
	Done             bool    `json:"done"`
}

func stopwatchBody(status stopwatch.Status) StopwatchBody {
	return StopwatchBody{
		DurationSeconds:  status.Duration.Seconds(),
		ElapsedSeconds:   status.Elapsed.Seconds(),
		RemainingSeconds: status.Remaining.Seconds(),
		Running:          status.Running,
		Paused:           status.Paused,
		Done:             status.Done,
	}
}
