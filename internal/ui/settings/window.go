// Package settings is the fyne settings window.
package settings

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/widget"

	"runepause/internal/preferences"
)

// Window handles the settings UI. Its methods must run on the fyne
// goroutine.
type Window struct {
	window      fyne.Window
	settings    preferences.Settings
	onSave      func(preferences.Settings) error
	focus       *widget.Entry
	breakLen    *widget.Entry
	microLen    *widget.Entry
	microEvery  *widget.Entry
	snooze      *widget.Entry
	idleMinutes *widget.Entry
	hardBreak   *widget.Check
	idleCheck   *widget.Check
	fullscreen  *widget.Check
	opacity     *widget.Slider
	vault       *widget.Entry
	webhook     *widget.Entry
	errorLabel  *widget.Label
}

// New creates a hidden settings window. onSave persists the edited
// settings; an error keeps the window open and is shown to the user.
func New(app fyne.App, settings preferences.Settings, onSave func(preferences.Settings) error) *Window {
	window := app.NewWindow("RunePause Settings")

	prefs := &Window{
		window:      window,
		onSave:      onSave,
		focus:       widget.NewEntry(),
		breakLen:    widget.NewEntry(),
		microLen:    widget.NewEntry(),
		microEvery:  widget.NewEntry(),
		snooze:      widget.NewEntry(),
		idleMinutes: widget.NewEntry(),
		hardBreak:   widget.NewCheck("Hard breaks (no skip or snooze)", nil),
		idleCheck:   widget.NewCheck("Pause while away", nil),
		fullscreen:  widget.NewCheck("Fullscreen overlay", nil),
		opacity:     widget.NewSlider(0.7, 0.95),
		vault:       widget.NewEntry(),
		webhook:     widget.NewEntry(),
		errorLabel:  widget.NewLabel(""),
	}
	prefs.opacity.Step = 0.01
	prefs.vault.SetPlaceHolder("Obsidian vault folder")
	prefs.webhook.SetPlaceHolder("https://example.com/hook")
	prefs.errorLabel.Wrapping = fyne.TextWrapWord
	prefs.errorLabel.Hide()

	row := func(label string, entry *widget.Entry, unit string) fyne.CanvasObject {
		return container.NewBorder(nil, nil, widget.NewLabel(label), widget.NewLabel(unit), entry)
	}
	form := container.NewVBox(
		widget.NewLabelWithStyle("Cycle", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		row("Focus", prefs.focus, "min"),
		row("Break", prefs.breakLen, "min"),
		row("Micro-break", prefs.microLen, "sec"),
		row("Micro-break every", prefs.microEvery, "focus phases"),
		row("Snooze", prefs.snooze, "sec"),
		prefs.hardBreak,
		widget.NewLabelWithStyle("Idle", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		prefs.idleCheck,
		row("Away after", prefs.idleMinutes, "min"),
		widget.NewLabelWithStyle("Overlay", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		widget.NewLabel("Opacity"),
		prefs.opacity,
		prefs.fullscreen,
		widget.NewLabelWithStyle("Integrations", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		prefs.vault,
		prefs.webhook,
		prefs.errorLabel,
	)

	saveButton := widget.NewButton("Save", prefs.handleSave)
	saveButton.Importance = widget.HighImportance
	cancelButton := widget.NewButton("Cancel", func() {
		window.Hide()
	})
	buttons := container.NewHBox(cancelButton, layout.NewSpacer(), saveButton)

	window.SetContent(container.NewBorder(nil, buttons, nil, nil, container.NewVScroll(form)))
	window.Resize(fyne.NewSize(440, 560))
	window.SetCloseIntercept(window.Hide)

	prefs.UpdateSettings(settings)
	return prefs
}

// Show displays the settings window.
func (prefs *Window) Show() {
	prefs.window.Show()
	prefs.window.RequestFocus()
}

// UpdateSettings replaces window values.
func (prefs *Window) UpdateSettings(settings preferences.Settings) {
	prefs.settings = settings.Clone()
	prefs.focus.SetText(formatUnits(settings.FocusDuration, time.Minute))
	prefs.breakLen.SetText(formatUnits(settings.BreakDuration, time.Minute))
	prefs.microLen.SetText(formatUnits(settings.MicroBreakDuration, time.Second))
	prefs.microEvery.SetText(strconv.Itoa(settings.MicroBreakEvery))
	prefs.snooze.SetText(formatUnits(settings.SnoozeDuration, time.Second))
	prefs.idleMinutes.SetText(formatUnits(settings.IdleThreshold, time.Minute))
	prefs.hardBreak.SetChecked(settings.HardBreak)
	prefs.idleCheck.SetChecked(settings.IdleEnabled)
	prefs.fullscreen.SetChecked(settings.Fullscreen)
	prefs.opacity.SetValue(settings.OverlayOpacity)
	prefs.vault.SetText(settings.ObsidianVault)
	prefs.webhook.SetText(settings.WebhookURL)
	prefs.errorLabel.Hide()
}

func (prefs *Window) handleSave() {
	settings, err := prefs.collect()
	if err == nil && prefs.onSave != nil {
		err = prefs.onSave(settings)
	}
	if err != nil {
		prefs.errorLabel.SetText(err.Error())
		prefs.errorLabel.Show()
		return
	}
	prefs.settings = settings
	prefs.errorLabel.Hide()
	prefs.window.Hide()
}

func (prefs *Window) collect() (preferences.Settings, error) {
	settings := prefs.settings.Clone()
	fields := []struct {
		name   string
		entry  *widget.Entry
		unit   time.Duration
		target *time.Duration
		min    int
	}{
		{"focus", prefs.focus, time.Minute, &settings.FocusDuration, 1},
		{"break", prefs.breakLen, time.Minute, &settings.BreakDuration, 0},
		{"micro-break", prefs.microLen, time.Second, &settings.MicroBreakDuration, 0},
		{"snooze", prefs.snooze, time.Second, &settings.SnoozeDuration, 0},
		{"away after", prefs.idleMinutes, time.Minute, &settings.IdleThreshold, 0},
	}
	for _, field := range fields {
		value, err := parseCount(field.entry.Text, field.min)
		if err != nil {
			return settings, fmt.Errorf("%s: %w", field.name, err)
		}
		*field.target = time.Duration(value) * field.unit
	}
	every, err := parseCount(prefs.microEvery.Text, 0)
	if err != nil {
		return settings, fmt.Errorf("micro-break every: %w", err)
	}
	settings.MicroBreakEvery = every

	settings.HardBreak = prefs.hardBreak.Checked
	settings.IdleEnabled = prefs.idleCheck.Checked
	settings.Fullscreen = prefs.fullscreen.Checked
	settings.OverlayOpacity = prefs.opacity.Value
	settings.ObsidianVault = strings.TrimSpace(prefs.vault.Text)
	settings.WebhookURL = strings.TrimSpace(prefs.webhook.Text)
	return settings, nil
}

func formatUnits(value, unit time.Duration) string {
	return strconv.FormatInt(int64(value/unit), 10)
}

func parseCount(value string, min int) (int, error) {
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("%q is not a whole number", value)
	}
	if parsed < min {
		return 0, fmt.Errorf("must be at least %d", min)
	}
	return parsed, nil
}
