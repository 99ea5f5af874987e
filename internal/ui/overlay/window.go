package overlay

import (
	"image/color"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"runepause/internal/ui/presenter"
)

// Config defines overlay visuals.
type Config struct {
	Opacity    uint8
	Fullscreen bool
}

// ConfigFromSettings maps the persisted opacity fraction to an alpha value.
func ConfigFromSettings(opacity float64, fullscreen bool) Config {
	if opacity < 0 {
		opacity = 0
	}
	if opacity > 1 {
		opacity = 1
	}
	return Config{Opacity: uint8(opacity * 255), Fullscreen: fullscreen}
}

// Callbacks defines overlay action handlers.
type Callbacks struct {
	OnSkip   func()
	OnSnooze func()
}

// Window manages the break overlay. Its methods must run on the fyne
// goroutine.
type Window struct {
	window       fyne.Window
	config       Config
	callbacks    Callbacks
	background   *canvas.Rectangle
	titleLabel   *canvas.Text
	messageLabel *canvas.Text
	timerLabel   *canvas.Text
	skipButton   *widget.Button
	snoozeButton *widget.Button
	visible      bool
}

const (
	overlayWidthFraction  = float32(0.3)
	overlayHeightFraction = float32(0.3)
	defaultScreenWidth    = float32(1920)
	defaultScreenHeight   = float32(1080)
)

type splashWindowDriver interface {
	CreateSplashWindow() fyne.Window
}

// New creates a hidden overlay window.
func New(app fyne.App, config Config, callbacks Callbacks) *Window {
	window := app.NewWindow("RunePause")
	if driver, ok := app.Driver().(splashWindowDriver); ok {
		// Splash windows are undecorated.
		window = driver.CreateSplashWindow()
	}
	if app.Icon() != nil {
		window.SetIcon(app.Icon())
	}
	window.SetPadded(false)

	white := color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	overlay := &Window{
		window:       window,
		config:       config,
		callbacks:    callbacks,
		background:   canvas.NewRectangle(color.NRGBA{A: config.Opacity}),
		titleLabel:   canvas.NewText("Break", white),
		messageLabel: canvas.NewText("", white),
		timerLabel:   canvas.NewText("--:--", color.NRGBA{R: 232, G: 190, B: 66, A: 255}),
	}
	overlay.titleLabel.TextStyle = fyne.TextStyle{Bold: true}
	overlay.titleLabel.TextSize = 28
	overlay.titleLabel.Alignment = fyne.TextAlignCenter
	overlay.messageLabel.TextSize = 16
	overlay.messageLabel.Alignment = fyne.TextAlignCenter
	overlay.timerLabel.TextStyle = fyne.TextStyle{Bold: true, Monospace: true}
	overlay.timerLabel.TextSize = 48
	overlay.timerLabel.Alignment = fyne.TextAlignCenter

	overlay.skipButton = widget.NewButtonWithIcon("Skip", theme.MediaSkipNextIcon(), func() {
		if overlay.callbacks.OnSkip != nil {
			overlay.callbacks.OnSkip()
		}
	})
	overlay.snoozeButton = widget.NewButtonWithIcon("Snooze", theme.HistoryIcon(), func() {
		if overlay.callbacks.OnSnooze != nil {
			overlay.callbacks.OnSnooze()
		}
	})

	content := container.NewCenter(container.NewVBox(
		overlay.titleLabel,
		overlay.messageLabel,
		overlay.timerLabel,
		container.NewCenter(container.NewHBox(overlay.snoozeButton, overlay.skipButton)),
	))
	window.SetContent(container.NewStack(overlay.background, content))
	return overlay
}

// ShowBreak displays the overlay for a break.
func (overlay *Window) ShowBreak(session presenter.Break) {
	overlay.titleLabel.Text = session.Title
	overlay.titleLabel.Refresh()
	overlay.messageLabel.Text = session.Message
	overlay.messageLabel.Refresh()
	overlay.SetRemaining(session.Remaining)
	if session.HardBreak {
		overlay.skipButton.Disable()
		overlay.snoozeButton.Disable()
	} else {
		overlay.skipButton.Enable()
		overlay.snoozeButton.Enable()
	}

	overlay.applyWindowMode()
	overlay.window.Show()
	overlay.window.RequestFocus()
	overlay.applyNativeOpacity(overlay.config.Opacity)
	overlay.visible = true
}

// SetRemaining updates the countdown label.
func (overlay *Window) SetRemaining(remaining time.Duration) {
	overlay.timerLabel.Text = presenter.FormatRemaining(remaining)
	overlay.timerLabel.Refresh()
}

// HideBreak hides the overlay.
func (overlay *Window) HideBreak() {
	if overlay.config.Fullscreen {
		overlay.window.SetFullScreen(false)
	}
	overlay.window.Hide()
	overlay.visible = false
}

// Visible reports whether a break is on screen.
func (overlay *Window) Visible() bool {
	return overlay.visible
}

// UpdateConfig updates overlay visuals.
func (overlay *Window) UpdateConfig(config Config) {
	overlay.config = config
	overlay.background.FillColor = color.NRGBA{A: config.Opacity}
	canvas.Refresh(overlay.background)
	if overlay.visible {
		overlay.applyWindowMode()
		overlay.applyNativeOpacity(config.Opacity)
	}
}

func (overlay *Window) applyWindowMode() {
	if overlay.config.Fullscreen {
		overlay.window.SetFullScreen(true)
		return
	}
	overlay.window.SetFullScreen(false)
	overlay.resizeToScreenFraction()
}

func (overlay *Window) resizeToScreenFraction() {
	screenSize := fyne.NewSize(defaultScreenWidth, defaultScreenHeight)
	canvasSize := overlay.window.Canvas().Size()
	// A screen-sized canvas is the best available proxy for the monitor size.
	if canvasSize.Width >= 1024 && canvasSize.Height >= 720 {
		screenSize = canvasSize
	}

	width := screenSize.Width * overlayWidthFraction
	height := screenSize.Height * overlayHeightFraction
	minSize := overlay.window.Content().MinSize()
	if width < minSize.Width {
		width = minSize.Width
	}
	if height < minSize.Height {
		height = minSize.Height
	}

	overlay.window.Resize(fyne.NewSize(width, height))
	overlay.window.CenterOnScreen()
}
