package main

import (
	"errors"
	"log"

	"fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"runepause/internal/app"
	"runepause/internal/core/timekeeper"
	"runepause/internal/preferences"
	"runepause/internal/ui/overlay"
	"runepause/internal/ui/presenter"
	"runepause/internal/ui/settings"
	"runepause/internal/ui/tray"
)

// breakOverlay refreshes the overlay visuals from the current settings
// before each break, so edits made through the API apply to the next break.
type breakOverlay struct {
	*overlay.Window
	controller *app.Controller
}

func (view breakOverlay) ShowBreak(session presenter.Break) {
	current := view.controller.Settings()
	view.UpdateConfig(overlay.ConfigFromSettings(current.OverlayOpacity, current.Fullscreen))
	view.Window.ShowBreak(session)
}

func runDesktop(controller *app.Controller) error {
	fyneApp := fyneapp.NewWithID(appID)
	fyneApp.SetIcon(theme.HistoryIcon())
	desktopApp, ok := fyneApp.(desktop.App)
	if !ok {
		return errors.New("system tray unsupported on this platform; use --headless")
	}

	trayWindow := fyneApp.NewWindow(appName)
	trayWindow.SetContent(widget.NewLabel("RunePause is running in the system tray."))
	trayWindow.SetCloseIntercept(func() {
		trayWindow.Hide()
	})
	trayWindow.Hide()
	desktopApp.SetSystemTrayWindow(trayWindow)

	current := controller.Settings()
	overlayWindow := overlay.New(fyneApp, overlay.ConfigFromSettings(current.OverlayOpacity, current.Fullscreen), overlay.Callbacks{
		OnSkip:   func() { reportAction("skip", controller.Skip()) },
		OnSnooze: func() { reportAction("snooze", controller.Snooze()) },
	})

	prefsWindow := settings.New(fyneApp, current, func(updated preferences.Settings) error {
		if err := controller.UpdateSettings(updated); err != nil {
			return err
		}
		overlayWindow.UpdateConfig(overlay.ConfigFromSettings(updated.OverlayOpacity, updated.Fullscreen))
		return nil
	})

	var trayManager *tray.Manager
	trayManager = tray.New(desktopApp, tray.Callbacks{
		OnStart: func() {
			reportAction("start", controller.Start(controller.Settings()))
		},
		OnStop: func() {
			// Stop waits for listeners that dispatch onto this goroutine.
			go func() { reportAction("stop", controller.Stop()) }()
		},
		OnTogglePause: func() {
			if controller.Status().Paused {
				reportAction("resume", controller.Resume())
			} else {
				reportAction("pause", controller.Pause())
			}
		},
		OnSkip:      func() { reportAction("skip", controller.Skip()) },
		OnSnooze:    func() { reportAction("snooze", controller.Snooze()) },
		OnInterrupt: func() { reportAction("interrupt", controller.Interrupt()) },
		OnSettings: func() {
			prefsWindow.UpdateSettings(controller.Settings())
			prefsWindow.Show()
		},
		OnQuit: func() {
			go func() {
				if err := controller.Stop(); err != nil && !errors.Is(err, app.ErrNotRunning) {
					log.Printf("runepause: stop: %v", err)
				}
				fyne.Do(fyneApp.Quit)
			}()
		},
	})
	desktopApp.SetSystemTrayIcon(theme.HistoryIcon())

	controller.Listen(presenter.New(trayManager, breakOverlay{Window: overlayWindow, controller: controller}, fyne.Do))
	reportAction("start", controller.Start(controller.Settings()))

	fyneApp.Run()
	if err := controller.Stop(); err != nil && !errors.Is(err, app.ErrNotRunning) {
		return err
	}
	return nil
}

// reportAction logs control failures that the user triggered from the tray
// or overlay. Refused skips during hard breaks and clicks that arrive after
// their phase ended are expected.
func reportAction(action string, err error) {
	if err == nil || errors.Is(err, timekeeper.ErrHardBreak) || errors.Is(err, timekeeper.ErrPhaseEnded) {
		return
	}
	log.Printf("runepause: %s: %v", action, err)
}
