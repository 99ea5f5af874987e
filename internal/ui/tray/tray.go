package tray

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/theme"
)

// Callbacks defines tray action handlers.
type Callbacks struct {
	OnStart       func()
	OnStop        func()
	OnTogglePause func()
	OnSkip        func()
	OnSnooze      func()
	OnInterrupt   func()
	OnSettings    func()
	OnQuit        func()
}

// Manager handles system tray state. Its setters must run on the fyne
// goroutine.
type Manager struct {
	app         desktop.App
	statusItem  *fyne.MenuItem
	startItem   *fyne.MenuItem
	pauseItem   *fyne.MenuItem
	skipItem    *fyne.MenuItem
	snoozeItem  *fyne.MenuItem
	endItem     *fyne.MenuItem
	prefsItem   *fyne.MenuItem
	quitItem    *fyne.MenuItem
	callbacks   Callbacks
	running     bool
	paused      bool
	statusLabel string
}

// New creates a tray manager with the provided callbacks.
func New(app desktop.App, callbacks Callbacks) *Manager {
	manager := &Manager{
		app:         app,
		callbacks:   callbacks,
		statusLabel: "Stopped",
	}

	manager.statusItem = fyne.NewMenuItem("", nil)
	manager.statusItem.Disabled = true

	manager.startItem = fyne.NewMenuItem("Start", func() {
		if manager.running {
			invoke(manager.callbacks.OnStop)
			return
		}
		invoke(manager.callbacks.OnStart)
	})
	manager.pauseItem = fyne.NewMenuItem("Pause", func() {
		invoke(manager.callbacks.OnTogglePause)
	})
	manager.pauseItem.Icon = theme.MediaPauseIcon()
	manager.skipItem = fyne.NewMenuItem("Skip", func() {
		invoke(manager.callbacks.OnSkip)
	})
	manager.skipItem.Icon = theme.MediaSkipNextIcon()
	manager.snoozeItem = fyne.NewMenuItem("Snooze break", func() {
		invoke(manager.callbacks.OnSnooze)
	})
	manager.endItem = fyne.NewMenuItem("End phase now", func() {
		invoke(manager.callbacks.OnInterrupt)
	})
	manager.prefsItem = fyne.NewMenuItem("Settings…", func() {
		invoke(manager.callbacks.OnSettings)
	})
	manager.prefsItem.Icon = theme.SettingsIcon()
	manager.quitItem = fyne.NewMenuItem("Quit", func() {
		invoke(manager.callbacks.OnQuit)
	})
	manager.quitItem.IsQuit = true

	manager.applyState()
	manager.SetInBreak(false, false)
	return manager
}

// SetStatus updates the status label.
func (manager *Manager) SetStatus(status string) {
	manager.statusLabel = status
	manager.refreshMenu()
}

// SetRunning toggles the start/stop entry and the run controls.
func (manager *Manager) SetRunning(running bool) {
	manager.running = running
	manager.applyState()
	manager.refreshMenu()
}

// SetPaused updates pause state.
func (manager *Manager) SetPaused(paused bool) {
	manager.paused = paused
	manager.applyState()
	manager.refreshMenu()
}

// SetInBreak toggles break-related menu items. Hard breaks cannot be
// skipped or snoozed from the tray.
func (manager *Manager) SetInBreak(inBreak, hardBreak bool) {
	manager.snoozeItem.Disabled = !inBreak || hardBreak
	manager.skipItem.Disabled = !manager.running || (inBreak && hardBreak)
	if inBreak {
		manager.skipItem.Label = "Skip break"
	} else {
		manager.skipItem.Label = "Skip to break"
	}
	manager.refreshMenu()
}

func (manager *Manager) applyState() {
	if manager.running {
		manager.startItem.Label = "Stop"
		manager.startItem.Icon = theme.MediaStopIcon()
	} else {
		manager.startItem.Label = "Start"
		manager.startItem.Icon = theme.MediaPlayIcon()
	}
	if manager.paused {
		manager.pauseItem.Label = "Resume"
		manager.pauseItem.Icon = theme.MediaPlayIcon()
	} else {
		manager.pauseItem.Label = "Pause"
		manager.pauseItem.Icon = theme.MediaPauseIcon()
	}
	manager.pauseItem.Disabled = !manager.running
	manager.endItem.Disabled = !manager.running
	if !manager.running {
		manager.skipItem.Disabled = true
		manager.snoozeItem.Disabled = true
	}
}

func (manager *Manager) refreshMenu() {
	status := manager.statusLabel
	manager.statusItem.Label = fmt.Sprintf("Status: %s", status)
	if manager.app == nil {
		return
	}
	manager.app.SetSystemTrayMenu(fyne.NewMenu("RunePause",
		manager.statusItem,
		fyne.NewMenuItemSeparator(),
		manager.startItem,
		manager.pauseItem,
		manager.skipItem,
		manager.snoozeItem,
		manager.endItem,
		fyne.NewMenuItemSeparator(),
		manager.prefsItem,
		manager.quitItem,
	))
}

func invoke(callback func()) {
	if callback != nil {
		callback()
	}
}
