package tray

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"

	"autotimer/internal/core/model"
)

const menuTitle = "Autotimer"

// Callbacks defines tray action handlers.
type Callbacks struct {
	OnShow             func()
	OnToggle           func()
	OnStop             func()
	OnReset            func()
	OnTestNotification func()
	OnPreferences      func()
	OnQuit             func()
}

// Manager handles system tray state.
type Manager struct {
	app        desktop.App
	statusItem *fyne.MenuItem
	toggleItem *fyne.MenuItem
	stopItem   *fyne.MenuItem
	callbacks  Callbacks
	phase      model.Phase
	status     string
}

// New creates a tray manager with the provided callbacks.
func New(app desktop.App, callbacks Callbacks) *Manager {
	manager := &Manager{
		app:       app,
		callbacks: callbacks,
		phase:     model.PhaseIdle,
		status:    "starting...",
	}

	manager.statusItem = fyne.NewMenuItem("", nil)
	manager.statusItem.Disabled = true
	manager.toggleItem = fyne.NewMenuItem("", invoke(&manager.callbacks.OnToggle))
	manager.stopItem = fyne.NewMenuItem("Stop", invoke(&manager.callbacks.OnStop))

	manager.refreshLabels()
	manager.refreshMenu()
	return manager
}

// SetStatus updates the status label, usually the remaining time.
func (manager *Manager) SetStatus(status string) {
	manager.status = status
	manager.refreshLabels()
	manager.refreshMenu()
}

// SetPhase updates the toggle item to match the timer phase.
func (manager *Manager) SetPhase(phase model.Phase) {
	if manager.phase == phase {
		return
	}
	manager.phase = phase
	manager.refreshLabels()
	manager.refreshMenu()
}

// ToggleLabel returns the toggle action offered for phase.
func ToggleLabel(phase model.Phase) string {
	switch phase {
	case model.PhaseRunning:
		return "Pause"
	case model.PhasePaused:
		return "Resume"
	default:
		return "Start"
	}
}

func (manager *Manager) refreshLabels() {
	status := manager.status
	if manager.phase == model.PhasePaused {
		status = fmt.Sprintf("%s (paused)", status)
	}
	manager.statusItem.Label = fmt.Sprintf("Status: %s", status)
	manager.toggleItem.Label = ToggleLabel(manager.phase)
	manager.stopItem.Disabled = manager.phase == model.PhaseIdle
}

func (manager *Manager) refreshMenu() {
	if manager.app == nil {
		return
	}
	manager.app.SetSystemTrayMenu(fyne.NewMenu(menuTitle,
		manager.statusItem,
		fyne.NewMenuItem("Show timer", invoke(&manager.callbacks.OnShow)),
		fyne.NewMenuItemSeparator(),
		manager.toggleItem,
		manager.stopItem,
		fyne.NewMenuItem("Reset", invoke(&manager.callbacks.OnReset)),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Test notification", invoke(&manager.callbacks.OnTestNotification)),
		fyne.NewMenuItem("Preferences", invoke(&manager.callbacks.OnPreferences)),
		fyne.NewMenuItem("Quit", invoke(&manager.callbacks.OnQuit)),
	))
}

func invoke(callback *func()) func() {
	return func() {
		if *callback != nil {
			(*callback)()
		}
	}
}
