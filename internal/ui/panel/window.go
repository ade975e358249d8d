package panel

import (
	"context"
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"autotimer/internal/core/model"
	"autotimer/internal/ui/animation"
)

// Callbacks defines panel action handlers.
type Callbacks struct {
	OnToggle func()
	OnStop   func()
	OnReset  func()
	// OnShown runs whenever the panel is brought to the front.
	OnShown func()
}

// Window is the small timer panel.
type Window struct {
	window      fyne.Window
	background  *canvas.Rectangle
	timerLabel  *canvas.Text
	caption     *canvas.Text
	progress    *widget.ProgressBar
	toggle      *widget.Button
	stop        *widget.Button
	reset       *widget.Button
	flasher     *animation.Engine
	callbacks   Callbacks
	urgentColor color.Color
}

var (
	idleColor   = color.NRGBA{R: 0, G: 0, B: 0, A: 0}
	urgentColor = color.NRGBA{R: 232, G: 190, B: 66, A: 160}
)

// New creates the panel window, hidden until Show.
func New(app fyne.App, callbacks Callbacks) *Window {
	window := app.NewWindow("Autotimer")
	if app.Icon() != nil {
		window.SetIcon(app.Icon())
	}

	background := canvas.NewRectangle(idleColor)

	timerLabel := canvas.NewText("--:--", theme.Color(theme.ColorNameForeground))
	timerLabel.Alignment = fyne.TextAlignCenter
	timerLabel.TextStyle = fyne.TextStyle{Bold: true, Monospace: true}
	timerLabel.TextSize = 42

	caption := canvas.NewText("", theme.Color(theme.ColorNameForeground))
	caption.Alignment = fyne.TextAlignCenter
	caption.TextSize = 14

	panel := &Window{
		window:      window,
		background:  background,
		timerLabel:  timerLabel,
		caption:     caption,
		progress:    widget.NewProgressBar(),
		callbacks:   callbacks,
		urgentColor: urgentColor,
	}
	panel.progress.TextFormatter = func() string { return "" }
	panel.toggle = widget.NewButtonWithIcon("Start", theme.MediaPlayIcon(), invoke(&panel.callbacks.OnToggle))
	panel.stop = widget.NewButtonWithIcon("Stop", theme.MediaStopIcon(), invoke(&panel.callbacks.OnStop))
	panel.reset = widget.NewButtonWithIcon("Reset", theme.ViewRefreshIcon(), invoke(&panel.callbacks.OnReset))
	panel.flasher = animation.New(animation.DefaultConfig(), panel.highlight)

	content := container.NewVBox(
		caption,
		timerLabel,
		panel.progress,
		container.NewGridWithColumns(3, panel.toggle, panel.stop, panel.reset),
	)
	window.SetContent(container.NewStack(background, container.NewPadded(content)))
	window.Resize(fyne.NewSize(320, 180))
	window.SetFixedSize(true)
	window.SetCloseIntercept(panel.Hide)
	return panel
}

// Show brings the panel to the front. Must run on the fyne thread.
func (panel *Window) Show() {
	panel.window.Show()
	panel.window.RequestFocus()
	if panel.callbacks.OnShown != nil {
		panel.callbacks.OnShown()
	}
}

// Hide hides the panel and stops any flashing. Must run on the fyne thread.
func (panel *Window) Hide() {
	go panel.flasher.Stop()
	panel.window.Hide()
}

// Render updates the panel from view. Must run on the fyne thread.
func (panel *Window) Render(view View) {
	panel.timerLabel.Text = view.Remaining
	panel.timerLabel.Refresh()
	panel.caption.Text = view.Caption
	panel.caption.Refresh()
	panel.progress.SetValue(view.Progress)

	panel.toggle.SetText(view.Toggle)
	if view.Phase == model.PhaseRunning {
		panel.toggle.SetIcon(theme.MediaPauseIcon())
	} else {
		panel.toggle.SetIcon(theme.MediaPlayIcon())
	}
	if view.CanStop {
		panel.stop.Enable()
	} else {
		panel.stop.Disable()
	}
}

// RequestAttention raises the panel without counting as the user looking at
// it, then flashes it. Safe to call from any goroutine.
func (panel *Window) RequestAttention(request model.AttentionRequest) {
	fyne.Do(func() {
		panel.window.Show()
		panel.window.RequestFocus()
		panel.flashNative(attentionCycles(request.Urgency))
	})
	panel.flasher.Flash(context.Background(), attentionCycles(request.Urgency))
}

func (panel *Window) highlight(on bool) {
	fyne.Do(func() {
		if on {
			panel.background.FillColor = panel.urgentColor
		} else {
			panel.background.FillColor = idleColor
		}
		panel.background.Refresh()
	})
}

func attentionCycles(urgency model.Urgency) int {
	switch urgency {
	case model.UrgencyCritical:
		return 3
	case model.UrgencyHigh:
		return 2
	default:
		return 1
	}
}

func invoke(callback *func()) func() {
	return func() {
		if *callback != nil {
			(*callback)()
		}
	}
}
