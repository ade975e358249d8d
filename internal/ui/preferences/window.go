package preferences

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/widget"

	"autotimer/internal/core/model"
)

// Window handles the preferences UI.
type Window struct {
	window    fyne.Window
	onSave    func(model.Settings) error
	onReset   func() error
	duration  *widget.Entry
	threshold *widget.Entry
	volume    *widget.Slider
	custom    *widget.Entry
	sound     *widget.Check
	push      *widget.Check
	flash     *widget.Check
	autoStart *widget.Check
	monitor   *widget.Check
}

// New creates a preferences window. onSave receives validated settings and
// may still reject them, for example when persisting fails.
func New(app fyne.App, settings model.Settings, onSave func(model.Settings) error, onReset func() error) *Window {
	window := app.NewWindow("Timer Settings")

	prefs := &Window{
		window:    window,
		onSave:    onSave,
		onReset:   onReset,
		duration:  widget.NewEntry(),
		threshold: widget.NewEntry(),
		volume:    widget.NewSlider(model.MinSoundVolume, model.MaxSoundVolume),
		custom:    widget.NewEntry(),
		sound:     widget.NewCheck("Play sound", nil),
		push:      widget.NewCheck("Show notification", nil),
		flash:     widget.NewCheck("Flash window", nil),
		autoStart: widget.NewCheck("Start automatically on activity", nil),
		monitor:   widget.NewCheck("Monitor activity", nil),
	}
	prefs.volume.Step = 1
	prefs.custom.SetPlaceHolder("Built-in chime")
	prefs.UpdateSettings(settings)

	form := container.NewVBox(
		widget.NewLabelWithStyle("Timer", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		container.NewHBox(widget.NewLabel("Duration"), prefs.duration, widget.NewLabel("min")),
		container.NewHBox(widget.NewLabel("Pause after inactivity"), prefs.threshold, widget.NewLabel("sec")),
		prefs.autoStart,
		prefs.monitor,
		widget.NewLabelWithStyle("Notifications", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		prefs.push,
		prefs.sound,
		prefs.flash,
		widget.NewLabel("Volume"),
		prefs.volume,
		widget.NewLabel("Custom sound file"),
		prefs.custom,
	)

	saveButton := widget.NewButton("Save", prefs.handleSave)
	resetButton := widget.NewButton("Defaults", prefs.handleReset)
	cancelButton := widget.NewButton("Cancel", window.Hide)
	buttons := container.NewHBox(saveButton, resetButton, layout.NewSpacer(), cancelButton)

	window.SetContent(container.NewBorder(nil, buttons, nil, nil, form))
	window.Resize(fyne.NewSize(420, 480))
	window.SetCloseIntercept(window.Hide)
	return prefs
}

// Show displays the preferences window.
func (prefs *Window) Show() {
	prefs.window.Show()
	prefs.window.RequestFocus()
}

// UpdateSettings replaces window values.
func (prefs *Window) UpdateSettings(settings model.Settings) {
	values := ValuesFromSettings(settings)
	prefs.duration.SetText(values.DurationMinutes)
	prefs.threshold.SetText(values.InactivityThresholdSeconds)
	prefs.volume.SetValue(float64(settings.SoundVolume))
	prefs.custom.SetText(values.CustomSoundPath)
	prefs.sound.SetChecked(values.SoundEnabled)
	prefs.push.SetChecked(values.PushNotificationEnabled)
	prefs.flash.SetChecked(values.FlashEnabled)
	prefs.autoStart.SetChecked(values.AutoStart)
	prefs.monitor.SetChecked(values.ActivityMonitoring)
}

func (prefs *Window) values() FormValues {
	return FormValues{
		DurationMinutes:            prefs.duration.Text,
		InactivityThresholdSeconds: prefs.threshold.Text,
		SoundVolume:                strconv.Itoa(int(math.Round(prefs.volume.Value))),
		CustomSoundPath:            prefs.custom.Text,
		SoundEnabled:               prefs.sound.Checked,
		PushNotificationEnabled:    prefs.push.Checked,
		FlashEnabled:               prefs.flash.Checked,
		AutoStart:                  prefs.autoStart.Checked,
		ActivityMonitoring:         prefs.monitor.Checked,
	}
}

func (prefs *Window) handleSave() {
	settings, err := prefs.values().Parse()
	if err == nil && prefs.onSave != nil {
		err = prefs.onSave(settings)
	}
	if err != nil {
		prefs.showError(err)
		return
	}
	prefs.window.Hide()
}

func (prefs *Window) handleReset() {
	if prefs.onReset == nil {
		return
	}
	if err := prefs.onReset(); err != nil {
		prefs.showError(err)
		return
	}
	prefs.UpdateSettings(model.DefaultSettings())
}

func (prefs *Window) showError(err error) {
	if problems := model.ConfigurationErrors(err); len(problems) > 0 {
		lines := make([]string, 0, len(problems))
		for _, problem := range problems {
			lines = append(lines, problem.Error())
		}
		err = errors.New(strings.Join(lines, "\n"))
	}
	dialog.ShowError(err, prefs.window)
}
