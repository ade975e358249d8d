package tray

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"autotimer/internal/core/model"
)

func TestToggleLabel(t *testing.T) {
	assert.Equal(t, "Start", ToggleLabel(model.PhaseIdle))
	assert.Equal(t, "Pause", ToggleLabel(model.PhaseRunning))
	assert.Equal(t, "Resume", ToggleLabel(model.PhasePaused))
}

func TestManagerTracksPhaseWithoutApp(t *testing.T) {
	toggled := 0
	manager := New(nil, Callbacks{OnToggle: func() { toggled++ }})

	manager.SetStatus("24:59")
	manager.SetPhase(model.PhasePaused)
	assert.Equal(t, "Status: 24:59 (paused)", manager.statusItem.Label)
	assert.Equal(t, "Resume", manager.toggleItem.Label)
	assert.False(t, manager.stopItem.Disabled)

	manager.toggleItem.Action()
	assert.Equal(t, 1, toggled)

	manager.SetPhase(model.PhaseIdle)
	assert.Equal(t, "Start", manager.toggleItem.Label)
	assert.True(t, manager.stopItem.Disabled)
}
