package panel

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"autotimer/internal/core/model"
)

func TestNewView(t *testing.T) {
	idle := NewView(model.TimerState{RemainingSeconds: 1500}, 1500)
	assert.Equal(t, View{Phase: model.PhaseIdle, Remaining: "25:00", Caption: "Ready", Toggle: "Start"}, idle)

	running := NewView(model.TimerState{IsRunning: true, RemainingSeconds: 750}, 1500)
	assert.Equal(t, "Pause", running.Toggle)
	assert.Equal(t, "12:30", running.Remaining)
	assert.InDelta(t, 0.5, running.Progress, 1e-9)
	assert.True(t, running.CanStop)

	paused := NewView(model.TimerState{IsRunning: true, IsPaused: true, RemainingSeconds: 90}, 1500)
	assert.Equal(t, "Resume", paused.Toggle)
	assert.Equal(t, "Paused", paused.Caption)
	assert.Equal(t, "01:30", paused.Remaining)
}

func TestAttentionCycles(t *testing.T) {
	assert.Equal(t, 1, attentionCycles(model.UrgencyNormal))
	assert.Equal(t, 2, attentionCycles(model.UrgencyHigh))
	assert.Equal(t, 3, attentionCycles(model.UrgencyCritical))
}
