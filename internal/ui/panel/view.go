package panel

import (
	"autotimer/internal/core/model"
	"autotimer/internal/ui/tray"
)

// View is the rendered form of a timer state.
type View struct {
	Phase     model.Phase
	Remaining string
	Caption   string
	Progress  float64
	Toggle    string
	CanStop   bool
}

// NewView renders state for a session of totalSeconds.
func NewView(state model.TimerState, totalSeconds int) View {
	phase := state.Phase()
	view := View{
		Phase:     phase,
		Remaining: state.FormatRemaining(),
		Progress:  state.Progress(totalSeconds),
		Toggle:    tray.ToggleLabel(phase),
		CanStop:   phase != model.PhaseIdle,
	}
	switch phase {
	case model.PhaseRunning:
		view.Caption = "Focus"
	case model.PhasePaused:
		view.Caption = "Paused"
	default:
		view.Caption = "Ready"
	}
	return view
}
