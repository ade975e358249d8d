package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Phase is the coarse timer state.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseRunning Phase = "running"
	PhasePaused  Phase = "paused"
)

// TimerState is a snapshot of the countdown. Paused implies running.
type TimerState struct {
	SessionID        uuid.UUID `json:"session_id"`
	IsRunning        bool      `json:"is_running"`
	IsPaused         bool      `json:"is_paused"`
	StartTime        time.Time `json:"start_time"`
	PausedTime       time.Time `json:"paused_time"`
	RemainingSeconds int       `json:"remaining_seconds"`
	LastActivity     time.Time `json:"last_activity"`
}

// Phase derives the coarse state from the flags.
func (state TimerState) Phase() Phase {
	switch {
	case state.IsPaused:
		return PhasePaused
	case state.IsRunning:
		return PhaseRunning
	default:
		return PhaseIdle
	}
}

// IsRunningEffective reports whether the countdown is advancing.
func (state TimerState) IsRunningEffective() bool {
	return state.IsRunning && !state.IsPaused
}

// Remaining returns RemainingSeconds as a duration.
func (state TimerState) Remaining() time.Duration {
	return time.Duration(state.RemainingSeconds) * time.Second
}

// FormatRemaining renders the remaining time as MM:SS.
func (state TimerState) FormatRemaining() string {
	return FormatSeconds(state.RemainingSeconds)
}

// Progress returns the completed fraction of a session of totalSeconds.
func (state TimerState) Progress(totalSeconds int) float64 {
	if totalSeconds <= 0 || !state.IsRunning {
		return 0
	}
	progress := float64(totalSeconds-state.RemainingSeconds) / float64(totalSeconds)
	if progress < 0 {
		return 0
	}
	if progress > 1 {
		return 1
	}
	return progress
}

// FormatSeconds renders seconds as MM:SS. Minutes are not wrapped at 60.
func FormatSeconds(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
