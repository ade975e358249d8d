package activity

import (
	"errors"
	"time"
)

// ErrSignalUnavailable indicates an activity source is not supported on this system.
var ErrSignalUnavailable = errors.New("activity signal unavailable")

// Kind identifies what produced an activity event.
type Kind string

const (
	KindPointer  Kind = "pointer"
	KindKeyboard Kind = "keyboard"
)

// Event is one observed user interaction.
type Event struct {
	Kind Kind
	At   time.Time
}

// PowerKind identifies a system power or session transition.
type PowerKind string

const (
	PowerSuspend PowerKind = "suspend"
	PowerResume  PowerKind = "resume"
	ScreenLock   PowerKind = "lock"
	ScreenUnlock PowerKind = "unlock"
)

// PowerEvent is a system power or session transition. At is when the
// transition happened, which may precede delivery for a suspend inferred on
// wake.
type PowerEvent struct {
	Kind PowerKind
	At   time.Time
}

// Point is a pointer position in screen coordinates.
type Point struct {
	X int
	Y int
}

// PointerSource reports the current pointer position.
type PointerSource interface {
	CursorPosition() (Point, error)
}

// IdleSource reports how long the system has seen no input.
type IdleSource interface {
	IdleDuration() (time.Duration, error)
}

// Timer is the part of the countdown engine the scheduler drives.
type Timer interface {
	Start()
	Pause()
	// PauseAt pauses as of an earlier instant; a zero time means now.
	PauseAt(at time.Time)
	Resume()
	IsRunning() bool
	IsPaused() bool
	IsRunningEffective() bool
}

// Recorder observes scheduler decisions.
type Recorder interface {
	AutoPaused(reason string)
	AutoResumed(reason string)
	AutoStarted(reason string)
}

type nopRecorder struct{}

func (nopRecorder) AutoPaused(string)  {}
func (nopRecorder) AutoResumed(string) {}
func (nopRecorder) AutoStarted(string) {}
