package countdown

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"autotimer/internal/core/model"
)

// EventType defines the type of Engine event.
type EventType string

const (
	EventStateChanged EventType = "state_changed"
	EventCompleted    EventType = "completed"
)

// Reason tells observers which operation produced a state change.
type Reason string

const (
	ReasonStart       Reason = "start"
	ReasonPause       Reason = "pause"
	ReasonResume      Reason = "resume"
	ReasonStop        Reason = "stop"
	ReasonReset       Reason = "reset"
	ReasonTick        Reason = "tick"
	ReasonComplete    Reason = "complete"
	ReasonAutoRestart Reason = "auto_restart"
)

// Completion describes a session that counted down to zero.
type Completion struct {
	SessionID       uuid.UUID     `json:"session_id"`
	DurationMinutes int           `json:"duration_minutes"`
	StartedAt       time.Time     `json:"started_at"`
	PausedFor       time.Duration `json:"paused_for"`
	At              time.Time     `json:"at"`
}

// Event represents an Engine update for observers.
type Event struct {
	Type       EventType        `json:"type"`
	Reason     Reason           `json:"reason,omitempty"`
	State      model.TimerState `json:"state"`
	Completion *Completion      `json:"completion,omitempty"`
	At         time.Time        `json:"at"`
}

// Sink receives engine notifications. Methods are called after the engine
// has released its lock, in the order the changes happened, and must not block.
type Sink interface {
	OnStateChanged(state model.TimerState, reason Reason)
	OnCompleted(completion Completion)
}

// SinkFuncs adapts plain functions to Sink. Nil fields are skipped.
type SinkFuncs struct {
	StateChanged func(state model.TimerState, reason Reason)
	Completed    func(completion Completion)
}

func (funcs SinkFuncs) OnStateChanged(state model.TimerState, reason Reason) {
	if funcs.StateChanged != nil {
		funcs.StateChanged(state, reason)
	}
}

func (funcs SinkFuncs) OnCompleted(completion Completion) {
	if funcs.Completed != nil {
		funcs.Completed(completion)
	}
}

// channelSink forwards events to a buffered channel, dropping them when the
// reader falls behind.
type channelSink struct {
	mu     sync.Mutex
	ch     chan Event
	now    func() time.Time
	closed bool
}

func (sink *channelSink) OnStateChanged(state model.TimerState, reason Reason) {
	sink.send(Event{Type: EventStateChanged, Reason: reason, State: state, At: sink.now()})
}

func (sink *channelSink) OnCompleted(completion Completion) {
	c := completion
	sink.send(Event{Type: EventCompleted, Reason: ReasonComplete, Completion: &c, At: completion.At})
}

func (sink *channelSink) send(event Event) {
	sink.mu.Lock()
	defer sink.mu.Unlock()
	if sink.closed {
		return
	}
	select {
	case sink.ch <- event:
	default:
	}
}

func (sink *channelSink) close() {
	sink.mu.Lock()
	defer sink.mu.Unlock()
	if !sink.closed {
		sink.closed = true
		close(sink.ch)
	}
}
