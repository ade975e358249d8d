package activity

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"autotimer/internal/core/clock"
	"autotimer/internal/core/model"
)

const (
	// PointerPollInterval is how often pointer position and input idle time are sampled.
	PointerPollInterval = 500 * time.Millisecond
	// IdleCheckInterval is how often the inactivity threshold is evaluated.
	IdleCheckInterval = 5 * time.Second
	// KeyboardPresenceWindow counts input as present when the system idle
	// time is below it.
	KeyboardPresenceWindow = time.Second
)

// Config contains runtime options for Scheduler. Pointer and Idle may be nil.
type Config struct {
	Clock    clock.Clock
	Logger   *slog.Logger
	Pointer  PointerSource
	Idle     IdleSource
	Recorder Recorder
}

// Scheduler pauses, resumes and starts a Timer from user activity, the
// inactivity threshold and system power events.
type Scheduler struct {
	mu       sync.Mutex
	timer    Timer
	settings model.SettingsSource
	clock    clock.Clock
	logger   *slog.Logger
	pointer  PointerSource
	idle     IdleSource
	recorder Recorder

	lastActivity     time.Time
	lastPointer      Point
	havePointer      bool
	poll             clock.Timer
	check            clock.Timer
	running          bool
	pointerLost      bool
	keyboardDisabled bool
	// degraded is set once neither source is usable.
	degraded   bool
	generation uint64
}

// New creates a stopped Scheduler driving timer.
func New(timer Timer, settings model.SettingsSource, config Config) *Scheduler {
	if config.Clock == nil {
		config.Clock = clock.NewReal()
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Recorder == nil {
		config.Recorder = nopRecorder{}
	}
	return &Scheduler{
		timer:    timer,
		settings: settings,
		clock:    config.Clock,
		logger:   config.Logger.With(slog.String("component", "activity")),
		pointer:  config.Pointer,
		idle:     config.Idle,
		recorder: config.Recorder,
	}
}

// Start begins activity polling and idle checks. Without a usable pointer
// source activity is detected from the input idle time alone; without
// either source the scheduler reacts to power events only.
func (scheduler *Scheduler) Start() {
	scheduler.mu.Lock()
	defer scheduler.mu.Unlock()
	if scheduler.running {
		return
	}
	scheduler.running = true
	scheduler.generation++
	scheduler.lastActivity = scheduler.clock.Now()
	scheduler.havePointer = false
	scheduler.pointerLost = scheduler.pointer == nil
	scheduler.keyboardDisabled = scheduler.idle == nil
	scheduler.degraded = false

	if !scheduler.pointerLost {
		position, err := scheduler.pointer.CursorPosition()
		switch {
		case errors.Is(err, ErrSignalUnavailable):
			scheduler.losePointerLocked(err)
		case err == nil:
			scheduler.lastPointer = position
			scheduler.havePointer = true
		}
	}
	if scheduler.pointerLost && scheduler.keyboardDisabled {
		scheduler.degradeLocked(ErrSignalUnavailable)
		return
	}

	generation := scheduler.generation
	scheduler.poll = scheduler.clock.Every(PointerPollInterval, func() {
		scheduler.pollActivity(generation)
	})
	scheduler.check = scheduler.clock.Every(IdleCheckInterval, func() {
		scheduler.checkIdle(generation)
	})
	scheduler.logger.Info("activity monitoring started",
		slog.Bool("manual_only", !scheduler.settings.Snapshot().ActivityMonitoring))
}

// Stop cancels polling and idle checks. Pending callbacks become no-ops.
func (scheduler *Scheduler) Stop() {
	scheduler.mu.Lock()
	defer scheduler.mu.Unlock()
	if !scheduler.running {
		return
	}
	scheduler.running = false
	scheduler.generation++
	scheduler.cancelLocked()
	scheduler.logger.Info("activity monitoring stopped")
}

// LastActivity returns the time of the most recent observed activity.
func (scheduler *Scheduler) LastActivity() time.Time {
	scheduler.mu.Lock()
	defer scheduler.mu.Unlock()
	return scheduler.lastActivity
}

// Degraded reports whether the scheduler fell back to power events only.
func (scheduler *Scheduler) Degraded() bool {
	scheduler.mu.Lock()
	defer scheduler.mu.Unlock()
	return scheduler.degraded
}

// HandleActivity records an interaction, starts an idle timer when
// auto-start is enabled and resumes a paused one.
func (scheduler *Scheduler) HandleActivity(event Event) {
	scheduler.mu.Lock()
	if event.At.After(scheduler.lastActivity) {
		scheduler.lastActivity = event.At
	}
	running := scheduler.running
	settings := scheduler.settings.Snapshot()
	scheduler.mu.Unlock()

	if !running || !settings.ActivityMonitoring {
		return
	}

	switch {
	case !scheduler.timer.IsRunning():
		if settings.AutoStart {
			scheduler.logger.Info("starting timer on activity", slog.String("kind", string(event.Kind)))
			scheduler.timer.Start()
			scheduler.recorder.AutoStarted(string(event.Kind))
		}
	case scheduler.timer.IsPaused():
		scheduler.logger.Info("resuming timer on activity", slog.String("kind", string(event.Kind)))
		scheduler.timer.Resume()
		scheduler.recorder.AutoResumed(string(event.Kind))
	}
}

// HandlePowerEvent pauses a running timer on suspend or lock, as of the
// event's At so that time spent asleep is not charged to the session. Wake
// and unlock only wait for the next activity.
func (scheduler *Scheduler) HandlePowerEvent(event PowerEvent) {
	scheduler.mu.Lock()
	running := scheduler.running
	scheduler.mu.Unlock()
	if !running {
		return
	}

	switch event.Kind {
	case PowerSuspend, ScreenLock:
		if scheduler.timer.IsRunningEffective() {
			scheduler.logger.Info("pausing timer on power event",
				slog.String("event", string(event.Kind)),
				slog.Time("at", event.At))
			scheduler.timer.PauseAt(event.At)
			scheduler.recorder.AutoPaused(string(event.Kind))
		}
	case PowerResume, ScreenUnlock:
		scheduler.logger.Info("system active again, waiting for activity", slog.String("event", string(event.Kind)))
	default:
		scheduler.logger.Debug("ignoring power event", slog.String("event", string(event.Kind)))
	}
}

func (scheduler *Scheduler) pollActivity(generation uint64) {
	scheduler.mu.Lock()
	if generation != scheduler.generation || scheduler.degraded ||
		!scheduler.settings.Snapshot().ActivityMonitoring {
		scheduler.mu.Unlock()
		return
	}

	now := scheduler.clock.Now()
	var detected *Event
	if !scheduler.pointerLost {
		position, err := scheduler.pointer.CursorPosition()
		switch {
		case errors.Is(err, ErrSignalUnavailable):
			scheduler.losePointerLocked(err)
		case err != nil:
			scheduler.logger.Debug("pointer read failed", slog.Any("error", err))
		case !scheduler.havePointer:
			scheduler.lastPointer = position
			scheduler.havePointer = true
		case position != scheduler.lastPointer:
			scheduler.lastPointer = position
			detected = &Event{Kind: KindPointer, At: now}
		}
	}

	if detected == nil && !scheduler.keyboardDisabled {
		idleFor, err := scheduler.idle.IdleDuration()
		switch {
		case errors.Is(err, ErrSignalUnavailable):
			scheduler.keyboardDisabled = true
			scheduler.logger.Warn("input idle time unavailable, keyboard presence disabled", slog.Any("error", err))
		case err != nil:
			scheduler.logger.Debug("idle time read failed", slog.Any("error", err))
		case idleFor < KeyboardPresenceWindow:
			detected = &Event{Kind: KindKeyboard, At: now}
		}
	}

	if scheduler.pointerLost && scheduler.keyboardDisabled {
		scheduler.degradeLocked(ErrSignalUnavailable)
		scheduler.mu.Unlock()
		return
	}
	scheduler.mu.Unlock()

	if detected != nil {
		scheduler.HandleActivity(*detected)
	}
}

func (scheduler *Scheduler) checkIdle(generation uint64) {
	scheduler.mu.Lock()
	settings := scheduler.settings.Snapshot()
	if generation != scheduler.generation || !settings.ActivityMonitoring {
		scheduler.mu.Unlock()
		return
	}
	idleFor := scheduler.clock.Now().Sub(scheduler.lastActivity)
	scheduler.mu.Unlock()

	if idleFor >= settings.InactivityThreshold() && scheduler.timer.IsRunningEffective() {
		scheduler.logger.Info("pausing idle timer",
			slog.Duration("idle_for", idleFor),
			slog.Int("threshold_seconds", settings.InactivityThresholdSeconds))
		scheduler.timer.Pause()
		scheduler.recorder.AutoPaused("idle")
	}
}

// losePointerLocked stops pointer sampling and logs once. Keyboard presence
// and the idle check carry on from the input idle time.
func (scheduler *Scheduler) losePointerLocked(err error) {
	if scheduler.pointerLost {
		return
	}
	scheduler.pointerLost = true
	scheduler.havePointer = false
	scheduler.logger.Warn("pointer position unavailable, using input idle time only", slog.Any("error", err))
}

// degradeLocked drops to power-event-only operation and logs once.
func (scheduler *Scheduler) degradeLocked(err error) {
	scheduler.cancelLocked()
	if scheduler.degraded {
		return
	}
	scheduler.degraded = true
	scheduler.logger.Warn("activity detection unavailable, reacting to power events only", slog.Any("error", err))
}

func (scheduler *Scheduler) cancelLocked() {
	if scheduler.poll != nil {
		scheduler.poll.Stop()
		scheduler.poll = nil
	}
	if scheduler.check != nil {
		scheduler.check.Stop()
		scheduler.check = nil
	}
}
