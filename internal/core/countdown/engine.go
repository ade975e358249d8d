package countdown

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"autotimer/internal/core/clock"
	"autotimer/internal/core/model"
)

const (
	// TickInterval is the recompute cadence of a running countdown.
	TickInterval = time.Second
	// AutoRestartDelay is the grace period between a completed session and
	// its automatic restart.
	AutoRestartDelay = 5 * time.Second
	// TickGapThreshold marks a gap between ticks as a machine sleep. The
	// first tick after such a gap is skipped, leaving room for a power
	// monitor to pause the session as of the moment the machine slept.
	TickGapThreshold = 5 * time.Second
)

// ActivityReporter exposes the time of the most recent user activity.
type ActivityReporter interface {
	LastActivity() time.Time
}

// Config contains runtime options for Engine.
type Config struct {
	Clock  clock.Clock
	Logger *slog.Logger
}

// Engine is the countdown state machine. All operations and tick callbacks
// are serialized on one mutex; sinks are notified after it is released.
type Engine struct {
	mu       sync.Mutex
	settings model.SettingsSource
	clock    clock.Clock
	logger   *slog.Logger
	activity ActivityReporter
	sinks    []Sink
	channels []*channelSink

	state     model.TimerState
	pausedFor time.Duration
	// runningSince is the last start or resume; lastTick the last tick seen.
	runningSince time.Time
	lastTick     time.Time
	tick         clock.Timer
	restart      clock.Timer
	// generation is bumped on every transition; callbacks scheduled under an
	// older generation are ignored.
	generation uint64
	closed     bool

	// deliverMu keeps sink notifications in transition order.
	deliverMu sync.Mutex
}

type notification struct {
	state      model.TimerState
	reason     Reason
	completion *Completion
}

// New creates an idle Engine reading the session length from settings.
func New(settings model.SettingsSource, config Config) *Engine {
	if config.Clock == nil {
		config.Clock = clock.NewReal()
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Engine{
		settings: settings,
		clock:    config.Clock,
		logger:   config.Logger.With(slog.String("component", "countdown")),
	}
}

// SetActivityReporter injects the source of LastActivity in snapshots.
func (engine *Engine) SetActivityReporter(reporter ActivityReporter) {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	engine.activity = reporter
}

// AddSink registers an observer. Sinks must not call back into the Engine
// synchronously.
func (engine *Engine) AddSink(sink Sink) {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	engine.sinks = append(engine.sinks, sink)
}

// Subscribe registers a new observer channel. Events are dropped when the
// channel buffer is full. The channel is closed by Close.
func (engine *Engine) Subscribe(buffer int) <-chan Event {
	if buffer <= 0 {
		buffer = 1
	}
	sink := &channelSink{ch: make(chan Event, buffer), now: engine.clock.Now}
	engine.mu.Lock()
	engine.sinks = append(engine.sinks, sink)
	engine.channels = append(engine.channels, sink)
	engine.mu.Unlock()
	return sink.ch
}

// Start begins a fresh session. It is a no-op while a session is actively
// counting down; a paused session is discarded.
func (engine *Engine) Start() {
	engine.mu.Lock()
	out := engine.startLocked(ReasonStart)
	engine.unlockAndDeliver(out)
}

// Pause freezes the countdown. It is a no-op unless running and not paused.
func (engine *Engine) Pause() {
	engine.mu.Lock()
	out := engine.pauseLocked(time.Time{})
	engine.unlockAndDeliver(out)
}

// PauseAt freezes the countdown as of at, such as the moment the machine
// went to sleep, so the time since then is excluded from the session. A zero
// or future at means now; an at before the last start or resume is clamped
// to it.
func (engine *Engine) PauseAt(at time.Time) {
	engine.mu.Lock()
	out := engine.pauseLocked(at)
	engine.unlockAndDeliver(out)
}

// Resume continues a paused countdown, excluding the paused interval.
func (engine *Engine) Resume() {
	engine.mu.Lock()
	out := engine.resumeLocked()
	engine.unlockAndDeliver(out)
}

// Stop returns to idle with zero remaining time and cancels any pending
// tick or automatic restart.
func (engine *Engine) Stop() {
	engine.mu.Lock()
	out := engine.stopLocked(ReasonStop)
	engine.unlockAndDeliver(out)
}

// Reset stops the countdown and shows the full configured duration.
func (engine *Engine) Reset() {
	engine.mu.Lock()
	var out []notification
	if !engine.closed {
		engine.toIdleLocked()
		engine.state.RemainingSeconds = engine.settings.Snapshot().DurationSeconds()
		engine.logger.Info("timer reset", slog.Int("remaining_seconds", engine.state.RemainingSeconds))
		out = append(out, engine.changedLocked(ReasonReset))
	}
	engine.unlockAndDeliver(out)
}

// Toggle starts an idle timer, pauses a running one and resumes a paused one.
func (engine *Engine) Toggle() {
	engine.mu.Lock()
	var out []notification
	switch engine.state.Phase() {
	case model.PhaseIdle:
		out = engine.startLocked(ReasonStart)
	case model.PhaseRunning:
		out = engine.pauseLocked(time.Time{})
	case model.PhasePaused:
		out = engine.resumeLocked()
	}
	engine.unlockAndDeliver(out)
}

// IsRunning reports whether a session exists, paused or not.
func (engine *Engine) IsRunning() bool {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	return engine.state.IsRunning
}

// IsPaused reports whether the session is paused.
func (engine *Engine) IsPaused() bool {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	return engine.state.IsPaused
}

// IsRunningEffective reports whether the countdown is advancing.
func (engine *Engine) IsRunningEffective() bool {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	return engine.state.IsRunningEffective()
}

// State returns a snapshot of the timer.
func (engine *Engine) State() model.TimerState {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	return engine.snapshotLocked()
}

// Close cancels all scheduled callbacks and closes subscriber channels.
// The Engine ignores every operation afterwards.
func (engine *Engine) Close() {
	engine.mu.Lock()
	if engine.closed {
		engine.mu.Unlock()
		return
	}
	engine.closed = true
	engine.cancelTimersLocked()
	engine.generation++
	channels := engine.channels
	engine.channels = nil
	engine.sinks = nil
	engine.mu.Unlock()

	for _, sink := range channels {
		sink.close()
	}
}

func (engine *Engine) startLocked(reason Reason) []notification {
	if engine.closed {
		return nil
	}
	if engine.state.IsRunningEffective() {
		engine.logger.Debug("start ignored, already running")
		return nil
	}
	settings := engine.settings.Snapshot()
	now := engine.clock.Now()

	engine.cancelTimersLocked()
	engine.generation++
	engine.state = model.TimerState{
		SessionID:        uuid.New(),
		IsRunning:        true,
		StartTime:        now,
		RemainingSeconds: settings.DurationSeconds(),
	}
	engine.pausedFor = 0
	engine.runningSince = now
	engine.lastTick = now
	engine.scheduleTickLocked()

	engine.logger.Info("timer started",
		slog.String("session", engine.state.SessionID.String()),
		slog.Int("duration_minutes", settings.DurationMinutes),
		slog.String("reason", string(reason)))
	return []notification{engine.changedLocked(reason)}
}

func (engine *Engine) pauseLocked(at time.Time) []notification {
	if engine.closed || !engine.state.IsRunningEffective() {
		engine.logger.Debug("pause ignored, not running")
		return nil
	}
	now := engine.clock.Now()
	if at.IsZero() || at.After(now) {
		at = now
	}
	if at.Before(engine.runningSince) {
		at = engine.runningSince
	}
	engine.cancelTickLocked()
	engine.generation++
	engine.state.IsPaused = true
	engine.state.PausedTime = at
	if at.Before(now) {
		engine.state.RemainingSeconds = engine.remainingAtLocked(engine.settings.Snapshot(), at)
	}

	engine.logger.Info("timer paused",
		slog.Int("remaining_seconds", engine.state.RemainingSeconds),
		slog.Duration("backdated_by", now.Sub(at)))
	return []notification{engine.changedLocked(ReasonPause)}
}

func (engine *Engine) resumeLocked() []notification {
	if engine.closed || !engine.state.IsPaused {
		engine.logger.Debug("resume ignored, not paused")
		return nil
	}
	now := engine.clock.Now()
	paused := now.Sub(engine.state.PausedTime)
	if paused < 0 {
		paused = 0
	}
	engine.generation++
	engine.pausedFor += paused
	engine.state.StartTime = engine.state.StartTime.Add(paused)
	engine.state.IsPaused = false
	engine.state.PausedTime = time.Time{}
	engine.runningSince = now
	engine.lastTick = now
	engine.scheduleTickLocked()

	engine.logger.Info("timer resumed", slog.Duration("paused_for", paused))
	return []notification{engine.changedLocked(ReasonResume)}
}

func (engine *Engine) stopLocked(reason Reason) []notification {
	if engine.closed {
		return nil
	}
	wasRunning := engine.state.IsRunning
	engine.toIdleLocked()
	if wasRunning {
		engine.logger.Info("timer stopped", slog.String("reason", string(reason)))
	}
	return []notification{engine.changedLocked(reason)}
}

// toIdleLocked cancels every scheduled callback and clears the session,
// keeping the session id for correlation.
func (engine *Engine) toIdleLocked() {
	engine.cancelTimersLocked()
	engine.generation++
	engine.state = model.TimerState{SessionID: engine.state.SessionID}
	engine.pausedFor = 0
}

func (engine *Engine) onTick(generation uint64) {
	engine.mu.Lock()
	if generation != engine.generation || !engine.state.IsRunningEffective() {
		engine.mu.Unlock()
		return
	}

	now := engine.clock.Now()
	// Wall-clock readings, since the monotonic clock may stop during sleep.
	gap := now.Round(0).Sub(engine.lastTick.Round(0))
	engine.lastTick = now
	if gap > TickGapThreshold {
		engine.logger.Info("tick gap detected, deferring recompute", slog.Duration("gap", gap))
		engine.mu.Unlock()
		return
	}

	settings := engine.settings.Snapshot()
	remaining := engine.remainingAtLocked(settings, now)
	engine.state.RemainingSeconds = remaining
	out := []notification{engine.changedLocked(ReasonTick)}

	if remaining == 0 {
		completion := Completion{
			SessionID:       engine.state.SessionID,
			DurationMinutes: settings.DurationMinutes,
			StartedAt:       engine.state.StartTime.Add(-engine.pausedFor),
			PausedFor:       engine.pausedFor,
			At:              now,
		}
		out = append(out, notification{completion: &completion})
		engine.toIdleLocked()
		out = append(out, engine.changedLocked(ReasonComplete))
		engine.logger.Info("timer completed",
			slog.String("session", completion.SessionID.String()),
			slog.Bool("auto_start", settings.AutoStart))

		if settings.AutoStart {
			engine.scheduleRestartLocked()
		}
	}
	engine.unlockAndDeliver(out)
}

func (engine *Engine) onAutoRestart(generation uint64) {
	engine.mu.Lock()
	if generation != engine.generation || engine.state.IsRunning {
		engine.mu.Unlock()
		return
	}
	engine.restart = nil
	var out []notification
	if engine.settings.Snapshot().AutoStart {
		out = engine.startLocked(ReasonAutoRestart)
	}
	engine.unlockAndDeliver(out)
}

// remainingAtLocked computes the remaining seconds at instant at from the
// session anchor.
func (engine *Engine) remainingAtLocked(settings model.Settings, at time.Time) int {
	elapsed := int(at.Sub(engine.state.StartTime) / time.Second)
	if elapsed < 0 {
		elapsed = 0
	}
	remaining := settings.DurationSeconds() - elapsed
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

func (engine *Engine) scheduleTickLocked() {
	generation := engine.generation
	engine.tick = engine.clock.Every(TickInterval, func() {
		engine.onTick(generation)
	})
}

func (engine *Engine) scheduleRestartLocked() {
	generation := engine.generation
	engine.restart = engine.clock.AfterFunc(AutoRestartDelay, func() {
		engine.onAutoRestart(generation)
	})
}

func (engine *Engine) cancelTickLocked() {
	if engine.tick != nil {
		engine.tick.Stop()
		engine.tick = nil
	}
}

func (engine *Engine) cancelTimersLocked() {
	engine.cancelTickLocked()
	if engine.restart != nil {
		engine.restart.Stop()
		engine.restart = nil
	}
}

func (engine *Engine) snapshotLocked() model.TimerState {
	state := engine.state
	if engine.activity != nil {
		state.LastActivity = engine.activity.LastActivity()
	}
	return state
}

func (engine *Engine) changedLocked(reason Reason) notification {
	return notification{state: engine.snapshotLocked(), reason: reason}
}

// unlockAndDeliver releases engine.mu and notifies sinks of out in order.
func (engine *Engine) unlockAndDeliver(out []notification) {
	if len(out) == 0 {
		engine.mu.Unlock()
		return
	}
	sinks := append([]Sink(nil), engine.sinks...)
	engine.deliverMu.Lock()
	engine.mu.Unlock()
	defer engine.deliverMu.Unlock()

	for _, n := range out {
		for _, sink := range sinks {
			if n.completion != nil {
				sink.OnCompleted(*n.completion)
			} else {
				sink.OnStateChanged(n.state, n.reason)
			}
		}
	}
}
