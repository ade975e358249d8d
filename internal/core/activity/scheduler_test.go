package activity

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autotimer/internal/core/clock"
	"autotimer/internal/core/countdown"
	"autotimer/internal/core/model"
)

var epoch = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

type fakeTimer struct {
	mu       sync.Mutex
	running  bool
	paused   bool
	starts   int
	pauses   int
	resumes  int
	pausedAt []time.Time
}

func (timer *fakeTimer) Start() {
	timer.mu.Lock()
	defer timer.mu.Unlock()
	timer.starts++
	timer.running, timer.paused = true, false
}

func (timer *fakeTimer) Pause() {
	timer.PauseAt(time.Time{})
}

func (timer *fakeTimer) PauseAt(at time.Time) {
	timer.mu.Lock()
	defer timer.mu.Unlock()
	if timer.running && !timer.paused {
		timer.pauses++
		timer.paused = true
		timer.pausedAt = append(timer.pausedAt, at)
	}
}

func (timer *fakeTimer) Resume() {
	timer.mu.Lock()
	defer timer.mu.Unlock()
	if timer.paused {
		timer.resumes++
		timer.paused = false
	}
}

func (timer *fakeTimer) IsRunning() bool {
	timer.mu.Lock()
	defer timer.mu.Unlock()
	return timer.running
}

func (timer *fakeTimer) IsPaused() bool {
	timer.mu.Lock()
	defer timer.mu.Unlock()
	return timer.paused
}

func (timer *fakeTimer) IsRunningEffective() bool {
	timer.mu.Lock()
	defer timer.mu.Unlock()
	return timer.running && !timer.paused
}

type fakePointer struct {
	mu       sync.Mutex
	position Point
	err      error
}

func (pointer *fakePointer) CursorPosition() (Point, error) {
	pointer.mu.Lock()
	defer pointer.mu.Unlock()
	return pointer.position, pointer.err
}

func (pointer *fakePointer) moveTo(x, y int) {
	pointer.mu.Lock()
	defer pointer.mu.Unlock()
	pointer.position = Point{X: x, Y: y}
}

func (idle *fakeIdle) fail(err error) {
	idle.mu.Lock()
	defer idle.mu.Unlock()
	idle.err = err
}

func (pointer *fakePointer) fail(err error) {
	pointer.mu.Lock()
	defer pointer.mu.Unlock()
	pointer.err = err
}

type fakeIdle struct {
	mu   sync.Mutex
	idle time.Duration
	err  error
}

func (idle *fakeIdle) IdleDuration() (time.Duration, error) {
	idle.mu.Lock()
	defer idle.mu.Unlock()
	return idle.idle, idle.err
}

func (idle *fakeIdle) set(d time.Duration) {
	idle.mu.Lock()
	defer idle.mu.Unlock()
	idle.idle = d
}

type countingRecorder struct {
	mu      sync.Mutex
	paused  []string
	resumed []string
	started []string
}

func (r *countingRecorder) AutoPaused(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paused = append(r.paused, reason)
}

func (r *countingRecorder) AutoResumed(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resumed = append(r.resumed, reason)
}

func (r *countingRecorder) AutoStarted(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = append(r.started, reason)
}

type fixture struct {
	scheduler *Scheduler
	clock     *clock.Fake
	timer     *fakeTimer
	pointer   *fakePointer
	idle      *fakeIdle
	recorder  *countingRecorder
	logs      *bytes.Buffer
}

func newFixture(t *testing.T, mutate func(*model.Settings)) *fixture {
	t.Helper()
	settings := model.DefaultSettings()
	if mutate != nil {
		mutate(&settings)
	}
	f := &fixture{
		clock:    clock.NewFake(epoch),
		timer:    &fakeTimer{},
		pointer:  &fakePointer{position: Point{X: 10, Y: 10}},
		idle:     &fakeIdle{idle: time.Hour},
		recorder: &countingRecorder{},
		logs:     &bytes.Buffer{},
	}
	f.scheduler = New(f.timer, model.StaticSettings(settings), Config{
		Clock:    f.clock,
		Logger:   slog.New(slog.NewTextHandler(f.logs, nil)),
		Pointer:  f.pointer,
		Idle:     f.idle,
		Recorder: f.recorder,
	})
	t.Cleanup(f.scheduler.Stop)
	return f
}

func TestIdleCheckPausesOnceAtThreshold(t *testing.T) {
	f := newFixture(t, nil)
	f.timer.Start()
	f.scheduler.Start()

	f.clock.Advance(31 * time.Second)
	assert.Equal(t, 1, f.timer.pauses)
	assert.Equal(t, []string{"idle"}, f.recorder.paused)

	f.clock.Advance(time.Minute)
	assert.Equal(t, 1, f.timer.pauses)
}

func TestIdleCheckBelowThreshold(t *testing.T) {
	f := newFixture(t, nil)
	f.timer.Start()
	f.scheduler.Start()

	f.clock.Advance(29 * time.Second)
	assert.Zero(t, f.timer.pauses)
}

func TestPointerMovementDefersIdlePause(t *testing.T) {
	f := newFixture(t, nil)
	f.timer.Start()
	f.scheduler.Start()

	f.clock.Advance(20 * time.Second)
	f.pointer.moveTo(11, 10)
	f.clock.Advance(500 * time.Millisecond)
	assert.Equal(t, epoch.Add(20500*time.Millisecond), f.scheduler.LastActivity())

	f.clock.Advance(25 * time.Second)
	assert.Zero(t, f.timer.pauses)

	f.clock.Advance(10 * time.Second)
	assert.Equal(t, 1, f.timer.pauses)
}

func TestActivityResumesPausedTimer(t *testing.T) {
	f := newFixture(t, nil)
	f.timer.Start()
	f.timer.Pause()
	f.scheduler.Start()

	f.pointer.moveTo(50, 60)
	f.clock.Advance(500 * time.Millisecond)

	assert.Equal(t, 1, f.timer.resumes)
	assert.True(t, f.timer.IsRunningEffective())
	assert.Equal(t, []string{"pointer"}, f.recorder.resumed)
}

func TestActivityStartsIdleTimerOnlyWithAutoStart(t *testing.T) {
	manual := newFixture(t, nil)
	manual.scheduler.Start()
	manual.scheduler.HandleActivity(Event{Kind: KindPointer, At: epoch.Add(time.Second)})
	assert.Zero(t, manual.timer.starts)
	assert.Equal(t, epoch.Add(time.Second), manual.scheduler.LastActivity())

	auto := newFixture(t, func(s *model.Settings) { s.AutoStart = true })
	auto.scheduler.Start()
	auto.scheduler.HandleActivity(Event{Kind: KindPointer, At: epoch.Add(time.Second)})
	assert.Equal(t, 1, auto.timer.starts)
	assert.Equal(t, []string{"pointer"}, auto.recorder.started)
}

func TestActivityWhileRunningOnlyRecordsTimestamp(t *testing.T) {
	f := newFixture(t, func(s *model.Settings) { s.AutoStart = true })
	f.timer.Start()
	f.scheduler.Start()

	f.scheduler.HandleActivity(Event{Kind: KindKeyboard, At: epoch.Add(3 * time.Second)})
	assert.Equal(t, 1, f.timer.starts)
	assert.Zero(t, f.timer.resumes)
	assert.Equal(t, epoch.Add(3*time.Second), f.scheduler.LastActivity())
}

func TestKeyboardPresenceCountsAsActivity(t *testing.T) {
	f := newFixture(t, func(s *model.Settings) { s.AutoStart = true })
	f.scheduler.Start()

	f.idle.set(200 * time.Millisecond)
	f.clock.Advance(500 * time.Millisecond)

	assert.Equal(t, 1, f.timer.starts)
	assert.Equal(t, []string{"keyboard"}, f.recorder.started)
}

func TestSuspendAndLockPause(t *testing.T) {
	for _, kind := range []PowerKind{PowerSuspend, ScreenLock} {
		t.Run(string(kind), func(t *testing.T) {
			f := newFixture(t, nil)
			f.timer.Start()
			f.scheduler.Start()

			f.clock.Advance(time.Minute)
			f.scheduler.HandlePowerEvent(PowerEvent{Kind: kind, At: epoch.Add(10 * time.Second)})
			assert.Equal(t, 1, f.timer.pauses)
			assert.Equal(t, []time.Time{epoch.Add(10 * time.Second)}, f.timer.pausedAt)
			assert.Equal(t, []string{string(kind)}, f.recorder.paused)
		})
	}
}

func TestWakeAndUnlockDoNotResume(t *testing.T) {
	f := newFixture(t, nil)
	f.timer.Start()
	f.scheduler.Start()

	f.scheduler.HandlePowerEvent(PowerEvent{Kind: PowerSuspend, At: epoch})
	f.scheduler.HandlePowerEvent(PowerEvent{Kind: PowerResume, At: epoch})
	f.scheduler.HandlePowerEvent(PowerEvent{Kind: ScreenUnlock, At: epoch})

	assert.True(t, f.timer.IsPaused())
	assert.Zero(t, f.timer.resumes)
}

func TestPowerEventIgnoredWhenIdle(t *testing.T) {
	f := newFixture(t, nil)
	f.scheduler.Start()

	f.scheduler.HandlePowerEvent(PowerEvent{Kind: ScreenLock, At: epoch})
	assert.Zero(t, f.timer.pauses)
}

func TestUnavailableSourcesDegradeToPowerEvents(t *testing.T) {
	f := newFixture(t, nil)
	f.pointer.fail(ErrSignalUnavailable)
	f.idle.fail(ErrSignalUnavailable)
	f.timer.Start()
	f.scheduler.Start()

	f.clock.Advance(500 * time.Millisecond)
	require.True(t, f.scheduler.Degraded())
	assert.Zero(t, f.clock.Pending())

	f.clock.Advance(time.Minute)
	assert.Zero(t, f.timer.pauses)

	f.scheduler.HandlePowerEvent(PowerEvent{Kind: ScreenLock, At: f.clock.Now()})
	assert.Equal(t, 1, f.timer.pauses)
}

func TestIdleSourceCarriesOnWithoutPointer(t *testing.T) {
	f := newFixture(t, nil)
	f.pointer.fail(ErrSignalUnavailable)
	f.timer.Start()
	f.scheduler.Start()

	require.False(t, f.scheduler.Degraded())
	assert.Equal(t, 2, f.clock.Pending())
	assert.Equal(t, 1, strings.Count(f.logs.String(), "pointer position unavailable"))

	f.clock.Advance(31 * time.Second)
	require.Equal(t, 1, f.timer.pauses)
	assert.Equal(t, []string{"idle"}, f.recorder.paused)

	f.idle.set(0)
	f.clock.Advance(2 * time.Second)
	assert.Equal(t, 1, f.timer.resumes)
	assert.Equal(t, []string{"keyboard"}, f.recorder.resumed)
	assert.Equal(t, 1, strings.Count(f.logs.String(), "pointer position unavailable"))
}

func TestNilPointerUsesIdleSource(t *testing.T) {
	timer := &fakeTimer{}
	idle := &fakeIdle{idle: time.Hour}
	fake := clock.NewFake(epoch)
	scheduler := New(timer, model.StaticSettings(model.DefaultSettings()), Config{
		Clock:  fake,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Idle:   idle,
	})
	timer.Start()
	scheduler.Start()
	defer scheduler.Stop()

	assert.False(t, scheduler.Degraded())
	fake.Advance(30 * time.Second)
	assert.Equal(t, 1, timer.pauses)
}

func TestNilPointerDegrades(t *testing.T) {
	timer := &fakeTimer{}
	scheduler := New(timer, model.StaticSettings(model.DefaultSettings()), Config{
		Clock:  clock.NewFake(epoch),
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	scheduler.Start()
	defer scheduler.Stop()

	assert.True(t, scheduler.Degraded())
}

func TestSourceLossMidRunLogsOnce(t *testing.T) {
	f := newFixture(t, nil)
	f.scheduler.Start()
	require.False(t, f.scheduler.Degraded())

	f.pointer.fail(errors.Join(ErrSignalUnavailable, errors.New("display closed")))
	f.clock.Advance(10 * time.Second)
	assert.False(t, f.scheduler.Degraded())
	assert.Equal(t, 1, strings.Count(f.logs.String(), "pointer position unavailable"))
	assert.Equal(t, 2, f.clock.Pending())

	f.idle.fail(ErrSignalUnavailable)
	f.clock.Advance(10 * time.Second)
	assert.True(t, f.scheduler.Degraded())
	assert.Equal(t, 1, strings.Count(f.logs.String(), "activity detection unavailable"))
	assert.Zero(t, f.clock.Pending())
}

func TestTransientPointerErrorKeepsPolling(t *testing.T) {
	f := newFixture(t, nil)
	f.scheduler.Start()

	f.pointer.fail(errors.New("xdotool exited 1"))
	f.clock.Advance(2 * time.Second)
	assert.False(t, f.scheduler.Degraded())
	assert.Equal(t, 2, f.clock.Pending())
}

func TestUnavailableIdleSourceDisablesKeyboardOnly(t *testing.T) {
	f := newFixture(t, nil)
	f.idle.fail(ErrSignalUnavailable)
	f.timer.Start()
	f.timer.Pause()
	f.scheduler.Start()

	f.clock.Advance(2 * time.Second)
	assert.Equal(t, 1, strings.Count(f.logs.String(), "keyboard presence disabled"))
	assert.False(t, f.scheduler.Degraded())

	f.pointer.moveTo(1, 2)
	f.clock.Advance(500 * time.Millisecond)
	assert.Equal(t, 1, f.timer.resumes)
}

func TestManualOnlyMode(t *testing.T) {
	f := newFixture(t, func(s *model.Settings) {
		s.ActivityMonitoring = false
		s.AutoStart = true
	})
	f.timer.Start()
	f.scheduler.Start()

	f.clock.Advance(2 * time.Minute)
	assert.Zero(t, f.timer.pauses)

	f.scheduler.HandlePowerEvent(PowerEvent{Kind: PowerSuspend, At: f.clock.Now()})
	assert.Equal(t, 1, f.timer.pauses)

	f.pointer.moveTo(99, 99)
	f.clock.Advance(time.Second)
	f.scheduler.HandleActivity(Event{Kind: KindPointer, At: f.clock.Now()})
	assert.Zero(t, f.timer.resumes)
	assert.Equal(t, f.clock.Now(), f.scheduler.LastActivity())
}

func TestStopCancelsCallbacks(t *testing.T) {
	f := newFixture(t, nil)
	f.timer.Start()
	f.scheduler.Start()
	require.Equal(t, 2, f.clock.Pending())

	f.scheduler.Stop()
	assert.Zero(t, f.clock.Pending())

	f.clock.Advance(time.Minute)
	assert.Zero(t, f.timer.pauses)
}

func TestSchedulerDrivesEngine(t *testing.T) {
	fake := clock.NewFake(epoch)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	settings := model.StaticSettings(model.DefaultSettings())
	engine := countdown.New(settings, countdown.Config{Clock: fake, Logger: logger})
	defer engine.Close()

	pointer := &fakePointer{}
	scheduler := New(engine, settings, Config{Clock: fake, Logger: logger, Pointer: pointer})
	engine.SetActivityReporter(scheduler)
	scheduler.Start()
	defer scheduler.Stop()

	engine.Start()
	fake.Advance(31 * time.Second)
	require.True(t, engine.IsPaused())
	assert.InDelta(t, 1470, engine.State().RemainingSeconds, 1)
	assert.Equal(t, epoch, engine.State().LastActivity)

	fake.Advance(time.Minute)
	pointer.moveTo(5, 5)
	fake.Advance(500 * time.Millisecond)
	require.True(t, engine.IsRunningEffective())

	fake.Advance(10 * time.Second)
	assert.Equal(t, 1460, engine.State().RemainingSeconds)
}
