package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autotimer/internal/core/clock"
	"autotimer/internal/core/countdown"
	"autotimer/internal/core/model"
)

var (
	epoch   = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	errBoom = errors.New("boom")
)

type fakeNotifier struct {
	mu         sync.Mutex
	clock      clock.Clock
	pushes     []model.NotificationRequest
	pushTimes  []time.Duration
	sounds     []time.Duration
	attention  []model.AttentionRequest
	attnTimes  []time.Duration
	beeps      int
	pushErrs   []error
	pushErr    error
	soundErr   error
	attnErr    error
	soundCalls int
}

func (n *fakeNotifier) since() time.Duration {
	return n.clock.Now().Sub(epoch)
}

func (n *fakeNotifier) Notify(_ context.Context, request model.NotificationRequest) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.pushes = append(n.pushes, request)
	n.pushTimes = append(n.pushTimes, n.since())
	if len(n.pushErrs) > 0 {
		err := n.pushErrs[0]
		n.pushErrs = n.pushErrs[1:]
		return err
	}
	return n.pushErr
}

func (n *fakeNotifier) PlaySound(_ context.Context, request model.SoundRequest) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.soundCalls++
	if n.soundErr != nil {
		return n.soundErr
	}
	if len(request.Tones) < 2 || len(request.Tones) > 3 {
		return errors.New("unexpected burst length")
	}
	n.sounds = append(n.sounds, n.since())
	return nil
}

func (n *fakeNotifier) RequestAttention(_ context.Context, request model.AttentionRequest) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.attention = append(n.attention, request)
	n.attnTimes = append(n.attnTimes, n.since())
	return n.attnErr
}

func (n *fakeNotifier) Beep(context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.beeps++
	return nil
}

type outcomeRecorder struct {
	mu     sync.Mutex
	counts map[string]int
}

func (r *outcomeRecorder) Delivered(channel, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.counts == nil {
		r.counts = make(map[string]int)
	}
	r.counts[channel+"/"+outcome]++
}

func (r *outcomeRecorder) get(channel Channel, outcome string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[string(channel)+"/"+outcome]
}

func quickBackOff() backoff.BackOff {
	return backoff.WithMaxRetries(&backoff.ZeroBackOff{}, 2)
}

type fixture struct {
	escalator *Escalator
	clock     *clock.Fake
	notifier  *fakeNotifier
	recorder  *outcomeRecorder
}

func newFixture(t *testing.T, mutate func(*model.Settings)) *fixture {
	t.Helper()
	settings := model.DefaultSettings()
	if mutate != nil {
		mutate(&settings)
	}
	fake := clock.NewFake(epoch)
	f := &fixture{
		clock:    fake,
		notifier: &fakeNotifier{clock: fake},
		recorder: &outcomeRecorder{},
	}
	f.escalator = New(f.notifier, model.StaticSettings(settings), Config{
		Clock:      fake,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		Recorder:   f.recorder,
		NewBackOff: quickBackOff,
	})
	t.Cleanup(f.escalator.Close)
	return f
}

func completion() countdown.Completion {
	return countdown.Completion{SessionID: uuid.New(), DurationMinutes: 25, At: epoch}
}

func TestEscalationSchedule(t *testing.T) {
	f := newFixture(t, nil)

	f.escalator.Escalate(completion())
	f.clock.Advance(6 * time.Second)

	assert.Equal(t, []time.Duration{0, 2 * time.Second, 5 * time.Second}, f.notifier.pushTimes)
	assert.Equal(t, []time.Duration{0, time.Second, 2 * time.Second, 4 * time.Second}, f.notifier.sounds)
	assert.Equal(t, []time.Duration{0, 1500 * time.Millisecond, 3 * time.Second}, f.notifier.attnTimes)

	require.Len(t, f.notifier.pushes, 3)
	assert.Equal(t, model.UrgencyNormal, f.notifier.pushes[0].Urgency)
	assert.Equal(t, model.UrgencyHigh, f.notifier.pushes[1].Urgency)
	assert.Equal(t, model.UrgencyCritical, f.notifier.pushes[2].Urgency)
	assert.Contains(t, f.notifier.pushes[0].Body, "25-minute")
	assert.Equal(t, 3, f.notifier.pushes[2].Step)

	assert.Zero(t, f.notifier.beeps)
	assert.Zero(t, f.escalator.Pending())
	assert.Equal(t, 3, f.recorder.get(ChannelPush, OutcomeSent))
	assert.Equal(t, 4, f.recorder.get(ChannelSound, OutcomeSent))
}

func TestImmediateStepsFireWithoutWaiting(t *testing.T) {
	f := newFixture(t, nil)

	f.escalator.Escalate(completion())

	assert.Len(t, f.notifier.pushes, 1)
	assert.Len(t, f.notifier.sounds, 1)
	assert.Len(t, f.notifier.attention, 1)
	assert.Equal(t, 7, f.escalator.Pending())
}

func TestPushFailureDoesNotAffectOtherChannels(t *testing.T) {
	f := newFixture(t, nil)
	f.notifier.pushErr = errBoom

	f.escalator.Escalate(completion())
	f.clock.Advance(6 * time.Second)

	assert.Len(t, f.notifier.sounds, 4)
	assert.Len(t, f.notifier.attention, 3)
	assert.Positive(t, f.recorder.get(ChannelPush, OutcomeFailed))
}

func TestSoundFailureFallsBackToBeep(t *testing.T) {
	f := newFixture(t, nil)
	f.notifier.soundErr = ErrChannelUnavailable

	f.escalator.Escalate(completion())
	f.clock.Advance(6 * time.Second)

	assert.Equal(t, 4, f.notifier.beeps)
	assert.Equal(t, 4, f.notifier.soundCalls, "unavailable channels are not retried")
	assert.Equal(t, 4, f.recorder.get(ChannelSound, OutcomeFallback))
	assert.Len(t, f.notifier.pushes, 3)
}

func TestTransientFailureIsRetried(t *testing.T) {
	f := newFixture(t, func(s *model.Settings) {
		s.SoundEnabled = false
		s.FlashEnabled = false
	})
	f.notifier.pushErrs = []error{errBoom}

	f.escalator.Escalate(completion())

	assert.Len(t, f.notifier.pushes, 2)
	assert.Equal(t, 1, f.recorder.get(ChannelPush, OutcomeSent))
	assert.Zero(t, f.recorder.get(ChannelPush, OutcomeFailed))
}

func TestBreakerOpensAfterRepeatedFailures(t *testing.T) {
	f := newFixture(t, func(s *model.Settings) {
		s.SoundEnabled = false
		s.FlashEnabled = false
	})
	f.notifier.pushErr = errBoom

	f.escalator.Escalate(completion())
	f.clock.Advance(6 * time.Second)

	assert.Len(t, f.notifier.pushes, BreakerThreshold)
	assert.Equal(t, 3, f.recorder.get(ChannelPush, OutcomeFailed))
}

func TestDisabledChannelsAreSkipped(t *testing.T) {
	f := newFixture(t, func(s *model.Settings) {
		s.PushNotificationEnabled = false
		s.FlashEnabled = false
	})

	f.escalator.Escalate(completion())
	f.clock.Advance(6 * time.Second)

	assert.Empty(t, f.notifier.pushes)
	assert.Empty(t, f.notifier.attention)
	assert.Len(t, f.notifier.sounds, 4)
	assert.Equal(t, 3, f.recorder.get(ChannelPush, OutcomeSkipped))
	assert.Equal(t, 3, f.recorder.get(ChannelAttention, OutcomeSkipped))
}

func TestAcknowledgeCancelsRemainingSteps(t *testing.T) {
	f := newFixture(t, nil)

	f.escalator.Escalate(completion())
	f.clock.Advance(time.Second)
	f.escalator.Acknowledge()
	f.clock.Advance(10 * time.Second)

	assert.Len(t, f.notifier.pushes, 1)
	assert.Len(t, f.notifier.sounds, 2)
	assert.Len(t, f.notifier.attention, 1)
	assert.Zero(t, f.escalator.Pending())
	assert.Zero(t, f.clock.Pending())
}

func TestStopAndResetCancelEscalation(t *testing.T) {
	for _, reason := range []countdown.Reason{countdown.ReasonStop, countdown.ReasonReset} {
		t.Run(string(reason), func(t *testing.T) {
			f := newFixture(t, nil)

			f.escalator.Escalate(completion())
			f.escalator.OnStateChanged(model.TimerState{}, reason)
			f.clock.Advance(10 * time.Second)

			assert.Len(t, f.notifier.pushes, 1)
			assert.Zero(t, f.clock.Pending())
		})
	}
}

func TestOtherTransitionsKeepEscalation(t *testing.T) {
	f := newFixture(t, nil)

	f.escalator.Escalate(completion())
	for _, reason := range []countdown.Reason{countdown.ReasonComplete, countdown.ReasonAutoRestart, countdown.ReasonTick, countdown.ReasonStart} {
		f.escalator.OnStateChanged(model.TimerState{IsRunning: true}, reason)
	}
	f.clock.Advance(6 * time.Second)

	assert.Len(t, f.notifier.pushes, 3)
}

func TestNewCompletionSupersedesPrevious(t *testing.T) {
	f := newFixture(t, nil)

	f.escalator.Escalate(completion())
	f.clock.Advance(time.Second)
	f.escalator.Escalate(completion())
	f.clock.Advance(10 * time.Second)

	assert.Equal(t, []time.Duration{0, time.Second, 3 * time.Second, 6 * time.Second}, f.notifier.pushTimes)
}

func TestTestNotification(t *testing.T) {
	f := newFixture(t, func(s *model.Settings) { s.PushNotificationEnabled = false })

	require.NoError(t, f.escalator.TestNotification(context.Background()))
	require.Len(t, f.notifier.pushes, 1)
	assert.Zero(t, f.notifier.pushes[0].Step)
	assert.Len(t, f.notifier.sounds, 1)
	assert.Empty(t, f.notifier.attention)
	assert.Zero(t, f.clock.Pending())
}

func TestTestNotificationWithoutSound(t *testing.T) {
	f := newFixture(t, func(s *model.Settings) { s.SoundEnabled = false })

	require.NoError(t, f.escalator.TestNotification(context.Background()))
	assert.Len(t, f.notifier.pushes, 1)
	assert.Zero(t, f.notifier.soundCalls)
}

func TestTestNotificationAggregatesFailures(t *testing.T) {
	f := newFixture(t, nil)
	f.notifier.pushErr = ErrChannelUnavailable
	f.notifier.soundErr = errBoom

	err := f.escalator.TestNotification(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrChannelUnavailable)
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, 1, f.notifier.beeps)
}

func TestEngineCompletionDrivesEscalation(t *testing.T) {
	f := newFixture(t, nil)
	settings := model.DefaultSettings()
	settings.DurationMinutes = 1
	engine := countdown.New(model.StaticSettings(settings), countdown.Config{
		Clock:  f.clock,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	defer engine.Close()
	engine.AddSink(f.escalator)

	engine.Start()
	f.clock.Advance(time.Minute)
	require.Len(t, f.notifier.pushes, 1)
	assert.Contains(t, f.notifier.pushes[0].Body, "1-minute")

	f.clock.Advance(2 * time.Second)
	engine.Stop()
	f.clock.Advance(10 * time.Second)

	assert.Len(t, f.notifier.pushes, 2)
	assert.Zero(t, f.escalator.Pending())
}
