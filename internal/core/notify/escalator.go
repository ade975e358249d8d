package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hashicorp/go-multierror"

	"autotimer/internal/core/clock"
	"autotimer/internal/core/countdown"
	"autotimer/internal/core/model"
)

// Notifier renders notification effects on the host system.
type Notifier interface {
	Notify(ctx context.Context, request model.NotificationRequest) error
	PlaySound(ctx context.Context, request model.SoundRequest) error
	RequestAttention(ctx context.Context, request model.AttentionRequest) error
	Beep(ctx context.Context) error
}

// Recorder observes delivery outcomes per channel.
type Recorder interface {
	Delivered(channel, outcome string)
}

type nopRecorder struct{}

func (nopRecorder) Delivered(string, string) {}

// Config contains runtime options for Escalator.
type Config struct {
	Clock    clock.Clock
	Logger   *slog.Logger
	Recorder Recorder
	// NewBackOff builds the retry policy for one request. Defaults to DefaultBackOff.
	NewBackOff func() backoff.BackOff
	// RequestTimeout bounds one request including retries. Defaults to 10s.
	RequestTimeout time.Duration
}

// Escalator turns a completed session into a bounded schedule of push,
// sound and attention requests. Each channel fails independently.
type Escalator struct {
	mu       sync.Mutex
	notifier Notifier
	settings model.SettingsSource
	clock    clock.Clock
	logger   *slog.Logger
	recorder Recorder
	timeout  time.Duration
	channels map[Channel]*channel

	pending    []clock.Timer
	remaining  int
	generation uint64
}

// New creates an Escalator delivering through notifier.
func New(notifier Notifier, settings model.SettingsSource, config Config) *Escalator {
	if config.Clock == nil {
		config.Clock = clock.NewReal()
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Recorder == nil {
		config.Recorder = nopRecorder{}
	}
	if config.NewBackOff == nil {
		config.NewBackOff = DefaultBackOff
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = 10 * time.Second
	}
	logger := config.Logger.With(slog.String("component", "notify"))

	escalator := &Escalator{
		notifier: notifier,
		settings: settings,
		clock:    config.Clock,
		logger:   logger,
		recorder: config.Recorder,
		timeout:  config.RequestTimeout,
		channels: make(map[Channel]*channel),
	}
	for _, name := range []Channel{ChannelPush, ChannelSound, ChannelAttention, ChannelBeep} {
		escalator.channels[name] = newChannel(name, config.NewBackOff, logger, config.Recorder)
	}
	return escalator
}

// OnCompleted starts the escalation for completion.
func (escalator *Escalator) OnCompleted(completion countdown.Completion) {
	escalator.Escalate(completion)
}

// OnStateChanged cancels the escalation when the timer is stopped or reset.
func (escalator *Escalator) OnStateChanged(_ model.TimerState, reason countdown.Reason) {
	if reason == countdown.ReasonStop || reason == countdown.ReasonReset {
		escalator.cancel(string(reason))
	}
}

// Escalate schedules every step for completion, replacing any escalation
// still in flight.
func (escalator *Escalator) Escalate(completion countdown.Completion) {
	plan := escalationPlan()

	escalator.mu.Lock()
	escalator.cancelLocked()
	escalator.generation++
	generation := escalator.generation
	escalator.remaining = len(plan)
	escalator.mu.Unlock()

	escalator.logger.Info("escalating completion",
		slog.String("session", completion.SessionID.String()),
		slog.Int("steps", len(plan)))

	for _, s := range plan {
		s := s
		timer := escalator.clock.AfterFunc(s.offset, func() {
			escalator.fire(generation, completion, s)
		})
		escalator.mu.Lock()
		if generation == escalator.generation {
			escalator.pending = append(escalator.pending, timer)
		} else {
			timer.Stop()
		}
		escalator.mu.Unlock()
	}
}

// Acknowledge cancels the remaining steps once the user has seen the alert.
func (escalator *Escalator) Acknowledge() {
	escalator.cancel("acknowledged")
}

// Pending returns the number of escalation steps not yet fired.
func (escalator *Escalator) Pending() int {
	escalator.mu.Lock()
	defer escalator.mu.Unlock()
	return escalator.remaining
}

// TestNotification sends one push notification and, when sound is enabled,
// one sound burst. It does not escalate.
func (escalator *Escalator) TestNotification(ctx context.Context) error {
	settings := escalator.settings.Snapshot()
	ctx, cancel := context.WithTimeout(ctx, escalator.timeout)
	defer cancel()

	var result *multierror.Error
	request := testRequest()
	if err := escalator.channels[ChannelPush].deliver(ctx, func(ctx context.Context) error {
		return escalator.notifier.Notify(ctx, request)
	}); err != nil {
		result = multierror.Append(result, err)
	}
	if settings.SoundEnabled {
		if err := escalator.playSound(ctx, settings); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// Close cancels any escalation in flight.
func (escalator *Escalator) Close() {
	escalator.cancel("shutdown")
}

func (escalator *Escalator) fire(generation uint64, completion countdown.Completion, s step) {
	escalator.mu.Lock()
	if generation != escalator.generation {
		escalator.mu.Unlock()
		return
	}
	escalator.remaining--
	escalator.mu.Unlock()

	settings := escalator.settings.Snapshot()
	ctx, cancel := context.WithTimeout(context.Background(), escalator.timeout)
	defer cancel()

	switch s.channel {
	case ChannelPush:
		if !settings.PushNotificationEnabled {
			escalator.recorder.Delivered(string(s.channel), OutcomeSkipped)
			return
		}
		request := pushRequest(s.index, completion.DurationMinutes)
		_ = escalator.channels[ChannelPush].deliver(ctx, func(ctx context.Context) error {
			return escalator.notifier.Notify(ctx, request)
		})
	case ChannelSound:
		if !settings.SoundEnabled {
			escalator.recorder.Delivered(string(s.channel), OutcomeSkipped)
			return
		}
		_ = escalator.playSound(ctx, settings)
	case ChannelAttention:
		if !settings.FlashEnabled {
			escalator.recorder.Delivered(string(s.channel), OutcomeSkipped)
			return
		}
		request := attentionRequest(s.index)
		_ = escalator.channels[ChannelAttention].deliver(ctx, func(ctx context.Context) error {
			return escalator.notifier.RequestAttention(ctx, request)
		})
	}
}

// playSound plays one burst and falls back to a system beep when playback fails.
func (escalator *Escalator) playSound(ctx context.Context, settings model.Settings) error {
	request := soundRequest(settings)
	err := escalator.channels[ChannelSound].deliver(ctx, func(ctx context.Context) error {
		return escalator.notifier.PlaySound(ctx, request)
	})
	if err == nil {
		return nil
	}
	escalator.recorder.Delivered(string(ChannelSound), OutcomeFallback)
	beepErr := escalator.channels[ChannelBeep].deliver(ctx, escalator.notifier.Beep)
	if beepErr != nil {
		return multierror.Append(err, beepErr)
	}
	return fmt.Errorf("%w (beep fallback used)", err)
}

func (escalator *Escalator) cancel(reason string) {
	escalator.mu.Lock()
	defer escalator.mu.Unlock()
	if escalator.remaining == 0 {
		return
	}
	cancelled := escalator.remaining
	escalator.cancelLocked()
	escalator.generation++
	escalator.logger.Info("escalation cancelled",
		slog.String("reason", reason),
		slog.Int("steps_cancelled", cancelled))
}

func (escalator *Escalator) cancelLocked() {
	for _, timer := range escalator.pending {
		timer.Stop()
	}
	escalator.pending = nil
	escalator.remaining = 0
}
