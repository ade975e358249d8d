package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
)

// ErrChannelUnavailable indicates the collaborator cannot serve a channel on this system.
var ErrChannelUnavailable = errors.New("notification channel unavailable")

// Delivery outcomes reported to the Recorder.
const (
	OutcomeSent     = "sent"
	OutcomeFailed   = "failed"
	OutcomeSkipped  = "skipped"
	OutcomeFallback = "fallback"
)

// BreakerThreshold is the number of consecutive failed attempts that opens
// a channel's circuit breaker.
const BreakerThreshold = 5

// DefaultBackOff retries a failed request twice with a short exponential wait.
func DefaultBackOff() backoff.BackOff {
	return backoff.WithMaxRetries(backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(100*time.Millisecond),
		backoff.WithMaxInterval(400*time.Millisecond),
		backoff.WithMaxElapsedTime(2*time.Second),
	), 2)
}

// channel delivers requests of one kind with retry and circuit breaking.
type channel struct {
	name       Channel
	breaker    *gobreaker.CircuitBreaker
	newBackOff func() backoff.BackOff
	logger     *slog.Logger
	recorder   Recorder
}

func newChannel(name Channel, newBackOff func() backoff.BackOff, logger *slog.Logger, recorder Recorder) *channel {
	ch := &channel{
		name:       name,
		newBackOff: newBackOff,
		logger:     logger.With(slog.String("channel", string(name))),
		recorder:   recorder,
	}
	ch.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        string(name),
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= BreakerThreshold
		},
		OnStateChange: func(_ string, from, to gobreaker.State) {
			ch.logger.Warn("notification channel breaker changed state",
				slog.String("from", from.String()),
				slog.String("to", to.String()))
		},
	})
	return ch
}

// deliver runs send until it succeeds, fails permanently or the retry
// budget is spent. The failure is logged and recorded before returning.
func (ch *channel) deliver(ctx context.Context, send func(context.Context) error) error {
	attempts := 0
	operation := func() error {
		attempts++
		_, err := ch.breaker.Execute(func() (interface{}, error) {
			return nil, send(ctx)
		})
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrChannelUnavailable) ||
			errors.Is(err, gobreaker.ErrOpenState) ||
			errors.Is(err, gobreaker.ErrTooManyRequests) ||
			ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		ch.logger.Debug("retrying notification", slog.Any("error", err), slog.Duration("wait", wait))
	}

	err := backoff.RetryNotify(operation, backoff.WithContext(ch.newBackOff(), ctx), notify)
	if err != nil {
		ch.recorder.Delivered(string(ch.name), OutcomeFailed)
		ch.logger.Warn("notification failed", slog.Int("attempts", attempts), slog.Any("error", err))
		return fmt.Errorf("%s: %w", ch.name, err)
	}
	ch.recorder.Delivered(string(ch.name), OutcomeSent)
	return nil
}
