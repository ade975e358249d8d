package platform

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"autotimer/internal/core/activity"
	"autotimer/internal/core/clock"
)

// Sleep detection defaults for SleepDetector.
const (
	sleepCheckInterval = time.Second
	sleepGapThreshold  = 5 * time.Second
)

// PowerMonitor delivers system suspend, resume, lock and unlock events.
type PowerMonitor interface {
	// Run blocks until ctx is done, calling handle for every event.
	Run(ctx context.Context, handle func(activity.PowerEvent)) error
}

// NewPowerMonitor returns the best power monitor for this platform.
func NewPowerMonitor(logger *slog.Logger) PowerMonitor {
	if logger == nil {
		logger = slog.Default()
	}
	return newPowerMonitor(logger.With(slog.String("component", "power")))
}

// SleepDetector infers a suspend/resume pair from an unusually long gap
// between two clock ticks. Both events are reported on wake: the suspend
// event's At is the last tick before the gap, the inferred moment the
// machine slept, and consumers must pause as of that instant rather than
// on delivery. The resume event's At is the wake time.
type SleepDetector struct {
	clock     clock.Clock
	interval  time.Duration
	threshold time.Duration
	logger    *slog.Logger
}

// NewSleepDetector creates a detector checking every second and treating
// gaps above five seconds as sleep.
func NewSleepDetector(c clock.Clock, logger *slog.Logger) *SleepDetector {
	if c == nil {
		c = clock.NewReal()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SleepDetector{
		clock:     c,
		interval:  sleepCheckInterval,
		threshold: sleepGapThreshold,
		logger:    logger,
	}
}

// Start begins checking and returns the handle that stops it.
func (detector *SleepDetector) Start(handle func(activity.PowerEvent)) clock.Timer {
	var mu sync.Mutex
	lastTick := detector.clock.Now()
	return detector.clock.Every(detector.interval, func() {
		now := detector.clock.Now()
		mu.Lock()
		// Wall-clock readings, since the monotonic clock may stop during sleep.
		gap := now.Round(0).Sub(lastTick.Round(0))
		sleptAt := lastTick
		lastTick = now
		mu.Unlock()

		if gap <= detector.threshold {
			return
		}
		detector.logger.Info("detected system wake", slog.Duration("gap", gap))
		handle(activity.PowerEvent{Kind: activity.PowerSuspend, At: sleptAt})
		handle(activity.PowerEvent{Kind: activity.PowerResume, At: now})
	})
}

// Run checks for sleep until ctx is done.
func (detector *SleepDetector) Run(ctx context.Context, handle func(activity.PowerEvent)) error {
	ticker := detector.Start(handle)
	defer ticker.Stop()
	<-ctx.Done()
	return nil
}
