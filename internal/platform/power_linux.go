package platform

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/godbus/dbus/v5"

	"autotimer/internal/core/activity"
)

type dbusPowerMonitor struct {
	logger   *slog.Logger
	fallback *SleepDetector
}

func newPowerMonitor(logger *slog.Logger) PowerMonitor {
	return &dbusPowerMonitor{
		logger:   logger,
		fallback: NewSleepDetector(nil, logger),
	}
}

func (monitor *dbusPowerMonitor) Run(ctx context.Context, handle func(activity.PowerEvent)) error {
	system, err := dbus.ConnectSystemBus()
	if err != nil {
		monitor.logger.Warn("system bus unavailable, detecting sleep from clock gaps", slog.Any("error", err))
		return monitor.fallback.Run(ctx, handle)
	}
	defer system.Close()

	if err := subscribe(system,
		[]dbus.MatchOption{dbus.WithMatchInterface(login1Manager), dbus.WithMatchMember("PrepareForSleep")},
		[]dbus.MatchOption{dbus.WithMatchInterface(login1Session), dbus.WithMatchMember("Lock")},
		[]dbus.MatchOption{dbus.WithMatchInterface(login1Session), dbus.WithMatchMember("Unlock")},
	); err != nil {
		monitor.logger.Warn("logind signals unavailable, detecting sleep from clock gaps", slog.Any("error", err))
		return monitor.fallback.Run(ctx, handle)
	}

	signals := make(chan *dbus.Signal, 16)
	system.Signal(signals)
	defer system.RemoveSignal(signals)

	if session, err := dbus.ConnectSessionBus(); err != nil {
		monitor.logger.Debug("session bus unavailable, screensaver lock not observed", slog.Any("error", err))
	} else {
		defer session.Close()
		if err := subscribe(session,
			[]dbus.MatchOption{dbus.WithMatchInterface(screenSaverIface), dbus.WithMatchMember("ActiveChanged")},
		); err != nil {
			monitor.logger.Debug("screensaver signals unavailable", slog.Any("error", err))
		} else {
			session.Signal(signals)
			defer session.RemoveSignal(signals)
		}
	}

	monitor.logger.Info("watching logind power events")
	for {
		select {
		case <-ctx.Done():
			return nil
		case signal, ok := <-signals:
			if !ok {
				return nil
			}
			if event, ok := translateSignal(signal, time.Now()); ok {
				handle(event)
			}
		}
	}
}

func subscribe(conn *dbus.Conn, matches ...[]dbus.MatchOption) error {
	for _, options := range matches {
		if err := conn.AddMatchSignal(options...); err != nil {
			return fmt.Errorf("add match signal: %w", err)
		}
	}
	return nil
}
