package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/theme"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"autotimer/internal/control"
	"autotimer/internal/core/activity"
	"autotimer/internal/core/clock"
	"autotimer/internal/core/countdown"
	"autotimer/internal/core/model"
	"autotimer/internal/core/notify"
	"autotimer/internal/logging"
	"autotimer/internal/metrics"
	"autotimer/internal/platform"
	"autotimer/internal/storage"
	uidesktop "autotimer/internal/ui/desktop"
	"autotimer/internal/ui/panel"
	"autotimer/internal/ui/preferences"
	"autotimer/internal/ui/tray"
)

const (
	appName = "autotimer"
	appID   = "io.autotimer.app"
)

type options struct {
	configPath  string
	logLevel    string
	logJSON     bool
	controlAddr string
}

func parseOptions(args []string) (options, error) {
	var opts options
	flags := flag.NewFlagSet(appName, flag.ContinueOnError)
	flags.StringVar(&opts.configPath, "config", "", "settings file (default: user config dir)")
	flags.StringVar(&opts.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	flags.BoolVar(&opts.logJSON, "log-json", false, "log as JSON")
	flags.StringVar(&opts.controlAddr, "control-addr", control.DefaultAddr, "local control API address, empty to disable")
	if err := flags.Parse(args); err != nil {
		return options{}, err
	}
	if flags.NArg() > 0 {
		return options{}, fmt.Errorf("unexpected arguments: %v", flags.Args())
	}
	return opts, nil
}

func main() {
	opts, err := parseOptions(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger := logging.NewLogger(logging.WithLevel(opts.logLevel), logging.WithIsJSON(opts.logJSON))
	if err := run(opts, logger); err != nil {
		logger.Error("autotimer stopped", logging.ErrAttr(err))
		os.Exit(1)
	}
}

func run(opts options, logger *slog.Logger) error {
	configPath := opts.configPath
	if configPath == "" {
		resolved, err := storage.ResolveSettingsPath(appName)
		if err != nil {
			return err
		}
		configPath = resolved
	}
	store, err := storage.Open(configPath, logger)
	if err != nil {
		return err
	}
	logger.Info("settings loaded", slog.String("path", configPath))

	realClock := clock.NewReal()
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder := metrics.New(registry)

	engine := countdown.New(store, countdown.Config{Clock: realClock, Logger: logger})
	defer engine.Close()

	fyneApp := app.NewWithID(appID)
	fyneApp.SetIcon(theme.HistoryIcon())
	desktopApp, ok := fyneApp.(desktop.App)
	if !ok {
		return errors.New("system tray unsupported on this platform")
	}

	var escalator *notify.Escalator
	timerPanel := panel.New(fyneApp, panel.Callbacks{
		OnToggle: engine.Toggle,
		OnStop:   engine.Stop,
		OnReset:  engine.Reset,
		OnShown: func() {
			escalator.Acknowledge()
		},
	})

	notifier := uidesktop.NewNotifier(fyneApp, timerPanel, platform.NewSoundPlayer(logger))
	escalator = notify.New(notifier, store, notify.Config{
		Clock:    realClock,
		Logger:   logger,
		Recorder: recorder,
	})
	defer escalator.Close()

	scheduler := activity.New(engine, store, activity.Config{
		Clock:    realClock,
		Logger:   logger,
		Pointer:  platform.NewPointerSource(),
		Idle:     platform.NewIdleProvider(),
		Recorder: recorder,
	})
	engine.SetActivityReporter(scheduler)

	hub := control.NewHub(realClock, logger)
	engine.AddSink(escalator)
	engine.AddSink(recorder)
	engine.AddSink(hub)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	prefsWindow := preferences.New(fyneApp, store.Snapshot(), store.Update, store.Reset)

	trayManager := tray.New(desktopApp, tray.Callbacks{
		OnShow:   timerPanel.Show,
		OnToggle: engine.Toggle,
		OnStop:   engine.Stop,
		OnReset:  engine.Reset,
		OnTestNotification: func() {
			go func() {
				if err := escalator.TestNotification(ctx); err != nil {
					logger.Warn("test notification incomplete", logging.ErrAttr(err))
				}
			}()
		},
		OnPreferences: prefsWindow.Show,
		OnQuit:        fyneApp.Quit,
	})

	render := func(state model.TimerState) {
		view := panel.NewView(state, store.Snapshot().DurationSeconds())
		timerPanel.Render(view)
		trayManager.SetPhase(view.Phase)
		trayManager.SetStatus(view.Remaining)
		desktopApp.SetSystemTrayIcon(trayIcon(view.Phase))
	}

	events := engine.Subscribe(16)
	go func() {
		for event := range events {
			state := event.State
			if event.Type == countdown.EventCompleted {
				continue
			}
			fyne.Do(func() { render(state) })
		}
	}()

	store.OnChange(func(_, current model.Settings) {
		fyne.Do(func() {
			prefsWindow.UpdateSettings(current)
			render(engine.State())
		})
	})

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return store.Watch(groupCtx)
	})
	group.Go(func() error {
		return platform.NewPowerMonitor(logger).Run(groupCtx, scheduler.HandlePowerEvent)
	})
	if opts.controlAddr != "" {
		server := control.New(control.Config{
			Addr:       opts.controlAddr,
			Logger:     logger,
			Timer:      engine,
			Escalation: escalator,
			Settings:   store,
			Hub:        hub,
			Gatherer:   registry,
		})
		group.Go(func() error {
			// The control surface is optional; the timer keeps running without it.
			if err := server.Run(groupCtx); err != nil {
				logger.Error("control server unavailable", logging.ErrAttr(err))
			}
			return nil
		})
	}
	go func() {
		<-groupCtx.Done()
		fyne.Do(fyneApp.Quit)
	}()

	scheduler.Start()
	defer scheduler.Stop()

	render(engine.State())
	timerPanel.Show()
	fyneApp.Run()

	cancel()
	return group.Wait()
}

func trayIcon(phase model.Phase) fyne.Resource {
	switch phase {
	case model.PhaseRunning:
		return theme.MediaPlayIcon()
	case model.PhasePaused:
		return theme.MediaPauseIcon()
	default:
		return theme.HistoryIcon()
	}
}
