package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"autotimer/internal/core/countdown"
	"autotimer/internal/core/model"
)

const namespace = "autotimer"

var phases = []model.Phase{model.PhaseIdle, model.PhaseRunning, model.PhasePaused}

// Metrics records timer, scheduler and notification activity. It implements
// countdown.Sink, activity.Recorder and notify.Recorder.
type Metrics struct {
	sessionsStarted   *prometheus.CounterVec
	sessionsCompleted prometheus.Counter
	phase             *prometheus.GaugeVec
	remaining         prometheus.Gauge
	automatic         *prometheus.CounterVec
	notifications     *prometheus.CounterVec
}

// New registers the collectors on registerer.
func New(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		sessionsStarted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_started_total",
			Help:      "Sessions started, by trigger.",
		}, []string{"reason"}),
		sessionsCompleted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_completed_total",
			Help:      "Sessions that counted down to zero.",
		}),
		phase: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "timer_phase",
			Help:      "1 for the current timer phase, 0 otherwise.",
		}, []string{"phase"}),
		remaining: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "timer_remaining_seconds",
			Help:      "Seconds left in the current session.",
		}),
		automatic: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduler_actions_total",
			Help:      "Timer operations issued by the activity scheduler.",
		}, []string{"action", "reason"}),
		notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notification requests by channel and outcome.",
		}, []string{"channel", "outcome"}),
	}
}

// OnStateChanged tracks phase, remaining time and session starts.
func (m *Metrics) OnStateChanged(state model.TimerState, reason countdown.Reason) {
	if reason == countdown.ReasonStart || reason == countdown.ReasonAutoRestart {
		m.sessionsStarted.WithLabelValues(string(reason)).Inc()
	}
	current := state.Phase()
	for _, phase := range phases {
		value := 0.0
		if phase == current {
			value = 1
		}
		m.phase.WithLabelValues(string(phase)).Set(value)
	}
	m.remaining.Set(float64(state.RemainingSeconds))
}

// OnCompleted counts completed sessions.
func (m *Metrics) OnCompleted(countdown.Completion) {
	m.sessionsCompleted.Inc()
}

func (m *Metrics) AutoPaused(reason string) {
	m.automatic.WithLabelValues("pause", reason).Inc()
}

func (m *Metrics) AutoResumed(reason string) {
	m.automatic.WithLabelValues("resume", reason).Inc()
}

func (m *Metrics) AutoStarted(reason string) {
	m.automatic.WithLabelValues("start", reason).Inc()
}

// Delivered counts one notification outcome.
func (m *Metrics) Delivered(channel, outcome string) {
	m.notifications.WithLabelValues(channel, outcome).Inc()
}
