package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autotimer/internal/core/countdown"
	"autotimer/internal/core/model"
)

func TestStateChangesUpdateGauges(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.OnStateChanged(model.TimerState{IsRunning: true, RemainingSeconds: 1500}, countdown.ReasonStart)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sessionsStarted.WithLabelValues("start")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.phase.WithLabelValues("running")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.phase.WithLabelValues("idle")))
	assert.Equal(t, 1500.0, testutil.ToFloat64(m.remaining))

	m.OnStateChanged(model.TimerState{IsRunning: true, IsPaused: true, RemainingSeconds: 1200}, countdown.ReasonPause)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.phase.WithLabelValues("paused")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.phase.WithLabelValues("running")))

	m.OnStateChanged(model.TimerState{IsRunning: true, RemainingSeconds: 60}, countdown.ReasonAutoRestart)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sessionsStarted.WithLabelValues("auto_restart")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sessionsStarted.WithLabelValues("start")))
}

func TestCountersGather(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	m.OnCompleted(countdown.Completion{})
	m.AutoPaused("idle")
	m.AutoPaused("idle")
	m.AutoResumed("pointer")
	m.AutoStarted("keyboard")
	m.Delivered("push", "sent")
	m.Delivered("sound", "fallback")

	expected := `
# HELP autotimer_scheduler_actions_total Timer operations issued by the activity scheduler.
# TYPE autotimer_scheduler_actions_total counter
autotimer_scheduler_actions_total{action="pause",reason="idle"} 2
autotimer_scheduler_actions_total{action="resume",reason="pointer"} 1
autotimer_scheduler_actions_total{action="start",reason="keyboard"} 1
`
	require.NoError(t, testutil.GatherAndCompare(registry, strings.NewReader(expected), "autotimer_scheduler_actions_total"))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sessionsCompleted))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.notifications.WithLabelValues("sound", "fallback")))
}
