package control

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"autotimer/internal/core/countdown"
	"autotimer/internal/core/model"
	"autotimer/internal/logging"
)

type timerResponse struct {
	State     model.TimerState `json:"state"`
	Phase     model.Phase      `json:"phase"`
	Remaining string           `json:"remaining"`
	Progress  float64          `json:"progress"`
	// PendingNotifications counts escalation steps not yet delivered.
	PendingNotifications int `json:"pending_notifications"`
}

func (server *Server) timerSnapshot() timerResponse {
	state := server.timer.State()
	return timerResponse{
		State:                state,
		Phase:                state.Phase(),
		Remaining:            state.FormatRemaining(),
		Progress:             state.Progress(server.settings.Snapshot().DurationSeconds()),
		PendingNotifications: server.escalation.Pending(),
	}
}

func (server *Server) timerStatus(w http.ResponseWriter, r *http.Request) {
	server.writeJSON(w, http.StatusOK, server.timerSnapshot())
}

func (server *Server) timerCommand(w http.ResponseWriter, r *http.Request) {
	command := httprouter.ParamsFromContext(r.Context()).ByName("command")
	operations := map[string]func(){
		"start":  server.timer.Start,
		"pause":  server.timer.Pause,
		"resume": server.timer.Resume,
		"stop":   server.timer.Stop,
		"reset":  server.timer.Reset,
		"toggle": server.timer.Toggle,
	}
	operation, ok := operations[command]
	if !ok {
		server.badRequest(w, fmt.Errorf("unknown timer command %q", command))
		return
	}
	operation()
	logging.L(r.Context()).Info("timer command", slog.String("command", command))
	server.writeJSON(w, http.StatusOK, server.timerSnapshot())
}

func (server *Server) testNotification(w http.ResponseWriter, r *http.Request) {
	if err := server.escalation.TestNotification(r.Context()); err != nil {
		server.writeJSON(w, http.StatusBadGateway, envelope{"error": err.Error()})
		return
	}
	server.writeJSON(w, http.StatusOK, envelope{"status": "sent"})
}

func (server *Server) acknowledge(w http.ResponseWriter, r *http.Request) {
	server.escalation.Acknowledge()
	server.writeJSON(w, http.StatusOK, envelope{"pending_notifications": server.escalation.Pending()})
}

func (server *Server) getSettings(w http.ResponseWriter, r *http.Request) {
	server.writeJSON(w, http.StatusOK, server.settings.Snapshot())
}

// putSettings merges a full or partial settings document.
func (server *Server) putSettings(w http.ResponseWriter, r *http.Request) {
	body, err := server.readBody(w, r)
	if err != nil {
		server.badRequest(w, err)
		return
	}
	if err := server.settings.Import(body); err != nil {
		server.settingsError(w, r, err)
		return
	}
	server.writeJSON(w, http.StatusOK, server.settings.Snapshot())
}

func (server *Server) resetSettings(w http.ResponseWriter, r *http.Request) {
	if err := server.settings.Reset(); err != nil {
		server.serverError(w, r, err)
		return
	}
	server.writeJSON(w, http.StatusOK, server.settings.Snapshot())
}

func (server *Server) exportSettings(w http.ResponseWriter, r *http.Request) {
	data, err := server.settings.Export()
	if err != nil {
		server.serverError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="autotimer-settings.json"`)
	_, _ = w.Write(data)
}

func (server *Server) events(w http.ResponseWriter, r *http.Request) {
	initial := countdown.Event{
		Type:  countdown.EventStateChanged,
		State: server.timer.State(),
		At:    server.hub.clock.Now(),
	}
	server.hub.ServeWS(w, r, &initial)
}
