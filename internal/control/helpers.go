package control

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/goccy/go-json"

	"autotimer/internal/core/model"
	"autotimer/internal/logging"
	"autotimer/internal/storage"
)

// maxBodyBytes bounds request bodies; settings documents are tiny.
const maxBodyBytes = 64 << 10

type envelope map[string]any

type fieldProblem struct {
	Field string `json:"field"`
	Value int    `json:"value"`
	Min   int    `json:"min"`
	Max   int    `json:"max"`
	Error string `json:"error"`
}

func (server *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	body, err := json.Marshal(data)
	if err != nil {
		server.logger.Error("failed to encode response", logging.ErrAttr(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

func (server *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read request body: %w", err)
	}
	return body, nil
}

func (server *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	server.writeJSON(w, status, envelope{"error": message})
}

func (server *Server) badRequest(w http.ResponseWriter, err error) {
	server.errorResponse(w, http.StatusBadRequest, err.Error())
}

func (server *Server) notFound(w http.ResponseWriter) {
	server.errorResponse(w, http.StatusNotFound, "the requested resource could not be found")
}

func (server *Server) serverError(w http.ResponseWriter, r *http.Request, err error) {
	logging.L(r.Context()).Error("request failed", logging.ErrAttr(err))
	server.errorResponse(w, http.StatusInternalServerError, "the server encountered a problem")
}

// settingsError maps a store error to 422 with per-field detail when the
// settings were out of range.
func (server *Server) settingsError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, storage.ErrMalformed) {
		server.badRequest(w, err)
		return
	}
	if !errors.Is(err, model.ErrInvalidSettings) {
		server.serverError(w, r, err)
		return
	}

	problems := []fieldProblem{}
	for _, cfgErr := range model.ConfigurationErrors(err) {
		problems = append(problems, fieldProblem{
			Field: cfgErr.Field,
			Value: cfgErr.Value,
			Min:   cfgErr.Min,
			Max:   cfgErr.Max,
			Error: cfgErr.Error(),
		})
	}
	logging.L(r.Context()).Info("rejected settings", slog.Int("problems", len(problems)))
	server.writeJSON(w, http.StatusUnprocessableEntity, envelope{"error": "invalid settings", "fields": problems})
}
