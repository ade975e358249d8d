package control

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/justinas/alice"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"autotimer/internal/core/model"
)

// DefaultAddr keeps the control surface on the loopback interface.
const DefaultAddr = "127.0.0.1:7457"

const shutdownTimeout = 5 * time.Second

// Timer is the subset of the countdown engine driven over HTTP.
type Timer interface {
	Start()
	Pause()
	Resume()
	Stop()
	Reset()
	Toggle()
	State() model.TimerState
}

// Escalation is the notification escalator as seen by the control surface.
type Escalation interface {
	Acknowledge()
	Pending() int
	TestNotification(ctx context.Context) error
}

// SettingsStore persists and validates settings.
type SettingsStore interface {
	Snapshot() model.Settings
	Reset() error
	Export() ([]byte, error)
	Import(data []byte) error
}

// Config contains the control surface collaborators.
type Config struct {
	Addr       string
	Logger     *slog.Logger
	Timer      Timer
	Escalation Escalation
	Settings   SettingsStore
	Hub        *Hub
	// Gatherer backs /metrics. Nil disables the endpoint.
	Gatherer prometheus.Gatherer
}

// Server is the local HTTP control surface.
type Server struct {
	addr       string
	logger     *slog.Logger
	timer      Timer
	escalation Escalation
	settings   SettingsStore
	hub        *Hub
	gatherer   prometheus.Gatherer
}

// New creates a Server. Timer, Escalation and Settings are required.
func New(config Config) *Server {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	addr := config.Addr
	if addr == "" {
		addr = DefaultAddr
	}
	hub := config.Hub
	if hub == nil {
		hub = NewHub(nil, logger)
	}
	return &Server{
		addr:       addr,
		logger:     logger.With(slog.String("component", "control")),
		timer:      config.Timer,
		escalation: config.Escalation,
		settings:   config.Settings,
		hub:        hub,
		gatherer:   config.Gatherer,
	}
}

// Routes returns the HTTP handler.
func (server *Server) Routes() http.Handler {
	router := httprouter.New()

	router.NotFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		server.notFound(w)
	})

	router.HandlerFunc(http.MethodGet, "/api/timer", server.timerStatus)
	router.HandlerFunc(http.MethodPost, "/api/timer/:command", server.timerCommand)

	router.HandlerFunc(http.MethodPost, "/api/notifications/test", server.testNotification)
	router.HandlerFunc(http.MethodPost, "/api/notifications/ack", server.acknowledge)

	router.HandlerFunc(http.MethodGet, "/api/settings", server.getSettings)
	router.HandlerFunc(http.MethodPut, "/api/settings", server.putSettings)
	router.HandlerFunc(http.MethodPost, "/api/settings/reset", server.resetSettings)
	router.HandlerFunc(http.MethodGet, "/api/settings/export", server.exportSettings)
	router.HandlerFunc(http.MethodPost, "/api/settings/import", server.putSettings)

	router.HandlerFunc(http.MethodGet, "/api/events", server.events)

	if server.gatherer != nil {
		router.Handler(http.MethodGet, "/metrics", promhttp.HandlerFor(server.gatherer, promhttp.HandlerOpts{}))
	}

	standard := alice.New(server.recoverPanic, server.logRequest, secureHeaders)
	return standard.Then(router)
}

// Run serves on the configured address until ctx is done.
func (server *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", server.addr)
	if err != nil {
		return err
	}
	return server.Serve(ctx, listener)
}

// Serve serves on listener until ctx is done, then shuts down gracefully.
func (server *Server) Serve(ctx context.Context, listener net.Listener) error {
	srv := &http.Server{
		Handler:      server.Routes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 15 * time.Second,
		ErrorLog:     slog.NewLogLogger(server.logger.Handler(), slog.LevelWarn),
	}

	shutdownError := make(chan error, 1)
	go func() {
		<-ctx.Done()
		server.hub.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		shutdownError <- srv.Shutdown(shutdownCtx)
	}()

	server.logger.Info("starting control server", slog.String("addr", listener.Addr().String()))

	err := srv.Serve(listener)
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	if err := <-shutdownError; err != nil {
		return err
	}

	server.logger.Info("stopped control server")
	return nil
}
