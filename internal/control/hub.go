package control

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"autotimer/internal/core/clock"
	"autotimer/internal/core/countdown"
	"autotimer/internal/core/model"
)

var (
	pongWait     = 10 * time.Second
	pingInterval = (pongWait * 9) / 10
	writeWait    = 5 * time.Second
)

// egressBuffer is the number of events a client may lag behind before it is dropped.
const egressBuffer = 32

var websocketUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     checkOrigin,
}

// Hub streams engine events to websocket clients. It implements countdown.Sink.
type Hub struct {
	logger *slog.Logger
	clock  clock.Clock

	clientsMu sync.RWMutex
	clients   map[*client]struct{}
	closed    bool
}

type client struct {
	connection *websocket.Conn
	hub        *Hub
	// egress serializes writes on the connection.
	egress    chan countdown.Event
	closeOnce sync.Once
}

// NewHub creates an empty hub.
func NewHub(c clock.Clock, logger *slog.Logger) *Hub {
	if c == nil {
		c = clock.NewReal()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		logger:  logger.With(slog.String("component", "events")),
		clock:   c,
		clients: make(map[*client]struct{}),
	}
}

// OnStateChanged broadcasts a state change.
func (hub *Hub) OnStateChanged(state model.TimerState, reason countdown.Reason) {
	hub.broadcast(countdown.Event{Type: countdown.EventStateChanged, Reason: reason, State: state, At: hub.clock.Now()})
}

// OnCompleted broadcasts a completion.
func (hub *Hub) OnCompleted(completion countdown.Completion) {
	hub.broadcast(countdown.Event{Type: countdown.EventCompleted, Reason: countdown.ReasonComplete, Completion: &completion, At: completion.At})
}

// Clients returns the number of connected clients.
func (hub *Hub) Clients() int {
	hub.clientsMu.RLock()
	defer hub.clientsMu.RUnlock()
	return len(hub.clients)
}

// Close disconnects every client and rejects new ones.
func (hub *Hub) Close() {
	hub.clientsMu.Lock()
	hub.closed = true
	clients := make([]*client, 0, len(hub.clients))
	for c := range hub.clients {
		clients = append(clients, c)
		delete(hub.clients, c)
	}
	hub.clientsMu.Unlock()

	for _, c := range clients {
		c.close()
	}
}

// ServeWS upgrades the request and registers the connection. The first
// message sent is the current state when initial is not nil.
func (hub *Hub) ServeWS(w http.ResponseWriter, r *http.Request, initial *countdown.Event) {
	conn, err := websocketUpgrader.Upgrade(w, r, nil)
	if err != nil {
		hub.logger.Warn("websocket upgrade failed", slog.Any("error", err))
		return
	}

	c := &client{
		connection: conn,
		hub:        hub,
		egress:     make(chan countdown.Event, egressBuffer),
	}
	if initial != nil {
		c.egress <- *initial
	}
	if !hub.addClient(c) {
		conn.Close()
		return
	}
	hub.logger.Debug("websocket client connected", slog.String("remote", r.RemoteAddr))

	go c.readEvents()
	go c.writeEvents()
}

func (hub *Hub) addClient(c *client) bool {
	hub.clientsMu.Lock()
	defer hub.clientsMu.Unlock()
	if hub.closed {
		return false
	}
	hub.clients[c] = struct{}{}
	return true
}

func (hub *Hub) removeClient(c *client) {
	hub.clientsMu.Lock()
	_, ok := hub.clients[c]
	delete(hub.clients, c)
	hub.clientsMu.Unlock()
	if ok {
		c.close()
	}
}

func (hub *Hub) broadcast(event countdown.Event) {
	hub.clientsMu.RLock()
	var slow []*client
	for c := range hub.clients {
		select {
		case c.egress <- event:
		default:
			slow = append(slow, c)
		}
	}
	hub.clientsMu.RUnlock()

	for _, c := range slow {
		hub.logger.Warn("dropping slow websocket client")
		hub.removeClient(c)
	}
}

func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.egress)
	})
}

// readEvents only services control frames; clients do not send commands here.
func (c *client) readEvents() {
	defer c.hub.removeClient(c)

	c.connection.SetReadLimit(512)
	if err := c.connection.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return
	}
	c.connection.SetPongHandler(func(string) error {
		return c.connection.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.connection.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Debug("websocket read failed", slog.Any("error", err))
			}
			return
		}
	}
}

func (c *client) writeEvents() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.connection.Close()
		c.hub.removeClient(c)
	}()

	for {
		select {
		case event, ok := <-c.egress:
			_ = c.connection.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.connection.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			data, err := json.Marshal(event)
			if err != nil {
				c.hub.logger.Error("failed to encode event", slog.Any("error", err))
				return
			}
			if err := c.connection.WriteMessage(websocket.TextMessage, data); err != nil {
				c.hub.logger.Debug("failed to send event", slog.Any("error", err))
				return
			}
		case <-ticker.C:
			_ = c.connection.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.connection.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
