// -----------------------------------------------------------------------
// WebSocket Handler - Task progress event stream
// -----------------------------------------------------------------------

package handlers

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/casestrainer/internal/common"
	"github.com/ternarybob/casestrainer/internal/interfaces"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Local tool; cross-origin pages may connect
	},
}

// WSMessage is the wire format pushed to subscribers.
type WSMessage struct {
	Type      string      `json:"type"`
	TaskID    string      `json:"task_id,omitempty"`
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp string      `json:"timestamp"`
}

// WebSocketHandler broadcasts task events to connected clients. It is the
// EventPublisher the workers and log consumer publish into. task_progress
// events are throttled per task; terminal and log events always pass.
type WebSocketHandler struct {
	logger arbor.ILogger

	mu          sync.RWMutex
	clients     map[*websocket.Conn]bool
	clientMutex map[*websocket.Conn]*sync.Mutex

	allowedEvents map[string]bool // Empty = allow all

	throttleInterval time.Duration
	throttleMu       sync.Mutex
	progressLimiters map[string]*rate.Limiter // taskID -> limiter

	// Clients compare this across reconnects to detect a server restart.
	serverInstanceID string
}

var _ interfaces.EventPublisher = (*WebSocketHandler)(nil)

// NewWebSocketHandler creates the websocket hub.
func NewWebSocketHandler(logger arbor.ILogger, config *common.WebSocketConfig) *WebSocketHandler {
	h := &WebSocketHandler{
		logger:           logger,
		clients:          make(map[*websocket.Conn]bool),
		clientMutex:      make(map[*websocket.Conn]*sync.Mutex),
		allowedEvents:    make(map[string]bool),
		progressLimiters: make(map[string]*rate.Limiter),
		serverInstanceID: uuid.New().String(),
	}

	if config != nil {
		for _, eventType := range config.AllowedEvents {
			h.allowedEvents[eventType] = true
		}
		if config.ThrottleInterval != "" {
			if d, err := time.ParseDuration(config.ThrottleInterval); err == nil && d > 0 {
				h.throttleInterval = d
			} else if err != nil {
				logger.Warn().
					Err(err).
					Str("interval", config.ThrottleInterval).
					Msg("Invalid websocket throttle interval, throttling disabled")
			}
		}
	}

	logger.Info().
		Str("server_instance_id", h.serverInstanceID).
		Msg("WebSocket handler initialized")
	return h
}

// HandleWebSocket upgrades GET /ws and holds the connection open.
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	h.mu.Lock()
	h.clients[conn] = true
	h.clientMutex[conn] = &sync.Mutex{}
	clientCount := len(h.clients)
	h.mu.Unlock()

	h.logger.Debug().
		Str("remote", r.RemoteAddr).
		Int("clients", clientCount).
		Msg("WebSocket client connected")

	h.sendTo(conn, WSMessage{
		Type: "connected",
		Payload: map[string]string{
			"server_instance_id": h.serverInstanceID,
			"version":            common.GetVersion(),
		},
		Timestamp: time.Now().Format(time.RFC3339),
	})

	// Reader loop exists only to observe close; clients do not send.
	go func() {
		defer h.removeClient(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// Publish implements EventPublisher. Never blocks on slow clients beyond
// the per-connection write; drops throttled progress events.
func (h *WebSocketHandler) Publish(event interfaces.Event) {
	eventType := string(event.Type)
	if len(h.allowedEvents) > 0 && !h.allowedEvents[eventType] {
		return
	}
	if event.Type == interfaces.EventTaskProgress && !h.allowProgress(event.TaskID) {
		return
	}
	if event.Type == interfaces.EventTaskDone {
		h.releaseThrottle(event.TaskID)
	}

	h.broadcast(WSMessage{
		Type:      eventType,
		TaskID:    event.TaskID,
		Payload:   event.Payload,
		Timestamp: event.Timestamp.Format(time.RFC3339),
	})
}

// allowProgress rate-limits task_progress per task so verification of large
// documents does not flood clients.
func (h *WebSocketHandler) allowProgress(taskID string) bool {
	if h.throttleInterval <= 0 || taskID == "" {
		return true
	}
	h.throttleMu.Lock()
	limiter, ok := h.progressLimiters[taskID]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(h.throttleInterval), 1)
		h.progressLimiters[taskID] = limiter
	}
	h.throttleMu.Unlock()
	return limiter.Allow()
}

func (h *WebSocketHandler) releaseThrottle(taskID string) {
	if taskID == "" {
		return
	}
	h.throttleMu.Lock()
	delete(h.progressLimiters, taskID)
	h.throttleMu.Unlock()
}

func (h *WebSocketHandler) broadcast(msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to marshal websocket message")
		return
	}

	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	mutexes := make([]*sync.Mutex, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
		mutexes = append(mutexes, h.clientMutex[conn])
	}
	h.mu.RUnlock()

	for i, conn := range conns {
		mutexes[i].Lock()
		err := conn.WriteMessage(websocket.TextMessage, data)
		mutexes[i].Unlock()
		if err != nil {
			h.removeClient(conn)
		}
	}
}

func (h *WebSocketHandler) sendTo(conn *websocket.Conn, msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	h.mu.RLock()
	mutex := h.clientMutex[conn]
	h.mu.RUnlock()
	if mutex == nil {
		return
	}
	mutex.Lock()
	defer mutex.Unlock()
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		h.logger.Debug().Err(err).Msg("WebSocket client send failed")
	}
}

func (h *WebSocketHandler) removeClient(conn *websocket.Conn) {
	h.mu.Lock()
	if _, ok := h.clients[conn]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, conn)
	delete(h.clientMutex, conn)
	clientCount := len(h.clients)
	h.mu.Unlock()

	conn.Close()
	h.logger.Debug().Int("clients", clientCount).Msg("WebSocket client disconnected")
}

// ClientCount reports connected clients, used by tests and status logging.
func (h *WebSocketHandler) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
