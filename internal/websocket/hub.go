package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"energylens/internal/infrastructure"
)

// Message type constants shared with the dashboard frontend.
const (
	TypeConnection    = "connection"
	TypeRunStatus     = "run:status"
	TypeStageProgress = "run:progress"
	TypeRunComplete   = "run:complete"
	TypeError         = "error"
	TypeDataRefresh   = "data_refresh"

	ActionRefresh = "refresh"

	LevelInfo    = "info"
	LevelSuccess = "success"
	LevelWarning = "warning"
	LevelError   = "error"
)

// Hub maintains the set of active clients and broadcasts messages to them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	mu     sync.RWMutex
	logger *slog.Logger

	totalConnections int64
	messagesSent     int64

	quit    chan struct{}
	running bool
}

// NewHub creates a new Hub instance with dependency injection.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	logger = logger.With(slog.String("component", "websocket.hub"))

	return &Hub{
		broadcast:  make(chan []byte, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		logger:     logger,
		quit:       make(chan struct{}),
	}
}

// Start starts the hub's main loop in a goroutine. Safe to call once.
func (h *Hub) Start() {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return
	}
	h.running = true
	h.mu.Unlock()

	go h.Run()
}

// Run processes register, unregister and broadcast events until Stop.
func (h *Hub) Run() {
	for {
		select {
		case <-h.quit:
			h.logger.Info("hub shutting down")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.totalConnections++
			h.mu.Unlock()

			h.logger.Info("client registered",
				slog.Int("total_clients", count),
				slog.String("client_id", client.id),
				slog.String("remote_addr", client.remoteAddr))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			count := len(h.clients)
			h.mu.Unlock()

			h.logger.Info("client unregistered",
				slog.Int("total_clients", count),
				slog.String("client_id", client.id))

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
					h.messagesSent++
				default:
					// Slow consumer, drop it.
					delete(h.clients, client)
					close(client.send)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Stop terminates the hub loop and disconnects all clients.
func (h *Hub) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
	h.mu.Unlock()

	close(h.quit)
}

// Register queues a client for registration. Returns immediately when the
// hub has stopped.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.quit:
	}
}

// Unregister queues a client for removal. Returns immediately when the hub
// has stopped, so client pumps never block on a stopped hub.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.quit:
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// BroadcastJSON marshals the message and sends it to all clients.
// Messages for clients with full buffers are dropped.
func (h *Hub) BroadcastJSON(message map[string]interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("failed to marshal broadcast message", slog.String("error", err.Error()))
		return
	}

	select {
	case h.broadcast <- data:
	default:
		h.logger.Warn("broadcast channel full, dropping message")
	}
}

// BroadcastRunStatus announces a pipeline run state transition.
func (h *Hub) BroadcastRunStatus(runID, status, message string) {
	h.BroadcastJSON(map[string]interface{}{
		"type":      TypeRunStatus,
		"timestamp": time.Now().Format(time.RFC3339),
		"data": map[string]interface{}{
			"run_id":  runID,
			"status":  status,
			"message": message,
		},
	})
}

// BroadcastStageProgress reports progress of a single pipeline stage.
func (h *Hub) BroadcastStageProgress(runID, stage, status string, progress int, message string) {
	h.BroadcastJSON(map[string]interface{}{
		"type":      TypeStageProgress,
		"timestamp": time.Now().Format(time.RFC3339),
		"data": map[string]interface{}{
			"run_id":   runID,
			"stage":    stage,
			"status":   status,
			"progress": progress,
			"message":  message,
		},
	})
}

// BroadcastRunComplete announces the end of a pipeline run.
func (h *Hub) BroadcastRunComplete(runID string, success bool, message string) {
	level := LevelSuccess
	if !success {
		level = LevelError
	}
	h.BroadcastJSON(map[string]interface{}{
		"type":      TypeRunComplete,
		"timestamp": time.Now().Format(time.RFC3339),
		"data": map[string]interface{}{
			"run_id":  runID,
			"success": success,
			"level":   level,
			"message": message,
		},
	})
}

// BroadcastRefresh tells clients that dataset-backed views should reload.
func (h *Hub) BroadcastRefresh(source string, components []string) {
	h.BroadcastJSON(map[string]interface{}{
		"type":      TypeDataRefresh,
		"action":    ActionRefresh,
		"timestamp": time.Now().Format(time.RFC3339),
		"data": map[string]interface{}{
			"source":     source,
			"components": components,
		},
	})
}

// BroadcastError reports a failure to connected clients.
func (h *Hub) BroadcastError(code, message, stage string) {
	h.BroadcastJSON(map[string]interface{}{
		"type":      TypeError,
		"timestamp": time.Now().Format(time.RFC3339),
		"data": map[string]interface{}{
			"code":    code,
			"message": message,
			"stage":   stage,
			"level":   LevelError,
		},
	})
}
