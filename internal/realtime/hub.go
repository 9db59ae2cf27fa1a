package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/gorilla/websocket"

	"github.com/SAP-F-2025/quiz-attempt-service/internal/events"
)

type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Conn is the part of *websocket.Conn the hub writes to
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Hub keeps the monitor sockets watching each attempt
type Hub struct {
	mu       sync.Mutex
	attempts map[string]map[Conn]bool
	logger   *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		attempts: make(map[string]map[Conn]bool),
		logger:   logger,
	}
}

func (h *Hub) AddConnection(attemptID string, conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.attempts[attemptID] == nil {
		h.attempts[attemptID] = make(map[Conn]bool)
	}
	h.attempts[attemptID][conn] = true
	h.logger.Info("Monitor connected", "attempt_id", attemptID, "connections", len(h.attempts[attemptID]))
}

func (h *Hub) RemoveConnection(attemptID string, conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conns, ok := h.attempts[attemptID]; ok {
		if _, present := conns[conn]; !present {
			return
		}
		delete(conns, conn)
		conn.Close()
		if len(conns) == 0 {
			delete(h.attempts, attemptID)
		}
		h.logger.Info("Monitor disconnected", "attempt_id", attemptID)
	}
}

func (h *Hub) ConnectionCount(attemptID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.attempts[attemptID])
}

// Broadcast writes message to every monitor of the attempt and drops sockets that fail
func (h *Hub) Broadcast(attemptID string, msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("Failed to marshal live message", "attempt_id", attemptID, "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	conns, ok := h.attempts[attemptID]
	if !ok {
		return
	}

	for conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.logger.Warn("Dropping monitor socket", "attempt_id", attemptID, "error", err)
			conn.Close()
			delete(conns, conn)
		}
	}
	if len(conns) == 0 {
		delete(h.attempts, attemptID)
	}
}

// Run forwards proctoring events from the local bus until ctx is done
func (h *Hub) Run(ctx context.Context, subscriber message.Subscriber) error {
	messages, err := subscriber.Subscribe(ctx, events.ProctoringEventLogged)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			h.forward(msg)
			msg.Ack()
		}
	}()

	return nil
}

func (h *Hub) forward(msg *message.Message) {
	var data events.ProctoringEventLoggedEvent
	event, err := events.DecodeEvent(msg, &data)
	if err != nil {
		h.logger.Warn("Skipping undecodable live event", "message_id", msg.UUID, "error", err)
		return
	}
	if data.AttemptID == "" {
		h.logger.Warn("Skipping live event without attempt", "message_id", msg.UUID)
		return
	}

	h.Broadcast(data.AttemptID, WSMessage{
		Type: event.Type,
		Data: data,
	})
}
