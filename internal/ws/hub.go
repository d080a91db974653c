package ws

import (
	"encoding/json"
	"sync"

	"dataspot/internal/logger"
	"dataspot/internal/service"
)

// Hub fans deposit settlement events out to each user's connected clients.
// It implements service.DepositNotifier. Delivery is best-effort: a slow or
// gone client is dropped, never waited on; the polling endpoints remain the
// source of truth for deposit status.
type Hub struct {
	mu      sync.RWMutex
	clients map[int64]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[int64]map[*Client]struct{}),
	}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.UserID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[c.UserID] = set
	}
	set[c] = struct{}{}
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.clients[c.UserID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.clients, c.UserID)
		}
	}
}

// ConnectionCount reports the number of connected clients across all users.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, set := range h.clients {
		n += len(set)
	}
	return n
}

// DepositSettled pushes a terminal deposit event to the user's connections.
func (h *Hub) DepositSettled(userID int64, event service.DepositEvent) {
	payload, err := json.Marshal(struct {
		Type string               `json:"type"`
		Data service.DepositEvent `json:"data"`
	}{Type: "deposit_settled", Data: event})
	if err != nil {
		logger.Error("failed to marshal deposit event", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients[userID] {
		select {
		case c.send <- payload:
		default:
			// client is not draining its queue; drop the message
		}
	}
}
