// Package hub manages WebSocket connections and fans job events out to
// subscribed clients. Connections are grouped per user; on top of that
// a client can subscribe to individual jobs to receive their progress
// and completion events.
package hub

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Stats summarizes the hub's current connection state.
type Stats struct {
	Connections      int `json:"connections"`
	Users            int `json:"users"`
	JobSubscriptions int `json:"job_subscriptions"`
}

// Hub tracks active clients and their job subscriptions. All methods
// are safe for concurrent use.
type Hub struct {
	logger *slog.Logger

	mu      sync.RWMutex
	clients map[*Client]bool
	users   map[string]map[*Client]bool
	jobs    map[uuid.UUID]map[*Client]bool
}

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger:  logger.With(slog.String("component", "hub")),
		clients: make(map[*Client]bool),
		users:   make(map[string]map[*Client]bool),
		jobs:    make(map[uuid.UUID]map[*Client]bool),
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[c] = true
	if c.userID != "" {
		if h.users[c.userID] == nil {
			h.users[c.userID] = make(map[*Client]bool)
		}
		h.users[c.userID][c] = true
	}

	h.logger.Info("client connected",
		slog.String("client_id", c.id),
		slog.String("user_id", c.userID))
}

// Unregister removes a client and all its subscriptions. Calling it for
// a client that was already removed is a no-op, so both pumps can
// trigger it on their way out.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.clients[c] {
		return
	}
	delete(h.clients, c)

	if c.userID != "" {
		if clients, ok := h.users[c.userID]; ok {
			delete(clients, c)
			if len(clients) == 0 {
				delete(h.users, c.userID)
			}
		}
	}
	for jobID, clients := range h.jobs {
		if clients[c] {
			delete(clients, c)
			if len(clients) == 0 {
				delete(h.jobs, jobID)
			}
		}
	}
	c.closeSend()

	h.logger.Info("client disconnected", slog.String("client_id", c.id))
}

// SubscribeJob subscribes a client to one job's events.
func (h *Hub) SubscribeJob(c *Client, jobID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.clients[c] {
		return
	}
	if h.jobs[jobID] == nil {
		h.jobs[jobID] = make(map[*Client]bool)
	}
	h.jobs[jobID][c] = true
}

// BroadcastToJob delivers an event to every client subscribed to the
// job. Delivery is best-effort: clients whose send buffer is full miss
// the event, and zero subscribers is not an error.
func (h *Hub) BroadcastToJob(jobID uuid.UUID, event any) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("failed to marshal job event",
			slog.String("job_id", jobID.String()),
			slog.String("error", err.Error()))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.jobs[jobID] {
		if !client.trySend(data) {
			h.logger.Warn("dropping job event for client",
				slog.String("client_id", client.id),
				slog.String("job_id", jobID.String()))
		}
	}
}

// BroadcastToUser delivers an event to every connection of one user.
func (h *Hub) BroadcastToUser(userID string, event any) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("failed to marshal user event",
			slog.String("user_id", userID),
			slog.String("error", err.Error()))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.users[userID] {
		if !client.trySend(data) {
			h.logger.Warn("dropping user event for client",
				slog.String("client_id", client.id),
				slog.String("user_id", userID))
		}
	}
}

// Stats reports current connection counts.
func (h *Hub) Stats() Stats {
	h.mu.RLock()
	defer h.mu.RUnlock()

	subscriptions := 0
	for _, clients := range h.jobs {
		subscriptions += len(clients)
	}
	return Stats{
		Connections:      len(h.clients),
		Users:            len(h.users),
		JobSubscriptions: subscriptions,
	}
}
