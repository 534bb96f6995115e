package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/phrazzld/lectern-api/internal/api/shared"
	"github.com/phrazzld/lectern-api/internal/hub"
)

// connectionEstablishedMessage is the first frame sent on every new
// WebSocket connection.
type connectionEstablishedMessage struct {
	Type   string `json:"type"`
	UserID string `json:"user_id"`
	JobID  string `json:"job_id,omitempty"`
}

// WSHandler upgrades HTTP requests to WebSocket connections and wires
// them into the hub.
type WSHandler struct {
	hub      *hub.Hub
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(h *hub.Hub, logger *slog.Logger) *WSHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WSHandler{
		hub: h,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Browser clients connect from arbitrary origins.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger.With(slog.String("component", "ws_handler")),
	}
}

// Connect handles GET /ws/user/{user_id} requests. An optional job_id
// query parameter pre-subscribes the connection to that job's events;
// further jobs can be followed with subscribe_job messages.
func (h *WSHandler) Connect(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user_id")
	if userID == "" {
		shared.RespondWithError(w, r, http.StatusBadRequest, "user_id is required")
		return
	}

	var jobID *uuid.UUID
	if raw := r.URL.Query().Get("job_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid job_id")
			return
		}
		jobID = &id
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote an HTTP error response.
		h.logger.Warn("websocket upgrade failed",
			slog.String("user_id", userID),
			slog.Any("error", err))
		return
	}

	client := hub.NewClient(h.hub, conn, userID, h.logger)
	h.hub.Register(client)

	welcome := connectionEstablishedMessage{
		Type:   "connection_established",
		UserID: userID,
	}
	if jobID != nil {
		h.hub.SubscribeJob(client, *jobID)
		welcome.JobID = jobID.String()
	}
	client.Send(welcome)

	go client.WritePump()
	go client.ReadPump()
}

// Stats handles GET /ws/stats requests.
func (h *WSHandler) Stats(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, h.hub.Stats())
}
