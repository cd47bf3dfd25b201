package server

import (
	"net/http"
	"time"

	"pong-chat/contract"
	"pong-chat/observability"
)

type healthResponse struct {
	Status string                   `json:"status"`
	Stats  observability.RelayStats `json:"stats"`
}

type presenceEntry struct {
	UserID      string    `json:"userId"`
	DisplayName string    `json:"displayName"`
	ConnectedAt time.Time `json:"connectedAt"`
}

type presenceResponse struct {
	UserIDs     []string        `json:"userIds"`
	Connections []presenceEntry `json:"connections"`
}

type PresenceHandler struct {
	registry   contract.IRegistry
	monitoring *observability.MonitoringManager
}

func NewPresenceHandler(registry contract.IRegistry, monitoring *observability.MonitoringManager) *PresenceHandler {
	return &PresenceHandler{registry: registry, monitoring: monitoring}
}

func (h *PresenceHandler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status: "ok",
		Stats:  h.monitoring.Snapshot(h.registry.Count()),
	})
}

// Presence lists online users. Connection ids stay private to the relay.
func (h *PresenceHandler) Presence(w http.ResponseWriter, _ *http.Request) {
	entries := h.registry.Entries()
	connections := make([]presenceEntry, 0, len(entries))
	for _, e := range entries {
		connections = append(connections, presenceEntry{
			UserID:      e.UserID,
			DisplayName: e.DisplayName,
			ConnectedAt: e.ConnectedAt,
		})
	}
	userIDs := h.registry.ListOnlineUserIDs()
	if userIDs == nil {
		userIDs = []string{}
	}
	writeJSON(w, http.StatusOK, presenceResponse{UserIDs: userIDs, Connections: connections})
}
