package runtime

import (
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"pong-chat/contract"
	"pong-chat/domain"
)

type Set map[string]struct{}

type session struct {
	entry domain.PresenceEntry
	sink  contract.ConnectionSink
}

// Registry is the process-local presence registry. A user is online while at
// least one of their connections is registered.
type Registry struct {
	mu              sync.RWMutex
	log             *slog.Logger
	sessions        map[string]session // map connection -> session
	userConnections map[string]Set     // map user to connections
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		log:             log,
		sessions:        make(map[string]session),
		userConnections: make(map[string]Set),
	}
}

// Register binds a connection to a user and its outbound sink.
// Registering an existing connection overwrites it, moving it to the new user's
// group when the user changed.
func (r *Registry) Register(connectionID, userID, displayName string, sink contract.ConnectionSink) {
	if strings.TrimSpace(connectionID) == "" || strings.TrimSpace(userID) == "" {
		r.log.Warn("Ignoring presence registration with blank id",
			"connection_id", connectionID, "user_id", userID)
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if previous, ok := r.sessions[connectionID]; ok && previous.entry.UserID != userID {
		r.removeFromGroup(previous.entry.UserID, connectionID)
	}
	r.sessions[connectionID] = session{
		entry: domain.PresenceEntry{
			ConnectionID: connectionID,
			UserID:       userID,
			DisplayName:  displayName,
			ConnectedAt:  time.Now().UTC(),
		},
		sink: sink,
	}
	if _, ok := r.userConnections[userID]; !ok {
		r.userConnections[userID] = make(Set)
	}
	r.userConnections[userID][connectionID] = struct{}{}
}

// Unregister removes a connection. Unknown connections are ignored and no
// empty group is left behind.
func (r *Registry) Unregister(connectionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[connectionID]
	if !ok {
		return
	}
	delete(r.sessions, connectionID)
	r.removeFromGroup(s.entry.UserID, connectionID)
}

func (r *Registry) removeFromGroup(userID, connectionID string) {
	if members, ok := r.userConnections[userID]; ok {
		delete(members, connectionID)
		if len(members) == 0 {
			delete(r.userConnections, userID)
		}
	}
}

// ListOnlineUserIDs returns each online user once, sorted.
func (r *Registry) ListOnlineUserIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	userIDs := make([]string, 0, len(r.userConnections))
	for userID := range r.userConnections {
		userIDs = append(userIDs, userID)
	}
	sort.Strings(userIDs)
	return userIDs
}

func (r *Registry) IsOnline(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.userConnections[userID]
	return ok
}

// GetSinksForUser resolves the user's broadcast group into sinks.
func (r *Registry) GetSinksForUser(userID string) []contract.ConnectionSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, ok := r.userConnections[userID]
	if !ok {
		return nil
	}
	sinks := make([]contract.ConnectionSink, 0, len(members))
	for connectionID := range members {
		if s, exists := r.sessions[connectionID]; exists {
			sinks = append(sinks, s.sink)
		}
	}
	return sinks
}

func (r *Registry) GetAllSinks() []contract.ConnectionSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sinks := make([]contract.ConnectionSink, 0, len(r.sessions))
	for _, s := range r.sessions {
		sinks = append(sinks, s.sink)
	}
	return sinks
}

// Entries returns a snapshot of every registered connection, oldest first.
func (r *Registry) Entries() []domain.PresenceEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]domain.PresenceEntry, 0, len(r.sessions))
	for _, s := range r.sessions {
		entries = append(entries, s.entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].ConnectedAt.Equal(entries[j].ConnectedAt) {
			return entries[i].ConnectionID < entries[j].ConnectionID
		}
		return entries[i].ConnectedAt.Before(entries[j].ConnectedAt)
	})
	return entries
}

// Count returns the number of registered connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Reset drops every registration.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions = make(map[string]session)
	r.userConnections = make(map[string]Set)
}
