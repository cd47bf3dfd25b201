package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"pong-chat/auth"
	"pong-chat/domain"
	"pong-chat/errors"
	"pong-chat/search"
	"pong-chat/services"

	"github.com/gorilla/mux"
)

// MessageRelay pushes a stored message to the receiver's live connections.
type MessageRelay interface {
	DeliverNewMessage(ctx context.Context, message domain.Message, senderName string) int
}

// Searcher runs a full text search restricted to one user's messages.
type Searcher interface {
	Search(ctx context.Context, userID string, q search.Query) ([]search.Hit, error)
}

type sendRequest struct {
	ReceiverID string `json:"receiverId"`
	Content    string `json:"content"`
	SenderName string `json:"senderName"`
}

type sendResponse struct {
	Message   domain.Message `json:"message"`
	Delivered int            `json:"delivered"`
}

type MessageHandler struct {
	log        *slog.Logger
	messages   services.IMessageService
	relay      MessageRelay
	authorizer services.SendAuthorizer
	searcher   Searcher
}

// NewMessageHandler builds the REST message endpoints. A nil authorizer
// allows every send, a nil searcher disables search.
func NewMessageHandler(
	log *slog.Logger,
	messages services.IMessageService,
	relay MessageRelay,
	authorizer services.SendAuthorizer,
	searcher Searcher,
) *MessageHandler {
	return &MessageHandler{log: log, messages: messages, relay: relay, authorizer: authorizer, searcher: searcher}
}

func (h *MessageHandler) Register(router *mux.Router) {
	router.HandleFunc("/messages", h.Send).Methods(http.MethodPost)
	if h.searcher != nil {
		router.HandleFunc("/messages/search", h.Search).Methods(http.MethodGet)
	}
	router.HandleFunc("/messages/{id}", h.Get).Methods(http.MethodGet)
	router.HandleFunc("/messages/{id}/read", h.MarkAsRead).Methods(http.MethodPatch)
	router.HandleFunc("/messages/{id}", h.Delete).Methods(http.MethodDelete)
	router.HandleFunc("/conversations/{userA}/{userB}", h.GetConversation).Methods(http.MethodGet)
	router.HandleFunc("/users/{userId}/conversations", h.GetUserConversations).Methods(http.MethodGet)
}

// requester returns the identified caller or writes a forbidden response.
func requester(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == "" {
		writeError(w, errors.ErrNotIdentified)
		return "", false
	}
	return userID, true
}

func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	senderID, ok := requester(w, r)
	if !ok {
		return
	}

	var body sendRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, fmt.Errorf("%w: %v", errors.ErrInvalidPayload, err))
		return
	}

	if h.authorizer != nil {
		if err := h.authorizer.AuthorizeSend(r.Context(), senderID, senderID, body.ReceiverID); err != nil {
			writeError(w, err)
			return
		}
	}

	message, err := h.messages.Send(r.Context(), senderID, body.ReceiverID, body.Content)
	if err != nil {
		writeError(w, err)
		return
	}

	delivered := 0
	if h.relay != nil {
		delivered = h.relay.DeliverNewMessage(r.Context(), message, body.SenderName)
	}
	h.log.Debug("Message sent over REST", "message_id", message.ID, "delivered", delivered)
	writeJSON(w, http.StatusCreated, sendResponse{Message: message, Delivered: delivered})
}

func (h *MessageHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := requester(w, r)
	if !ok {
		return
	}
	message, found, err := h.messages.GetByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	if !found {
		writeError(w, errors.ErrMessageNotFound)
		return
	}
	if !message.Involves(userID) {
		writeError(w, fmt.Errorf("%w: not a participant", errors.ErrForbidden))
		return
	}
	writeJSON(w, http.StatusOK, message)
}

func (h *MessageHandler) MarkAsRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := requester(w, r)
	if !ok {
		return
	}
	message, found, err := h.messages.MarkAsReadBy(r.Context(), mux.Vars(r)["id"], userID)
	if err != nil {
		writeError(w, err)
		return
	}
	if !found {
		writeError(w, errors.ErrMessageNotFound)
		return
	}
	writeJSON(w, http.StatusOK, message)
}

func (h *MessageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requester(w, r)
	if !ok {
		return
	}
	removed, err := h.messages.DeleteBy(r.Context(), mux.Vars(r)["id"], userID)
	if err != nil {
		writeError(w, err)
		return
	}
	if !removed {
		writeError(w, errors.ErrMessageNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *MessageHandler) GetConversation(w http.ResponseWriter, r *http.Request) {
	userID, ok := requester(w, r)
	if !ok {
		return
	}
	vars := mux.Vars(r)
	if userID != vars["userA"] && userID != vars["userB"] {
		writeError(w, fmt.Errorf("%w: not a participant", errors.ErrForbidden))
		return
	}
	messages, err := h.messages.GetConversation(r.Context(), vars["userA"], vars["userB"])
	if err != nil {
		writeError(w, err)
		return
	}
	if messages == nil {
		messages = []domain.Message{}
	}
	writeJSON(w, http.StatusOK, messages)
}

func (h *MessageHandler) GetUserConversations(w http.ResponseWriter, r *http.Request) {
	userID, ok := requester(w, r)
	if !ok {
		return
	}
	if userID != mux.Vars(r)["userId"] {
		writeError(w, fmt.Errorf("%w: conversations are private", errors.ErrForbidden))
		return
	}
	conversations, err := h.messages.GetUserConversations(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, conversations)
}

// Search accepts the query syntax of search.NewSearchQuery in q, explicit
// with/lang/limit parameters take precedence over inline flags.
func (h *MessageHandler) Search(w http.ResponseWriter, r *http.Request) {
	userID, ok := requester(w, r)
	if !ok {
		return
	}
	params := r.URL.Query()
	query := search.NewSearchQuery(params.Get("q"))
	if with := strings.TrimSpace(params.Get("with")); with != "" {
		query.With = with
	}
	if lang := strings.TrimSpace(params.Get("lang")); lang != "" {
		query.Language = strings.ToLower(lang)
	}
	if raw := params.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, fmt.Errorf("%w: limit must be a number", errors.ErrValidation))
			return
		}
		query.Limit = limit
	}

	hits, err := h.searcher.Search(r.Context(), userID, query)
	if err != nil {
		h.log.Error("Search failed", "user_id", userID, "error", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, hits)
}
