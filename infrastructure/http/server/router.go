package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"pong-chat/auth"
	"pong-chat/errors"

	"github.com/gorilla/mux"
)

type errorResponse struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

// NewRouter mounts the REST API, the health endpoints and the websocket
// endpoint. A nil websocket handler leaves /ws unmounted.
func NewRouter(log *slog.Logger, tokens *auth.TokenManager, messages *MessageHandler, presence *PresenceHandler, ws http.Handler) *mux.Router {
	router := mux.NewRouter()
	router.Use(loggingMiddleware(log))

	router.HandleFunc("/health", presence.Health).Methods(http.MethodGet)
	if ws != nil {
		router.Handle("/ws", ws).Methods(http.MethodGet)
	}

	api := router.PathPrefix("/api").Subrouter()
	api.Use(identityMiddleware(log, tokens))
	api.HandleFunc("/presence", presence.Presence).Methods(http.MethodGet)
	messages.Register(api)

	return router
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func loggingMiddleware(log *slog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// The websocket upgrade needs the raw writer for hijacking.
			if r.URL.Path == "/ws" {
				next.ServeHTTP(w, r)
				return
			}
			start := time.Now()
			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(recorder, r)
			log.Debug("HTTP request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", recorder.status,
				"duration", time.Since(start))
		})
	}
}

// identityMiddleware resolves the requester once and stores it in the request context.
func identityMiddleware(log *slog.Logger, tokens *auth.TokenManager) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := auth.Identify(tokens, r)
			if err != nil {
				log.Warn("Rejected request identity", "path", r.URL.Path, "error", err)
				writeError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithUserID(r.Context(), userID)))
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, errors.MapToHTTPStatus(err), errorResponse{Code: errors.MapToCode(err), Error: err.Error()})
}
