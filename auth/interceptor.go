package auth

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

const (
	UserIDKey contextKey = "user_id"

	// UserIDHeader carries the requester identity when no token manager is configured.
	UserIDHeader = "X-User-ID"
)

// TokenFromRequest returns the bearer token of the Authorization header, or the
// "token" query parameter used by browsers during the websocket handshake.
func TokenFromRequest(r *http.Request) string {
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return r.URL.Query().Get("token")
}

// Identify resolves the requester of an HTTP request.
// With a token manager the identity comes from a valid token only, otherwise
// from the X-User-ID header. An empty identity means anonymous.
func Identify(tokens *TokenManager, r *http.Request) (string, error) {
	if tokens == nil {
		return strings.TrimSpace(r.Header.Get(UserIDHeader)), nil
	}
	raw := TokenFromRequest(r)
	if raw == "" {
		return "", nil
	}
	claims, err := tokens.ValidateToken(raw)
	if err != nil {
		return "", err
	}
	return claims.UserID, nil
}

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// UserIDFromContext returns the identity injected by the HTTP middleware.
func UserIDFromContext(ctx context.Context) string {
	userID, _ := ctx.Value(UserIDKey).(string)
	return userID
}
