package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"pong-chat/domain"
	"pong-chat/errors"
)

const friendshipAccepted = "accepted"

type userResponse struct {
	ID       string `json:"id"`
	FullName string `json:"fullName"`
}

type friendshipResponse struct {
	Status string `json:"status"`
}

// UserDirectoryClient talks to the external user service over HTTP.
// Every call is bounded by its own timeout and never retried.
type UserDirectoryClient struct {
	log     *slog.Logger
	baseURL string
	http    *http.Client
	timeout time.Duration
}

func NewUserDirectoryClient(log *slog.Logger, baseURL string, timeout time.Duration) *UserDirectoryClient {
	return &UserDirectoryClient{
		log:     log,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		timeout: timeout,
	}
}

// LookupUser resolves a user id. An unknown user gives ErrUserNotFound, any
// other failure wraps ErrExternalLookup.
func (c *UserDirectoryClient) LookupUser(ctx context.Context, userID string) (domain.User, error) {
	var user userResponse
	status, err := c.get(ctx, "/users/"+url.PathEscape(userID), &user)
	if err != nil {
		return domain.User{}, err
	}
	if status == http.StatusNotFound {
		return domain.User{}, fmt.Errorf("%w: %s", errors.ErrUserNotFound, userID)
	}
	if user.ID == "" {
		user.ID = userID
	}
	return domain.User{ID: user.ID, FullName: user.FullName}, nil
}

// AreFriends reports whether an accepted friendship links both users.
// A missing friendship is not an error.
func (c *UserDirectoryClient) AreFriends(ctx context.Context, userA, userB string) (bool, error) {
	var friendship friendshipResponse
	path := fmt.Sprintf("/friendships/%s/%s", url.PathEscape(userA), url.PathEscape(userB))
	status, err := c.get(ctx, path, &friendship)
	if err != nil {
		return false, err
	}
	if status == http.StatusNotFound {
		return false, nil
	}
	return friendship.Status == friendshipAccepted, nil
}

// get decodes a 200 body into out. 404 is returned as a status, not an error.
func (c *UserDirectoryClient) get(ctx context.Context, path string, out any) (int, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errors.ErrExternalLookup, err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("User directory unreachable", "path", path, "error", err)
		return 0, fmt.Errorf("%w: %v", errors.ErrExternalLookup, err)
	}
	defer func() { _ = resp.Body.Close() }()
	c.log.Debug("User directory call", "path", path, "status", resp.StatusCode, "duration", time.Since(start))

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, nil
	default:
		return resp.StatusCode, fmt.Errorf("%w: %w: status %d", errors.ErrExternalLookup, errors.ErrDirectoryResponse, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("%w: %w: %v", errors.ErrExternalLookup, errors.ErrDirectoryResponse, err)
	}
	return resp.StatusCode, nil
}
