package auth

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"pong-chat/errors"

	"github.com/stretchr/testify/require"
)

func TestTokenManager_Generate_And_Validate(t *testing.T) {
	req := require.New(t)
	tokens := NewTokenManager("test-secret", time.Hour)

	token, err := tokens.GenerateToken("42", []string{"player"})
	req.NoError(err)

	claims, err := tokens.ValidateToken(token)
	req.NoError(err)
	req.Equal("42", claims.UserID)
	req.Equal([]string{"player"}, claims.Roles)
}

func TestTokenManager_Rejects_Other_Secret(t *testing.T) {
	req := require.New(t)
	token, err := NewTokenManager("secret-a", time.Hour).GenerateToken("42", nil)
	req.NoError(err)

	_, err = NewTokenManager("secret-b", time.Hour).ValidateToken(token)

	req.ErrorIs(err, errors.ErrInvalidToken)
	req.ErrorIs(err, errors.ErrForbidden)
}

func TestTokenManager_Rejects_Expired(t *testing.T) {
	req := require.New(t)
	tokens := NewTokenManager("test-secret", -time.Minute)
	token, err := tokens.GenerateToken("42", nil)
	req.NoError(err)

	_, err = tokens.ValidateToken(token)

	req.ErrorIs(err, errors.ErrInvalidToken)
}

func TestIdentify(t *testing.T) {
	tokens := NewTokenManager("test-secret", time.Hour)
	valid, err := tokens.GenerateToken("7", nil)
	require.NoError(t, err)

	t.Run("header identity without token manager", func(t *testing.T) {
		req := require.New(t)
		r := httptest.NewRequest("GET", "/api/presence", nil)
		r.Header.Set(UserIDHeader, " 9 ")

		userID, err := Identify(nil, r)

		req.NoError(err)
		req.Equal("9", userID)
	})

	t.Run("bearer token", func(t *testing.T) {
		req := require.New(t)
		r := httptest.NewRequest("GET", "/api/presence", nil)
		r.Header.Set("Authorization", "Bearer "+valid)
		r.Header.Set(UserIDHeader, "9")

		userID, err := Identify(tokens, r)

		req.NoError(err)
		req.Equal("7", userID)
	})

	t.Run("query token", func(t *testing.T) {
		req := require.New(t)
		r := httptest.NewRequest("GET", "/ws?token="+valid, nil)

		userID, err := Identify(tokens, r)

		req.NoError(err)
		req.Equal("7", userID)
	})

	t.Run("invalid token", func(t *testing.T) {
		req := require.New(t)
		r := httptest.NewRequest("GET", "/ws?token=garbage", nil)

		_, err := Identify(tokens, r)

		req.ErrorIs(err, errors.ErrInvalidToken)
	})

	t.Run("anonymous", func(t *testing.T) {
		req := require.New(t)
		r := httptest.NewRequest("GET", "/ws", nil)

		userID, err := Identify(tokens, r)

		req.NoError(err)
		req.Empty(userID)
	})
}

func TestUserIDFromContext(t *testing.T) {
	req := require.New(t)

	req.Empty(UserIDFromContext(context.Background()))
	req.Equal("5", UserIDFromContext(WithUserID(context.Background(), "5")))
}
