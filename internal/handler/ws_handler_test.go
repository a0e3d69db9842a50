package handler

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wavechat/internal/pkg/auth/jwt"
)

func TestWSIdentity(t *testing.T) {
	const secret = "test-secret"
	const userID = "8c2f0a9e-1111-4222-8333-444455556666"

	validToken := func(t *testing.T) string {
		t.Helper()
		token, err := jwt.GenerateToken(&jwt.Payload{ID: userID, Username: "alice"}, secret, time.Hour)
		require.NoError(t, err)
		return token
	}

	t.Run("accepts a token query parameter", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/ws?token="+validToken(t), nil)

		u, ok := wsIdentity(r, secret)
		require.True(t, ok)
		assert.Equal(t, userID, u.ID.String())
		assert.Equal(t, "alice", u.Username)
	})

	t.Run("accepts a bearer Authorization header", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/ws", nil)
		r.Header.Set("Authorization", "Bearer "+validToken(t))

		u, ok := wsIdentity(r, secret)
		require.True(t, ok)
		assert.Equal(t, userID, u.ID.String())
	})

	t.Run("prefers the query parameter over the header", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/ws?token="+validToken(t), nil)
		r.Header.Set("Authorization", "Bearer not-a-token")

		_, ok := wsIdentity(r, secret)
		assert.True(t, ok)
	})

	t.Run("rejects a missing token", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/ws", nil)

		_, ok := wsIdentity(r, secret)
		assert.False(t, ok)
	})

	t.Run("rejects a token signed with another secret", func(t *testing.T) {
		token, err := jwt.GenerateToken(&jwt.Payload{ID: userID}, "other-secret", time.Hour)
		require.NoError(t, err)

		r := httptest.NewRequest("GET", "/ws?token="+token, nil)

		_, ok := wsIdentity(r, secret)
		assert.False(t, ok)
	})

	t.Run("rejects a malformed Authorization header", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/ws", nil)
		r.Header.Set("Authorization", "Basic dXNlcjpwYXNz")

		_, ok := wsIdentity(r, secret)
		assert.False(t, ok)
	})
}
