package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	const secret = "test-secret"

	t.Run("a generated token parses back to the same identity", func(t *testing.T) {
		payload := &Payload{ID: "8c2f0a9e-1111-4222-8333-444455556666", Username: "alice"}

		tokenString, err := GenerateToken(payload, secret, time.Hour)
		require.NoError(t, err)

		parsed, err := ParseToken(tokenString, secret)
		require.NoError(t, err)
		assert.Equal(t, payload.ID, parsed.ID)
		assert.Equal(t, payload.Username, parsed.Username)
		assert.Equal(t, TokenIssuer, parsed.Issuer)
	})

	t.Run("a token signed with another secret is rejected", func(t *testing.T) {
		payload := &Payload{ID: "8c2f0a9e-1111-4222-8333-444455556666", Username: "alice"}

		tokenString, err := GenerateToken(payload, "other-secret", time.Hour)
		require.NoError(t, err)

		_, err = ParseToken(tokenString, secret)
		assert.Error(t, err)
	})

	t.Run("an expired token is rejected", func(t *testing.T) {
		payload := &Payload{ID: "8c2f0a9e-1111-4222-8333-444455556666", Username: "alice"}

		tokenString, err := GenerateToken(payload, secret, -time.Minute)
		require.NoError(t, err)

		_, err = ParseToken(tokenString, secret)
		assert.Error(t, err)
	})
}
