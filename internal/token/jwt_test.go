package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"povertyline/internal/apperr"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	m := NewManager("test-secret", time.Hour, 30*24*time.Hour)

	signed, err := m.GenerateAccessToken("user-123")
	require.NoError(t, err)
	require.NotEmpty(t, signed)

	claims, err := m.Validate(signed, TypeAccess)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.UserID)
	assert.Equal(t, TypeAccess, claims.TokenType)
}

func TestRefreshTokenRejectedAsAccess(t *testing.T) {
	m := NewManager("test-secret", time.Hour, 30*24*time.Hour)

	signed, err := m.GenerateRefreshToken("user-123")
	require.NoError(t, err)

	_, err = m.Validate(signed, TypeAccess)
	require.Error(t, err)
	appErr, ok := apperr.From(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeUnauthorized, appErr.Code)
}

func TestExpiredTokenRejected(t *testing.T) {
	m := NewManager("test-secret", -time.Minute, 30*24*time.Hour)

	signed, err := m.GenerateAccessToken("user-123")
	require.NoError(t, err)

	_, err = m.Validate(signed, TypeAccess)
	require.Error(t, err)
	appErr, ok := apperr.From(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeUnauthorized, appErr.Code)
}

func TestWrongSecretRejected(t *testing.T) {
	m := NewManager("test-secret", time.Hour, 30*24*time.Hour)
	other := NewManager("other-secret", time.Hour, 30*24*time.Hour)

	signed, err := m.GenerateAccessToken("user-123")
	require.NoError(t, err)

	_, err = other.Validate(signed, TypeAccess)
	require.Error(t, err)
}

func TestGarbageTokenRejected(t *testing.T) {
	m := NewManager("test-secret", time.Hour, 30*24*time.Hour)

	_, err := m.Validate("not-a-jwt", TypeAccess)
	require.Error(t, err)
	appErr, ok := apperr.From(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeUnauthorized, appErr.Code)
}
