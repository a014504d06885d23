package jwt

import (
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_RoundTrip(t *testing.T) {
	m, err := NewManager("s3cret", "auth-service", time.Hour)
	require.NoError(t, err)

	token, err := m.GenerateAccessToken("u-1", "alice", []string{"admin"})
	require.NoError(t, err)

	claims, err := m.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, []string{"admin"}, claims.Roles)
}

func TestManager_EmptySecret(t *testing.T) {
	_, err := NewManager("", "auth-service", time.Hour)
	assert.ErrorIs(t, err, ErrMissingKey)
}

func TestManager_Expired(t *testing.T) {
	m, err := NewManager("s3cret", "auth-service", time.Minute)
	require.NoError(t, err)

	issued := time.Now().Add(-time.Hour)
	m.now = func() time.Time { return issued }
	token, err := m.GenerateAccessToken("u-1", "alice", nil)
	require.NoError(t, err)

	m.now = time.Now
	_, err = m.ValidateToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestManager_Rejects(t *testing.T) {
	m, err := NewManager("s3cret", "auth-service", time.Hour)
	require.NoError(t, err)

	other, err := NewManager("different", "auth-service", time.Hour)
	require.NoError(t, err)
	foreign, err := other.GenerateAccessToken("u-1", "alice", nil)
	require.NoError(t, err)

	wrongIssuer, err := NewManager("s3cret", "someone-else", time.Hour)
	require.NoError(t, err)
	misissued, err := wrongIssuer.GenerateAccessToken("u-1", "alice", nil)
	require.NoError(t, err)

	refresh, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, &Claims{
		RegisteredClaims: gojwt.RegisteredClaims{
			Issuer:    "auth-service",
			ExpiresAt: gojwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		UserID: "u-1",
		Type:   "refresh",
	}).SignedString([]byte("s3cret"))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"wrong key", foreign},
		{"wrong issuer", misissued},
		{"refresh token", refresh},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.ValidateToken(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}
