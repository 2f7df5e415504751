package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	m := NewJWTManager("secret", "linkhub")

	token, err := m.GenerateAccessToken("t1", "user-1", "admin", time.Hour)
	require.NoError(t, err)

	claims, err := m.ParseAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "t1", claims.TenantID)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "admin", claims.Role)
}

func TestParseAccessTokenRejects(t *testing.T) {
	m := NewJWTManager("secret", "linkhub")

	expired, err := m.GenerateAccessToken("t1", "u", "", -time.Minute)
	require.NoError(t, err)
	_, err = m.ParseAccessToken(expired)
	assert.ErrorIs(t, err, ErrExpiredToken)

	other, err := NewJWTManager("other-secret", "linkhub").GenerateAccessToken("t1", "u", "", time.Hour)
	require.NoError(t, err)
	_, err = m.ParseAccessToken(other)
	assert.ErrorIs(t, err, ErrInvalidToken)

	wrongIssuer, err := NewJWTManager("secret", "someone-else").GenerateAccessToken("t1", "u", "", time.Hour)
	require.NoError(t, err)
	_, err = m.ParseAccessToken(wrongIssuer)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = m.GenerateAccessToken(" ", "u", "", time.Hour)
	assert.ErrorIs(t, err, ErrMissingTenant)

	noTenant := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Type:             TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{Issuer: "linkhub", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	})
	signed, err := noTenant.SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = m.ParseAccessToken(signed)
	assert.ErrorIs(t, err, ErrMissingTenant)

	refresh := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		TenantID:         "t1",
		Type:             "refresh",
		RegisteredClaims: jwt.RegisteredClaims{Issuer: "linkhub"},
	})
	signed, err = refresh.SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = m.ParseAccessToken(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = m.ParseAccessToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
