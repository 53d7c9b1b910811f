package security_test

import (
	"finance-tracker-client/config"
	"finance-tracker-client/internal/security"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJWTService_BadTTL(t *testing.T) {
	_, err := security.NewJWTService(&config.JWTConfig{SecretKey: "s", AccessTokenTTL: "soon", RefreshTokenTTL: "1h"})
	assert.Error(t, err)

	_, err = security.NewJWTService(&config.JWTConfig{SecretKey: "s", AccessTokenTTL: "1m", RefreshTokenTTL: ""})
	assert.Error(t, err)
}

func TestJWTService_ValidateJWT(t *testing.T) {
	svc := newJWTService(t, "15m")

	token, err := svc.GenerateAccessToken(security.Claims{Username: "alice", Email: "alice@example.com"})
	require.NoError(t, err)

	claims, err := svc.ValidateJWT(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "alice", claims.Subject)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), claims.ExpiresAt.Time, 5*time.Second)
}

func TestJWTService_ValidateJWT_Rejects(t *testing.T) {
	svc := newJWTService(t, "15m")

	expired, err := newJWTService(t, "-1m").GenerateAccessToken(security.Claims{Username: "alice"})
	require.NoError(t, err)

	otherSecret, err := security.NewJWTService(&config.JWTConfig{SecretKey: "other", AccessTokenTTL: "1m", RefreshTokenTTL: "1h"})
	require.NoError(t, err)
	foreign, err := otherSecret.GenerateAccessToken(security.Claims{Username: "alice"})
	require.NoError(t, err)

	hs256, err := jwt.NewWithClaims(jwt.SigningMethodHS256, security.Claims{Username: "alice"}).
		SignedString([]byte("test-secret"))
	require.NoError(t, err)

	for name, token := range map[string]string{
		"истёкший":       expired,
		"чужой ключ":     foreign,
		"другой алгоритм": hs256,
		"мусор":          "garbage",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.ValidateJWT(token)
			assert.Error(t, err)
		})
	}
}

func TestGenerateRefreshToken_Unique(t *testing.T) {
	a, err := security.GenerateRefreshToken()
	require.NoError(t, err)
	b, err := security.GenerateRefreshToken()
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.Len(t, a, 43)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := security.HashPassword("goodpass")
	require.NoError(t, err)

	assert.True(t, security.CheckPassword("goodpass", hash))
	assert.False(t, security.CheckPassword("badpass", hash))
}
