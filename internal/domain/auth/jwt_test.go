package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWT_RoundTrip(t *testing.T) {
	svc := NewJWTService(DefaultJWTConfig("test-secret"))

	token, expiresAt, err := svc.GenerateAccessToken("user-1", "cashier@store.local", []string{RoleCashier}, false)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), expiresAt, time.Minute)

	user, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", user.UserID)
	assert.Equal(t, "cashier@store.local", user.Email)
	assert.Equal(t, []string{RoleCashier}, user.Roles)
	assert.False(t, user.IsAdmin)
}

func TestJWT_AdminFlag(t *testing.T) {
	svc := NewJWTService(DefaultJWTConfig("test-secret"))

	token, _, err := svc.GenerateAccessToken("root", "admin@store.local", nil, true)
	require.NoError(t, err)

	user, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.True(t, user.IsAdmin)
}

func TestJWT_WrongSecret(t *testing.T) {
	signer := NewJWTService(DefaultJWTConfig("secret-a"))
	verifier := NewJWTService(DefaultJWTConfig("secret-b"))

	token, _, err := signer.GenerateAccessToken("user-1", "x@y.z", nil, false)
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	assert.Error(t, err)
}

func TestJWT_Expired(t *testing.T) {
	cfg := DefaultJWTConfig("test-secret")
	cfg.AccessTokenTTL = -time.Minute
	svc := NewJWTService(cfg)

	token, _, err := svc.GenerateAccessToken("user-1", "x@y.z", nil, false)
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.Error(t, err)
}

func TestJWT_Garbage(t *testing.T) {
	svc := NewJWTService(DefaultJWTConfig("test-secret"))

	_, err := svc.ValidateToken("not.a.token")
	assert.Error(t, err)
}
