package token

import (
	"testing"
	"time"

	"github.com/novabank/onboard/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	return NewService(testutils.NewTestConfig(), nil)
}

func TestGenerateAccessToken(t *testing.T) {
	svc := newTestService(t)

	tokenString, err := svc.GenerateAccessToken(42, "customer", "session-1", "fp-abc")
	require.NoError(t, err)
	require.NotEmpty(t, tokenString)

	claims, err := svc.ValidateAccessToken(tokenString)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "customer", claims.UserType)
	assert.Equal(t, "session-1", claims.SessionID)
	assert.Equal(t, "fp-abc", claims.Fingerprint)
	assert.Equal(t, TypeAccess, claims.TokenType)
	assert.NotEmpty(t, claims.ID)
}

func TestGenerateRefreshToken(t *testing.T) {
	svc := newTestService(t)

	tokenString, err := svc.GenerateRefreshToken(42, "admin", "session-2")
	require.NoError(t, err)

	claims, err := svc.ValidateRefreshToken(tokenString)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "admin", claims.UserType)
	assert.Equal(t, "session-2", claims.SessionID)
	assert.Empty(t, claims.Fingerprint)
	assert.Equal(t, TypeRefresh, claims.TokenType)
}

func TestValidate_WrongTokenClass(t *testing.T) {
	svc := newTestService(t)

	accessToken, err := svc.GenerateAccessToken(1, "customer", "s", "fp")
	require.NoError(t, err)
	refreshToken, err := svc.GenerateRefreshToken(1, "customer", "s")
	require.NoError(t, err)

	t.Run("refresh token where access expected", func(t *testing.T) {
		_, err := svc.ValidateAccessToken(refreshToken)
		require.Error(t, err)
	})

	t.Run("access token where refresh expected", func(t *testing.T) {
		_, err := svc.ValidateRefreshToken(accessToken)
		require.Error(t, err)
	})
}

func TestValidate_CrossedSecrets(t *testing.T) {
	svc := newTestService(t)

	// A token signed with the access secret but carrying a refresh type claim
	// must fail refresh verification on signature before the type check.
	forged, err := svc.generate(1, "customer", "s", "", TypeRefresh,
		time.Hour, svc.config.JWT.AccessSecret)
	require.NoError(t, err)

	_, err = svc.ValidateRefreshToken(forged)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestValidate_Malformed(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.ValidateAccessToken("not-a-jwt")
	assert.ErrorIs(t, err, ErrMalformedToken)
}

func TestValidate_Expired(t *testing.T) {
	svc := newTestService(t)

	tokenString, err := svc.generate(7, "customer", "s", "fp", TypeAccess,
		-time.Minute, svc.config.JWT.AccessSecret)
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken(tokenString)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestValidate_TamperedSignature(t *testing.T) {
	svc := newTestService(t)

	tokenString, err := svc.GenerateAccessToken(7, "customer", "s", "fp")
	require.NoError(t, err)

	tampered := tokenString[:len(tokenString)-2] + "xx"
	_, err = svc.ValidateAccessToken(tampered)
	require.Error(t, err)
}
