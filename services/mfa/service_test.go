package mfa

import (
	"context"
	"testing"
	"time"

	"github.com/novabank/onboard/testutils"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	db := testutils.SetupTestDB(t, &TOTPSecret{}, &UsedCode{})
	return NewService(testutils.NewTestConfig(), db, nil)
}

func currentCode(t *testing.T, secret string) string {
	t.Helper()
	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)
	return code
}

func TestEnrollAndActivate(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	secret, err := svc.Enroll(ctx, 1, "admin", "ops@novabank.example")
	require.NoError(t, err)
	assert.NotEmpty(t, secret.Secret)
	assert.False(t, secret.Enabled)

	required, err := svc.Required(ctx, 1, "admin")
	require.NoError(t, err)
	assert.False(t, required, "enrolment is not active until a code is verified")

	require.NoError(t, svc.Activate(ctx, 1, "admin", currentCode(t, secret.Secret)))

	required, err = svc.Required(ctx, 1, "admin")
	require.NoError(t, err)
	assert.True(t, required)
}

func TestEnroll_Duplicate(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Enroll(ctx, 1, "admin", "ops@novabank.example")
	require.NoError(t, err)

	_, err = svc.Enroll(ctx, 1, "admin", "ops@novabank.example")
	assert.ErrorIs(t, err, ErrSecretExists)
}

func TestVerifyCode(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	secret, err := svc.Enroll(ctx, 1, "admin", "ops@novabank.example")
	require.NoError(t, err)
	require.NoError(t, svc.Activate(ctx, 1, "admin", currentCode(t, secret.Secret)))

	code := currentCode(t, secret.Secret)

	t.Run("valid code", func(t *testing.T) {
		assert.NoError(t, svc.VerifyCode(ctx, 1, "admin", code))
	})

	t.Run("replayed code", func(t *testing.T) {
		assert.ErrorIs(t, svc.VerifyCode(ctx, 1, "admin", code), ErrCodeAlreadyUsed)
	})

	t.Run("wrong code", func(t *testing.T) {
		assert.ErrorIs(t, svc.VerifyCode(ctx, 1, "admin", "000000"), ErrInvalidCode)
	})

	t.Run("unenrolled principal", func(t *testing.T) {
		assert.ErrorIs(t, svc.VerifyCode(ctx, 2, "admin", code), ErrSecretNotFound)
	})
}

func TestVerifyCode_Disabled(t *testing.T) {
	db := testutils.SetupTestDB(t, &TOTPSecret{}, &UsedCode{})
	cfg := testutils.NewTestConfig()
	cfg.MFA.Enabled = false
	svc := NewService(cfg, db, nil)

	assert.ErrorIs(t, svc.VerifyCode(context.Background(), 1, "admin", "123456"), ErrMFADisabled)

	required, err := svc.Required(context.Background(), 1, "admin")
	require.NoError(t, err)
	assert.False(t, required)
}

func TestCleanupUsedCodes(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	old := UsedCode{UserID: 1, UserType: "admin", Code: "111111", UsedAt: time.Now().Add(-time.Hour).Unix()}
	fresh := UsedCode{UserID: 1, UserType: "admin", Code: "222222", UsedAt: time.Now().Unix()}
	require.NoError(t, svc.db.Create(&old).Error)
	require.NoError(t, svc.db.Create(&fresh).Error)

	require.NoError(t, svc.CleanupUsedCodes(ctx))

	var remaining []UsedCode
	require.NoError(t, svc.db.Find(&remaining).Error)
	require.Len(t, remaining, 1)
	assert.Equal(t, "222222", remaining[0].Code)
}
