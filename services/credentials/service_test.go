package credentials

import (
	"context"
	"testing"

	"github.com/novabank/onboard/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	db := testutils.SetupTestDB(t, &Credential{})
	return NewService(testutils.NewTestConfig(), db, nil)
}

func TestVerify(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.SetPassword(ctx, "alice@example.com", UserTypeCustomer, 1, "Str0ngPass"))

	t.Run("correct secret", func(t *testing.T) {
		principal, err := svc.Verify(ctx, "alice@example.com", UserTypeCustomer, "Str0ngPass")
		require.NoError(t, err)
		assert.Equal(t, uint(1), principal.UserID)
		assert.Equal(t, UserTypeCustomer, principal.UserType)
	})

	t.Run("wrong secret", func(t *testing.T) {
		_, err := svc.Verify(ctx, "alice@example.com", UserTypeCustomer, "WrongPass1")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown identifier", func(t *testing.T) {
		_, err := svc.Verify(ctx, "nobody@example.com", UserTypeCustomer, "Str0ngPass")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("wrong user type", func(t *testing.T) {
		_, err := svc.Verify(ctx, "alice@example.com", UserTypeAdmin, "Str0ngPass")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestSetPassword_ReplacesExisting(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.SetPassword(ctx, "alice@example.com", UserTypeCustomer, 1, "Str0ngPass"))
	require.NoError(t, svc.SetPassword(ctx, "alice@example.com", UserTypeCustomer, 1, "N3werPass"))

	_, err := svc.Verify(ctx, "alice@example.com", UserTypeCustomer, "Str0ngPass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	principal, err := svc.Verify(ctx, "alice@example.com", UserTypeCustomer, "N3werPass")
	require.NoError(t, err)
	assert.Equal(t, uint(1), principal.UserID)
}

func TestValidatePassword(t *testing.T) {
	svc := newTestService(t)

	tests := []struct {
		name     string
		password string
		wantErr  string
	}{
		{"valid", "Str0ngPass", ""},
		{"too short", "Ab1", "at least 8 characters"},
		{"missing upper", "str0ngpass", "one uppercase letter"},
		{"missing lower", "STR0NGPASS", "one lowercase letter"},
		{"missing number", "StrongPass", "one number"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.ValidatePassword(tt.password)
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}
