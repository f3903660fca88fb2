package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenService(t *testing.T) {
	svc := NewTokenService("test-secret", 15*time.Minute, 24*time.Hour)

	t.Run("Generate and validate pair", func(t *testing.T) {
		pair, tokenID, err := svc.GenerateTokenPair("user-1", "ana@example.com", "client")
		require.NoError(t, err)
		assert.NotEmpty(t, tokenID)
		assert.Equal(t, int64(900), pair.ExpiresIn)

		access, err := svc.ValidateToken(pair.AccessToken, TokenTypeAccess)
		require.NoError(t, err)
		assert.Equal(t, "user-1", access.Subject)
		assert.Equal(t, "ana@example.com", access.Email)
		assert.Equal(t, "client", access.Role)
		assert.Empty(t, access.ID)

		refresh, err := svc.ValidateToken(pair.RefreshToken, TokenTypeRefresh)
		require.NoError(t, err)
		assert.Equal(t, tokenID, refresh.ID)
	})

	t.Run("Wrong token type is rejected", func(t *testing.T) {
		pair, _, err := svc.GenerateTokenPair("user-1", "ana@example.com", "client")
		require.NoError(t, err)

		_, err = svc.ValidateToken(pair.AccessToken, TokenTypeRefresh)
		assert.EqualError(t, err, "invalid token type")
	})

	t.Run("Expired token is rejected", func(t *testing.T) {
		expired := NewTokenService("test-secret", -time.Minute, -time.Minute)
		pair, _, err := expired.GenerateTokenPair("user-1", "ana@example.com", "client")
		require.NoError(t, err)

		_, err = svc.ValidateToken(pair.AccessToken, TokenTypeAccess)
		assert.Error(t, err)
	})

	t.Run("Foreign signature is rejected", func(t *testing.T) {
		other := NewTokenService("other-secret", time.Minute, time.Minute)
		pair, _, err := other.GenerateTokenPair("user-1", "ana@example.com", "client")
		require.NoError(t, err)

		_, err = svc.ValidateToken(pair.AccessToken, "")
		assert.Error(t, err)
	})

	t.Run("Garbage is rejected", func(t *testing.T) {
		_, err := svc.ValidateToken("not-a-jwt", "")
		assert.Error(t, err)
	})
}

func TestPasswordValidator(t *testing.T) {
	pv := NewPasswordValidator()

	tests := []struct {
		name     string
		password string
		want     error
	}{
		{"valid", "Sorriso2024", nil},
		{"too short", "Ab1", ErrPasswordTooShort},
		{"common", "Password1", ErrPasswordCommon},
		{"no upper", "sorriso2024", ErrPasswordNoUpper},
		{"no lower", "SORRISO2024", ErrPasswordNoLower},
		{"no number", "SorrisoBonito", ErrPasswordNoNumber},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, pv.ValidatePassword(tt.password))
		})
	}
}
