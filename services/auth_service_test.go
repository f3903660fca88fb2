package services

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"agent-portal/apperrors"
	"agent-portal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthService(env *testEnv) *AuthService {
	tokens := NewTokenService("test-secret", 15*time.Minute, time.Hour)
	isAdmin := func(email string) bool { return email == "owner@example.com" }
	return NewAuthService(env.users, env.tokens, tokens, env.mailer, env.events, isAdmin, env.logger)
}

func TestRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		// Arrange
		env := newTestEnv(t)
		svc := newAuthService(env)

		// Act
		res, err := svc.Register(ctx, models.RegisterRequest{
			Name:     " Ana Souza ",
			Email:    "Ana@Example.com",
			Password: "Sorriso2024",
			Company:  "Clínica Sorriso",
		})

		// Assert
		require.NoError(t, err)
		assert.Equal(t, "Ana Souza", res.User.Name)
		assert.Equal(t, "ana@example.com", res.User.Email)
		assert.Equal(t, models.RoleClient, res.User.Role)
		assert.Empty(t, res.User.PasswordHash)
		assert.NotEmpty(t, res.Tokens.AccessToken)
		assert.Equal(t, []string{"Bem-vindo ao Digital Agent"}, env.sender.subjects())

		stored, err := env.users.FindByEmail(ctx, "ana@example.com")
		require.NoError(t, err)
		assert.NotEmpty(t, stored.PasswordHash)
	})

	t.Run("Admin email gets admin role", func(t *testing.T) {
		env := newTestEnv(t)
		svc := newAuthService(env)

		res, err := svc.Register(ctx, models.RegisterRequest{Name: "Owner", Email: "owner@example.com", Password: "Sorriso2024"})

		require.NoError(t, err)
		assert.Equal(t, models.RoleAdmin, res.User.Role)
	})

	t.Run("Duplicate email - 409", func(t *testing.T) {
		env := newTestEnv(t)
		svc := newAuthService(env)
		_, err := svc.Register(ctx, models.RegisterRequest{Name: "Ana", Email: "ana@example.com", Password: "Sorriso2024"})
		require.NoError(t, err)

		_, err = svc.Register(ctx, models.RegisterRequest{Name: "Ana 2", Email: "ANA@example.com", Password: "Sorriso2024"})

		assert.Equal(t, http.StatusConflict, apperrors.StatusOf(err))
	})

	t.Run("Weak password - 400", func(t *testing.T) {
		env := newTestEnv(t)
		svc := newAuthService(env)

		_, err := svc.Register(ctx, models.RegisterRequest{Name: "Ana", Email: "ana@example.com", Password: "fraca"})

		assert.Equal(t, http.StatusBadRequest, apperrors.StatusOf(err))
		assert.Empty(t, env.sender.subjects())
	})

	t.Run("Welcome email failure does not fail registration", func(t *testing.T) {
		env := newTestEnv(t)
		env.sender.err = assert.AnError
		svc := newAuthService(env)

		_, err := svc.Register(ctx, models.RegisterRequest{Name: "Ana", Email: "ana@example.com", Password: "Sorriso2024"})

		assert.NoError(t, err)
	})
}

func TestLoginAndRefresh(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	svc := newAuthService(env)
	_, err := svc.Register(ctx, models.RegisterRequest{Name: "Ana", Email: "ana@example.com", Password: "Sorriso2024"})
	require.NoError(t, err)

	t.Run("Login success", func(t *testing.T) {
		res, err := svc.Login(ctx, "ana@example.com", "Sorriso2024")
		require.NoError(t, err)
		assert.Equal(t, "ana@example.com", res.User.Email)
	})

	t.Run("Wrong password and unknown email share the message", func(t *testing.T) {
		_, err1 := svc.Login(ctx, "ana@example.com", "Errada2024")
		_, err2 := svc.Login(ctx, "nobody@example.com", "Sorriso2024")

		assert.Equal(t, http.StatusUnauthorized, apperrors.StatusOf(err1))
		assert.Equal(t, err1.Error(), err2.Error())
		assert.Equal(t, "invalid email or password", err1.Error())
	})

	t.Run("Refresh rotates the token", func(t *testing.T) {
		login, err := svc.Login(ctx, "ana@example.com", "Sorriso2024")
		require.NoError(t, err)

		refreshed, err := svc.Refresh(ctx, login.Tokens.RefreshToken)
		require.NoError(t, err)
		assert.NotEqual(t, login.Tokens.RefreshToken, refreshed.Tokens.RefreshToken)

		_, err = svc.Refresh(ctx, login.Tokens.RefreshToken)
		assert.Equal(t, http.StatusUnauthorized, apperrors.StatusOf(err))
	})

	t.Run("Concurrent refreshes redeem the token once", func(t *testing.T) {
		login, err := svc.Login(ctx, "ana@example.com", "Sorriso2024")
		require.NoError(t, err)

		var wg sync.WaitGroup
		var ok atomic.Int32
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := svc.Refresh(ctx, login.Tokens.RefreshToken); err == nil {
					ok.Add(1)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), ok.Load())
	})

	t.Run("Access token cannot refresh", func(t *testing.T) {
		login, err := svc.Login(ctx, "ana@example.com", "Sorriso2024")
		require.NoError(t, err)

		_, err = svc.Refresh(ctx, login.Tokens.AccessToken)
		assert.Equal(t, http.StatusUnauthorized, apperrors.StatusOf(err))
	})

	t.Run("Logout revokes the refresh token", func(t *testing.T) {
		login, err := svc.Login(ctx, "ana@example.com", "Sorriso2024")
		require.NoError(t, err)

		require.NoError(t, svc.Logout(ctx, login.Tokens.RefreshToken))
		require.NoError(t, svc.Logout(ctx, login.Tokens.RefreshToken))
		require.NoError(t, svc.Logout(ctx, "garbage"))

		_, err = svc.Refresh(ctx, login.Tokens.RefreshToken)
		assert.Equal(t, http.StatusUnauthorized, apperrors.StatusOf(err))
	})
}

func TestProfileAndPassword(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	svc := newAuthService(env)
	res, err := svc.Register(ctx, models.RegisterRequest{Name: "Ana", Email: "ana@example.com", Password: "Sorriso2024"})
	require.NoError(t, err)
	userID := res.User.ID

	t.Run("Update profile keeps unset fields", func(t *testing.T) {
		user, err := svc.UpdateProfile(ctx, userID, models.UpdateProfileRequest{Company: "Sorriso LTDA"})
		require.NoError(t, err)
		assert.Equal(t, "Ana", user.Name)
		assert.Equal(t, "Sorriso LTDA", user.Company)
	})

	t.Run("Change password", func(t *testing.T) {
		err := svc.ChangePassword(ctx, userID, "Errada2024", "NovaSenha2025")
		assert.Equal(t, http.StatusBadRequest, apperrors.StatusOf(err))

		require.NoError(t, svc.ChangePassword(ctx, userID, "Sorriso2024", "NovaSenha2025"))
		_, err = svc.Login(ctx, "ana@example.com", "NovaSenha2025")
		assert.NoError(t, err)
	})

	t.Run("Unknown user - 404", func(t *testing.T) {
		_, err := svc.Me(ctx, "missing")
		assert.Equal(t, http.StatusNotFound, apperrors.StatusOf(err))
	})

	t.Run("Role change revokes refresh tokens", func(t *testing.T) {
		login, err := svc.Login(ctx, "ana@example.com", "NovaSenha2025")
		require.NoError(t, err)

		_, err = svc.SetRole(ctx, userID, models.RoleAdmin)
		require.NoError(t, err)

		_, err = svc.Refresh(ctx, login.Tokens.RefreshToken)
		assert.Equal(t, http.StatusUnauthorized, apperrors.StatusOf(err))

		_, err = svc.SetRole(ctx, userID, models.RoleClient)
		require.NoError(t, err)
	})

	t.Run("Set role", func(t *testing.T) {
		user, err := svc.SetRole(ctx, userID, models.RoleAdmin)
		require.NoError(t, err)
		assert.Equal(t, models.RoleAdmin, user.Role)

		_, err = svc.SetRole(ctx, userID, "root")
		assert.Equal(t, http.StatusBadRequest, apperrors.StatusOf(err))

		users, total, err := svc.ListUsers(ctx, 0, 10)
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Empty(t, users[0].PasswordHash)
	})
}
