package controllers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"agent-portal/apperrors"
	"agent-portal/middleware"
	"agent-portal/models"
	"agent-portal/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

func newAuthRouter(svc *MockAuthService, actor *services.Actor) *gin.Engine {
	ac := NewAuthController(svc, 24*time.Hour, false, zap.NewNop())
	r := newTestRouter(actor)
	r.POST("/auth/register", ac.Register)
	r.POST("/auth/login", ac.Login)
	r.POST("/auth/refresh", ac.Refresh)
	r.POST("/auth/logout", ac.Logout)
	r.GET("/me", ac.Me)
	r.PUT("/me", ac.UpdateProfile)
	r.PUT("/me/password", ac.ChangePassword)
	return r
}

func authResult() *services.AuthResult {
	return &services.AuthResult{
		User:   models.User{ID: "user-1", Email: "ana@example.com", Role: models.RoleClient},
		Tokens: &services.TokenPair{AccessToken: "fake-access-token", RefreshToken: "fake-refresh-token", ExpiresIn: 900},
	}
}

func cookieNamed(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestLoginController(t *testing.T) {
	t.Run("Success - 200 OK", func(t *testing.T) {
		// Arrange
		mockService := new(MockAuthService)
		mockService.On("Login", mock.Anything, "ana@example.com", "Secret123").Return(authResult(), nil).Once()
		router := newAuthRouter(mockService, nil)

		// Act
		rec := perform(router, http.MethodPost, "/auth/login", `{"email": "ana@example.com", "password": "Secret123"}`)

		// Assert
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Logged in successfully")
		assert.Contains(t, rec.Body.String(), "fake-access-token")
		access := cookieNamed(rec, middleware.AccessTokenCookie)
		refresh := cookieNamed(rec, middleware.RefreshTokenCookie)
		if assert.NotNil(t, access) && assert.NotNil(t, refresh) {
			assert.True(t, access.HttpOnly)
			assert.Equal(t, "fake-refresh-token", refresh.Value)
			assert.Equal(t, 86400, refresh.MaxAge)
		}
		mockService.AssertExpectations(t)
	})

	t.Run("Failure - Invalid Credentials - 401 Unauthorized", func(t *testing.T) {
		// Arrange
		mockService := new(MockAuthService)
		mockService.On("Login", mock.Anything, "ana@example.com", "wrong").
			Return(nil, apperrors.Unauthorized("invalid email or password")).Once()
		router := newAuthRouter(mockService, nil)

		// Act
		rec := perform(router, http.MethodPost, "/auth/login", `{"email": "ana@example.com", "password": "wrong"}`)

		// Assert
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "invalid email or password")
		assert.Empty(t, rec.Result().Cookies())
		mockService.AssertExpectations(t)
	})

	t.Run("Failure - Bad Request Body - 400 Bad Request", func(t *testing.T) {
		mockService := new(MockAuthService)
		router := newAuthRouter(mockService, nil)

		rec := perform(router, http.MethodPost, "/auth/login", `{"email": "ana@example.com"}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "Invalid request")
		mockService.AssertNotCalled(t, "Login")
	})
}

func TestRegisterController(t *testing.T) {
	t.Run("Success - 201 Created", func(t *testing.T) {
		mockService := new(MockAuthService)
		req := models.RegisterRequest{Name: "Ana", Email: "ana@example.com", Password: "Secret123"}
		mockService.On("Register", mock.Anything, req).Return(authResult(), nil).Once()
		router := newAuthRouter(mockService, nil)

		rec := perform(router, http.MethodPost, "/auth/register", `{"name":"Ana","email":"ana@example.com","password":"Secret123"}`)

		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Len(t, rec.Result().Cookies(), 2)
		mockService.AssertExpectations(t)
	})

	t.Run("Failure - Duplicate Email - 409 Conflict", func(t *testing.T) {
		mockService := new(MockAuthService)
		mockService.On("Register", mock.Anything, mock.Anything).Return(nil, apperrors.Conflict("email already registered")).Once()
		router := newAuthRouter(mockService, nil)

		rec := perform(router, http.MethodPost, "/auth/register", `{"name":"Ana","email":"ana@example.com","password":"Secret123"}`)

		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("Failure - Invalid Email - 400 Bad Request", func(t *testing.T) {
		mockService := new(MockAuthService)
		router := newAuthRouter(mockService, nil)

		rec := perform(router, http.MethodPost, "/auth/register", `{"name":"Ana","email":"not-an-email","password":"Secret123"}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		mockService.AssertNotCalled(t, "Register")
	})
}

func TestRefreshController(t *testing.T) {
	t.Run("Reads token from body", func(t *testing.T) {
		mockService := new(MockAuthService)
		mockService.On("Refresh", mock.Anything, "body-token").Return(authResult(), nil).Once()
		router := newAuthRouter(mockService, nil)

		rec := perform(router, http.MethodPost, "/auth/refresh", `{"refresh_token":"body-token"}`)

		assert.Equal(t, http.StatusOK, rec.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("Falls back to cookie", func(t *testing.T) {
		mockService := new(MockAuthService)
		mockService.On("Refresh", mock.Anything, "cookie-token").Return(authResult(), nil).Once()
		router := newAuthRouter(mockService, nil)

		req := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
		req.AddCookie(&http.Cookie{Name: middleware.RefreshTokenCookie, Value: "cookie-token"})
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("Missing token - 401 Unauthorized", func(t *testing.T) {
		mockService := new(MockAuthService)
		router := newAuthRouter(mockService, nil)

		rec := perform(router, http.MethodPost, "/auth/refresh", "")

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		mockService.AssertNotCalled(t, "Refresh")
	})

	t.Run("Revoked token clears cookies", func(t *testing.T) {
		mockService := new(MockAuthService)
		mockService.On("Refresh", mock.Anything, "old").Return(nil, apperrors.Unauthorized("refresh token revoked")).Once()
		router := newAuthRouter(mockService, nil)

		rec := perform(router, http.MethodPost, "/auth/refresh", `{"refresh_token":"old"}`)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		access := cookieNamed(rec, middleware.AccessTokenCookie)
		if assert.NotNil(t, access) {
			assert.Empty(t, access.Value)
			assert.True(t, access.MaxAge < 0)
		}
	})
}

func TestLogoutController(t *testing.T) {
	mockService := new(MockAuthService)
	mockService.On("Logout", mock.Anything, "cookie-token").Return(nil).Once()
	router := newAuthRouter(mockService, nil)

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: middleware.RefreshTokenCookie, Value: "cookie-token"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, rec.Result().Cookies(), 2)
	mockService.AssertExpectations(t)

	// without any token there is nothing to revoke
	rec = perform(router, http.MethodPost, "/auth/logout", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	mockService.AssertNumberOfCalls(t, "Logout", 1)
}

func TestProfileControllers(t *testing.T) {
	user := &models.User{ID: clientActor.UserID, Email: "ana@example.com", Name: "Ana"}

	t.Run("Me", func(t *testing.T) {
		mockService := new(MockAuthService)
		mockService.On("Me", mock.Anything, clientActor.UserID).Return(user, nil).Once()
		router := newAuthRouter(mockService, &clientActor)

		rec := perform(router, http.MethodGet, "/me", "")

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "ana@example.com")
		assert.NotContains(t, rec.Body.String(), "password")
	})

	t.Run("UpdateProfile", func(t *testing.T) {
		mockService := new(MockAuthService)
		req := models.UpdateProfileRequest{Name: "Ana Souza", Company: "Clínica Sorriso"}
		mockService.On("UpdateProfile", mock.Anything, clientActor.UserID, req).Return(user, nil).Once()
		router := newAuthRouter(mockService, &clientActor)

		rec := perform(router, http.MethodPut, "/me", `{"name":"Ana Souza","company":"Clínica Sorriso"}`)

		assert.Equal(t, http.StatusOK, rec.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("ChangePassword wrong current", func(t *testing.T) {
		mockService := new(MockAuthService)
		mockService.On("ChangePassword", mock.Anything, clientActor.UserID, "Old12345", "New12345").
			Return(apperrors.BadRequest("current password is incorrect")).Once()
		router := newAuthRouter(mockService, &clientActor)

		rec := perform(router, http.MethodPut, "/me/password", `{"current_password":"Old12345","new_password":"New12345"}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.True(t, strings.Contains(rec.Body.String(), "current password is incorrect"))
	})

	t.Run("Unexpected error - 500", func(t *testing.T) {
		mockService := new(MockAuthService)
		mockService.On("Me", mock.Anything, clientActor.UserID).Return(nil, errors.New("redis: connection refused")).Once()
		router := newAuthRouter(mockService, &clientActor)

		rec := perform(router, http.MethodGet, "/me", "")

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotContains(t, rec.Body.String(), "redis")
	})
}
