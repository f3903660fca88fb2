package controllers

import (
	"errors"
	"io"
	"net/http"
	"time"

	"agent-portal/middleware"
	"agent-portal/models"
	"agent-portal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AuthController struct {
	authService  AuthService
	refreshTTL   time.Duration
	secureCookie bool
	logger       *zap.Logger
}

func NewAuthController(authService AuthService, refreshTTL time.Duration, secureCookie bool, logger *zap.Logger) *AuthController {
	return &AuthController{
		authService:  authService,
		refreshTTL:   refreshTTL,
		secureCookie: secureCookie,
		logger:       logger,
	}
}

func (ac *AuthController) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, err)
		return
	}

	res, err := ac.authService.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, ac.logger, err)
		return
	}

	ac.setAuthCookies(c, res.Tokens)
	c.JSON(http.StatusCreated, gin.H{
		"message": "Account created successfully",
		"user":    res.User,
		"tokens":  res.Tokens,
	})
}

func (ac *AuthController) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, err)
		return
	}

	res, err := ac.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, ac.logger, err)
		return
	}

	ac.setAuthCookies(c, res.Tokens)
	c.JSON(http.StatusOK, gin.H{
		"message": "Logged in successfully",
		"user":    res.User,
		"tokens":  res.Tokens,
	})
}

func (ac *AuthController) Refresh(c *gin.Context) {
	refreshToken, err := ac.refreshTokenFrom(c)
	if err != nil {
		invalidRequest(c, err)
		return
	}
	if refreshToken == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing refresh token"})
		return
	}

	res, err := ac.authService.Refresh(c.Request.Context(), refreshToken)
	if err != nil {
		ac.clearAuthCookies(c)
		respondError(c, ac.logger, err)
		return
	}

	ac.setAuthCookies(c, res.Tokens)
	c.JSON(http.StatusOK, gin.H{"user": res.User, "tokens": res.Tokens})
}

// Logout always clears the cookies, even when the token was already revoked.
func (ac *AuthController) Logout(c *gin.Context) {
	refreshToken, err := ac.refreshTokenFrom(c)
	if err != nil {
		invalidRequest(c, err)
		return
	}

	if refreshToken != "" {
		if err := ac.authService.Logout(c.Request.Context(), refreshToken); err != nil {
			respondError(c, ac.logger, err)
			return
		}
	}

	ac.clearAuthCookies(c)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

func (ac *AuthController) Me(c *gin.Context) {
	user, err := ac.authService.Me(c.Request.Context(), c.GetString(middleware.ContextUserID))
	if err != nil {
		respondError(c, ac.logger, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (ac *AuthController) UpdateProfile(c *gin.Context) {
	var req models.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, err)
		return
	}

	user, err := ac.authService.UpdateProfile(c.Request.Context(), c.GetString(middleware.ContextUserID), req)
	if err != nil {
		respondError(c, ac.logger, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (ac *AuthController) ChangePassword(c *gin.Context) {
	var req models.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, err)
		return
	}

	err := ac.authService.ChangePassword(c.Request.Context(), c.GetString(middleware.ContextUserID), req.CurrentPassword, req.NewPassword)
	if err != nil {
		respondError(c, ac.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password updated"})
}

// refreshTokenFrom prefers the JSON body and falls back to the refresh cookie.
func (ac *AuthController) refreshTokenFrom(c *gin.Context) (string, error) {
	var req models.RefreshRequest
	if c.Request.Body != nil && c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}
	}
	if req.RefreshToken != "" {
		return req.RefreshToken, nil
	}
	cookie, _ := c.Cookie(middleware.RefreshTokenCookie)
	return cookie, nil
}

func (ac *AuthController) setAuthCookies(c *gin.Context, tokens *services.TokenPair) {
	if tokens == nil {
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.AccessTokenCookie, tokens.AccessToken, int(tokens.ExpiresIn), "/", "", ac.secureCookie, true)
	c.SetCookie(middleware.RefreshTokenCookie, tokens.RefreshToken, int(ac.refreshTTL.Seconds()), "/", "", ac.secureCookie, true)
}

func (ac *AuthController) clearAuthCookies(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.AccessTokenCookie, "", -1, "/", "", ac.secureCookie, true)
	c.SetCookie(middleware.RefreshTokenCookie, "", -1, "/", "", ac.secureCookie, true)
}
