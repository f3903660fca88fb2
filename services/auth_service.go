package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"agent-portal/apperrors"
	"agent-portal/models"
	"agent-portal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// AuthResult is returned by every operation that signs a user in.
type AuthResult struct {
	User   models.User `json:"user"`
	Tokens *TokenPair  `json:"tokens"`
}

type AuthService struct {
	users     repository.UserRepository
	tokens    repository.TokenRepository
	tokenSvc  *TokenService
	passwords *PasswordValidator
	mailer    *Mailer
	events    *EventPublisher
	isAdmin   func(email string) bool
	logger    *zap.Logger
}

func NewAuthService(
	users repository.UserRepository,
	tokens repository.TokenRepository,
	tokenSvc *TokenService,
	mailer *Mailer,
	events *EventPublisher,
	isAdmin func(email string) bool,
	logger *zap.Logger,
) *AuthService {
	if isAdmin == nil {
		isAdmin = func(string) bool { return false }
	}
	return &AuthService{
		users:     users,
		tokens:    tokens,
		tokenSvc:  tokenSvc,
		passwords: NewPasswordValidator(),
		mailer:    mailer,
		events:    events,
		isAdmin:   isAdmin,
		logger:    logger,
	}
}

func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (*AuthResult, error) {
	name := strings.TrimSpace(req.Name)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if name == "" || email == "" {
		return nil, apperrors.BadRequest("name and email are required")
	}
	if err := s.passwords.ValidatePassword(req.Password); err != nil {
		return nil, apperrors.BadRequest(err.Error())
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	role := models.RoleClient
	if s.isAdmin(email) {
		role = models.RoleAdmin
	}

	now := time.Now().UTC()
	user := &models.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hashedPassword),
		Role:         role,
		Company:      strings.TrimSpace(req.Company),
		Phone:        strings.TrimSpace(req.Phone),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.Conflict("email already registered")
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	tokens, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}

	s.events.Publish(ctx, models.Event{Type: models.EventUserRegistered, UserID: user.ID})
	if err := s.mailer.SendWelcome(ctx, user); err != nil {
		s.logger.Warn("Failed to send welcome email", zap.String("user_id", user.ID), zap.Error(err))
	}

	s.logger.Info("User registered", zap.String("user_id", user.ID), zap.String("role", role))
	return &AuthResult{User: user.Public(), Tokens: tokens}, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.Unauthorized("invalid email or password")
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apperrors.Unauthorized("invalid email or password")
	}

	tokens, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user.Public(), Tokens: tokens}, nil
}

// Refresh rotates a refresh token: the presented one is consumed and a new pair issued.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	claims, err := s.tokenSvc.ValidateToken(refreshToken, TokenTypeRefresh)
	if err != nil || claims.ID == "" {
		return nil, apperrors.Unauthorized("invalid refresh token")
	}

	userID, err := s.tokens.Consume(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.Unauthorized("refresh token revoked")
		}
		return nil, fmt.Errorf("failed to consume refresh token: %w", err)
	}
	if userID != claims.Subject {
		return nil, apperrors.Unauthorized("invalid refresh token")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.Unauthorized("user not found")
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	tokens, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user.Public(), Tokens: tokens}, nil
}

// Logout revokes the refresh token. Unknown or invalid tokens are ignored.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	claims, err := s.tokenSvc.ValidateToken(refreshToken, TokenTypeRefresh)
	if err != nil || claims.ID == "" {
		return nil
	}
	return s.tokens.Revoke(ctx, claims.ID)
}

func (s *AuthService) Me(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	public := user.Public()
	return &public, nil
}

func (s *AuthService) UpdateProfile(ctx context.Context, userID string, req models.UpdateProfileRequest) (*models.User, error) {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if name := strings.TrimSpace(req.Name); name != "" {
		user.Name = name
	}
	if company := strings.TrimSpace(req.Company); company != "" {
		user.Company = company
	}
	if phone := strings.TrimSpace(req.Phone); phone != "" {
		user.Phone = phone
	}
	user.UpdatedAt = time.Now().UTC()

	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	public := user.Public()
	return &public, nil
}

func (s *AuthService) ChangePassword(ctx context.Context, userID, current, next string) error {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)); err != nil {
		return apperrors.BadRequest("current password is incorrect")
	}
	if err := s.passwords.ValidatePassword(next); err != nil {
		return apperrors.BadRequest(err.Error())
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.PasswordHash = string(hashedPassword)
	user.UpdatedAt = time.Now().UTC()
	return s.users.Update(ctx, user)
}

func (s *AuthService) ListUsers(ctx context.Context, offset, limit int) ([]models.User, int64, error) {
	users, total, err := s.users.List(ctx, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	for i := range users {
		users[i] = users[i].Public()
	}
	return users, total, nil
}

func (s *AuthService) SetRole(ctx context.Context, userID, role string) (*models.User, error) {
	if !models.ValidRole(role) {
		return nil, apperrors.BadRequest("invalid role")
	}
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	changed := user.Role != role
	user.Role = role
	user.UpdatedAt = time.Now().UTC()
	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	// Access tokens carry the role until they expire; refresh tokens must not mint more.
	if changed {
		if err := s.tokens.RevokeUser(ctx, user.ID); err != nil {
			return nil, fmt.Errorf("failed to revoke sessions: %w", err)
		}
	}
	s.logger.Info("User role changed", zap.String("user_id", user.ID), zap.String("role", role))
	public := user.Public()
	return &public, nil
}

func (s *AuthService) findUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("user not found")
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return user, nil
}

func (s *AuthService) issueTokens(ctx context.Context, user *models.User) (*TokenPair, error) {
	pair, tokenID, err := s.tokenSvc.GenerateTokenPair(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, err
	}
	if err := s.tokens.Store(ctx, tokenID, user.ID, s.tokenSvc.RefreshTTL()); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}
	return pair, nil
}
