package service

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"povertyline/internal/apperr"
	"povertyline/internal/domain"
	"povertyline/internal/repository"
	"povertyline/internal/token"
)

// AuthService handles registration, login and token lifecycle.
type AuthService interface {
	Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error)
	Login(ctx context.Context, req LoginRequest) (*AuthResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*RefreshResponse, error)
	Me(ctx context.Context, userID string) (*domain.User, error)
}

type authService struct {
	usersRepo repository.UsersRepository
	tokens    *token.Manager
	logger    *zap.Logger
}

func NewAuthService(usersRepo repository.UsersRepository, tokens *token.Manager, logger *zap.Logger) AuthService {
	return &authService{
		usersRepo: usersRepo,
		tokens:    tokens,
		logger:    logger,
	}
}

// RegisterRequest carries a registration submission.
type RegisterRequest struct {
	Username string
	Email    string
	Password string
	Role     string
}

// AuthResponse is the register/login payload.
type AuthResponse struct {
	User         *domain.User
	AccessToken  string
	RefreshToken string
}

// RefreshResponse carries a re-issued access token.
type RefreshResponse struct {
	AccessToken string
}

// LoginRequest carries credentials. Username may hold an email address.
type LoginRequest struct {
	Username string
	Password string
}

func (s *authService) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	if req.Username == "" || req.Email == "" || req.Password == "" {
		return nil, apperr.Invalid("Missing required fields")
	}
	if !validateEmail(req.Email) {
		return nil, apperr.Invalid("Invalid email format")
	}
	if err := validatePassword(req.Password); err != nil {
		return nil, err
	}

	// Callers may register as user or provider. Anything else, including
	// admin, falls back to the default role.
	role := domain.RoleUser
	if parsed, ok := domain.ParseUserRole(req.Role); ok && parsed != domain.RoleAdmin {
		role = parsed
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.New(apperr.CodeInternal, "Failed to hash password")
	}

	user := &domain.User{
		Username:           req.Username,
		Email:              req.Email,
		PasswordHash:       string(hash),
		Role:               role,
		VerificationStatus: domain.VerificationUnverified,
		IsActive:           true,
	}
	if err := s.usersRepo.Create(ctx, user); err != nil {
		if appErr, ok := apperr.From(err); ok && appErr.Code == apperr.CodeConflict {
			return nil, apperr.New(apperr.CodeConflict, "Username or email already exists")
		}
		return nil, err
	}

	access, refresh, err := s.issueTokens(user.ID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("User registered",
		zap.String("user_id", user.ID),
		zap.String("role", string(user.Role)))

	return &AuthResponse{User: user, AccessToken: access, RefreshToken: refresh}, nil
}

func (s *authService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	if req.Username == "" || req.Password == "" {
		return nil, apperr.Invalid("Missing username or password")
	}

	var user *domain.User
	var err error
	if strings.Contains(req.Username, "@") {
		user, err = s.usersRepo.GetByEmail(ctx, req.Username)
	} else {
		user, err = s.usersRepo.GetByUsername(ctx, req.Username)
	}
	if err != nil {
		// Indistinguishable from a wrong password.
		return nil, apperr.New(apperr.CodeUnauthorized, "Invalid username or password")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.logger.Warn("Login failed", zap.String("user_id", user.ID), zap.String("reason", "bad password"))
		return nil, apperr.New(apperr.CodeUnauthorized, "Invalid username or password")
	}

	if !user.IsActive {
		s.logger.Warn("Login rejected", zap.String("user_id", user.ID), zap.String("reason", "account disabled"))
		return nil, apperr.New(apperr.CodeForbidden, "Account is disabled")
	}

	access, refresh, err := s.issueTokens(user.ID)
	if err != nil {
		return nil, err
	}
	return &AuthResponse{User: user, AccessToken: access, RefreshToken: refresh}, nil
}

// Refresh re-validates the account before issuing a new access token, so a
// disabled or deleted user cannot keep a session alive.
func (s *authService) Refresh(ctx context.Context, refreshToken string) (*RefreshResponse, error) {
	claims, err := s.tokens.Validate(refreshToken, token.TypeRefresh)
	if err != nil {
		return nil, err
	}

	user, err := s.usersRepo.GetByID(ctx, claims.UserID)
	if err != nil || !user.IsActive {
		return nil, apperr.New(apperr.CodeUnauthorized, "User not found or inactive")
	}

	access, err := s.tokens.GenerateAccessToken(user.ID)
	if err != nil {
		return nil, apperr.New(apperr.CodeInternal, "Failed to issue token")
	}
	return &RefreshResponse{AccessToken: access}, nil
}

func (s *authService) Me(ctx context.Context, userID string) (*domain.User, error) {
	return s.usersRepo.GetByID(ctx, userID)
}

func (s *authService) issueTokens(userID string) (access, refresh string, err error) {
	access, err = s.tokens.GenerateAccessToken(userID)
	if err != nil {
		return "", "", apperr.New(apperr.CodeInternal, "Failed to issue token")
	}
	refresh, err = s.tokens.GenerateRefreshToken(userID)
	if err != nil {
		return "", "", apperr.New(apperr.CodeInternal, "Failed to issue token")
	}
	return access, refresh, nil
}
