package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/studiodesk/support-tickets/internal/auth"
	"github.com/studiodesk/support-tickets/internal/config"
	"github.com/studiodesk/support-tickets/internal/domain"
	"github.com/studiodesk/support-tickets/internal/repository"
	apperrors "github.com/studiodesk/support-tickets/pkg/util/errorutil"
)

// AuthService coordinates staff login.
type AuthService struct {
	users     repository.UserRepository
	passwords *auth.PasswordChecker
	tokenMgr  *auth.TokenManager
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, users repository.UserRepository) (*AuthService, error) {
	passwords, err := auth.NewPasswordChecker(cfg.Auth.BcryptCost)
	if err != nil {
		return nil, err
	}
	return &AuthService{
		users:     users,
		passwords: passwords,
		tokenMgr:  auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
	}, nil
}

// Login authenticates a staff user and returns a role-bearing token. Unknown
// emails and wrong passwords are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, domain.Token, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, domain.Token{}, apperrors.NewValidationError("email and password are required", nil)
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.Token{}, err
	}
	hashed := ""
	if user != nil {
		hashed = user.PasswordHash
	}
	if err := s.passwords.Check(hashed, password); err != nil || !user.IsActive {
		return nil, domain.Token{}, apperrors.NewUnauthorized("invalid credentials")
	}
	token, err := s.tokenMgr.GenerateToken(user)
	if err != nil {
		return nil, domain.Token{}, err
	}
	return user, token, nil
}

// TokenManager exposes the manager used by the auth middleware.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}
