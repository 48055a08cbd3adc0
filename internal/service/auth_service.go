package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dashkit/admin-dashboard/internal/domain"
	"github.com/dashkit/admin-dashboard/internal/observability"
	"github.com/dashkit/admin-dashboard/internal/repository"
	"github.com/dashkit/admin-dashboard/internal/security"
)

// Compared against when the username is unknown so both failure paths pay
// one bcrypt evaluation.
var dummyPasswordHash = sync.OnceValue(func() string {
	hash, _ := security.HashPassword("unknown-user-placeholder")
	return hash
})

type LoginResult struct {
	Token     string
	UserID    uint
	ExpiresAt time.Time
}

type AuthService struct {
	users  repository.UserRepository
	tokens *TokenService
}

func NewAuthService(users repository.UserRepository, tokens *TokenService) *AuthService {
	return &AuthService{users: users, tokens: tokens}
}

func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*domain.User, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			security.CheckPassword(dummyPasswordHash(), password)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !security.CheckPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	if username == "" {
		return nil, invalid("username", "required")
	}
	if password == "" {
		return nil, invalid("password", "required")
	}
	user, err := s.Authenticate(ctx, username, password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			observability.RecordAuthLogin(ctx, "invalid_credentials")
		} else {
			observability.RecordAuthLogin(ctx, "error")
		}
		return nil, err
	}
	token, session, err := s.tokens.Issue(ctx, user.ID)
	if err != nil {
		observability.RecordAuthLogin(ctx, "error")
		return nil, err
	}
	observability.RecordAuthLogin(ctx, "success")
	return &LoginResult{Token: token, UserID: user.ID, ExpiresAt: session.ExpiresAt}, nil
}

func (s *AuthService) Verify(ctx context.Context, raw string) (Verification, error) {
	return s.tokens.Verify(ctx, raw)
}

func (s *AuthService) Logout(ctx context.Context, token string, identity domain.Identity) error {
	if err := s.tokens.Revoke(ctx, token, identity.UserID); err != nil {
		observability.RecordAuthLogout(ctx, "current", "error")
		return err
	}
	observability.RecordAuthLogout(ctx, "current", "success")
	return nil
}

func (s *AuthService) LogoutAll(ctx context.Context, identity domain.Identity) (int64, error) {
	n, err := s.tokens.RevokeAll(ctx, identity.UserID)
	if err != nil {
		observability.RecordAuthLogout(ctx, "all", "error")
		return 0, err
	}
	observability.RecordAuthLogout(ctx, "all", "success")
	return n, nil
}
