package service

import (
	"context"

	"github.com/dashkit/admin-dashboard/internal/domain"
)

// SessionVerifier resolves a raw token to an identity. Rejections come back
// as a non-valid Verification; the error is reserved for faults.
type SessionVerifier interface {
	Verify(ctx context.Context, raw string) (Verification, error)
}

type CredentialStore interface {
	Authenticate(ctx context.Context, username, password string) (*domain.User, error)
}

type AuthServiceInterface interface {
	Login(ctx context.Context, username, password string) (*LoginResult, error)
	Logout(ctx context.Context, token string, identity domain.Identity) error
	LogoutAll(ctx context.Context, identity domain.Identity) (int64, error)
	SessionVerifier
}
