package service

import (
	"context"
	"errors"
	"time"

	"github.com/dashkit/admin-dashboard/internal/domain"
	"github.com/dashkit/admin-dashboard/internal/observability"
	"github.com/dashkit/admin-dashboard/internal/repository"
	"github.com/dashkit/admin-dashboard/internal/security"
)

type VerifyStatus string

const (
	VerifyValid    VerifyStatus = "valid"
	VerifyMissing  VerifyStatus = "missing"
	VerifyInvalid  VerifyStatus = "invalid"
	VerifyRevoked  VerifyStatus = "revoked"
	VerifyMismatch VerifyStatus = "mismatch"
)

type Verification struct {
	Status   VerifyStatus
	Identity domain.Identity
}

func (v Verification) Valid() bool { return v.Status == VerifyValid }

type TokenService struct {
	jwtMgr *security.JWTManager
	store  repository.SessionStore
	ttl    time.Duration
}

func NewTokenService(jwtMgr *security.JWTManager, store repository.SessionStore, ttl time.Duration) *TokenService {
	return &TokenService{jwtMgr: jwtMgr, store: store, ttl: ttl}
}

func (s *TokenService) TTL() time.Duration { return s.ttl }

// Issue signs a token for userID and registers the matching session record.
// If the record cannot be written the token is never handed out.
func (s *TokenService) Issue(ctx context.Context, userID uint) (string, *domain.Session, error) {
	raw, claims, err := s.jwtMgr.SignSessionToken(userID, s.ttl)
	if err != nil {
		return "", nil, err
	}
	session := &domain.Session{
		Token:     raw,
		UserID:    userID,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if err := s.store.Create(ctx, session); err != nil {
		return "", nil, err
	}
	return raw, session, nil
}

// Verify runs the signature check first and only then consults the store,
// so forged tokens never cost a round-trip.
func (s *TokenService) Verify(ctx context.Context, raw string) (Verification, error) {
	if raw == "" {
		observability.RecordSessionVerification(ctx, string(VerifyMissing))
		return Verification{Status: VerifyMissing}, nil
	}
	claims, err := s.jwtMgr.ParseSessionToken(raw)
	if err != nil {
		if errors.Is(err, security.ErrSecretNotConfigured) {
			return Verification{}, err
		}
		return s.reject(ctx, VerifyInvalid), nil
	}
	session, err := s.store.Get(ctx, raw)
	switch {
	case errors.Is(err, repository.ErrSessionNotFound):
		return s.reject(ctx, VerifyRevoked), nil
	case errors.Is(err, repository.ErrSessionCorrupt):
		return s.reject(ctx, VerifyMismatch), nil
	case err != nil:
		observability.RecordSessionVerification(ctx, "error")
		return Verification{}, err
	}
	if session.UserID != claims.UserID {
		return s.reject(ctx, VerifyMismatch), nil
	}
	observability.RecordSessionVerification(ctx, string(VerifyValid))
	return Verification{Status: VerifyValid, Identity: domain.Identity{UserID: claims.UserID}}, nil
}

func (s *TokenService) Revoke(ctx context.Context, raw string, userID uint) error {
	return s.store.Delete(ctx, raw, userID)
}

func (s *TokenService) RevokeAll(ctx context.Context, userID uint) (int64, error) {
	return s.store.DeleteByUserID(ctx, userID)
}

func (s *TokenService) reject(ctx context.Context, status VerifyStatus) Verification {
	observability.RecordSessionVerification(ctx, string(status))
	return Verification{Status: status}
}
