package service

import (
	"context"
	"errors"
	"strings"

	"github.com/dashkit/admin-dashboard/internal/domain"
	"github.com/dashkit/admin-dashboard/internal/repository"
	"github.com/dashkit/admin-dashboard/internal/security"
)

const (
	DefaultPageName  = "dashboard"
	DefaultListTitle = "Dashboard"
	minPasswordBytes = 8
)

type OnboardingRequest struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	SiteName   string `json:"siteName"`
	AdminEmail string `json:"adminEmail"`
}

type OnboardingService struct {
	repo repository.OnboardingRepository
}

func NewOnboardingService(repo repository.OnboardingRepository) *OnboardingService {
	return &OnboardingService{repo: repo}
}

func (s *OnboardingService) Status(ctx context.Context) (bool, error) {
	return s.repo.IsDone(ctx)
}

// Complete provisions the admin account, site record and default list in a
// single step. It can succeed only once per installation.
func (s *OnboardingService) Complete(ctx context.Context, req OnboardingRequest) error {
	username := strings.TrimSpace(req.Username)
	siteName := strings.TrimSpace(req.SiteName)
	email := strings.TrimSpace(req.AdminEmail)
	switch {
	case username == "":
		return invalid("username", "required")
	case len(req.Password) < minPasswordBytes:
		return invalid("password", "must be at least 8 bytes")
	case siteName == "":
		return invalid("siteName", "required")
	case email == "" || !strings.Contains(email, "@"):
		return invalid("adminEmail", "must be an email address")
	}
	hash, err := security.HashPassword(req.Password)
	if err != nil {
		return err
	}
	err = s.repo.Complete(ctx, repository.OnboardingInput{
		Admin:     &domain.User{Username: username, Email: email, PasswordHash: hash},
		SiteName:  siteName,
		PageName:  DefaultPageName,
		ListTitle: DefaultListTitle,
	})
	if errors.Is(err, repository.ErrOnboardingCompleted) {
		return ErrOnboardingDone
	}
	if errors.Is(err, repository.ErrUsernameTaken) {
		return invalid("username", "already taken")
	}
	return err
}
