package auth

import (
	"context"

	"golang.org/x/crypto/bcrypt"

	"github.com/quantfolio/quantfolio/internal/shared"
)

// Service wraps authentication business rules.
type Service struct {
	repo Repository
}

// NewService constructs a new Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Authenticate validates email/password credentials. Without a configured
// repository there is no credential source and every attempt is rejected.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	if s.repo == nil {
		return nil, shared.ErrInvalidCredentials
	}
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}
