package auth

import (
	"context"
	"crypto/subtle"

	"golang.org/x/crypto/bcrypt"
)

// Service verifies submitted credentials against the principal store.
type Service struct {
	repo Repository
}

// NewService constructs a new Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Verify checks the challenge answer first, then the email/secret pair. Unknown
// emails and wrong secrets both yield ErrInvalidCredentials.
func (s *Service) Verify(ctx context.Context, email, secret string, submitted, expected int) (Principal, error) {
	if submitted != expected {
		return Principal{}, ErrChallengeMismatch
	}
	acc, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return Principal{}, ErrInvalidCredentials
	}
	if !secretMatches(acc, secret) {
		return Principal{}, ErrInvalidCredentials
	}
	return acc.Principal(), nil
}

func secretMatches(acc Account, secret string) bool {
	if acc.SecretHash != "" {
		return bcrypt.CompareHashAndPassword([]byte(acc.SecretHash), []byte(secret)) == nil
	}
	if acc.Secret == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(acc.Secret), []byte(secret)) == 1
}
