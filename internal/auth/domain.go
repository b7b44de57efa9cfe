package auth

import (
	"errors"

	"github.com/dashboard-pro/dashboard-pro/internal/rbac"
)

var (
	// ErrChallengeMismatch indicates the anti-automation answer was wrong.
	ErrChallengeMismatch = errors.New("invalid captcha, please try again")
	// ErrInvalidCredentials covers both unknown emails and wrong secrets.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrNotFound indicates no account exists for the requested email.
	ErrNotFound = errors.New("auth: account not found")
	// ErrDuplicateEmail indicates a roster lists the same email twice.
	ErrDuplicateEmail = errors.New("auth: duplicate email in roster")
)

// Principal is an authenticated identity without credential material. It is
// the only account shape that leaves this package.
type Principal struct {
	ID          int64     `json:"id"`
	Email       string    `json:"email"`
	Role        rbac.Role `json:"role"`
	DisplayName string    `json:"name"`
	AvatarRef   string    `json:"avatar,omitempty"`
}

// Account is a roster record. Secret holds the plaintext credential and
// SecretHash an optional bcrypt hash. Roster files decode into their own
// entry type, so Account is never read from YAML; the json tags keep the
// secrets out if an Account is ever logged or encoded.
type Account struct {
	ID          int64
	Email       string
	Role        rbac.Role
	DisplayName string
	AvatarRef   string
	Secret      string `json:"-"`
	SecretHash  string `json:"-"`
}

// Principal strips credential material from the account.
func (a Account) Principal() Principal {
	return Principal{
		ID:          a.ID,
		Email:       a.Email,
		Role:        a.Role,
		DisplayName: a.DisplayName,
		AvatarRef:   a.AvatarRef,
	}
}

// Initials returns the first letter of each word of the display name.
func (p Principal) Initials() string {
	var out []rune
	start := true
	for _, r := range p.DisplayName {
		if r == ' ' {
			start = true
			continue
		}
		if start {
			out = append(out, r)
			start = false
		}
	}
	return string(out)
}
