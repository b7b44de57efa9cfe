package shared

import (
	"errors"

	"github.com/dashboard-pro/dashboard-pro/internal/auth"
)

var (
	// ErrSessionMissing occurs when a handler runs without a browser session.
	ErrSessionMissing = errors.New("session missing")
	// ErrCSRFTokenMissing occurs when CSRF token missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)

// UserSafeMessage maps an error to text that can be shown to the visitor.
// Login failures keep their own messages; everything else is generic.
func UserSafeMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, auth.ErrChallengeMismatch):
		return "Invalid captcha. Please try again."
	case errors.Is(err, auth.ErrInvalidCredentials):
		return "Invalid email or password."
	case errors.Is(err, ErrCSRFTokenMissing), errors.Is(err, ErrCSRFTokenMismatch):
		return "Your form expired. Please try again."
	default:
		return "Something went wrong. Please try again."
	}
}
