package shared

import (
	"context"

	"github.com/dashboard-pro/dashboard-pro/internal/session"
)

type sessionContextKey struct{}

type authContextKey struct{}

// ContextWithSession stores the browser session in context.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext extracts the browser session from context.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*Session)
	return sess
}

// ContextWithAuth stores the request's principal session manager in context.
func ContextWithAuth(ctx context.Context, mgr *session.Manager) context.Context {
	return context.WithValue(ctx, authContextKey{}, mgr)
}

// AuthFromContext extracts the principal session manager. A nil result
// behaves as an anonymous session.
func AuthFromContext(ctx context.Context) *session.Manager {
	mgr, _ := ctx.Value(authContextKey{}).(*session.Manager)
	return mgr
}
