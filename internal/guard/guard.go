// Package guard enforces session and capability checks before a protected
// view is rendered.
package guard

import (
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dashboard-pro/dashboard-pro/internal/rbac"
	"github.com/dashboard-pro/dashboard-pro/internal/shared"
)

// DefaultLoginPath is where anonymous visitors are sent.
const DefaultLoginPath = "/login"

// Decision is the outcome of a guarded navigation.
type Decision int

const (
	Allow Decision = iota
	RedirectLogin
	Deny
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case RedirectLogin:
		return "redirect_login"
	case Deny:
		return "deny"
	default:
		return "unknown"
	}
}

// Authorizer is the view of a session the guard needs.
type Authorizer interface {
	Authenticated() bool
	HasCapability(rbac.Capability) bool
}

// DestinationSlot remembers a single intended destination.
type DestinationSlot interface {
	SetDestination(path string)
	TakeDestination() string
}

// Recorder receives guard outcomes, e.g. for metrics.
type Recorder interface {
	GuardDecision(outcome string)
}

// Decide evaluates a navigation: no session redirects to login, a missing
// capability denies, anything else is allowed.
func Decide(a Authorizer, required ...rbac.Capability) Decision {
	if a == nil || !a.Authenticated() {
		return RedirectLogin
	}
	for _, c := range required {
		if !a.HasCapability(c) {
			return Deny
		}
	}
	return Allow
}

// Guard is HTTP middleware around Decide. Nothing is cached: each request is
// decided against the session restored for that request.
// DenyHandler, when set, renders the denial and must answer 403.
type Guard struct {
	Logger      *slog.Logger
	LoginPath   string
	DenyHandler http.Handler
	Recorder    Recorder
}

// Require allows the request only when a principal is logged in and holds
// every listed capability.
func (g Guard) Require(required ...rbac.Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			decision := Decide(shared.AuthFromContext(r.Context()), required...)
			if g.Recorder != nil {
				g.Recorder.GuardDecision(decision.String())
			}
			switch decision {
			case RedirectLogin:
				if sess := shared.SessionFromContext(r.Context()); sess != nil && r.Method == http.MethodGet {
					remember(sess, r.URL.RequestURI())
				}
				http.Redirect(w, r, g.loginPath(), http.StatusSeeOther)
			case Deny:
				g.logger().Info("guard denied", slog.String("path", r.URL.Path), slog.Any("required", required))
				if g.DenyHandler != nil {
					g.DenyHandler.ServeHTTP(w, r)
					return
				}
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

func remember(slot DestinationSlot, path string) {
	if safe := SafeDestination(path); safe != "" {
		slot.SetDestination(safe)
	}
}

// SafeDestination returns path when it is a same-site absolute path and ""
// otherwise.
func SafeDestination(path string) string {
	if !strings.HasPrefix(path, "/") || strings.HasPrefix(path, "//") || strings.ContainsAny(path, "\\\r\n") {
		return ""
	}
	return path
}

// TakeDestination consumes the remembered destination, falling back to def.
func TakeDestination(slot DestinationSlot, def string) string {
	if slot == nil {
		return def
	}
	if path := SafeDestination(slot.TakeDestination()); path != "" {
		return path
	}
	return def
}

func (g Guard) loginPath() string {
	if g.LoginPath == "" {
		return DefaultLoginPath
	}
	return g.LoginPath
}

func (g Guard) logger() *slog.Logger {
	if g.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return g.Logger
}

var _ DestinationSlot = (*shared.Session)(nil)
