// Package session owns the authenticated principal of one logical session and
// keeps it in step with its persisted copy.
//
// A Manager is the only writer of its state and of its key in the Store.
// Login and Logout persist synchronously before returning, so the in-memory
// and persisted views agree as soon as either call completes.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/dashboard-pro/dashboard-pro/internal/auth"
	"github.com/dashboard-pro/dashboard-pro/internal/rbac"
)

// CurrentUserKey is the well-known key for a process-wide session.
const CurrentUserKey = "dashboard:current_user"

// ErrMalformedSession marks persisted data that could not be decoded.
// Restore swallows it and falls back to an anonymous session.
var ErrMalformedSession = errors.New("session: malformed persisted session")

// Verifier validates login submissions.
type Verifier interface {
	Verify(ctx context.Context, email, secret string, submitted, expected int) (auth.Principal, error)
}

// Manager holds either no principal (anonymous) or one authenticated principal.
type Manager struct {
	mu        sync.Mutex
	store     Store
	key       string
	verifier  Verifier
	logger    *slog.Logger
	principal *auth.Principal
}

// NewManager constructs an anonymous Manager persisting under key.
func NewManager(store Store, key string, verifier Verifier, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Manager{store: store, key: key, verifier: verifier, logger: logger}
}

// PrincipalKey derives the persistence key for a browser session id.
func PrincipalKey(sessionID string) string {
	return "session:" + sessionID + ":principal"
}

// Restore loads the persisted principal. Missing, unreadable or malformed
// data leaves the manager anonymous; it never fails open to authenticated.
func (m *Manager) Restore(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.principal = nil
	data, err := m.store.Get(ctx, m.key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			m.logger.Warn("restore session", slog.String("key", m.key), slog.Any("error", err))
		}
		return
	}
	principal, err := decodePrincipal(data)
	if err != nil {
		m.logger.Warn("discard persisted session", slog.String("key", m.key), slog.Any("error", err))
		if delErr := m.store.Delete(ctx, m.key); delErr != nil {
			m.logger.Warn("delete malformed session", slog.Any("error", delErr))
		}
		return
	}
	m.principal = &principal
}

// Login verifies the submission and, on success, persists and adopts the new
// principal. On any failure the previous state is kept.
func (m *Manager) Login(ctx context.Context, email, secret string, submitted, expected int) (auth.Principal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	principal, err := m.verifier.Verify(ctx, email, secret, submitted, expected)
	if err != nil {
		return auth.Principal{}, err
	}
	data, err := json.Marshal(principal)
	if err != nil {
		return auth.Principal{}, fmt.Errorf("session: encode principal: %w", err)
	}
	if err := m.store.Set(ctx, m.key, data); err != nil {
		return auth.Principal{}, err
	}
	m.principal = &principal
	return principal, nil
}

// Logout clears the session. It is idempotent. The manager becomes anonymous
// even when the store delete fails; that error is returned and the persisted
// principal is still there, so the caller must abandon the key.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.principal = nil
	return m.store.Delete(ctx, m.key)
}

// Current returns the authenticated principal, if any.
func (m *Manager) Current() (auth.Principal, bool) {
	if m == nil {
		return auth.Principal{}, false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.principal == nil {
		return auth.Principal{}, false
	}
	return *m.principal, true
}

// Authenticated reports whether a principal is present.
func (m *Manager) Authenticated() bool {
	_, ok := m.Current()
	return ok
}

// HasCapability resolves capability for the current principal's role.
// Anonymous sessions hold no capabilities.
func (m *Manager) HasCapability(capability rbac.Capability) bool {
	p, ok := m.Current()
	if !ok {
		return false
	}
	return rbac.Resolve(p.Role, capability)
}

// Capabilities lists what the current principal may do.
func (m *Manager) Capabilities() []rbac.Capability {
	p, ok := m.Current()
	if !ok {
		return nil
	}
	return rbac.CapabilitiesFor(p.Role)
}

func decodePrincipal(data []byte) (auth.Principal, error) {
	var p auth.Principal
	if err := json.Unmarshal(data, &p); err != nil {
		return auth.Principal{}, fmt.Errorf("%w: %v", ErrMalformedSession, err)
	}
	if p.Email == "" {
		return auth.Principal{}, fmt.Errorf("%w: missing email", ErrMalformedSession)
	}
	return p, nil
}
