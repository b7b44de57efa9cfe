package session_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dashboard-pro/dashboard-pro/internal/auth"
	"github.com/dashboard-pro/dashboard-pro/internal/rbac"
	"github.com/dashboard-pro/dashboard-pro/internal/session"
)

func demoVerifier(t *testing.T) *auth.Service {
	t.Helper()
	roster, err := auth.NewRoster(auth.DemoAccounts())
	require.NoError(t, err)
	return auth.NewService(roster)
}

type failingStore struct {
	session.Store
	setErr error
	delErr error
}

func (f failingStore) Set(ctx context.Context, key string, value []byte) error {
	if f.setErr != nil {
		return f.setErr
	}
	return f.Store.Set(ctx, key, value)
}

func (f failingStore) Delete(ctx context.Context, key string) error {
	if f.delErr != nil {
		return f.delErr
	}
	return f.Store.Delete(ctx, key)
}

func TestLoginPersistsStrippedPrincipal(t *testing.T) {
	ctx := context.Background()
	store := session.NewMemoryStore()
	mgr := session.NewManager(store, session.CurrentUserKey, demoVerifier(t), nil)

	principal, err := mgr.Login(ctx, "admin@company.com", "admin123", 7, 7)
	require.NoError(t, err)
	assert.Equal(t, "admin@company.com", principal.Email)

	current, ok := mgr.Current()
	require.True(t, ok)
	assert.Equal(t, principal, current)
	assert.True(t, mgr.HasCapability(rbac.CapImport))

	raw, err := store.Get(ctx, session.CurrentUserKey)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "admin123")
	var persisted auth.Principal
	require.NoError(t, json.Unmarshal(raw, &persisted))
	assert.Equal(t, principal, persisted)
}

func TestFailedLoginKeepsPriorSession(t *testing.T) {
	ctx := context.Background()
	store := session.NewMemoryStore()
	mgr := session.NewManager(store, session.CurrentUserKey, demoVerifier(t), nil)

	_, err := mgr.Login(ctx, "viewer@company.com", "viewer123", 4, 4)
	require.NoError(t, err)
	before, _ := store.Get(ctx, session.CurrentUserKey)

	_, err = mgr.Login(ctx, "admin@company.com", "admin123", 4, 5)
	require.ErrorIs(t, err, auth.ErrChallengeMismatch)
	_, err = mgr.Login(ctx, "admin@company.com", "wrong", 7, 7)
	require.ErrorIs(t, err, auth.ErrInvalidCredentials)

	current, ok := mgr.Current()
	require.True(t, ok)
	assert.Equal(t, rbac.RoleViewer, current.Role)
	after, _ := store.Get(ctx, session.CurrentUserKey)
	assert.Equal(t, before, after)
}

func TestFailedLoginFromAnonymousStaysAnonymous(t *testing.T) {
	ctx := context.Background()
	store := session.NewMemoryStore()
	mgr := session.NewManager(store, session.CurrentUserKey, demoVerifier(t), nil)

	_, err := mgr.Login(ctx, "admin@company.com", "wrong", 7, 7)
	require.ErrorIs(t, err, auth.ErrInvalidCredentials)
	assert.False(t, mgr.Authenticated())
	_, err = store.Get(ctx, session.CurrentUserKey)
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestLoginPersistFailureKeepsPriorState(t *testing.T) {
	ctx := context.Background()
	store := failingStore{Store: session.NewMemoryStore(), setErr: errors.New("disk full")}
	mgr := session.NewManager(store, session.CurrentUserKey, demoVerifier(t), nil)

	_, err := mgr.Login(ctx, "admin@company.com", "admin123", 2, 2)
	require.Error(t, err)
	assert.False(t, mgr.Authenticated())
}

func TestLogoutIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := session.NewMemoryStore()
	mgr := session.NewManager(store, session.CurrentUserKey, demoVerifier(t), nil)

	_, err := mgr.Login(ctx, "editor@company.com", "editor123", 9, 9)
	require.NoError(t, err)

	require.NoError(t, mgr.Logout(ctx))
	require.NoError(t, mgr.Logout(ctx))
	assert.False(t, mgr.Authenticated())
	assert.False(t, mgr.HasCapability(rbac.CapView))
	assert.Nil(t, mgr.Capabilities())

	restored := session.NewManager(store, session.CurrentUserKey, demoVerifier(t), nil)
	restored.Restore(ctx)
	assert.False(t, restored.Authenticated())
}

func TestLogoutFailsClosedOnStoreError(t *testing.T) {
	ctx := context.Background()
	mem := session.NewMemoryStore()
	mgr := session.NewManager(mem, session.CurrentUserKey, demoVerifier(t), nil)
	_, err := mgr.Login(ctx, "admin@company.com", "admin123", 3, 3)
	require.NoError(t, err)

	broken := session.NewManager(failingStore{Store: mem, delErr: errors.New("unavailable")}, session.CurrentUserKey, demoVerifier(t), nil)
	broken.Restore(ctx)
	require.True(t, broken.Authenticated())

	err = broken.Logout(ctx)
	require.Error(t, err)
	assert.False(t, broken.Authenticated())

	// The key is still stored; callers must stop presenting it.
	_, err = mem.Get(ctx, session.CurrentUserKey)
	assert.NoError(t, err)
}

func TestRestore(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name          string
		stored        []byte
		authenticated bool
	}{
		{name: "empty store"},
		{name: "well formed", stored: []byte(`{"id":3,"email":"viewer@company.com","role":"viewer","name":"Viewer User"}`), authenticated: true},
		{name: "garbage", stored: []byte(`{not json`)},
		{name: "wrong shape", stored: []byte(`["admin"]`)},
		{name: "missing email", stored: []byte(`{"id":1,"role":"admin"}`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := session.NewMemoryStore()
			if tt.stored != nil {
				require.NoError(t, store.Set(ctx, session.CurrentUserKey, tt.stored))
			}
			mgr := session.NewManager(store, session.CurrentUserKey, demoVerifier(t), nil)
			mgr.Restore(ctx)
			assert.Equal(t, tt.authenticated, mgr.Authenticated())
			if tt.stored != nil && !tt.authenticated {
				_, err := store.Get(ctx, session.CurrentUserKey)
				assert.ErrorIs(t, err, session.ErrNotFound, "malformed data should be discarded")
			}
		})
	}
}

func TestRestoreUnknownRoleHasNoCapabilities(t *testing.T) {
	ctx := context.Background()
	store := session.NewMemoryStore()
	require.NoError(t, store.Set(ctx, "k", []byte(`{"id":5,"email":"x@company.com","role":"superuser"}`)))
	mgr := session.NewManager(store, "k", demoVerifier(t), nil)
	mgr.Restore(ctx)

	require.True(t, mgr.Authenticated())
	for _, c := range rbac.Capabilities() {
		assert.False(t, mgr.HasCapability(c))
	}
}

func TestViewerScenario(t *testing.T) {
	ctx := context.Background()
	mgr := session.NewManager(session.NewMemoryStore(), session.CurrentUserKey, demoVerifier(t), nil)
	_, err := mgr.Login(ctx, "viewer@company.com", "viewer123", 11, 11)
	require.NoError(t, err)

	assert.False(t, mgr.HasCapability(rbac.CapSave))
	assert.True(t, mgr.HasCapability(rbac.CapSummary))
	assert.Equal(t, []rbac.Capability{rbac.CapView, rbac.CapSummary}, mgr.Capabilities())
}

func TestRedisStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := session.NewRedisStore(client, time.Hour)

	_, err := store.Get(ctx, "missing")
	require.ErrorIs(t, err, session.ErrNotFound)

	mgr := session.NewManager(store, session.PrincipalKey("abc"), demoVerifier(t), nil)
	_, err = mgr.Login(ctx, "admin@company.com", "admin123", 7, 7)
	require.NoError(t, err)
	assert.True(t, mr.Exists("session:abc:principal"))
	assert.Equal(t, time.Hour, mr.TTL("session:abc:principal"))

	// A fresh manager sharing the store sees the same principal.
	other := session.NewManager(store, session.PrincipalKey("abc"), demoVerifier(t), nil)
	other.Restore(ctx)
	require.True(t, other.Authenticated())

	require.NoError(t, other.Logout(ctx))
	assert.False(t, mr.Exists("session:abc:principal"))
	require.NoError(t, store.Delete(ctx, "session:abc:principal"))

	mgr.Restore(ctx)
	assert.False(t, mgr.Authenticated())
}

func TestRedisStoreUnavailableRestoresAnonymous(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := session.NewRedisStore(client, 0)
	require.NoError(t, store.Set(ctx, session.CurrentUserKey, []byte(`{"id":1,"email":"admin@company.com","role":"admin"}`)))

	mr.Close()
	mgr := session.NewManager(store, session.CurrentUserKey, demoVerifier(t), nil)
	mgr.Restore(ctx)
	assert.False(t, mgr.Authenticated())
}

func TestNilManagerIsAnonymous(t *testing.T) {
	var mgr *session.Manager
	assert.False(t, mgr.Authenticated())
	assert.False(t, mgr.HasCapability(rbac.CapView))
}
