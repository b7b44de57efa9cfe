package authhttp_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dashboard-pro/dashboard-pro/internal/auth"
	authhttp "github.com/dashboard-pro/dashboard-pro/internal/auth/http"
	"github.com/dashboard-pro/dashboard-pro/internal/guard"
	"github.com/dashboard-pro/dashboard-pro/internal/rbac"
	"github.com/dashboard-pro/dashboard-pro/internal/session"
	"github.com/dashboard-pro/dashboard-pro/internal/shared"
	"github.com/dashboard-pro/dashboard-pro/internal/view"
	_ "github.com/dashboard-pro/dashboard-pro/testing"
)

type outcomes map[string]int

func (o outcomes) LoginAttempt(outcome string) { o[outcome]++ }

type harness struct {
	t        *testing.T
	store    session.Store
	sessions *shared.SessionManager
	service  *auth.Service
	router   chi.Router
	cookie   *http.Cookie
	outcomes outcomes
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := session.NewRedisStore(client, time.Hour)

	roster, err := auth.NewRoster(auth.DemoAccounts())
	require.NoError(t, err)
	templates, err := view.NewEngine()
	require.NoError(t, err)

	h := &harness{
		t:        t,
		store:    store,
		sessions: shared.NewSessionManager(store, "test_session", time.Hour, false),
		service:  auth.NewService(roster),
		outcomes: outcomes{},
	}
	handler := authhttp.NewHandler(nil, templates, h.sessions, shared.NewCSRFManager("csrfsecret"), h.outcomes, roster.Principals())

	r := chi.NewRouter()
	handler.MountRoutes(r)
	r.With(guard.Guard{}.Require(rbac.CapSave)).Get("/dashboard/save", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("save page"))
	})
	h.router = r
	return h
}

func (h *harness) do(method, target string, form url.Values) *httptest.ResponseRecorder {
	h.t.Helper()
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if h.cookie != nil {
		req.AddCookie(h.cookie)
	}
	ctx := context.Background()
	sess, err := h.sessions.Load(ctx, req)
	require.NoError(h.t, err)
	mgr := session.NewManager(h.store, session.PrincipalKey(sess.ID), h.service, nil)
	mgr.Restore(ctx)
	ctx = shared.ContextWithSession(req.Context(), sess)
	ctx = shared.ContextWithAuth(ctx, mgr)

	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req.WithContext(ctx))
	require.NoError(h.t, h.sessions.Commit(ctx, rec, sess))
	h.cookie = &http.Cookie{Name: h.sessions.CookieName(), Value: sess.ID}
	return rec
}

// answer reads the expected challenge answer without consuming it.
func (h *harness) answer() string {
	h.t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(h.cookie)
	sess, err := h.sessions.Load(context.Background(), req)
	require.NoError(h.t, err)
	answer, ok := sess.TakeChallengeAnswer()
	require.True(h.t, ok, "expected an issued challenge")
	return strconv.Itoa(answer)
}

func (h *harness) persisted() ([]byte, error) {
	return h.store.Get(context.Background(), session.PrincipalKey(h.cookie.Value))
}

func loginForm(email, password, captcha string) url.Values {
	return url.Values{"email": {email}, "password": {password}, "captcha": {captcha}}
}

func TestLoginPage(t *testing.T) {
	h := newHarness(t)

	res := h.do(http.MethodGet, "/login", nil)
	require.Equal(t, http.StatusOK, res.Code)
	body := res.Body.String()
	assert.Contains(t, body, "<form")
	assert.Contains(t, body, "= ?")
	assert.Contains(t, body, "viewer@company.com")
	assert.NotEmpty(t, h.answer())
}

func TestLoginSuccessPersistsPrincipal(t *testing.T) {
	h := newHarness(t)
	h.do(http.MethodGet, "/login", nil)

	res := h.do(http.MethodPost, "/login", loginForm("admin@company.com", "admin123", h.answer()))
	require.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, authhttp.DefaultLandingPath, res.Header().Get("Location"))
	assert.Equal(t, 1, h.outcomes[authhttp.OutcomeSuccess])

	data, err := h.persisted()
	require.NoError(t, err)
	assert.Contains(t, string(data), "admin@company.com")
	assert.NotContains(t, string(data), "admin123")

	// An authenticated visitor skips the login page.
	res = h.do(http.MethodGet, "/login", nil)
	assert.Equal(t, http.StatusSeeOther, res.Code)
}

func TestLoginRejectsWrongChallenge(t *testing.T) {
	h := newHarness(t)
	h.do(http.MethodGet, "/login", nil)
	answer, err := strconv.Atoi(h.answer())
	require.NoError(t, err)

	res := h.do(http.MethodPost, "/login", loginForm("admin@company.com", "admin123", strconv.Itoa(answer+1)))
	require.Equal(t, http.StatusBadRequest, res.Code)
	assert.Contains(t, res.Body.String(), "Invalid captcha. Please try again.")
	assert.NotContains(t, res.Body.String(), "admin123")
	assert.Equal(t, 1, h.outcomes[authhttp.OutcomeChallengeMismatch])

	_, err = h.persisted()
	assert.ErrorIs(t, err, session.ErrNotFound)
	// A new challenge was issued for the next attempt.
	assert.NotEmpty(t, h.answer())
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
	}{
		{name: "wrong password", email: "admin@company.com", password: "nope"},
		{name: "unknown email", email: "ghost@company.com", password: "admin123"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.do(http.MethodGet, "/login", nil)

			res := h.do(http.MethodPost, "/login", loginForm(tt.email, tt.password, h.answer()))
			require.Equal(t, http.StatusBadRequest, res.Code)
			assert.Contains(t, res.Body.String(), "Invalid email or password.")
			assert.Equal(t, 1, h.outcomes[authhttp.OutcomeInvalidCredentials])
			_, err := h.persisted()
			assert.ErrorIs(t, err, session.ErrNotFound)
		})
	}
}

func TestLoginWithoutIssuedChallenge(t *testing.T) {
	h := newHarness(t)

	res := h.do(http.MethodPost, "/login", loginForm("admin@company.com", "admin123", "0"))
	require.Equal(t, http.StatusBadRequest, res.Code)
	assert.Contains(t, res.Body.String(), "Invalid captcha. Please try again.")
	assert.Equal(t, 1, h.outcomes[authhttp.OutcomeChallengeMismatch])
}

func TestLoginChallengeIsSingleUse(t *testing.T) {
	h := newHarness(t)
	h.do(http.MethodGet, "/login", nil)
	answer := h.answer()

	res := h.do(http.MethodPost, "/login", loginForm("admin@company.com", "wrong", answer))
	require.Equal(t, http.StatusBadRequest, res.Code)

	// Replaying the consumed answer only succeeds if the regenerated
	// challenge happens to share it.
	if h.answer() != answer {
		res = h.do(http.MethodPost, "/login", loginForm("admin@company.com", "admin123", answer))
		assert.Equal(t, http.StatusBadRequest, res.Code)
		assert.Contains(t, res.Body.String(), "Invalid captcha. Please try again.")
	}
}

func TestLoginValidation(t *testing.T) {
	h := newHarness(t)
	h.do(http.MethodGet, "/login", nil)

	res := h.do(http.MethodPost, "/login", loginForm("", "", "abc"))
	require.Equal(t, http.StatusBadRequest, res.Code)
	body := res.Body.String()
	assert.Contains(t, body, "Email is required.")
	assert.Contains(t, body, "Password is required.")
	assert.Contains(t, body, "The answer must be a number.")
	assert.Equal(t, 1, h.outcomes[authhttp.OutcomeInvalidForm])
}

func TestLoginReturnsToRememberedDestination(t *testing.T) {
	h := newHarness(t)

	res := h.do(http.MethodGet, "/dashboard/save", nil)
	require.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, guard.DefaultLoginPath, res.Header().Get("Location"))

	res = h.do(http.MethodGet, "/login", nil)
	assert.Contains(t, res.Body.String(), "Sign in to continue to /dashboard/save.")
	res = h.do(http.MethodPost, "/login", loginForm("editor@company.com", "editor123", h.answer()))
	require.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, "/dashboard/save", res.Header().Get("Location"))

	res = h.do(http.MethodGet, "/dashboard/save", nil)
	assert.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "save page", res.Body.String())
}

func TestLogout(t *testing.T) {
	h := newHarness(t)
	h.do(http.MethodGet, "/login", nil)
	res := h.do(http.MethodPost, "/login", loginForm("admin@company.com", "admin123", h.answer()))
	require.Equal(t, http.StatusSeeOther, res.Code)

	res = h.do(http.MethodPost, "/logout", url.Values{})
	require.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, guard.DefaultLoginPath, res.Header().Get("Location"))
	_, err := h.persisted()
	assert.ErrorIs(t, err, session.ErrNotFound)

	res = h.do(http.MethodGet, "/login", nil)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), "You have been signed out.")

	// Logging out twice is harmless.
	res = h.do(http.MethodPost, "/logout", url.Values{})
	assert.Equal(t, http.StatusSeeOther, res.Code)
}
