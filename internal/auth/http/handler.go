package authhttp

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/dashboard-pro/dashboard-pro/internal/auth"
	"github.com/dashboard-pro/dashboard-pro/internal/guard"
	"github.com/dashboard-pro/dashboard-pro/internal/shared"
	"github.com/dashboard-pro/dashboard-pro/internal/view"
)

// DefaultLandingPath is where a successful login goes when no destination
// was remembered.
const DefaultLandingPath = "/dashboard"

// Outcome labels reported to the LoginRecorder.
const (
	OutcomeSuccess            = "success"
	OutcomeChallengeMismatch  = "challenge_mismatch"
	OutcomeInvalidCredentials = "invalid_credentials"
	OutcomeInvalidForm        = "invalid_form"
	OutcomeError              = "error"
)

// LoginRecorder receives login outcomes.
type LoginRecorder interface {
	LoginAttempt(outcome string)
}

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger    *slog.Logger
	templates *view.Engine
	sessions  *shared.SessionManager
	csrf      *shared.CSRFManager
	recorder  LoginRecorder
	demo      []auth.Principal
	validator *validator.Validate
}

// NewHandler constructs a Handler. demo lists the accounts advertised on the
// login page; pass nil to hide them.
func NewHandler(logger *slog.Logger, templates *view.Engine, sessions *shared.SessionManager, csrf *shared.CSRFManager, recorder LoginRecorder, demo []auth.Principal) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		templates: templates,
		sessions:  sessions,
		csrf:      csrf,
		recorder:  recorder,
		demo:      demo,
		validator: validator.New(),
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/login", h.showLogin)
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
}

type loginForm struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
	Captcha  string `validate:"required,number"`
}

type loginPageData struct {
	Form         loginForm
	Errors       map[string]string
	Question     string
	Next         string
	DemoAccounts []auth.Principal
}

var fieldMessages = map[string]string{
	"Email.required":    "Email is required.",
	"Email.email":       "Enter a valid email address.",
	"Password.required": "Password is required.",
	"Captcha.required":  "Answer the security check.",
	"Captcha.number":    "The answer must be a number.",
}

func (h *Handler) showLogin(w http.ResponseWriter, r *http.Request) {
	if shared.AuthFromContext(r.Context()).Authenticated() {
		http.Redirect(w, r, guard.TakeDestination(shared.SessionFromContext(r.Context()), DefaultLandingPath), http.StatusSeeOther)
		return
	}
	h.renderLogin(w, r, http.StatusOK, loginForm{}, nil)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	sess := shared.SessionFromContext(r.Context())
	mgr := shared.AuthFromContext(r.Context())
	if sess == nil || mgr == nil {
		h.logger.Error("login without session")
		h.record(OutcomeError)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	// The issued challenge is single use, whatever the outcome.
	expected, issued := sess.TakeChallengeAnswer()

	form := loginForm{
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
		Captcha:  strings.TrimSpace(r.PostFormValue("captcha")),
	}
	if errs := h.validate(form); len(errs) > 0 {
		h.record(OutcomeInvalidForm)
		h.renderLogin(w, r, http.StatusBadRequest, form, errs)
		return
	}

	submitted, _ := strconv.Atoi(form.Captcha)
	var principal auth.Principal
	err := auth.ErrChallengeMismatch
	if issued {
		principal, err = mgr.Login(r.Context(), form.Email, form.Password, submitted, expected)
	}
	if err != nil {
		outcome := OutcomeError
		switch {
		case errors.Is(err, auth.ErrChallengeMismatch):
			outcome = OutcomeChallengeMismatch
		case errors.Is(err, auth.ErrInvalidCredentials):
			outcome = OutcomeInvalidCredentials
		default:
			h.logger.Error("login", slog.Any("error", err))
		}
		h.record(outcome)
		h.logger.Info("login rejected", slog.String("email", form.Email), slog.String("outcome", outcome))
		h.renderLogin(w, r, http.StatusBadRequest, form, map[string]string{"general": shared.UserSafeMessage(err)})
		return
	}

	h.record(OutcomeSuccess)
	h.logger.Info("login", slog.Int64("principal_id", principal.ID), slog.String("role", string(principal.Role)))
	sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "Welcome back, " + principal.DisplayName + "!"})
	http.Redirect(w, r, guard.TakeDestination(sess, DefaultLandingPath), http.StatusSeeOther)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if mgr := shared.AuthFromContext(r.Context()); mgr != nil {
		if err := mgr.Logout(r.Context()); err != nil {
			// The stored principal survived. Drop the browser session so its
			// id, and the key derived from it, is never presented again.
			h.logger.Error("logout", slog.Any("error", err))
			h.sessions.Destroy(sess)
			h.renderLogoutFailed(w)
			return
		}
	}
	if sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: "info", Message: "You have been signed out."})
	}
	http.Redirect(w, r, guard.DefaultLoginPath, http.StatusSeeOther)
}

func (h *Handler) renderLogoutFailed(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusInternalServerError)
	err := h.templates.Render(w, "pages/error.html", view.TemplateData{
		Title: "Sign out incomplete",
		Data: map[string]any{
			"Message": "We could not confirm your sign-out. This browser session has been closed; sign in again to continue.",
		},
	})
	if err != nil {
		h.logger.Error("render logout failure", slog.Any("error", err))
	}
}

func (h *Handler) validate(form loginForm) map[string]string {
	err := h.validator.Struct(form)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return map[string]string{"general": shared.UserSafeMessage(err)}
	}
	errs := make(map[string]string, len(fieldErrs))
	for _, fieldErr := range fieldErrs {
		msg, ok := fieldMessages[fieldErr.Field()+"."+fieldErr.Tag()]
		if !ok {
			msg = fieldErr.Error()
		}
		errs[fieldErr.Field()] = msg
	}
	return errs
}

// renderLogin issues a fresh challenge and renders the login page. The
// password is never echoed back.
func (h *Handler) renderLogin(w http.ResponseWriter, r *http.Request, status int, form loginForm, errs map[string]string) {
	sess := shared.SessionFromContext(r.Context())
	challenge := auth.NewChallenge()
	var flash *shared.FlashMessage
	if sess != nil {
		sess.SetChallengeAnswer(challenge.Answer())
		flash = sess.PopFlash()
	}
	csrfToken, _ := h.csrf.EnsureToken(sess)

	form.Password = ""
	form.Captcha = ""
	if errs == nil {
		errs = map[string]string{}
	}
	data := view.TemplateData{
		Title:       "Sign In",
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		Data: loginPageData{
			Form:         form,
			Errors:       errs,
			Question:     challenge.Question(),
			Next:         sess.PeekDestination(),
			DemoAccounts: h.demo,
		},
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.templates.Render(w, "pages/login.html", data); err != nil {
		h.logger.Error("render login", slog.Any("error", err))
	}
}

func (h *Handler) record(outcome string) {
	if h.recorder != nil {
		h.recorder.LoginAttempt(outcome)
	}
}
