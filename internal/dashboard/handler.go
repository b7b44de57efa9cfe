// Package dashboard serves the pages behind the login: a shell whose menu and
// actions follow the capabilities of the signed-in principal.
package dashboard

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dashboard-pro/dashboard-pro/internal/auth"
	"github.com/dashboard-pro/dashboard-pro/internal/guard"
	"github.com/dashboard-pro/dashboard-pro/internal/platform/httpx"
	"github.com/dashboard-pro/dashboard-pro/internal/rbac"
	"github.com/dashboard-pro/dashboard-pro/internal/shared"
	"github.com/dashboard-pro/dashboard-pro/internal/view"
)

// Handler renders dashboard pages.
type Handler struct {
	logger    *slog.Logger
	templates *view.Engine
	csrf      *shared.CSRFManager
	guard     guard.Guard
}

// NewHandler constructs a Handler. Denied navigations render the forbidden
// page; recorder may be nil.
func NewHandler(logger *slog.Logger, templates *view.Engine, csrf *shared.CSRFManager, recorder guard.Recorder) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{logger: logger, templates: templates, csrf: csrf}
	h.guard = guard.Guard{
		Logger:      logger,
		LoginPath:   guard.DefaultLoginPath,
		DenyHandler: http.HandlerFunc(h.Forbidden),
		Recorder:    recorder,
	}
	return h
}

// MountRoutes registers dashboard routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	g := h.guard
	r.Route(HomePath, func(r chi.Router) {
		r.With(g.Require()).Get("/", h.home)
		r.With(g.Require(rbac.CapImport)).Get("/import", h.importPage)
		r.With(g.Require(rbac.CapView)).Get("/data", h.dataPage)
		r.With(g.Require(rbac.CapEdit)).Post("/data/{id}", h.editRecord)
		r.With(g.Require(rbac.CapSave)).Get("/save", h.savePage)
		r.With(g.Require(rbac.CapSave)).Post("/save", h.saveAll)
		r.With(g.Require(rbac.CapSummary)).Get("/summary", h.summaryPage)
		r.With(g.Require()).Get("/account", h.accountPage)
	})
	r.Get("/api/session", h.sessionInfo)
	r.Get("/api/session/capabilities/{capability}", h.capabilityCheck)
}

func (h *Handler) home(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "pages/dashboard.html", "Dashboard", map[string]any{
		"QuickActions": QuickActions(shared.AuthFromContext(r.Context())),
	})
}

func (h *Handler) importPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "pages/import.html", "Import Excel", map[string]any{
		"History": sampleImports,
	})
}

func (h *Handler) dataPage(w http.ResponseWriter, r *http.Request) {
	mgr := shared.AuthFromContext(r.Context())
	h.render(w, r, http.StatusOK, "pages/data.html", "View Data", map[string]any{
		"Rows":    sampleRecords,
		"CanEdit": mgr.HasCapability(rbac.CapEdit),
	})
}

func (h *Handler) editRecord(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		h.NotFound(w, r)
		return
	}
	rec, ok := findRecord(id)
	if !ok {
		h.NotFound(w, r)
		return
	}
	h.flash(r, "success", "Record for "+rec.Name+" updated.")
	http.Redirect(w, r, "/dashboard/data", http.StatusSeeOther)
}

func (h *Handler) savePage(w http.ResponseWriter, r *http.Request) {
	mgr := shared.AuthFromContext(r.Context())
	h.render(w, r, http.StatusOK, "pages/save.html", "Save Data", map[string]any{
		"Pending": samplePending,
		"CanSave": mgr.HasCapability(rbac.CapSave),
	})
}

func (h *Handler) saveAll(w http.ResponseWriter, r *http.Request) {
	h.flash(r, "success", "All changes saved.")
	http.Redirect(w, r, "/dashboard/save", http.StatusSeeOther)
}

func (h *Handler) summaryPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "pages/summary.html", "View Summary", map[string]any{
		"Stats": sampleStats,
	})
}

func (h *Handler) accountPage(w http.ResponseWriter, r *http.Request) {
	mgr := shared.AuthFromContext(r.Context())
	h.render(w, r, http.StatusOK, "pages/account.html", "Account", map[string]any{
		"Capabilities": mgr.Capabilities(),
	})
}

type sessionResponse struct {
	Principal    auth.Principal    `json:"principal"`
	RoleLabel    string            `json:"role_label"`
	Capabilities []rbac.Capability `json:"capabilities"`
}

func (h *Handler) sessionInfo(w http.ResponseWriter, r *http.Request) {
	mgr := shared.AuthFromContext(r.Context())
	principal, ok := mgr.Current()
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	caps := mgr.Capabilities()
	if caps == nil {
		caps = []rbac.Capability{}
	}
	httpx.JSON(w, http.StatusOK, sessionResponse{
		Principal:    principal,
		RoleLabel:    principal.Role.Label(),
		Capabilities: caps,
	})
}

type capabilityResponse struct {
	Capability rbac.Capability `json:"capability"`
	Granted    bool            `json:"granted"`
}

// capabilityCheck answers 200 when the principal holds the capability, 403
// when it does not and 404 for names outside the capability set.
func (h *Handler) capabilityCheck(w http.ResponseWriter, r *http.Request) {
	mgr := shared.AuthFromContext(r.Context())
	if !mgr.Authenticated() {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	name := chi.URLParam(r, "capability")
	capability, ok := rbac.ParseCapability(name)
	if !ok {
		httpx.RespondError(w, fmt.Errorf("capability %q: %w", name, httpx.ErrNotFound))
		return
	}
	if !mgr.HasCapability(capability) {
		httpx.RespondError(w, fmt.Errorf("%s: %w", capability, httpx.ErrForbidden))
		return
	}
	httpx.JSON(w, http.StatusOK, capabilityResponse{Capability: capability, Granted: true})
}

// Forbidden renders the access denied page with status 403.
func (h *Handler) Forbidden(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusForbidden, "pages/forbidden.html", "Access denied", nil)
}

// NotFound renders the 404 page.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusNotFound, "pages/not_found.html", "Page not found", nil)
}

func (h *Handler) flash(r *http.Request, kind, message string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: kind, Message: message})
	}
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, name, title string, data any) {
	sess := shared.SessionFromContext(r.Context())
	mgr := shared.AuthFromContext(r.Context())

	csrfToken, _ := h.csrf.EnsureToken(sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	var principal *auth.Principal
	if p, ok := mgr.Current(); ok {
		principal = &p
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.templates.Render(w, name, view.TemplateData{
		Title:       title,
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		Principal:   principal,
		Menu:        Menu(mgr, r.URL.Path),
		Data:        data,
	}); err != nil {
		h.logger.Error("render page", slog.String("template", name), slog.Any("error", err))
	}
}
