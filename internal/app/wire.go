package app

import (
	"log/slog"
	"net/http"

	"github.com/dashboard-pro/dashboard-pro/internal/auth"
	authhttp "github.com/dashboard-pro/dashboard-pro/internal/auth/http"
	"github.com/dashboard-pro/dashboard-pro/internal/dashboard"
	"github.com/dashboard-pro/dashboard-pro/internal/observability"
	"github.com/dashboard-pro/dashboard-pro/internal/session"
	"github.com/dashboard-pro/dashboard-pro/internal/shared"
	"github.com/dashboard-pro/dashboard-pro/internal/view"
)

// cookieName names the browser session cookie.
const cookieName = "dashboard_session"

// NewHandler assembles the application around store, which keeps both the
// browser session payloads and the principals bound to them.
func NewHandler(cfg *Config, logger *slog.Logger, store session.Store, roster *auth.Roster, metrics *observability.Metrics) (http.Handler, error) {
	templates, err := view.NewEngine()
	if err != nil {
		return nil, err
	}
	sessions := shared.NewSessionManager(store, cookieName, cfg.SessionTTL, cfg.IsProduction())
	csrf := shared.NewCSRFManager(cfg.CSRFSecret)
	service := auth.NewService(roster)

	// Demo credentials are only advertised outside production.
	var demo []auth.Principal
	if !cfg.IsProduction() {
		demo = roster.Principals()
	}

	return NewRouter(RouterParams{
		Logger:           logger,
		Config:           cfg,
		SessionManager:   sessions,
		CSRFManager:      csrf,
		PrincipalStore:   store,
		Verifier:         service,
		AuthHandler:      authhttp.NewHandler(logger, templates, sessions, csrf, metrics, demo),
		DashboardHandler: dashboard.NewHandler(logger, templates, csrf, metrics),
		Metrics:          metrics,
	}), nil
}
