package web

import (
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/biolinq/biolinq/internal/analytics"
	"github.com/biolinq/biolinq/internal/auth"
	"github.com/biolinq/biolinq/internal/cache"
	"github.com/biolinq/biolinq/internal/config"
	"github.com/biolinq/biolinq/internal/handlers"
	"github.com/biolinq/biolinq/internal/models"
	"github.com/biolinq/biolinq/internal/ratelimit"
	"github.com/biolinq/biolinq/internal/service"
	"github.com/biolinq/biolinq/internal/viewcookie"
)

// Options are the dependencies of the server-rendered pages.
type Options struct {
	Cfg       *config.Config
	Services  *service.Services
	Auth      *auth.Manager
	Cache     *cache.ProfileCache
	Views     *viewcookie.Jar
	Collector *analytics.Collector
	Limiter   *ratelimit.Limiter
	Log       zerolog.Logger
}

type Handler struct {
	cfg       *config.Config
	svc       *service.Services
	auth      *auth.Manager
	cache     *cache.ProfileCache
	views     *viewcookie.Jar
	collector *analytics.Collector
	limiter   *ratelimit.Limiter
	log       zerolog.Logger
	templates *TemplateRegistry
}

func NewHandler(o Options) (*Handler, error) {
	tmpl, err := NewTemplateRegistry()
	if err != nil {
		return nil, err
	}

	return &Handler{
		cfg:       o.Cfg,
		svc:       o.Services,
		auth:      o.Auth,
		cache:     o.Cache,
		views:     o.Views,
		collector: o.Collector,
		limiter:   o.Limiter,
		log:       o.Log.With().Str("component", "web").Logger(),
		templates: tmpl,
	}, nil
}

// RegisterRoutes mounts the dashboard, admin and public profile routes. The
// session middleware must already be installed on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	staticSub, _ := fs.Sub(staticFS, "static")
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))

	r.Post("/logout", h.Logout)

	r.Route("/dashboard", func(r chi.Router) {
		r.Use(auth.RequireUser(h.cfg.LoginURL))

		r.Get("/", h.Dashboard)
		r.Get("/analytics", h.AnalyticsPage)
		r.Get("/username/check", h.UsernameCheck)

		r.Group(func(r chi.Router) {
			r.Use(h.limiter.Middleware("dashboard"))
			r.Post("/username", h.UsernameRegister)
			r.Post("/links", h.LinksPost)
			r.Post("/appearance", h.AppearancePost)
			r.Post("/domain", h.DomainPost)
			r.Post("/settings", h.SettingsPost)
		})
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(auth.RequireAdmin(h.cfg.IsAdmin))
		r.Get("/feedback", h.AdminFeedback)
	})

	r.Get("/{username}", h.Profile)
	r.Get("/{username}/qr.png", h.ProfileQRCode)
}

type PageData struct {
	Flash   *Flash
	User    *models.User
	IsAdmin bool
}

func (h *Handler) pageData(w http.ResponseWriter, r *http.Request) PageData {
	u := auth.CurrentUser(r.Context())
	pd := PageData{Flash: getFlash(w, r), User: u}
	if u != nil {
		pd.IsAdmin = h.cfg.IsAdmin(u.Email)
	}
	return pd
}

// succeed answers a dashboard POST. JSON clients get the success envelope
// with fields; browsers get a flash message and a redirect back.
func (h *Handler) succeed(w http.ResponseWriter, r *http.Request, msg string, fields map[string]any) {
	if handlers.WantsJSON(r) {
		handlers.WriteOK(w, fields)
		return
	}
	setFlash(w, "success", msg)
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// fail is the error counterpart of succeed.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if handlers.WantsJSON(r) {
		handlers.WriteError(w, h.log, err)
		return
	}
	if service.CodeOf(err) == "" {
		h.log.Error().Err(err).Str("path", r.URL.Path).Msg("dashboard action failed")
	}
	setFlash(w, "error", handlers.ErrorMessage(err))
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Logout(w, r); err != nil {
		h.log.Error().Err(err).Msg("logout")
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
