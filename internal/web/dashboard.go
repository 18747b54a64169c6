package web

import (
	"net/http"

	"github.com/biolinq/biolinq/internal/auth"
	"github.com/biolinq/biolinq/internal/dnscheck"
	"github.com/biolinq/biolinq/internal/handlers"
	"github.com/biolinq/biolinq/internal/models"
	"github.com/biolinq/biolinq/internal/service"
)

type DashboardData struct {
	PageData
	// Biolink is nil until the user claims a username.
	Biolink   *models.Biolink
	Links     []models.Link
	IsPremium bool
	MaxLinks  int
	CanAdd    bool
	Themes    []string
	PublicURL string

	DomainStatus string
	TXTRecord    string
	CNAMETarget  string
}

func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	u := auth.CurrentUser(ctx)

	data := DashboardData{
		PageData:    h.pageData(w, r),
		IsPremium:   u.IsPremium,
		MaxLinks:    h.svc.Links.Cap(u.IsPremium),
		Themes:      service.Themes,
		CNAMETarget: h.cfg.CNAMETarget,
	}

	b, err := h.svc.Biolinks.ForUser(ctx, u.ID)
	switch {
	case service.CodeOf(err) == service.CodeNotFound:
		h.templates.Render(w, "templates/dashboard.html", data)
		return
	case err != nil:
		h.log.Error().Err(err).Str("user_id", u.ID).Msg("load dashboard")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	links, premium, err := h.svc.Biolinks.PageContent(ctx, b)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", u.ID).Msg("load dashboard links")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	data.Biolink = b
	data.Links = links
	data.IsPremium = premium
	data.MaxLinks = h.svc.Links.Cap(premium)
	data.CanAdd = len(links) < data.MaxLinks
	data.PublicURL = h.publicURL(b)
	data.DomainStatus = b.DomainStatus()
	if b.CustomDomain != "" {
		data.TXTRecord = dnscheck.TXTRecordName(b.CustomDomain)
	}
	h.templates.Render(w, "templates/dashboard.html", data)
}

// UsernameCheck serves GET /dashboard/username/check?u=.
func (h *Handler) UsernameCheck(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("u")
	err := h.svc.Biolinks.CheckAvailability(r.Context(), raw)
	if err != nil && service.CodeOf(err) == "" {
		handlers.WriteError(w, h.log, err)
		return
	}

	fields := map[string]any{
		"username":  service.NormalizeUsername(raw),
		"available": err == nil,
	}
	if err != nil {
		fields["reason"] = string(service.CodeOf(err))
		fields["message"] = handlers.ErrorMessage(err)
	}
	handlers.WriteOK(w, fields)
}

// UsernameRegister serves POST /dashboard/username.
func (h *Handler) UsernameRegister(w http.ResponseWriter, r *http.Request) {
	u := auth.CurrentUser(r.Context())
	b, err := h.svc.Biolinks.Register(r.Context(), u.ID, r.PostFormValue("username"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.log.Info().Str("user_id", u.ID).Str("username", b.Username).Msg("username claimed")
	h.succeed(w, r, "Your page is live at "+h.publicURL(b), map[string]any{"biolink": b})
}
