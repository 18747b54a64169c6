package web

import (
	"context"
	"html/template"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/biolinq/biolinq/internal/analytics"
	"github.com/biolinq/biolinq/internal/cache"
	"github.com/biolinq/biolinq/internal/handlers"
	"github.com/biolinq/biolinq/internal/models"
	"github.com/biolinq/biolinq/internal/service"
)

type ProfileData struct {
	Biolink   *models.Biolink
	Links     []models.Link
	IsPremium bool
	Preview   bool
	PublicURL string
	// Style sets the custom colour variables; empty unless premium.
	Style template.CSS
	// GA4ID is only set for premium profiles outside preview.
	GA4ID string
}

// Profile serves GET /{username}.
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	p, err := h.profileByUsername(r.Context(), chi.URLParam(r, "username"), isPreview(r))
	if err != nil {
		h.profileError(w, r, err)
		return
	}
	h.renderProfile(w, r, p)
}

func (h *Handler) profileError(w http.ResponseWriter, r *http.Request, err error) {
	if service.CodeOf(err) == service.CodeNotFound {
		h.NotFound(w, r)
		return
	}
	h.log.Error().Err(err).Str("path", r.URL.Path).Msg("load profile")
	http.Error(w, "internal error", http.StatusInternalServerError)
}

// NotFound renders the public 404 page.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.templates.RenderStatus(w, http.StatusNotFound, "templates/not_found.html", nil)
}

// profileByUsername and profileByDomain read through the profile cache.
// With fresh set they load straight from the store and leave the cache
// alone, so a preview always shows the owner's latest edits.
func (h *Handler) profileByUsername(ctx context.Context, username string, fresh bool) (*cache.Profile, error) {
	if !fresh {
		if p, ok := h.cache.GetByUsername(service.NormalizeUsername(username)); ok {
			return p, nil
		}
	}
	b, err := h.svc.Biolinks.ByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if fresh {
		return h.pageContent(ctx, b)
	}
	return h.loadProfile(ctx, b)
}

func (h *Handler) profileByDomain(ctx context.Context, host string, fresh bool) (*cache.Profile, error) {
	if !fresh {
		if p, ok := h.cache.GetByDomain(host); ok {
			return p, nil
		}
	}
	b, err := h.svc.Domains.Resolve(ctx, host)
	if err != nil {
		return nil, err
	}
	if fresh {
		return h.pageContent(ctx, b)
	}
	return h.loadProfile(ctx, b)
}

func (h *Handler) loadProfile(ctx context.Context, b *models.Biolink) (*cache.Profile, error) {
	p, err := h.pageContent(ctx, b)
	if err != nil {
		return nil, err
	}
	h.cache.Set(p)
	return p, nil
}

func (h *Handler) pageContent(ctx context.Context, b *models.Biolink) (*cache.Profile, error) {
	links, premium, err := h.svc.Biolinks.PageContent(ctx, b)
	if err != nil {
		return nil, err
	}
	return &cache.Profile{Biolink: b, Links: links, IsPremium: premium}, nil
}

func isPreview(r *http.Request) bool {
	return r.URL.Query().Get("preview") == "1"
}

// publicURL is where visitors reach b: its live custom domain, else the
// username path on the app's base URL.
func (h *Handler) publicURL(b *models.Biolink) string {
	if b.DomainStatus() == models.DomainLive {
		return "https://" + b.CustomDomain
	}
	return h.cfg.BaseURL + "/" + b.Username
}

func (h *Handler) renderProfile(w http.ResponseWriter, r *http.Request, p *cache.Profile) {
	preview := isPreview(r)

	data := ProfileData{
		Biolink:   p.Biolink,
		Links:     p.Links,
		IsPremium: p.IsPremium,
		Preview:   preview,
		PublicURL: h.publicURL(p.Biolink),
	}
	if p.IsPremium {
		var style []string
		if c := p.Biolink.CustomPrimaryColor; c != "" {
			style = append(style, "--primary:"+c)
		}
		if c := p.Biolink.CustomBgColor; c != "" {
			style = append(style, "--bg:"+c)
		}
		// Colours are validated as #rrggbb before they are stored.
		data.Style = template.CSS(strings.Join(style, ";"))
		if !preview {
			data.GA4ID = p.Biolink.GA4MeasurementID
		}
	}

	if preview {
		w.Header().Set("Cache-Control", "no-store")
	} else {
		w.Header().Set("Cache-Control", "private, max-age=60")
		h.trackView(w, r, p.Biolink)
	}
	h.templates.Render(w, "templates/profile.html", data)
}

// trackView counts a view unless the visitor is a bot or already counted
// within the dedupe window.
func (h *Handler) trackView(w http.ResponseWriter, r *http.Request, b *models.Biolink) {
	if analytics.IsBot(r.UserAgent()) {
		return
	}
	views := h.views.Load(r)
	if views.Seen(b.ID) {
		return
	}

	if err := h.svc.Tracker.RecordView(r.Context(), b.ID); err != nil {
		h.log.Error().Err(err).Str("biolink_id", b.ID).Msg("record view")
		return
	}
	if err := h.views.Remember(w, views, b.ID); err != nil {
		h.log.Warn().Err(err).Msg("write view cookie")
	}
	if h.collector != nil {
		h.collector.Push(analytics.Event{
			BiolinkID:  b.ID,
			Kind:       models.VisitView,
			OccurredAt: time.Now().UTC(),
			IP:         handlers.ClientIP(r),
			UserAgent:  r.UserAgent(),
			Referer:    r.Referer(),
		})
	}
}

// isAppHost reports whether host belongs to the app itself rather than to a
// customer's custom domain.
func (h *Handler) isAppHost(host string) bool {
	host = service.NormalizeHost(host)
	if host == "" || host == "localhost" || net.ParseIP(host) != nil {
		return true
	}
	return h.cfg.IsOwnDomain(host)
}

// CustomDomain serves requests arriving on a verified custom domain: "/"
// renders that biolink's profile, /go/ redirects and /static/ assets pass
// through, everything else is a 404. App hosts pass through untouched.
func (h *Handler) CustomDomain(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.isAppHost(r.Host) {
			next.ServeHTTP(w, r)
			return
		}

		host := service.NormalizeHost(r.Host)
		p, err := h.profileByDomain(r.Context(), host, isPreview(r))
		if err != nil {
			h.profileError(w, r, err)
			return
		}

		switch {
		case r.URL.Path == "/" && r.Method == http.MethodGet:
			h.renderProfile(w, r, p)
		case strings.HasPrefix(r.URL.Path, "/go/"), strings.HasPrefix(r.URL.Path, "/static/"):
			next.ServeHTTP(w, r)
		default:
			h.NotFound(w, r)
		}
	})
}
