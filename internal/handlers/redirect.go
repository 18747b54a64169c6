package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/biolinq/biolinq/internal/analytics"
	"github.com/biolinq/biolinq/internal/models"
	"github.com/biolinq/biolinq/internal/service"
)

// RedirectHandler serves GET /go/{linkID}: it counts the click and sends the
// visitor to the link's URL.
type RedirectHandler struct {
	Tracker   *service.Tracker
	Collector *analytics.Collector
	Log       zerolog.Logger
}

func (h *RedirectHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	linkID := chi.URLParam(r, "linkID")

	link, err := h.Tracker.RecordClick(r.Context(), linkID)
	if err != nil {
		if service.CodeOf(err) == service.CodeNotFound {
			http.NotFound(w, r)
			return
		}
		h.Log.Error().Err(err).Str("link_id", linkID).Msg("record click")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if h.Collector != nil {
		h.Collector.Push(analytics.Event{
			BiolinkID:  link.BiolinkID,
			LinkID:     link.ID,
			Kind:       models.VisitClick,
			OccurredAt: time.Now().UTC(),
			IP:         ClientIP(r),
			UserAgent:  r.UserAgent(),
			Referer:    r.Referer(),
		})
	}

	w.Header().Set("Cache-Control", "no-store")
	http.Redirect(w, r, link.URL, http.StatusFound)
}
