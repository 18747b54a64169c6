package web

import (
	"net/http"
	"strconv"

	"github.com/biolinq/biolinq/internal/auth"
	"github.com/biolinq/biolinq/internal/handlers"
	"github.com/biolinq/biolinq/internal/models"
	"github.com/biolinq/biolinq/internal/service"
)

var rangeOptions = []int{7, 30, 90}

type AnalyticsData struct {
	PageData
	Report       *service.Report
	RangeOptions []int
	MaxDaily     int64
	MaxLinkClick int64
}

// AnalyticsPage serves GET /dashboard/analytics?days=N.
func (h *Handler) AnalyticsPage(w http.ResponseWriter, r *http.Request) {
	u := auth.CurrentUser(r.Context())
	days, _ := strconv.Atoi(r.URL.Query().Get("days"))

	report, err := h.svc.Analytics.Report(r.Context(), u.ID, days)
	if err != nil {
		if handlers.WantsJSON(r) {
			handlers.WriteError(w, h.log, err)
			return
		}
		if service.CodeOf(err) == service.CodeNotFound {
			http.Redirect(w, r, "/dashboard", http.StatusFound)
			return
		}
		h.log.Error().Err(err).Str("user_id", u.ID).Msg("build analytics report")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if handlers.WantsJSON(r) {
		handlers.WriteOK(w, map[string]any{"report": report})
		return
	}

	h.templates.Render(w, "templates/analytics.html", AnalyticsData{
		PageData:     h.pageData(w, r),
		Report:       report,
		RangeOptions: rangeOptions,
		MaxDaily:     maxViews(report.Daily),
		MaxLinkClick: maxClicks(report.Links),
	})
}

func maxViews(days []models.DailyStat) int64 {
	var m int64
	for _, d := range days {
		if d.Views > m {
			m = d.Views
		}
	}
	return m
}

func maxClicks(links []service.LinkStat) int64 {
	var m int64
	for _, l := range links {
		if l.Clicks > m {
			m = l.Clicks
		}
	}
	return m
}
