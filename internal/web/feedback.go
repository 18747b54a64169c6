package web

import (
	"net/http"

	"github.com/biolinq/biolinq/internal/models"
)

const feedbackPageSize = 200

type FeedbackData struct {
	PageData
	Items []models.Feedback
}

// AdminFeedback lists recent feedback for administrators.
func (h *Handler) AdminFeedback(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.Feedback.List(r.Context(), feedbackPageSize)
	if err != nil {
		h.log.Error().Err(err).Msg("list feedback")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	h.templates.Render(w, "templates/feedback.html", FeedbackData{
		PageData: h.pageData(w, r),
		Items:    items,
	})
}
