package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/biolinq/biolinq/internal/auth"
	"github.com/biolinq/biolinq/internal/service"
)

// FeedbackHandler accepts POST /api/feedback. Signed-in users are attached to
// their feedback; anonymous submissions are allowed.
type FeedbackHandler struct {
	Feedback *service.Feedback
	Log      zerolog.Logger
}

type feedbackRequest struct {
	Emoji   string `json:"emoji"`
	Comment string `json:"comment"`
	Page    string `json:"page"`
}

func (h *FeedbackHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, string(service.CodeInvalidFeedback), "invalid JSON", http.StatusBadRequest)
		return
	}

	in := service.FeedbackInput{Emoji: req.Emoji, Comment: req.Comment, Page: req.Page}
	if u := auth.CurrentUser(r.Context()); u != nil {
		in.UserID = u.ID
	}

	f, err := h.Feedback.Submit(r.Context(), in)
	if err != nil {
		WriteError(w, h.Log, err)
		return
	}
	WriteOK(w, map[string]any{"id": f.ID})
}
