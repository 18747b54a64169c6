package service

import (
	"context"
	"database/sql"
	"strings"
	"unicode/utf8"

	"github.com/biolinq/biolinq/internal/models"
)

const (
	maxCommentRunes = 1000
	maxPageRunes    = 200
	maxFeedbackList = 500
)

type FeedbackInput struct {
	UserID  string
	Emoji   string
	Comment string
	Page    string
}

type Feedback struct {
	db *sql.DB
}

// Submit stores feedback. At least one of emoji and comment is required.
func (s *Feedback) Submit(ctx context.Context, in FeedbackInput) (*models.Feedback, error) {
	f := &models.Feedback{
		UserID:  in.UserID,
		Emoji:   strings.TrimSpace(in.Emoji),
		Comment: strings.TrimSpace(in.Comment),
		Page:    strings.TrimSpace(in.Page),
	}
	if f.Emoji == "" && f.Comment == "" {
		return nil, ErrInvalidFeedback
	}
	if utf8.RuneCountInString(f.Emoji) > maxEmojiRunes ||
		utf8.RuneCountInString(f.Comment) > maxCommentRunes ||
		utf8.RuneCountInString(f.Page) > maxPageRunes {
		return nil, ErrInvalidFeedback
	}
	if err := models.CreateFeedback(ctx, s.db, f); err != nil {
		return nil, err
	}
	return f, nil
}

// List returns the newest feedback for the admin view.
func (s *Feedback) List(ctx context.Context, limit int) ([]models.Feedback, error) {
	if limit <= 0 || limit > maxFeedbackList {
		limit = maxFeedbackList
	}
	return models.ListFeedback(ctx, s.db, limit)
}
