package models

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type Feedback struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id,omitempty"`
	Emoji     string    `json:"emoji"`
	Comment   string    `json:"comment"`
	Page      string    `json:"page"`
	CreatedAt time.Time `json:"created_at"`
}

func CreateFeedback(ctx context.Context, q Querier, f *Feedback) error {
	if f.ID == "" {
		f.ID = NewID()
	}
	var userID sql.NullString
	if f.UserID != "" {
		userID = sql.NullString{String: f.UserID, Valid: true}
	}
	_, err := q.ExecContext(ctx,
		`INSERT INTO feedback (id, user_id, emoji, comment, page) VALUES (?, ?, ?, ?, ?)`,
		f.ID, userID, f.Emoji, f.Comment, f.Page,
	)
	if err != nil {
		return fmt.Errorf("insert feedback: %w", err)
	}
	return nil
}

// ListFeedback returns the newest entries first.
func ListFeedback(ctx context.Context, q Querier, limit int) ([]Feedback, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, user_id, emoji, comment, page, created_at FROM feedback ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list feedback: %w", err)
	}
	defer rows.Close()

	var out []Feedback
	for rows.Next() {
		var f Feedback
		var userID sql.NullString
		if err := rows.Scan(&f.ID, &userID, &f.Emoji, &f.Comment, &f.Page, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan feedback: %w", err)
		}
		f.UserID = userID.String
		out = append(out, f)
	}
	return out, rows.Err()
}

// DetachFeedback keeps a user's feedback but drops the reference to them.
func DetachFeedback(ctx context.Context, q Querier, userID string) error {
	if _, err := q.ExecContext(ctx, `UPDATE feedback SET user_id = NULL WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("detach feedback: %w", err)
	}
	return nil
}
