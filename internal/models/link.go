package models

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type Link struct {
	ID          string    `json:"id"`
	BiolinkID   string    `json:"biolink_id"`
	Emoji       string    `json:"emoji"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Position    int       `json:"position"`
	TotalClicks int64     `json:"total_clicks"`
	CreatedAt   time.Time `json:"created_at"`
}

const linkColumns = `id, biolink_id, emoji, title, url, position, total_clicks, created_at`

func CreateLink(ctx context.Context, q Querier, l *Link) error {
	if l.ID == "" {
		l.ID = NewID()
	}
	_, err := q.ExecContext(ctx,
		`INSERT INTO links (id, biolink_id, emoji, title, url, position) VALUES (?, ?, ?, ?, ?, ?)`,
		l.ID, l.BiolinkID, l.Emoji, l.Title, l.URL, l.Position,
	)
	if err != nil {
		return fmt.Errorf("insert link: %w", err)
	}

	// Re-read to get timestamps
	created, err := GetLinkByID(ctx, q, l.ID)
	if err != nil {
		return err
	}
	*l = *created
	return nil
}

func GetLinkByID(ctx context.Context, q Querier, id string) (*Link, error) {
	l := &Link{}
	err := q.QueryRowContext(ctx, `SELECT `+linkColumns+` FROM links WHERE id = ?`, id).
		Scan(&l.ID, &l.BiolinkID, &l.Emoji, &l.Title, &l.URL, &l.Position, &l.TotalClicks, &l.CreatedAt)
	if err != nil {
		return nil, err
	}
	return l, nil
}

// ListLinks returns a biolink's links ordered by position.
func ListLinks(ctx context.Context, q Querier, biolinkID string) ([]Link, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+linkColumns+` FROM links WHERE biolink_id = ? ORDER BY position`, biolinkID)
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}
	defer rows.Close()

	var links []Link
	for rows.Next() {
		var l Link
		if err := rows.Scan(&l.ID, &l.BiolinkID, &l.Emoji, &l.Title, &l.URL, &l.Position, &l.TotalClicks, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan link: %w", err)
		}
		links = append(links, l)
	}
	return links, rows.Err()
}

func CountLinks(ctx context.Context, q Querier, biolinkID string) (int, error) {
	var count int
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM links WHERE biolink_id = ?`, biolinkID).Scan(&count)
	return count, err
}

func DeleteLink(ctx context.Context, q Querier, id string) error {
	res, err := q.ExecContext(ctx, `DELETE FROM links WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete link: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func DeleteLinksForBiolink(ctx context.Context, q Querier, biolinkID string) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM links WHERE biolink_id = ?`, biolinkID); err != nil {
		return fmt.Errorf("delete links: %w", err)
	}
	return nil
}

// ShiftPositionsAfter closes the gap left by a removed link at position.
func ShiftPositionsAfter(ctx context.Context, q Querier, biolinkID string, position int) error {
	_, err := q.ExecContext(ctx,
		`UPDATE links SET position = position - 1 WHERE biolink_id = ? AND position > ?`,
		biolinkID, position,
	)
	if err != nil {
		return fmt.Errorf("shift positions: %w", err)
	}
	return nil
}

func SetLinkPosition(ctx context.Context, q Querier, id string, position int) error {
	if _, err := q.ExecContext(ctx, `UPDATE links SET position = ? WHERE id = ?`, position, id); err != nil {
		return fmt.Errorf("set link position: %w", err)
	}
	return nil
}

// IncrementClicks bumps the lifetime click counter. Returns sql.ErrNoRows for
// an unknown link.
func IncrementClicks(ctx context.Context, q Querier, id string) error {
	res, err := q.ExecContext(ctx, `UPDATE links SET total_clicks = total_clicks + 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("increment clicks: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
