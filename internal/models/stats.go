package models

import (
	"context"
	"fmt"
	"time"
)

type DailyStat struct {
	Date   string `json:"date"`
	Views  int64  `json:"views"`
	Clicks int64  `json:"clicks"`
}

type DailyLinkClick struct {
	LinkID string `json:"link_id"`
	Date   string `json:"date"`
	Clicks int64  `json:"clicks"`
}

// Day formats t as the UTC rollup date.
func Day(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// UpsertDailyViews adds one view to the biolink's rollup row for day.
func UpsertDailyViews(ctx context.Context, q Querier, biolinkID, day string) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO daily_stats (id, biolink_id, date, views, clicks) VALUES (?, ?, ?, 1, 0)
		ON CONFLICT(biolink_id, date) DO UPDATE SET views = views + 1`,
		NewID(), biolinkID, day,
	)
	if err != nil {
		return fmt.Errorf("upsert daily views: %w", err)
	}
	return nil
}

// UpsertDailyClicks adds one click to the biolink's rollup row for day.
func UpsertDailyClicks(ctx context.Context, q Querier, biolinkID, day string) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO daily_stats (id, biolink_id, date, views, clicks) VALUES (?, ?, ?, 0, 1)
		ON CONFLICT(biolink_id, date) DO UPDATE SET clicks = clicks + 1`,
		NewID(), biolinkID, day,
	)
	if err != nil {
		return fmt.Errorf("upsert daily clicks: %w", err)
	}
	return nil
}

func UpsertDailyLinkClick(ctx context.Context, q Querier, linkID, day string) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO daily_link_clicks (id, link_id, date, clicks) VALUES (?, ?, ?, 1)
		ON CONFLICT(link_id, date) DO UPDATE SET clicks = clicks + 1`,
		NewID(), linkID, day,
	)
	if err != nil {
		return fmt.Errorf("upsert daily link click: %w", err)
	}
	return nil
}

// DailyStatsSince returns rollup rows on or after since, oldest first. Days
// without traffic have no row.
func DailyStatsSince(ctx context.Context, q Querier, biolinkID, since string) ([]DailyStat, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT date, views, clicks FROM daily_stats WHERE biolink_id = ? AND date >= ? ORDER BY date`,
		biolinkID, since,
	)
	if err != nil {
		return nil, fmt.Errorf("query daily stats: %w", err)
	}
	defer rows.Close()

	var out []DailyStat
	for rows.Next() {
		var s DailyStat
		if err := rows.Scan(&s.Date, &s.Views, &s.Clicks); err != nil {
			return nil, fmt.Errorf("scan daily stat: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// DailyLinkClicksSince returns per-link rollup rows for every link of the biolink.
func DailyLinkClicksSince(ctx context.Context, q Querier, biolinkID, since string) ([]DailyLinkClick, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT c.link_id, c.date, c.clicks FROM daily_link_clicks c
		JOIN links l ON l.id = c.link_id
		WHERE l.biolink_id = ? AND c.date >= ?
		ORDER BY c.date, c.link_id`,
		biolinkID, since,
	)
	if err != nil {
		return nil, fmt.Errorf("query daily link clicks: %w", err)
	}
	defer rows.Close()

	var out []DailyLinkClick
	for rows.Next() {
		var c DailyLinkClick
		if err := rows.Scan(&c.LinkID, &c.Date, &c.Clicks); err != nil {
			return nil, fmt.Errorf("scan daily link click: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func GetDailyStat(ctx context.Context, q Querier, biolinkID, day string) (*DailyStat, error) {
	s := &DailyStat{}
	err := q.QueryRowContext(ctx,
		`SELECT date, views, clicks FROM daily_stats WHERE biolink_id = ? AND date = ?`, biolinkID, day).
		Scan(&s.Date, &s.Views, &s.Clicks)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func CountDailyStats(ctx context.Context, q Querier, biolinkID string) (int, error) {
	var n int
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM daily_stats WHERE biolink_id = ?`, biolinkID).Scan(&n)
	return n, err
}

func GetDailyLinkClick(ctx context.Context, q Querier, linkID, day string) (*DailyLinkClick, error) {
	c := &DailyLinkClick{}
	err := q.QueryRowContext(ctx,
		`SELECT link_id, date, clicks FROM daily_link_clicks WHERE link_id = ? AND date = ?`, linkID, day).
		Scan(&c.LinkID, &c.Date, &c.Clicks)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func DeleteDailyLinkClicksForLink(ctx context.Context, q Querier, linkID string) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM daily_link_clicks WHERE link_id = ?`, linkID); err != nil {
		return fmt.Errorf("delete daily link clicks: %w", err)
	}
	return nil
}

func DeleteDailyLinkClicksForBiolink(ctx context.Context, q Querier, biolinkID string) error {
	_, err := q.ExecContext(ctx,
		`DELETE FROM daily_link_clicks WHERE link_id IN (SELECT id FROM links WHERE biolink_id = ?)`, biolinkID)
	if err != nil {
		return fmt.Errorf("delete daily link clicks: %w", err)
	}
	return nil
}

func DeleteDailyStatsForBiolink(ctx context.Context, q Querier, biolinkID string) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM daily_stats WHERE biolink_id = ?`, biolinkID); err != nil {
		return fmt.Errorf("delete daily stats: %w", err)
	}
	return nil
}
