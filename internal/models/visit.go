package models

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Visit kinds.
const (
	VisitView  = "view"
	VisitClick = "click"
)

// Visit is one enriched row of the append-only visit log.
type Visit struct {
	BiolinkID     string
	LinkID        string
	Kind          string
	OccurredAt    time.Time
	RefererDomain string
	Country       string
	Browser       string
	OS            string
	DeviceType    string
}

// Bucket is one entry of a top-N breakdown.
type Bucket struct {
	Label string `json:"label"`
	Count int64  `json:"count"`
}

// BatchInsertVisits writes visits in a single transaction. Rows for biolinks
// deleted since the event was queued are skipped.
func BatchInsertVisits(db *sql.DB, visits []Visit) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO visits
		(biolink_id, link_id, kind, occurred_at, referer_domain, country, browser, os, device_type)
		SELECT ?, ?, ?, ?, ?, ?, ?, ?, ?
		WHERE EXISTS (SELECT 1 FROM biolinks WHERE id = ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, v := range visits {
		_, err := stmt.Exec(
			v.BiolinkID, v.LinkID, v.Kind, v.OccurredAt.UTC(), v.RefererDomain,
			v.Country, v.Browser, v.OS, v.DeviceType, v.BiolinkID,
		)
		if err != nil {
			return fmt.Errorf("insert visit: %w", err)
		}
	}

	return tx.Commit()
}

func CountVisits(ctx context.Context, q Querier, biolinkID string) (int, error) {
	var n int
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM visits WHERE biolink_id = ?`, biolinkID).Scan(&n)
	return n, err
}

func TopReferrers(ctx context.Context, q Querier, biolinkID string, since time.Time, limit int) ([]Bucket, error) {
	return topBy(ctx, q, "referer_domain", biolinkID, since, limit)
}

func TopCountries(ctx context.Context, q Querier, biolinkID string, since time.Time, limit int) ([]Bucket, error) {
	return topBy(ctx, q, "country", biolinkID, since, limit)
}

func TopDevices(ctx context.Context, q Querier, biolinkID string, since time.Time, limit int) ([]Bucket, error) {
	return topBy(ctx, q, "device_type", biolinkID, since, limit)
}

// column is always one of the fixed names above, never user input.
func topBy(ctx context.Context, q Querier, column, biolinkID string, since time.Time, limit int) ([]Bucket, error) {
	query := `SELECT ` + column + `, COUNT(*) AS n FROM visits
		WHERE biolink_id = ? AND occurred_at >= ? AND ` + column + ` != ''
		GROUP BY ` + column + ` ORDER BY n DESC, ` + column + ` LIMIT ?`

	rows, err := q.QueryContext(ctx, query, biolinkID, since.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("query top %s: %w", column, err)
	}
	defer rows.Close()

	var out []Bucket
	for rows.Next() {
		var b Bucket
		if err := rows.Scan(&b.Label, &b.Count); err != nil {
			return nil, fmt.Errorf("scan %s bucket: %w", column, err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func DeleteVisitsForBiolink(ctx context.Context, q Querier, biolinkID string) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM visits WHERE biolink_id = ?`, biolinkID); err != nil {
		return fmt.Errorf("delete visits: %w", err)
	}
	return nil
}
